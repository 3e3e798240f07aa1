package infomap

import (
	"sort"
)

type modulePair struct {
	source, target int
}

// consolidateModules turns the module assignment of the active network into
// tree nodes. With asSubModules the new modules are placed below the
// existing top modules, otherwise they become the children of the root.
// With replaceExisting, a module level previously above the active network
// is removed. It returns the number of modules created.
func (im *infomap) consolidateModules(replaceExisting, asSubModules bool) int {
	t := im.tree
	root := t.root()
	n := len(im.activeNetwork)
	if n == 0 {
		return 0
	}

	first := im.activeNetwork[0]
	haveModuleLevel := t.nodes[first].parent != root
	isLeafNetwork := t.isLeaf(first)

	if asSubModules {
		for c := t.nodes[root].firstChild; c != none; c = t.nodes[c].next {
			t.releaseChildren(c)
		}
	} else {
		if haveModuleLevel {
			t.replaceChildrenWithGrandChildren(root)
		}
		t.releaseChildren(root)
	}

	modules := make([]int, n)
	for i := range modules {
		modules[i] = none
	}
	numModules := 0
	for _, id := range im.activeNetwork {
		m := t.nodes[id].index
		if modules[m] == none {
			module := t.newNode(im.moduleFlowData[m])
			t.nodes[module].index = m
			// The parent is the released root or top module
			t.addChild(t.nodes[id].parent, module)
			modules[m] = module
			numModules++
		}
		t.addChild(modules[m], id)
	}

	if asSubModules {
		moduleIndex := 0
		for c := t.nodes[root].firstChild; c != none; c = t.nodes[c].next {
			for sub := t.nodes[c].firstChild; sub != none; sub = t.nodes[sub].next {
				t.nodes[sub].index = moduleIndex
			}
			moduleIndex++
		}
		if replaceExisting {
			t.replaceChildrenWithGrandChildren(root)
		}
	}

	im.aggregateModuleEdges()

	if !isLeafNetwork && replaceExisting {
		for _, id := range im.activeNetwork {
			t.replaceWithChildren(id)
		}
	}

	im.numNonTrivialTopModules = 0
	for c := t.nodes[root].firstChild; c != none; c = t.nodes[c].next {
		if t.nodes[c].childDegree != 1 {
			im.numNonTrivialTopModules++
		}
	}
	return numModules
}

// aggregateModuleEdges sums the flow of edges crossing between the parents
// of the active network into module edges. Bidirectional flow is stored once
// per module pair, from the lower to the higher module index.
func (im *infomap) aggregateModuleEdges() {
	t := im.tree
	bidirectional := im.ts.model.bidirectional()

	flows := make(map[modulePair]float64)
	for _, id := range im.activeNetwork {
		parent := t.nodes[id].parent
		for _, e := range t.nodes[id].outEdges {
			edge := &t.edges[e]
			if edge.dead {
				continue
			}
			otherParent := t.nodes[edge.target].parent
			if otherParent == parent {
				continue
			}
			m1, m2 := parent, otherParent
			if bidirectional && t.nodes[m1].index > t.nodes[m2].index {
				m1, m2 = m2, m1
			}
			flows[modulePair{m1, m2}] += edge.flow
		}
	}

	pairs := make([]modulePair, 0, len(flows))
	for p := range flows {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].source != pairs[j].source {
			return pairs[i].source < pairs[j].source
		}
		return pairs[i].target < pairs[j].target
	})
	for _, p := range pairs {
		t.addEdge(p.source, p.target, 0, flows[p])
	}
}

// packTopModuleIndices numbers the top modules by position.
func (im *infomap) packTopModuleIndices() {
	t := im.tree
	i := 0
	for c := t.nodes[t.root()].firstChild; c != none; c = t.nodes[c].next {
		t.nodes[c].index = i
		t.nodes[c].originalIndex = i
		i++
	}
}

// sortTree orders every child list by descending flow and renumbers the
// children by position. Equal flows keep their order.
func (im *infomap) sortTree(parent int) {
	t := im.tree
	if sub := t.nodes[parent].sub; sub != nil {
		sub.sortTree(sub.tree.root())
	}

	children := t.children(parent)
	for _, c := range children {
		im.sortTree(c)
	}
	if len(children) == 0 {
		return
	}

	sort.SliceStable(children, func(i, j int) bool {
		return t.nodes[children[i]].data.flow > t.nodes[children[j]].data.flow
	})
	t.releaseChildren(parent)
	for i, c := range children {
		t.nodes[c].index = i
		t.addChild(parent, c)
	}
}
