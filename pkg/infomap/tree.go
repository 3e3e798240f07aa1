package infomap

// none marks an absent node or edge reference in the arena.
const none = -1

// treeNode is a leaf or a module. Links to other nodes are arena indices.
type treeNode struct {
	parent     int
	firstChild int
	lastChild  int
	prev, next int

	childDegree int

	data flowData

	// index is the module a node belongs to while optimizing, and its
	// position among its siblings otherwise.
	index int
	// originalIndex is the input vertex of a leaf.
	originalIndex int

	codelength float64

	outEdges []int
	inEdges  []int

	// sub holds the refined structure below a module, if any.
	sub *infomap

	exploredWithoutImprovement bool
	deleted                    bool
}

type treeEdge struct {
	source, target int
	weight         float64
	flow           float64
	dead           bool
}

// tree is an arena of nodes and edges. Node 0 is the root. Nodes are never
// freed; a deleted node is unlinked from the hierarchy and its edges die.
type tree struct {
	nodes  []treeNode
	edges  []treeEdge
	leaves []int

	// created counts node allocations for reseeding sub-optimizers.
	created *int
}

func newTree(created *int) *tree {
	t := &tree{created: created}
	t.newNode(flowData{flow: 1})
	return t
}

func (t *tree) root() int { return 0 }

func (t *tree) newNode(data flowData) int {
	t.nodes = append(t.nodes, treeNode{
		parent:        none,
		firstChild:    none,
		lastChild:     none,
		prev:          none,
		next:          none,
		data:          data,
		originalIndex: none,
	})
	*t.created++
	return len(t.nodes) - 1
}

// addLeaf creates a leaf under the root.
func (t *tree) addLeaf(data flowData, originalIndex int) int {
	id := t.newNode(data)
	t.nodes[id].originalIndex = originalIndex
	t.addChild(t.root(), id)
	t.leaves = append(t.leaves, id)
	return id
}

func (t *tree) isLeaf(id int) bool {
	return t.nodes[id].firstChild == none
}

// addChild appends child as the last child of parent. Any previous sibling
// links of child are overwritten.
func (t *tree) addChild(parent, child int) {
	p := &t.nodes[parent]
	c := &t.nodes[child]
	c.parent = parent
	c.next = none
	c.prev = p.lastChild
	if p.lastChild == none {
		p.firstChild = child
	} else {
		t.nodes[p.lastChild].next = child
	}
	p.lastChild = child
	p.childDegree++
}

// releaseChildren empties the child list of parent. The children keep their
// parent reference until they are added elsewhere.
func (t *tree) releaseChildren(parent int) {
	p := &t.nodes[parent]
	p.firstChild = none
	p.lastChild = none
	p.childDegree = 0
}

// children returns the children of parent in order.
func (t *tree) children(parent int) []int {
	out := make([]int, 0, t.nodes[parent].childDegree)
	for c := t.nodes[parent].firstChild; c != none; c = t.nodes[c].next {
		out = append(out, c)
	}
	return out
}

// replaceWithChildren splices the children of id into its place under its
// parent and deletes id.
func (t *tree) replaceWithChildren(id int) {
	n := t.nodes[id]
	if n.firstChild == none || n.parent == none {
		return
	}
	parent := n.parent
	for c := n.firstChild; c != none; c = t.nodes[c].next {
		t.nodes[c].parent = parent
	}
	t.nodes[n.firstChild].prev = n.prev
	t.nodes[n.lastChild].next = n.next
	if n.prev == none {
		t.nodes[parent].firstChild = n.firstChild
	} else {
		t.nodes[n.prev].next = n.firstChild
	}
	if n.next == none {
		t.nodes[parent].lastChild = n.lastChild
	} else {
		t.nodes[n.next].prev = n.lastChild
	}
	t.nodes[parent].childDegree += n.childDegree - 1
	t.deleteNode(id)
}

// replaceChildrenWithGrandChildren removes the level of modules below parent.
func (t *tree) replaceChildrenWithGrandChildren(parent int) {
	for _, c := range t.children(parent) {
		if !t.isLeaf(c) {
			t.replaceWithChildren(c)
		}
	}
}

func (t *tree) deleteNode(id int) {
	n := &t.nodes[id]
	for _, e := range n.outEdges {
		t.edges[e].dead = true
	}
	for _, e := range n.inEdges {
		t.edges[e].dead = true
	}
	*n = treeNode{
		parent:     none,
		firstChild: none,
		lastChild:  none,
		prev:       none,
		next:       none,
		deleted:    true,
	}
}

func (t *tree) addEdge(source, target int, weight, flow float64) {
	id := len(t.edges)
	t.edges = append(t.edges, treeEdge{source: source, target: target, weight: weight, flow: flow})
	t.nodes[source].outEdges = append(t.nodes[source].outEdges, id)
	t.nodes[target].inEdges = append(t.nodes[target].inEdges, id)
}

// degree counts the live edges of id, a self-link counted twice.
func (t *tree) degree(id int) int {
	return t.outDegree(id) + t.inDegree(id)
}

func (t *tree) outDegree(id int) int {
	d := 0
	for _, e := range t.nodes[id].outEdges {
		if !t.edges[e].dead {
			d++
		}
	}
	return d
}

func (t *tree) inDegree(id int) int {
	d := 0
	for _, e := range t.nodes[id].inEdges {
		if !t.edges[e].dead {
			d++
		}
	}
	return d
}

// depthBelow returns the number of levels from id down to its deepest leaf,
// following sub-structures.
func (t *tree) depthBelow(id int) int {
	n := &t.nodes[id]
	if n.sub != nil {
		return n.sub.tree.depthBelow(n.sub.tree.root())
	}
	if n.firstChild == none {
		return 0
	}
	deepest := 0
	for c := n.firstChild; c != none; c = t.nodes[c].next {
		deepest = max(deepest, t.depthBelow(c))
	}
	return deepest + 1
}
