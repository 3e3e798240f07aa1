package infomap

import (
	"sort"
	"time"
)

// TreeNode is a node of the final module hierarchy. Node 0 is the root.
type TreeNode struct {
	Parent   int
	Children []int

	// Vertex is the input vertex of a leaf, -1 for modules.
	Vertex int

	Flow      float64
	EnterFlow float64
	ExitFlow  float64

	// Codelength of the module codebook, zero for leaves.
	Codelength float64

	// Depth below the root.
	Depth int
}

// IsLeaf reports whether the node is an input vertex.
func (n TreeNode) IsLeaf() bool {
	return n.Vertex >= 0
}

// TrialResult summarizes one trial of a run.
type TrialResult struct {
	Index      int
	Seed       uint32
	Codelength float64
	NumModules int
	Depth      int
	Passes     int
	Moves      int
	Elapsed    time.Duration
}

// Link is an aggregated link of the input network with its flow.
type Link struct {
	Source, Target int
	Weight         float64
	Flow           float64
}

// Module is a top-level module with its member vertices.
type Module struct {
	Index    int
	Flow     float64
	ExitFlow float64
	Vertices []int
}

// Result is the module hierarchy found by a run. It is read-only.
type Result struct {
	RunID string

	// Codelength is the hierarchical map equation of Tree in bits.
	Codelength         float64
	OneLevelCodelength float64
	IndexCodelength    float64
	ModuleCodelength   float64
	// PerLevel splits Codelength by the depth of the codebooks.
	PerLevel []float64

	// Tree is stored in pre-order; children are sorted by descending flow.
	Tree []TreeNode

	// BestTrial is the index of the winning trial, -1 when no trial ran.
	BestTrial int
	Trials    []TrialResult

	// Links are the aggregated links the flow was computed on, sorted by
	// source and target.
	Links          []Link
	FlowIterations int
	FlowConverged  bool

	Elapsed time.Duration

	names     []string
	leafNodes []int
	paths     [][]int
}

// NumVertices returns the number of input vertices.
func (r *Result) NumVertices() int {
	return len(r.leafNodes)
}

// Labels returns the top-level module of every vertex.
func (r *Result) Labels() []int {
	labels := make([]int, len(r.paths))
	for v, p := range r.paths {
		labels[v] = p[0]
	}
	return labels
}

// Label returns the top-level module of vertex v.
func (r *Result) Label(v int) int {
	return r.paths[v][0]
}

// Path returns the position of each ancestor of vertex v among its
// siblings, from the top-level module down to the leaf. Positions are
// zero-based.
func (r *Result) Path(v int) []int {
	return append([]int(nil), r.paths[v]...)
}

// Depth returns the number of levels below the root, 2 for a two-level
// partition.
func (r *Result) Depth() int {
	depth := 0
	for _, p := range r.paths {
		depth = max(depth, len(p))
	}
	return depth
}

// NumModules returns the number of top-level modules.
func (r *Result) NumModules() int {
	if len(r.Tree) == 0 {
		return 0
	}
	return len(r.Tree[0].Children)
}

// Modules returns the top-level modules in order of descending flow.
func (r *Result) Modules() []Module {
	if len(r.Tree) == 0 {
		return nil
	}
	modules := make([]Module, len(r.Tree[0].Children))
	for i, c := range r.Tree[0].Children {
		node := r.Tree[c]
		modules[i] = Module{Index: i, Flow: node.Flow, ExitFlow: node.ExitFlow}
	}
	for v, p := range r.paths {
		modules[p[0]].Vertices = append(modules[p[0]].Vertices, v)
	}
	return modules
}

// Flow returns the stationary visit rate of vertex v.
func (r *Result) Flow(v int) float64 {
	return r.Tree[r.leafNodes[v]].Flow
}

// LeafNode returns the index in Tree of the leaf of vertex v.
func (r *Result) LeafNode(v int) int {
	return r.leafNodes[v]
}

// VertexName returns the name of vertex v as given to the Network.
func (r *Result) VertexName(v int) string {
	return r.names[v]
}

// LabelsAtDepth returns for every vertex the module containing it at the
// given depth, depth 1 being the top-level modules. Vertices whose leaf is
// not that deep get their deepest module. Modules are numbered in tree
// order.
func (r *Result) LabelsAtDepth(depth int) []int {
	if depth < 1 {
		depth = 1
	}
	ancestors := make([]int, len(r.leafNodes))
	for v, leaf := range r.leafNodes {
		id := r.Tree[leaf].Parent
		for r.Tree[id].Depth > depth {
			id = r.Tree[id].Parent
		}
		ancestors[v] = id
	}

	ids := append([]int(nil), ancestors...)
	sort.Ints(ids)
	numbering := make(map[int]int)
	for _, id := range ids {
		if _, ok := numbering[id]; !ok {
			numbering[id] = len(numbering)
		}
	}

	labels := make([]int, len(ancestors))
	for v, id := range ancestors {
		labels[v] = numbering[id]
	}
	return labels
}

// Passes returns the number of local moving passes summed over trials.
func (r *Result) Passes() int {
	n := 0
	for _, t := range r.Trials {
		n += t.Passes
	}
	return n
}

// RelativeCodelengthSavings is the fraction of the one-level codelength
// saved by the hierarchy.
func (r *Result) RelativeCodelengthSavings() float64 {
	if r.OneLevelCodelength <= 0 {
		return 0
	}
	return 1 - r.Codelength/r.OneLevelCodelength
}

// resultBuilder flattens the tree of an optimizer, including the trees of
// refined modules, into a Result.
type resultBuilder struct {
	res             *Result
	detailedBalance bool
}

func buildResult(im *infomap, net *Network, fn *flowNetwork) *Result {
	n := net.NumVertices()
	res := &Result{
		BestTrial:      -1,
		FlowIterations: fn.iterations,
		FlowConverged:  fn.converged,
		Links:          resultLinks(fn),
		names:          vertexNames(net),
		leafNodes:      make([]int, n),
		paths:          make([][]int, n),
	}
	b := &resultBuilder{res: res, detailedBalance: im.ts.model.detailedBalance()}

	root := im.tree.nodes[im.tree.root()].data
	res.Tree = append(res.Tree, TreeNode{Parent: none, Vertex: none, Flow: root.flow})
	b.addChildren(im.tree, im.tree.root(), 0, nil, 0)

	res.OneLevelCodelength = fn.oneLevelCodelength()
	res.Codelength, res.PerLevel, res.IndexCodelength = treeCodelength(im, im.ts.model)
	res.ModuleCodelength = res.Codelength - res.IndexCodelength
	return res
}

// addChildren appends the children of module in t below the result node
// at, then sets the codebook length of at.
func (b *resultBuilder) addChildren(t *tree, module, at int, path []int, exit float64) {
	res := b.res
	ct, parent := childTree(t, module)
	depth := res.Tree[at].Depth + 1

	sumRates, sumPlogpRates := 0.0, 0.0
	pos := 0
	for c := ct.nodes[parent].firstChild; c != none; c = ct.nodes[c].next {
		node := &ct.nodes[c]
		id := len(res.Tree)
		res.Tree = append(res.Tree, TreeNode{
			Parent:    at,
			Vertex:    none,
			Flow:      node.data.flow,
			EnterFlow: node.data.enterFlow,
			ExitFlow:  node.data.exitFlow,
			Depth:     depth,
		})
		res.Tree[at].Children = append(res.Tree[at].Children, id)
		childPath := append(path[:len(path):len(path)], pos)

		if isModule(ct, c) {
			b.addChildren(ct, c, id, childPath, node.data.exitFlow)
		} else {
			v := node.originalIndex
			res.Tree[id].Vertex = v
			res.leafNodes[v] = id
			res.paths[v] = childPath
		}

		rate := entryRate(ct, c, b.detailedBalance)
		sumRates += rate
		sumPlogpRates += Plogp(rate)
		pos++
	}
	res.Tree[at].Codelength = codebookLength(sumRates, sumPlogpRates, exit)
}

func resultLinks(fn *flowNetwork) []Link {
	links := make([]Link, len(fn.links))
	for i, l := range fn.links {
		links[i] = Link{Source: l.source, Target: l.target, Weight: l.weight, Flow: l.flow}
	}
	return links
}

func vertexNames(net *Network) []string {
	names := make([]string, net.NumVertices())
	for v := range names {
		names[v] = net.VertexName(v)
	}
	return names
}

func emptyResult(runID string) *Result {
	return &Result{
		RunID:         runID,
		Tree:          []TreeNode{{Parent: none, Vertex: none, Flow: 1}},
		BestTrial:     -1,
		FlowConverged: true,
	}
}

// singleVertexResult places the only vertex in a module of its own. All
// codelengths are zero.
func singleVertexResult(runID string, net *Network, fn *flowNetwork) *Result {
	return &Result{
		RunID:    runID,
		PerLevel: []float64{0, 0},
		Tree: []TreeNode{
			{Parent: none, Children: []int{1}, Vertex: none, Flow: 1},
			{Parent: 0, Children: []int{2}, Vertex: none, Flow: 1, Depth: 1},
			{Parent: 1, Vertex: 0, Flow: 1, Depth: 2},
		},
		BestTrial:      -1,
		FlowIterations: fn.iterations,
		FlowConverged:  fn.converged,
		Links:          resultLinks(fn),
		names:          vertexNames(net),
		leafNodes:      []int{2},
		paths:          [][]int{{0, 0}},
	}
}
