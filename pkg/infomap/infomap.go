package infomap

import (
	"context"
	"fmt"

	"github.com/dd0wney/cluso-infomap/pkg/logging"
)

// trialState is shared by the optimizer of one trial and every
// sub-optimizer it spawns. It is never shared between trials.
type trialState struct {
	ctx   context.Context
	cfg   *Config
	tune  tuning
	model flowModel
	log   logging.Logger
	seed  uint32

	// created counts tree nodes allocated in this trial. Sub-optimizers are
	// seeded from it, which keeps a trial deterministic on its own.
	created int

	passes int
	moves  int
}

func (ts *trialState) checkAbort() error {
	if err := ts.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrAborted, err)
	}
	return nil
}

// infomap optimizes the map equation over one network: the leaf network of
// a trial, the children of a module, or the modules of a level.
type infomap struct {
	ts       *trialState
	rng      *Lcg
	tree     *tree
	subLevel int

	activeNetwork []int
	moveTo        []int

	oneLevelCodelength     float64
	codelength             float64
	indexCodelength        float64
	moduleCodelength       float64
	hierarchicalCodelength float64

	numNonTrivialTopModules int
	iterationCount          int
	isCoarseTune            bool

	// Local moving state, indexed by module
	moduleFlowData []flowData
	moduleMembers  []int
	emptyModules   []int

	// Scratch buffers reused across passes
	nodeOrder   []int
	moduleDelta []deltaFlow
	redirect    []int

	nodeFlowLogNodeFlow               float64
	flowLogFlow                       float64
	exitLogExit                       float64
	enterLogEnter                     float64
	enterFlow                         float64
	enterFlowLogEnterFlow             float64
	exitNetworkFlow                   float64
	exitNetworkFlowLogExitNetworkFlow float64
}

func newInfomap(ts *trialState, seed uint32) *infomap {
	return &infomap{
		ts:   ts,
		rng:  NewLcg(seed),
		tree: newTree(&ts.created),
	}
}

// newSubInfomap creates the optimizer for a network derived from this one.
// A reseeded sub-optimizer draws its seed from the trial's node counter,
// otherwise it starts from the trial seed.
func (im *infomap) newSubInfomap(reseed bool) *infomap {
	seed := im.ts.seed
	if reseed {
		seed = uint32(im.ts.created)
	}
	sub := newInfomap(im.ts, seed)
	sub.subLevel = im.subLevel + 1
	return sub
}

func (im *infomap) numLeafNodes() int {
	return len(im.tree.leaves)
}

func (im *infomap) numTopModules() int {
	return im.tree.nodes[im.tree.root()].childDegree
}

// initNetwork builds the leaf level from the flow network.
func (im *infomap) initNetwork(fn *flowNetwork) {
	t := im.tree
	leafIDs := make([]int, fn.numNodes())
	for i, f := range fn.nodeFlow {
		data := flowData{flow: f, teleportWeight: fn.teleportWeight[i]}
		if fn.dangling[i] {
			data.danglingFlow = f
		}
		leafIDs[i] = t.addLeaf(data, i)
	}
	for _, l := range fn.links {
		t.addEdge(leafIDs[l.source], leafIDs[l.target], l.weight, l.flow)
	}
	im.initEnterExitFlow()
}

// initEnterExitFlow sets the boundary flow of every leaf as if it formed a
// module on its own.
func (im *infomap) initEnterExitFlow() {
	t := im.tree
	bidirectional := im.ts.model.bidirectional()
	for _, e := range t.edges {
		if e.source == e.target {
			continue
		}
		src := &t.nodes[e.source].data
		dst := &t.nodes[e.target].data
		src.exitFlow += e.flow
		dst.enterFlow += e.flow
		if bidirectional {
			src.enterFlow += e.flow
			dst.exitFlow += e.flow
		}
	}

	if !im.ts.model.codesTeleportation() {
		return
	}
	alpha := im.ts.model.alpha
	beta := 1 - alpha
	total := 0.0
	for _, id := range t.leaves {
		d := t.nodes[id].data
		total += alpha*d.flow + beta*d.danglingFlow
	}
	for _, id := range t.leaves {
		d := &t.nodes[id].data
		teleported := alpha*d.flow + beta*d.danglingFlow
		d.exitFlow += teleported * (1 - d.teleportWeight)
		d.enterFlow += (total - teleported) * d.teleportWeight
	}
}

// generateNetworkFromChildren copies the children of parent in src, and the
// edges between them, as the leaf network of im. The index of each child
// in src is set to its position.
func (im *infomap) generateNetworkFromChildren(src *infomap, parent int) {
	st := src.tree
	children := st.children(parent)
	leafIDs := make([]int, len(children))
	for i, c := range children {
		leafIDs[i] = im.tree.addLeaf(st.nodes[c].data, st.nodes[c].originalIndex)
		st.nodes[c].index = i
	}
	for _, c := range children {
		for _, e := range st.nodes[c].outEdges {
			edge := st.edges[e]
			if edge.dead || st.nodes[edge.target].parent != parent {
				continue
			}
			im.tree.addEdge(leafIDs[st.nodes[c].index], leafIDs[st.nodes[edge.target].index], edge.weight, edge.flow)
		}
	}
	im.exitNetworkFlow = st.nodes[parent].data.exitFlow
	im.exitNetworkFlowLogExitNetworkFlow = Plogp(im.exitNetworkFlow)
}

// initSubNetwork sets up the children of module as the network to partition.
func (im *infomap) initSubNetwork(src *infomap, module int) {
	im.tree.nodes[im.tree.root()].data = src.tree.nodes[module].data
	im.generateNetworkFromChildren(src, module)
}

// initSuperNetwork sets up the top modules of src as nodes, weighted by the
// flow entering them.
func (im *infomap) initSuperNetwork(src *infomap) {
	im.generateNetworkFromChildren(src, src.tree.root())
	im.transformNodeFlowToEnterFlow(im.tree.root())
}

func (im *infomap) transformNodeFlowToEnterFlow(parent int) {
	t := im.tree
	for c := t.nodes[parent].firstChild; c != none; c = t.nodes[c].next {
		t.nodes[c].data.flow = t.nodes[c].data.enterFlow
	}
}

func (im *infomap) setActiveNetworkFromLeafs() {
	im.activeNetwork = append(im.activeNetwork[:0], im.tree.leaves...)
	im.moveTo = resizeInts(im.moveTo, len(im.activeNetwork))
}

func (im *infomap) setActiveNetworkFromChildrenOfRoot() {
	im.activeNetwork = im.tree.children(im.tree.root())
	im.moveTo = resizeInts(im.moveTo, len(im.activeNetwork))
}

// calcCodelengthFromFlowWithinOrExit returns the codelength of the codebook
// of a module: its children plus the exit code.
func (im *infomap) calcCodelengthFromFlowWithinOrExit(module int) float64 {
	t := im.tree
	data := t.nodes[module].data
	totalParentFlow := data.flow + data.exitFlow
	if totalParentFlow < 1e-16 {
		return 0
	}

	indexLength := 0.0
	for c := t.nodes[module].firstChild; c != none; c = t.nodes[c].next {
		indexLength -= Plogp(t.nodes[c].data.flow / totalParentFlow)
	}
	indexLength -= Plogp(data.exitFlow / totalParentFlow)
	return indexLength * totalParentFlow
}

func resizeInts(s []int, n int) []int {
	if cap(s) < n {
		return make([]int, n)
	}
	s = s[:n]
	for i := range s {
		s[i] = 0
	}
	return s
}
