package infomap

import (
	"math"

	"github.com/dd0wney/cluso-infomap/pkg/logging"
)

// minFlowIterations is the number of power iterations run before the
// tolerance is consulted.
const minFlowIterations = 200

// flowModel is the random walk model selected by Dynamics. It is fixed for
// a run and consulted by the optimizer wherever the variants differ.
type flowModel struct {
	kind Dynamics

	// Directed only
	alpha    float64
	recorded bool
}

func newFlowModel(cfg Config) flowModel {
	m := flowModel{kind: cfg.Dynamics}
	if m.kind == Directed {
		m.alpha = cfg.TeleportationProbability
		m.recorded = cfg.RecordedTeleportation
	}
	return m
}

// bidirectional reports whether each link is coded in both directions.
func (m flowModel) bidirectional() bool {
	switch m.kind {
	case Undirected, OutDirDir:
		return true
	}
	return false
}

// detailedBalance reports whether enter flow equals exit flow for every
// module, so the codelength can be computed from exit flow alone.
func (m flowModel) detailedBalance() bool {
	switch m.kind {
	case Undirected, OutDirDir:
		return true
	case Directed:
		return m.recorded
	}
	return false
}

// codesTeleportation reports whether teleportation steps cross module
// boundaries in the code.
func (m flowModel) codesTeleportation() bool {
	return m.kind == Directed && m.recorded
}

type flowLink struct {
	source, target int
	weight         float64
	flow           float64
}

// flowNetwork is the leaf network with its steady-state flow. It is computed
// once per run and shared read-only by every trial.
type flowNetwork struct {
	nodeFlow       []float64
	teleportWeight []float64
	dangling       []bool
	links          []flowLink

	totalWeight      float64
	numSelfLinks     int
	droppedSelfLinks int

	iterations int
	converged  bool
}

func (fn *flowNetwork) numNodes() int {
	return len(fn.nodeFlow)
}

// calculateFlow aggregates the transactions of net into links and computes
// node and link flow according to model.
func calculateFlow(net *Network, cfg Config, model flowModel, log logging.Logger) *flowNetwork {
	n := net.NumVertices()
	set := aggregateLinks(net, cfg)

	fn := &flowNetwork{
		nodeFlow:         make([]float64, n),
		teleportWeight:   make([]float64, n),
		dangling:         make([]bool, n),
		links:            make([]flowLink, len(set.links)),
		totalWeight:      set.totalWeight,
		numSelfLinks:     set.numSelfLinks,
		droppedSelfLinks: set.droppedSelfLinks,
		converged:        true,
	}
	if n == 0 {
		return fn
	}

	outDegree := make([]int, n)
	for i, l := range set.links {
		fn.links[i] = flowLink{source: l.source, target: l.target, weight: l.weight}
		outDegree[l.source]++
	}
	for i := range fn.teleportWeight {
		fn.teleportWeight[i] = 1.0 / float64(n)
		fn.dangling[i] = outDegree[i] == 0
	}

	if len(fn.links) == 0 || fn.totalWeight <= 0 {
		for i := range fn.nodeFlow {
			fn.nodeFlow[i] = 1.0 / float64(n)
		}
		return fn
	}

	switch model.kind {
	case Undirected:
		fn.undirectedFlow(set.selfWeight, false)
	case UndirDir:
		fn.undirectedFlow(set.selfWeight, true)
	case OutDirDir, RawDir:
		fn.incomingFlow()
	case Directed:
		fn.pageRank(cfg, model, log)
	}
	return fn
}

// undirectedFlow makes node flow proportional to weighted degree. A self-link
// is counted once.
func (fn *flowNetwork) undirectedFlow(selfWeight float64, directedLinks bool) {
	sumUndirected := 2*fn.totalWeight - selfWeight
	for i := range fn.links {
		l := &fn.links[i]
		f := l.weight / sumUndirected
		fn.nodeFlow[l.source] += f
		if l.source != l.target {
			fn.nodeFlow[l.target] += f
		}
		if directedLinks {
			l.flow = l.weight / fn.totalWeight
		} else {
			l.flow = f
		}
	}
}

// incomingFlow uses the normalized link weights as flow and gives every node
// the flow entering it.
func (fn *flowNetwork) incomingFlow() {
	for i := range fn.links {
		l := &fn.links[i]
		l.flow = l.weight / fn.totalWeight
		fn.nodeFlow[l.target] += l.flow
	}
}

// pageRank computes the stationary distribution of a random walk that
// follows out-links with probability 1-alpha and teleports uniformly
// otherwise. Dangling nodes always teleport.
func (fn *flowNetwork) pageRank(cfg Config, model flowModel, log logging.Logger) {
	n := fn.numNodes()
	alpha := model.alpha
	beta := 1 - alpha

	outWeight := make([]float64, n)
	for _, l := range fn.links {
		outWeight[l.source] += l.weight
	}
	normalized := make([]float64, len(fn.links))
	for i, l := range fn.links {
		normalized[i] = l.weight / outWeight[l.source]
	}

	rank := make([]float64, n)
	copy(rank, fn.teleportWeight)
	next := make([]float64, n)

	diff, diffOld := 1.0, 1.0
	iterations := 0
	for {
		danglingRank := 0.0
		for i, d := range fn.dangling {
			if d {
				danglingRank += rank[i]
			}
		}

		teleportRate := alpha + beta*danglingRank
		for i := range next {
			next[i] = teleportRate * fn.teleportWeight[i]
		}
		for i, l := range fn.links {
			next[l.target] += beta * normalized[i] * rank[l.source]
		}

		sum := 0.0
		for _, r := range next {
			sum += r
		}
		if math.Abs(sum-1) > 1e-10 {
			log.Debug("normalizing flow", logging.Float64("sum", sum), logging.Iterations(iterations))
			for i := range next {
				next[i] /= sum
			}
		}

		diff = 0
		for i := range next {
			diff += math.Abs(next[i] - rank[i])
		}
		rank, next = next, rank
		iterations++

		// Break out of oscillating fixed points
		if diff == diffOld {
			alpha += 1e-10
			beta = 1 - alpha
		}
		diffOld = diff

		if (iterations >= minFlowIterations && diff <= cfg.FlowTolerance) || iterations >= cfg.FlowMaxIterations {
			break
		}
	}

	fn.iterations = iterations
	fn.converged = diff <= cfg.FlowTolerance
	if !fn.converged {
		log.Warn("flow did not converge, using last iterate",
			logging.Iterations(iterations),
			logging.Float64("difference", diff),
			logging.Float64("tolerance", cfg.FlowTolerance))
	}

	if model.recorded {
		for i := range fn.links {
			l := &fn.links[i]
			l.flow = beta * normalized[i] * rank[l.source]
		}
		copy(fn.nodeFlow, rank)
		return
	}

	// Unrecorded teleportation: one last step along the links only
	danglingRank := 0.0
	for i, d := range fn.dangling {
		if d {
			danglingRank += rank[i]
		}
	}
	sumNodeRank := 1 - danglingRank
	for i := range fn.nodeFlow {
		fn.nodeFlow[i] = 0
	}
	for i := range fn.links {
		l := &fn.links[i]
		l.flow = normalized[i] * rank[l.source] / sumNodeRank
		fn.nodeFlow[l.target] += l.flow
	}
}

// oneLevelCodelength is the entropy of the node flow, the codelength of the
// partition with every node in a single module.
func (fn *flowNetwork) oneLevelCodelength() float64 {
	h := 0.0
	for _, f := range fn.nodeFlow {
		h -= Plogp(f)
	}
	return h
}
