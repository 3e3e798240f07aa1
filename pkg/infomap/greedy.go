package infomap

import (
	"math"

	"github.com/dd0wney/cluso-infomap/pkg/logging"
)

// minMoveImprovement is the smallest codelength gain that moves a node.
// Smaller deltas are rounding noise, for example when a node without flow
// leaves its module.
const minMoveImprovement = 1e-10

// deltaFlow is the flow between a node and a candidate module.
type deltaFlow struct {
	module     int
	deltaExit  float64
	deltaEnter float64
}

func (d deltaFlow) sum() float64 {
	return d.deltaExit + d.deltaEnter
}

// initConstantInfomapTerms caches the node entropy term, which moves never change.
func (im *infomap) initConstantInfomapTerms() {
	im.nodeFlowLogNodeFlow = 0
	for _, id := range im.activeNetwork {
		im.nodeFlowLogNodeFlow += Plogp(im.tree.nodes[id].data.flow)
	}
}

// initModuleOptimization puts every node of the active network in a module
// of its own.
func (im *infomap) initModuleOptimization() {
	n := len(im.activeNetwork)
	if cap(im.moduleFlowData) < n {
		im.moduleFlowData = make([]flowData, n)
	}
	im.moduleFlowData = im.moduleFlowData[:n]
	im.moduleMembers = resizeInts(im.moduleMembers, n)
	im.emptyModules = im.emptyModules[:0]

	for i, id := range im.activeNetwork {
		node := &im.tree.nodes[id]
		node.index = i
		im.moduleFlowData[i] = node.data
		im.moduleMembers[i] = 1
	}
	im.calculateCodelengthFromActiveNetwork()
}

func (im *infomap) calculateCodelengthFromActiveNetwork() {
	detailedBalance := im.ts.model.detailedBalance()
	im.enterFlow = 0
	im.enterLogEnter = 0
	im.exitLogExit = 0
	im.flowLogFlow = 0

	for _, d := range im.moduleFlowData {
		if detailedBalance {
			im.enterFlow += d.exitFlow
		} else {
			im.enterFlow += d.enterFlow
			im.enterLogEnter += Plogp(d.enterFlow)
		}
		im.exitLogExit += Plogp(d.exitFlow)
		im.flowLogFlow += Plogp(d.exitFlow + d.flow)
	}
	im.enterFlow += im.exitNetworkFlow
	im.enterFlowLogEnterFlow = Plogp(im.enterFlow)
	im.updateCodelengthTerms()
}

func (im *infomap) updateCodelengthTerms() {
	if im.ts.model.detailedBalance() {
		im.indexCodelength = im.enterFlowLogEnterFlow - im.exitLogExit - im.exitNetworkFlowLogExitNetworkFlow
	} else {
		im.indexCodelength = im.enterFlowLogEnterFlow - im.enterLogEnter - im.exitNetworkFlowLogExitNetworkFlow
	}
	im.moduleCodelength = -im.exitLogExit + im.flowLogFlow - im.nodeFlowLogNodeFlow
	im.codelength = im.indexCodelength + im.moduleCodelength
}

// deltaCodelength returns the change in codelength if current moved from
// the module of oldDelta to the module of newDelta.
func (im *infomap) deltaCodelength(current int, oldDelta, newDelta *deltaFlow) float64 {
	deltaOld := oldDelta.sum()
	deltaNew := newDelta.sum()
	cur := &im.tree.nodes[current].data
	om := &im.moduleFlowData[oldDelta.module]
	nm := &im.moduleFlowData[newDelta.module]

	deltaEnter := Plogp(nonNegative(im.enterFlow+deltaOld-deltaNew)) - im.enterFlowLogEnterFlow

	deltaExitLogExit := -Plogp(om.exitFlow) - Plogp(nm.exitFlow) +
		Plogp(nonNegative(om.exitFlow-cur.exitFlow+deltaOld)) +
		Plogp(nonNegative(nm.exitFlow+cur.exitFlow-deltaNew))

	deltaFlowLogFlow := -Plogp(om.exitFlow+om.flow) - Plogp(nm.exitFlow+nm.flow) +
		Plogp(nonNegative(om.exitFlow+om.flow-cur.exitFlow-cur.flow+deltaOld)) +
		Plogp(nonNegative(nm.exitFlow+nm.flow+cur.exitFlow+cur.flow-deltaNew))

	if im.ts.model.detailedBalance() {
		return deltaEnter - 2*deltaExitLogExit + deltaFlowLogFlow
	}

	deltaEnterLogEnter := -Plogp(om.enterFlow) - Plogp(nm.enterFlow) +
		Plogp(nonNegative(om.enterFlow-cur.enterFlow+deltaOld)) +
		Plogp(nonNegative(nm.enterFlow+cur.enterFlow-deltaNew))

	return deltaEnter - deltaEnterLogEnter - deltaExitLogExit + deltaFlowLogFlow
}

// updateCodelength applies the move of current and updates the codelength
// terms incrementally.
func (im *infomap) updateCodelength(current int, oldDelta, newDelta *deltaFlow) {
	deltaOld := oldDelta.sum()
	deltaNew := newDelta.sum()
	cur := im.tree.nodes[current].data
	om := &im.moduleFlowData[oldDelta.module]
	nm := &im.moduleFlowData[newDelta.module]
	detailedBalance := im.ts.model.detailedBalance()

	if detailedBalance {
		im.enterFlow -= om.exitFlow + nm.exitFlow
	} else {
		im.enterFlow -= om.enterFlow + nm.enterFlow
		im.enterLogEnter -= Plogp(om.enterFlow) + Plogp(nm.enterFlow)
	}
	im.exitLogExit -= Plogp(om.exitFlow) + Plogp(nm.exitFlow)
	im.flowLogFlow -= Plogp(om.exitFlow+om.flow) + Plogp(nm.exitFlow+nm.flow)

	om.sub(cur)
	nm.add(cur)
	om.enterFlow += deltaOld
	om.exitFlow += deltaOld
	nm.enterFlow -= deltaNew
	nm.exitFlow -= deltaNew
	if im.moduleMembers[oldDelta.module] == 1 {
		*om = flowData{}
	} else {
		om.clamp()
	}
	nm.clamp()

	if detailedBalance {
		im.enterFlow += om.exitFlow + nm.exitFlow
	} else {
		im.enterFlow += om.enterFlow + nm.enterFlow
		im.enterLogEnter += Plogp(om.enterFlow) + Plogp(nm.enterFlow)
	}
	im.exitLogExit += Plogp(om.exitFlow) + Plogp(nm.exitFlow)
	im.flowLogFlow += Plogp(om.exitFlow+om.flow) + Plogp(nm.exitFlow+nm.flow)

	im.enterFlow = nonNegative(im.enterFlow)
	im.enterFlowLogEnterFlow = Plogp(im.enterFlow)
	im.updateCodelengthTerms()
}

// teleportedFlow is the flow that teleports away from d.
func (im *infomap) teleportedFlow(d *flowData) float64 {
	alpha := im.ts.model.alpha
	return alpha*d.flow + (1-alpha)*d.danglingFlow
}

// addTeleportationDeltaFlowOnOldModule adds the teleportation flow between
// current and the rest of its own module.
func (im *infomap) addTeleportationDeltaFlowOnOldModule(current int, d *deltaFlow) {
	cur := &im.tree.nodes[current].data
	m := &im.moduleFlowData[d.module]
	tn := im.teleportedFlow(cur)
	d.deltaExit += tn * nonNegative(m.teleportWeight-cur.teleportWeight)
	d.deltaEnter += nonNegative(im.teleportedFlow(m)-tn) * cur.teleportWeight
}

// addTeleportationDeltaFlowOnNewModule adds the teleportation flow between
// current and another module.
func (im *infomap) addTeleportationDeltaFlowOnNewModule(current int, d *deltaFlow) {
	cur := &im.tree.nodes[current].data
	m := &im.moduleFlowData[d.module]
	d.deltaExit += im.teleportedFlow(cur) * m.teleportWeight
	d.deltaEnter += im.teleportedFlow(m) * cur.teleportWeight
}

func (im *infomap) addTeleportationDeltaFlowIfMove(current int, candidates []deltaFlow) {
	own := im.tree.nodes[current].index
	for i := range candidates {
		if candidates[i].module == own {
			im.addTeleportationDeltaFlowOnOldModule(current, &candidates[i])
		} else {
			im.addTeleportationDeltaFlowOnNewModule(current, &candidates[i])
		}
	}
}

// isOnlySelfLinked reports whether the only edge of id is a self-link.
func (im *infomap) isOnlySelfLinked(id int) bool {
	t := im.tree
	if t.outDegree(id) != 1 || t.inDegree(id) != 1 {
		return false
	}
	for _, e := range t.nodes[id].outEdges {
		if !t.edges[e].dead {
			return t.edges[e].target == id
		}
	}
	return false
}

// tryMoveEachNodeIntoBestModule visits the active network in random order
// and moves each node to the neighbouring module that shortens the
// codelength the most. It returns the number of moves.
func (im *infomap) tryMoveEachNodeIntoBestModule() int {
	t := im.tree
	n := len(im.activeNetwork)
	bidirectional := im.ts.model.bidirectional()
	teleport := im.ts.model.codesTeleportation()

	if cap(im.nodeOrder) < n {
		im.nodeOrder = make([]int, n)
	}
	im.nodeOrder = im.nodeOrder[:n]
	shuffleIndices(im.nodeOrder, im.rng)

	if cap(im.moduleDelta) < n+1 {
		im.moduleDelta = make([]deltaFlow, n+1)
	}
	moduleDelta := im.moduleDelta[:n+1]

	// redirect maps a module to its slot in moduleDelta for the current
	// node. Slots are valid when >= offset, which avoids clearing per node.
	im.redirect = resizeInts(im.redirect, n)
	redirect := im.redirect
	offset := 1
	maxOffset := math.MaxInt32 - 1 - n

	moved := 0
	for _, i := range im.nodeOrder {
		current := im.activeNetwork[i]
		node := &t.nodes[current]

		if t.degree(current) == 0 || (im.ts.cfg.IncludeSelfLinks && im.isOnlySelfLinked(current)) {
			continue
		}

		if offset > maxOffset {
			for j := range redirect {
				redirect[j] = 0
			}
			offset = 1
		}

		numModuleLinks := 0
		if t.outDegree(current) == 0 {
			redirect[node.index] = offset + numModuleLinks
			moduleDelta[numModuleLinks] = deltaFlow{module: node.index}
			numModuleLinks++
		}

		for _, e := range node.outEdges {
			edge := &t.edges[e]
			if edge.dead || edge.source == edge.target {
				continue
			}
			other := t.nodes[edge.target].index
			if redirect[other] >= offset {
				d := &moduleDelta[redirect[other]-offset]
				d.deltaExit += edge.flow
				if bidirectional {
					d.deltaEnter += edge.flow
				}
				continue
			}
			redirect[other] = offset + numModuleLinks
			moduleDelta[numModuleLinks] = deltaFlow{module: other, deltaExit: edge.flow}
			if bidirectional {
				moduleDelta[numModuleLinks].deltaEnter = edge.flow
			}
			numModuleLinks++
		}

		for _, e := range node.inEdges {
			edge := &t.edges[e]
			if edge.dead || edge.source == edge.target {
				continue
			}
			other := t.nodes[edge.source].index
			if redirect[other] >= offset {
				d := &moduleDelta[redirect[other]-offset]
				d.deltaEnter += edge.flow
				if bidirectional {
					d.deltaExit += edge.flow
				}
				continue
			}
			redirect[other] = offset + numModuleLinks
			moduleDelta[numModuleLinks] = deltaFlow{module: other, deltaEnter: edge.flow}
			if bidirectional {
				moduleDelta[numModuleLinks].deltaExit = edge.flow
			}
			numModuleLinks++
		}

		// The own module is always a candidate, even without internal links
		if redirect[node.index] < offset {
			redirect[node.index] = offset + numModuleLinks
			moduleDelta[numModuleLinks] = deltaFlow{module: node.index}
			numModuleLinks++
		}

		if teleport {
			im.addTeleportationDeltaFlowIfMove(current, moduleDelta[:numModuleLinks])
		}

		if im.moduleMembers[node.index] > 1 && len(im.emptyModules) > 0 {
			moduleDelta[numModuleLinks] = deltaFlow{module: im.emptyModules[len(im.emptyModules)-1]}
			numModuleLinks++
		}

		oldModuleDelta := moduleDelta[redirect[node.index]-offset]

		// Shuffle so that equally good modules are chosen by the generator
		for j := 0; j < numModuleLinks-1; j++ {
			r := j + im.rng.NextIntn(numModuleLinks-j-1)
			moduleDelta[j], moduleDelta[r] = moduleDelta[r], moduleDelta[j]
		}

		best := oldModuleDelta
		bestDeltaCodelength := 0.0
		for j := 0; j < numModuleLinks; j++ {
			if moduleDelta[j].module == node.index {
				continue
			}
			delta := im.deltaCodelength(current, &oldModuleDelta, &moduleDelta[j])
			if delta < bestDeltaCodelength-minMoveImprovement {
				best = moduleDelta[j]
				bestDeltaCodelength = delta
			}
		}

		if best.module != node.index {
			if im.moduleMembers[best.module] == 0 {
				im.emptyModules = im.emptyModules[:len(im.emptyModules)-1]
			}
			if im.moduleMembers[node.index] == 1 {
				im.emptyModules = append(im.emptyModules, node.index)
			}

			im.updateCodelength(current, &oldModuleDelta, &best)

			im.moduleMembers[node.index]--
			im.moduleMembers[best.module]++
			node.index = best.module
			moved++
		}

		offset += n
	}
	return moved
}

// moveNodesToPredefinedModules moves every node of the active network to
// the module given by moveTo, keeping the codelength terms up to date.
func (im *infomap) moveNodesToPredefinedModules() int {
	t := im.tree
	bidirectional := im.ts.model.bidirectional()
	teleport := im.ts.model.codesTeleportation()

	moved := 0
	for i, current := range im.activeNetwork {
		node := &t.nodes[current]
		oldM := node.index
		newM := im.moveTo[i]
		if newM == oldM {
			continue
		}

		oldDelta := deltaFlow{module: oldM}
		newDelta := deltaFlow{module: newM}

		for _, e := range node.outEdges {
			edge := &t.edges[e]
			if edge.dead || edge.source == edge.target {
				continue
			}
			var d *deltaFlow
			switch t.nodes[edge.target].index {
			case oldM:
				d = &oldDelta
			case newM:
				d = &newDelta
			default:
				continue
			}
			d.deltaExit += edge.flow
			if bidirectional {
				d.deltaEnter += edge.flow
			}
		}

		for _, e := range node.inEdges {
			edge := &t.edges[e]
			if edge.dead || edge.source == edge.target {
				continue
			}
			var d *deltaFlow
			switch t.nodes[edge.source].index {
			case oldM:
				d = &oldDelta
			case newM:
				d = &newDelta
			default:
				continue
			}
			d.deltaEnter += edge.flow
			if bidirectional {
				d.deltaExit += edge.flow
			}
		}

		if teleport {
			im.addTeleportationDeltaFlowOnOldModule(current, &oldDelta)
			im.addTeleportationDeltaFlowOnNewModule(current, &newDelta)
		}

		if im.moduleMembers[newM] == 0 {
			im.removeEmptyModule(newM)
		}
		if im.moduleMembers[oldM] == 1 {
			im.emptyModules = append(im.emptyModules, oldM)
		}

		im.updateCodelength(current, &oldDelta, &newDelta)

		im.moduleMembers[oldM]--
		im.moduleMembers[newM]++
		node.index = newM
		moved++
	}
	return moved
}

func (im *infomap) removeEmptyModule(module int) {
	for i := len(im.emptyModules) - 1; i >= 0; i-- {
		if im.emptyModules[i] == module {
			im.emptyModules = append(im.emptyModules[:i], im.emptyModules[i+1:]...)
			return
		}
	}
}

// optimizeModules runs local moving passes until a pass no longer improves
// the codelength or the core loop limit is reached. Cancellation is checked
// between passes.
func (im *infomap) optimizeModules() (int, error) {
	tune := im.ts.tune
	loopLimit := tune.coreLoopLimit
	if loopLimit > 0 && tune.randomizeCoreLoopLimit {
		loopLimit = int(im.rng.NextDouble()*float64(loopLimit)) + 1
	}

	rounds := 0
	for {
		if err := im.ts.checkAbort(); err != nil {
			return rounds, err
		}

		oldCodelength := im.codelength
		moved := im.tryMoveEachNodeIntoBestModule()
		rounds++
		im.ts.passes++
		im.ts.moves += moved

		if im.ts.log.Enabled(logging.DebugLevel) {
			im.ts.log.Debug("local moving pass",
				logging.Int("sub_level", im.subLevel),
				logging.Int("round", rounds),
				logging.Int("moved", moved),
				logging.Codelength(im.codelength))
		}

		if moved == 0 || rounds == loopLimit || !(im.codelength < oldCodelength-im.ts.cfg.MinimumCodelengthImprovement) {
			break
		}
	}
	return rounds, nil
}
