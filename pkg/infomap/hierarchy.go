package infomap

import (
	"github.com/dd0wney/cluso-infomap/pkg/logging"
)

// moduleRef addresses a module in the tree of a specific optimizer.
type moduleRef struct {
	im *infomap
	id int
}

// partitionQueue holds the modules of one hierarchy level waiting to be
// partitioned into sub-modules.
type partitionQueue struct {
	level                int
	numNonTrivialModules int
	flow                 float64
	nonTrivialFlow       float64
	skip                 bool
	indexCodelength      float64
	leafCodelength       float64
	moduleCodelength     float64
	modules              []moduleRef
}

// runPartition builds the module hierarchy of the trial.
func (im *infomap) runPartition() error {
	cfg := im.ts.cfg
	im.hierarchicalCodelength = im.oneLevelCodelength
	im.indexCodelength = im.oneLevelCodelength
	im.moduleCodelength = 0

	if cfg.TwoLevel {
		if err := im.partition(0, false); err != nil {
			return err
		}
		im.hierarchicalCodelength = im.codelength
		t := im.tree
		for c := t.nodes[t.root()].firstChild; c != none; c = t.nodes[c].next {
			t.nodes[c].codelength = im.calcCodelengthFromFlowWithinOrExit(c)
		}
		return nil
	}

	queue := &partitionQueue{}
	if cfg.FastHierarchicalSolution != 0 {
		numLevelsCreated, err := im.findSuperModulesIterativelyFast(queue)
		if err != nil {
			return err
		}
		if cfg.FastHierarchicalSolution == 1 {
			im.deleteSubLevels()
			im.queueTopModules(queue)
		} else {
			im.resetModuleFlowFromLeafNodes()
			queue.level = numLevelsCreated
		}
	} else {
		if err := im.partitionAndQueueNextLevel(queue, true); err != nil {
			return err
		}
	}

	if cfg.FastHierarchicalSolution > 2 || len(queue.modules) == 0 {
		return nil
	}

	sumConsolidatedCodelength := im.hierarchicalCodelength - queue.moduleCodelength
	for len(queue.modules) > 0 {
		if err := im.ts.checkAbort(); err != nil {
			return err
		}

		next := &partitionQueue{}
		if err := im.processPartitionQueue(queue, next, true); err != nil {
			return err
		}
		leftToImprove := queue.moduleCodelength
		sumConsolidatedCodelength += queue.indexCodelength + queue.leafCodelength
		im.hierarchicalCodelength = sumConsolidatedCodelength + leftToImprove

		im.ts.log.Debug("sub-structure level partitioned",
			logging.Depth(queue.level),
			logging.Modules(len(queue.modules)),
			logging.Int("non_trivial", queue.numNonTrivialModules),
			logging.Codelength(im.hierarchicalCodelength))

		queue = next
	}
	return nil
}

// partitionAndQueueNextLevel partitions the leaf network into modules,
// tries to index them with super-modules and queues the resulting top
// modules for further partitioning.
func (im *infomap) partitionAndQueueNextLevel(queue *partitionQueue, tryIndexing bool) error {
	t := im.tree
	im.codelength = t.nodes[t.root()].codelength
	im.hierarchicalCodelength = im.codelength
	if im.numLeafNodes() == 1 {
		return nil
	}

	if err := im.partition(0, false); err != nil {
		return err
	}
	im.hierarchicalCodelength = im.codelength

	if im.numTopModules() == 1 {
		t.nodes[t.nodes[t.root()].firstChild].codelength = im.codelength
		return nil
	}
	if tryIndexing {
		if err := im.tryIndexingIteratively(); err != nil {
			return err
		}
	}
	im.queueTopModules(queue)
	return nil
}

func (im *infomap) queueTopModules(queue *partitionQueue) {
	t := im.tree
	queue.numNonTrivialModules = im.numNonTrivialTopModules
	queue.flow = t.nodes[t.root()].data.flow
	queue.indexCodelength = im.indexCodelength
	queue.moduleCodelength = im.moduleCodelength
	queue.nonTrivialFlow = 0
	queue.modules = queue.modules[:0]
	for c := t.nodes[t.root()].firstChild; c != none; c = t.nodes[c].next {
		queue.modules = append(queue.modules, moduleRef{im: im, id: c})
		if t.nodes[c].childDegree > 1 {
			queue.nonTrivialFlow += t.nodes[c].data.flow
		}
	}
}

// tryIndexingIteratively coarsens the top modules into super-modules for as
// long as a shorter index codebook is found. Unless the fast hierarchical
// mode is on, the super-modules replace the current modules.
func (im *infomap) tryIndexingIteratively() error {
	t := im.tree
	cfg := im.ts.cfg
	minHierarchicalCodelength := im.hierarchicalCodelength
	replaceExisting := cfg.FastHierarchicalSolution == 0

	for {
		if err := im.ts.checkAbort(); err != nil {
			return err
		}

		super := im.newSubInfomap(true)
		super.subLevel = im.subLevel
		super.initSuperNetwork(im)
		if err := super.partition(0, false); err != nil {
			return err
		}

		if super.numNonTrivialTopModules == 1 || super.numTopModules() == im.numTopModules() {
			break
		}
		if super.codelength > im.indexCodelength-cfg.MinimumCodelengthImprovement {
			break
		}
		minHierarchicalCodelength += super.codelength - im.indexCodelength

		// Move the leaves into the super-modules of their modules
		im.setActiveNetworkFromLeafs()
		im.initModuleOptimization()
		k := 0
		for module := t.nodes[t.root()].firstChild; module != none; module = t.nodes[module].next {
			superLeaf := super.tree.leaves[k]
			superModule := super.tree.nodes[super.tree.nodes[superLeaf].parent].index
			for c := t.nodes[module].firstChild; c != none; c = t.nodes[c].next {
				im.moveTo[t.nodes[c].index] = superModule
			}
			k++
		}
		im.moveNodesToPredefinedModules()
		im.consolidateModules(replaceExisting, false)
		im.packTopModuleIndices()

		if im.numNonTrivialTopModules <= 1 || im.numTopModules() == im.numLeafNodes() {
			break
		}
	}

	if replaceExisting {
		im.hierarchicalCodelength = im.codelength
	} else {
		im.hierarchicalCodelength = minHierarchicalCodelength
	}
	return nil
}

// findSuperModulesIterativelyFast builds levels bottom-up, optimizing each
// level once on the modules of the level below. At least one module level
// is always created. It returns the number of levels created.
func (im *infomap) findSuperModulesIterativelyFast(queue *partitionQueue) (int, error) {
	t := im.tree
	cfg := im.ts.cfg
	numLevelsCreated := 0
	isLeafLevel := true

	for {
		if err := im.ts.checkAbort(); err != nil {
			return numLevelsCreated, err
		}

		oldIndexLength := im.indexCodelength
		workingHierarchicalCodelength := im.hierarchicalCodelength

		if isLeafLevel {
			im.setActiveNetworkFromLeafs()
		} else {
			im.setActiveNetworkFromChildrenOfRoot()
			im.transformNodeFlowToEnterFlow(t.root())
		}
		im.initConstantInfomapTerms()
		im.initModuleOptimization()
		if _, err := im.optimizeModules(); err != nil {
			return numLevelsCreated, err
		}

		accept := im.codelength < oldIndexLength-cfg.MinimumCodelengthImprovement
		if numLevelsCreated == 0 {
			accept = true
		}
		workingHierarchicalCodelength += im.codelength - oldIndexLength
		if !accept {
			im.indexCodelength = oldIndexLength
			break
		}

		im.consolidateModules(false, false)
		im.packTopModuleIndices()
		im.hierarchicalCodelength = workingHierarchicalCodelength
		for c := t.nodes[t.root()].firstChild; c != none; c = t.nodes[c].next {
			t.nodes[c].codelength = im.calcCodelengthFromFlowWithinOrExit(c)
		}

		if isLeafLevel && cfg.FastHierarchicalSolution > 1 {
			im.queueTopModules(queue)
		}

		im.ts.log.Debug("fast level created",
			logging.Depth(numLevelsCreated),
			logging.Modules(im.numTopModules()),
			logging.Codelength(im.hierarchicalCodelength))

		isLeafLevel = false
		numLevelsCreated++
		if im.numNonTrivialTopModules <= 1 || im.numTopModules() == 1 {
			break
		}
	}

	if cfg.FastHierarchicalSolution > 2 {
		im.resetModuleFlowFromLeafNodes()
	}
	return numLevelsCreated, nil
}

// processPartitionQueue partitions every queued module with a sub-optimizer
// and keeps the result if it shortens the module's codelength. The top
// modules of accepted sub-structures are queued in next.
func (im *infomap) processPartitionQueue(queue, next *partitionQueue, tryIndexing bool) error {
	cfg := im.ts.cfg
	n := len(queue.modules)
	indexCodelengths := make([]float64, n)
	moduleCodelengths := make([]float64, n)
	leafCodelengths := make([]float64, n)
	subQueues := make([]partitionQueue, n)

	for i, ref := range queue.modules {
		if err := im.ts.checkAbort(); err != nil {
			return err
		}

		rt := ref.im.tree
		rt.nodes[ref.id].sub = nil
		moduleCodelength := ref.im.calcCodelengthFromFlowWithinOrExit(ref.id)
		rt.nodes[ref.id].codelength = moduleCodelength

		if rt.nodes[ref.id].childDegree <= 2 {
			leafCodelengths[i] = moduleCodelength
			subQueues[i].skip = true
			continue
		}

		subQueues[i].level = queue.level + 1
		sub := ref.im.newSubInfomap(false)
		sub.initSubNetwork(ref.im, ref.id)
		if err := sub.partitionAndQueueNextLevel(&subQueues[i], tryIndexing); err != nil {
			return err
		}

		nonTrivial := sub.numTopModules() > 1 && sub.numTopModules() < sub.numLeafNodes()
		improvement := nonTrivial && sub.hierarchicalCodelength < moduleCodelength-cfg.MinimumCodelengthImprovement
		if improvement {
			indexCodelengths[i] = sub.indexCodelength
			moduleCodelengths[i] = sub.moduleCodelength
			rt.nodes[ref.id].sub = sub
		} else {
			leafCodelengths[i] = moduleCodelength
			rt.nodes[ref.id].exploredWithoutImprovement = true
			subQueues[i].skip = true
		}
	}

	queue.indexCodelength = 0
	queue.moduleCodelength = 0
	queue.leafCodelength = 0
	next.level = queue.level + 1
	for i := range subQueues {
		queue.indexCodelength += indexCodelengths[i]
		queue.moduleCodelength += moduleCodelengths[i]
		queue.leafCodelength += leafCodelengths[i]
		if subQueues[i].skip {
			continue
		}
		next.flow += subQueues[i].flow
		next.nonTrivialFlow += subQueues[i].nonTrivialFlow
		next.numNonTrivialModules += subQueues[i].numNonTrivialModules
		next.modules = append(next.modules, subQueues[i].modules...)
	}
	return nil
}

// deleteSubLevels removes every module level below the top modules.
func (im *infomap) deleteSubLevels() {
	t := im.tree
	if im.numTopModules() == im.numLeafNodes() {
		return
	}
	for {
		deeper := false
		for module := t.nodes[t.root()].firstChild; module != none; module = t.nodes[module].next {
			for c := t.nodes[module].firstChild; c != none; c = t.nodes[c].next {
				if !t.isLeaf(c) {
					deeper = true
					break
				}
			}
		}
		if !deeper {
			break
		}
		for module := t.nodes[t.root()].firstChild; module != none; module = t.nodes[module].next {
			t.replaceChildrenWithGrandChildren(module)
		}
	}
	im.resetModuleFlowFromLeafNodes()
}

// resetModuleFlowFromLeafNodes recomputes the flow of every module as the
// sum of its leaves.
func (im *infomap) resetModuleFlowFromLeafNodes() {
	t := im.tree
	for i := range t.nodes {
		if !t.nodes[i].deleted && !t.isLeaf(i) {
			t.nodes[i].data.flow = 0
		}
	}
	for _, leaf := range t.leaves {
		f := t.nodes[leaf].data.flow
		for p := t.nodes[leaf].parent; p != none; p = t.nodes[p].parent {
			t.nodes[p].data.flow += f
		}
	}
}
