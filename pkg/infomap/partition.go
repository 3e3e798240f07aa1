package infomap

import (
	"github.com/dd0wney/cluso-infomap/pkg/logging"
)

// partition finds a two-level partition of the leaf network below the root.
// A positive recursiveCount also partitions each module into sub-modules,
// which only refines the top modules.
func (im *infomap) partition(recursiveCount int, fast bool) error {
	t := im.tree
	if len(t.leaves) == 0 || t.nodes[t.leaves[0]].parent != t.root() {
		im.ts.log.Warn("network already partitioned", logging.Int("sub_level", im.subLevel))
		return nil
	}

	im.setActiveNetworkFromChildrenOfRoot()
	im.initConstantInfomapTerms()
	im.initModuleOptimization()
	initialCodelength := im.codelength

	if err := im.mergeAndConsolidateRepeatedly(); err != nil {
		return err
	}

	cfg := im.ts.cfg
	tune := im.ts.tune
	if !fast && tune.tuneIterationLimit != 1 && im.numTopModules() != im.numLeafNodes() {
		tuneCount := 1
		coarseTuneLevel := tune.coarseTuneLevel - 1
		doFineTune := true
		oldCodelength := im.codelength

		for im.numTopModules() > 1 {
			if err := im.ts.checkAbort(); err != nil {
				return err
			}

			if doFineTune {
				if err := im.fineTune(); err != nil {
					return err
				}
			} else {
				level := tune.coarseTuneLevel - 1
				if tune.alternateCoarseTuneLevel {
					coarseTuneLevel++
					level = coarseTuneLevel % tune.coarseTuneLevel
				}
				if err := im.coarseTune(level); err != nil {
					return err
				}
			}

			if im.codelength > oldCodelength-initialCodelength*cfg.MinimumRelativeTuneIterationImprovement ||
				im.codelength > oldCodelength-cfg.MinimumCodelengthImprovement {
				break
			}
			oldCodelength = im.codelength
			tuneCount++
			if tuneCount == tune.tuneIterationLimit {
				break
			}
			doFineTune = !doFineTune
		}
	}

	if !fast && recursiveCount > 0 && im.numTopModules() != 1 && im.numTopModules() != im.numLeafNodes() {
		if err := im.partitionEachModule(recursiveCount-1, false); err != nil {
			return err
		}

		// Keep the sub-modules as the new top modules
		im.setActiveNetworkFromLeafs()
		for i, id := range t.leaves {
			im.moveTo[i] = t.nodes[id].index
		}
		im.initModuleOptimization()
		im.moveNodesToPredefinedModules()
		im.consolidateModules(true, false)
		im.packTopModuleIndices()
	}
	return nil
}

// mergeAndConsolidateRepeatedly runs local moving on the active network,
// then repeatedly on the resulting modules as long as that shortens the
// codelength. The result is always a two-level tree below the root.
func (im *infomap) mergeAndConsolidateRepeatedly() error {
	im.iterationCount++
	if _, err := im.optimizeModules(); err != nil {
		return err
	}
	im.consolidateModules(true, false)

	numLevels := 1
	for im.numTopModules() > 1 && numLevels != im.ts.tune.levelAggregationLimit {
		if err := im.ts.checkAbort(); err != nil {
			return err
		}

		consolidatedCodelength := im.codelength
		consolidatedIndexCodelength := im.indexCodelength
		consolidatedModuleCodelength := im.moduleCodelength

		im.setActiveNetworkFromChildrenOfRoot()
		im.initModuleOptimization()
		if _, err := im.optimizeModules(); err != nil {
			return err
		}

		if !(im.codelength < consolidatedCodelength-im.ts.cfg.MinimumCodelengthImprovement) {
			im.codelength = consolidatedCodelength
			im.indexCodelength = consolidatedIndexCodelength
			im.moduleCodelength = consolidatedModuleCodelength
			break
		}

		im.consolidateModules(true, false)
		numLevels++
	}

	im.packTopModuleIndices()

	if im.ts.log.Enabled(logging.DebugLevel) {
		im.ts.log.Debug("modules merged",
			logging.Int("sub_level", im.subLevel),
			logging.Int("aggregation_levels", numLevels),
			logging.Modules(im.numTopModules()),
			logging.Codelength(im.codelength))
	}
	return nil
}

// fineTune re-runs local moving on the leaves, starting from the current
// modules.
func (im *infomap) fineTune() error {
	t := im.tree
	im.isCoarseTune = false
	im.setActiveNetworkFromLeafs()
	for i, id := range t.leaves {
		im.moveTo[i] = t.nodes[t.nodes[id].parent].index
	}
	im.initModuleOptimization()
	im.moveNodesToPredefinedModules()
	return im.mergeAndConsolidateRepeatedly()
}

// coarseTune partitions each module into sub-modules and lets the
// sub-modules move between modules.
func (im *infomap) coarseTune(recursiveCount int) error {
	if im.numTopModules() == 1 {
		return nil
	}
	t := im.tree
	im.isCoarseTune = true

	if err := im.partitionEachModule(recursiveCount, im.ts.tune.fastCoarseTunePartition); err != nil {
		return err
	}

	// Leaf index now holds the sub-module
	im.setActiveNetworkFromLeafs()
	for i, id := range t.leaves {
		im.moveTo[i] = t.nodes[id].index
	}
	im.initModuleOptimization()
	im.moveNodesToPredefinedModules()
	im.consolidateModules(true, true)

	// Sub-module index now holds the former module
	im.setActiveNetworkFromChildrenOfRoot()
	for i, id := range im.activeNetwork {
		im.moveTo[i] = t.nodes[id].index
	}
	im.initModuleOptimization()
	im.moveNodesToPredefinedModules()
	return im.mergeAndConsolidateRepeatedly()
}

// partitionEachModule partitions the children of every top module on its
// own and stores the resulting sub-module, numbered across all modules, in
// the index of each leaf.
func (im *infomap) partitionEachModule(recursiveCount int, fast bool) error {
	t := im.tree
	offset := 0
	for _, module := range t.children(t.root()) {
		if err := im.ts.checkAbort(); err != nil {
			return err
		}

		if t.nodes[module].childDegree == 1 {
			for c := t.nodes[module].firstChild; c != none; c = t.nodes[c].next {
				t.nodes[c].index = offset
			}
			offset++
			continue
		}

		sub := im.newSubInfomap(true)
		sub.initSubNetwork(im, module)
		if err := sub.partition(recursiveCount, fast); err != nil {
			return err
		}

		c := t.nodes[module].firstChild
		for _, leaf := range sub.tree.leaves {
			t.nodes[c].index = sub.tree.nodes[sub.tree.nodes[leaf].parent].index + offset
			c = t.nodes[c].next
		}
		offset += sub.numTopModules()
	}
	return nil
}
