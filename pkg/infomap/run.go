package infomap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-infomap/pkg/logging"
	"github.com/dd0wney/cluso-infomap/pkg/parallel"
)

// Recorder receives run statistics. pkg/metrics provides a Prometheus
// implementation.
type Recorder interface {
	RecordFlow(iterations int, converged bool)
	RecordTrial(codelength float64, modules, passes, moves int, elapsed time.Duration)
	RecordRun(status string, codelength float64, modules, depth int, elapsed time.Duration)
}

// Run outcomes passed to Recorder.RecordRun.
const (
	StatusSuccess = "success"
	StatusAborted = "aborted"
	StatusError   = "error"
)

type nopRecorder struct{}

func (nopRecorder) RecordFlow(int, bool)                                {}
func (nopRecorder) RecordTrial(float64, int, int, int, time.Duration)  {}
func (nopRecorder) RecordRun(string, float64, int, int, time.Duration) {}

// Engine runs Infomap with a fixed configuration. An Engine holds no state
// between runs and may be used from several goroutines.
type Engine struct {
	cfg      Config
	log      logging.Logger
	recorder Recorder
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger of the engine. The default writes JSON to
// stderr at the level implied by Config.Verbosity.
func WithLogger(logger logging.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.log = logger
		}
	}
}

// WithRecorder sets the statistics sink of the engine.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// NewEngine validates cfg and returns an engine for it.
func NewEngine(cfg Config, opts ...EngineOption) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:      cfg,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logging.NewJSONLogger(os.Stderr, logging.LevelForVerbosity(cfg.Verbosity))
	}
	return e, nil
}

// Config returns the configuration of the engine.
func (e *Engine) Config() Config {
	return e.cfg
}

// Run clusters net with cfg using a default engine.
func Run(ctx context.Context, net *Network, cfg Config) (*Result, error) {
	e, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return e.Run(ctx, net)
}

// trialOutcome is the tree of a finished trial.
type trialOutcome struct {
	index int
	im    *infomap
	stats TrialResult
}

// Run computes the flow of net, runs the configured number of trials and
// returns the hierarchy with the shortest codelength. Trials run in
// parallel on up to Config.Workers goroutines; the result does not depend
// on the order in which they finish.
func (e *Engine) Run(ctx context.Context, net *Network) (*Result, error) {
	start := time.Now()
	runID := uuid.New().String()
	log := e.log.With(logging.Component("infomap"), logging.RunID(runID))

	res, err := e.run(ctx, net, runID, log)
	elapsed := time.Since(start)
	switch {
	case errors.Is(err, ErrAborted):
		log.Warn("run aborted", logging.Error(err), logging.Latency(elapsed))
		e.recorder.RecordRun(StatusAborted, 0, 0, 0, elapsed)
		return nil, err
	case err != nil:
		log.Error("run failed", logging.Error(err), logging.Latency(elapsed))
		e.recorder.RecordRun(StatusError, 0, 0, 0, elapsed)
		return nil, err
	}

	res.Elapsed = elapsed
	log.Info("run completed",
		logging.Codelength(res.Codelength),
		logging.Modules(res.NumModules()),
		logging.Depth(res.Depth()),
		logging.Latency(elapsed))
	e.recorder.RecordRun(StatusSuccess, res.Codelength, res.NumModules(), res.Depth(), elapsed)
	return res, nil
}

func (e *Engine) run(ctx context.Context, net *Network, runID string, log logging.Logger) (*Result, error) {
	cfg := e.cfg
	n := net.NumVertices()
	log.Info("run started",
		logging.Vertices(n),
		logging.Int("transactions", net.NumTransactions()),
		logging.String("dynamics", cfg.Dynamics.String()),
		logging.String("connection_type", cfg.ConnectionType.String()),
		logging.Int("trials", cfg.NumTrials),
		logging.Seed(cfg.Seed))

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAborted, err)
	}

	if n == 0 {
		log.Warn("network has no vertices")
		return emptyResult(runID), nil
	}

	model := newFlowModel(cfg)
	fn := calculateFlow(net, cfg, model, log)
	e.recorder.RecordFlow(fn.iterations, fn.converged)
	log.Debug("flow calculated",
		logging.Links(len(fn.links)),
		logging.Int("self_links", fn.numSelfLinks),
		logging.Int("dropped_self_links", fn.droppedSelfLinks),
		logging.Iterations(fn.iterations),
		logging.Bool("converged", fn.converged))

	if n == 1 {
		log.Info("single vertex network, skipping optimization")
		return singleVertexResult(runID, net, fn), nil
	}

	best, trials, err := e.runTrials(ctx, fn, log)
	if err != nil {
		return nil, err
	}

	best.im.sortTree(best.im.tree.root())
	res := buildResult(best.im, net, fn)
	res.RunID = runID
	res.BestTrial = best.index
	res.Trials = trials
	return res, nil
}

// runTrials executes every trial on the worker pool and returns the best
// one by (codelength, index), plus the statistics of all trials in index
// order.
func (e *Engine) runTrials(ctx context.Context, fn *flowNetwork, log logging.Logger) (*trialOutcome, []TrialResult, error) {
	cfg := e.cfg
	seeds := trialSeeds(cfg.Seed, cfg.NumTrials)
	stats := make([]TrialResult, len(seeds))

	pool, err := parallel.NewPool(ctx, cfg.Workers)
	if err != nil {
		return nil, nil, err
	}

	var (
		mu   sync.Mutex
		best *trialOutcome
	)
	for k, seed := range seeds {
		pool.Go(func(ctx context.Context) error {
			outcome, err := e.runTrial(ctx, fn, k, seed, log)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			stats[k] = outcome.stats
			if best == nil || outcome.stats.Codelength < best.stats.Codelength ||
				(outcome.stats.Codelength == best.stats.Codelength && k < best.index) {
				best = outcome
			}
			return nil
		})
	}

	if err := pool.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if !errors.Is(err, ErrAborted) {
				err = fmt.Errorf("%w: %w", ErrAborted, err)
			}
		}
		return nil, nil, err
	}
	if best == nil {
		return nil, nil, ErrNoResult
	}
	return best, stats, nil
}

// runTrial optimizes one independent hierarchy from seed.
func (e *Engine) runTrial(ctx context.Context, fn *flowNetwork, k int, seed uint32, log logging.Logger) (*trialOutcome, error) {
	cfg := e.cfg
	ts := &trialState{
		ctx:   ctx,
		cfg:   &cfg,
		tune:  cfg.tuning(),
		model: newFlowModel(cfg),
		log:   log.With(logging.Trial(k), logging.Seed(seed)),
		seed:  seed,
	}
	if err := ts.checkAbort(); err != nil {
		return nil, err
	}
	timer := logging.StartTimer(ts.log, "trial")

	im := newInfomap(ts, seed)
	im.initNetwork(fn)
	root := im.tree.root()
	im.oneLevelCodelength = im.calcCodelengthFromFlowWithinOrExit(root)
	im.tree.nodes[root].codelength = im.oneLevelCodelength

	if err := im.runPartition(); err != nil {
		if errors.Is(err, ErrAborted) {
			timer.EndWithLevel(logging.DebugLevel, logging.Error(err))
		} else {
			timer.EndError(err)
		}
		return nil, err
	}

	codelength, _, _ := treeCodelength(im, ts.model)
	stats := TrialResult{
		Index:      k,
		Seed:       seed,
		Codelength: codelength,
		NumModules: im.numTopModules(),
		Depth:      im.tree.depthBelow(root),
		Passes:     ts.passes,
		Moves:      ts.moves,
		Elapsed:    timer.Elapsed(),
	}
	e.recorder.RecordTrial(codelength, stats.NumModules, ts.passes, ts.moves, stats.Elapsed)
	timer.End(
		logging.Codelength(codelength),
		logging.Float64("estimated_codelength", im.hierarchicalCodelength),
		logging.Modules(stats.NumModules),
		logging.Depth(stats.Depth),
		logging.Int("passes", ts.passes))
	return &trialOutcome{index: k, im: im, stats: stats}, nil
}

// trialSeeds derives one seed per trial. The first trial uses the master
// seed, later ones draw from an Lcg seeded with it.
func trialSeeds(master uint32, n int) []uint32 {
	seeds := make([]uint32, n)
	if n == 0 {
		return seeds
	}
	seeds[0] = master
	rng := NewLcg(master)
	for k := 1; k < n; k++ {
		seeds[k] = uint32(rng.NextInt())
	}
	return seeds
}

// treeCodelength returns the hierarchical map equation of the tree of im,
// along with the codelength per depth and that of the root codebook. Each
// module codebook encodes the entry into its children and its own exit.
func treeCodelength(im *infomap, model flowModel) (total float64, perLevel []float64, index float64) {
	detailedBalance := model.detailedBalance()
	var walk func(t *tree, module int, exit float64, depth int)
	walk = func(t *tree, module int, exit float64, depth int) {
		ct, parent := childTree(t, module)
		sumRates, sumPlogpRates := 0.0, 0.0
		for c := ct.nodes[parent].firstChild; c != none; c = ct.nodes[c].next {
			rate := entryRate(ct, c, detailedBalance)
			if isModule(ct, c) {
				walk(ct, c, ct.nodes[c].data.exitFlow, depth+1)
			}
			sumRates += rate
			sumPlogpRates += Plogp(rate)
		}

		length := codebookLength(sumRates, sumPlogpRates, exit)
		for len(perLevel) <= depth {
			perLevel = append(perLevel, 0)
		}
		perLevel[depth] += length
		total += length
		if depth == 0 {
			index = length
		}
	}
	walk(im.tree, im.tree.root(), 0, 0)
	return total, perLevel, index
}

// childTree returns the tree and node holding the children of module, which
// live in the sub-optimizer when the module was refined.
func childTree(t *tree, module int) (*tree, int) {
	if sub := t.nodes[module].sub; sub != nil {
		return sub.tree, sub.tree.root()
	}
	return t, module
}

func isModule(t *tree, id int) bool {
	return t.nodes[id].sub != nil || !t.isLeaf(id)
}

// entryRate is the rate at which the codebook of the parent uses the
// codeword of id: the visit rate of a leaf, the entry rate of a module.
func entryRate(t *tree, id int, detailedBalance bool) float64 {
	d := t.nodes[id].data
	if !isModule(t, id) {
		return d.flow
	}
	if detailedBalance {
		return d.exitFlow
	}
	return d.enterFlow
}

func codebookLength(sumRates, sumPlogpRates, exit float64) float64 {
	return Plogp(sumRates+exit) - sumPlogpRates - Plogp(exit)
}
