package infomap

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-infomap/pkg/logging"
)

func testEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(mustConfig(t, opts...), WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	return e
}

// triangles builds k disconnected triangles.
func triangles(k int) *Network {
	net := NewNetwork(3 * k)
	for i := 0; i < k; i++ {
		base := 3 * i
		_ = net.AddTransaction(base, base+1, 1, false)
		_ = net.AddTransaction(base+1, base+2, 1, false)
		_ = net.AddTransaction(base+2, base, 1, false)
	}
	return net
}

// nestedCliques builds groups of cliques: cliques in a group are joined by
// several links, groups by a single link.
func nestedCliques(groups, cliquesPerGroup, size int) *Network {
	n := groups * cliquesPerGroup * size
	net := NewNetwork(n)
	clique := func(g, c int) int { return (g*cliquesPerGroup + c) * size }
	for g := 0; g < groups; g++ {
		for c := 0; c < cliquesPerGroup; c++ {
			base := clique(g, c)
			for i := 0; i < size; i++ {
				for j := i + 1; j < size; j++ {
					_ = net.AddTransaction(base+i, base+j, 1, false)
				}
			}
			if c > 0 {
				prev := clique(g, c-1)
				_ = net.AddTransaction(prev, base, 1, false)
				_ = net.AddTransaction(prev+1, base+1, 1, false)
			}
		}
		if g > 0 {
			_ = net.AddTransaction(clique(g-1, 0)+2, clique(g, 0)+2, 1, false)
		}
	}
	return net
}

// TestRun_ZeroFlowVertices runs directed triangles with canonicalised links.
// The first vertex of each triangle then has no in-links and no flow, so its
// placement never changes the codelength.
func TestRun_ZeroFlowVertices(t *testing.T) {
	reference := math.NaN()
	for seed := uint32(1); seed <= 40; seed++ {
		e := testEngine(t, WithDynamics(Directed), WithConnectionType(ConnectionLinks), WithSeed(seed))
		res, err := e.Run(context.Background(), triangles(3))
		require.NoError(t, err)

		labels := res.Labels()
		for i := 0; i < 3; i++ {
			assert.Zero(t, res.Flow(3*i), "seed %d", seed)
			assert.Equal(t, labels[3*i+1], labels[3*i+2], "seed %d", seed)
		}
		if math.IsNaN(reference) {
			reference = res.Codelength
			continue
		}
		assert.InDelta(t, reference, res.Codelength, 1e-9, "seed %d", seed)
	}
}

func TestRun_ThreeTriangles(t *testing.T) {
	res, err := testEngine(t).Run(context.Background(), triangles(3))
	require.NoError(t, err)

	assert.Equal(t, 3, res.NumModules())
	assert.InDelta(t, math.Log2(3), res.Codelength, 1e-9)
	assert.InDelta(t, math.Log2(9), res.OneLevelCodelength, 1e-9)
	assert.InDelta(t, 0, res.IndexCodelength, 1e-9)

	labels := res.Labels()
	for i := 0; i < 3; i++ {
		assert.Equal(t, labels[3*i], labels[3*i+1])
		assert.Equal(t, labels[3*i], labels[3*i+2])
	}
	assert.NotEqual(t, labels[0], labels[3])
	assert.NotEqual(t, labels[3], labels[6])
	assert.NotEmpty(t, res.RunID)
}

func TestRun_EmptyNetwork(t *testing.T) {
	res, err := testEngine(t).Run(context.Background(), NewNetwork(0))
	require.NoError(t, err)

	assert.Equal(t, 0, res.NumVertices())
	assert.Equal(t, 0, res.NumModules())
	assert.Equal(t, 0.0, res.Codelength)
	assert.Equal(t, -1, res.BestTrial)
}

func TestRun_SingleVertex(t *testing.T) {
	res, err := testEngine(t, WithTrials(5)).Run(context.Background(), NewNetwork(1))
	require.NoError(t, err)

	assert.Equal(t, []int{0}, res.Labels())
	assert.Equal(t, 1, res.NumModules())
	assert.Equal(t, 1.0, res.Flow(0))
	assert.Equal(t, 0.0, res.Codelength)
	assert.Equal(t, -1, res.BestTrial)
	assert.Nil(t, res.Trials)
}

func TestRun_IsolatedVertices(t *testing.T) {
	net := triangles(2)
	isolated := NewNetwork(8)
	for _, tx := range net.transactions {
		require.NoError(t, isolated.AddTransaction(tx.source, tx.target, tx.weight, tx.directed))
	}

	res, err := testEngine(t).Run(context.Background(), isolated)
	require.NoError(t, err)
	require.Len(t, res.Labels(), 8)
	assert.NotEqual(t, res.Label(6), res.Label(7), "isolated vertices stay apart")
}

func TestRun_Deterministic(t *testing.T) {
	net := randomNetwork(21, 60, 200, false)
	first, err := testEngine(t, WithSeed(99), WithTrials(3)).Run(context.Background(), net)
	require.NoError(t, err)
	second, err := testEngine(t, WithSeed(99), WithTrials(3)).Run(context.Background(), net)
	require.NoError(t, err)

	assert.Equal(t, first.Labels(), second.Labels())
	assert.Equal(t, first.Codelength, second.Codelength)
	assert.Equal(t, first.BestTrial, second.BestTrial)
}

func TestRun_IndependentOfWorkers(t *testing.T) {
	net := randomNetwork(5, 50, 150, false)
	serial, err := testEngine(t, WithTrials(6), WithWorkers(1)).Run(context.Background(), net)
	require.NoError(t, err)
	concurrent, err := testEngine(t, WithTrials(6), WithWorkers(4)).Run(context.Background(), net)
	require.NoError(t, err)

	assert.Equal(t, serial.Labels(), concurrent.Labels())
	assert.Equal(t, serial.Codelength, concurrent.Codelength)
	assert.Equal(t, serial.BestTrial, concurrent.BestTrial)
}

func TestRun_BestTrialWins(t *testing.T) {
	net := randomNetwork(8, 60, 180, false)
	res, err := testEngine(t, WithTrials(5), WithSeed(42)).Run(context.Background(), net)
	require.NoError(t, err)
	require.Len(t, res.Trials, 5)

	assert.Equal(t, uint32(42), res.Trials[0].Seed)
	best := 0
	for k, trial := range res.Trials {
		assert.Equal(t, k, trial.Index)
		assert.GreaterOrEqual(t, trial.Codelength, res.Codelength-1e-12)
		if trial.Codelength < res.Trials[best].Codelength {
			best = k
		}
	}
	assert.Equal(t, best, res.BestTrial, "ties resolve to the first trial")
	assert.InDelta(t, res.Trials[best].Codelength, res.Codelength, 1e-9)

	single, err := testEngine(t, WithTrials(1), WithSeed(42)).Run(context.Background(), net)
	require.NoError(t, err)
	assert.LessOrEqual(t, res.Codelength, single.Codelength+1e-12)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testEngine(t, WithTrials(4)).Run(ctx, randomNetwork(1, 30, 60, false))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAborted))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRun_DeadlineExceeded(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := testEngine(t).Run(ctx, randomNetwork(1, 30, 60, false))
	assert.True(t, errors.Is(err, ErrAborted))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRun_AggregationEquivalence(t *testing.T) {
	split := NewNetwork(6)
	merged := NewNetwork(6)
	for _, tx := range triangles(2).transactions {
		require.NoError(t, split.AddTransaction(tx.source, tx.target, 1, false))
		require.NoError(t, split.AddTransaction(tx.source, tx.target, 2, false))
		require.NoError(t, merged.AddTransaction(tx.source, tx.target, 3, false))
	}
	require.NoError(t, split.AddTransaction(0, 3, 1, false))
	require.NoError(t, merged.AddTransaction(0, 3, 1, false))

	a, err := testEngine(t).Run(context.Background(), split)
	require.NoError(t, err)
	b, err := testEngine(t).Run(context.Background(), merged)
	require.NoError(t, err)

	assert.Equal(t, a.Labels(), b.Labels())
	assert.InDelta(t, a.Codelength, b.Codelength, 1e-12)
}

func TestRun_Variants(t *testing.T) {
	net := nestedCliques(2, 3, 4)
	variants := append([]struct {
		name string
		opts []Option
	}{
		{"two-level", []Option{WithTwoLevel(true)}},
		{"fast hierarchical 1", []Option{WithFastHierarchicalSolution(1)}},
		{"fast hierarchical 2", []Option{WithFastHierarchicalSolution(2)}},
		{"fast hierarchical 3", []Option{WithFastHierarchicalSolution(3)}},
		{"optimization level 0", []Option{WithOptimizationLevel(0)}},
		{"optimization level 2", []Option{WithOptimizationLevel(2)}},
		{"optimization level 3", []Option{WithOptimizationLevel(3)}},
		{"edges", []Option{WithConnectionType(ConnectionEdges)}},
		{"links", []Option{WithConnectionType(ConnectionLinks)}},
	}, dynamicsVariants...)

	for _, v := range variants {
		t.Run(v.name, func(t *testing.T) {
			res, err := testEngine(t, append([]Option{WithTrials(2)}, v.opts...)...).Run(context.Background(), net)
			require.NoError(t, err)
			assertValidResult(t, res, net.NumVertices())
		})
	}
}

func TestRun_Hierarchical(t *testing.T) {
	net := nestedCliques(3, 3, 5)
	res, err := testEngine(t, WithTrials(3)).Run(context.Background(), net)
	require.NoError(t, err)
	assertValidResult(t, res, net.NumVertices())

	assert.GreaterOrEqual(t, res.Depth(), 2)
	assert.Less(t, res.Codelength, res.OneLevelCodelength)
	assert.Greater(t, res.RelativeCodelengthSavings(), 0.0)

	// Cliques are never split
	labels := res.LabelsAtDepth(res.Depth())
	for c := 0; c < 9; c++ {
		for i := 1; i < 5; i++ {
			assert.Equal(t, labels[c*5], labels[c*5+i])
		}
	}
}

// assertValidResult checks the structural invariants every result holds.
func assertValidResult(t *testing.T, res *Result, n int) {
	t.Helper()
	require.Equal(t, n, res.NumVertices())

	flow := 0.0
	for v := 0; v < n; v++ {
		flow += res.Flow(v)
		leaf := res.Tree[res.LeafNode(v)]
		assert.Equal(t, v, leaf.Vertex)
		assert.Equal(t, len(res.Path(v)), leaf.Depth)
	}
	assert.InDelta(t, 1.0, flow, 1e-9)

	members := 0
	for _, m := range res.Modules() {
		members += len(m.Vertices)
	}
	assert.Equal(t, n, members)

	levels := 0.0
	for _, l := range res.PerLevel {
		levels += l
	}
	assert.InDelta(t, res.Codelength, levels, 1e-9)
	assert.InDelta(t, res.Codelength, res.IndexCodelength+res.ModuleCodelength, 1e-9)
	assert.Equal(t, res.Labels(), res.LabelsAtDepth(1))

	for i, node := range res.Tree[1:] {
		parent := res.Tree[node.Parent]
		assert.Equal(t, parent.Depth+1, node.Depth, "node %d", i+1)
	}
}

type countingRecorder struct {
	mu       sync.Mutex
	flows    int
	trials   int
	statuses []string
}

func (r *countingRecorder) RecordFlow(int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flows++
}

func (r *countingRecorder) RecordTrial(float64, int, int, int, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trials++
}

func (r *countingRecorder) RecordRun(status string, _ float64, _, _ int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func TestRun_Recorder(t *testing.T) {
	rec := &countingRecorder{}
	e, err := NewEngine(mustConfig(t, WithTrials(3)), WithLogger(logging.NewNopLogger()), WithRecorder(rec))
	require.NoError(t, err)

	_, err = e.Run(context.Background(), triangles(2))
	require.NoError(t, err)
	assert.Equal(t, 1, rec.flows)
	assert.Equal(t, 3, rec.trials)
	assert.Equal(t, []string{StatusSuccess}, rec.statuses)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Run(ctx, triangles(2))
	require.Error(t, err)
	assert.Equal(t, []string{StatusSuccess, StatusAborted}, rec.statuses)
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumTrials = 0
	_, err := NewEngine(cfg)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = Run(context.Background(), triangles(1), cfg)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestTrialSeeds(t *testing.T) {
	seeds := trialSeeds(1984, 4)
	rng := NewLcg(1984)
	assert.Equal(t, uint32(1984), seeds[0])
	for k := 1; k < 4; k++ {
		assert.Equal(t, uint32(rng.NextInt()), seeds[k])
	}
	assert.Empty(t, trialSeeds(1, 0))
}
