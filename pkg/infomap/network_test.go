package infomap

import (
	"errors"
	"testing"
)

func TestNetwork_AddTransactionErrors(t *testing.T) {
	net := NewNetwork(3)

	if err := net.AddTransaction(0, 3, 1, false); !errors.Is(err, ErrVertexOutOfRange) {
		t.Errorf("Expected ErrVertexOutOfRange for target 3, got %v", err)
	}
	if err := net.AddTransaction(-1, 0, 1, false); !errors.Is(err, ErrVertexOutOfRange) {
		t.Errorf("Expected ErrVertexOutOfRange for source -1, got %v", err)
	}
	if err := net.AddTransaction(0, 1, -0.5, false); !errors.Is(err, ErrNegativeWeight) {
		t.Errorf("Expected ErrNegativeWeight, got %v", err)
	}
	if err := net.AddTransaction(0, 1, 0, false); err != nil {
		t.Errorf("Expected zero weight to be accepted, got %v", err)
	}
	if net.NumTransactions() != 0 {
		t.Errorf("Expected no transactions, got %d", net.NumTransactions())
	}
}

func TestNetwork_VertexNames(t *testing.T) {
	net := NewNetwork(2)
	if err := net.SetVertexName(1, "beta"); err != nil {
		t.Fatalf("SetVertexName failed: %v", err)
	}
	if got := net.VertexName(0); got != "0" {
		t.Errorf("Expected unnamed vertex to use its index, got %q", got)
	}
	if got := net.VertexName(1); got != "beta" {
		t.Errorf("Expected beta, got %q", got)
	}
	if err := net.SetVertexName(2, "gamma"); !errors.Is(err, ErrVertexOutOfRange) {
		t.Errorf("Expected ErrVertexOutOfRange, got %v", err)
	}
}

func mustConfig(t *testing.T, opts ...Option) Config {
	t.Helper()
	cfg, err := NewConfig(opts...)
	if err != nil {
		t.Fatalf("NewConfig failed: %v", err)
	}
	return cfg
}

func linkWeights(set linkSet) map[linkKey]float64 {
	weights := make(map[linkKey]float64, len(set.links))
	for _, l := range set.links {
		weights[linkKey{l.source, l.target}] = l.weight
	}
	return weights
}

// TestAggregateLinks tests how parallel transactions become link weights
// under each connection type
func TestAggregateLinks(t *testing.T) {
	build := func() *Network {
		net := NewNetwork(3)
		_ = net.AddTransaction(0, 1, 2, true)
		_ = net.AddTransaction(0, 1, 3, true)
		_ = net.AddTransaction(1, 0, 4, true)
		_ = net.AddTransaction(2, 1, 1, true)
		return net
	}

	tests := []struct {
		name     string
		opts     []Option
		expected map[linkKey]float64
	}{
		{
			name:     "transactions undirected",
			opts:     []Option{WithConnectionType(ConnectionTransactions)},
			expected: map[linkKey]float64{{0, 1}: 9, {1, 2}: 1},
		},
		{
			name:     "transactions directed",
			opts:     []Option{WithConnectionType(ConnectionTransactions), WithDynamics(Directed)},
			expected: map[linkKey]float64{{0, 1}: 5, {1, 0}: 4, {2, 1}: 1},
		},
		{
			name:     "edges undirected",
			opts:     []Option{WithConnectionType(ConnectionEdges)},
			expected: map[linkKey]float64{{0, 1}: 2, {1, 2}: 1},
		},
		{
			name:     "edges directed",
			opts:     []Option{WithConnectionType(ConnectionEdges), WithDynamics(Directed)},
			expected: map[linkKey]float64{{0, 1}: 1, {1, 0}: 1, {2, 1}: 1},
		},
		{
			name:     "links",
			opts:     []Option{WithConnectionType(ConnectionLinks), WithDynamics(Directed)},
			expected: map[linkKey]float64{{0, 1}: 1, {1, 2}: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := aggregateLinks(build(), mustConfig(t, tt.opts...))
			got := linkWeights(set)
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %d links, got %d: %v", len(tt.expected), len(got), got)
			}
			total := 0.0
			for key, w := range tt.expected {
				if got[key] != w {
					t.Errorf("Link %v: expected weight %v, got %v", key, w, got[key])
				}
				total += w
			}
			if set.totalWeight != total {
				t.Errorf("Expected total weight %v, got %v", total, set.totalWeight)
			}
		})
	}
}

func TestAggregateLinks_UndirectedTransactionUnderDirectedDynamics(t *testing.T) {
	net := NewNetwork(2)
	_ = net.AddTransaction(0, 1, 2, false)

	set := aggregateLinks(net, mustConfig(t, WithDynamics(Directed)))
	got := linkWeights(set)
	if got[linkKey{0, 1}] != 2 || got[linkKey{1, 0}] != 2 {
		t.Errorf("Expected both directions with weight 2, got %v", got)
	}
}

func TestAggregateLinks_SelfLinks(t *testing.T) {
	build := func() *Network {
		net := NewNetwork(2)
		_ = net.AddTransaction(0, 0, 1, false)
		_ = net.AddTransaction(0, 1, 1, false)
		return net
	}

	set := aggregateLinks(build(), mustConfig(t))
	if len(set.links) != 1 || set.droppedSelfLinks != 1 {
		t.Errorf("Expected self-link to be dropped, got %d links and %d dropped", len(set.links), set.droppedSelfLinks)
	}

	set = aggregateLinks(build(), mustConfig(t, WithSelfLinks(true)))
	if len(set.links) != 2 || set.numSelfLinks != 1 || set.selfWeight != 1 {
		t.Errorf("Expected self-link to be kept, got %+v", set)
	}
}

func TestAggregateLinks_Sorted(t *testing.T) {
	net := NewNetwork(4)
	_ = net.AddTransaction(3, 2, 1, true)
	_ = net.AddTransaction(1, 0, 1, true)
	_ = net.AddTransaction(2, 0, 1, true)
	_ = net.AddTransaction(0, 3, 1, true)

	set := aggregateLinks(net, mustConfig(t, WithDynamics(Directed)))
	for i := 1; i < len(set.links); i++ {
		prev, cur := set.links[i-1], set.links[i]
		if prev.source > cur.source || (prev.source == cur.source && prev.target >= cur.target) {
			t.Fatalf("Links not sorted at %d: %v then %v", i, prev, cur)
		}
	}
}
