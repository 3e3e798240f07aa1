package infomap

import (
	"fmt"
	"sort"
	"strconv"
)

type transaction struct {
	source, target int
	weight         float64
	directed       bool
}

// Network is the input graph: a fixed number of vertices and the
// transactions observed between them. Transactions are aggregated into
// links according to the configured ConnectionType when a run starts, so the
// same Network can be clustered under different configurations.
type Network struct {
	numVertices  int
	names        []string
	transactions []transaction
}

// NewNetwork creates a network with numVertices vertices and no links.
func NewNetwork(numVertices int) *Network {
	if numVertices < 0 {
		numVertices = 0
	}
	return &Network{
		numVertices: numVertices,
		names:       make([]string, numVertices),
	}
}

// NumVertices returns the number of vertices.
func (n *Network) NumVertices() int {
	return n.numVertices
}

// NumTransactions returns the number of transactions added so far.
func (n *Network) NumTransactions() int {
	return len(n.transactions)
}

// SetVertexName attaches a display name used by the reports.
func (n *Network) SetVertexName(vertex int, name string) error {
	if err := n.checkVertex(vertex); err != nil {
		return err
	}
	n.names[vertex] = name
	return nil
}

// VertexName returns the name of vertex, or its index when unnamed.
func (n *Network) VertexName(vertex int) string {
	if vertex >= 0 && vertex < n.numVertices && n.names[vertex] != "" {
		return n.names[vertex]
	}
	return strconv.Itoa(vertex)
}

// AddTransaction records weight flowing from source to target. An
// undirected transaction contributes to both directions under directed
// dynamics. Zero weights are ignored.
func (n *Network) AddTransaction(source, target int, weight float64, directed bool) error {
	if err := n.checkVertex(source); err != nil {
		return err
	}
	if err := n.checkVertex(target); err != nil {
		return err
	}
	if weight < 0 {
		return fmt.Errorf("%w: %v on %d->%d", ErrNegativeWeight, weight, source, target)
	}
	if weight == 0 {
		return nil
	}
	n.transactions = append(n.transactions, transaction{
		source:   source,
		target:   target,
		weight:   weight,
		directed: directed,
	})
	return nil
}

// AddLink is AddTransaction for a directed transaction.
func (n *Network) AddLink(source, target int, weight float64) error {
	return n.AddTransaction(source, target, weight, true)
}

func (n *Network) checkVertex(v int) error {
	if v < 0 || v >= n.numVertices {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrVertexOutOfRange, v, n.numVertices)
	}
	return nil
}

type linkKey struct {
	source, target int
}

// link is an aggregated, weighted link between two vertices.
type link struct {
	source, target int
	weight         float64
}

// linkSet is the result of aggregating the transactions of a Network.
type linkSet struct {
	links            []link
	totalWeight      float64
	selfWeight       float64
	numSelfLinks     int
	droppedSelfLinks int
}

// aggregateLinks merges transactions into links. Undirected dynamics store
// each pair once as (min, max). The result is sorted by (source, target) so
// that every trial sees links in the same order.
func aggregateLinks(net *Network, cfg Config) linkSet {
	directed := cfg.Dynamics.IsDirected()
	unordered := !directed || cfg.ConnectionType == ConnectionLinks

	weights := make(map[linkKey]float64)
	seen := make(map[linkKey]bool)
	var set linkSet

	add := func(source, target int, weight float64) {
		if source == target && !cfg.IncludeSelfLinks {
			set.droppedSelfLinks++
			return
		}
		key := linkKey{source, target}
		if unordered && source > target {
			key = linkKey{target, source}
		}
		switch cfg.ConnectionType {
		case ConnectionEdges:
			// Distinct ordered pairs count once, before canonicalization
			ordered := linkKey{source, target}
			if seen[ordered] {
				return
			}
			seen[ordered] = true
			weights[key]++
		case ConnectionLinks:
			if seen[key] {
				return
			}
			seen[key] = true
			weights[key] = 1
		default:
			weights[key] += weight
		}
	}

	for _, tx := range net.transactions {
		add(tx.source, tx.target, tx.weight)
		if !tx.directed && directed && tx.source != tx.target {
			add(tx.target, tx.source, tx.weight)
		}
	}

	set.links = make([]link, 0, len(weights))
	for key, w := range weights {
		set.links = append(set.links, link{source: key.source, target: key.target, weight: w})
		set.totalWeight += w
		if key.source == key.target {
			set.selfWeight += w
			set.numSelfLinks++
		}
	}
	sort.Slice(set.links, func(i, j int) bool {
		if set.links[i].source != set.links[j].source {
			return set.links[i].source < set.links[j].source
		}
		return set.links[i].target < set.links[j].target
	})
	return set
}
