package infomap

import (
	"sort"
	"strconv"

	"gonum.org/v1/gonum/graph"
)

// FromGonum converts a gonum graph into a Network. Node IDs are mapped to
// vertices in ascending order and the returned slice holds the ID of each
// vertex; vertex names are set to the IDs. Directed graphs yield directed
// transactions. Weighted graphs keep their edge weights, other graphs get
// weight 1 per edge.
func FromGonum(g graph.Graph) (*Network, []int64, error) {
	nodes := graph.NodesOf(g.Nodes())
	ids := make([]int64, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID()
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	vertex := make(map[int64]int, len(ids))
	net := NewNetwork(len(ids))
	for v, id := range ids {
		vertex[id] = v
		if err := net.SetVertexName(v, strconv.FormatInt(id, 10)); err != nil {
			return nil, nil, err
		}
	}

	_, directed := g.(graph.Directed)
	weighted, isWeighted := g.(graph.Weighted)

	for _, uid := range ids {
		to := g.From(uid)
		for to.Next() {
			vid := to.Node().ID()
			// Undirected graphs report every edge from both ends
			if !directed && vid < uid {
				continue
			}
			weight := 1.0
			if isWeighted {
				weight = weighted.WeightedEdge(uid, vid).Weight()
			}
			if err := net.AddTransaction(vertex[uid], vertex[vid], weight, directed); err != nil {
				return nil, nil, err
			}
		}
	}
	return net, ids, nil
}
