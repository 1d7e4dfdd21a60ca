package pairfinder

import (
	"sort"

	"github.com/katalvlaran/lvlath/graph"
)

// clusterByCorrelation groups symbols into connected components of the
// correlation graph (edge iff correlation > threshold), using
// lvlath/graph's BFS. This is a pure pruning optimization: correlation
// is symmetric and thresholded, so a pair that ends up in different
// clusters can never have passed the >threshold test anyway. Returns
// clusters as symbol slices, each internally sorted, clusters ordered
// by their smallest member for determinism.
func clusterByCorrelation(symbols []string, corr map[string]map[string]float64, threshold float64) [][]string {
	g := graph.NewGraph(false, true)
	for _, s := range symbols {
		g.AddVertex(&graph.Vertex{ID: s})
	}
	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			s1, s2 := symbols[i], symbols[j]
			if c, ok := corr[s1][s2]; ok && c > threshold {
				// lvlath edge weights are int64; scale correlation so the
				// fractional value survives (unused by BFS, kept for
				// fidelity/debuggability).
				g.AddEdge(s1, s2, int64(c*1e6))
			}
		}
	}

	visited := make(map[string]bool, len(symbols))
	var clusters [][]string
	for _, s := range symbols {
		if visited[s] {
			continue
		}
		res, err := g.BFS(s, nil)
		if err != nil {
			visited[s] = true
			clusters = append(clusters, []string{s})
			continue
		}
		cluster := make([]string, 0, len(res.Order))
		for _, v := range res.Order {
			if !visited[v.ID] {
				visited[v.ID] = true
				cluster = append(cluster, v.ID)
			}
		}
		sort.Strings(cluster)
		clusters = append(clusters, cluster)
	}

	sort.Slice(clusters, func(i, j int) bool { return clusters[i][0] < clusters[j][0] })
	return clusters
}
