// Package graphmetrics computes auxiliary centrality diagnostics over the
// full relation adjacency. The signals are quality indicators reported
// alongside graph retrieval results; they are never used for path ranking.
package graphmetrics

import (
	"github.com/nlcraft/kgrag/pkg/types"
)

const (
	// pageRankIterations is the fixed number of power-iteration sweeps.
	pageRankIterations = 10
	// pageRankDamping is the damping factor of the power iteration.
	pageRankDamping = 0.85
)

// adjacency builds directed out-neighbor lists and the node universe from
// the relation set.
func adjacency(relations []*types.Relation) (map[string][]string, []string) {
	out := make(map[string][]string)
	seen := make(map[string]bool)
	var nodes []string

	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			nodes = append(nodes, id)
		}
	}

	for _, r := range relations {
		add(r.SourceEntityID)
		add(r.TargetEntityID)
		out[r.SourceEntityID] = append(out[r.SourceEntityID], r.TargetEntityID)
	}
	return out, nodes
}

// DegreeCentrality computes normalized degree centrality for every node in the
// relation set: degree divided by (n-1), counting both edge directions.
func DegreeCentrality(relations []*types.Relation) map[string]float64 {
	degrees := make(map[string]int)
	for _, r := range relations {
		degrees[r.SourceEntityID]++
		degrees[r.TargetEntityID]++
	}

	n := len(degrees)
	centrality := make(map[string]float64, n)
	if n <= 1 {
		for id := range degrees {
			centrality[id] = 0
		}
		return centrality
	}

	for id, degree := range degrees {
		centrality[id] = float64(degree) / float64(n-1)
	}
	return centrality
}

// PageRank computes an approximate PageRank over the relation adjacency via a
// fixed number of power-iteration sweeps, normalized to sum to 1. Dangling
// nodes redistribute their mass uniformly.
func PageRank(relations []*types.Relation) map[string]float64 {
	out, nodes := adjacency(relations)
	n := len(nodes)
	if n == 0 {
		return map[string]float64{}
	}

	ranks := make(map[string]float64, n)
	for _, id := range nodes {
		ranks[id] = 1.0 / float64(n)
	}

	for i := 0; i < pageRankIterations; i++ {
		next := make(map[string]float64, n)
		base := (1.0 - pageRankDamping) / float64(n)
		for _, id := range nodes {
			next[id] = base
		}

		var danglingMass float64
		for _, id := range nodes {
			targets := out[id]
			if len(targets) == 0 {
				danglingMass += ranks[id]
				continue
			}
			share := pageRankDamping * ranks[id] / float64(len(targets))
			for _, target := range targets {
				next[target] += share
			}
		}
		if danglingMass > 0 {
			share := pageRankDamping * danglingMass / float64(n)
			for _, id := range nodes {
				next[id] += share
			}
		}
		ranks = next
	}

	var total float64
	for _, rank := range ranks {
		total += rank
	}
	if total > 0 {
		for id := range ranks {
			ranks[id] /= total
		}
	}
	return ranks
}

// Compute builds a full diagnostics snapshot from the relation set.
func Compute(relations []*types.Relation) *types.GraphDiagnostics {
	return &types.GraphDiagnostics{
		DegreeCentrality: DegreeCentrality(relations),
		PageRank:         PageRank(relations),
	}
}
