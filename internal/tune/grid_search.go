// Package tune searches gain combinations for the one that scores best
// on a run metric.
package tune

import (
	"context"
	"math"

	"github.com/skysim/quadsim/internal/sim"
)

// GridSearch enumerates every combination of named parameter values.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Search builds and runs a fresh runner for every combination and keeps
// the parameters with the lowest value of the named metric. Combinations
// whose build or run fails are skipped.
func (g *GridSearch) Search(
	ctx context.Context,
	build func(params map[string]float64) (*sim.Runner, sim.Config, error),
	metricName string,
) (map[string]float64, float64, error) {

	best := math.Inf(1)
	var bestParams map[string]float64

	g.searchRecursive(ctx, 0, make(map[string]float64), build, metricName, &best, &bestParams)

	if ctx.Err() != nil {
		return bestParams, best, ctx.Err()
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	build func(map[string]float64) (*sim.Runner, sim.Config, error),
	metricName string,
	best *float64,
	bestParams *map[string]float64,
) {
	if ctx.Err() != nil {
		return
	}

	if depth == len(g.paramNames) {
		runner, cfg, err := build(current)
		if err != nil {
			return
		}

		result, err := runner.Run(ctx, cfg)
		if err != nil {
			return
		}

		val := result.Metrics[metricName]
		if val < *best {
			*best = val
			*bestParams = make(map[string]float64, len(current))
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return
	}

	for _, val := range g.ranges[depth] {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[g.paramNames[depth]] = val

		g.searchRecursive(ctx, depth+1, next, build, metricName, best, bestParams)
	}
}
