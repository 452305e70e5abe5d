package service

import (
	"github.com/cleberrangel/pert-estimator-api/internal/estimation"
	"github.com/cleberrangel/pert-estimator-api/internal/model"
)

// EstimateResult é o resultado de uma estimativa sem estado
type EstimateResult struct {
	Tasks       []model.TaskEstimate     `json:"tasks"`
	Percentiles []model.PercentileTarget `json:"percentiles"`
	Aggregate   model.AggregateResult    `json:"aggregate"`
}

// Estimate deriva todas as tarefas e o agregado.
// As tarefas recebidas não são alteradas.
func Estimate(tasks []model.TaskEstimate, targets []model.PercentileTarget) EstimateResult {
	out := make([]model.TaskEstimate, len(tasks))
	copy(out, tasks)
	for i := range out {
		estimation.Recalculate(&out[i])
	}

	percentiles := estimation.CloneTargets(targets)
	agg := estimation.DeriveAggregate(out, percentiles)
	estimation.ApplyAggregate(percentiles, agg)

	return EstimateResult{
		Tasks:       out,
		Percentiles: percentiles,
		Aggregate:   agg,
	}
}
