package estimation

import (
	"math"

	"github.com/cleberrangel/pert-estimator-api/internal/model"
	"github.com/montanaflynn/stats"
)

// DeriveTask calcula tempo esperado, desvio padrão e variância de uma tarefa (PERT).
// Entradas NaN ou infinitas são tratadas como 0. Nunca falha: entradas <= 0
// apenas tornam a tarefa inválida.
func DeriveTask(in model.RawTaskInputs) model.DerivedTaskFields {
	o := finite(in.Optimistic)
	m := finite(in.MostLikely)
	p := finite(in.Pessimistic)

	stdDev := (p - o) / 6

	return model.DerivedTaskFields{
		IsValid:      o > 0 && m > 0 && p > 0,
		ExpectedTime: (o + 4*m + p) / 6,
		StdDev:       stdDev,
		Variance:     stdDev * stdDev,
	}
}

// Recalculate aplica DeriveTask na própria tarefa
func Recalculate(task *model.TaskEstimate) {
	task.Apply(DeriveTask(task.Raw()))
}

// IsAggregateValid retorna true se a lista não está vazia e todas as tarefas são válidas
func IsAggregateValid(tasks []model.TaskEstimate) bool {
	if len(tasks) == 0 {
		return false
	}
	for _, task := range tasks {
		if !task.IsValid {
			return false
		}
	}
	return true
}

// DeriveAggregate calcula o tempo total e os percentis de conclusão.
// Assume que os campos derivados das tarefas estão atualizados.
// Quando o agregado é inválido nenhum valor é retornado.
func DeriveAggregate(tasks []model.TaskEstimate, targets []model.PercentileTarget) model.AggregateResult {
	if !IsAggregateValid(tasks) {
		return model.AggregateResult{}
	}

	expected := make(stats.Float64Data, len(tasks))
	variances := make(stats.Float64Data, len(tasks))
	for i, task := range tasks {
		expected[i] = task.ExpectedTime
		variances[i] = task.Variance
	}

	// Lista não vazia: Sum não retorna erro
	expectedSum, _ := stats.Sum(expected)
	varianceSum, _ := stats.Sum(variances)

	// Variâncias somadas assumindo tarefas independentes
	spread := math.Sqrt(varianceSum)

	percentiles := make([]model.PercentileValue, len(targets))
	for i, target := range targets {
		percentiles[i] = model.PercentileValue{
			Percent: target.Percent,
			Value:   target.DeviationsCount*spread + expectedSum,
		}
	}

	return model.AggregateResult{
		IsValid:         true,
		ExpectedTimeSum: expectedSum,
		VarianceSum:     varianceSum,
		Percentiles:     percentiles,
	}
}

// ApplyAggregate copia os valores calculados para os percentis configurados.
// Resultados inválidos não alteram os alvos.
func ApplyAggregate(targets []model.PercentileTarget, res model.AggregateResult) {
	if !res.IsValid {
		return
	}
	for i := range targets {
		for _, pv := range res.Percentiles {
			if pv.Percent == targets[i].Percent {
				targets[i].Value = pv.Value
				break
			}
		}
	}
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
