package export

import (
	"fmt"

	"github.com/cleberrangel/pert-estimator-api/internal/estimation"
	"github.com/cleberrangel/pert-estimator-api/internal/model"
)

const (
	CSVFilename  = "tasks-estimation.csv"
	XLSXFilename = "tasks-estimation.xlsx"
)

// Translator traduz um identificador de mensagem
type Translator interface {
	T(lang, id string) string
}

// Report é o conteúdo exportado de uma lista de tarefas
type Report struct {
	Language    string
	Tasks       []model.TaskEstimate
	Percentiles []model.PercentileTarget
	Aggregate   model.AggregateResult
}

// Rows monta as linhas da exportação: cabeçalho, uma linha por tarefa,
// o rótulo de probabilidade e uma linha por percentil.
// Valores de tarefas inválidas e percentis de um agregado inválido ficam em branco.
func Rows(tr Translator, r Report) [][]string {
	rows := make([][]string, 0, len(r.Tasks)+len(r.Percentiles)+2)
	rows = append(rows, []string{tr.T(r.Language, "taskName"), tr.T(r.Language, "expectedTime")})

	for _, task := range r.Tasks {
		rows = append(rows, []string{task.Name, formatIf(task.IsValid, task.ExpectedTime)})
	}

	rows = append(rows, []string{tr.T(r.Language, "probabilityLabel"), ""})
	for _, p := range r.Percentiles {
		rows = append(rows, []string{PercentLabel(p.Percent), formatIf(r.Aggregate.IsValid, p.Value)})
	}

	return rows
}

// PercentLabel formata o rótulo de um percentil ("95%")
func PercentLabel(percent int) string {
	return fmt.Sprintf("%d%%", percent)
}

func formatIf(ok bool, v float64) string {
	if !ok {
		return ""
	}
	return estimation.Format1(v)
}
