package render

import (
	"html/template"
	"strconv"

	"github.com/cleberrangel/pert-estimator-api/internal/estimation"
	"github.com/cleberrangel/pert-estimator-api/internal/export"
	"github.com/cleberrangel/pert-estimator-api/internal/preferences"
	"github.com/cleberrangel/pert-estimator-api/internal/session"
)

// Translations é o que a renderização precisa do tradutor
type Translations interface {
	Languages() []string
	Strings(lang string) map[string]string
	Description(lang string) template.HTML
}

// TaskRow é uma linha da tabela de tarefas
type TaskRow struct {
	Index       int    `json:"index"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Optimistic  string `json:"optimistic"`
	MostLikely  string `json:"most_likely"`
	Pessimistic string `json:"pessimistic"`
	// Expected fica vazio enquanto a tarefa for inválida
	Expected string `json:"expected"`
	StdDev   string `json:"std_dev"`
	Variance string `json:"variance"`
}

// PercentileRow é um item do bloco de probabilidades
type PercentileRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// View é o modelo de apresentação de uma sessão
type View struct {
	SessionID   string            `json:"session_id"`
	Language    string            `json:"language"`
	Languages   []string          `json:"languages"`
	Theme       string            `json:"theme"`
	ThemeIcon   string            `json:"theme_icon"`
	Title       string            `json:"title"`
	Text        map[string]string `json:"text"`
	Description template.HTML     `json:"description"`
	Tasks       []TaskRow         `json:"tasks"`
	ShowResult  bool              `json:"show_result"`
	TotalTime   string            `json:"total_time"`
	Percentiles []PercentileRow   `json:"percentiles"`
}

// BuildView monta a apresentação: valores derivados de tarefas inválidas
// ficam vazios e o bloco de resultado só aparece com agregado válido.
func BuildView(tr Translations, snap session.Snapshot) View {
	text := tr.Strings(snap.Language)
	title := text["title"]
	if title == "" {
		title = "title"
	}

	v := View{
		SessionID:   snap.ID,
		Language:    snap.Language,
		Languages:   tr.Languages(),
		Theme:       snap.Theme,
		ThemeIcon:   preferences.ThemeIcon(snap.Theme),
		Title:       title,
		Text:        text,
		Description: tr.Description(snap.Language),
		Tasks:       make([]TaskRow, len(snap.Tasks)),
		ShowResult:  snap.Aggregate.IsValid,
		Percentiles: []PercentileRow{},
	}

	for i, task := range snap.Tasks {
		row := TaskRow{
			Index:       i,
			ID:          task.ID,
			Name:        task.Name,
			Optimistic:  rawValue(task.Optimistic),
			MostLikely:  rawValue(task.MostLikely),
			Pessimistic: rawValue(task.Pessimistic),
		}
		if task.IsValid {
			row.Expected = estimation.Format1(task.ExpectedTime)
			row.StdDev = estimation.Format1(task.StdDev)
			row.Variance = estimation.Format1(task.Variance)
		}
		v.Tasks[i] = row
	}

	if v.ShowResult {
		v.TotalTime = estimation.Format1(snap.Aggregate.ExpectedTimeSum)
		for _, p := range snap.Percentiles {
			v.Percentiles = append(v.Percentiles, PercentileRow{
				Label: export.PercentLabel(p.Percent),
				Value: estimation.Format1(p.Value),
			})
		}
	}

	return v
}

// rawValue mostra a entrada como digitada, sem casas decimais extras
func rawValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
