package export

import (
	"bytes"
	"fmt"
	"math"

	"github.com/cleberrangel/pert-estimator-api/internal/estimation"
	"github.com/xuri/excelize/v2"
)

const sheetName = "PERT"

// xlsxColumns são os identificadores de tradução das colunas da planilha
var xlsxColumns = []string{"taskName", "optimistic", "mostLikely", "pessimistic", "expectedTime", "stdDev", "variance"}

// XLSX gera o relatório em planilha, com as entradas e todos os campos derivados
func XLSX(tr Translator, r Report) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, sheetName); err != nil {
		return nil, fmt.Errorf("renomear sheet: %w", err)
	}

	styles, err := newStyles(f)
	if err != nil {
		return nil, fmt.Errorf("criar estilos: %w", err)
	}

	headers := make([]string, len(xlsxColumns))
	for i, id := range xlsxColumns {
		headers[i] = tr.T(r.Language, id)
	}
	if err := writeRow(f, 1, headers, styles.header); err != nil {
		return nil, fmt.Errorf("escrever headers: %w", err)
	}

	row := 2
	for i, task := range r.Tasks {
		style := styles.even
		if i%2 == 1 {
			style = styles.odd
		}
		values := []interface{}{task.Name, task.Optimistic, task.MostLikely, task.Pessimistic}
		values = append(values, derived(task.IsValid, task.ExpectedTime, task.StdDev, task.Variance)...)
		if err := writeRow(f, row, values, style); err != nil {
			return nil, fmt.Errorf("escrever tarefa %d: %w", i+1, err)
		}
		row++
	}

	if r.Aggregate.IsValid {
		values := []interface{}{tr.T(r.Language, "total"), "", "", ""}
		values = append(values, derived(true, r.Aggregate.ExpectedTimeSum, math.Sqrt(r.Aggregate.VarianceSum), r.Aggregate.VarianceSum)...)
		if err := writeRow(f, row, values, styles.total); err != nil {
			return nil, fmt.Errorf("escrever total: %w", err)
		}
		row++
	}

	row++ // linha em branco antes dos percentis
	if err := writeRow(f, row, []string{tr.T(r.Language, "probabilityLabel")}, styles.header); err != nil {
		return nil, fmt.Errorf("escrever rótulo: %w", err)
	}
	row++

	for _, p := range r.Percentiles {
		values := []interface{}{PercentLabel(p.Percent)}
		values = append(values, derived(r.Aggregate.IsValid, p.Value)...)
		if err := writeRow(f, row, values, styles.even); err != nil {
			return nil, fmt.Errorf("escrever percentil %d: %w", p.Percent, err)
		}
		row++
	}

	if err := f.SetColWidth(sheetName, "A", "A", 40); err != nil {
		return nil, fmt.Errorf("ajustar colunas: %w", err)
	}
	if err := f.SetColWidth(sheetName, "B", "G", 16); err != nil {
		return nil, fmt.Errorf("ajustar colunas: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("escrever buffer: %w", err)
	}
	return buf, nil
}

type xlsxStyles struct {
	header int
	even   int
	odd    int
	total  int
}

func newStyles(f *excelize.File) (xlsxStyles, error) {
	var s xlsxStyles
	var err error

	thin := func(color string) []excelize.Border {
		return []excelize.Border{
			{Type: "left", Color: color, Style: 1},
			{Type: "top", Color: color, Style: 1},
			{Type: "bottom", Color: color, Style: 1},
			{Type: "right", Color: color, Style: 1},
		}
	}
	oneDecimal := "0.0"

	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thin("000000"),
	})
	if err != nil {
		return s, err
	}

	s.even, err = f.NewStyle(&excelize.Style{
		Fill:         excelize.Fill{Type: "pattern", Color: []string{"FFFFFF"}, Pattern: 1},
		Border:       thin("D9D9D9"),
		CustomNumFmt: &oneDecimal,
	})
	if err != nil {
		return s, err
	}

	s.odd, err = f.NewStyle(&excelize.Style{
		Fill:         excelize.Fill{Type: "pattern", Color: []string{"F2F2F2"}, Pattern: 1},
		Border:       thin("D9D9D9"),
		CustomNumFmt: &oneDecimal,
	})
	if err != nil {
		return s, err
	}

	s.total, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true},
		Fill:         excelize.Fill{Type: "pattern", Color: []string{"DDEBF7"}, Pattern: 1},
		Border:       thin("000000"),
		CustomNumFmt: &oneDecimal,
	})
	return s, err
}

func writeRow[T any](f *excelize.File, row int, values []T, style int) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

// derived retorna os valores arredondados ou células vazias quando inválido
func derived(ok bool, values ...float64) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		if ok {
			out[i] = estimation.Round1(v)
		} else {
			out[i] = ""
		}
	}
	return out
}
