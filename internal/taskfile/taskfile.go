// Package taskfile lê listas de tarefas em YAML ou CSV para a CLI.
package taskfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cleberrangel/pert-estimator-api/internal/estimation"
	"github.com/cleberrangel/pert-estimator-api/internal/middleware"
	"github.com/cleberrangel/pert-estimator-api/internal/model"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFile indica extensão sem leitor
var ErrUnsupportedFile = errors.New("formato de arquivo não suportado")

// File é uma lista de tarefas com idioma e percentis opcionais.
//
//	language: en
//	percentiles: [50, 80, 95]
//	tasks:
//	  - name: Backend
//	    optimistic: 2
//	    most_likely: "4,5"
//	    pessimistic: 9
type File struct {
	Language    string `yaml:"language"`
	Percentiles []int  `yaml:"percentiles"`
	Tasks       []Task `yaml:"tasks"`
}

// Task é uma tarefa como escrita no arquivo
type Task struct {
	Name        string `yaml:"name"`
	Optimistic  Value  `yaml:"optimistic"`
	MostLikely  Value  `yaml:"most_likely"`
	Pessimistic Value  `yaml:"pessimistic"`
}

// Value aceita número ou texto; o que não for número vira 0, como no formulário
type Value float64

// UnmarshalYAML implementa yaml.Unmarshaler
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("linha %d: estimativa deve ser um valor simples", node.Line)
	}
	*v = Value(estimation.ParseEstimate(node.Value))
	return nil
}

// Load lê o arquivo conforme a extensão (.yaml, .yml ou .csv)
func Load(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("abrir %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(f)
	case ".csv":
		return ParseCSV(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, path)
	}
}

// ParseYAML lê o formato YAML
func ParseYAML(r io.Reader) (*File, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("decodificar YAML: %w", err)
	}
	return &file, nil
}

// colunas aceitas no cabeçalho do CSV
var csvColumns = map[string]string{
	"name":        "name",
	"task":        "name",
	"taskname":    "name",
	"optimistic":  "optimistic",
	"o":           "optimistic",
	"mostlikely":  "most_likely",
	"most_likely": "most_likely",
	"m":           "most_likely",
	"pessimistic": "pessimistic",
	"p":           "pessimistic",
}

// ParseCSV lê um CSV com cabeçalho. As colunas são identificadas pelo nome
// (name, optimistic, most_likely, pessimistic) em qualquer ordem.
func ParseCSV(r io.Reader) (*File, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return &File{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ler cabeçalho: %w", err)
	}

	index := make(map[string]int)
	for i, col := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		if name, ok := csvColumns[key]; ok {
			index[name] = i
		}
	}
	for _, required := range []string{"optimistic", "most_likely", "pessimistic"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("coluna %q ausente no cabeçalho", required)
		}
	}

	file := &File{}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("linha %d: %w", line, err)
		}

		cell := func(col string) string {
			i, ok := index[col]
			if !ok || i >= len(record) {
				return ""
			}
			return record[i]
		}

		file.Tasks = append(file.Tasks, Task{
			Name:        cell("name"),
			Optimistic:  Value(estimation.ParseEstimate(cell("optimistic"))),
			MostLikely:  Value(estimation.ParseEstimate(cell("most_likely"))),
			Pessimistic: Value(estimation.ParseEstimate(cell("pessimistic"))),
		})
	}
	return file, nil
}

// Targets retorna os percentis do arquivo ou os padrões recebidos
func (f *File) Targets(defaults []model.PercentileTarget) ([]model.PercentileTarget, error) {
	if len(f.Percentiles) == 0 {
		return estimation.CloneTargets(defaults), nil
	}
	targets := make([]model.PercentileTarget, 0, len(f.Percentiles))
	for _, p := range f.Percentiles {
		target, err := estimation.NewPercentileTarget(p)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// Estimates converte as tarefas para o modelo, ainda sem campos derivados
func (f *File) Estimates() []model.TaskEstimate {
	tasks := make([]model.TaskEstimate, len(f.Tasks))
	for i, t := range f.Tasks {
		tasks[i] = model.TaskEstimate{
			ID:          strconv.Itoa(i + 1),
			Name:        middleware.SanitizeTaskName(t.Name),
			Optimistic:  float64(t.Optimistic),
			MostLikely:  float64(t.MostLikely),
			Pessimistic: float64(t.Pessimistic),
		}
	}
	return tasks
}
