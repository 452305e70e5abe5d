package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/cleberrangel/pert-estimator-api/internal/estimation"
	"github.com/cleberrangel/pert-estimator-api/internal/export"
	"github.com/cleberrangel/pert-estimator-api/internal/logger"
	"github.com/cleberrangel/pert-estimator-api/internal/service"
	"github.com/cleberrangel/pert-estimator-api/internal/taskfile"
	"github.com/spf13/cobra"
)

func newEstimateCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "estimate <file>",
		Short: "Calcula e mostra a estimativa das tarefas",
		Long: `Calcula tempo esperado, desvio padrão e variância de cada tarefa,
o tempo total e os percentis configurados.

Tarefas com alguma estimativa menor ou igual a zero ficam sem valores
derivados e deixam o resultado total em branco.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, result, err := estimateFile(args[0])
			if err != nil {
				return err
			}

			switch strings.ToLower(format) {
			case "table", "":
				writeTable(cmd.OutOrStdout(), result)
				return nil
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			default:
				return fmt.Errorf("formato inválido %q: use table ou json", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Formato da saída: table ou json")

	return cmd
}

// estimateFile lê o arquivo e deriva tarefas e agregado
func estimateFile(path string) (*taskfile.File, service.EstimateResult, error) {
	file, err := taskfile.Load(path)
	if err != nil {
		return nil, service.EstimateResult{}, err
	}

	targets, err := file.Targets(estimation.DefaultPercentileTargets())
	if err != nil {
		return nil, service.EstimateResult{}, err
	}

	result := service.Estimate(file.Estimates(), targets)
	logger.Global().Debug().
		Str("file", path).
		Int("tasks", len(result.Tasks)).
		Bool("valid", result.Aggregate.IsValid).
		Msg("Estimativa calculada")

	return file, result, nil
}

func writeTable(w io.Writer, result service.EstimateResult) {
	t := newTable("#", "Task", "O", "M", "P", "Expected", "StdDev", "Variance")
	for i, task := range result.Tasks {
		t.add(
			fmt.Sprint(i+1),
			task.Name,
			estimation.Format1(task.Optimistic),
			estimation.Format1(task.MostLikely),
			estimation.Format1(task.Pessimistic),
			formatIf(task.IsValid, task.ExpectedTime),
			formatIf(task.IsValid, task.StdDev),
			formatIf(task.IsValid, task.Variance),
		)
	}
	t.write(w)

	if !result.Aggregate.IsValid {
		fmt.Fprintln(w, "\nTotal: -")
		return
	}

	fmt.Fprintf(w, "\nTotal: %s\n", estimation.Format1(result.Aggregate.ExpectedTimeSum))
	for _, p := range result.Percentiles {
		fmt.Fprintf(w, "%s: %s\n", export.PercentLabel(p.Percent), estimation.Format1(p.Value))
	}
}

func formatIf(ok bool, v float64) string {
	if !ok {
		return "-"
	}
	return estimation.Format1(v)
}
