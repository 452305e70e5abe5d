package main

import (
	"github.com/cleberrangel/pert-estimator-api/internal/logger"
	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pert",
		Short: "pert - estimativa de tarefas pelo método PERT",
		Long: `pert calcula estimativas PERT a partir de um arquivo de tarefas.

Cada tarefa tem três estimativas (otimista, mais provável e pessimista).
O arquivo pode ser YAML (.yaml, .yml) ou CSV com cabeçalho.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Habilita logs de debug")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level := "warn"
		if *debugLogging {
			level = "debug"
		}
		logger.InitWithWriter(level, false, cmd.ErrOrStderr())
	}

	cmd.AddCommand(newEstimateCommand())
	cmd.AddCommand(newExportCommand())

	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}
