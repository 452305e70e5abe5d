package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cleberrangel/pert-estimator-api/internal/export"
	"github.com/cleberrangel/pert-estimator-api/internal/i18n"
	"github.com/cleberrangel/pert-estimator-api/internal/model"
	"github.com/spf13/cobra"
)

// defaultLanguage é o idioma dos cabeçalhos quando nem a flag nem o arquivo definem um
const defaultLanguage = "ru"

func newExportCommand() *cobra.Command {
	var (
		out          string
		lang         string
		translations string
	)

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Exporta a estimativa para CSV ou XLSX",
		Long: `Exporta a estimativa no mesmo layout da página.

O formato vem da extensão de --out (.csv ou .xlsx).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, result, err := estimateFile(args[0])
			if err != nil {
				return err
			}

			tr := i18n.NewTranslator(i18n.LoadOrEmpty(translations), defaultLanguage)
			if lang == "" {
				lang = file.Language
			}
			if lang == "" {
				lang = tr.DefaultLanguage()
			}
			if !tr.Supports(lang) {
				return fmt.Errorf("%w: %q", model.ErrUnsupportedLanguage, lang)
			}

			report := export.Report{
				Language:    lang,
				Tasks:       result.Tasks,
				Percentiles: result.Percentiles,
				Aggregate:   result.Aggregate,
			}

			buf, err := render(out, tr, report)
			if err != nil {
				return err
			}

			if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
				return fmt.Errorf("gravar %s: %w", out, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Exportado: %s (%d tarefas)\n", out, len(result.Tasks))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", export.CSVFilename, "Arquivo de saída (.csv ou .xlsx)")
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "Idioma dos cabeçalhos (padrão: o do arquivo, ou ru)")
	cmd.Flags().StringVar(&translations, "translations", "", "Arquivo JSON de traduções (padrão: embutido)")

	return cmd
}

func render(out string, tr export.Translator, report export.Report) (*bytes.Buffer, error) {
	switch strings.ToLower(filepath.Ext(out)) {
	case ".csv":
		return export.CSV(tr, report)
	case ".xlsx":
		return export.XLSX(tr, report)
	default:
		return nil, fmt.Errorf("%w: %s", model.ErrUnsupportedFormat, out)
	}
}
