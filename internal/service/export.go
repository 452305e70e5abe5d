package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/cleberrangel/pert-estimator-api/internal/export"
	"github.com/cleberrangel/pert-estimator-api/internal/logger"
	"github.com/cleberrangel/pert-estimator-api/internal/metrics"
	"github.com/cleberrangel/pert-estimator-api/internal/model"
	"github.com/cleberrangel/pert-estimator-api/internal/session"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportResult contém o arquivo gerado
type ExportResult struct {
	Buffer      *bytes.Buffer
	Filename    string
	ContentType string
}

// ExportService gera os arquivos de exportação de uma sessão
type ExportService struct {
	tr      export.Translator
	metrics *metrics.Metrics
}

// NewExportService cria o serviço de exportação
func NewExportService(tr export.Translator, m *metrics.Metrics) *ExportService {
	if m == nil {
		m = metrics.Get()
	}
	return &ExportService{tr: tr, metrics: m}
}

// Export gera o arquivo no formato pedido a partir de um snapshot da sessão
func (s *ExportService) Export(ctx context.Context, format string, snap session.Snapshot) (*ExportResult, error) {
	report := export.Report{
		Language:    snap.Language,
		Tasks:       snap.Tasks,
		Percentiles: snap.Percentiles,
		Aggregate:   snap.Aggregate,
	}

	var (
		result *ExportResult
		err    error
		action logger.AuditAction
	)

	format = strings.ToLower(format)
	switch format {
	case FormatCSV:
		action = logger.AuditActionExportCSV
		var buf *bytes.Buffer
		if buf, err = export.CSV(s.tr, report); err == nil {
			result = &ExportResult{Buffer: buf, Filename: export.CSVFilename, ContentType: ContentTypeCSV}
		}
	case FormatXLSX:
		action = logger.AuditActionExportXLSX
		var buf *bytes.Buffer
		if buf, err = export.XLSX(s.tr, report); err == nil {
			result = &ExportResult{Buffer: buf, Filename: export.XLSXFilename, ContentType: ContentTypeXLSX}
		}
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnsupportedFormat, format)
	}

	s.metrics.IncrementExport(format, err == nil)

	event := logger.AuditEvent{
		Action:     action,
		SessionID:  snap.ID,
		Resource:   "export",
		ResourceID: format,
		Success:    err == nil,
		Details: map[string]interface{}{
			"tasks":           len(snap.Tasks),
			"aggregate_valid": snap.Aggregate.IsValid,
		},
	}
	if err != nil {
		event.Error = err.Error()
	}
	logger.Audit(ctx, event)

	if err != nil {
		return nil, fmt.Errorf("exportar %s: %w", format, err)
	}
	return result, nil
}
