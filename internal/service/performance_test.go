package service

import (
	"context"
	"fmt"
	"runtime"
	"testing"

	"github.com/cleberrangel/pert-estimator-api/internal/estimation"
	"github.com/cleberrangel/pert-estimator-api/internal/i18n"
	"github.com/cleberrangel/pert-estimator-api/internal/metrics"
	"github.com/cleberrangel/pert-estimator-api/internal/model"
	"github.com/cleberrangel/pert-estimator-api/internal/session"
)

// TestMemoryUsageDuringLargeExport tests that memory usage stays within acceptable limits
// when estimating and exporting a large task list
func TestMemoryUsageDuringLargeExport(t *testing.T) {
	table, err := i18n.Load("")
	if err != nil {
		t.Fatalf("Failed to load translations: %v", err)
	}
	svc := NewExportService(i18n.NewTranslator(table, "ru"), metrics.New())

	// Force GC before measuring baseline
	runtime.GC()

	numTasks := 1500
	snap := largeSnapshot(numTasks)

	for _, format := range []string{FormatCSV, FormatXLSX} {
		res, err := svc.Export(context.Background(), format, snap)
		if err != nil {
			t.Fatalf("Failed to export %s: %v", format, err)
		}
		if res.Buffer.Len() == 0 {
			t.Errorf("Expected non-empty %s export", format)
		}
	}

	// Force GC and measure memory after processing
	runtime.GC()
	var memAfter runtime.MemStats
	runtime.ReadMemStats(&memAfter)

	memUsedMB := float64(memAfter.HeapAlloc) / (1024 * 1024)

	maxMemoryMB := 100.0
	if memUsedMB > maxMemoryMB {
		t.Errorf("Memory usage exceeded limit: %.2f MB (limit: %.2f MB)", memUsedMB, maxMemoryMB)
	}

	if !snap.Aggregate.IsValid {
		t.Errorf("Expected valid aggregate for %d valid tasks", numTasks)
	}

	t.Logf("Exported %d tasks, heap memory: %.2f MB", numTasks, memUsedMB)
}

// TestEstimateScalesLinearly checks that a large estimate keeps the total consistent
func TestEstimateScalesLinearly(t *testing.T) {
	numTasks := 5000
	snap := largeSnapshot(numTasks)

	// Todas as tarefas são (1, 2, 3): esperado 2 cada
	want := float64(numTasks) * 2
	if got := snap.Aggregate.ExpectedTimeSum; got < want-1e-6 || got > want+1e-6 {
		t.Errorf("Expected total %.1f, got %.6f", want, got)
	}
}

// largeSnapshot creates a session snapshot with numTasks valid tasks
func largeSnapshot(numTasks int) session.Snapshot {
	tasks := make([]model.TaskEstimate, numTasks)
	for i := range tasks {
		tasks[i] = model.TaskEstimate{
			ID:          fmt.Sprintf("t%d", i),
			Name:        fmt.Sprintf("Задача %d", i+1),
			Optimistic:  1,
			MostLikely:  2,
			Pessimistic: 3,
		}
	}

	res := Estimate(tasks, estimation.DefaultPercentileTargets())
	return session.Snapshot{
		ID:          "perf",
		Tasks:       res.Tasks,
		Percentiles: res.Percentiles,
		Aggregate:   res.Aggregate,
		Language:    "ru",
	}
}
