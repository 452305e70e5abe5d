package estimation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cleberrangel/pert-estimator-api/internal/model"
	"gonum.org/v1/gonum/stat/distuv"
)

// deviationTable contém os multiplicadores fixos da tabela PERT
var deviationTable = map[int]float64{
	50: 0,
	75: 0.675,
	95: 1.645,
}

// DefaultPercentiles é a ordem padrão dos percentis exibidos
var DefaultPercentiles = []int{50, 75, 95}

// DefaultPercentileTargets retorna os alvos 50%, 75% e 95%
func DefaultPercentileTargets() []model.PercentileTarget {
	targets := make([]model.PercentileTarget, 0, len(DefaultPercentiles))
	for _, p := range DefaultPercentiles {
		targets = append(targets, model.PercentileTarget{
			Percent:         p,
			DeviationsCount: deviationTable[p],
		})
	}
	return targets
}

// NewPercentileTarget cria um alvo para o percentil informado.
// Percentis fora da tabela usam o quantil da normal padrão.
func NewPercentileTarget(percent int) (model.PercentileTarget, error) {
	if percent <= 0 || percent >= 100 {
		return model.PercentileTarget{}, fmt.Errorf("%w: %d", model.ErrInvalidPercentile, percent)
	}

	deviations, ok := deviationTable[percent]
	if !ok {
		deviations = distuv.UnitNormal.Quantile(float64(percent) / 100)
	}

	return model.PercentileTarget{
		Percent:         percent,
		DeviationsCount: deviations,
	}, nil
}

// ParsePercentileTargets interpreta uma lista separada por vírgulas ("50,75,95").
// Mantém a ordem informada e ignora repetições. Lista vazia retorna os padrões.
func ParsePercentileTargets(raw string) ([]model.PercentileTarget, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultPercentileTargets(), nil
	}

	seen := make(map[int]bool)
	var targets []model.PercentileTarget
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), "%"))
		if part == "" {
			continue
		}
		percent, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", model.ErrInvalidPercentile, part)
		}
		if seen[percent] {
			continue
		}
		target, err := NewPercentileTarget(percent)
		if err != nil {
			return nil, err
		}
		seen[percent] = true
		targets = append(targets, target)
	}

	if len(targets) == 0 {
		return DefaultPercentileTargets(), nil
	}
	return targets, nil
}

// CloneTargets copia os alvos para uso exclusivo de uma sessão
func CloneTargets(targets []model.PercentileTarget) []model.PercentileTarget {
	out := make([]model.PercentileTarget, len(targets))
	copy(out, targets)
	return out
}
