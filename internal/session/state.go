package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/cleberrangel/pert-estimator-api/internal/estimation"
	"github.com/cleberrangel/pert-estimator-api/internal/model"
	"github.com/google/uuid"
)

// State é o estado da interface de uma sessão do navegador.
// Todas as mutações devem ser feitas com Lock/Unlock.
type State struct {
	mu sync.Mutex

	ID          string
	VisitorID   string
	Tasks       []model.TaskEstimate
	Percentiles []model.PercentileTarget
	Aggregate   model.AggregateResult
	Language    string
	Theme       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Snapshot é uma cópia imutável do estado, segura para renderizar fora do lock
type Snapshot struct {
	ID          string                   `json:"id"`
	Tasks       []model.TaskEstimate     `json:"tasks"`
	Percentiles []model.PercentileTarget `json:"percentiles"`
	Aggregate   model.AggregateResult    `json:"aggregate"`
	Language    string                   `json:"language"`
	Theme       string                   `json:"theme"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// NewState cria um estado vazio com uma cópia dos percentis configurados
func NewState(visitorID string, targets []model.PercentileTarget, language, theme string) *State {
	now := time.Now()
	return &State{
		ID:          uuid.New().String(),
		VisitorID:   visitorID,
		Tasks:       []model.TaskEstimate{},
		Percentiles: estimation.CloneTargets(targets),
		Language:    language,
		Theme:       theme,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Lock bloqueia o estado para uma mutação
func (s *State) Lock() { s.mu.Lock() }

// Unlock libera o estado
func (s *State) Unlock() { s.mu.Unlock() }

// AddTask adiciona uma tarefa zerada (inválida) ao final da lista
func (s *State) AddTask() *model.TaskEstimate {
	task := model.TaskEstimate{ID: uuid.New().String()}
	estimation.Recalculate(&task)
	s.Tasks = append(s.Tasks, task)
	s.touch()
	return &s.Tasks[len(s.Tasks)-1]
}

// FindTask localiza uma tarefa pelo ID ou, sem ID, pelo índice
func (s *State) FindTask(id string, index *int) (int, error) {
	if id != "" {
		for i := range s.Tasks {
			if s.Tasks[i].ID == id {
				return i, nil
			}
		}
		return -1, fmt.Errorf("%w: %s", model.ErrTaskNotFound, id)
	}
	if index != nil && *index >= 0 && *index < len(s.Tasks) {
		return *index, nil
	}
	return -1, model.ErrTaskNotFound
}

// RemoveTask remove a tarefa da posição i
func (s *State) RemoveTask(i int) {
	s.Tasks = append(s.Tasks[:i], s.Tasks[i+1:]...)
	s.touch()
}

// Recalculate recalcula o agregado e os valores dos percentis.
// Os campos derivados das tarefas não são recalculados.
func (s *State) Recalculate() {
	s.Aggregate = estimation.DeriveAggregate(s.Tasks, s.Percentiles)
	if !s.Aggregate.IsValid {
		for i := range s.Percentiles {
			s.Percentiles[i].Value = 0
		}
		return
	}
	estimation.ApplyAggregate(s.Percentiles, s.Aggregate)
}

// Snapshot copia o estado atual. Deve ser chamado com o lock adquirido.
func (s *State) Snapshot() Snapshot {
	tasks := make([]model.TaskEstimate, len(s.Tasks))
	copy(tasks, s.Tasks)

	agg := s.Aggregate
	agg.Percentiles = append([]model.PercentileValue(nil), s.Aggregate.Percentiles...)

	return Snapshot{
		ID:          s.ID,
		Tasks:       tasks,
		Percentiles: estimation.CloneTargets(s.Percentiles),
		Aggregate:   agg,
		Language:    s.Language,
		Theme:       s.Theme,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (s *State) touch() {
	s.UpdatedAt = time.Now()
}

// Touch marca o estado como alterado
func (s *State) Touch() {
	s.touch()
}
