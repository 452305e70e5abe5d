package session

import (
	"fmt"
	"time"

	"github.com/cleberrangel/pert-estimator-api/internal/cache"
	"github.com/cleberrangel/pert-estimator-api/internal/model"
)

// Store mantém as sessões ativas com expiração por inatividade
type Store struct {
	sessions *cache.Cache[*State]
	targets  []model.PercentileTarget
}

// NewStore cria um store. targets são os percentis copiados em cada sessão nova.
func NewStore(ttl time.Duration, targets []model.PercentileTarget) *Store {
	return &Store{
		sessions: cache.NewCache[*State](ttl),
		targets:  targets,
	}
}

// Create cria uma sessão com a primeira tarefa vazia, como na abertura da página
func (s *Store) Create(visitorID, language, theme string) *State {
	st := NewState(visitorID, s.targets, language, theme)
	st.AddTask()
	st.Recalculate()
	s.sessions.Set(st.ID, st)
	return st
}

// Get retorna a sessão e renova sua expiração
func (s *Store) Get(id string) (*State, error) {
	st, ok := s.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrSessionNotFound, id)
	}
	s.sessions.Touch(id)
	return st, nil
}

// GetForVisitor retorna a sessão somente se ela pertencer ao visitante
func (s *Store) GetForVisitor(id, visitorID string) (*State, error) {
	st, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if st.VisitorID != "" && st.VisitorID != visitorID {
		return nil, fmt.Errorf("%w: %s", model.ErrSessionNotFound, id)
	}
	return st, nil
}

// Delete remove a sessão
func (s *Store) Delete(id string) {
	s.sessions.Delete(id)
}

// Count retorna o número de sessões ativas
func (s *Store) Count() int {
	return s.sessions.Size()
}

// Stop encerra a limpeza periódica
func (s *Store) Stop() {
	s.sessions.Stop()
}
