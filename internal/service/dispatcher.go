package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cleberrangel/pert-estimator-api/internal/estimation"
	"github.com/cleberrangel/pert-estimator-api/internal/logger"
	"github.com/cleberrangel/pert-estimator-api/internal/metrics"
	"github.com/cleberrangel/pert-estimator-api/internal/middleware"
	"github.com/cleberrangel/pert-estimator-api/internal/model"
	"github.com/cleberrangel/pert-estimator-api/internal/preferences"
	"github.com/cleberrangel/pert-estimator-api/internal/session"
)

// HandlerFunc aplica um evento ao estado. É chamado com o estado bloqueado.
type HandlerFunc func(ctx context.Context, st *session.State, ev model.Event, prefs preferences.Store) error

// RenderHook é chamado após cada evento aplicado, fora do lock do estado
type RenderHook func(ctx context.Context, action model.Action, snap session.Snapshot)

// Dispatcher aplica eventos da interface ao estado de uma sessão.
// Cada evento é uma mutação atômica: a sessão fica bloqueada do início ao fim.
type Dispatcher struct {
	handlers map[model.Action]HandlerFunc
	langs    preferences.Languages
	metrics  *metrics.Metrics

	mu    sync.RWMutex
	hooks []RenderHook
}

// NewDispatcher cria o dispatcher com a tabela de eventos padrão
func NewDispatcher(langs preferences.Languages, m *metrics.Metrics) *Dispatcher {
	if m == nil {
		m = metrics.Get()
	}
	d := &Dispatcher{
		langs:   langs,
		metrics: m,
	}
	d.handlers = map[model.Action]HandlerFunc{
		model.ActionAddTask:        d.addTask,
		model.ActionRemoveTask:     d.removeTask,
		model.ActionFieldChanged:   d.fieldChanged,
		model.ActionRenameTask:     d.renameTask,
		model.ActionToggleTheme:    d.toggleTheme,
		model.ActionSelectLanguage: d.selectLanguage,
	}
	return d
}

// OnRender registra um hook chamado após cada evento aplicado
func (d *Dispatcher) OnRender(fn RenderHook) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hooks = append(d.hooks, fn)
}

// Actions retorna as ações registradas
func (d *Dispatcher) Actions() []model.Action {
	actions := make([]model.Action, 0, len(d.handlers))
	for a := range d.handlers {
		actions = append(actions, a)
	}
	return actions
}

// Dispatch aplica o evento e retorna o estado resultante.
// prefs pode ser nil quando não há onde persistir preferências.
func (d *Dispatcher) Dispatch(ctx context.Context, st *session.State, ev model.Event, prefs preferences.Store) (session.Snapshot, error) {
	log := logger.Get(ctx)

	handler, ok := d.handlers[ev.Action]
	if !ok {
		d.metrics.IncrementEvent(string(ev.Action), false)
		return session.Snapshot{}, fmt.Errorf("%w: %q", model.ErrUnknownAction, ev.Action)
	}

	st.Lock()
	err := handler(ctx, st, ev, prefs)
	snap := st.Snapshot()
	st.Unlock()

	if err != nil {
		d.metrics.IncrementEvent(string(ev.Action), false)
		log.Debug().Err(err).Str("action", string(ev.Action)).Msg("Evento rejeitado")
		return session.Snapshot{}, err
	}

	d.metrics.IncrementEvent(string(ev.Action), true)
	log.Debug().
		Str("action", string(ev.Action)).
		Int("tasks", len(snap.Tasks)).
		Bool("aggregate_valid", snap.Aggregate.IsValid).
		Msg("Evento aplicado")

	d.mu.RLock()
	hooks := append([]RenderHook(nil), d.hooks...)
	d.mu.RUnlock()
	for _, hook := range hooks {
		hook(ctx, ev.Action, snap)
	}

	return snap, nil
}

func (d *Dispatcher) addTask(ctx context.Context, st *session.State, _ model.Event, _ preferences.Store) error {
	task := st.AddTask()
	d.recalculate(st)
	d.metrics.IncrementTaskAdded()
	logger.AuditTask(ctx, logger.AuditActionTaskAdd, task.ID, len(st.Tasks))
	return nil
}

func (d *Dispatcher) removeTask(ctx context.Context, st *session.State, ev model.Event, _ preferences.Store) error {
	i, err := st.FindTask(ev.TaskID, ev.Index)
	if err != nil {
		return err
	}
	id := st.Tasks[i].ID
	st.RemoveTask(i)
	// Tarefas restantes não mudam, somente o agregado
	d.recalculate(st)
	d.metrics.IncrementTaskRemoved()
	logger.AuditTask(ctx, logger.AuditActionTaskRemove, id, len(st.Tasks))
	return nil
}

func (d *Dispatcher) fieldChanged(_ context.Context, st *session.State, ev model.Event, _ preferences.Store) error {
	i, err := st.FindTask(ev.TaskID, ev.Index)
	if err != nil {
		return err
	}
	task := &st.Tasks[i]
	if !task.Set(ev.Field, estimation.ParseEstimate(ev.Value.String())) {
		return fmt.Errorf("%w: %q", model.ErrUnknownField, ev.Field)
	}
	estimation.Recalculate(task)
	st.Touch()
	d.recalculate(st)
	return nil
}

// renameTask não recalcula: o nome não participa das estimativas
func (d *Dispatcher) renameTask(_ context.Context, st *session.State, ev model.Event, _ preferences.Store) error {
	i, err := st.FindTask(ev.TaskID, ev.Index)
	if err != nil {
		return err
	}
	st.Tasks[i].Name = middleware.SanitizeTaskName(ev.Value.String())
	st.Touch()
	return nil
}

func (d *Dispatcher) toggleTheme(ctx context.Context, st *session.State, _ model.Event, prefs preferences.Store) error {
	st.Theme = preferences.ToggleTheme(st.Theme)
	st.Touch()
	d.persist(ctx, prefs, preferences.KeyTheme, st.Theme)
	logger.Audit(ctx, logger.AuditEvent{
		Action:   logger.AuditActionThemeChange,
		Resource: "preferences",
		Success:  true,
		Details:  map[string]interface{}{"theme": st.Theme},
	})
	return nil
}

func (d *Dispatcher) selectLanguage(ctx context.Context, st *session.State, ev model.Event, prefs preferences.Store) error {
	lang := strings.TrimSpace(ev.Value.String())
	if !d.langs.Supports(lang) {
		return fmt.Errorf("%w: %q", model.ErrUnsupportedLanguage, lang)
	}
	st.Language = lang
	st.Touch()
	d.persist(ctx, prefs, preferences.KeyLanguage, lang)
	logger.Audit(ctx, logger.AuditEvent{
		Action:   logger.AuditActionLanguageChange,
		Resource: "preferences",
		Success:  true,
		Details:  map[string]interface{}{"language": lang},
	})
	return nil
}

func (d *Dispatcher) recalculate(st *session.State) {
	st.Recalculate()
	d.metrics.IncrementRecalculation()
}

// persist salva a preferência sem falhar o evento: o estado da sessão já mudou
func (d *Dispatcher) persist(ctx context.Context, prefs preferences.Store, key, value string) {
	d.metrics.IncrementPreferenceChange()
	if prefs == nil {
		return
	}
	if err := prefs.Set(ctx, key, value); err != nil {
		logger.Get(ctx).Warn().Err(err).Str("key", key).Msg("Falha ao salvar preferência")
	}
}
