package preferences

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cleberrangel/pert-estimator-api/internal/logger"
)

const (
	KeyLanguage = "language"
	KeyTheme    = "theme"

	ThemeLight = "light"
	ThemeDark  = "dark"

	// MaxAge é a validade padrão de uma preferência salva
	MaxAge = 365 * 24 * time.Hour
)

// Store guarda preferências com semântica get/set
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Languages é o que a resolução de idioma precisa do tradutor
type Languages interface {
	DefaultLanguage() string
	Supports(lang string) bool
	Match(acceptLanguage string) string
}

// Preferences são as preferências de interface de um visitante
type Preferences struct {
	Language string `json:"language"`
	Theme    string `json:"theme"`
}

// ValidTheme indica se o tema é conhecido
func ValidTheme(theme string) bool {
	return theme == ThemeLight || theme == ThemeDark
}

// ToggleTheme alterna entre claro e escuro
func ToggleTheme(theme string) string {
	if theme == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// ThemeIcon retorna o ícone exibido no botão de tema
func ThemeIcon(theme string) string {
	if theme == ThemeLight {
		return "☀️"
	}
	return "🌙"
}

// Resolve monta as preferências: valor salvo, depois Accept-Language, depois padrões.
// Falhas do store são registradas e tratadas como ausência de valor.
func Resolve(ctx context.Context, store Store, langs Languages, acceptLanguage, defaultTheme string) Preferences {
	prefs := Preferences{
		Language: langs.Match(acceptLanguage),
		Theme:    defaultTheme,
	}
	if !ValidTheme(prefs.Theme) {
		prefs.Theme = ThemeLight
	}
	if store == nil {
		return prefs
	}

	if lang, ok := get(ctx, store, KeyLanguage); ok && langs.Supports(lang) {
		prefs.Language = lang
	}
	if theme, ok := get(ctx, store, KeyTheme); ok && ValidTheme(theme) {
		prefs.Theme = theme
	}
	return prefs
}

func get(ctx context.Context, store Store, key string) (string, bool) {
	value, ok, err := store.Get(ctx, key)
	if err != nil {
		logger.Get(ctx).Warn().Err(err).Str("key", key).Msg("Falha ao ler preferência")
		return "", false
	}
	return strings.TrimSpace(value), ok
}

// Save grava idioma e tema no store
func Save(ctx context.Context, store Store, prefs Preferences) error {
	if store == nil {
		return nil
	}
	if err := store.Set(ctx, KeyLanguage, prefs.Language); err != nil {
		return fmt.Errorf("salvar idioma: %w", err)
	}
	if err := store.Set(ctx, KeyTheme, prefs.Theme); err != nil {
		return fmt.Errorf("salvar tema: %w", err)
	}
	return nil
}

// MemoryStore guarda preferências em memória
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore cria um store em memória
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get implementa Store
func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

// Set implementa Store
func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Chain lê do primeiro store que tiver o valor e grava em todos
type Chain []Store

// Get implementa Store
func (c Chain) Get(ctx context.Context, key string) (string, bool, error) {
	var firstErr error
	for _, s := range c {
		v, ok, err := s.Get(ctx, key)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			return v, true, nil
		}
	}
	return "", false, firstErr
}

// Set implementa Store
func (c Chain) Set(ctx context.Context, key, value string) error {
	for _, s := range c {
		if err := s.Set(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}
