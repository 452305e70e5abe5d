package i18n

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"sort"
	"sync"

	"github.com/cleberrangel/pert-estimator-api/internal/logger"
	"github.com/yuin/goldmark"
	"golang.org/x/text/language"
)

//go:embed translations.json
var embeddedTranslations []byte

// Table mapeia código de idioma -> id do texto -> texto traduzido
type Table map[string]map[string]string

// EmptyTable é a tabela usada quando as traduções não podem ser carregadas
func EmptyTable() Table {
	return Table{"ru": {}, "en": {}}
}

// Load lê a tabela de traduções de path, ou a tabela embutida quando path é vazio
func Load(path string) (Table, error) {
	data := embeddedTranslations
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("ler traduções: %w", err)
		}
	}

	var table Table
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("decodificar traduções: %w", err)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("tabela de traduções vazia")
	}
	return table, nil
}

// LoadOrEmpty carrega as traduções e, em caso de falha, retorna mapeamentos vazios
// para não bloquear a inicialização
func LoadOrEmpty(path string) Table {
	table, err := Load(path)
	if err != nil {
		logger.Global().Warn().
			Err(err).
			Str("path", path).
			Msg("Falha ao carregar traduções, usando tabela vazia")
		return EmptyTable()
	}
	return table
}

// Translator resolve textos traduzidos e o idioma preferido do visitante
type Translator struct {
	table       Table
	defaultLang string
	codes       []string
	matcher     language.Matcher

	mu           sync.RWMutex
	descriptions map[string]template.HTML
}

// NewTranslator cria um tradutor. O idioma padrão é sempre suportado,
// mesmo que não exista na tabela.
func NewTranslator(table Table, defaultLang string) *Translator {
	if table == nil {
		table = EmptyTable()
	}
	if _, ok := table[defaultLang]; !ok {
		table[defaultLang] = map[string]string{}
	}

	// Idioma padrão primeiro: o matcher o usa como fallback
	codes := []string{defaultLang}
	others := make([]string, 0, len(table))
	for code := range table {
		if code != defaultLang {
			others = append(others, code)
		}
	}
	sort.Strings(others)
	codes = append(codes, others...)

	tags := make([]language.Tag, len(codes))
	for i, code := range codes {
		tags[i] = language.Make(code)
	}

	return &Translator{
		table:        table,
		defaultLang:  defaultLang,
		codes:        codes,
		matcher:      language.NewMatcher(tags),
		descriptions: make(map[string]template.HTML),
	}
}

// DefaultLanguage retorna o idioma padrão
func (t *Translator) DefaultLanguage() string {
	return t.defaultLang
}

// Languages retorna os idiomas suportados, padrão primeiro
func (t *Translator) Languages() []string {
	out := make([]string, len(t.codes))
	copy(out, t.codes)
	return out
}

// Supports indica se existe tabela para o idioma
func (t *Translator) Supports(lang string) bool {
	_, ok := t.table[lang]
	return ok
}

// T retorna o texto traduzido ou o próprio id quando ausente
func (t *Translator) T(lang, id string) string {
	if text, ok := t.table[lang][id]; ok && text != "" {
		return text
	}
	return id
}

// Strings retorna uma cópia da tabela de um idioma
func (t *Translator) Strings(lang string) map[string]string {
	src := t.table[lang]
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Match escolhe o idioma suportado mais próximo do header Accept-Language
func (t *Translator) Match(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return t.defaultLang
	}

	_, index, confidence := t.matcher.Match(tags...)
	if confidence == language.No || index < 0 || index >= len(t.codes) {
		return t.defaultLang
	}
	return t.codes[index]
}

// Description converte o texto "description" de markdown para HTML
func (t *Translator) Description(lang string) template.HTML {
	t.mu.RLock()
	cached, ok := t.descriptions[lang]
	t.mu.RUnlock()
	if ok {
		return cached
	}

	source, exists := t.table[lang]["description"]
	if !exists {
		return ""
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(source), &buf); err != nil {
		logger.Global().Warn().Err(err).Str("language", lang).Msg("Falha ao converter descrição")
		return template.HTML(template.HTMLEscapeString(source))
	}

	// goldmark escapa HTML bruto por padrão
	html := template.HTML(buf.String())

	t.mu.Lock()
	t.descriptions[lang] = html
	t.mu.Unlock()

	return html
}
