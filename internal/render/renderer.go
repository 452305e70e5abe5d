package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"

	"github.com/cleberrangel/pert-estimator-api/internal/model"
	"github.com/cleberrangel/pert-estimator-api/internal/session"
)

//go:embed templates static
var embeddedFiles embed.FS

// Fragments são os pedaços de HTML enviados ao navegador após um evento
type Fragments struct {
	App    string `json:"app"`
	Tasks  string `json:"tasks"`
	Result string `json:"result"`
}

// State é o estado enviado ao navegador após um evento
type State struct {
	Action model.Action `json:"action"`
	View   View         `json:"view"`
	HTML   Fragments    `json:"html"`
}

// Renderer renderiza a página e seus fragmentos
type Renderer struct {
	templates *template.Template
	tr        Translations
}

// NewRenderer carrega os templates embutidos
func NewRenderer(tr Translations) (*Renderer, error) {
	funcMap := template.FuncMap{
		"t": func(text map[string]string, id string) string {
			if v, ok := text[id]; ok && v != "" {
				return v
			}
			return id
		},
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html", "templates/fragments/*.html")
	if err != nil {
		return nil, fmt.Errorf("carregar templates: %w", err)
	}
	return &Renderer{templates: templates, tr: tr}, nil
}

// Static retorna os arquivos estáticos (js, css)
func Static() fs.FS {
	sub, err := fs.Sub(embeddedFiles, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// View monta o modelo de apresentação
func (r *Renderer) View(snap session.Snapshot) View {
	return BuildView(r.tr, snap)
}

// Page renderiza a página completa
func (r *Renderer) Page(w io.Writer, snap session.Snapshot) error {
	return r.templates.ExecuteTemplate(w, "index.html", r.View(snap))
}

// Fragments renderiza os fragmentos atualizados após um evento
func (r *Renderer) Fragments(view View) (Fragments, error) {
	var f Fragments
	var err error

	if f.App, err = r.execute("app", view); err != nil {
		return f, err
	}
	if f.Tasks, err = r.execute("tasks", view); err != nil {
		return f, err
	}
	if f.Result, err = r.execute("result", view); err != nil {
		return f, err
	}
	return f, nil
}

func (r *Renderer) execute(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("renderizar %s: %w", name, err)
	}
	return buf.String(), nil
}

// State monta a apresentação e os fragmentos de um snapshot
func (r *Renderer) State(action model.Action, snap session.Snapshot) (State, error) {
	view := r.View(snap)
	html, err := r.Fragments(view)
	if err != nil {
		return State{}, err
	}
	return State{Action: action, View: view, HTML: html}, nil
}
