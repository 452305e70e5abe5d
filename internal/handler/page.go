package handler

import (
	"bytes"
	"net/http"

	"github.com/cleberrangel/pert-estimator-api/internal/metrics"
	"github.com/cleberrangel/pert-estimator-api/internal/middleware"
	"github.com/cleberrangel/pert-estimator-api/internal/preferences"
	"github.com/cleberrangel/pert-estimator-api/internal/render"
	"github.com/cleberrangel/pert-estimator-api/internal/session"
	"github.com/gin-gonic/gin"
)

// PageHandler serve a página da ferramenta
type PageHandler struct {
	sessions     *session.Store
	renderer     *render.Renderer
	prefs        *preferences.Factory
	langs        preferences.Languages
	defaultTheme string
}

// NewPageHandler cria o handler da página
func NewPageHandler(sessions *session.Store, renderer *render.Renderer, prefs *preferences.Factory, langs preferences.Languages, defaultTheme string) *PageHandler {
	return &PageHandler{
		sessions:     sessions,
		renderer:     renderer,
		prefs:        prefs,
		langs:        langs,
		defaultTheme: defaultTheme,
	}
}

// Index cria uma sessão nova, com uma tarefa vazia, e renderiza a página
func (h *PageHandler) Index(c *gin.Context) {
	ctx := c.Request.Context()
	visitorID := middleware.GetVisitorID(c)

	p := preferences.Resolve(ctx, h.prefs.ForRequest(c, visitorID), h.langs, c.GetHeader("Accept-Language"), h.defaultTheme)
	st := h.sessions.Create(visitorID, p.Language, p.Theme)
	metrics.Get().IncrementSessionCreated()

	st.Lock()
	snap := st.Snapshot()
	st.Unlock()

	var buf bytes.Buffer
	if err := h.renderer.Page(&buf, snap); err != nil {
		respondError(c, "erro ao renderizar página", err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}
