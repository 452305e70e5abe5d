package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cleberrangel/pert-estimator-api/internal/logger"
	"github.com/cleberrangel/pert-estimator-api/internal/middleware"
	"github.com/cleberrangel/pert-estimator-api/internal/model"
	"github.com/cleberrangel/pert-estimator-api/internal/preferences"
	"github.com/cleberrangel/pert-estimator-api/internal/render"
	"github.com/cleberrangel/pert-estimator-api/internal/service"
	"github.com/cleberrangel/pert-estimator-api/internal/session"
	"github.com/gin-gonic/gin"
)

// SessionHandler trata eventos, leitura e exportação de uma sessão
type SessionHandler struct {
	sessions   *session.Store
	dispatcher *service.Dispatcher
	renderer   *render.Renderer
	exports    *service.ExportService
	prefs      *preferences.Factory
}

// NewSessionHandler cria o handler de sessões
func NewSessionHandler(sessions *session.Store, dispatcher *service.Dispatcher, renderer *render.Renderer, exports *service.ExportService, prefs *preferences.Factory) *SessionHandler {
	return &SessionHandler{
		sessions:   sessions,
		dispatcher: dispatcher,
		renderer:   renderer,
		exports:    exports,
		prefs:      prefs,
	}
}

// load busca a sessão do path e confere o visitante
func (h *SessionHandler) load(c *gin.Context) (*session.State, bool) {
	id := middleware.SanitizeID(c.Param("id"))
	st, err := h.sessions.GetForVisitor(id, middleware.GetVisitorID(c))
	if err != nil {
		respondError(c, "sessão não encontrada", err)
		return nil, false
	}
	c.Request = c.Request.WithContext(logger.WithSessionID(c.Request.Context(), st.ID))
	return st, true
}

// GetSession retorna o estado atual da sessão
// @Summary      Get session state
// @Tags         sessions
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} model.Response
// @Failure      404 {object} model.ErrorResponse
// @Router       /api/v1/sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	st, ok := h.load(c)
	if !ok {
		return
	}

	st.Lock()
	snap := st.Snapshot()
	st.Unlock()

	h.respondState(c, "", snap)
}

// PostEvent aplica um evento da interface
// @Summary      Dispatch UI event
// @Description  Applies add-task, remove-task, field-changed, rename-task, toggle-theme or select-language
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID"
// @Param        request body model.Event true "Event"
// @Success      200 {object} model.Response
// @Failure      400 {object} model.ErrorResponse
// @Failure      404 {object} model.ErrorResponse
// @Router       /api/v1/sessions/{id}/events [post]
func (h *SessionHandler) PostEvent(c *gin.Context) {
	st, ok := h.load(c)
	if !ok {
		return
	}

	var ev model.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Error:   "evento inválido",
			Details: err.Error(),
		})
		return
	}
	ev.TaskID = middleware.SanitizeID(ev.TaskID)

	prefs := h.prefs.ForRequest(c, middleware.GetVisitorID(c))
	snap, err := h.dispatcher.Dispatch(c.Request.Context(), st, ev, prefs)
	if err != nil {
		respondError(c, "evento rejeitado", err)
		return
	}

	h.respondState(c, ev.Action, snap)
}

// ExportCSV baixa o relatório em CSV
// @Summary      Export session as CSV
// @Tags         sessions
// @Produce      text/csv
// @Param        id path string true "Session ID"
// @Router       /api/v1/sessions/{id}/export.csv [get]
func (h *SessionHandler) ExportCSV(c *gin.Context) {
	h.export(c, service.FormatCSV)
}

// ExportXLSX baixa o relatório em planilha
// @Summary      Export session as XLSX
// @Tags         sessions
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        id path string true "Session ID"
// @Router       /api/v1/sessions/{id}/export.xlsx [get]
func (h *SessionHandler) ExportXLSX(c *gin.Context) {
	h.export(c, service.FormatXLSX)
}

func (h *SessionHandler) export(c *gin.Context, format string) {
	st, ok := h.load(c)
	if !ok {
		return
	}

	st.Lock()
	snap := st.Snapshot()
	st.Unlock()

	res, err := h.exports.Export(c.Request.Context(), format, snap)
	if err != nil {
		respondError(c, "erro ao exportar", err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+res.Filename+`"`)
	c.Header("Content-Length", strconv.Itoa(res.Buffer.Len()))
	c.Data(http.StatusOK, res.ContentType, res.Buffer.Bytes())
}

// HandleLiveEvent aplica um evento recebido pelo WebSocket.
// O estado resultante é enviado pelo hook de renderização.
func (h *SessionHandler) HandleLiveEvent(ctx context.Context, sessionID, visitorID string, ev model.Event) error {
	st, err := h.sessions.GetForVisitor(sessionID, visitorID)
	if err != nil {
		return err
	}
	ev.TaskID = middleware.SanitizeID(ev.TaskID)

	_, err = h.dispatcher.Dispatch(ctx, st, ev, h.prefs.Background(visitorID))
	return err
}

// LookupSession confere se a sessão existe e pertence ao visitante
func (h *SessionHandler) LookupSession(sessionID, visitorID string) error {
	_, err := h.sessions.GetForVisitor(middleware.SanitizeID(sessionID), visitorID)
	return err
}

func (h *SessionHandler) respondState(c *gin.Context, action model.Action, snap session.Snapshot) {
	state, err := h.renderer.State(action, snap)
	if err != nil {
		respondError(c, "erro ao renderizar estado", err)
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    state,
		Meta:    &model.Meta{TotalTasks: len(snap.Tasks)},
	})
}
