package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/cleberrangel/pert-estimator-api/internal/logger"
	"github.com/cleberrangel/pert-estimator-api/internal/metrics"
	"github.com/cleberrangel/pert-estimator-api/internal/middleware"
	"github.com/cleberrangel/pert-estimator-api/internal/model"
	"github.com/cleberrangel/pert-estimator-api/internal/preferences"
	"github.com/gin-gonic/gin"
)

// PreferencesRequest altera idioma e/ou tema. Campos vazios não mudam.
type PreferencesRequest struct {
	Language string `json:"language"`
	Theme    string `json:"theme"`
}

// PreferencesHandler lê e grava preferências do visitante
type PreferencesHandler struct {
	prefs        *preferences.Factory
	langs        preferences.Languages
	defaultTheme string
}

// NewPreferencesHandler cria o handler de preferências
func NewPreferencesHandler(prefs *preferences.Factory, langs preferences.Languages, defaultTheme string) *PreferencesHandler {
	return &PreferencesHandler{prefs: prefs, langs: langs, defaultTheme: defaultTheme}
}

// GetPreferences retorna as preferências resolvidas
// @Summary      Get preferences
// @Tags         preferences
// @Produce      json
// @Success      200 {object} model.Response
// @Router       /api/v1/preferences [get]
func (h *PreferencesHandler) GetPreferences(c *gin.Context) {
	store := h.prefs.ForRequest(c, middleware.GetVisitorID(c))
	p := preferences.Resolve(c.Request.Context(), store, h.langs, c.GetHeader("Accept-Language"), h.defaultTheme)

	c.JSON(http.StatusOK, model.Response{Success: true, Data: p})
}

// UpdatePreferences grava idioma e tema por um ano
// @Summary      Update preferences
// @Tags         preferences
// @Accept       json
// @Produce      json
// @Param        request body PreferencesRequest true "Preferences"
// @Success      200 {object} model.Response
// @Failure      400 {object} model.ErrorResponse
// @Router       /api/v1/preferences [put]
func (h *PreferencesHandler) UpdatePreferences(c *gin.Context) {
	var req PreferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Error:   "requisição inválida",
			Details: err.Error(),
		})
		return
	}

	req.Language = strings.TrimSpace(req.Language)
	req.Theme = strings.TrimSpace(req.Theme)

	if req.Language != "" && !h.langs.Supports(req.Language) {
		respondError(c, "idioma não suportado", fmt.Errorf("%w: %q", model.ErrUnsupportedLanguage, req.Language))
		return
	}
	if req.Theme != "" && !preferences.ValidTheme(req.Theme) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Error:   "tema inválido",
			Details: fmt.Sprintf("use %q ou %q", preferences.ThemeLight, preferences.ThemeDark),
		})
		return
	}

	ctx := c.Request.Context()
	store := h.prefs.ForRequest(c, middleware.GetVisitorID(c))
	// Cookies da requisição ainda têm os valores antigos: resolve antes de gravar
	p := preferences.Resolve(ctx, store, h.langs, c.GetHeader("Accept-Language"), h.defaultTheme)

	if req.Language != "" {
		p.Language = req.Language
		h.save(c, store, preferences.KeyLanguage, req.Language)
	}
	if req.Theme != "" {
		p.Theme = req.Theme
		h.save(c, store, preferences.KeyTheme, req.Theme)
	}

	c.JSON(http.StatusOK, model.Response{Success: true, Data: p})
}

func (h *PreferencesHandler) save(c *gin.Context, store preferences.Store, key, value string) {
	if err := store.Set(c.Request.Context(), key, value); err != nil {
		logger.FromGin(c).Warn().Err(err).Str("key", key).Msg("Falha ao salvar preferência")
	}
	metrics.Get().IncrementPreferenceChange()
}
