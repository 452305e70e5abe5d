package handler

import (
	"fmt"
	"net/http"

	"github.com/cleberrangel/pert-estimator-api/internal/i18n"
	"github.com/cleberrangel/pert-estimator-api/internal/model"
	"github.com/gin-gonic/gin"
)

// TranslationsHandler expõe as tabelas de tradução
type TranslationsHandler struct {
	tr *i18n.Translator
}

// NewTranslationsHandler cria o handler de traduções
func NewTranslationsHandler(tr *i18n.Translator) *TranslationsHandler {
	return &TranslationsHandler{tr: tr}
}

// ListLanguages retorna os idiomas suportados
func (h *TranslationsHandler) ListLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data: gin.H{
			"languages": h.tr.Languages(),
			"default":   h.tr.DefaultLanguage(),
		},
	})
}

// GetTranslations retorna a tabela de um idioma
// @Summary      Get translation table
// @Tags         translations
// @Produce      json
// @Param        lang path string true "Language"
// @Success      200 {object} model.Response
// @Failure      404 {object} model.ErrorResponse
// @Router       /api/v1/translations/{lang} [get]
func (h *TranslationsHandler) GetTranslations(c *gin.Context) {
	lang := c.Param("lang")
	if !h.tr.Supports(lang) {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Success: false,
			Error:   "idioma não suportado",
			Details: fmt.Errorf("%w: %q", model.ErrUnsupportedLanguage, lang).Error(),
		})
		return
	}

	c.JSON(http.StatusOK, model.Response{Success: true, Data: h.tr.Strings(lang)})
}
