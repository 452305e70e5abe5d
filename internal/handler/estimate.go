package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/cleberrangel/pert-estimator-api/internal/estimation"
	"github.com/cleberrangel/pert-estimator-api/internal/metrics"
	"github.com/cleberrangel/pert-estimator-api/internal/middleware"
	"github.com/cleberrangel/pert-estimator-api/internal/model"
	"github.com/cleberrangel/pert-estimator-api/internal/service"
	"github.com/gin-gonic/gin"
)

// maxEstimateTasks limita o tamanho de uma requisição de estimativa
const maxEstimateTasks = 1000

// EstimateTaskRequest é uma tarefa na requisição sem estado.
// Estimativas aceitam número ou texto ("2,5"); valores inválidos viram 0.
type EstimateTaskRequest struct {
	Name        string            `json:"name"`
	Optimistic  estimation.Number `json:"optimistic"`
	MostLikely  estimation.Number `json:"most_likely"`
	Pessimistic estimation.Number `json:"pessimistic"`
}

// EstimateRequest é o corpo de POST /api/v1/estimate
type EstimateRequest struct {
	Tasks       []EstimateTaskRequest `json:"tasks" binding:"required"`
	Percentiles []int                 `json:"percentiles,omitempty"`
}

// EstimateHandler calcula estimativas sem sessão
type EstimateHandler struct {
	targets []model.PercentileTarget
}

// NewEstimateHandler cria o handler com os percentis configurados
func NewEstimateHandler(targets []model.PercentileTarget) *EstimateHandler {
	return &EstimateHandler{targets: targets}
}

// Estimate deriva tarefas e agregado
// @Summary      Stateless PERT estimate
// @Tags         estimate
// @Accept       json
// @Produce      json
// @Param        request body EstimateRequest true "Tasks"
// @Success      200 {object} model.Response
// @Failure      400 {object} model.ErrorResponse
// @Router       /api/v1/estimate [post]
func (h *EstimateHandler) Estimate(c *gin.Context) {
	var req EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Error:   "requisição inválida",
			Details: err.Error(),
		})
		return
	}

	if len(req.Tasks) > maxEstimateTasks {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Error:   "muitas tarefas",
			Details: fmt.Sprintf("máximo de %d tarefas por requisição", maxEstimateTasks),
		})
		return
	}

	targets := h.targets
	if len(req.Percentiles) > 0 {
		targets = make([]model.PercentileTarget, 0, len(req.Percentiles))
		for _, p := range req.Percentiles {
			target, err := estimation.NewPercentileTarget(p)
			if err != nil {
				respondError(c, "percentil inválido", err)
				return
			}
			targets = append(targets, target)
		}
	}

	tasks := make([]model.TaskEstimate, len(req.Tasks))
	for i, t := range req.Tasks {
		tasks[i] = model.TaskEstimate{
			ID:          strconv.Itoa(i),
			Name:        middleware.SanitizeTaskName(t.Name),
			Optimistic:  t.Optimistic.Float64(),
			MostLikely:  t.MostLikely.Float64(),
			Pessimistic: t.Pessimistic.Float64(),
		}
	}

	result := service.Estimate(tasks, targets)
	metrics.Get().IncrementEstimate(len(tasks))

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    result,
		Meta:    &model.Meta{TotalTasks: len(tasks)},
	})
}
