package handler

import (
	"context"

	"github.com/cleberrangel/pert-estimator-api/internal/logger"
	"github.com/cleberrangel/pert-estimator-api/internal/model"
	"github.com/cleberrangel/pert-estimator-api/internal/render"
	"github.com/cleberrangel/pert-estimator-api/internal/service"
	"github.com/cleberrangel/pert-estimator-api/internal/session"
	"github.com/cleberrangel/pert-estimator-api/internal/websocket"
)

// LiveUpdates retorna o hook que envia o estado renderizado aos WebSockets da sessão
func LiveUpdates(renderer *render.Renderer, hub *websocket.Hub) service.RenderHook {
	return func(ctx context.Context, action model.Action, snap session.Snapshot) {
		if hub.GetSessionConnectionCount(snap.ID) == 0 {
			return
		}
		state, err := renderer.State(action, snap)
		if err != nil {
			logger.Get(ctx).Error().Err(err).Msg("Erro ao renderizar estado")
			return
		}
		hub.SendState(snap.ID, state)
	}
}
