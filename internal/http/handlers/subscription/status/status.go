// Package status implements the subscription status read endpoint.
package status

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/preplyhq/entitlement-service/internal/http/middlewarectx"
	"github.com/preplyhq/entitlement-service/internal/http/response"
	"github.com/preplyhq/entitlement-service/internal/lib/sl"
	"github.com/preplyhq/entitlement-service/internal/services/entitlement"
)

// Service resolves the current entitlement state for a user.
type Service interface {
	Status(ctx context.Context, userUID string) (*entitlement.Status, error)
}

// Handler serves subscription status requests.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New creates a Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Get subscription status
// @Description Returns the authenticated user's plan, billing cycle and pro flag. Users without a subscription row are on the free plan.
// @Tags Subscriptions
// @Produce  json
// @Success 200 {object} map[string]any "Current subscription"
// @Failure 401 {object} response.ErrorResponse "User not authenticated"
// @Failure 500 {object} response.ErrorResponse "Storage failure"
// @Router /subscriptions/status [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.status"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user UID not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user not authenticated"))
		return
	}

	st, err := h.service.Status(r.Context(), userUID)
	if err != nil {
		log.Error("failed to resolve subscription status", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to get subscription status"))
		return
	}

	render.JSON(w, r, response.OKWithData(st))
}
