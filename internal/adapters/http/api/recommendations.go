package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	service "github.com/okian/inferd/internal/app"
	"github.com/okian/inferd/internal/domain/ranking"
	"github.com/okian/inferd/pkg/logger"
)

// RecommendationsHandler handles GET /recommendations/{user_id}.
type RecommendationsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewRecommendationsHandler creates a new recommendations handler.
func NewRecommendationsHandler(deps Dependencies) *RecommendationsHandler {
	return &RecommendationsHandler{deps: deps, logger: logger.Named("api")}
}

// HandleGetRecommendations returns a JSON array of up to N titles, most
// preferred first.
func (h *RecommendationsHandler) HandleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw := r.PathValue("user_id")
	user, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, CodeInvalidUserID, "user_id must be an integer.")
		return
	}

	if !h.deps.Ready() {
		writeError(w, http.StatusInternalServerError, CodeNotReady, "Model service not yet initialized.")
		return
	}

	titles, err := h.deps.Recommend(ctx, user)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, titles)
	case errors.Is(err, ranking.ErrUserNotFound):
		writeError(w, http.StatusNotFound, CodeUserNotFound,
			fmt.Sprintf("User ID %d not found or inactive in the training data.", user))
	case errors.Is(err, service.ErrNotReady):
		writeError(w, http.StatusInternalServerError, CodeNotReady, "Model service not yet initialized.")
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn(ctx, "recommendation timed out", logger.Int64("user", user), logger.Error(err))
		writeError(w, http.StatusGatewayTimeout, CodeTimeout, "Recommendation generation timed out.")
	default:
		h.logger.Error(ctx, "recommendation failed", logger.Int64("user", user), logger.Error(err))
		writeError(w, http.StatusInternalServerError, CodeInternal,
			"Internal server error during recommendation generation.")
	}
}
