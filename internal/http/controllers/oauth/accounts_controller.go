package oauth

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/beanfolio/roastery/internal/http/helpers"
	"github.com/beanfolio/roastery/internal/http/middlewares"
	svc "github.com/beanfolio/roastery/internal/http/services/oauth"
	"github.com/beanfolio/roastery/internal/observability/logger"
)

// AccountsController handles the authenticated linked-account endpoints.
type AccountsController struct {
	service svc.AccountsService
}

// List handles GET /oauth/accounts.
func (c *AccountsController) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middlewares.GetUserID(ctx)

	accounts, err := c.service.List(ctx, userID)
	if err != nil {
		logger.From(ctx).Error("list accounts failed", logger.UserID(userID), logger.Err(err))
		helpers.WriteError(w, helpers.ErrInternalServerError)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

// Unlink handles DELETE /oauth/accounts/{provider}.
func (c *AccountsController) Unlink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middlewares.GetUserID(ctx)
	provider := chi.URLParam(r, "provider")

	err := c.service.Unlink(ctx, userID, provider)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, svc.ErrUnlinkNotLinked):
		helpers.WriteError(w, helpers.ErrNotFound.WithDetail("provider not linked"))
	case errors.Is(err, svc.ErrUnlinkOnlyAuthMethod):
		helpers.WriteError(w, &helpers.HTTPError{
			Code:    "last_auth_method",
			Message: "Cannot unlink the only sign-in method",
			Status:  http.StatusConflict,
		})
	default:
		logger.From(ctx).Error("unlink failed",
			logger.UserID(userID),
			logger.Provider(provider),
			logger.Err(err),
		)
		helpers.WriteError(w, helpers.ErrInternalServerError)
	}
}
