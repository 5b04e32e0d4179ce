package oauth

import (
	"net/http"

	"github.com/beanfolio/roastery/internal/http/helpers"
	"github.com/beanfolio/roastery/internal/oauth"
)

// ProvidersController handles GET /oauth/providers.
type ProvidersController struct {
	registry *oauth.Registry
}

func (c *ProvidersController) List(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]any{
		"providers": c.registry.Supported(),
	})
}
