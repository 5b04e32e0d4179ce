// Package http assembles the router and server for the auth subsystem.
package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	oauthctl "github.com/beanfolio/roastery/internal/http/controllers/oauth"
	"github.com/beanfolio/roastery/internal/http/helpers"
	"github.com/beanfolio/roastery/internal/http/middlewares"
	"github.com/beanfolio/roastery/internal/jwt"
)

// RouterDeps is everything the router needs wired in.
type RouterDeps struct {
	Controllers *oauthctl.Controllers
	Issuer      *jwt.Issuer

	// Ping checks the backing store, for readiness.
	Ping func(ctx context.Context) error

	// Metrics is the /metrics handler; nil disables the endpoint.
	Metrics http.Handler
}

// NewRouter builds the chi router with the standard middleware stack.
func NewRouter(d RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(
		middlewares.WithRequestID(),
		middlewares.WithLogging(),
		middlewares.WithRecover(),
	)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if d.Ping != nil {
			if err := d.Ping(req.Context()); err != nil {
				helpers.WriteError(w, helpers.ErrServiceUnavailable.WithDetail("store unreachable"))
				return
			}
		}
		helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	c := d.Controllers
	r.Route("/oauth", func(r chi.Router) {
		r.Get("/providers", c.Providers.List)

		// A session on the start endpoint turns sign-in into account linking.
		r.With(middlewares.WithOptionalSessionAuth(d.Issuer)).
			Get("/{provider}/start", c.Start.Start)

		r.Get("/{provider}/callback", c.Callback.Callback)

		r.Group(func(r chi.Router) {
			r.Use(middlewares.WithSessionAuth(d.Issuer))
			r.Get("/accounts", c.Accounts.List)
			r.Delete("/accounts/{provider}", c.Accounts.Unlink)
		})
	})

	return r
}
