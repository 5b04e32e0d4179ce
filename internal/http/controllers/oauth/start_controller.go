package oauth

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/beanfolio/roastery/internal/http/helpers"
	"github.com/beanfolio/roastery/internal/http/middlewares"
	svc "github.com/beanfolio/roastery/internal/http/services/oauth"
	"github.com/beanfolio/roastery/internal/observability/logger"
)

// StartController handles GET /oauth/{provider}/start.
type StartController struct {
	service  svc.StartService
	frontend FrontendURLs
}

func (c *StartController) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("StartController.Start"))

	provider := chi.URLParam(r, "provider")
	if provider == "" {
		helpers.WriteError(w, helpers.ErrBadRequest.WithDetail("missing provider"))
		return
	}

	redirectURI := strings.TrimSpace(r.URL.Query().Get("redirect_uri"))
	if redirectURI != "" && !c.sameOriginAsFrontend(redirectURI) {
		log.Warn("redirect_uri rejected", logger.String("redirect_uri", redirectURI))
		helpers.WriteError(w, helpers.ErrBadRequest.WithDetail("redirect_uri not allowed"))
		return
	}

	// A session alone does not make this a link flow: a signed-in user may
	// re-authenticate normally. Link intent is explicit, via link=true.
	linkToUserID := ""
	if wantLink, _ := strconv.ParseBool(r.URL.Query().Get("link")); wantLink {
		linkToUserID = middlewares.GetUserID(ctx)
		if linkToUserID == "" {
			helpers.WriteError(w, helpers.ErrUnauthorized.WithDetail("linking requires a session"))
			return
		}
	}

	result, err := c.service.Start(ctx, svc.StartRequest{
		Provider:     provider,
		LinkToUserID: linkToUserID,
		RedirectURI:  redirectURI,
		RemoteAddr:   clientIP(r),
		UserAgent:    r.UserAgent(),
	})
	if err != nil {
		log.Warn("start failed", logger.Provider(provider), logger.Err(err))
		if errors.Is(err, svc.ErrStartProviderUnknown) {
			helpers.WriteError(w, helpers.ErrNotFound.WithDetail("unknown provider"))
			return
		}
		helpers.WriteError(w, helpers.ErrInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, result.RedirectURL, http.StatusFound)
}

// sameOriginAsFrontend only allows redirect overrides back into the app that
// the success URL belongs to. Anything else is an open-redirect vector.
func (c *StartController) sameOriginAsFrontend(raw string) bool {
	target, err := url.Parse(raw)
	if err != nil || target.Host == "" {
		return false
	}
	front, err := url.Parse(c.frontend.SuccessURL)
	if err != nil {
		return false
	}
	return target.Scheme == front.Scheme && target.Host == front.Host
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}
	return host
}
