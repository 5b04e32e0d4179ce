package oauth

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/beanfolio/roastery/internal/http/helpers"
	svc "github.com/beanfolio/roastery/internal/http/services/oauth"
	"github.com/beanfolio/roastery/internal/observability/logger"
)

// CallbackController handles GET /oauth/{provider}/callback. The provider
// redirects the browser here; every outcome, good or bad, ends in another
// redirect back to the frontend.
type CallbackController struct {
	service  svc.CallbackService
	frontend FrontendURLs
}

func (c *CallbackController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CallbackController.Callback"))

	provider := chi.URLParam(r, "provider")
	q := r.URL.Query()

	result, err := c.service.Callback(ctx, svc.CallbackRequest{
		Provider:         provider,
		State:            strings.TrimSpace(q.Get("state")),
		Code:             strings.TrimSpace(q.Get("code")),
		ErrorCode:        strings.TrimSpace(q.Get("error")),
		ErrorDescription: strings.TrimSpace(q.Get("error_description")),
	})
	if err != nil {
		code := mapCallbackError(err)
		log.Warn("callback failed",
			logger.Provider(provider),
			logger.String("error_code", code),
			logger.Err(err),
		)
		c.redirectError(w, r, code, describeCallbackError(code))
		return
	}

	dest := c.frontend.SuccessURL
	if result.RedirectURL != "" {
		dest = result.RedirectURL
	}
	u, perr := url.Parse(dest)
	if perr != nil {
		helpers.WriteError(w, helpers.ErrInternalServerError)
		return
	}
	params := u.Query()
	params.Set("token", result.SessionToken)
	if result.NewUser {
		params.Set("new_user", "true")
	}
	if result.Linked {
		params.Set("linked", "true")
	}
	u.RawQuery = params.Encode()

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	http.Redirect(w, r, u.String(), http.StatusFound)
}

// redirectError sends the browser to the frontend error page with a stable
// machine-readable code plus a displayable description. Falls back to JSON
// when no error URL is configured.
func (c *CallbackController) redirectError(w http.ResponseWriter, r *http.Request, code, description string) {
	if c.frontend.ErrorURL == "" {
		helpers.WriteError(w, helpers.ErrBadRequest.WithDetail(code))
		return
	}
	u, err := url.Parse(c.frontend.ErrorURL)
	if err != nil {
		helpers.WriteError(w, helpers.ErrInternalServerError)
		return
	}
	q := u.Query()
	q.Set("error", code)
	if description != "" {
		q.Set("error_description", description)
	}
	u.RawQuery = q.Encode()

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	http.Redirect(w, r, u.String(), http.StatusFound)
}

// mapCallbackError flattens service errors into the codes the frontend
// switches on.
func mapCallbackError(err error) string {
	switch {
	case errors.Is(err, svc.ErrCallbackMissingState),
		errors.Is(err, svc.ErrCallbackMissingCode):
		return "invalid_request"
	case errors.Is(err, svc.ErrCallbackInvalidState):
		return "invalid_state"
	case errors.Is(err, svc.ErrCallbackProviderMismatch):
		return "provider_mismatch"
	case errors.Is(err, svc.ErrCallbackProviderDenied):
		return "provider_denied"
	case errors.Is(err, svc.ErrAccountAlreadyLinked):
		return "account_already_linked"
	case errors.Is(err, svc.ErrCallbackExchangeFailed):
		return "exchange_failed"
	case errors.Is(err, svc.ErrCallbackProfileFailed):
		return "profile_failed"
	default:
		return "server_error"
	}
}

// describeCallbackError pairs each code with text the frontend can show
// directly. Provider internals never surface here.
func describeCallbackError(code string) string {
	switch code {
	case "invalid_request":
		return "The sign-in response was incomplete. Please try again."
	case "invalid_state":
		return "This sign-in attempt expired or was already used. Please start over."
	case "provider_mismatch":
		return "The sign-in response did not match the requested provider."
	case "provider_denied":
		return "The provider declined the sign-in request."
	case "account_already_linked":
		return "This account is already linked to a different user."
	case "exchange_failed":
		return "The provider rejected the sign-in. Please try again."
	case "profile_failed":
		return "Your profile could not be loaded from the provider."
	default:
		return "Sign-in failed. Please try again."
	}
}
