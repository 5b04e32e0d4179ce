// Package oauth contains the HTTP controllers for the provider sign-in
// endpoints. Controllers translate between the wire and the services; they
// hold no flow logic of their own.
package oauth

import (
	svc "github.com/beanfolio/roastery/internal/http/services/oauth"
	"github.com/beanfolio/roastery/internal/oauth"
)

// FrontendURLs is where completed and failed flows send the browser.
type FrontendURLs struct {
	// SuccessURL receives the session token after a completed flow.
	SuccessURL string
	// ErrorURL receives a machine-readable error code for failed flows.
	ErrorURL string
}

// Controllers bundles the oauth endpoint controllers.
type Controllers struct {
	Start     *StartController
	Callback  *CallbackController
	Accounts  *AccountsController
	Providers *ProvidersController
}

// Deps wires everything the controllers need.
type Deps struct {
	StartService    svc.StartService
	CallbackService svc.CallbackService
	AccountsService svc.AccountsService
	Registry        *oauth.Registry
	Frontend        FrontendURLs
}

// New creates the controller bundle.
func New(d Deps) *Controllers {
	return &Controllers{
		Start:     &StartController{service: d.StartService, frontend: d.Frontend},
		Callback:  &CallbackController{service: d.CallbackService, frontend: d.Frontend},
		Accounts:  &AccountsController{service: d.AccountsService},
		Providers: &ProvidersController{registry: d.Registry},
	}
}
