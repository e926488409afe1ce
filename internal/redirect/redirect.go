// Package redirect decides forced navigation from verification-status
// changes. It is a small state machine over (status, current screen,
// authenticated, fetched-once) that never fights the user's own navigation:
// it only moves away from screens that contradict the server's status, and it
// fires the one-time verified notification on the edge into VERIFIED, tracked
// by previous-status memory rather than a separate flag.
package redirect

import (
	"sync"

	"rentnest/appcore/internal/state"
)

// Screen names of the navigation stack.
const (
	ScreenPublicHome      = "PublicHome"
	ScreenRegister        = "Register"
	ScreenLogin           = "Login"
	ScreenOtp             = "Otp"
	ScreenLoginOtp        = "LoginOtp"
	ScreenHome            = "Home"
	ScreenKycIntro        = "KycIntro"
	ScreenKycForm         = "KycForm"
	ScreenKycPending      = "KycPending"
	ScreenKycRejected     = "KycRejected"
	ScreenForgotPassword  = "ForgotPassword"
	ScreenResetPassword   = "ResetPassword"
	ScreenProfileOverview = "ProfileOverview"
	ScreenProductDetails  = "ProductDetails"
)

// Navigator is the engine's only write surface to the UI.
type Navigator interface {
	// IsReady reports whether the navigation container is mounted.
	IsReady() bool
	// Navigate pushes the named screen with optional params.
	Navigate(screen string, params map[string]string)
	// Reset replaces the navigation stack with the given routes.
	Reset(routes []string)
	// CurrentRouteName returns the active screen name, or "" when unknown.
	CurrentRouteName() string
}

// Notifier shows a one-time user notification.
type Notifier func(title, message string)

// Engine evaluates navigation on every state change. It never returns an
// error; when the navigator is not ready the action is dropped for that
// evaluation, and a later state change re-evaluates (per-status routing is
// idempotent on status+screen, so nothing is lost).
type Engine struct {
	nav    Navigator
	notify Notifier

	mu   sync.Mutex
	prev state.KycStatus
}

// New returns an engine writing through nav and notify. Either may be nil;
// nil halves are skipped.
func New(nav Navigator, notify Notifier) *Engine {
	return &Engine{nav: nav, notify: notify}
}

// Attach subscribes the engine to the store. Returns the unsubscribe
// function.
func (e *Engine) Attach(store *state.Store) func() {
	return store.Subscribe(e.Evaluate)
}

// Evaluate runs one decision step against the snapshot. Synchronous; no two
// evaluations for the same mutation interleave (the store notifies on the
// mutating goroutine).
func (e *Engine) Evaluate(snap state.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := snap.Kyc.Status

	if !snap.Auth.IsAuthenticated {
		// The auth flow owns navigation while logged out.
		e.prev = status
		return
	}
	if !snap.KycFetched {
		// Do not act on default state before the server has been consulted.
		// prev is intentionally not advanced: the edge into VERIFIED must
		// still be seen by the first post-fetch evaluation.
		return
	}

	if e.prev != state.KycVerified && status == state.KycVerified {
		if e.notify != nil {
			e.notify("KYC Verified", "Your KYC is verified. All features are now unlocked.")
		}
		if e.nav != nil && e.nav.IsReady() {
			e.nav.Reset([]string{ScreenHome})
		}
		e.prev = status
		return
	}

	e.dispatch(status)
	e.prev = status
}

// dispatch routes by status, skipping when the current screen is already
// allowed for it.
func (e *Engine) dispatch(status state.KycStatus) {
	if e.nav == nil || !e.nav.IsReady() {
		return
	}
	current := e.nav.CurrentRouteName()
	switch status {
	case state.KycNotSubmitted:
		if current != ScreenKycIntro && current != ScreenKycForm {
			e.nav.Navigate(ScreenKycIntro, nil)
		}
	case state.KycPending:
		if current != ScreenKycPending {
			e.nav.Navigate(ScreenKycPending, nil)
		}
	case state.KycRejected:
		if current != ScreenKycRejected {
			e.nav.Navigate(ScreenKycRejected, nil)
		}
	case state.KycVerified:
		// Handled by the edge rule; steady-state VERIFIED needs no routing.
	}
}
