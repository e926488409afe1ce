// Package deeplink routes inbound URLs carrying a password-reset token to
// the reset screen. Extraction is regex-based and total: a URL without a
// token, or with one that fails percent-decoding, yields nothing.
package deeplink

import (
	"context"
	"net/url"
	"regexp"

	"rentnest/appcore/internal/redirect"
)

var tokenRe = regexp.MustCompile(`[?&]token=([^&]+)`)

// ExtractToken returns the percent-decoded token query parameter from
// rawURL, or "" when absent or undecodable. It never fails; decoding failure
// is treated as absence.
func ExtractToken(rawURL string) string {
	m := tokenRe.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	decoded, err := url.QueryUnescape(m[1])
	if err != nil {
		return ""
	}
	return decoded
}

// Resolver forwards reset tokens from inbound URLs to the navigator. Each
// inbound URL triggers its own navigation; the reset screen is idempotent to
// re-entry with a new token, so no deduplication is needed.
type Resolver struct {
	nav redirect.Navigator
}

// NewResolver returns a resolver writing through nav.
func NewResolver(nav redirect.Navigator) *Resolver {
	return &Resolver{nav: nav}
}

// HandleURL extracts a token from rawURL and, when present and the navigator
// is ready, navigates to the password-reset screen carrying it. Reports
// whether a navigation was issued.
func (r *Resolver) HandleURL(rawURL string) bool {
	token := ExtractToken(rawURL)
	if token == "" || r.nav == nil || !r.nav.IsReady() {
		return false
	}
	r.nav.Navigate(redirect.ScreenResetPassword, map[string]string{"token": token})
	return true
}

// Listen handles the process's initial URL (may be empty) and then every URL
// from events until the context is cancelled or the channel closes.
func (r *Resolver) Listen(ctx context.Context, initialURL string, events <-chan string) {
	if initialURL != "" {
		r.HandleURL(initialURL)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case rawURL, ok := <-events:
			if !ok {
				return
			}
			r.HandleURL(rawURL)
		}
	}
}
