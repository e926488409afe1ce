// Package session orchestrates the authenticated-session lifecycle: OTP
// verification into the store, KYC submission with optimistic status update,
// and logout, which is the single place that tears everything down (poller,
// auth, KYC mirror, profile, persisted draft).
package session

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"rentnest/appcore/internal/api"
	"rentnest/appcore/internal/draft"
	"rentnest/appcore/internal/security"
	"rentnest/appcore/internal/state"
)

// Backend is the slice of the API client the manager needs.
type Backend interface {
	VerifyOTP(ctx context.Context, email, code string) (*api.AuthResult, error)
	SubmitKycManual(ctx context.Context, token, aadhaar, pan string) (map[string]any, error)
	SubmitKycUpload(ctx context.Context, token, aadhaar, pan, filename string, document io.Reader) (map[string]any, error)
}

// Drafts is the slice of the draft store the manager needs.
type Drafts interface {
	Clear(ctx context.Context) error
}

// StatusLoop is the poller lifecycle bound to the session.
type StatusLoop interface {
	Start()
	Stop()
}

// Rejection is a recoverable submission failure: field errors to merge into
// the form plus a summary message.
type Rejection struct {
	FieldErrors map[string]string
	Message     string
}

// Manager ties the store, backend, poller, and draft store together.
type Manager struct {
	store   *state.Store
	backend Backend
	loop    StatusLoop
	drafts  Drafts
	nowF    func() time.Time
	tracer  trace.Tracer

	// OpenDocument resolves an upload-mode file reference to its content.
	// Defaults to opening local paths (file:// prefix tolerated).
	OpenDocument func(uri string) (io.ReadCloser, error)
}

// NewManager returns a manager with the given collaborators. loop and drafts
// may be nil in contexts that do not poll or persist drafts.
func NewManager(store *state.Store, backend Backend, loop StatusLoop, drafts Drafts) *Manager {
	return &Manager{
		store:   store,
		backend: backend,
		loop:    loop,
		drafts:  drafts,
		nowF:    time.Now,
		tracer:  otel.Tracer("rentnest/appcore/internal/session"),
		OpenDocument: func(uri string) (io.ReadCloser, error) {
			return os.Open(strings.TrimPrefix(uri, "file://"))
		},
	}
}

// VerifyOTP exchanges the one-time code for session credentials, populates
// AuthState, and starts the status polling loop. When the response omits a
// user id but carries a token, the id is read from the token's claims.
func (m *Manager) VerifyOTP(ctx context.Context, email, code string) error {
	res, err := m.backend.VerifyOTP(ctx, email, code)
	if err != nil {
		return err
	}
	userID := res.UserID
	if userID == "" && res.AccessToken != "" {
		userID = security.UserIDFromToken(res.AccessToken)
	}
	if res.AccessToken == "" {
		log.Printf("session: verify-otp returned no access token; relying on cookie session")
	}
	m.store.SetAuth(state.AuthPatch{
		UserID:       state.Str(userID),
		Email:        state.Str(email),
		Token:        state.Str(res.AccessToken),
		RefreshToken: state.Str(res.RefreshToken),
	})
	if m.loop != nil {
		m.loop.Start()
	}
	return nil
}

// SubmitDraft submits the draft. On success it optimistically marks the KYC
// mirror PENDING (the next poll confirms it) and deletes the persisted
// draft. A validation failure or server rejection returns a Rejection and no
// error; transport and auth failures return an error (ErrAuthRequired is
// surfaced as an actionable login prompt by the caller).
func (m *Manager) SubmitDraft(ctx context.Context, d draft.Draft) (*Rejection, error) {
	if errs := d.SubmitErrors(); len(errs) > 0 {
		return &Rejection{FieldErrors: errs}, nil
	}
	ctx, span := m.tracer.Start(ctx, "session.submit_kyc")
	defer span.End()
	token := m.store.Snapshot().Auth.Token

	var err error
	if d.Mode == draft.ModeUpload {
		err = m.submitUpload(ctx, token, d)
	} else {
		_, err = m.backend.SubmitKycManual(ctx, token, d.Aadhaar, d.PAN)
	}
	if err != nil {
		span.RecordError(err)
		if apiErr, ok := api.IsAPIError(err); ok {
			fields, message := draft.MergeServerErrors(nil, apiErr.Payload)
			if message == "" {
				message = fmt.Sprintf("Submission failed (%d)", apiErr.Status)
			}
			return &Rejection{FieldErrors: fields, Message: message}, nil
		}
		return nil, err
	}

	m.store.MergeKyc(state.KycPatch{
		Status:      state.KycPending.Ptr(),
		SubmittedAt: state.Str(m.nowF().UTC().Format(time.RFC3339)),
	})
	if m.drafts != nil {
		if err := m.drafts.Clear(ctx); err != nil {
			log.Printf("session: clearing draft after submission: %v", err)
		}
	}
	return nil, nil
}

func (m *Manager) submitUpload(ctx context.Context, token string, d draft.Draft) error {
	doc, err := m.OpenDocument(d.FileURI)
	if err != nil {
		return fmt.Errorf("open document %q: %w", d.FileURI, err)
	}
	defer doc.Close()
	_, err = m.backend.SubmitKycUpload(ctx, token, d.Aadhaar, d.PAN, path.Base(d.FileURI), doc)
	return err
}

// Logout tears the session down: stops the poller, clears auth, resets the
// KYC mirror and profile, and deletes the persisted draft. Individual
// cleanup failures are logged; logout always completes locally.
func (m *Manager) Logout(ctx context.Context) error {
	if m.loop != nil {
		m.loop.Stop()
	}
	m.store.ClearAuth()
	m.store.ResetKyc()
	m.store.ClearProfile()
	if m.drafts != nil {
		if err := m.drafts.Clear(ctx); err != nil {
			log.Printf("session: clearing draft on logout: %v", err)
			return fmt.Errorf("logout: clear draft: %w", err)
		}
	}
	return nil
}
