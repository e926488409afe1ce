// Package api is the REST client for the marketplace backend's auth and KYC
// endpoints. It owns the wire shapes only; the status payload is handed to
// the kyc normalizer untouched, and token extraction tolerates the alternate
// key names the backend has shipped under.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// Client calls the marketplace backend. The zero value is not usable; use
// NewClient.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a client for the API at baseURL (e.g.
// https://api.example.com/api/v1).
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

// AuthResult is the outcome of a successful OTP verification. Tokens and
// user id may be empty when the backend relies on session cookies instead.
type AuthResult struct {
	UserID       string
	AccessToken  string
	RefreshToken string
}

// Register starts registration (or resends the registration OTP) for email.
func (c *Client) Register(ctx context.Context, email string) error {
	_, err := c.postJSON(ctx, "/auth/register/", "", map[string]any{"email": email})
	return err
}

// ResendOTP requests a fresh OTP for the given purpose (e.g. "login",
// "password_reset").
func (c *Client) ResendOTP(ctx context.Context, email, purpose string) error {
	body := map[string]any{"purpose": purpose}
	if email != "" {
		body["email"] = email
	}
	_, err := c.postJSON(ctx, "/auth/resend-otp/", "", body)
	return err
}

// VerifyOTP verifies the one-time code for email and extracts the session
// credentials. The access token is read from access, accessToken, token, or
// authToken; the refresh token from refresh or refreshToken; the user id
// from userId, id, or user.id.
func (c *Client) VerifyOTP(ctx context.Context, email, code string) (*AuthResult, error) {
	payload, err := c.postJSON(ctx, "/auth/verify-otp/", "", map[string]any{
		"email":    email,
		"otp_code": code,
	})
	if err != nil {
		return nil, err
	}
	res := &AuthResult{
		AccessToken:  firstKey(payload, "access", "accessToken", "token", "authToken"),
		RefreshToken: firstKey(payload, "refresh", "refreshToken"),
		UserID:       firstKey(payload, "userId", "id"),
	}
	if res.UserID == "" {
		if user, ok := payload["user"].(map[string]any); ok {
			res.UserID = firstKey(user, "id")
		}
	}
	return res, nil
}

// FetchKycStatus fetches the raw verification-status payload. token is
// optional; without it the backend may still accept a cookie session. An
// unparseable body yields a nil payload, not an error.
func (c *Client) FetchKycStatus(ctx context.Context, token string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/auth/status/", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	defer resp.Body.Close()
	payload := decodeBody(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Payload: payload}
	}
	return payload, nil
}

// ProbeSession checks whether the backend accepts the current cookie session
// without a bearer token. Returns ErrAuthRequired when it does not.
func (c *Client) ProbeSession(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/auth/status/", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthRequired, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ErrAuthRequired
	}
	return nil
}

// SubmitKycManual submits the two identifiers as JSON. With no token it
// first probes the cookie session and returns ErrAuthRequired if that fails.
// A rejection's payload carries per-field message arrays for the caller to
// merge into the draft.
func (c *Client) SubmitKycManual(ctx context.Context, token, aadhaar, pan string) (map[string]any, error) {
	if token == "" {
		if err := c.ProbeSession(ctx); err != nil {
			return nil, err
		}
	}
	return c.postJSON(ctx, "/auth/kyc/submit/", token, map[string]any{
		"aadhaar_identifier": aadhaar,
		"pan_identifier":     pan,
	})
}

// SubmitKycUpload submits a document (and any filled identifiers) as
// multipart form data. The document part's MIME type is inferred from the
// filename extension, defaulting to JPEG. Upload requires a token.
func (c *Client) SubmitKycUpload(ctx context.Context, token, aadhaar, pan, filename string, document io.Reader) (map[string]any, error) {
	if token == "" {
		return nil, ErrAuthRequired
	}
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if aadhaar != "" {
		if err := form.WriteField("aadhaar_identifier", aadhaar); err != nil {
			return nil, err
		}
	}
	if pan != "" {
		if err := form.WriteField("pan_identifier", pan); err != nil {
			return nil, err
		}
	}
	name := path.Base(filename)
	if name == "" || name == "." || name == "/" {
		name = "document.jpg"
	}
	header := make(map[string][]string)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="document"; filename="%s"`, name)}
	header["Content-Type"] = []string{documentMIME(name)}
	part, err := form.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, document); err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/auth/kyc/submit/", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	defer resp.Body.Close()
	payload := decodeBody(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Payload: payload}
	}
	return payload, nil
}

// RequestPasswordReset asks the backend to send a reset code to email.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	_, err := c.postJSON(ctx, "/auth/password/reset/request/", "", map[string]any{"email": email})
	return err
}

// ConfirmPasswordReset completes a password reset with the emailed code.
func (c *Client) ConfirmPasswordReset(ctx context.Context, email, otp, newPassword string) error {
	_, err := c.postJSON(ctx, "/auth/password/reset/confirm/", "", map[string]any{
		"email":        email,
		"otp_code":     otp,
		"new_password": newPassword,
	})
	return err
}

// postJSON posts body as JSON and returns the decoded response payload.
// Non-2xx responses become *APIError carrying the decoded body.
func (c *Client) postJSON(ctx context.Context, apiPath, token string, body map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+apiPath, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", apiPath, err)
	}
	defer resp.Body.Close()
	payload := decodeBody(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Payload: payload}
	}
	return payload, nil
}

// decodeBody decodes a JSON object body; any parse failure yields nil
// (malformed responses are treated as absence of data).
func decodeBody(r io.Reader) map[string]any {
	var payload map[string]any
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil
	}
	return payload
}

// documentMIME infers the upload part's MIME type from the filename
// extension. Anything that is not PNG is sent as JPEG.
func documentMIME(filename string) string {
	if strings.EqualFold(path.Ext(filename), ".png") {
		return "image/png"
	}
	return "image/jpeg"
}

// firstKey returns the first key present with a non-empty string value.
func firstKey(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
