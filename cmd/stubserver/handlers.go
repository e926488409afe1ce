package main

import (
	"encoding/json"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	aadhaarRe = regexp.MustCompile(`^[0-9]{12}$`)
	panRe     = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
)

// handlers serves the auth and KYC endpoints over the in-memory store.
type handlers struct {
	store     *memStore
	jwtSecret []byte
	devMode   bool
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("stubserver: encode response: %v", err)
	}
}

func decodeJSON(r *http.Request) map[string]any {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return map[string]any{}
	}
	return body
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// authedUser resolves the request's user from a bearer token or the session
// cookie, in that order.
func (h *handlers) authedUser(r *http.Request) (*user, bool) {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		raw := strings.TrimPrefix(auth, "Bearer ")
		claims := jwt.MapClaims{}
		_, err := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})).ParseWithClaims(raw, claims,
			func(t *jwt.Token) (any, error) { return h.jwtSecret, nil })
		if err == nil {
			if email, _ := claims["email"].(string); email != "" {
				return h.store.userByEmail(email)
			}
		}
	}
	if c, err := r.Cookie("sessionid"); err == nil {
		if email, ok := h.store.sessionEmail(c.Value); ok {
			return h.store.userByEmail(email)
		}
	}
	return nil, false
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	body := decodeJSON(r)
	email := str(body, "email")
	if email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"email": []string{"This field is required."}})
		return
	}
	h.store.upsertUser(email)
	code, err := h.store.issueOTP(email, "login")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": "could not issue OTP"})
		return
	}
	log.Printf("stubserver: OTP for %s is %s", email, code)
	writeJSON(w, http.StatusOK, map[string]any{"detail": "OTP sent"})
}

func (h *handlers) resendOTP(w http.ResponseWriter, r *http.Request) {
	body := decodeJSON(r)
	email, purpose := str(body, "email"), str(body, "purpose")
	if purpose == "" {
		purpose = "login"
	}
	if _, ok := h.store.userByEmail(email); !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "unknown email"})
		return
	}
	code, err := h.store.issueOTP(email, purpose)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": "could not issue OTP"})
		return
	}
	log.Printf("stubserver: OTP (%s) for %s is %s", purpose, email, code)
	writeJSON(w, http.StatusOK, map[string]any{"detail": "OTP sent"})
}

func (h *handlers) verifyOTP(w http.ResponseWriter, r *http.Request) {
	body := decodeJSON(r)
	email, code := str(body, "email"), str(body, "otp_code")
	u, ok := h.store.userByEmail(email)
	if !ok || !h.store.checkOTP(email, "login", code) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Invalid or expired OTP."})
		return
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": u.ID,
		"email":   u.Email,
		"sub":     u.ID,
		"iat":     now.Unix(),
		"exp":     now.Add(24 * time.Hour).Unix(),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": "could not sign token"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name: "sessionid", Value: h.store.newSession(email),
		Path: "/", HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"access":  access,
		"refresh": "stub-refresh-" + u.ID,
		"user":    map[string]any{"id": u.ID, "email": u.Email},
	})
}

// status returns the user's verification state, rotating through the wire
// shapes the real backend has shipped so clients keep tolerating all of them.
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	u, ok := h.authedUser(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Authentication credentials were not provided."})
		return
	}
	h.store.mu.Lock()
	shape := u.statusFetches % 3
	u.statusFetches++
	status, submitted, reviewed, reason := u.KycStatus, u.SubmittedAt, u.ReviewedAt, u.RejectionReason
	h.store.mu.Unlock()

	switch shape {
	case 0:
		writeJSON(w, http.StatusOK, map[string]any{
			"kyc_status": map[string]any{
				"status":           status,
				"submitted_at":     submitted,
				"verified_at":      reviewed,
				"rejection_reason": reason,
			},
		})
	case 1:
		writeJSON(w, http.StatusOK, map[string]any{
			"kycStatus": map[string]any{
				"status":          status,
				"submittedAt":     submitted,
				"reviewedAt":      reviewed,
				"rejectionReason": reason,
			},
		})
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"status":           status,
			"submitted_at":     submitted,
			"verified_at":      reviewed,
			"rejection_reason": reason,
		})
	}
}

func (h *handlers) submitKyc(w http.ResponseWriter, r *http.Request) {
	u, ok := h.authedUser(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Authentication credentials were not provided."})
		return
	}

	var aadhaar, pan string
	hasDocument := false
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "malformed form"})
			return
		}
		aadhaar = r.FormValue("aadhaar_identifier")
		pan = r.FormValue("pan_identifier")
		if _, _, err := r.FormFile("document"); err == nil {
			hasDocument = true
		}
	} else {
		body := decodeJSON(r)
		aadhaar, pan = str(body, "aadhaar_identifier"), str(body, "pan_identifier")
	}

	fieldErrs := map[string]any{}
	if !hasDocument {
		if !aadhaarRe.MatchString(aadhaar) {
			fieldErrs["aadhaar_identifier"] = []string{"Enter a valid 12-digit Aadhaar number."}
		}
		if !panRe.MatchString(pan) {
			fieldErrs["pan_identifier"] = []string{"Enter a valid PAN (e.g. ABCDE1234F)."}
		}
	}
	if len(fieldErrs) > 0 {
		writeJSON(w, http.StatusBadRequest, fieldErrs)
		return
	}

	h.store.mu.Lock()
	u.KycStatus = "PENDING"
	u.SubmittedAt = h.store.nowF().Format(time.RFC3339)
	u.ReviewedAt = ""
	u.RejectionReason = ""
	h.store.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"detail": "KYC submitted", "status": "PENDING"})
}

func (h *handlers) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	body := decodeJSON(r)
	email := str(body, "email")
	if _, ok := h.store.userByEmail(email); !ok {
		// Same response for unknown emails; do not leak registration state.
		writeJSON(w, http.StatusOK, map[string]any{"detail": "If the email exists, a reset code was sent."})
		return
	}
	code, err := h.store.issueOTP(email, "password_reset")
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": "could not issue OTP"})
		return
	}
	log.Printf("stubserver: password reset OTP for %s is %s", email, code)
	writeJSON(w, http.StatusOK, map[string]any{"detail": "If the email exists, a reset code was sent."})
}

func (h *handlers) confirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	body := decodeJSON(r)
	email, code, newPassword := str(body, "email"), str(body, "otp_code"), str(body, "new_password")
	if len(newPassword) < 8 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"new_password": []string{"Password must be at least 8 characters."}})
		return
	}
	if !h.store.checkOTP(email, "password_reset", code) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "Invalid or expired OTP."})
		return
	}
	if err := h.store.setPassword(email, newPassword); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"detail": "Password updated."})
}

// devOTP exposes pending OTP codes so flows can be driven without an SMS or
// email channel. Disabled outside dev mode.
func (h *handlers) devOTP(w http.ResponseWriter, r *http.Request) {
	if !h.devMode {
		http.NotFound(w, r)
		return
	}
	email := r.URL.Query().Get("email")
	purpose := r.URL.Query().Get("purpose")
	if purpose == "" {
		purpose = "login"
	}
	code, ok := h.store.peekOTP(email, purpose)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "no pending OTP"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"email": email, "purpose": purpose, "otp": code})
}

// devDecideKyc flips a user's verification outcome so the poller's transitions
// can be exercised. Disabled outside dev mode.
func (h *handlers) devDecideKyc(w http.ResponseWriter, r *http.Request) {
	if !h.devMode {
		http.NotFound(w, r)
		return
	}
	body := decodeJSON(r)
	email, status := str(body, "email"), str(body, "status")
	if status != "VERIFIED" && status != "REJECTED" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"status": []string{"Must be VERIFIED or REJECTED."}})
		return
	}
	u, ok := h.store.userByEmail(email)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "unknown email"})
		return
	}
	h.store.mu.Lock()
	u.KycStatus = status
	u.ReviewedAt = h.store.nowF().Format(time.RFC3339)
	if status == "REJECTED" {
		u.RejectionReason = str(body, "reason")
		if u.RejectionReason == "" {
			u.RejectionReason = "Document could not be verified."
		}
	} else {
		u.RejectionReason = ""
	}
	h.store.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"email": email, "status": status})
}
