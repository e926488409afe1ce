package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"rentnest/appcore/internal/kyc"
	"rentnest/appcore/internal/state"
)

func newTestHandlers() *handlers {
	return &handlers{store: newMemStore(), jwtSecret: []byte("test-secret"), devMode: true}
}

func fetchStatus(t *testing.T, h *handlers, sessionID string) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/status/", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: sessionID})
	rec := httptest.NewRecorder()
	h.status(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode status body: %v", err)
	}
	return payload
}

func TestStatus_AllShapesRoundTripThroughNormalizer(t *testing.T) {
	h := newTestHandlers()
	u := h.store.upsertUser("a@b.c")
	h.store.mu.Lock()
	u.KycStatus = "VERIFIED"
	u.SubmittedAt = "2025-03-01T10:00:00Z"
	u.ReviewedAt = "2025-03-02T11:00:00Z"
	h.store.mu.Unlock()
	sessionID := h.store.newSession("a@b.c")

	for i := 0; i < 3; i++ {
		payload := fetchStatus(t, h, sessionID)
		patch := kyc.Normalize(payload)
		if patch.Status == nil || *patch.Status != state.KycVerified {
			t.Errorf("shape %d: Status = %v, want VERIFIED", i, patch.Status)
		}
		if patch.SubmittedAt == nil || *patch.SubmittedAt != "2025-03-01T10:00:00Z" {
			t.Errorf("shape %d: SubmittedAt = %v, want stored value", i, patch.SubmittedAt)
		}
		if patch.ReviewedAt == nil || *patch.ReviewedAt != "2025-03-02T11:00:00Z" {
			t.Errorf("shape %d: ReviewedAt = %v, want stored review timestamp", i, patch.ReviewedAt)
		}
	}
}

func TestStatus_RejectionReasonSurvivesAllShapes(t *testing.T) {
	h := newTestHandlers()
	u := h.store.upsertUser("a@b.c")
	h.store.mu.Lock()
	u.KycStatus = "REJECTED"
	u.RejectionReason = "Document could not be verified."
	h.store.mu.Unlock()
	sessionID := h.store.newSession("a@b.c")

	for i := 0; i < 3; i++ {
		patch := kyc.Normalize(fetchStatus(t, h, sessionID))
		if patch.Status == nil || *patch.Status != state.KycRejected {
			t.Errorf("shape %d: Status = %v, want REJECTED", i, patch.Status)
		}
		if patch.RejectionReason == nil || *patch.RejectionReason != "Document could not be verified." {
			t.Errorf("shape %d: RejectionReason = %v, want stored reason", i, patch.RejectionReason)
		}
	}
}

func TestStatus_Unauthenticated(t *testing.T) {
	h := newTestHandlers()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/status/", nil)
	rec := httptest.NewRecorder()
	h.status(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
