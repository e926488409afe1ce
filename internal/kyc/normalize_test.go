package kyc

import (
	"encoding/json"
	"reflect"
	"testing"

	"rentnest/appcore/internal/state"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal %q: %v", raw, err)
	}
	return m
}

func TestNormalize_NilPayloadYieldsDefaults(t *testing.T) {
	patch := Normalize(nil)
	if patch.Status == nil || *patch.Status != state.KycNotSubmitted {
		t.Fatalf("Status = %v, want NOT_SUBMITTED", patch.Status)
	}
	if patch.SubmittedAt != nil || patch.ReviewedAt != nil || patch.RejectionReason != nil {
		t.Errorf("optional fields should be nil for empty payload: %+v", patch)
	}
	got := patch.Apply(state.KycState{})
	want := state.KycState{Status: state.KycNotSubmitted}
	if got != want {
		t.Errorf("applied state = %+v, want %+v", got, want)
	}
}

func TestNormalize_EmptyObjectYieldsDefaults(t *testing.T) {
	patch := Normalize(map[string]any{})
	if *patch.Status != state.KycNotSubmitted {
		t.Errorf("Status = %q, want NOT_SUBMITTED", *patch.Status)
	}
}

func TestNormalize_NestedSnakeCase(t *testing.T) {
	m := decode(t, `{
		"status": "pending_kyc",
		"kyc_status": {"status": "submitted", "submitted_at": "2025-03-01T10:00:00Z", "verified_at": null}
	}`)
	patch := Normalize(m)
	if *patch.Status != state.KycPending {
		t.Errorf("Status = %q, want PENDING", *patch.Status)
	}
	if patch.SubmittedAt == nil || *patch.SubmittedAt != "2025-03-01T10:00:00Z" {
		t.Errorf("SubmittedAt = %v, want nested submitted_at", patch.SubmittedAt)
	}
	if patch.ReviewedAt != nil {
		t.Errorf("ReviewedAt = %v, want nil (null in payload)", patch.ReviewedAt)
	}
}

func TestNormalize_NestedPreferredOverTopLevel(t *testing.T) {
	m := decode(t, `{
		"status": "rejected",
		"kyc_status": {"status": "verified", "verified_at": "2025-04-01T00:00:00Z"}
	}`)
	patch := Normalize(m)
	if *patch.Status != state.KycVerified {
		t.Errorf("Status = %q, want VERIFIED (nested wins over top-level)", *patch.Status)
	}
	if patch.ReviewedAt == nil || *patch.ReviewedAt != "2025-04-01T00:00:00Z" {
		t.Errorf("ReviewedAt = %v, want nested verified_at", patch.ReviewedAt)
	}
}

func TestNormalize_NestedStateKey(t *testing.T) {
	m := decode(t, `{"kycStatus": {"state": "declined", "rejection_reason": "blurry scan"}}`)
	patch := Normalize(m)
	if *patch.Status != state.KycRejected {
		t.Errorf("Status = %q, want REJECTED", *patch.Status)
	}
	if patch.RejectionReason == nil || *patch.RejectionReason != "blurry scan" {
		t.Errorf("RejectionReason = %v, want %q", patch.RejectionReason, "blurry scan")
	}
}

func TestNormalize_FlatCamelCase(t *testing.T) {
	m := decode(t, `{"kycStatus": "PENDING", "submittedAt": "2025-03-02T08:00:00Z"}`)
	patch := Normalize(m)
	if *patch.Status != state.KycPending {
		t.Errorf("Status = %q, want PENDING", *patch.Status)
	}
	if patch.SubmittedAt == nil || *patch.SubmittedAt != "2025-03-02T08:00:00Z" {
		t.Errorf("SubmittedAt = %v, want camelCase fallback", patch.SubmittedAt)
	}
}

func TestNormalize_TopLevelTokens(t *testing.T) {
	cases := []struct {
		token string
		want  state.KycStatus
	}{
		{"pending_kyc", state.KycPending},
		{"submitted", state.KycPending},
		{"verified", state.KycVerified},
		{"kyc_verified", state.KycVerified},
		{"completed", state.KycVerified},
		{"rejected", state.KycRejected},
		{"denied", state.KycRejected},
		{"declined", state.KycRejected},
		{"DECLINED", state.KycRejected},
		{"something_else", state.KycNotSubmitted},
		{"", state.KycNotSubmitted},
	}
	for _, tc := range cases {
		patch := Normalize(map[string]any{"status": tc.token})
		if *patch.Status != tc.want {
			t.Errorf("token %q: Status = %q, want %q", tc.token, *patch.Status, tc.want)
		}
	}
}

func TestNormalize_SnakeCaseWinsOverCamelCase(t *testing.T) {
	m := decode(t, `{"status": "rejected", "rejection_reason": "expired id", "rejectionReason": "other"}`)
	patch := Normalize(m)
	if patch.RejectionReason == nil || *patch.RejectionReason != "expired id" {
		t.Errorf("RejectionReason = %v, want snake_case value", patch.RejectionReason)
	}
}

func TestNormalize_NonStringValuesTreatedAsAbsent(t *testing.T) {
	m := decode(t, `{"status": 42, "submitted_at": 12345}`)
	patch := Normalize(m)
	if *patch.Status != state.KycNotSubmitted {
		t.Errorf("Status = %q, want NOT_SUBMITTED for non-string token", *patch.Status)
	}
	if patch.SubmittedAt != nil {
		t.Errorf("SubmittedAt = %v, want nil for non-string value", patch.SubmittedAt)
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	m := decode(t, `{"kyc_status": {"status": "submitted", "submitted_at": "2025-03-01T10:00:00Z"}}`)
	a := Normalize(m)
	b := Normalize(m)
	if !reflect.DeepEqual(a.Apply(state.KycState{}), b.Apply(state.KycState{})) {
		t.Error("Normalize applied twice to the same payload should yield identical results")
	}
}

func TestNormalize_StatusAlwaysInEnum(t *testing.T) {
	payloads := []string{
		`{}`,
		`{"status": "garbage"}`,
		`{"kyc_status": {}}`,
		`{"kyc_status": "submitted"}`,
		`{"kyc_status": {"status": "wat"}}`,
		`{"status": ["submitted"]}`,
	}
	valid := map[state.KycStatus]bool{
		state.KycNotSubmitted: true,
		state.KycPending:      true,
		state.KycVerified:     true,
		state.KycRejected:     true,
	}
	for _, raw := range payloads {
		patch := Normalize(decode(t, raw))
		if patch.Status == nil || !valid[*patch.Status] {
			t.Errorf("payload %s: status %v out of enum", raw, patch.Status)
		}
	}
}

func TestNormalize_StringKycStatusFieldIsNotNested(t *testing.T) {
	// A string-valued kyc_status means the payload is flat; its value is not
	// consulted as a top-level token either (status key is absent here).
	patch := Normalize(map[string]any{"kyc_status": "submitted"})
	if *patch.Status != state.KycNotSubmitted {
		t.Errorf("Status = %q, want NOT_SUBMITTED", *patch.Status)
	}
}
