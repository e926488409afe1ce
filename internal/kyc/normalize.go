// Package kyc normalizes the backend's heterogeneous verification-status
// payloads into the canonical model. All shape tolerance lives here: nested vs
// flat payloads, snake_case vs camelCase keys, and a free-text status
// vocabulary the server does not keep stable.
package kyc

import (
	"regexp"

	"rentnest/appcore/internal/state"
)

// Status token families, matched case-insensitively as substrings. The server
// has been seen sending "submitted", "pending_kyc", "verified",
// "kyc_verified", "completed", "rejected", "declined", among others.
var (
	pendingRe  = regexp.MustCompile(`(?i)submitted|pending`)
	verifiedRe = regexp.MustCompile(`(?i)verified|complete`)
	rejectedRe = regexp.MustCompile(`(?i)rejected|denied|declined`)
)

// Normalize maps a decoded status payload into a KYC patch. It is pure and
// total: any input, including nil, yields a patch whose Status is one of the
// four canonical values (NOT_SUBMITTED when nothing matches). Timestamp and
// reason fields are set only when present in the payload, so merging the
// patch keeps previously known values.
//
// A nested kyc_status/kycStatus sub-object is preferred over top-level fields
// when present; nested is assumed more authoritative.
func Normalize(data map[string]any) state.KycPatch {
	patch := state.KycPatch{Status: state.KycNotSubmitted.Ptr()}
	if len(data) == 0 {
		return patch
	}

	if nested, ok := nestedObject(data); ok {
		patch.Status = classify(stringField(nested, "status", "state")).Ptr()
		patch.SubmittedAt = firstString(nested, "submitted_at", "submittedAt")
		patch.ReviewedAt = firstString(nested, "verified_at", "reviewedAt")
		patch.RejectionReason = firstString(nested, "rejection_reason", "rejectionReason")
		return patch
	}

	patch.Status = classify(stringField(data, "status", "kycStatus")).Ptr()
	patch.SubmittedAt = firstString(data, "submitted_at", "submittedAt")
	patch.ReviewedAt = firstString(data, "verified_at", "reviewedAt")
	patch.RejectionReason = firstString(data, "rejection_reason", "rejectionReason")
	return patch
}

// classify maps a free-text status token to the canonical enum. Unknown or
// empty tokens default to NOT_SUBMITTED.
func classify(token string) state.KycStatus {
	switch {
	case token == "":
		return state.KycNotSubmitted
	case pendingRe.MatchString(token):
		return state.KycPending
	case verifiedRe.MatchString(token):
		return state.KycVerified
	case rejectedRe.MatchString(token):
		return state.KycRejected
	default:
		return state.KycNotSubmitted
	}
}

// nestedObject returns the kyc_status/kycStatus sub-object when it is an
// object. A string-valued kycStatus is not nested; it is handled as a
// top-level token.
func nestedObject(data map[string]any) (map[string]any, bool) {
	for _, key := range []string{"kyc_status", "kycStatus"} {
		if v, ok := data[key]; ok && v != nil {
			if m, ok := v.(map[string]any); ok {
				return m, true
			}
			// First non-nil wins, as in the backend contract: a non-object
			// value here means the payload is flat.
			return nil, false
		}
	}
	return nil, false
}

// stringField returns the first key present with a string value, or "".
func stringField(m map[string]any, keys ...string) string {
	if p := firstString(m, keys...); p != nil {
		return *p
	}
	return ""
}

// firstString returns a pointer to the first key present with a string value,
// or nil when none is. Non-string values are treated as absent.
func firstString(m map[string]any, keys ...string) *string {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			if s, ok := v.(string); ok {
				return &s
			}
		}
	}
	return nil
}
