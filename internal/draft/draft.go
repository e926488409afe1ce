// Package draft holds the in-progress KYC submission: its fields, the
// client-side validation rules, the merge of server-side field errors, and a
// debounced autosave store over device-local key-value storage.
package draft

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
)

// StorageKey is the well-known key the draft is persisted under.
const StorageKey = "kycDraft_v1"

// Mode selects how the KYC submission is made.
type Mode string

const (
	ModeManual Mode = "manual"
	ModeUpload Mode = "upload"
)

// Draft is the locally persisted, not-yet-submitted KYC form state. It is
// stored as a single JSON object under StorageKey.
type Draft struct {
	Mode    Mode   `json:"mode"`
	Aadhaar string `json:"aadhaar"`
	PAN     string `json:"pan"`
	FileURI string `json:"fileUri,omitempty"`
	SavedAt string `json:"savedAt,omitempty"`
}

// Field names used in the field-error map. They match the form fields, not
// the wire names.
const (
	FieldAadhaar = "aadhaar"
	FieldPAN     = "pan"
	FieldFile    = "file"
)

var (
	aadhaarRe = regexp.MustCompile(`^[0-9]{12}$`)
	panRe     = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	nonDigit  = regexp.MustCompile(`[^0-9]`)
)

// CleanAadhaar strips non-digit characters, mirroring the form's number-pad
// input filter.
func CleanAadhaar(input string) string {
	return nonDigit.ReplaceAllString(input, "")
}

// CleanPAN upper-cases the input; the PAN pattern is defined on upper case.
func CleanPAN(input string) string {
	return strings.ToUpper(strings.TrimSpace(input))
}

// FieldErrors computes the continuous (as-you-type) validation errors: only
// non-empty invalid values are flagged, so a half-filled form is not shouted
// at.
func (d Draft) FieldErrors() map[string]string {
	errs := make(map[string]string)
	if d.Aadhaar != "" && !aadhaarRe.MatchString(d.Aadhaar) {
		errs[FieldAadhaar] = "Aadhaar must be 12 digits"
	}
	if d.PAN != "" && !panRe.MatchString(d.PAN) {
		errs[FieldPAN] = "PAN must match pattern (ABCDE1234F)"
	}
	return errs
}

// SubmitErrors computes the submission-blocking validation errors. Manual
// mode requires both identifiers to be valid; upload mode relaxes the
// identifiers but requires a file reference.
func (d Draft) SubmitErrors() map[string]string {
	errs := make(map[string]string)
	if d.Mode == ModeUpload {
		if d.FileURI == "" {
			errs[FieldFile] = "Please provide a file URI"
		}
		return errs
	}
	if !aadhaarRe.MatchString(d.Aadhaar) {
		errs[FieldAadhaar] = "Aadhaar must be numeric 12 digits"
	}
	if !panRe.MatchString(d.PAN) {
		errs[FieldPAN] = "PAN must follow pattern ABCDE1234F"
	}
	return errs
}

// serverField maps the backend's wire field names to form fields.
var serverField = map[string]string{
	"aadhaar_identifier": FieldAadhaar,
	"pan_identifier":     FieldPAN,
	"document":           FieldFile,
}

// MergeServerErrors folds a rejection payload's field errors (arrays of
// messages keyed by wire field name) into errs and returns the merged map
// plus a summary message. When the payload carries no recognizable field
// errors, the summary is the raw payload (or empty for a nil payload) so the
// caller can surface a generic failure.
func MergeServerErrors(errs map[string]string, payload map[string]any) (map[string]string, string) {
	merged := make(map[string]string, len(errs))
	for k, v := range errs {
		merged[k] = v
	}
	var summary []string
	for wire, field := range serverField {
		msgs, ok := payload[wire].([]any)
		if !ok {
			continue
		}
		var lines []string
		for _, m := range msgs {
			if s, ok := m.(string); ok {
				lines = append(lines, s)
			}
		}
		if len(lines) > 0 {
			merged[field] = strings.Join(lines, "\n")
			summary = append(summary, merged[field])
		}
	}
	if len(summary) > 0 {
		sort.Strings(summary)
		return merged, strings.Join(summary, "\n")
	}
	if payload == nil {
		return merged, ""
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return merged, ""
	}
	return merged, string(raw)
}
