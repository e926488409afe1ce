// Package state holds the canonical client session model (auth, KYC, profile)
// in a single-writer store with typed mutations and subscriptions.
// Components never keep private copies of this state; they read snapshots and
// write through the named mutation methods so updates apply as whole-object
// merges.
package state

// KycStatus is the canonical verification status mirrored from the server.
type KycStatus string

const (
	KycNotSubmitted KycStatus = "NOT_SUBMITTED"
	KycPending      KycStatus = "PENDING"
	KycVerified     KycStatus = "VERIFIED"
	KycRejected     KycStatus = "REJECTED"
)

// AuthState is the client's view of the authenticated session.
// IsAuthenticated true implies a token was present at some point; the client
// does not detect token expiry itself, only explicit logout or failed calls
// clear it.
type AuthState struct {
	IsAuthenticated bool
	UserID          string
	Email           string
	MobileNumber    string
	Token           string
	RefreshToken    string
}

// KycState mirrors the server-reported verification status. Timestamps are
// kept as the strings the server sent; the client does not reinterpret them.
type KycState struct {
	Status          KycStatus
	SubmittedAt     string
	ReviewedAt      string
	RejectionReason string
}

// ProfileState is a read-mostly projection of profile fields for display.
// The KYC mirror fields (KycStatus, KycVerifiedAt) are the only ones the
// sync core writes.
type ProfileState struct {
	Name                     string
	ProfilePhotoURL          string
	Email                    string
	MobileNumber             string
	AlternateContact         string
	CommunicationPreferences []string
	KycStatus                string
	KycVerifiedAt            string
}

// AuthPatch is a partial AuthState; nil fields keep their previous value.
// IsAuthenticated defaults to true when unset, matching the login flows that
// set tokens without passing the flag explicitly.
type AuthPatch struct {
	IsAuthenticated *bool
	UserID          *string
	Email           *string
	MobileNumber    *string
	Token           *string
	RefreshToken    *string
}

// KycPatch is a partial KycState; nil fields keep their previous value.
type KycPatch struct {
	Status          *KycStatus
	SubmittedAt     *string
	ReviewedAt      *string
	RejectionReason *string
}

// ProfilePatch is a partial ProfileState; nil fields keep their previous value.
type ProfilePatch struct {
	Name                     *string
	ProfilePhotoURL          *string
	Email                    *string
	MobileNumber             *string
	AlternateContact         *string
	CommunicationPreferences *[]string
	KycStatus                *string
	KycVerifiedAt            *string
}

// Apply merges the patch into prev and returns the result.
func (p KycPatch) Apply(prev KycState) KycState {
	next := prev
	if p.Status != nil {
		next.Status = *p.Status
	}
	if p.SubmittedAt != nil {
		next.SubmittedAt = *p.SubmittedAt
	}
	if p.ReviewedAt != nil {
		next.ReviewedAt = *p.ReviewedAt
	}
	if p.RejectionReason != nil {
		next.RejectionReason = *p.RejectionReason
	}
	return next
}

// Snapshot is an immutable copy of the whole store taken after a mutation.
type Snapshot struct {
	Auth    AuthState
	Kyc     KycState
	Profile ProfileState
	// KycFetched is true once at least one status fetch has completed since
	// the session became authenticated. The redirect engine must not force
	// navigation before the server has been consulted.
	KycFetched bool
}

// String returns the status token, defaulting to NOT_SUBMITTED for the zero value.
func (s KycStatus) String() string {
	if s == "" {
		return string(KycNotSubmitted)
	}
	return string(s)
}

// Ptr returns a pointer to s, for building patches.
func (s KycStatus) Ptr() *KycStatus { return &s }

// Str returns a pointer to v, for building patches.
func Str(v string) *string { return &v }

// Bool returns a pointer to v, for building patches.
func Bool(v bool) *bool { return &v }
