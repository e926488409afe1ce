package state

import "sync"

// Store is the single owner of AuthState, KycState, and ProfileState.
// All mutations go through its methods; subscribers are notified with a
// snapshot after every mutation. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	auth    AuthState
	kyc     KycState
	profile ProfileState
	fetched bool

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(Snapshot)
}

// NewStore returns an empty store: unauthenticated, KYC NOT_SUBMITTED.
func NewStore() *Store {
	return &Store{subs: make(map[int]func(Snapshot))}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{Auth: s.auth, Kyc: s.kyc, Profile: s.profile, KycFetched: s.fetched}
	if snap.Kyc.Status == "" {
		snap.Kyc.Status = KycNotSubmitted
	}
	if snap.Profile.CommunicationPreferences != nil {
		prefs := make([]string, len(s.profile.CommunicationPreferences))
		copy(prefs, s.profile.CommunicationPreferences)
		snap.Profile.CommunicationPreferences = prefs
	}
	return snap
}

// SetAuth merges the patch into AuthState. IsAuthenticated defaults to true
// when the patch does not set it.
func (s *Store) SetAuth(p AuthPatch) {
	s.mu.Lock()
	s.auth.IsAuthenticated = true
	if p.IsAuthenticated != nil {
		s.auth.IsAuthenticated = *p.IsAuthenticated
	}
	if p.UserID != nil {
		s.auth.UserID = *p.UserID
	}
	if p.Email != nil {
		s.auth.Email = *p.Email
	}
	if p.MobileNumber != nil {
		s.auth.MobileNumber = *p.MobileNumber
	}
	if p.Token != nil {
		s.auth.Token = *p.Token
	}
	if p.RefreshToken != nil {
		s.auth.RefreshToken = *p.RefreshToken
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// ClearAuth resets AuthState to its empty defaults.
func (s *Store) ClearAuth() {
	s.mu.Lock()
	s.auth = AuthState{}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// MergeKyc merges the patch into KycState as one atomic update. Fields the
// patch leaves nil keep their previous value, so a poll reading that omits a
// timestamp does not erase the one already known.
func (s *Store) MergeKyc(p KycPatch) {
	s.mu.Lock()
	s.kyc = p.Apply(s.kyc)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// ResetKyc resets KycState to NOT_SUBMITTED defaults and clears the
// fetched-once gate.
func (s *Store) ResetKyc() {
	s.mu.Lock()
	s.kyc = KycState{Status: KycNotSubmitted}
	s.fetched = false
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// SetKycFetched records whether at least one status fetch has completed for
// the current authenticated session.
func (s *Store) SetKycFetched(v bool) {
	s.mu.Lock()
	s.fetched = v
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// SetProfile merges the patch into ProfileState.
func (s *Store) SetProfile(p ProfilePatch) {
	s.mu.Lock()
	if p.Name != nil {
		s.profile.Name = *p.Name
	}
	if p.ProfilePhotoURL != nil {
		s.profile.ProfilePhotoURL = *p.ProfilePhotoURL
	}
	if p.Email != nil {
		s.profile.Email = *p.Email
	}
	if p.MobileNumber != nil {
		s.profile.MobileNumber = *p.MobileNumber
	}
	if p.AlternateContact != nil {
		s.profile.AlternateContact = *p.AlternateContact
	}
	if p.CommunicationPreferences != nil {
		s.profile.CommunicationPreferences = *p.CommunicationPreferences
	}
	if p.KycStatus != nil {
		s.profile.KycStatus = *p.KycStatus
	}
	if p.KycVerifiedAt != nil {
		s.profile.KycVerifiedAt = *p.KycVerifiedAt
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// ClearProfile resets ProfileState to its empty defaults.
func (s *Store) ClearProfile() {
	s.mu.Lock()
	s.profile = ProfileState{}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.notify(snap)
}

// Subscribe registers fn to be called with a snapshot after every mutation.
// Returns an unsubscribe function. fn runs on the mutating goroutine; it must
// not block.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(snap Snapshot) {
	s.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}
