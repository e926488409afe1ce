package main

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const otpTTL = 5 * time.Minute

// user is a registered account and its verification state.
type user struct {
	ID              string
	Email           string
	PasswordHash    []byte
	KycStatus       string
	SubmittedAt     string
	ReviewedAt      string
	RejectionReason string
	statusFetches   int
}

type otpEntry struct {
	code      string
	expiresAt time.Time
}

// memStore holds users, pending OTPs, and cookie sessions in memory.
type memStore struct {
	mu       sync.RWMutex
	users    map[string]*user    // by email
	otps     map[string]otpEntry // by email+":"+purpose
	sessions map[string]string   // session id -> email
	nowF     func() time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[string]*user),
		otps:     make(map[string]otpEntry),
		sessions: make(map[string]string),
		nowF:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *memStore) upsertUser(email string) *user {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[email]; ok {
		return u
	}
	u := &user{ID: uuid.New().String(), Email: email, KycStatus: "NOT_SUBMITTED"}
	s.users[email] = u
	return u
}

func (s *memStore) userByEmail(email string) (*user, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[email]
	return u, ok
}

func (s *memStore) setPassword(email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return fmt.Errorf("unknown user %s", email)
	}
	u.PasswordHash = hash
	return nil
}

// issueOTP generates and stores a 6-digit code for email and purpose.
func (s *memStore) issueOTP(email, purpose string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	code := fmt.Sprintf("%06d", n.Int64())
	s.mu.Lock()
	s.otps[email+":"+purpose] = otpEntry{code: code, expiresAt: s.nowF().Add(otpTTL)}
	s.mu.Unlock()
	return code, nil
}

// checkOTP verifies and consumes the code for email and purpose.
func (s *memStore) checkOTP(email, purpose, code string) bool {
	key := email + ":" + purpose
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.otps[key]
	if !ok || !e.expiresAt.After(s.nowF()) {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(e.code), []byte(code)) != 1 {
		return false
	}
	delete(s.otps, key)
	return true
}

// peekOTP returns the stored code without consuming it. Dev endpoint only.
func (s *memStore) peekOTP(email, purpose string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.otps[email+":"+purpose]
	if !ok || !e.expiresAt.After(s.nowF()) {
		return "", false
	}
	return e.code, true
}

func (s *memStore) newSession(email string) string {
	id := uuid.New().String()
	s.mu.Lock()
	s.sessions[id] = email
	s.mu.Unlock()
	return id
}

func (s *memStore) sessionEmail(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email, ok := s.sessions[id]
	return email, ok
}
