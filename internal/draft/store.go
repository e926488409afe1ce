package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"rentnest/appcore/internal/storage"
)

// defaultDebounce is the quiet period after the last edit before the draft is
// persisted.
const defaultDebounce = 800 * time.Millisecond

// saveTimeout bounds the background autosave write.
const saveTimeout = 5 * time.Second

// Store persists the draft to key-value storage with debounced autosave:
// every edit reschedules a pending write, so only the state after a pause is
// persisted. Safe for concurrent use.
type Store struct {
	kv       storage.KV
	debounce time.Duration
	nowF     func() time.Time

	mu    sync.Mutex
	timer *time.Timer
}

// NewStore returns a draft store over kv. debounce <= 0 selects the default
// 800ms window.
func NewStore(kv storage.KV, debounce time.Duration) *Store {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	return &Store{kv: kv, debounce: debounce, nowF: time.Now}
}

// Load reads the stored draft. A missing draft is not an error; it yields a
// blank manual-mode draft. A corrupt stored value is treated the same way.
func (s *Store) Load(ctx context.Context) (Draft, error) {
	blank := Draft{Mode: ModeManual}
	raw, ok, err := s.kv.Get(ctx, StorageKey)
	if err != nil {
		return blank, fmt.Errorf("load draft: %w", err)
	}
	if !ok {
		return blank, nil
	}
	var d Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		log.Printf("draft: discarding unreadable stored draft: %v", err)
		return blank, nil
	}
	if d.Mode == "" {
		d.Mode = ModeManual
	}
	return d, nil
}

// Save writes the draft immediately, stamping SavedAt, and cancels any
// pending autosave (the explicit write supersedes it).
func (s *Store) Save(ctx context.Context, d Draft) error {
	s.cancelPending()
	return s.write(ctx, d)
}

// Schedule queues d for persistence after the debounce window. A call within
// the window replaces the pending draft and restarts the window.
func (s *Store) Schedule(d Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := s.write(ctx, d); err != nil {
			log.Printf("draft: autosave failed: %v", err)
		}
	})
}

// Cancel drops any pending autosave without writing. Dropping is acceptable
// on teardown because the last scheduled state is the last edited state.
func (s *Store) Cancel() {
	s.cancelPending()
}

// Clear cancels any pending autosave and deletes the stored draft.
func (s *Store) Clear(ctx context.Context) error {
	s.cancelPending()
	if err := s.kv.Remove(ctx, StorageKey); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}

func (s *Store) cancelPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Store) write(ctx context.Context, d Draft) error {
	d.SavedAt = s.nowF().UTC().Format(time.RFC3339)
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := s.kv.Set(ctx, StorageKey, string(raw)); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}
