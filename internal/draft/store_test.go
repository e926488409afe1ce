package draft

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"rentnest/appcore/internal/storage"
)

// countingKV wraps a KV and counts Set calls, to observe debouncing.
type countingKV struct {
	storage.KV
	mu   sync.Mutex
	sets int
}

func (c *countingKV) Set(ctx context.Context, key, value string) error {
	c.mu.Lock()
	c.sets++
	c.mu.Unlock()
	return c.KV.Set(ctx, key, value)
}

func (c *countingKV) setCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}

func TestLoad_MissingDraftIsBlank(t *testing.T) {
	s := NewStore(storage.NewMemoryKV(), 0)
	d, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.Mode != ModeManual || d.Aadhaar != "" || d.PAN != "" {
		t.Errorf("blank draft = %+v", d)
	}
}

func TestLoad_CorruptDraftIsBlank(t *testing.T) {
	kv := storage.NewMemoryKV()
	_ = kv.Set(context.Background(), StorageKey, "{not json")
	s := NewStore(kv, 0)
	d, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.Mode != ModeManual {
		t.Errorf("corrupt draft should load blank, got %+v", d)
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemoryKV(), 0)
	in := Draft{Mode: ModeManual, Aadhaar: "123412341234", PAN: "ABCDE1234F"}
	if err := s.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Aadhaar != in.Aadhaar || out.PAN != in.PAN || out.Mode != in.Mode {
		t.Errorf("Load = %+v, want %+v", out, in)
	}
	if out.SavedAt == "" {
		t.Error("Save should stamp SavedAt")
	}
	if _, err := time.Parse(time.RFC3339, out.SavedAt); err != nil {
		t.Errorf("SavedAt %q should be RFC3339: %v", out.SavedAt, err)
	}
}

func TestSchedule_DebouncesRapidEdits(t *testing.T) {
	kv := &countingKV{KV: storage.NewMemoryKV()}
	s := NewStore(kv, 30*time.Millisecond)

	// Ten rapid edits inside the window must coalesce into one write
	// reflecting the final edit.
	for i := 1; i <= 10; i++ {
		s.Schedule(Draft{Mode: ModeManual, Aadhaar: fmt.Sprintf("%012d", i)})
	}

	deadline := time.Now().Add(2 * time.Second)
	for kv.setCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	// Give a stray duplicate write a chance to show up.
	time.Sleep(60 * time.Millisecond)

	if got := kv.setCount(); got != 1 {
		t.Fatalf("persisted writes = %d, want exactly 1", got)
	}
	raw, ok, _ := kv.Get(context.Background(), StorageKey)
	if !ok {
		t.Fatal("draft should be persisted")
	}
	var d Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		t.Fatalf("unmarshal persisted draft: %v", err)
	}
	if d.Aadhaar != "000000000010" {
		t.Errorf("persisted Aadhaar = %q, want the final edit's value", d.Aadhaar)
	}
}

func TestCancel_DropsPendingWrite(t *testing.T) {
	kv := &countingKV{KV: storage.NewMemoryKV()}
	s := NewStore(kv, 20*time.Millisecond)
	s.Schedule(Draft{Mode: ModeManual, Aadhaar: "123412341234"})
	s.Cancel()
	time.Sleep(60 * time.Millisecond)
	if got := kv.setCount(); got != 0 {
		t.Errorf("writes after Cancel = %d, want 0", got)
	}
}

func TestClear_RemovesDraftAndPendingWrite(t *testing.T) {
	ctx := context.Background()
	kv := &countingKV{KV: storage.NewMemoryKV()}
	s := NewStore(kv, 20*time.Millisecond)
	if err := s.Save(ctx, Draft{Mode: ModeManual, Aadhaar: "123412341234"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.Schedule(Draft{Mode: ModeManual, Aadhaar: "999912341234"})
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	if _, ok, _ := kv.Get(ctx, StorageKey); ok {
		t.Error("storage should no longer contain the draft key")
	}
}

func TestSave_SupersedesPendingAutosave(t *testing.T) {
	kv := &countingKV{KV: storage.NewMemoryKV()}
	s := NewStore(kv, 20*time.Millisecond)
	s.Schedule(Draft{Mode: ModeManual, Aadhaar: "111112341234"})
	if err := s.Save(context.Background(), Draft{Mode: ModeManual, Aadhaar: "222212341234"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	if got := kv.setCount(); got != 1 {
		t.Fatalf("writes = %d, want 1 (explicit save cancels pending autosave)", got)
	}
	raw, _, _ := kv.Get(context.Background(), StorageKey)
	var d Draft
	_ = json.Unmarshal([]byte(raw), &d)
	if d.Aadhaar != "222212341234" {
		t.Errorf("persisted Aadhaar = %q, want the explicitly saved value", d.Aadhaar)
	}
}
