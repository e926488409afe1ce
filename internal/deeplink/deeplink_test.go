package deeplink

import (
	"context"
	"testing"
	"time"

	"rentnest/appcore/internal/redirect"
)

type fakeNav struct {
	ready  bool
	calls  []string
	params []map[string]string
}

func (f *fakeNav) IsReady() bool            { return f.ready }
func (f *fakeNav) CurrentRouteName() string { return "" }
func (f *fakeNav) Reset(routes []string)    {}
func (f *fakeNav) Navigate(screen string, params map[string]string) {
	f.calls = append(f.calls, screen)
	f.params = append(f.params, params)
}

func TestExtractToken_PercentDecoded(t *testing.T) {
	if got := ExtractToken("myapp://reset?token=abc%20123"); got != "abc 123" {
		t.Errorf("ExtractToken = %q, want %q", got, "abc 123")
	}
}

func TestExtractToken_SecondParameter(t *testing.T) {
	if got := ExtractToken("https://app.example.com/reset?lang=en&token=tok-1"); got != "tok-1" {
		t.Errorf("ExtractToken = %q, want tok-1", got)
	}
}

func TestExtractToken_AbsentIsEmpty(t *testing.T) {
	for _, u := range []string{"", "myapp://reset", "myapp://reset?other=1"} {
		if got := ExtractToken(u); got != "" {
			t.Errorf("ExtractToken(%q) = %q, want empty", u, got)
		}
	}
}

func TestExtractToken_UndecodableIsEmpty(t *testing.T) {
	if got := ExtractToken("myapp://reset?token=%zz"); got != "" {
		t.Errorf("ExtractToken = %q, want empty for bad percent-encoding", got)
	}
}

func TestHandleURL_NavigatesWithToken(t *testing.T) {
	nav := &fakeNav{ready: true}
	r := NewResolver(nav)
	if !r.HandleURL("myapp://reset?token=abc%20123") {
		t.Fatal("HandleURL should report a navigation")
	}
	if len(nav.calls) != 1 || nav.calls[0] != redirect.ScreenResetPassword {
		t.Errorf("calls = %v, want [ResetPassword]", nav.calls)
	}
	if nav.params[0]["token"] != "abc 123" {
		t.Errorf("token param = %q, want decoded value", nav.params[0]["token"])
	}
}

func TestHandleURL_NotReadyDrops(t *testing.T) {
	nav := &fakeNav{ready: false}
	if NewResolver(nav).HandleURL("myapp://reset?token=tok") {
		t.Error("HandleURL should drop when navigator is not ready")
	}
	if len(nav.calls) != 0 {
		t.Errorf("calls = %v, want none", nav.calls)
	}
}

func TestListen_InitialURLAndEvents(t *testing.T) {
	nav := &fakeNav{ready: true}
	r := NewResolver(nav)
	events := make(chan string, 2)
	events <- "myapp://reset?token=second"
	events <- "myapp://reset?token=third"
	close(events)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r.Listen(ctx, "myapp://reset?token=first", events)

	if len(nav.calls) != 3 {
		t.Fatalf("calls = %d, want 3 (each URL navigates independently)", len(nav.calls))
	}
	for i, want := range []string{"first", "second", "third"} {
		if nav.params[i]["token"] != want {
			t.Errorf("navigation %d token = %q, want %q", i, nav.params[i]["token"], want)
		}
	}
}
