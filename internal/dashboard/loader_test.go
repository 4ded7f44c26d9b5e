package dashboard

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/vaayu/internal/profile"
	"github.com/zarlcorp/vaayu/internal/wallet"
)

func runFetch(t *testing.T, l Loader, cmd tea.Cmd) Loader {
	t.Helper()
	msg, ok := cmd().(ProfileFetchedMsg)
	if !ok {
		t.Fatal("command should produce ProfileFetchedMsg")
	}
	l, _ = l.Update(msg)
	return l
}

func TestLoaderAbsentPairSkipsFetch(t *testing.T) {
	f := newFakeFetcher()
	w := testWallet(t, 1)

	tests := []struct {
		name string
		load func(Loader) (Loader, bool)
	}{
		{"no wallet", func(l Loader) (Loader, bool) { l, cmd := l.Load(nil, "user@x.com"); return l, cmd != nil }},
		{"no key", func(l Loader) (Loader, bool) { l, cmd := l.Load(&w, ""); return l, cmd != nil }},
		{"neither", func(l Loader) (Loader, bool) { l, cmd := l.Load(nil, ""); return l, cmd != nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, hasCmd := tt.load(newLoader(context.Background(), f, discardLogger()))
			if hasCmd {
				t.Error("absent pair should not start a fetch")
			}
			if l.Loading() {
				t.Error("absent pair should not be loading")
			}
			if l.State() != LoaderLoaded || l.Outcome().Kind != profile.KindNotFound {
				t.Errorf("state = %s outcome = %s, want loaded/not found", l.State(), l.Outcome().Kind)
			}
		})
	}

	if f.callCount() != 0 {
		t.Errorf("fetch calls = %d, want 0", f.callCount())
	}
}

func TestLoaderLoadingFlagForEveryOutcome(t *testing.T) {
	w := testWallet(t, 1)

	tests := []struct {
		name     string
		setup    func(f *fakeFetcher)
		wantKind profile.Kind
		wantMsg  string
	}{
		{"success", func(f *fakeFetcher) { f.responses[w.Address] = profile.Response{Success: true, Profile: ana()} }, profile.KindSuccess, ""},
		{"not found", func(f *fakeFetcher) { f.responses[w.Address] = profile.Response{Error: "Profile not found for this wallet"} }, profile.KindNotFound, ""},
		{"error", func(f *fakeFetcher) { f.responses[w.Address] = profile.Response{Error: "Database timeout"} }, profile.KindError, "Database timeout"},
		{"exception", func(f *fakeFetcher) { f.errs[w.Address] = errTransport }, profile.KindError, profile.MsgUnexpected},
		{"panic", func(f *fakeFetcher) { f.panicMsg = "nil map" }, profile.KindError, profile.MsgUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeFetcher()
			tt.setup(f)

			l, cmd := newLoader(context.Background(), f, discardLogger()).Load(&w, "user@x.com")
			if cmd == nil {
				t.Fatal("expected fetch command")
			}
			if !l.Loading() {
				t.Fatal("loading should be true once the request starts")
			}

			msg := cmd().(ProfileFetchedMsg)
			if !l.Loading() {
				t.Fatal("loading should stay true until settlement")
			}

			l, applied := l.Update(msg)
			if !applied {
				t.Fatal("current result should be applied")
			}
			if l.Loading() {
				t.Fatal("loading should be false after settlement")
			}
			if l.Outcome().Kind != tt.wantKind || l.Outcome().Message != tt.wantMsg {
				t.Errorf("outcome = %+v, want %s %q", l.Outcome(), tt.wantKind, tt.wantMsg)
			}
		})
	}
}

func TestLoaderStaleResultDiscarded(t *testing.T) {
	w1 := testWallet(t, 1)
	w2 := testWallet(t, 2)

	f := newFakeFetcher()
	f.responses[w1.Address] = profile.Response{Success: true, Profile: &profile.HealthProfile{Name: "Old"}}
	f.responses[w2.Address] = profile.Response{Success: true, Profile: &profile.HealthProfile{Name: "New"}}

	l := newLoader(context.Background(), f, discardLogger())
	l, cmd1 := l.Load(&w1, "a@x.com")
	l, cmd2 := l.Load(&w2, "b@x.com")

	// the older request resolves last
	msg2 := cmd2().(ProfileFetchedMsg)
	msg1 := cmd1().(ProfileFetchedMsg)

	l, _ = l.Update(msg2)
	l, applied := l.Update(msg1)
	if applied {
		t.Error("stale result should be discarded")
	}
	if got := l.Outcome().Profile.Name; got != "New" {
		t.Errorf("profile = %q, want New", got)
	}
}

func TestLoaderStaleResultBeforeFreshOne(t *testing.T) {
	w1 := testWallet(t, 1)
	w2 := testWallet(t, 2)

	f := newFakeFetcher()
	f.responses[w1.Address] = profile.Response{Error: "Database timeout"}
	f.responses[w2.Address] = profile.Response{Success: true, Profile: ana()}

	l := newLoader(context.Background(), f, discardLogger())
	l, cmd1 := l.Load(&w1, "user@x.com")
	l, cmd2 := l.Load(&w2, "user@x.com")

	l, applied := l.Update(cmd1().(ProfileFetchedMsg))
	if applied {
		t.Fatal("stale result should be discarded")
	}
	if !l.Loading() {
		t.Fatal("loader should still wait for the latest request")
	}

	l, _ = l.Update(cmd2().(ProfileFetchedMsg))
	if l.Outcome().Kind != profile.KindSuccess || l.Outcome().Profile.Name != "Ana" {
		t.Errorf("outcome = %+v, want Ana", l.Outcome())
	}
}

func TestLoaderStaleAfterPairCleared(t *testing.T) {
	w := testWallet(t, 1)
	f := newFakeFetcher()
	f.responses[w.Address] = profile.Response{Success: true, Profile: ana()}

	l := newLoader(context.Background(), f, discardLogger())
	l, cmd := l.Load(&w, "user@x.com")
	l, _ = l.Load(nil, "")

	l, applied := l.Update(cmd().(ProfileFetchedMsg))
	if applied {
		t.Error("result for a pair that is no longer current should be discarded")
	}
	if l.Outcome().Kind != profile.KindNotFound {
		t.Errorf("outcome = %s, want not found", l.Outcome().Kind)
	}
}

func TestLoaderSamePairNoRefetch(t *testing.T) {
	w := testWallet(t, 1)
	f := newFakeFetcher()
	f.responses[w.Address] = profile.Response{Success: true, Profile: ana()}

	l, cmd := newLoader(context.Background(), f, discardLogger()).Load(&w, "user@x.com")
	l = runFetch(t, l, cmd)

	l, cmd = l.Load(&w, "user@x.com")
	if cmd != nil {
		t.Fatal("unchanged pair should not refetch")
	}
	if f.callCount() != 1 {
		t.Errorf("fetch calls = %d, want 1", f.callCount())
	}
}

func TestLoaderRetry(t *testing.T) {
	w := testWallet(t, 1)
	f := newFakeFetcher()
	f.errs[w.Address] = errTransport

	l, cmd := newLoader(context.Background(), f, discardLogger()).Load(&w, "user@x.com")
	l = runFetch(t, l, cmd)
	if l.Outcome().Kind != profile.KindError {
		t.Fatalf("outcome = %s, want error", l.Outcome().Kind)
	}

	delete(f.errs, w.Address)
	f.responses[w.Address] = profile.Response{Success: true, Profile: ana()}

	l, cmd = l.Retry()
	if cmd == nil || !l.Loading() {
		t.Fatal("retry should start a new fetch")
	}
	l = runFetch(t, l, cmd)
	if l.Outcome().Kind != profile.KindSuccess {
		t.Errorf("outcome = %s, want success", l.Outcome().Kind)
	}
}

func TestLoaderRetryWithoutPair(t *testing.T) {
	l, cmd := newLoader(context.Background(), newFakeFetcher(), discardLogger()).Retry()
	if cmd != nil || l.Loading() {
		t.Error("retry without a pair should do nothing")
	}
}

func TestLoaderGenerationIncreases(t *testing.T) {
	w1 := testWallet(t, 1)
	w2 := testWallet(t, 2)

	l := newLoader(context.Background(), newFakeFetcher(), discardLogger())
	l, _ = l.Load(&w1, "k")
	g1 := l.Gen()
	l, _ = l.Load(&w2, "k")
	if l.Gen() <= g1 {
		t.Errorf("generation did not increase: %d -> %d", g1, l.Gen())
	}
}

// waitFetcher blocks until the request context ends or the wait elapses.
type waitFetcher struct{ wait time.Duration }

func (f waitFetcher) FetchProfile(ctx context.Context, _ wallet.Record) (profile.Response, error) {
	select {
	case <-ctx.Done():
		return profile.Response{}, ctx.Err()
	case <-time.After(f.wait):
		return profile.Response{Success: true, Profile: ana()}, nil
	}
}

func TestLoaderParentCancelStopsFetch(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	w := testWallet(t, 1)

	l, cmd := newLoader(parent, waitFetcher{wait: 5 * time.Second}, discardLogger()).Load(&w, "user@x.com")
	if cmd == nil {
		t.Fatal("expected fetch command")
	}
	cancel()

	start := time.Now()
	l = runFetch(t, l, cmd)
	if time.Since(start) > time.Second {
		t.Error("fetch should end with the parent context")
	}
	if got := l.Outcome(); got.Kind != profile.KindError || got.Message != profile.MsgUnexpected {
		t.Errorf("outcome = %+v, want unexpected error", got)
	}
}
