package dashboard

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/zarlcorp/vaayu/internal/profile"
	"github.com/zarlcorp/vaayu/internal/wallet"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWallet(t *testing.T, fill byte) wallet.Record {
	t.Helper()
	r, err := wallet.FromSeed(bytes.Repeat([]byte{fill}, 32))
	if err != nil {
		t.Fatal(err)
	}
	return r
}

// fakeStore is an in-memory WalletStore that counts calls.
type fakeStore struct {
	wallets  map[string]wallet.Record
	corrupt  map[string]bool
	clearErr error

	gets     int
	clears   map[string]int
	validate map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		wallets:  map[string]wallet.Record{},
		corrupt:  map[string]bool{},
		clears:   map[string]int{},
		validate: map[string]int{},
	}
}

func (f *fakeStore) Get(key string) (wallet.Record, error) {
	f.gets++
	if f.corrupt[key] {
		return wallet.Record{}, wallet.ErrCorrupt
	}
	r, ok := f.wallets[key]
	if !ok {
		return wallet.Record{}, wallet.ErrNotFound
	}
	return r, nil
}

func (f *fakeStore) Validate(key string) bool {
	f.validate[key]++
	return !f.corrupt[key]
}

func (f *fakeStore) Clear(key string) error {
	f.clears[key]++
	delete(f.wallets, key)
	delete(f.corrupt, key)
	return f.clearErr
}

// fakeFetcher answers per wallet address and records calls.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]profile.Response
	errs      map[string]error
	calls     []string
	panicMsg  string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: map[string]profile.Response{},
		errs:      map[string]error{},
	}
}

func (f *fakeFetcher) FetchProfile(_ context.Context, w wallet.Record) (profile.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, w.Address)
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if err := f.errs[w.Address]; err != nil {
		return profile.Response{}, err
	}
	return f.responses[w.Address], nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakeClipboard records writes.
type fakeClipboard struct {
	writes []string
	err    error
}

func (c *fakeClipboard) WriteAll(text string) error {
	if c.err != nil {
		return c.err
	}
	c.writes = append(c.writes, text)
	return nil
}

var errTransport = errors.New("dial tcp 10.0.0.1:443: connection refused")

func ana() *profile.HealthProfile {
	return &profile.HealthProfile{
		Name:             "Ana",
		Age:              30,
		Gender:           "female",
		Location:         "Delhi",
		ChronicCondition: []string{"asthma"},
	}
}
