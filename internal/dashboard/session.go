// Package dashboard is the orchestration layer behind the dashboard view:
// identity key, wallet cache guard, wallet lookup, profile loading, copy
// acknowledgment and the composed view state.
//
// Session is a value type driven by the Bubble Tea update loop. Asynchronous
// work is returned as tea.Cmd and comes back as messages handled by Update.
package dashboard

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/vaayu/internal/identity"
	"github.com/zarlcorp/vaayu/internal/profile"
	"github.com/zarlcorp/vaayu/internal/wallet"
)

// Deps are the collaborators a Session works with. Context is the parent of
// every profile request; nil means context.Background.
type Deps struct {
	Context   context.Context
	Wallets   WalletStore
	Profiles  profile.Fetcher
	Clipboard Clipboard
	Log       *slog.Logger
}

// Session holds the dashboard state for one signed-in user. The zero-value
// flags mean: identity loading, nothing cleared, nothing copied.
type Session struct {
	wallets   WalletStore
	clipboard Clipboard
	log       *slog.Logger

	identity identity.Session
	key      string

	// guarded holds every key the cache guard ran for. clearedKey is the key
	// whose corrupted entry was cleared; its error view stays up until Reload.
	guarded    map[string]bool
	clearedKey string

	resolver Resolver
	wallet   *wallet.Record
	loader   Loader
	ack      Ack
}

// NewSession creates a session waiting for the identity provider.
func NewSession(d Deps) Session {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	return Session{
		wallets:   d.Wallets,
		clipboard: d.Clipboard,
		log:       log,
		identity:  identity.Session{Loading: true},
		guarded:   map[string]bool{},
		resolver:  newResolver(d.Wallets, log),
		loader:    newLoader(d.Context, d.Profiles, log),
	}
}

// SetIdentity feeds a new identity snapshot through the pipeline: guard the
// cache once per new key, resolve the wallet, then point the loader at the
// (wallet, key) pair. The returned command is the profile fetch, if any.
func (s Session) SetIdentity(id identity.Session) (Session, tea.Cmd) {
	s.identity = id
	s.key, _ = id.Key()

	if s.key != "" && !s.guarded[s.key] {
		s.guard()
	}

	return s.resolve()
}

// Reload runs the guard again for the current key, re-reads the wallet and
// fetches the profile again. It is the user's recovery action for every
// error view: a cleared entry that now validates lifts the wallet error.
func (s Session) Reload() (Session, tea.Cmd) {
	if s.key != "" {
		s.guard()
	}
	return s.refresh()
}

// SetProfiles replaces the profile fetcher and fetches again.
func (s Session) SetProfiles(f profile.Fetcher) (Session, tea.Cmd) {
	s.loader = s.loader.Stop()
	s.loader.fetcher = f
	return s.refresh()
}

func (s Session) refresh() (Session, tea.Cmd) {
	s.resolver.Invalidate()
	s.loader = s.loader.Stop()
	s.wallet = nil

	s, cmd := s.resolve()
	if cmd != nil {
		return s, cmd
	}
	s.loader, cmd = s.loader.Retry()
	return s, cmd
}

// Retry fetches the profile again for the current wallet.
func (s Session) Retry() (Session, tea.Cmd) {
	var cmd tea.Cmd
	s.loader, cmd = s.loader.Retry()
	return s, cmd
}

// Copy copies the wallet address and raises the acknowledgment flag.
func (s Session) Copy() (Session, tea.Cmd, error) {
	var cmd tea.Cmd
	var err error
	s.ack, cmd, err = s.ack.Copy(s.clipboard, s.wallet)
	return s, cmd, err
}

// Update handles the session's own messages. Other messages are ignored.
func (s Session) Update(msg tea.Msg) (Session, tea.Cmd) {
	switch msg := msg.(type) {
	case ProfileFetchedMsg:
		s.loader, _ = s.loader.Update(msg)
	case AckResetMsg:
		s.ack = s.ack.Update(msg)
	}
	return s, nil
}

// View composes the current view state.
func (s Session) View() ViewState {
	return Compose(s.Snapshot())
}

// Snapshot returns the inputs Compose works from.
func (s Session) Snapshot() Snapshot {
	return Snapshot{
		IdentityLoading: s.identity.Loading,
		Key:             s.key,
		Cleared:         s.Cleared(),
		Wallet:          s.wallet,
		Loader:          s.loader.State(),
		Outcome:         s.loader.Outcome(),
	}
}

// Cleared reports whether the current key's wallet was cleared as corrupted.
func (s Session) Cleared() bool {
	return s.key != "" && s.key == s.clearedKey
}

// Identity returns the last identity snapshot.
func (s Session) Identity() identity.Session { return s.identity }

// Key returns the identity key, "" when unknown.
func (s Session) Key() string { return s.key }

// Wallet returns the resolved wallet or nil.
func (s Session) Wallet() *wallet.Record { return s.wallet }

// Copied reports whether the copy acknowledgment is showing.
func (s Session) Copied() bool { return s.ack.Copied() }

// Loading reports whether a profile fetch is in flight.
func (s Session) Loading() bool { return s.loader.Loading() }

// Close cancels any in-flight fetch.
func (s Session) Close() Session {
	s.loader = s.loader.Stop()
	return s
}

// guard validates the current key's entry. The guarded map is shared by
// copies of the session; only the latest copy is ever used.
func (s *Session) guard() {
	s.guarded[s.key] = true
	if Guard(s.wallets, s.key, s.log) {
		s.clearedKey = s.key
	} else if s.clearedKey == s.key {
		s.clearedKey = ""
	}
}

func (s Session) resolve() (Session, tea.Cmd) {
	s.wallet = s.resolver.Resolve(s.key)

	var cmd tea.Cmd
	s.loader, cmd = s.loader.Load(s.wallet, s.key)
	return s, cmd
}
