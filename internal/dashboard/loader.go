package dashboard

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/zarlcorp/vaayu/internal/profile"
	"github.com/zarlcorp/vaayu/internal/wallet"
)

// LoaderState is the profile loader's lifecycle state.
type LoaderState int

const (
	LoaderIdle LoaderState = iota
	LoaderLoading
	LoaderLoaded
)

func (s LoaderState) String() string {
	switch s {
	case LoaderIdle:
		return "idle"
	case LoaderLoading:
		return "loading"
	case LoaderLoaded:
		return "loaded"
	}
	return "unknown"
}

// ProfileFetchedMsg carries a fetch result back into the update loop.
// Gen identifies the request that produced it.
type ProfileFetchedMsg struct {
	Gen     uint64
	Outcome profile.Outcome
}

// Loader fetches the health profile for the current (wallet, identity) pair.
// Every request gets a new generation; only the result of the latest
// generation is applied.
type Loader struct {
	parent  context.Context
	fetcher profile.Fetcher
	log     *slog.Logger

	gen     uint64
	key     string
	address string
	record  wallet.Record
	cancel  context.CancelFunc

	state   LoaderState
	outcome profile.Outcome
}

func newLoader(parent context.Context, f profile.Fetcher, log *slog.Logger) Loader {
	if parent == nil {
		parent = context.Background()
	}
	return Loader{parent: parent, fetcher: f, log: log}
}

// State returns the loader state.
func (l Loader) State() LoaderState { return l.state }

// Loading reports whether a request is in flight.
func (l Loader) Loading() bool { return l.state == LoaderLoading }

// Outcome returns the settled outcome. Only meaningful when loaded.
func (l Loader) Outcome() profile.Outcome { return l.outcome }

// Gen returns the current request generation.
func (l Loader) Gen() uint64 { return l.gen }

// Load points the loader at a (wallet, identity) pair. A missing wallet or
// key settles at once as not found without a fetch. A new pair starts a
// fetch and supersedes any request in flight; an unchanged pair is a no-op.
func (l Loader) Load(w *wallet.Record, key string) (Loader, tea.Cmd) {
	if w == nil || key == "" {
		l = l.supersede()
		l.key, l.address = "", ""
		l.state = LoaderLoaded
		l.outcome = profile.NotFound()
		return l, nil
	}

	if l.state != LoaderIdle && l.key == key && l.address == w.Address {
		return l, nil
	}

	l.key, l.address, l.record = key, w.Address, *w
	return l.start()
}

// Retry fetches again for the current pair. It does nothing when there is
// no pair to fetch for.
func (l Loader) Retry() (Loader, tea.Cmd) {
	if l.key == "" || l.address == "" {
		return l, nil
	}
	return l.start()
}

// Update applies a fetch result if it belongs to the latest request.
// The second return value reports whether the message was applied.
func (l Loader) Update(msg ProfileFetchedMsg) (Loader, bool) {
	if msg.Gen != l.gen || l.state != LoaderLoading {
		l.log.Debug("discard stale profile result", "gen", msg.Gen, "current", l.gen)
		return l, false
	}

	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.state = LoaderLoaded
	l.outcome = msg.Outcome
	return l, true
}

// Stop cancels any in-flight request and discards its result.
func (l Loader) Stop() Loader {
	l = l.supersede()
	if l.state == LoaderLoading {
		l.state = LoaderIdle
	}
	return l
}

func (l Loader) start() (Loader, tea.Cmd) {
	l = l.supersede()

	ctx, cancel := context.WithCancel(l.parent)
	l.cancel = cancel
	l.state = LoaderLoading
	l.outcome = profile.Outcome{}

	return l, fetchCmd(ctx, l.fetcher, l.record, l.gen, l.log)
}

// supersede bumps the generation and cancels the previous request so that
// any result still on its way is ignored.
func (l Loader) supersede() Loader {
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.gen++
	return l
}

func fetchCmd(ctx context.Context, f profile.Fetcher, w wallet.Record, gen uint64, log *slog.Logger) tea.Cmd {
	return func() (msg tea.Msg) {
		reqID := uuid.NewString()
		log := log.With("request_id", reqID, "gen", gen)
		log.Info("fetch profile", "address", w.Address)

		defer func() {
			if r := recover(); r != nil {
				log.Error("fetch profile panicked", "panic", fmt.Sprint(r))
				msg = ProfileFetchedMsg{Gen: gen, Outcome: profile.Classify(profile.Response{}, fmt.Errorf("panic: %v", r))}
			}
		}()

		resp, err := f.FetchProfile(ctx, w)
		if err != nil {
			log.Error("fetch profile", "err", err)
		}

		out := profile.Classify(resp, err)
		log.Info("profile fetched", "outcome", out.Kind.String())
		return ProfileFetchedMsg{Gen: gen, Outcome: out}
	}
}
