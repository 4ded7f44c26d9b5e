package dashboard

import (
	"errors"
	"log/slog"

	"github.com/zarlcorp/vaayu/internal/wallet"
)

// WalletStore is the local wallet cache as the dashboard sees it.
type WalletStore interface {
	Get(key string) (wallet.Record, error)
	Validate(key string) bool
	Clear(key string) error
}

// Guard clears the wallet entry for key when it fails validation and
// reports whether it did. It never fails: a Clear error is logged and the
// entry still counts as cleared, since it is unusable either way.
func Guard(store WalletStore, key string, log *slog.Logger) (cleared bool) {
	if store.Validate(key) {
		return false
	}

	if err := store.Clear(key); err != nil {
		log.Warn("clear corrupted wallet", "err", err)
	} else {
		log.Info("cleared corrupted wallet")
	}
	return true
}

// Resolver reads the wallet for an identity key, memoized on the key.
type Resolver struct {
	store  WalletStore
	log    *slog.Logger
	key    string
	done   bool
	record *wallet.Record
}

func newResolver(store WalletStore, log *slog.Logger) Resolver {
	return Resolver{store: store, log: log}
}

// Resolve returns the wallet for key, or nil when there is none. An empty key
// never touches the store. Only a key change triggers a new read.
func (r *Resolver) Resolve(key string) *wallet.Record {
	if key == "" {
		r.key, r.done, r.record = "", false, nil
		return nil
	}
	if r.done && r.key == key {
		return r.record
	}

	r.key, r.done, r.record = key, true, nil

	rec, err := r.store.Get(key)
	if err != nil {
		if !errors.Is(err, wallet.ErrNotFound) {
			r.log.Warn("read wallet", "err", err)
		}
		return nil
	}

	r.record = &rec
	return r.record
}

// Invalidate drops the memoized result so the next Resolve reads again.
func (r *Resolver) Invalidate() {
	r.done = false
	r.record = nil
}
