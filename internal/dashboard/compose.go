package dashboard

import (
	"github.com/zarlcorp/vaayu/internal/profile"
	"github.com/zarlcorp/vaayu/internal/wallet"
)

// MsgWalletCorrupted is shown after the guard cleared a corrupted wallet.
const MsgWalletCorrupted = "Wallet data was corrupted and has been cleared. Please log in again to create a new wallet."

// ViewKind is the single state the dashboard renders.
type ViewKind int

const (
	ViewWalletError ViewKind = iota
	ViewWalletMissing
	ViewProfileLoading
	ViewProfileError
	ViewProfileFound
	ViewProfileAbsent
)

func (k ViewKind) String() string {
	switch k {
	case ViewWalletError:
		return "wallet error"
	case ViewWalletMissing:
		return "wallet missing"
	case ViewProfileLoading:
		return "profile loading"
	case ViewProfileError:
		return "profile error"
	case ViewProfileFound:
		return "profile found"
	case ViewProfileAbsent:
		return "profile absent"
	}
	return "unknown"
}

// ViewState is the composed dashboard state. Profile is set for
// ViewProfileFound; Message for ViewWalletError and ViewProfileError.
type ViewState struct {
	Kind    ViewKind
	Profile profile.HealthProfile
	Message string
}

// Snapshot is everything Compose looks at.
type Snapshot struct {
	// IdentityLoading is true while the identity provider has not answered.
	IdentityLoading bool
	Key             string
	Cleared         bool
	Wallet          *wallet.Record
	Loader          LoaderState
	Outcome         profile.Outcome
}

// Compose picks exactly one ViewState, first match wins:
// cleared, missing wallet, loading, error, found, absent.
func Compose(s Snapshot) ViewState {
	if s.Cleared {
		return ViewState{Kind: ViewWalletError, Message: MsgWalletCorrupted}
	}

	if s.Key == "" {
		if s.IdentityLoading {
			return ViewState{Kind: ViewProfileLoading}
		}
		return ViewState{Kind: ViewWalletMissing}
	}

	if s.Wallet == nil {
		return ViewState{Kind: ViewWalletMissing}
	}

	switch s.Loader {
	case LoaderIdle, LoaderLoading:
		return ViewState{Kind: ViewProfileLoading}
	}

	switch s.Outcome.Kind {
	case profile.KindError:
		return ViewState{Kind: ViewProfileError, Message: s.Outcome.Message}
	case profile.KindSuccess:
		return ViewState{Kind: ViewProfileFound, Profile: s.Outcome.Profile}
	}
	return ViewState{Kind: ViewProfileAbsent}
}
