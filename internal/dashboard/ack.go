package dashboard

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/vaayu/internal/wallet"
)

// CopyAckDelay is how long the "copied" acknowledgment stays up.
const CopyAckDelay = 2 * time.Second

// Clipboard is the platform clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

// AckResetMsg ends the acknowledgment window opened by copy number Seq.
type AckResetMsg struct {
	Seq uint64
}

// Ack tracks the transient "copied" flag for the wallet address.
type Ack struct {
	copied bool
	seq    uint64
}

// Copied reports whether the acknowledgment is showing.
func (a Ack) Copied() bool { return a.copied }

// Copy writes the wallet address to the clipboard and raises the flag for
// CopyAckDelay. A later copy restarts the window. With no wallet it does
// nothing. Clipboard errors are returned untouched and leave the flag as is.
func (a Ack) Copy(cb Clipboard, w *wallet.Record) (Ack, tea.Cmd, error) {
	if w == nil || w.Address == "" {
		return a, nil, nil
	}

	if err := cb.WriteAll(w.Address); err != nil {
		return a, nil, err
	}

	a.seq++
	a.copied = true
	seq := a.seq

	return a, tea.Tick(CopyAckDelay, func(time.Time) tea.Msg {
		return AckResetMsg{Seq: seq}
	}), nil
}

// Update lowers the flag when msg belongs to the latest copy.
func (a Ack) Update(msg AckResetMsg) Ack {
	if msg.Seq == a.seq {
		a.copied = false
	}
	return a
}
