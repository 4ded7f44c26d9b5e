package tui

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// systemClipboard writes to the platform clipboard.
type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error {
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	return nil
}
