// Package profile defines the remotely stored health profile and classifies
// profile fetch results into the outcomes the dashboard renders.
package profile

import (
	"context"
	"strings"

	"github.com/zarlcorp/vaayu/internal/wallet"
)

const (
	// MsgUnexpected replaces any transport or decoding failure so raw error
	// text never reaches the user.
	MsgUnexpected = "An unexpected error occurred while loading your profile"

	// MsgLoadFailed is used when the store reports failure without a message.
	MsgLoadFailed = "Failed to load profile data"
)

// notFoundSignatures mark a failure message as "the user has no profile".
var notFoundSignatures = []string{
	"profile not found",
	"access denied",
}

// HealthProfile is the personal and health data stored for a wallet.
// Optional fields are empty when unset.
type HealthProfile struct {
	Name                 string   `json:"name"`
	Age                  int      `json:"age"`
	Gender               string   `json:"gender"`
	Location             string   `json:"location"`
	ChronicCondition     []string `json:"chronicCondition"`
	PreferredWalkTime    string   `json:"preferredWalkTime,omitempty"`
	PollutionSensitivity string   `json:"pollutionSensitivity,omitempty"`
}

// Response is the structured reply of a profile store.
type Response struct {
	Success bool           `json:"success"`
	Profile *HealthProfile `json:"profile,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Fetcher reads the profile for a wallet. A returned error means the call
// itself failed (transport, decoding), not that the store answered "no".
type Fetcher interface {
	FetchProfile(ctx context.Context, w wallet.Record) (Response, error)
}

// Kind tags an Outcome.
type Kind int

const (
	KindSuccess Kind = iota
	KindNotFound
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindNotFound:
		return "not found"
	case KindError:
		return "error"
	}
	return "unknown"
}

// Outcome is the classified result of a fetch. Profile is set only for
// KindSuccess and Message only for KindError.
type Outcome struct {
	Kind    Kind
	Profile HealthProfile
	Message string
}

// Success returns a successful outcome.
func Success(p HealthProfile) Outcome { return Outcome{Kind: KindSuccess, Profile: p} }

// NotFound returns the expected-absence outcome.
func NotFound() Outcome { return Outcome{Kind: KindNotFound} }

// Failed returns an error outcome carrying msg.
func Failed(msg string) Outcome { return Outcome{Kind: KindError, Message: msg} }

// Classify maps a fetch result onto an Outcome.
func Classify(resp Response, err error) Outcome {
	if err != nil {
		return Failed(MsgUnexpected)
	}

	if resp.Success && resp.Profile != nil {
		return Success(*resp.Profile)
	}

	if IsNotFound(resp.Error) {
		return NotFound()
	}

	if resp.Error == "" {
		return Failed(MsgLoadFailed)
	}
	return Failed(resp.Error)
}

// IsNotFound reports whether a store message means the profile does not
// exist for the caller. Matching is case-insensitive.
func IsNotFound(msg string) bool {
	lower := strings.ToLower(msg)
	for _, sig := range notFoundSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}
