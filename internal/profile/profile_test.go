package profile

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	ana := &HealthProfile{Name: "Ana", Age: 30, Gender: "female", Location: "Delhi", ChronicCondition: []string{"asthma"}}

	tests := []struct {
		name     string
		resp     Response
		err      error
		wantKind Kind
		wantMsg  string
	}{
		{"success", Response{Success: true, Profile: ana}, nil, KindSuccess, ""},
		{"profile not found", Response{Error: "Profile not found for this wallet"}, nil, KindNotFound, ""},
		{"access denied", Response{Error: "access denied"}, nil, KindNotFound, ""},
		{"access denied mixed case", Response{Error: "Move abort: ACCESS DENIED"}, nil, KindNotFound, ""},
		{"structured error", Response{Error: "Database timeout"}, nil, KindError, "Database timeout"},
		{"empty error", Response{}, nil, KindError, MsgLoadFailed},
		{"success without payload", Response{Success: true}, nil, KindError, MsgLoadFailed},
		{"transport failure", Response{}, errors.New("dial tcp: connection refused"), KindError, MsgUnexpected},
		{"transport failure wins over payload", Response{Success: true, Profile: ana}, errors.New("eof"), KindError, MsgUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.resp, tt.err)
			if got.Kind != tt.wantKind {
				t.Fatalf("kind = %s, want %s", got.Kind, tt.wantKind)
			}
			if got.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", got.Message, tt.wantMsg)
			}
		})
	}
}

func TestClassifySuccessCopiesPayload(t *testing.T) {
	p := &HealthProfile{Name: "Ana", Age: 30, ChronicCondition: []string{"asthma", "copd"}}

	got := Classify(Response{Success: true, Profile: p}, nil)
	if got.Profile.Name != "Ana" || got.Profile.Age != 30 || len(got.Profile.ChronicCondition) != 2 {
		t.Errorf("profile = %+v", got.Profile)
	}
}

func TestUnexpectedMessageIsGeneric(t *testing.T) {
	got := Classify(Response{}, errors.New("secret internal detail"))
	if got.Message != MsgUnexpected {
		t.Errorf("message = %q, want generic message", got.Message)
	}
}

func TestNotFoundCarriesNoMessage(t *testing.T) {
	got := Classify(Response{Error: "Profile not found"}, nil)
	if got.Message != "" {
		t.Errorf("not-found outcome leaked message %q", got.Message)
	}
}
