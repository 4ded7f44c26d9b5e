package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zarlcorp/vaayu/internal/dashboard"
	"github.com/zarlcorp/vaayu/internal/identity"
	"github.com/zarlcorp/vaayu/internal/profile"
	"github.com/zarlcorp/vaayu/internal/wallet"
)

const testSeed = "0101010101010101010101010101010101010101010101010101010101010101"

type stubFetcher struct {
	resp profile.Response
	err  error
}

func (f stubFetcher) FetchProfile(context.Context, wallet.Record) (profile.Response, error) {
	return f.resp, f.err
}

func testEnv(t *testing.T) (Env, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return Env{
		WalletDir: filepath.Join(t.TempDir(), "wallets"),
		Identity:  identity.NewStatic("user@x.com", "civic-1"),
		Password:  func(bool) (string, error) { return "testpass", nil },
		Out:       &out,
		Log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, &out
}

func importWallet(t *testing.T, env Env) {
	t.Helper()
	if err := CmdWallet(context.Background(), env, []string{"import", testSeed}); err != nil {
		t.Fatal(err)
	}
}

func TestHasFlag(t *testing.T) {
	tests := []struct {
		name string
		args []string
		flag string
		want bool
	}{
		{"present", []string{"--json", "--force"}, "--json", true},
		{"absent", []string{"--force"}, "--json", false},
		{"empty", nil, "--json", false},
		{"case insensitive", []string{"--JSON"}, "--json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := hasFlag(tt.args, tt.flag)
			if got != tt.want {
				t.Errorf("hasFlag(%v, %s) = %v, want %v", tt.args, tt.flag, got, tt.want)
			}
		})
	}
}

func TestIsFirstRun(t *testing.T) {
	dir := t.TempDir()
	if !IsFirstRun(dir) {
		t.Error("expected first run for empty dir")
	}

	os.WriteFile(filepath.Join(dir, "salt"), []byte("test"), 0o600)
	if IsFirstRun(dir) {
		t.Error("expected not first run after salt exists")
	}
}

func TestOpenWalletsPassesFirstRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "wallets")
	var seen []bool
	pw := func(first bool) (string, error) {
		seen = append(seen, first)
		return "pw", nil
	}

	s, err := OpenWallets(dir, pw)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = OpenWallets(dir, pw)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	if len(seen) != 2 || !seen[0] || seen[1] {
		t.Errorf("first-run flags = %v, want [true false]", seen)
	}
}

func TestOpenWalletsPasswordError(t *testing.T) {
	_, err := OpenWallets(t.TempDir(), func(bool) (string, error) {
		return "", errors.New("passwords do not match")
	})
	if err == nil {
		t.Fatal("expected password error")
	}
}

func TestWhoami(t *testing.T) {
	env, out := testEnv(t)

	if err := CmdWhoami(context.Background(), env, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "user@x.com") || !strings.Contains(out.String(), "civic-1") {
		t.Errorf("output = %q", out.String())
	}
}

func TestWhoamiJSON(t *testing.T) {
	env, out := testEnv(t)
	env.Identity = identity.NewStatic("", "civic-1")

	if err := CmdWhoami(context.Background(), env, []string{"--json"}); err != nil {
		t.Fatal(err)
	}

	var got whoamiOutput
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Key != "civic-1" {
		t.Errorf("key = %q, want id fallback", got.Key)
	}
}

func TestWhoamiSignedOut(t *testing.T) {
	env, _ := testEnv(t)
	env.Identity = identity.NewStatic("", "")

	err := CmdWhoami(context.Background(), env, nil)
	if !errors.Is(err, identity.ErrNoSession) {
		t.Errorf("got %v, want ErrNoSession", err)
	}
}

func TestWalletImportAndShow(t *testing.T) {
	env, out := testEnv(t)
	importWallet(t, env)

	seed, _ := os.ReadFile(filepath.Join(env.WalletDir, "salt"))
	if len(seed) == 0 {
		t.Fatal("store should be initialized")
	}

	out.Reset()
	if err := CmdWallet(context.Background(), env, []string{"--json"}); err != nil {
		t.Fatal(err)
	}

	var got walletOutput
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Key != "user@x.com" || !strings.HasPrefix(got.Address, "0x") {
		t.Errorf("wallet = %+v", got)
	}
	if strings.Contains(out.String(), "private") {
		t.Error("private key must not be printed")
	}
}

func TestWalletImportRefusesOverwrite(t *testing.T) {
	env, _ := testEnv(t)
	importWallet(t, env)

	other := strings.Repeat("02", 32)
	err := CmdWallet(context.Background(), env, []string{"import", other})
	if !errors.Is(err, ErrWalletExists) {
		t.Fatalf("got %v, want ErrWalletExists", err)
	}

	if err := CmdWallet(context.Background(), env, []string{"import", "0x" + other, "--force"}); err != nil {
		t.Fatalf("force import: %v", err)
	}
}

func TestWalletImportBadSeed(t *testing.T) {
	env, _ := testEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing", []string{"import"}},
		{"not hex", []string{"import", "zz"}},
		{"short", []string{"import", "0102"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := CmdWallet(context.Background(), env, tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWalletShowMissing(t *testing.T) {
	env, _ := testEnv(t)

	err := CmdWallet(context.Background(), env, nil)
	if !errors.Is(err, ErrNoWallet) {
		t.Errorf("got %v, want ErrNoWallet", err)
	}
}

func TestForget(t *testing.T) {
	env, out := testEnv(t)
	importWallet(t, env)

	if err := CmdForget(context.Background(), env); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "cleared wallet for user@x.com") {
		t.Errorf("output = %q", out.String())
	}

	if err := CmdWallet(context.Background(), env, nil); !errors.Is(err, ErrNoWallet) {
		t.Errorf("got %v, want ErrNoWallet after forget", err)
	}

	// forgetting twice is fine
	if err := CmdForget(context.Background(), env); err != nil {
		t.Errorf("second forget: %v", err)
	}
}

func TestProfile(t *testing.T) {
	tests := []struct {
		name      string
		fetcher   stubFetcher
		wantState string
		wantErr   string
		wantOut   string
	}{
		{
			name:      "found",
			fetcher:   stubFetcher{resp: profile.Response{Success: true, Profile: &profile.HealthProfile{Name: "Ana", Age: 30}}},
			wantState: dashboard.ViewProfileFound.String(),
			wantOut:   "Ana",
		},
		{
			name:      "absent",
			fetcher:   stubFetcher{resp: profile.Response{Error: "Profile not found for this wallet"}},
			wantState: dashboard.ViewProfileAbsent.String(),
			wantOut:   "no health profile found",
		},
		{
			name:      "error",
			fetcher:   stubFetcher{err: errors.New("connection refused")},
			wantState: dashboard.ViewProfileError.String(),
			wantErr:   profile.MsgUnexpected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, out := testEnv(t)
			env.Fetcher = tt.fetcher
			importWallet(t, env)
			out.Reset()

			err := CmdProfile(context.Background(), env, nil)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("got %v, want %q", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("output = %q, want %q", out.String(), tt.wantOut)
			}

			out.Reset()
			if err := CmdProfile(context.Background(), env, []string{"--json"}); err != nil {
				t.Fatal(err)
			}
			var got profileOutput
			if err := json.Unmarshal(out.Bytes(), &got); err != nil {
				t.Fatal(err)
			}
			if got.State != tt.wantState {
				t.Errorf("state = %q, want %q", got.State, tt.wantState)
			}
		})
	}
}

func TestProfileNoWallet(t *testing.T) {
	env, _ := testEnv(t)
	env.Fetcher = stubFetcher{}

	if err := CmdProfile(context.Background(), env, nil); !errors.Is(err, ErrNoWallet) {
		t.Errorf("got %v, want ErrNoWallet", err)
	}
}

func TestProfileWithoutFetcher(t *testing.T) {
	env, _ := testEnv(t)

	if err := CmdProfile(context.Background(), env, nil); !errors.Is(err, ErrNoFetcher) {
		t.Errorf("got %v, want ErrNoFetcher", err)
	}
}

// blockingFetcher answers only when the request context ends.
type blockingFetcher struct{}

func (blockingFetcher) FetchProfile(ctx context.Context, _ wallet.Record) (profile.Response, error) {
	select {
	case <-ctx.Done():
		return profile.Response{}, ctx.Err()
	case <-time.After(5 * time.Second):
		return profile.Response{Error: "too slow"}, nil
	}
}

func TestProfileHonoursContext(t *testing.T) {
	env, _ := testEnv(t)
	env.Fetcher = blockingFetcher{}
	importWallet(t, env)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := CmdProfile(ctx, env, nil)
	if time.Since(start) > 4*time.Second {
		t.Error("profile should stop when the context is cancelled")
	}
	if err == nil || err.Error() != profile.MsgUnexpected {
		t.Errorf("got %v, want %q", err, profile.MsgUnexpected)
	}
}
