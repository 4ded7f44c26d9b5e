// Package cli implements vaayu's command-line subcommands.
package cli

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/vaayu/internal/dashboard"
	"github.com/zarlcorp/vaayu/internal/identity"
	"github.com/zarlcorp/vaayu/internal/profile"
	"github.com/zarlcorp/vaayu/internal/wallet"
	"golang.org/x/term"
)

var (
	ErrUsage        = errors.New("usage")
	ErrWalletExists = errors.New("wallet already exists for this identity")
	ErrNoWallet     = errors.New("no wallet for this identity")
	ErrNoFetcher    = errors.New("aptos node is not configured")
)

// PasswordFunc supplies the wallet store password. firstRun is true when
// the store does not exist yet and the password should be confirmed.
type PasswordFunc func(firstRun bool) (string, error)

// Env is what the commands need from main.
type Env struct {
	WalletDir string
	Identity  identity.Provider
	Fetcher   profile.Fetcher
	Password  PasswordFunc
	Out       io.Writer
	Log       *slog.Logger
}

func (e Env) logger() *slog.Logger {
	if e.Log == nil {
		return slog.Default()
	}
	return e.Log
}

// ReadPassword prompts for a password on w and reads it without echo.
func ReadPassword(prompt string, w io.Writer) (string, error) {
	fmt.Fprint(w, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

// ReadNewPassword prompts for a new password with confirmation.
func ReadNewPassword(w io.Writer) (string, error) {
	pass, err := ReadPassword("new wallet password: ", w)
	if err != nil {
		return "", err
	}
	confirm, err := ReadPassword("confirm password: ", w)
	if err != nil {
		return "", err
	}
	if pass != confirm {
		return "", fmt.Errorf("passwords do not match")
	}
	return pass, nil
}

// TerminalPassword prompts on stderr.
func TerminalPassword(firstRun bool) (string, error) {
	if firstRun {
		return ReadNewPassword(os.Stderr)
	}
	return ReadPassword("wallet password: ", os.Stderr)
}

// IsFirstRun checks whether the wallet store has been initialized.
func IsFirstRun(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, "salt"))
	return err != nil
}

// OpenWallets prompts for a password and opens the wallet store.
func OpenWallets(dir string, password PasswordFunc) (*wallet.Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	pass, err := password(IsFirstRun(dir))
	if err != nil {
		return nil, err
	}

	return wallet.Open(zfilesystem.NewOSFileSystem(dir), pass)
}

// currentUser returns the signed-in identity and its key.
func (e Env) currentUser(ctx context.Context) (identity.Session, string, error) {
	s, err := e.Identity.Session(ctx)
	if err != nil {
		return identity.Session{}, "", err
	}
	key, ok := s.Key()
	if !ok {
		return identity.Session{}, "", identity.ErrNoSession
	}
	return s, key, nil
}

type whoamiOutput struct {
	Key   string `json:"key"`
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// CmdWhoami prints the signed-in identity and the key wallets are stored
// under.
func CmdWhoami(ctx context.Context, env Env, args []string) error {
	s, key, err := env.currentUser(ctx)
	if err != nil {
		return err
	}

	out := whoamiOutput{Key: key, ID: s.User.ID, Email: s.User.Email}
	if hasFlag(args, "--json") {
		return printJSON(env.Out, out)
	}

	fmt.Fprintf(env.Out, "  key:    %s\n", out.Key)
	fmt.Fprintf(env.Out, "  id:     %s\n", orDash(out.ID))
	fmt.Fprintf(env.Out, "  email:  %s\n", orDash(out.Email))
	return nil
}

type walletOutput struct {
	Key       string    `json:"key"`
	Address   string    `json:"address"`
	PublicKey string    `json:"public_key"`
	CreatedAt time.Time `json:"created_at"`
}

// CmdWallet shows the wallet for the signed-in identity, or imports one
// with "wallet import <seed-hex>".
func CmdWallet(ctx context.Context, env Env, args []string) error {
	if len(args) > 0 && args[0] == "import" {
		return cmdWalletImport(ctx, env, args[1:])
	}

	_, key, err := env.currentUser(ctx)
	if err != nil {
		return err
	}

	store, err := OpenWallets(env.WalletDir, env.Password)
	if err != nil {
		return err
	}
	defer store.Close()

	if dashboard.Guard(store, key, env.logger()) {
		return errors.New(dashboard.MsgWalletCorrupted)
	}

	rec, err := store.Get(key)
	if errors.Is(err, wallet.ErrNotFound) {
		return fmt.Errorf("%w %q", ErrNoWallet, key)
	}
	if err != nil {
		return err
	}

	out := walletOutput{Key: key, Address: rec.Address, PublicKey: rec.PublicKey, CreatedAt: rec.CreatedAt}
	if hasFlag(args, "--json") {
		return printJSON(env.Out, out)
	}

	fmt.Fprintf(env.Out, "  key:         %s\n", out.Key)
	fmt.Fprintf(env.Out, "  address:     %s\n", out.Address)
	fmt.Fprintf(env.Out, "  public key:  %s\n", out.PublicKey)
	fmt.Fprintf(env.Out, "  created:     %s\n", out.CreatedAt.Format("2006-01-02 15:04"))
	return nil
}

func cmdWalletImport(ctx context.Context, env Env, args []string) error {
	var seedHex string
	for _, a := range args {
		if !strings.HasPrefix(a, "--") {
			seedHex = a
			break
		}
	}
	if seedHex == "" {
		return fmt.Errorf("%w: vaayu wallet import <seed-hex> [--force]", ErrUsage)
	}

	seed, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(seedHex, "0x"), "0X"))
	if err != nil {
		return fmt.Errorf("decode seed: %w", err)
	}

	rec, err := wallet.FromSeed(seed)
	if err != nil {
		return err
	}

	_, key, err := env.currentUser(ctx)
	if err != nil {
		return err
	}

	store, err := OpenWallets(env.WalletDir, env.Password)
	if err != nil {
		return err
	}
	defer store.Close()

	if _, err := store.Get(key); err == nil && !hasFlag(args, "--force") {
		return fmt.Errorf("%w: %s (use --force to replace)", ErrWalletExists, key)
	}

	if err := store.Save(key, rec); err != nil {
		return err
	}

	env.logger().Info("wallet imported", "address", rec.Address)
	fmt.Fprintf(env.Out, "imported %s\n", rec.Address)
	return nil
}

// CmdForget removes the wallet stored for the signed-in identity.
func CmdForget(ctx context.Context, env Env) error {
	_, key, err := env.currentUser(ctx)
	if err != nil {
		return err
	}

	store, err := OpenWallets(env.WalletDir, env.Password)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(key); err != nil {
		return fmt.Errorf("forget: %w", err)
	}
	fmt.Fprintf(env.Out, "cleared wallet for %s\n", key)
	return nil
}

type profileOutput struct {
	State   string                 `json:"state"`
	Message string                 `json:"message,omitempty"`
	Profile *profile.HealthProfile `json:"profile,omitempty"`
}

// CmdProfile runs the dashboard pipeline once, headless, and prints the
// resulting state.
func CmdProfile(ctx context.Context, env Env, args []string) error {
	if env.Fetcher == nil {
		return ErrNoFetcher
	}

	id, err := env.Identity.Session(ctx)
	if err != nil {
		return err
	}

	store, err := OpenWallets(env.WalletDir, env.Password)
	if err != nil {
		return err
	}
	defer store.Close()

	s := dashboard.NewSession(dashboard.Deps{
		Context:  ctx,
		Wallets:  store,
		Profiles: env.Fetcher,
		Log:      env.logger(),
	})
	s, cmd := s.SetIdentity(id)
	if cmd != nil {
		s, _ = s.Update(cmd())
	}
	defer s.Close()

	v := s.View()
	out := profileOutput{State: v.Kind.String(), Message: v.Message}
	if v.Kind == dashboard.ViewProfileFound {
		p := v.Profile
		out.Profile = &p
	}

	if hasFlag(args, "--json") {
		return printJSON(env.Out, out)
	}

	switch v.Kind {
	case dashboard.ViewWalletError:
		return errors.New(v.Message)
	case dashboard.ViewWalletMissing:
		return ErrNoWallet
	case dashboard.ViewProfileError:
		return errors.New(v.Message)
	case dashboard.ViewProfileAbsent:
		fmt.Fprintln(env.Out, "no health profile found")
		return nil
	}

	printProfile(env.Out, v.Profile)
	return nil
}

func printProfile(w io.Writer, p profile.HealthProfile) {
	conds := "none"
	if len(p.ChronicCondition) > 0 {
		conds = strings.Join(p.ChronicCondition, ", ")
	}

	fmt.Fprintf(w, "  name:        %s\n", p.Name)
	fmt.Fprintf(w, "  age:         %d\n", p.Age)
	fmt.Fprintf(w, "  gender:      %s\n", orNotSpecified(p.Gender))
	fmt.Fprintf(w, "  location:    %s\n", orNotSpecified(p.Location))
	fmt.Fprintf(w, "  conditions:  %s\n", conds)
	fmt.Fprintf(w, "  walk time:   %s\n", orNotSpecified(p.PreferredWalkTime))
	fmt.Fprintf(w, "  sensitivity: %s\n", orNotSpecified(p.PollutionSensitivity))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if strings.EqualFold(a, flag) {
			return true
		}
	}
	return false
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

func orNotSpecified(v string) string {
	if v == "" {
		return "Not specified"
	}
	return v
}
