package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zapp"
	"github.com/zarlcorp/vaayu/internal/aptos"
	"github.com/zarlcorp/vaayu/internal/cli"
	"github.com/zarlcorp/vaayu/internal/config"
	"github.com/zarlcorp/vaayu/internal/identity"
	"github.com/zarlcorp/vaayu/internal/logging"
	"github.com/zarlcorp/vaayu/internal/tui"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	app := zapp.New(zapp.WithName("vaayu"))

	ctx, cancel := zapp.SignalContext(context.Background())
	defer cancel()

	cfg, err := config.Load(config.Path())
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "vaayu: config: %v\n", err)
		_ = app.Close()
		os.Exit(1)
	}

	if len(os.Args) > 1 {
		slog.SetDefault(logging.New(cfg.Log, os.Stderr))
		if err := runCLI(ctx, cfg, os.Args[1], os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "vaayu: %v\n", err)
			_ = app.Close()
			os.Exit(1)
		}
		_ = app.Close()
		return
	}

	if err := runTUI(ctx, cfg); err != nil {
		slog.Error("tui", "err", err)
		_ = app.Close()
		os.Exit(1)
	}

	if err := app.Close(); err != nil {
		slog.Error("shutdown", "err", err)
		os.Exit(1)
	}
}

func identityProvider(cfg *config.Config) identity.Provider {
	if cfg.Identity.TokenFile != "" {
		return identity.NewTokenProvider(cfg.Identity.TokenFile, cfg.Identity.TokenSecret, cfg.Identity.Issuer)
	}
	return identity.NewStatic(cfg.Identity.Email, cfg.Identity.ID)
}

func aptosClient(cfg config.AptosConfig) (*aptos.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return aptos.NewClient(aptos.Config{
		NodeURL:       cfg.NodeURL,
		ModuleAddress: cfg.ModuleAddress,
		APIKey:        cfg.APIKey,
		Timeout:       cfg.Timeout,
	}), nil
}

func runCLI(ctx context.Context, cfg *config.Config, cmd string, args []string) error {
	env := cli.Env{
		WalletDir: cfg.WalletDir(),
		Identity:  identityProvider(cfg),
		Password:  cli.TerminalPassword,
		Out:       os.Stdout,
		Log:       slog.Default(),
	}

	switch cmd {
	case "version":
		fmt.Printf("vaayu %s\n", version)
		return nil
	case "whoami":
		return cli.CmdWhoami(ctx, env, args)
	case "wallet":
		return cli.CmdWallet(ctx, env, args)
	case "forget":
		return cli.CmdForget(ctx, env)
	case "profile":
		c, err := aptosClient(cfg.Aptos)
		if err != nil {
			return fmt.Errorf("%w: %v", cli.ErrNoFetcher, err)
		}
		env.Fetcher = c
		return cli.CmdProfile(ctx, env, args)
	}

	return fmt.Errorf("unknown command %q", cmd)
}

func runTUI(ctx context.Context, cfg *config.Config) error {
	logFile, err := logging.OpenFile(cfg.LogPath())
	if err != nil {
		return err
	}
	defer logFile.Close()

	log := logging.New(cfg.Log, logFile)
	slog.SetDefault(log)

	m := tui.New(tui.Options{
		Context:     ctx,
		Version:     version,
		WalletDir:   cfg.WalletDir(),
		SettingsDir: cfg.SettingsDir(),
		FirstRun:    cli.IsFirstRun(cfg.WalletDir()),
		Identity:    identityProvider(cfg),
		Aptos:       cfg.Aptos,
		Log:         log,
	})

	p := tea.NewProgram(m)
	finalModel, err := p.Run()
	if err != nil {
		return err
	}

	if fm, ok := finalModel.(tui.Model); ok {
		fm.Close()
	}

	return nil
}
