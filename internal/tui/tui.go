// Package tui implements the root Bubble Tea model for vaayu.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/zarlcorp/core/pkg/zfilesystem"
	"github.com/zarlcorp/core/pkg/zstore"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/vaayu/internal/aptos"
	"github.com/zarlcorp/vaayu/internal/config"
	"github.com/zarlcorp/vaayu/internal/dashboard"
	"github.com/zarlcorp/vaayu/internal/identity"
	"github.com/zarlcorp/vaayu/internal/profile"
	"github.com/zarlcorp/vaayu/internal/wallet"
)

const appName = "vaayu"

var accent = zstyle.ZburnAccent

type viewID int

const (
	viewPassword viewID = iota
	viewDashboard
	viewSettings
)

// navigateMsg tells the root model to switch views.
type navigateMsg struct {
	view viewID
}

// flashMsg clears the flash after a timeout.
type flashMsg struct{}

func clearFlashAfter() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return flashMsg{}
	})
}

// FetcherFunc builds the profile fetcher for the effective Aptos settings.
type FetcherFunc func(cfg config.AptosConfig) profile.Fetcher

// Options configures the root model. Zero Clipboard, Fetcher and Log fall
// back to the system clipboard, the Aptos client and slog.Default. Context
// bounds every profile request.
type Options struct {
	Context     context.Context
	Version     string
	WalletDir   string
	SettingsDir string
	FirstRun    bool
	Identity    identity.Provider
	Aptos       config.AptosConfig
	Clipboard   dashboard.Clipboard
	Fetcher     FetcherFunc
	Log         *slog.Logger
}

// Model is the root TUI model.
type Model struct {
	opts Options
	log  *slog.Logger

	wallets       *wallet.Store
	settingsStore *zstore.Store
	configs       *zstore.Collection[configEnvelope]
	node          NodeSettings

	active    viewID
	password  passwordModel
	dashboard dashboardModel
	settings  settingsModel

	// terminal dimensions
	width  int
	height int
}

// New creates the root TUI model.
func New(opts Options) Model {
	if opts.Clipboard == nil {
		opts.Clipboard = systemClipboard{}
	}
	if opts.Fetcher == nil {
		opts.Fetcher = AptosFetcher
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	return Model{
		opts:     opts,
		log:      opts.Log,
		active:   viewPassword,
		password: newPasswordModel(opts.FirstRun, opts.WalletDir),
	}
}

// AptosFetcher returns the Aptos client for cfg. Incomplete settings yield
// a fetcher that reports the problem as a profile error.
func AptosFetcher(cfg config.AptosConfig) profile.Fetcher {
	if err := cfg.Validate(); err != nil {
		return unconfiguredFetcher{}
	}
	return aptos.NewClient(aptos.Config{
		NodeURL:       cfg.NodeURL,
		ModuleAddress: cfg.ModuleAddress,
		APIKey:        cfg.APIKey,
		Timeout:       cfg.Timeout,
	})
}

type unconfiguredFetcher struct{}

func (unconfiguredFetcher) FetchProfile(context.Context, wallet.Record) (profile.Response, error) {
	return profile.Response{Error: "Aptos node is not configured, press s to open settings"}, nil
}

func (m Model) Init() tea.Cmd {
	return m.password.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case passwordSubmitMsg:
		return m.openStores(msg.password)

	case navigateMsg:
		return m.navigate(msg.view)

	case saveNodeSettingsMsg:
		return m.handleSaveNode(msg.settings)

	// async results belong to the dashboard whichever view is showing
	case identityLoadedMsg, dashboard.ProfileFetchedMsg, dashboard.AckResetMsg, spinner.TickMsg:
		if m.wallets == nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.dashboard, cmd = m.dashboard.Update(msg)
		return m, cmd
	}

	return m.updateActive(msg)
}

func (m Model) View() string {
	if m.active == viewPassword {
		return m.password.View()
	}

	var content string
	switch m.active {
	case viewDashboard:
		content = m.dashboard.View()
	case viewSettings:
		content = m.settings.View()
	}

	header := zstyle.RenderHeader(appName, viewTitle(m.active), accent)
	sep := zstyle.RenderSeparator(m.width)
	footer := zstyle.RenderFooter(helpFor(m.active))

	return "\n" + header + "\n" + sep + "\n" + content + "\n" + footer + "\n"
}

// viewTitle returns the display title for each view.
func viewTitle(id viewID) string {
	switch id {
	case viewDashboard:
		return "Dashboard"
	case viewSettings:
		return "Aptos Settings"
	}
	return ""
}

// helpFor returns keybinding pairs for each view's footer.
func helpFor(id viewID) []zstyle.HelpPair {
	switch id {
	case viewDashboard:
		return []zstyle.HelpPair{
			{Key: "c", Desc: "copy address"},
			{Key: "r", Desc: "retry/reload"},
			{Key: "s", Desc: "settings"},
			{Key: "q", Desc: "quit"},
		}
	case viewSettings:
		return []zstyle.HelpPair{
			{Key: "tab", Desc: "next"},
			{Key: "ctrl+s", Desc: "save"},
			{Key: "esc", Desc: "back"},
		}
	}
	return nil
}

func (m Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.active {
	case viewPassword:
		m.password, cmd = m.password.Update(msg)
	case viewDashboard:
		m.dashboard, cmd = m.dashboard.Update(msg)
	case viewSettings:
		m.settings, cmd = m.settings.Update(msg)
	}

	return m, cmd
}

func (m Model) openStores(password string) (tea.Model, tea.Cmd) {
	fail := func(err error) (tea.Model, tea.Cmd) {
		m.password, _ = m.password.Update(passwordErrMsg{err: err})
		return m, nil
	}

	for _, dir := range []string{m.opts.WalletDir, m.opts.SettingsDir} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fail(fmt.Errorf("create data dir: %w", err))
		}
	}

	ws, err := wallet.Open(zfilesystem.NewOSFileSystem(m.opts.WalletDir), password)
	if err != nil {
		return fail(err)
	}

	ss, err := zstore.Open(zfilesystem.NewOSFileSystem(m.opts.SettingsDir), []byte(password))
	if err != nil {
		ws.Close()
		return fail(fmt.Errorf("open settings: %w", err))
	}

	cfgCol, err := zstore.NewCollection[configEnvelope](ss, "config")
	if err != nil {
		ws.Close()
		ss.Close()
		return fail(err)
	}

	m.wallets = ws
	m.settingsStore = ss
	m.configs = cfgCol
	m.node = loadConfig[NodeSettings](cfgCol, nodeSettingsKey)

	session := dashboard.NewSession(dashboard.Deps{
		Context:   m.opts.Context,
		Wallets:   ws,
		Profiles:  m.opts.Fetcher(m.aptosConfig()),
		Clipboard: m.opts.Clipboard,
		Log:       m.log,
	})
	m.dashboard = newDashboardModel(session, m.opts.Identity)
	m.active = viewDashboard

	m.log.Info("stores opened", "wallet_dir", m.opts.WalletDir)
	return m, tea.Batch(m.dashboard.Init(), tea.ClearScreen)
}

// aptosConfig is the file config with stored settings applied.
func (m Model) aptosConfig() config.AptosConfig {
	return m.node.Apply(m.opts.Aptos)
}

func (m Model) navigate(view viewID) (tea.Model, tea.Cmd) {
	switch view {
	case viewDashboard:
		m.active = viewDashboard
		return m, tea.ClearScreen

	case viewSettings:
		m.settings = newSettingsModel(m.node, m.opts.Aptos)
		m.active = viewSettings
		return m, tea.Batch(m.settings.Init(), tea.ClearScreen)
	}

	return m, nil
}

func (m Model) handleSaveNode(s NodeSettings) (tea.Model, tea.Cmd) {
	if err := saveConfig(m.configs, nodeSettingsKey, s); err != nil {
		m.settings.flash = "save: " + err.Error()
		return m, clearFlashAfter()
	}

	m.node = s
	m.log.Info("aptos settings saved", "node_url", m.aptosConfig().NodeURL)

	var cmd tea.Cmd
	m.dashboard.session, cmd = m.dashboard.session.SetProfiles(m.opts.Fetcher(m.aptosConfig()))
	return m, cmd
}

// NodeSettings returns the stored Aptos settings.
func (m Model) NodeSettings() NodeSettings { return m.node }

// Close cleans up resources. Call after the program exits.
func (m Model) Close() {
	m.dashboard.session.Close()
	if m.wallets != nil {
		m.wallets.Close()
	}
	if m.settingsStore != nil {
		m.settingsStore.Close()
	}
}
