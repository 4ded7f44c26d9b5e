package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/vaayu/internal/dashboard"
	"github.com/zarlcorp/vaayu/internal/identity"
	"github.com/zarlcorp/vaayu/internal/profile"
)

const notSpecified = "Not specified"

// identityLoadedMsg carries the identity provider's answer.
type identityLoadedMsg struct {
	session identity.Session
	err     error
}

func loadIdentityCmd(p identity.Provider) tea.Cmd {
	return func() tea.Msg {
		s, err := p.Session(context.Background())
		return identityLoadedMsg{session: s, err: err}
	}
}

// dashboardModel renders the composed dashboard state and maps keys onto
// session actions.
type dashboardModel struct {
	session  dashboard.Session
	identity identity.Provider
	spinner  spinner.Model
	flash    string
	flashErr bool
}

func newDashboardModel(s dashboard.Session, p identity.Provider) dashboardModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accent)

	return dashboardModel{
		session:  s,
		identity: p,
		spinner:  sp,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(loadIdentityCmd(m.identity), m.spinner.Tick)
}

func (m dashboardModel) Update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case identityLoadedMsg:
		id := msg.session
		if msg.err != nil {
			id = identity.Session{}
			m.flash, m.flashErr = identityFlash(msg.err), true
		}
		var cmd tea.Cmd
		m.session, cmd = m.session.SetIdentity(id)
		if msg.err != nil {
			return m, tea.Batch(cmd, clearFlashAfter())
		}
		return m, cmd

	case dashboard.ProfileFetchedMsg, dashboard.AckResetMsg:
		var cmd tea.Cmd
		m.session, cmd = m.session.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case flashMsg:
		m.flash, m.flashErr = "", false
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m dashboardModel) handleKey(msg tea.KeyMsg) (dashboardModel, tea.Cmd) {
	if key.Matches(msg, zstyle.KeyQuit) {
		return m, tea.Quit
	}

	switch msg.String() {
	case "c":
		s, cmd, err := m.session.Copy()
		if err != nil {
			m.flash, m.flashErr = "copy: "+err.Error(), true
			return m, clearFlashAfter()
		}
		m.session = s
		return m, cmd

	case "r":
		if m.session.View().Kind == dashboard.ViewProfileError {
			var cmd tea.Cmd
			m.session, cmd = m.session.Retry()
			return m, cmd
		}
		var cmd tea.Cmd
		m.session, cmd = m.session.Reload()
		return m, tea.Batch(cmd, loadIdentityCmd(m.identity))

	case "s":
		return m, func() tea.Msg { return navigateMsg{view: viewSettings} }
	}

	return m, nil
}

func identityFlash(err error) string {
	if errors.Is(err, identity.ErrSessionExpired) {
		return "session expired, sign in again"
	}
	return "identity: " + err.Error()
}

func (m dashboardModel) View() string {
	v := m.session.View()

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(m.welcomeView(v))
	b.WriteString("\n")
	b.WriteString(m.walletView(v))
	b.WriteString("\n")
	b.WriteString(m.profileView(v))
	b.WriteString("\n")
	b.WriteString(m.accountView())
	b.WriteString("\n")

	// always reserve a line for flash to prevent layout shift
	switch {
	case m.flash != "" && m.flashErr:
		b.WriteString("  " + zstyle.StatusErr.Render(m.flash) + "\n")
	case m.flash != "":
		b.WriteString("  " + zstyle.StatusOK.Render(m.flash) + "\n")
	default:
		b.WriteString("\n")
	}

	return b.String()
}

func (m dashboardModel) welcomeView(v dashboard.ViewState) string {
	if v.Kind == dashboard.ViewProfileFound && v.Profile.Name != "" {
		return "  " + zstyle.Title.Render(fmt.Sprintf("Welcome back, %s!", v.Profile.Name)) + "\n" +
			"  " + zstyle.MutedText.Render("Monitor your environmental health and manage your wellness profile.") + "\n"
	}
	return "  " + zstyle.Title.Render("Welcome back!") + "\n" +
		"  " + zstyle.MutedText.Render("Complete your health profile to get personalized environmental health recommendations.") + "\n"
}

func (m dashboardModel) walletView(v dashboard.ViewState) string {
	s := "  " + zstyle.Subtitle.Render("Your Aptos Wallet") + "\n"

	switch {
	case v.Kind == dashboard.ViewWalletError:
		s += "  " + zstyle.StatusErr.Render(v.Message) + "\n"
		s += "  " + zstyle.MutedText.Render("r to reload") + "\n"
	case v.Kind == dashboard.ViewWalletMissing:
		s += "  " + zstyle.StatusWarn.Render("No wallet found") + "\n"
		s += "  " + zstyle.MutedText.Render("r to reload") + "\n"
	case m.session.Wallet() == nil:
		s += "  " + m.spinner.View() + " " + zstyle.MutedText.Render("loading...") + "\n"
	default:
		addr := zstyle.Highlight.Render(m.session.Wallet().Address)
		if m.session.Copied() {
			s += "  " + addr + "  " + zstyle.StatusOK.Render("copied!") + "\n"
		} else {
			s += "  " + addr + "  " + zstyle.MutedText.Render("c to copy") + "\n"
		}
	}

	return s
}

func (m dashboardModel) profileView(v dashboard.ViewState) string {
	s := "  " + zstyle.Subtitle.Render("Health Profile") + "\n"

	switch v.Kind {
	case dashboard.ViewWalletError, dashboard.ViewWalletMissing:
		s += "  " + zstyle.MutedText.Render("a wallet is required to load your profile") + "\n"

	case dashboard.ViewProfileLoading:
		s += "  " + m.spinner.View() + " " + zstyle.MutedText.Render("loading profile...") + "\n"

	case dashboard.ViewProfileError:
		s += "  " + zstyle.StatusErr.Render("Error Loading Profile") + "\n"
		s += "  " + v.Message + "\n"
		s += "  " + zstyle.MutedText.Render("r to try again") + "\n"

	case dashboard.ViewProfileFound:
		s += profileRows(v.Profile)
		s += "\n  " + zstyle.MutedText.Render("Update your health profile from the onboarding flow") + "\n"

	case dashboard.ViewProfileAbsent:
		s += "  " + zstyle.StatusWarn.Render("No Health Profile Found") + "\n"
		s += "  " + zstyle.MutedText.Render("Create your health profile to receive personalized recommendations") + "\n"
	}

	return s
}

func profileRows(p profile.HealthProfile) string {
	rows := []struct {
		label string
		value string
	}{
		{"name", orNotSpecified(p.Name)},
		{"age", ageText(p.Age)},
		{"gender", orNotSpecified(p.Gender)},
		{"location", orNotSpecified(p.Location)},
		{"conditions", conditionTags(p.ChronicCondition)},
		{"walk time", orNotSpecified(p.PreferredWalkTime)},
		{"sensitivity", orNotSpecified(p.PollutionSensitivity)},
	}

	var s string
	for _, r := range rows {
		label := zstyle.MutedText.Render(fmt.Sprintf("%-12s", r.label))
		s += "    " + label + " " + r.value + "\n"
	}
	return s
}

func conditionTags(conds []string) string {
	if len(conds) == 0 {
		return "None"
	}
	tags := make([]string, len(conds))
	for i, c := range conds {
		tags[i] = "[" + c + "]"
	}
	return strings.Join(tags, " ")
}

func ageText(age int) string {
	if age <= 0 {
		return notSpecified
	}
	return fmt.Sprintf("%d years", age)
}

func orNotSpecified(v string) string {
	if strings.TrimSpace(v) == "" {
		return notSpecified
	}
	return v
}

func (m dashboardModel) accountView() string {
	id := m.session.Identity()

	var userID, status string
	switch {
	case id.Loading:
		userID, status = "loading...", zstyle.MutedText.Render("loading...")
	case id.User == nil:
		userID, status = "-", zstyle.StatusWarn.Render("signed out")
	default:
		userID, status = orDash(id.User.ID), zstyle.StatusOK.Render("verified")
	}

	s := "  " + zstyle.Subtitle.Render("Account Information") + "\n"
	s += "    " + zstyle.MutedText.Render(fmt.Sprintf("%-12s", "user id")) + " " + userID + "\n"
	if k := m.session.Key(); k != "" {
		s += "    " + zstyle.MutedText.Render(fmt.Sprintf("%-12s", "key")) + " " + k + "\n"
	}
	s += "    " + zstyle.MutedText.Render(fmt.Sprintf("%-12s", "status")) + " " + status + "\n"
	return s
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
