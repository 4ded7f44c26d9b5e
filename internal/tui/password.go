package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/vaayu/internal/wallet"
)

// unlockStage is where the unlock prompt is in its flow.
type unlockStage int

const (
	stageUnlock  unlockStage = iota // existing store, one password
	stageCreate                     // no store yet, choose a password
	stageConfirm                    // no store yet, repeat it
)

// passwordModel unlocks the wallet store at dir, or creates it on first run.
type passwordModel struct {
	input  textinput.Model
	dir    string
	stage  unlockStage
	chosen string

	// failures counts rejected passwords for an existing store.
	failures int
	errMsg   string
}

// passwordSubmitMsg carries the password to open the stores with.
type passwordSubmitMsg struct {
	password string
}

// passwordErrMsg reports why the stores did not open.
type passwordErrMsg struct {
	err error
}

func newPasswordModel(firstRun bool, dir string) passwordModel {
	ti := textinput.New()
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '*'
	ti.CharLimit = 128
	ti.Width = 40
	ti.Focus()

	stage := stageUnlock
	if firstRun {
		stage = stageCreate
	}

	return passwordModel{input: ti, dir: dir, stage: stage}
}

func (m passwordModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m passwordModel) Update(msg tea.Msg) (passwordModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if key.Matches(msg, zstyle.KeyEnter) {
			return m.submit()
		}

	case passwordErrMsg:
		m.input.SetValue("")
		m.errMsg = m.describe(msg.err)
		if m.stage == stageConfirm {
			m.stage, m.chosen = stageCreate, ""
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// describe turns an open failure into the line shown under the prompt.
func (m *passwordModel) describe(err error) string {
	if errors.Is(err, wallet.ErrWrongPassword) {
		m.failures++
		if m.failures == 1 {
			return "wrong password"
		}
		return fmt.Sprintf("wrong password (%d attempts)", m.failures)
	}
	return "cannot open wallet store: " + err.Error()
}

func (m passwordModel) submit() (passwordModel, tea.Cmd) {
	val := m.input.Value()
	if val == "" {
		return m, nil
	}
	m.input.SetValue("")
	m.errMsg = ""

	switch m.stage {
	case stageCreate:
		m.stage, m.chosen = stageConfirm, val
		return m, nil

	case stageConfirm:
		if val != m.chosen {
			m.stage, m.chosen = stageCreate, ""
			m.errMsg = "passwords do not match"
			return m, nil
		}
	}

	return m, func() tea.Msg { return passwordSubmitMsg{password: val} }
}

func (m passwordModel) prompt() string {
	switch m.stage {
	case stageCreate:
		return "create wallet password:"
	case stageConfirm:
		return "confirm password:"
	}
	return "wallet password:"
}

func (m passwordModel) hint() string {
	if m.stage == stageUnlock {
		return "unlocking wallets in " + m.dir
	}
	return "no wallets yet, a new store will be created in " + m.dir
}

func (m passwordModel) View() string {
	indent := lipgloss.NewStyle().MarginLeft(2)
	logo := indent.Render(zstyle.StyledLogo(lipgloss.NewStyle().Foreground(accent)))
	name := indent.Render(zstyle.MutedText.Render(appName))

	s := fmt.Sprintf("\n%s\n%s\n\n", logo, name)
	if m.dir != "" {
		s += "  " + zstyle.MutedText.Render(m.hint()) + "\n\n"
	}
	s += fmt.Sprintf("  %s\n  %s\n", m.prompt(), m.input.View())

	if m.errMsg != "" {
		s += "\n  " + zstyle.StatusErr.Render(m.errMsg)
	}

	return s + "\n"
}
