package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/zarlcorp/core/pkg/zstyle"
	"github.com/zarlcorp/vaayu/internal/config"
)

type nodeField int

const (
	nodeURL nodeField = iota
	nodeModule
	nodeFieldCount
)

var nodeLabels = [nodeFieldCount]string{
	"node url",
	"module",
}

// saveNodeSettingsMsg requests saving the Aptos node settings.
type saveNodeSettingsMsg struct {
	settings NodeSettings
}

// settingsModel is the form for the Aptos node settings. Values are checked
// against the file config they overlay before saving.
type settingsModel struct {
	inputs []textinput.Model
	focus  int
	flash  string
	base   config.AptosConfig
}

func newSettingsModel(current NodeSettings, base config.AptosConfig) settingsModel {
	inputs := make([]textinput.Model, nodeFieldCount)

	for i := range inputs {
		ti := textinput.New()
		ti.CharLimit = 256
		ti.Width = 60
		inputs[i] = ti
	}

	inputs[nodeURL].Placeholder = base.NodeURL
	inputs[nodeURL].SetValue(current.NodeURL)

	inputs[nodeModule].Placeholder = "0x..."
	if base.ModuleAddress != "" {
		inputs[nodeModule].Placeholder = base.ModuleAddress
	}
	inputs[nodeModule].SetValue(current.ModuleAddress)

	inputs[0].Focus()

	return settingsModel{inputs: inputs, base: base}
}

func (m settingsModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m settingsModel) Update(msg tea.Msg) (settingsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}

		if msg.Type == tea.KeyEsc {
			return m, func() tea.Msg { return navigateMsg{view: viewDashboard} }
		}

		if key.Matches(msg, zstyle.KeyTab) || msg.Type == tea.KeyDown {
			return m.nextField(), nil
		}

		if msg.Type == tea.KeyUp || msg.Type == tea.KeyShiftTab {
			return m.prevField(), nil
		}

		if key.Matches(msg, zstyle.KeyEnter) {
			// enter on last field saves; otherwise advance
			if m.focus == int(nodeFieldCount)-1 {
				return m.save()
			}
			return m.nextField(), nil
		}

		if msg.String() == "ctrl+s" {
			return m.save()
		}

	case flashMsg:
		m.flash = ""
		return m, nil
	}

	return m.updateInput(msg)
}

func (m settingsModel) values() NodeSettings {
	return NodeSettings{
		NodeURL:       strings.TrimSpace(m.inputs[nodeURL].Value()),
		ModuleAddress: strings.TrimSpace(m.inputs[nodeModule].Value()),
	}
}

func (m settingsModel) save() (settingsModel, tea.Cmd) {
	s := m.values()

	if err := s.Apply(m.base).Validate(); err != nil {
		m.flash = strings.ReplaceAll(err.Error(), "\n", "; ")
		return m, clearFlashAfter()
	}

	m.flash = "saved"
	return m, tea.Batch(
		func() tea.Msg { return saveNodeSettingsMsg{settings: s} },
		clearFlashAfter(),
	)
}

func (m settingsModel) nextField() settingsModel {
	m.inputs[m.focus].Blur()
	m.focus = (m.focus + 1) % int(nodeFieldCount)
	m.inputs[m.focus].Focus()
	return m
}

func (m settingsModel) prevField() settingsModel {
	m.inputs[m.focus].Blur()
	m.focus--
	if m.focus < 0 {
		m.focus = int(nodeFieldCount) - 1
	}
	m.inputs[m.focus].Focus()
	return m
}

func (m settingsModel) updateInput(msg tea.Msg) (settingsModel, tea.Cmd) {
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m settingsModel) View() string {
	accentStyle := lipgloss.NewStyle().Foreground(accent).Bold(true)

	s := "\n  " + zstyle.MutedText.Render("empty fields use the config file") + "\n\n"

	for i, input := range m.inputs {
		label := zstyle.MutedText.Render(fmt.Sprintf("  %-10s", nodeLabels[i]))
		if i == m.focus {
			s += accentStyle.Render("▸") + " " + label + input.View() + "\n"
		} else {
			s += "  " + label + input.View() + "\n"
		}
	}

	s += "\n"

	switch {
	case m.flash == "":
		s += "\n"
	case m.flash == "saved":
		s += "  " + zstyle.StatusOK.Render(m.flash) + "\n"
	default:
		s += "  " + zstyle.StatusErr.Render(m.flash) + "\n"
	}

	return s
}
