package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// LoginModel is the username/password form shown when there is no usable session.
type LoginModel struct {
	username []rune
	password []rune
	focus    int // 0 username, 1 password
	err      string
	busy     bool
}

// NewLoginModel creates an empty login form.
func NewLoginModel() LoginModel {
	return LoginModel{}
}

// Credentials returns what has been typed so far.
func (m LoginModel) Credentials() (string, string) {
	return string(m.username), string(m.password)
}

// Ready reports whether both fields are filled in.
func (m LoginModel) Ready() bool {
	return len(m.username) > 0 && len(m.password) > 0
}

// WithError returns a cleared-password form showing msg.
func (m LoginModel) WithError(msg string) LoginModel {
	m.err = msg
	m.password = nil
	m.focus = 0
	if len(m.username) > 0 {
		m.focus = 1
	}
	m.busy = false
	return m
}

// Busy returns a form marked as waiting for the server.
func (m LoginModel) Busy() LoginModel {
	m.busy = true
	m.err = ""
	return m
}

// Update applies a key press to the form.
func (m LoginModel) Update(msg tea.KeyMsg) LoginModel {
	if m.busy {
		return m
	}
	switch msg.Type {
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		m.focus = 1 - m.focus
	case tea.KeyBackspace:
		if m.focus == 0 && len(m.username) > 0 {
			m.username = m.username[:len(m.username)-1]
		} else if m.focus == 1 && len(m.password) > 0 {
			m.password = m.password[:len(m.password)-1]
		}
	case tea.KeyRunes, tea.KeySpace:
		runes := msg.Runes
		if msg.Type == tea.KeySpace {
			runes = []rune{' '}
		}
		if m.focus == 0 {
			m.username = append(m.username, runes...)
		} else {
			m.password = append(m.password, runes...)
		}
	}
	return m
}

// View renders the form.
func (m LoginModel) View() string {
	cursor := func(field int) string {
		if m.focus == field && !m.busy {
			return "_"
		}
		return ""
	}
	var sb strings.Builder
	sb.WriteString("\n Sign in to continue.\n\n")
	sb.WriteString(" Username: " + string(m.username) + cursor(0) + "\n")
	sb.WriteString(" Password: " + strings.Repeat("*", len(m.password)) + cursor(1) + "\n\n")
	switch {
	case m.busy:
		sb.WriteString(" Signing in...\n")
	case m.err != "":
		sb.WriteString(" " + m.err + "\n")
	}
	return sb.String()
}
