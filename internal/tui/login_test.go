package tui_test

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/waabox/qmsdeck/internal/tui"
)

func typeInto(m tui.LoginModel, msgs ...tea.KeyMsg) tui.LoginModel {
	for _, msg := range msgs {
		m = m.Update(msg)
	}
	return m
}

func TestLogin_TypingAndBackspace(t *testing.T) {
	m := typeInto(tui.NewLoginModel(),
		key("auditox"),
		tea.KeyMsg{Type: tea.KeyBackspace},
		key("r"),
		tea.KeyMsg{Type: tea.KeyTab},
		key("s3cret"),
	)

	user, pass := m.Credentials()
	if user != "auditor" || pass != "s3cret" {
		t.Errorf("expected auditor/s3cret, got %s/%s", user, pass)
	}
	if !m.Ready() {
		t.Error("expected form to be ready")
	}
	if strings.Contains(m.View(), "s3cret") {
		t.Error("password must not be rendered")
	}
}

func TestLogin_NotReadyWithoutPassword(t *testing.T) {
	m := typeInto(tui.NewLoginModel(), key("auditor"))
	if m.Ready() {
		t.Error("expected form not to be ready without a password")
	}
}

func TestLogin_WithErrorClearsPasswordAndFocusesIt(t *testing.T) {
	m := typeInto(tui.NewLoginModel(), key("auditor"), tea.KeyMsg{Type: tea.KeyTab}, key("bad"))
	m = m.WithError("Login failed")
	m = m.Update(key("ok"))

	user, pass := m.Credentials()
	if user != "auditor" || pass != "ok" {
		t.Errorf("expected typing to go to the password field, got %s/%s", user, pass)
	}
	if !strings.Contains(m.View(), "Login failed") {
		t.Errorf("expected error in view, got:\n%s", m.View())
	}
}

func TestLogin_BusyIgnoresInput(t *testing.T) {
	m := typeInto(tui.NewLoginModel(), key("a")).Busy()
	m = m.Update(key("b"))

	if user, _ := m.Credentials(); user != "a" {
		t.Errorf("expected input to be ignored while busy, got %q", user)
	}
	if !strings.Contains(m.View(), "Signing in...") {
		t.Errorf("expected busy notice, got:\n%s", m.View())
	}
}
