package tui

import (
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/waabox/qmsdeck/internal/httpclient"
)

// ShowLoginMsg asks the app to switch to the login view.
type ShowLoginMsg struct{}

// Navigator lets the HTTP client send the running program to the login view.
// It is safe to call from any goroutine.
type Navigator struct {
	atLogin atomic.Bool

	mu      sync.Mutex
	program *tea.Program
	pending bool
}

// Ensure Navigator implements httpclient.NavigationNotifier.
var _ httpclient.NavigationNotifier = (*Navigator)(nil)

// NewNavigator creates a Navigator not yet bound to a program.
func NewNavigator() *Navigator {
	return &Navigator{}
}

// Attach binds the navigator to p. A redirect requested before Attach is
// delivered now.
func (n *Navigator) Attach(p *tea.Program) {
	n.mu.Lock()
	n.program = p
	pending := n.pending
	n.pending = false
	n.mu.Unlock()
	if pending {
		go p.Send(ShowLoginMsg{})
	}
}

// AtLogin reports whether the login view is showing.
func (n *Navigator) AtLogin() bool {
	return n.atLogin.Load()
}

// RedirectToLogin sends ShowLoginMsg to the program.
func (n *Navigator) RedirectToLogin() {
	n.mu.Lock()
	p := n.program
	if p == nil {
		n.pending = true
	}
	n.mu.Unlock()
	if p != nil {
		p.Send(ShowLoginMsg{})
	}
}

func (n *Navigator) setAtLogin(v bool) {
	if n != nil {
		n.atLogin.Store(v)
	}
}
