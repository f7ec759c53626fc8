package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/waabox/qmsdeck/internal/domain"
)

// DashboardLoadedMsg is sent when the collections have been fetched.
// It is exported so that tests can inject it directly into AppModel.Update.
type DashboardLoadedMsg struct {
	Summaries []domain.Summary
	Err       error
}

// RecordLoadedMsg is sent when a single record has been fetched.
type RecordLoadedMsg struct {
	Record domain.Record
	Err    error
}

// StatusUpdatedMsg is sent when a status change completes.
type StatusUpdatedMsg struct {
	Record domain.Record
	Err    error
}

// LoginResultMsg is sent when a login attempt completes.
type LoginResultMsg struct {
	Err error
}

// tickMsg is sent by the auto-refresh ticker.
type tickMsg struct{}

// loggedOutMsg is sent when the user logged out from the dashboard.
type loggedOutMsg struct{}

// viewState indicates the current navigation level.
type viewState int

const (
	viewRecords viewState = iota
	viewDetail
	viewLogin
)

const (
	requestTimeout  = 30 * time.Second
	refreshInterval = 30 * time.Second
)

// AppModel is the root Bubbletea model for qmsdeck.
type AppModel struct {
	service domain.RecordService
	nav     *Navigator
	// Navigation
	view        viewState
	collections []domain.Collection
	active      int
	// Record level
	summaries map[domain.Collection][]domain.Record
	list      RecordListModel
	detail    RecordDetailModel
	// Login
	login LoginModel
	// General state
	loading       bool
	err           error
	width         int
	height        int
	confirmStatus domain.RecordStatus
	// Callbacks set by the caller.
	OnLogin  func(ctx context.Context, username, password string) error
	OnLogout func(ctx context.Context) error
}

// NewAppModel creates the root application model. When loggedIn is false the
// app starts on the login view.
func NewAppModel(service domain.RecordService, nav *Navigator, loggedIn bool) AppModel {
	m := AppModel{
		service:     service,
		nav:         nav,
		collections: domain.Collections(),
		summaries:   make(map[domain.Collection][]domain.Record),
		list:        NewRecordListModel(nil),
		login:       NewLoginModel(),
		loading:     loggedIn,
	}
	if !loggedIn {
		return m.setView(viewLogin)
	}
	return m.setView(viewRecords)
}

// Init triggers the initial dashboard load.
func (m AppModel) Init() tea.Cmd {
	if m.view == viewLogin {
		return tickEvery(refreshInterval)
	}
	return tea.Batch(m.loadDashboard(), tickEvery(refreshInterval))
}

func (m AppModel) setView(v viewState) AppModel {
	m.view = v
	m.nav.setAtLogin(v == viewLogin)
	return m
}

func (m AppModel) activeCollection() domain.Collection {
	return m.collections[m.active]
}

func (m AppModel) loadDashboard() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		summaries, err := m.service.Dashboard(ctx, m.collections...)
		return DashboardLoadedMsg{Summaries: summaries, Err: err}
	}
}

func (m AppModel) loadRecord(c domain.Collection, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		rec, err := m.service.GetRecord(ctx, c, id)
		return RecordLoadedMsg{Record: rec, Err: err}
	}
}

func (m AppModel) updateStatus(rec domain.Record, status domain.RecordStatus) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		updated, err := m.service.UpdateStatus(ctx, rec.Collection, rec.ID, status)
		return StatusUpdatedMsg{Record: updated, Err: err}
	}
}

func (m AppModel) submitLogin(username, password string) tea.Cmd {
	return func() tea.Msg {
		if m.OnLogin == nil {
			return LoginResultMsg{Err: errors.New("login is not available")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return LoginResultMsg{Err: m.OnLogin(ctx, username, password)}
	}
}

func (m AppModel) logout() tea.Cmd {
	return func() tea.Msg {
		if m.OnLogout != nil {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			if err := m.OnLogout(ctx); err != nil {
				return DashboardLoadedMsg{Err: err}
			}
		}
		return loggedOutMsg{}
	}
}

func tickEvery(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(_ time.Time) tea.Msg {
		return tickMsg{}
	})
}

// handleErr routes an expired session to the login view and keeps anything
// else as the displayed error.
func (m AppModel) handleErr(err error) (tea.Model, tea.Cmd) {
	if errors.Is(err, domain.ErrUnauthorized) {
		return m.showLogin("Your session has expired."), nil
	}
	m.err = err
	return m, nil
}

func (m AppModel) showLogin(reason string) AppModel {
	m.loading = false
	m.err = nil
	m.confirmStatus = ""
	m.login = NewLoginModel()
	if reason != "" {
		m.login = m.login.WithError(reason)
	}
	return m.setView(viewLogin)
}

// Update handles all incoming messages and key events.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case ShowLoginMsg:
		if m.view == viewLogin {
			return m, nil
		}
		return m.showLogin("Your session has expired."), nil

	case loggedOutMsg:
		return m.showLogin(""), nil

	case LoginResultMsg:
		if msg.Err != nil {
			m.login = m.login.WithError(fmt.Sprintf("Login failed: %v", msg.Err))
			return m, nil
		}
		m.login = NewLoginModel()
		m = m.setView(viewRecords)
		m.loading = true
		m.err = nil
		return m, m.loadDashboard()

	case DashboardLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			return m.handleErr(msg.Err)
		}
		m.err = nil
		for _, s := range msg.Summaries {
			m.summaries[s.Collection] = s.Records
		}
		m.list = m.list.UpdateRecords(m.summaries[m.activeCollection()])

	case RecordLoadedMsg:
		if msg.Err != nil {
			return m.handleErr(msg.Err)
		}
		m.detail = NewRecordDetailModel(msg.Record)

	case StatusUpdatedMsg:
		if msg.Err != nil {
			return m.handleErr(msg.Err)
		}
		if m.view == viewDetail {
			m.detail = NewRecordDetailModel(msg.Record)
		}
		m.loading = m.view == viewRecords
		return m, m.loadDashboard()

	case tickMsg:
		if m.view == viewLogin {
			return m, tickEvery(refreshInterval)
		}
		return m, tea.Batch(m.loadDashboard(), tickEvery(refreshInterval))

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.view == viewLogin {
			return m.updateLogin(msg)
		}
		if m.confirmStatus != "" {
			switch msg.String() {
			case "y":
				rec := m.currentRecord()
				status := m.confirmStatus
				m.confirmStatus = ""
				if rec.ID == "" {
					return m, nil
				}
				return m, m.updateStatus(rec, status)
			case "q":
				return m, tea.Quit
			default:
				m.confirmStatus = ""
				return m, nil
			}
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "ctrl+r":
			m.loading = true
			return m, m.loadDashboard()
		case "ctrl+o":
			return m, m.logout()
		}
		switch m.view {
		case viewRecords:
			return m.updateRecords(msg)
		case viewDetail:
			return m.updateDetail(msg)
		}
	}
	return m, nil
}

func (m AppModel) currentRecord() domain.Record {
	if m.view == viewDetail {
		return m.detail.Record()
	}
	return m.list.SelectedRecord()
}

// askAdvance prompts for moving the current record to its next status.
func (m AppModel) askAdvance() AppModel {
	rec := m.currentRecord()
	if rec.ID == "" || rec.Status.Next() == rec.Status {
		return m
	}
	m.confirmStatus = rec.Status.Next()
	return m
}

func (m AppModel) updateRecords(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "down", "j":
		m.list = m.list.MoveDown()
	case "up", "k":
		m.list = m.list.MoveUp()
	case "tab", "right":
		m.active = (m.active + 1) % len(m.collections)
		m.list = NewRecordListModel(m.summaries[m.activeCollection()])
	case "shift+tab", "left":
		m.active = (m.active + len(m.collections) - 1) % len(m.collections)
		m.list = NewRecordListModel(m.summaries[m.activeCollection()])
	case "enter":
		rec := m.list.SelectedRecord()
		if rec.ID != "" {
			m.detail = NewRecordDetailModel(rec)
			m = m.setView(viewDetail)
			return m, m.loadRecord(m.activeCollection(), rec.ID)
		}
	case "s":
		m = m.askAdvance()
	}
	return m, nil
}

func (m AppModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "down", "j":
		m.detail = m.detail.ScrollDown()
	case "up", "k":
		m.detail = m.detail.ScrollUp()
	case "s":
		m = m.askAdvance()
	case "esc":
		m = m.setView(viewRecords)
	}
	return m, nil
}

func (m AppModel) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyEnter:
		if !m.login.Ready() {
			return m, nil
		}
		user, pass := m.login.Credentials()
		m.login = m.login.Busy()
		return m, m.submitLogin(user, pass)
	}
	m.login = m.login.Update(msg)
	return m, nil
}

// View renders the full TUI.
func (m AppModel) View() string {
	separator := "────────────────────────────────────────────────────────────\n"
	if m.view == viewLogin {
		header := " qmsdeck | Sign in\n"
		footer := " tab: switch field   enter: sign in   esc: quit\n"
		return header + separator + m.login.View() + separator + footer
	}
	if m.loading && m.confirmStatus == "" {
		return "Loading records...\n"
	}
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress 'ctrl+r' to retry or 'q' to quit.\n", m.err)
	}

	header := " qmsdeck |"
	for i, c := range m.collections {
		if i == m.active {
			header += fmt.Sprintf(" [%s (%d)]", c, len(m.summaries[c]))
		} else {
			header += fmt.Sprintf("  %s (%d) ", c, len(m.summaries[c]))
		}
	}
	header += "\n"

	switch m.view {
	case viewDetail:
		footer := " ↑/↓: scroll   s: advance status   esc: back   ctrl+o: log out   q: quit\n"
		if prompt := m.confirmPrompt(); prompt != "" {
			footer = prompt
		}
		return header + separator + m.detail.View(m.visibleLines()) + separator + footer
	default:
		footer := " ↑/↓: navigate   tab: collection   enter: open   s: advance status   ctrl+r: refresh   q: quit\n"
		if prompt := m.confirmPrompt(); prompt != "" {
			footer = prompt
		}
		return header + separator + m.list.View() + "\n" + separator + footer
	}
}

func (m AppModel) confirmPrompt() string {
	if m.confirmStatus == "" {
		return ""
	}
	rec := m.currentRecord()
	return fmt.Sprintf(" Move %s from %s to %s? [y/N] \n", rec.ID, rec.Status, m.confirmStatus)
}

// visibleLines returns the number of description lines visible in the current terminal height.
func (m AppModel) visibleLines() int {
	lines := m.height - 12 // header, separators, fields and footer
	if lines < 5 {
		return 5
	}
	return lines
}

// Run starts the Bubbletea program and blocks until it exits.
func Run(m AppModel) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	if m.nav != nil {
		m.nav.Attach(p)
	}
	_, err := p.Run()
	return err
}
