package tui_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/waabox/qmsdeck/internal/domain"
	"github.com/waabox/qmsdeck/internal/tui"
)

// fakeService satisfies domain.RecordService for TUI tests.
type fakeService struct {
	summaries    []domain.Summary
	err          error
	updatedID    string
	updatedState domain.RecordStatus
}

func (f *fakeService) ListRecords(_ context.Context, c domain.Collection) ([]domain.Record, error) {
	for _, s := range f.summaries {
		if s.Collection == c {
			return s.Records, f.err
		}
	}
	return nil, f.err
}
func (f *fakeService) GetRecord(_ context.Context, c domain.Collection, id string) (domain.Record, error) {
	return domain.Record{ID: id, Collection: c}, f.err
}
func (f *fakeService) UpdateStatus(_ context.Context, c domain.Collection, id string, status domain.RecordStatus) (domain.Record, error) {
	f.updatedID = id
	f.updatedState = status
	return domain.Record{ID: id, Collection: c, Status: status}, f.err
}
func (f *fakeService) Dashboard(_ context.Context, _ ...domain.Collection) ([]domain.Summary, error) {
	return f.summaries, f.err
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var ncRecords = []domain.Record{
	{ID: "NC-1", Collection: domain.CollectionNonConformities, Title: "Scale out of tolerance", Status: domain.StatusOpen},
	{ID: "NC-2", Collection: domain.CollectionNonConformities, Title: "Label misprint", Status: domain.StatusReview},
	{ID: "NC-3", Collection: domain.CollectionNonConformities, Title: "Expired solvent", Status: domain.StatusClosed},
}

func loaded(t *testing.T, svc *fakeService) tui.AppModel {
	t.Helper()
	m := tui.NewAppModel(svc, tui.NewNavigator(), true)
	updated, _ := m.Update(tui.DashboardLoadedMsg{Summaries: []domain.Summary{
		{Collection: domain.CollectionNonConformities, Records: ncRecords},
		{Collection: domain.CollectionAudits, Records: []domain.Record{{ID: "AU-1", Title: "Warehouse audit"}}},
	}})
	return updated.(tui.AppModel)
}

func TestApp_RendersActiveCollection(t *testing.T) {
	m := loaded(t, &fakeService{})
	view := m.View()

	if !strings.Contains(view, "[nonconformities (3)]") {
		t.Errorf("expected active collection tab in header, got:\n%s", view)
	}
	if !strings.Contains(view, "Scale out of tolerance") {
		t.Errorf("expected record title in view, got:\n%s", view)
	}
}

func TestApp_TabSwitchesCollection(t *testing.T) {
	m := loaded(t, &fakeService{})

	m1, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m2, _ := m1.(tui.AppModel).Update(tea.KeyMsg{Type: tea.KeyTab})
	view := m2.(tui.AppModel).View()

	if !strings.Contains(view, "[audits (1)]") {
		t.Errorf("expected audits to be active after two tabs, got:\n%s", view)
	}
	if !strings.Contains(view, "AU-1") {
		t.Errorf("expected audit record in view, got:\n%s", view)
	}
}

func TestApp_AdvanceStatus_ShowsConfirmPrompt(t *testing.T) {
	m := loaded(t, &fakeService{})

	updated, _ := m.Update(key("s"))
	view := updated.(tui.AppModel).View()

	if !strings.Contains(view, "Move NC-1 from open to in_progress?") {
		t.Errorf("expected confirm prompt in view, got:\n%s", view)
	}
}

func TestApp_AdvanceStatus_ClosedRecordHasNoPrompt(t *testing.T) {
	m := loaded(t, &fakeService{})

	m1, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m2, _ := m1.(tui.AppModel).Update(tea.KeyMsg{Type: tea.KeyDown})
	m3, _ := m2.(tui.AppModel).Update(key("s"))
	view := m3.(tui.AppModel).View()

	if strings.Contains(view, "Move NC-3") {
		t.Errorf("expected no prompt for a closed record, got:\n%s", view)
	}
}

func TestApp_ConfirmAdvance_YKey_CallsService(t *testing.T) {
	svc := &fakeService{}
	m := loaded(t, svc)

	m1, _ := m.Update(key("s"))
	_, cmd := m1.(tui.AppModel).Update(key("y"))
	if cmd == nil {
		t.Fatal("expected a command after confirming with y")
	}
	msg := cmd()

	if svc.updatedID != "NC-1" || svc.updatedState != domain.StatusInProgress {
		t.Errorf("expected NC-1 moved to in_progress, got %s -> %s", svc.updatedID, svc.updatedState)
	}
	if _, ok := msg.(tui.StatusUpdatedMsg); !ok {
		t.Errorf("expected StatusUpdatedMsg, got %T", msg)
	}
}

func TestApp_ConfirmAdvance_DismissesPromptOnOtherKey(t *testing.T) {
	m := loaded(t, &fakeService{})

	m1, _ := m.Update(key("s"))
	m2, _ := m1.(tui.AppModel).Update(key("n"))
	view := m2.(tui.AppModel).View()

	if strings.Contains(view, "Move NC-1") {
		t.Errorf("expected confirm prompt to be dismissed after 'n', got:\n%s", view)
	}
}

func TestApp_RefreshPreservesSelection(t *testing.T) {
	m := loaded(t, &fakeService{})

	m1, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	refreshed := []domain.Record{ncRecords[2], ncRecords[1], ncRecords[0]}
	m2, _ := m1.(tui.AppModel).Update(tui.DashboardLoadedMsg{Summaries: []domain.Summary{
		{Collection: domain.CollectionNonConformities, Records: refreshed},
	}})
	m3, _ := m2.(tui.AppModel).Update(key("s"))
	view := m3.(tui.AppModel).View()

	if !strings.Contains(view, "Move NC-2 from review to closed?") {
		t.Errorf("expected NC-2 to stay selected after refresh, got:\n%s", view)
	}
}

func TestApp_EnterOpensDetail(t *testing.T) {
	m := loaded(t, &fakeService{})

	m1, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a load command when opening a record")
	}
	m2, _ := m1.(tui.AppModel).Update(tui.RecordLoadedMsg{Record: domain.Record{
		ID: "NC-1", Title: "Scale out of tolerance", Owner: "m.rossi",
		Status: domain.StatusOpen, Description: "Found during weekly check.",
	}})
	view := m2.(tui.AppModel).View()

	if !strings.Contains(view, "Owner:    m.rossi") {
		t.Errorf("expected owner in detail view, got:\n%s", view)
	}
	if !strings.Contains(view, "Found during weekly check.") {
		t.Errorf("expected description in detail view, got:\n%s", view)
	}

	m3, _ := m2.(tui.AppModel).Update(tea.KeyMsg{Type: tea.KeyEsc})
	if strings.Contains(m3.(tui.AppModel).View(), "Owner:") {
		t.Error("expected esc to return to the record list")
	}
}

func TestApp_UnauthorizedShowsLogin(t *testing.T) {
	nav := tui.NewNavigator()
	m := tui.NewAppModel(&fakeService{}, nav, true)
	if nav.AtLogin() {
		t.Fatal("navigator should not report login before the session expires")
	}

	updated, _ := m.Update(tui.DashboardLoadedMsg{Err: fmt.Errorf("listing: %w", domain.ErrUnauthorized)})
	view := updated.(tui.AppModel).View()

	if !strings.Contains(view, "Sign in") {
		t.Errorf("expected login view, got:\n%s", view)
	}
	if !nav.AtLogin() {
		t.Error("expected navigator to report the login view")
	}
}

func TestApp_OtherErrorsAreShown(t *testing.T) {
	m := tui.NewAppModel(&fakeService{}, nil, true)

	updated, _ := m.Update(tui.DashboardLoadedMsg{Err: errors.New("NetworkError: no response from server")})
	view := updated.(tui.AppModel).View()

	if !strings.Contains(view, "Error: NetworkError") {
		t.Errorf("expected error in view, got:\n%s", view)
	}
}

func TestApp_ShowLoginMsgSwitchesView(t *testing.T) {
	m := loaded(t, &fakeService{})

	updated, _ := m.Update(tui.ShowLoginMsg{})
	view := updated.(tui.AppModel).View()
	if !strings.Contains(view, "session has expired") {
		t.Errorf("expected expiry notice on the login view, got:\n%s", view)
	}
}

func TestApp_LogoutShowsLoginWithoutExpiryNotice(t *testing.T) {
	m := loaded(t, &fakeService{})
	loggedOut := false
	m.OnLogout = func(context.Context) error {
		loggedOut = true
		return nil
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	if cmd == nil {
		t.Fatal("expected a logout command on ctrl+o")
	}
	updated, _ := m.Update(cmd())
	view := updated.(tui.AppModel).View()

	if !loggedOut {
		t.Error("expected OnLogout to be called")
	}
	if !strings.Contains(view, "Sign in") || strings.Contains(view, "expired") {
		t.Errorf("expected a plain login view, got:\n%s", view)
	}
}

func TestApp_LoginFlow(t *testing.T) {
	nav := tui.NewNavigator()
	m := tui.NewAppModel(&fakeService{}, nav, false)
	var gotUser, gotPass string
	m.OnLogin = func(_ context.Context, u, p string) error {
		gotUser, gotPass = u, p
		return nil
	}
	if !nav.AtLogin() {
		t.Fatal("expected navigator to report the login view at start")
	}

	var model tea.Model = m
	for _, msg := range []tea.Msg{key("qa"), tea.KeyMsg{Type: tea.KeyTab}, key("pw")} {
		model, _ = model.Update(msg)
	}
	view := model.View()
	if !strings.Contains(view, "Username: qa") || !strings.Contains(view, "Password: **") {
		t.Errorf("expected typed username and masked password, got:\n%s", view)
	}

	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a login command on enter")
	}
	result := cmd()
	if gotUser != "qa" || gotPass != "pw" {
		t.Errorf("expected credentials qa/pw, got %s/%s", gotUser, gotPass)
	}

	model, _ = model.Update(result)
	if nav.AtLogin() {
		t.Error("expected navigator to leave the login view after a successful login")
	}
	if !strings.Contains(model.View(), "Loading records") {
		t.Errorf("expected dashboard to load after login, got:\n%s", model.View())
	}
}

func TestApp_LoginFailureKeepsForm(t *testing.T) {
	m := tui.NewAppModel(&fakeService{}, nil, false)

	updated, _ := m.Update(tui.LoginResultMsg{Err: errors.New("invalid username or password")})
	view := updated.(tui.AppModel).View()

	if !strings.Contains(view, "Login failed: invalid username or password") {
		t.Errorf("expected login error in view, got:\n%s", view)
	}
}
