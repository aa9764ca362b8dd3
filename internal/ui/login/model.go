package login

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/cloudsync/cloudsync/internal/api"
	"github.com/cloudsync/cloudsync/internal/model"
	"github.com/cloudsync/cloudsync/internal/theme"
)

// Mode selects between the login and register forms.
type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

// AuthenticatedMsg is sent when login or registration succeeded and the
// session has been persisted.
type AuthenticatedMsg struct {
	Session model.Session
}

// authResultMsg carries the backend outcome back into the Update loop.
type authResultMsg struct {
	session model.Session
	err     error
}

// Model is the login/register view.
type Model struct {
	client *api.Client
	mode   Mode
	form   *huh.Form

	email    string
	password string
	name     string

	submitting bool
	errMsg     string
	width      int
	height     int
}

// New creates the login view in login mode.
func New(client *api.Client) Model {
	m := Model{client: client, mode: ModeLogin}
	m.form = m.buildForm()
	return m
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Init starts the form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

// buildForm constructs the huh form for the current mode.
func (m *Model) buildForm() *huh.Form {
	fields := []huh.Field{
		huh.NewInput().
			Key("email").
			Title("Email").
			Value(&m.email).
			Validate(func(s string) error {
				if !strings.Contains(s, "@") {
					return errInvalidEmail
				}
				return nil
			}),
		huh.NewInput().
			Key("password").
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&m.password),
	}

	if m.mode == ModeRegister {
		fields = append(fields,
			huh.NewInput().
				Key("name").
				Title("Name").
				Value(&m.name),
		)
	}

	return huh.NewForm(huh.NewGroup(fields...))
}

// Update handles messages for the login view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Tab between login and register before the form is submitted.
		if msg.String() == "ctrl+r" && !m.submitting {
			if m.mode == ModeLogin {
				m.mode = ModeRegister
			} else {
				m.mode = ModeLogin
			}
			m.errMsg = ""
			m.form = m.buildForm()
			return m, m.form.Init()
		}

	case authResultMsg:
		m.submitting = false
		if msg.err != nil {
			m.errMsg = msg.err.Error()
			m.form = m.buildForm()
			return m, m.form.Init()
		}
		return m, func() tea.Msg {
			return AuthenticatedMsg{Session: msg.session}
		}
	}

	if m.submitting {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.submitting = true
		m.errMsg = ""
		return m, m.submit()
	}
	if m.form.State == huh.StateAborted {
		return m, tea.Quit
	}

	return m, cmd
}

// submit runs the backend call off the UI loop.
func (m Model) submit() tea.Cmd {
	mode := m.mode
	email := m.email
	password := m.password
	name := m.name
	client := m.client

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var (
			sess model.Session
			err  error
		)
		if mode == ModeRegister {
			sess, err = client.Register(ctx, email, password, name)
		} else {
			sess, err = client.Login(ctx, email, password)
		}
		return authResultMsg{session: sess, err: err}
	}
}

// View renders the login form.
func (m Model) View() string {
	title := "CloudSync / Login"
	hint := "ctrl+r: switch to register"
	if m.mode == ModeRegister {
		title = "CloudSync / Register"
		hint = "ctrl+r: switch to login"
	}

	parts := []string{
		theme.HeaderStyle.Render(title),
		"",
		m.form.View(),
	}
	if m.submitting {
		parts = append(parts, theme.HelpStyle.Render("Signing in..."))
	}
	if m.errMsg != "" {
		parts = append(parts, theme.ErrorStyle.Render(m.errMsg))
	}
	parts = append(parts, "", theme.HelpStyle.Render(hint))

	return strings.Join(parts, "\n")
}

var errInvalidEmail = errEmail("enter a valid email address")

type errEmail string

func (e errEmail) Error() string { return string(e) }
