package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nissyi-gh/remind/internal/model"
)

const (
	loginUsername = iota
	loginEmail
	loginPassword
	loginPassword2
	loginFieldCount
)

// loginForm is the entry screen. In register mode it also asks for an
// email and a password confirmation.
type loginForm struct {
	register bool
	fields   [loginFieldCount]textinput.Model
	focus    int
	err      error
}

func newLoginForm() loginForm {
	placeholders := [loginFieldCount]string{"Username", "Email", "Password", "Repeat password"}
	var fields [loginFieldCount]textinput.Model
	for i := range fields {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 128
		if i == loginPassword || i == loginPassword2 {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		fields[i] = ti
	}
	fields[loginUsername].CharLimit = model.MaxUsernameLen
	return loginForm{fields: fields}
}

func (l *loginForm) visible() []int {
	if l.register {
		return []int{loginUsername, loginEmail, loginPassword, loginPassword2}
	}
	return []int{loginUsername, loginPassword}
}

func (l *loginForm) Focus() tea.Cmd {
	return l.focusField(loginUsername)
}

func (l *loginForm) focusField(idx int) tea.Cmd {
	l.focus = idx
	var cmd tea.Cmd
	for i := range l.fields {
		if i == idx {
			cmd = l.fields[i].Focus()
		} else {
			l.fields[i].Blur()
		}
	}
	return cmd
}

func (l *loginForm) move(delta int) tea.Cmd {
	vis := l.visible()
	pos := 0
	for i, idx := range vis {
		if idx == l.focus {
			pos = i
		}
	}
	pos = (pos + delta + len(vis)) % len(vis)
	return l.focusField(vis[pos])
}

// ToggleMode switches between login and register, keeping the username.
func (l *loginForm) ToggleMode() tea.Cmd {
	l.register = !l.register
	l.err = nil
	for _, i := range []int{loginEmail, loginPassword, loginPassword2} {
		l.fields[i].SetValue("")
	}
	return l.focusField(loginUsername)
}

func (l *loginForm) value(i int) string {
	return strings.TrimSpace(l.fields[i].Value())
}

func (l *loginForm) Credentials() model.Credentials {
	return model.Credentials{Username: l.value(loginUsername), Password: l.fields[loginPassword].Value()}
}

func (l *loginForm) Registration() model.Registration {
	return model.Registration{
		Username:  l.value(loginUsername),
		Email:     l.value(loginEmail),
		Password:  l.fields[loginPassword].Value(),
		Password2: l.fields[loginPassword2].Value(),
	}
}

// onLastField reports whether enter should submit.
func (l *loginForm) onLastField() bool {
	vis := l.visible()
	return l.focus == vis[len(vis)-1]
}

func (l loginForm) Update(msg tea.Msg) (loginForm, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "tab", "down":
			cmd := l.move(1)
			return l, cmd
		case "shift+tab", "up":
			cmd := l.move(-1)
			return l, cmd
		}
	}
	var cmd tea.Cmd
	l.fields[l.focus], cmd = l.fields[l.focus].Update(msg)
	return l, cmd
}

func (l loginForm) View(pending bool, spin string) string {
	header := "Log in"
	toggle := "ctrl+r: create an account"
	if l.register {
		header = "Create account"
		toggle = "ctrl+r: back to log in"
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("remind") + "  " + statusStyle.Render(header) + "\n\n")
	for _, i := range l.visible() {
		sb.WriteString(l.fields[i].View() + "\n")
	}
	sb.WriteString("\n")
	if l.err != nil {
		sb.WriteString(errorStyle.Render(l.err.Error()) + "\n\n")
	}
	if pending {
		sb.WriteString(spin + " " + statusStyle.Render("contacting server…"))
	} else {
		sb.WriteString(statusStyle.Render("enter: submit • tab: next field • " + toggle + " • ctrl+c: quit"))
	}
	return sb.String()
}
