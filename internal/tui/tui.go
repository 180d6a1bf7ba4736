package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tatianab/dungeon-floor/internal/dungeon"
	"github.com/tatianab/dungeon-floor/internal/engine"
	"github.com/tatianab/dungeon-floor/internal/models"
)

type sessionState int

const (
	stateLoading sessionState = iota
	stateCreation
	statePlaying
	stateNextFloor
	stateGameOver
	stateError
)

// Options configure a TUI run.
type Options struct {
	// SessionID resumes a stored session; empty starts a new game.
	SessionID string
	// EventLength is the number of successes a floor needs, for display.
	EventLength int
}

type model struct {
	ctx       context.Context
	opts      Options
	state     sessionState
	master    *dungeon.Master
	session   *models.Session
	shown     int
	attrs     models.Attributes
	suggested []string
	pending   string
	textInput textinput.Model
	viewport  viewport.Model
	err       error
	loading   string
	gameLog   string
	width     int
	height    int
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87AFAF")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)
)

func newModel(ctx context.Context, master *dungeon.Master, opts Options) model {
	ti := textinput.New()
	ti.Focus()
	ti.CharLimit = 156
	ti.Width = 60

	return model{
		ctx:       ctx,
		opts:      opts,
		state:     stateLoading,
		loading:   "Loading your adventure...",
		master:    master,
		textInput: ti,
		viewport:  viewport.New(80, 20),
	}
}

func (m model) Init() tea.Cmd {
	if m.opts.SessionID != "" {
		id := m.opts.SessionID
		return func() tea.Msg {
			sess, err := m.master.Session(m.ctx, id)
			if err != nil {
				return errMsg{err}
			}
			return sessionMsg{sess}
		}
	}
	return func() tea.Msg {
		sess, err := m.master.CreateGame(m.ctx)
		if err != nil {
			return errMsg{err}
		}
		return sessionMsg{sess}
	}
}

type sessionMsg struct {
	session *models.Session
}

type turnMsg struct {
	turn dungeon.Turn
}

type turnErrMsg struct {
	err error
}

type errMsg struct {
	err error
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.handleEnter()
		}
		if m.state == stateCreation && msg.String() == "ctrl+r" {
			m.attrs = m.master.RollAttributes()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = m.logWidth()
		m.viewport.Height = max(msg.Height-10, 5)
		m.viewport.SetContent(m.gameLog)

	case sessionMsg:
		return m.enter(msg.session)

	case turnMsg:
		if msg.turn.Kind == engine.KindError {
			m.appendEntries([]models.Entry{
				{Role: models.PlayerRole, Content: m.pending},
				{Role: models.System, Content: rejectionHint(msg.turn.Rejection)},
			})
			m.state = statePlaying
			return m, nil
		}
		if msg.turn.Kind == engine.KindSuggestedAction {
			m.suggested = msg.turn.SuggestedActions
		}
		m.session = msg.turn.Session
		m.appendEvents()
		return m.settle()

	case turnErrMsg:
		m.appendSystem("The dungeon master lost the thread: " + msg.err.Error())
		m.state = statePlaying
		return m, nil

	case errMsg:
		m.err = msg.err
		m.state = stateError
		return m, nil
	}

	if m.state == stateCreation || m.state == statePlaying {
		m.textInput, cmd = m.textInput.Update(msg)
	}
	return m, cmd
}

func (m model) handleEnter() (tea.Model, tea.Cmd) {
	switch m.state {
	case stateCreation:
		name := m.textInput.Value()
		m.textInput.Reset()
		return m.load("Creating your adventurer...", func() (*models.Session, error) {
			return m.master.CreatePlayer(m.ctx, m.session.ID, name, m.attrs)
		})

	case statePlaying:
		action := strings.TrimSpace(m.textInput.Value())
		if action == "" {
			return m, nil
		}
		m.textInput.Reset()
		if action == "/quit" {
			return m, tea.Quit
		}
		action = m.pick(action)
		m.pending = action
		m.state = stateLoading
		m.loading = "The dungeon answers..."
		return m, m.playerInput(action)

	case stateNextFloor:
		m.state = stateLoading
		m.loading = "Descending..."
		return m, m.newFloor()

	case stateGameOver, stateError:
		return m, tea.Quit
	}
	return m, nil
}

// pick turns "1" or "2" into the matching suggested action.
func (m model) pick(action string) string {
	if n, err := strconv.Atoi(action); err == nil && n >= 1 && n <= len(m.suggested) {
		return m.suggested[n-1]
	}
	return action
}

// enter moves to the screen that matches a freshly loaded session.
func (m model) enter(sess *models.Session) (tea.Model, tea.Cmd) {
	m.session = sess
	m.appendEvents()
	if sess.State == models.PlayerCreation {
		m.state = stateCreation
		m.attrs = m.master.RollAttributes()
		m.textInput.Placeholder = "Your name"
		return m, textinput.Blink
	}
	if sess.Floor != nil {
		m.suggested = sess.Floor.SuggestedActions
	}
	return m.settle()
}

// settle picks the screen for the current game state.
func (m model) settle() (tea.Model, tea.Cmd) {
	switch {
	case m.session.State.IsOver():
		m.state = stateGameOver
	case m.session.State == models.WaitingForNextFloor:
		m.state = stateNextFloor
	case m.session.Floor == nil:
		m.state = stateLoading
		m.loading = "Descending..."
		return m, m.newFloor()
	default:
		m.state = statePlaying
		m.textInput.Placeholder = "What do you do?"
	}
	m.refresh()
	return m, nil
}

// appendEvents shows the session events not yet on screen.
func (m *model) appendEvents() {
	if m.shown < len(m.session.Events) {
		m.appendEntries(m.session.Events[m.shown:])
	}
	m.shown = len(m.session.Events)
}

func (m *model) appendEntries(entries []models.Entry) {
	for _, e := range entries {
		switch e.Role {
		case models.PlayerRole:
			m.gameLog += userStyle.Width(m.logWidth()).Render("> "+e.Content) + "\n\n"
		case models.System:
			m.gameLog += systemStyle.Width(m.logWidth()).Render(e.Content) + "\n\n"
		default:
			m.gameLog += gameStyle.Width(m.logWidth()).Render(e.Content) + "\n\n"
		}
	}
	m.refresh()
}

func (m *model) appendSystem(text string) {
	m.appendEntries([]models.Entry{{Role: models.System, Content: text}})
}

func (m *model) refresh() {
	m.viewport.SetContent(m.gameLog)
	m.viewport.GotoBottom()
}

func (m model) logWidth() int {
	if m.width == 0 {
		return 80
	}
	return int(float64(m.width) * 0.70)
}

func rejectionHint(r engine.Rejection) string {
	switch r {
	case engine.RejectTooShort:
		return "Describe what you do in a little more detail."
	case engine.RejectInconsistent:
		return "That does not fit what is happening here."
	case engine.RejectUnknown:
		return "The dungeon master does not understand. Try something else."
	case engine.RejectNoItem:
		return "You have nothing to use."
	case engine.RejectUnidentified:
		return "You are not sure which item you mean."
	case engine.RejectFloorOver:
		return "This floor is behind you."
	}
	return string(r)
}

func (m model) View() string {
	var s string

	switch m.state {
	case stateLoading:
		s = "\n  " + m.loading + "\n"

	case stateCreation:
		s = lipgloss.JoinVertical(lipgloss.Left,
			m.viewport.View(),
			titleStyle.Render("YOUR ATTRIBUTES"),
			renderAttributes(m.attrs),
			"\n"+m.textInput.View(),
			"\n"+helpStyle.Render("Enter: accept   Ctrl+R: reroll   Esc: quit"),
		)

	case statePlaying:
		mainView := lipgloss.JoinHorizontal(lipgloss.Top, m.viewport.View(), m.renderState())
		s = lipgloss.JoinVertical(lipgloss.Left,
			mainView,
			m.renderSuggestions(),
			"\n"+m.textInput.View(),
			"\n"+helpStyle.Render("Type what you do, a suggestion number, or /quit."),
		)

	case stateNextFloor:
		mainView := lipgloss.JoinHorizontal(lipgloss.Top, m.viewport.View(), m.renderState())
		s = lipgloss.JoinVertical(lipgloss.Left,
			mainView,
			"\n"+helpStyle.Render("Press Enter to descend to the next floor, Esc to stop here."),
		)

	case stateGameOver:
		banner := "You have conquered the dungeon."
		if m.session.State == models.Defeated {
			banner = "You have been defeated."
		}
		s = lipgloss.JoinVertical(lipgloss.Left,
			m.viewport.View(),
			"\n"+titleStyle.Render(banner),
			helpStyle.Render(fmt.Sprintf("You reached floor %d. Press Enter to leave.", m.session.CurrentFloor)),
		)

	case stateError:
		s = fmt.Sprintf("\n  Error: %v\n\nPress Esc to quit.", m.err)
	}

	return "\n" + s + "\n"
}

func (m model) renderSuggestions() string {
	if len(m.suggested) == 0 {
		return ""
	}
	var b strings.Builder
	for i, action := range m.suggested {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, action)
	}
	return "\n" + b.String()
}

func renderAttributes(a models.Attributes) string {
	var b strings.Builder
	for _, attr := range models.AllAttributes {
		fmt.Fprintf(&b, "%-13s %d\n", attr, a.Get(attr))
	}
	return b.String()
}

func (m model) renderState() string {
	if m.session == nil || m.session.Player == nil {
		return ""
	}
	p := m.session.Player

	floor := titleStyle.Render("FLOOR") + "\n" + strconv.Itoa(m.session.CurrentFloor)
	if m.session.Floor != nil {
		floor += fmt.Sprintf(" (%s)\nProgress: %d/%d", m.session.Floor.Type, max(m.session.Floor.CompletionRate, 0), m.opts.EventLength)
	}
	floor += "\n\n"

	stats := titleStyle.Render("STATS") + "\n"
	stats += fmt.Sprintf("Health: %d/%d\n", p.CurrentHealth, p.MaxHealth)
	stats += renderAttributes(p.Attributes) + "\n"

	inventory := titleStyle.Render("INVENTORY") + "\n"
	if len(p.Inventory) == 0 {
		inventory += "(empty)"
	} else {
		for _, item := range p.Inventory {
			inventory += "- " + item.Name + "\n"
		}
	}

	stateWidth := int(float64(m.width) * 0.25)
	return stateStyle.Width(stateWidth).Height(m.viewport.Height).Render(floor + stats + inventory)
}

func (m model) load(text string, fn func() (*models.Session, error)) (tea.Model, tea.Cmd) {
	m.state = stateLoading
	m.loading = text
	return m, func() tea.Msg {
		sess, err := fn()
		if err != nil {
			return errMsg{err}
		}
		return sessionMsg{sess}
	}
}

func (m model) playerInput(action string) tea.Cmd {
	id := m.session.ID
	return func() tea.Msg {
		turn, err := m.master.PlayerInput(m.ctx, id, action)
		if err != nil {
			return turnErrMsg{err}
		}
		return turnMsg{turn}
	}
}

func (m model) newFloor() tea.Cmd {
	id := m.session.ID
	return func() tea.Msg {
		turn, err := m.master.NewFloor(m.ctx, id)
		if err != nil {
			return errMsg{err}
		}
		return turnMsg{turn}
	}
}

// Run plays one session in the terminal until the player quits.
func Run(ctx context.Context, master *dungeon.Master, opts Options) error {
	if opts.EventLength <= 0 {
		opts.EventLength = engine.DefaultRules().EventLength
	}
	p := tea.NewProgram(newModel(ctx, master, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
