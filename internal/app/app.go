package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"pkt.systems/pslog"

	"github.com/layer97/pulse/internal/client"
	"github.com/layer97/pulse/internal/projection"
	"github.com/layer97/pulse/internal/theme"
	"github.com/layer97/pulse/internal/views/chat"
	"github.com/layer97/pulse/internal/views/debug"
	"github.com/layer97/pulse/internal/views/health"
	"github.com/layer97/pulse/internal/views/roster"
	"github.com/layer97/pulse/internal/views/status"
)

const (
	eventBuffer    = 256
	historyTimeout = 10 * time.Second
	sidebarWidth   = 34
	refreshEvery   = time.Second
)

// View identifies which main panel is shown.
type View int

const (
	ViewChat View = iota
	ViewHealth
)

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayDebug
)

// Conn is the connection the console drives.
type Conn interface {
	Connect(ctx context.Context) error
	Disconnect()
	Send(cmd client.OutboundCommand) error
	Subscribe(h client.Handler) func()
	URL() string
}

// HistoryLoader fetches persisted chat turns.
type HistoryLoader interface {
	ChatHistory(ctx context.Context, userID string, limit int) ([]client.HistoryEntry, error)
}

// Options configures the root model.
type Options struct {
	Conn         Conn
	History      HistoryLoader
	Thread       *projection.Thread
	Roster       *projection.Roster
	Health       *projection.Health
	UserID       string
	HistoryLimit int
	Markdown     bool
	Logger       pslog.Logger
}

type eventMsg struct{ ev client.Event }

type historyMsg struct {
	entries []client.HistoryEntry
	err     error
}

type connectMsg struct{ err error }

type sendMsg struct {
	kind client.CommandType
	err  error
}

type tickMsg time.Time

// Model is the root Bubble Tea model.
type Model struct {
	conn    Conn
	history HistoryLoader
	thread  *projection.Thread
	roster  *projection.Roster
	health  *projection.Health
	log     pslog.Logger
	ctx     context.Context
	cancel  context.CancelFunc

	userID       string
	historyLimit int

	events chan client.Event
	unsubs []func()

	keys    KeyMap
	width   int
	height  int
	view    View
	overlay Overlay
	typing  bool

	statusBar  status.Model
	chat       chat.Model
	sidebar    roster.Model
	healthView health.Model
	debug      debug.Model

	animating bool
	now       func() time.Time
}

// New creates the root model and subscribes the projections, then the
// model itself, to the connection's bus. Call Close when the program exits.
func New(opts Options) Model {
	if opts.Thread == nil {
		opts.Thread = projection.NewThread()
	}
	if opts.Roster == nil {
		opts.Roster = projection.NewRoster(nil)
	}
	if opts.Health == nil {
		opts.Health = projection.NewHealth()
	}
	if opts.Logger == nil {
		opts.Logger = pslog.Ctx(context.Background())
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = client.DefaultHistoryLimit
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := Model{
		conn:         opts.Conn,
		history:      opts.History,
		thread:       opts.Thread,
		roster:       opts.Roster,
		health:       opts.Health,
		log:          opts.Logger,
		ctx:          ctx,
		cancel:       cancel,
		userID:       opts.UserID,
		historyLimit: opts.HistoryLimit,
		events:       make(chan client.Event, eventBuffer),
		keys:         DefaultKeyMap(),
		typing:       true,
		statusBar:    status.New(opts.Conn.URL(), opts.UserID),
		chat:         chat.New(opts.Markdown),
		sidebar:      roster.New(),
		healthView:   health.New(),
		debug:        debug.New(),
		now:          time.Now,
	}

	events := m.events
	m.unsubs = []func(){
		opts.Conn.Subscribe(m.thread.Apply),
		opts.Conn.Subscribe(m.roster.Apply),
		opts.Conn.Subscribe(m.health.Apply),
		opts.Conn.Subscribe(func(ev client.Event) {
			select {
			case events <- ev:
			default:
				// The periodic refresh repaints from the projections.
			}
		}),
	}
	m.refreshViews()
	return m
}

// Close detaches from the bus and disconnects.
func (m Model) Close() {
	m.cancel()
	for _, u := range m.unsubs {
		u()
	}
	m.conn.Disconnect()
}

// Init loads history first; the connection is opened once it is seeded.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadHistory(),
		m.waitForEvent(),
		m.chat.Init(),
		tick(),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case historyMsg:
		if msg.err != nil {
			m.log.Warn("history load failed", "err", msg.err)
			m.debug.Add(debug.KindErr, "history: "+msg.err.Error())
		} else {
			m.thread.Seed(msg.entries)
			m.debug.Add(debug.KindInbound, fmt.Sprintf("history: %d messages", len(msg.entries)))
		}
		return m, tea.Batch(m.sync(), m.connect())

	case connectMsg:
		if msg.err != nil {
			m.statusBar.ConnectErr = msg.err.Error()
			m.debug.Add(debug.KindErr, msg.err.Error())
		}
		return m, nil

	case eventMsg:
		m.debug.Record(msg.ev)
		var cmds []tea.Cmd
		if msg.ev.Kind == client.EventStatus {
			m.statusBar.SetStatus(msg.ev.Status)
			if msg.ev.Status == client.StatusOpen {
				cmds = append(cmds, m.send(client.StatusCommand()))
			}
		}
		cmds = append(cmds, m.sync(), m.waitForEvent())
		return m, tea.Batch(cmds...)

	case sendMsg:
		if msg.err != nil {
			m.log.Warn("command not sent", "type", msg.kind, "err", msg.err)
			text := fmt.Sprintf("%s: %v", msg.kind, msg.err)
			m.debug.Add(debug.KindErr, text)
			if errors.Is(msg.err, client.ErrNotConnected) {
				m.statusBar.ConnectErr = text
			}
		} else {
			m.debug.Add(debug.KindOut, string(msg.kind))
		}
		return m, nil

	case roster.FrameMsg:
		if m.sidebar.Animate() {
			return m, roster.Frame()
		}
		m.animating = false
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.sync(), tick())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(msg)
		return m, cmd
	}

	if m.view == ViewChat && m.overlay == OverlayNone {
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Interrupt) {
		return m.quit()
	}

	if m.overlay != OverlayNone {
		switch {
		case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.Debug):
			m.overlay = OverlayNone
		case key.Matches(msg, m.keys.ScrollUp):
			m.debug.ScrollUp(5)
		case key.Matches(msg, m.keys.ScrollDown):
			m.debug.ScrollDown(5)
		case key.Matches(msg, m.keys.Quit):
			return m.quit()
		}
		return m, nil
	}

	if key.Matches(msg, m.keys.Tab) {
		if m.view == ViewChat {
			m.view = ViewHealth
		} else {
			m.view = ViewChat
		}
		m.setTyping(m.view == ViewChat)
		return m, nil
	}

	if m.typing {
		switch {
		case key.Matches(msg, m.keys.Enter):
			return m.submit()
		case key.Matches(msg, m.keys.Escape):
			m.setTyping(false)
			return m, nil
		}
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Debug):
		m.overlay = OverlayDebug
		return m, nil

	case key.Matches(msg, m.keys.Resync):
		return m, m.send(client.StatusCommand())

	case key.Matches(msg, m.keys.Enter), key.Matches(msg, m.keys.Focus):
		if m.view == ViewChat {
			m.setTyping(true)
		}
		return m, nil
	}

	if m.view == ViewChat {
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.cancel()
	return m, tea.Quit
}

func (m *Model) setTyping(on bool) {
	m.typing = on
	if on {
		m.chat.Input.Focus()
	} else {
		m.chat.Input.Blur()
	}
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text, ok := m.chat.Take()
	if !ok {
		return m, nil
	}
	m.thread.Submit(text)
	return m, tea.Batch(m.sync(), m.send(client.ChatCommand(m.userID, text)))
}

// sync refreshes the views and returns an animation command when a roster
// bar needs to move.
func (m *Model) sync() tea.Cmd {
	m.refreshViews()
	if m.animating {
		return nil
	}
	if m.sidebar.Animate() {
		m.animating = true
		return roster.Frame()
	}
	return nil
}

func (m *Model) refreshViews() {
	m.chat.SetThread(m.thread.Snapshot())
	m.sidebar.SetEntries(m.roster.Snapshot())
	m.healthView.State = m.health.Snapshot()

	m.statusBar.Active = ""
	if active := m.roster.Active(); active != "" {
		m.statusBar.Active = m.roster.Name(active)
	}
}

func (m *Model) layout() {
	m.statusBar.Width = m.width
	body := m.bodyHeight()
	chatWidth := m.width - sidebarWidth
	if chatWidth < 20 {
		chatWidth = 20
	}
	m.chat.SetSize(chatWidth, body)
	m.sidebar.Width = sidebarWidth
	m.healthView.Width = m.width
}

func (m Model) bodyHeight() int {
	h := m.height - 4
	if h < 5 {
		h = 5
	}
	return h
}

func (m Model) loadHistory() tea.Cmd {
	if m.history == nil {
		return func() tea.Msg { return historyMsg{} }
	}
	hist, ctx, user, limit := m.history, m.ctx, m.userID, m.historyLimit
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, historyTimeout)
		defer cancel()
		entries, err := hist.ChatHistory(ctx, user, limit)
		return historyMsg{entries: entries, err: err}
	}
}

func (m Model) connect() tea.Cmd {
	conn, ctx := m.conn, m.ctx
	return func() tea.Msg {
		return connectMsg{err: conn.Connect(ctx)}
	}
}

func (m Model) send(cmd client.OutboundCommand) tea.Cmd {
	conn := m.conn
	return func() tea.Msg {
		return sendMsg{kind: cmd.Type, err: conn.Send(cmd)}
	}
}

// waitForEvent blocks on the bus feed and re-arms after every event.
func (m Model) waitForEvent() tea.Cmd {
	events, ctx := m.events, m.ctx
	return func() tea.Msg {
		select {
		case ev := <-events:
			return eventMsg{ev: ev}
		case <-ctx.Done():
			return nil
		}
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// View renders the full console.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var body string
	switch {
	case m.overlay == OverlayDebug:
		body = m.debug.View(m.width, m.bodyHeight())
	case m.view == ViewHealth:
		body = m.healthView.View(m.now())
	default:
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.chat.View(), m.sidebar.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.statusBar.View(), body, m.helpLine())
}

func (m Model) helpLine() string {
	switch {
	case m.overlay != OverlayNone:
		return theme.StyleDimmed.Render("  pgup/pgdn:scroll  esc:close  ctrl+c:quit")
	case m.typing:
		return theme.StyleDimmed.Render("  enter:send  esc:commands  tab:health  ctrl+c:quit")
	case m.view == ViewChat:
		return theme.StyleDimmed.Render("  i:type  tab:health  r:status  d:events  q:quit")
	default:
		return theme.StyleDimmed.Render("  tab:chat  r:status  d:events  q:quit")
	}
}
