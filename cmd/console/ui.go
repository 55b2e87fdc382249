package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/adventure-console/internal/game"
	"github.com/jwebster45206/adventure-console/pkg/state"
	"github.com/jwebster45206/adventure-console/pkg/storylog"
	"github.com/jwebster45206/adventure-console/pkg/typewriter"
)

const (
	AgentName       = "Narrator"
	PlaceHolderText = "What do you do?"
)

// sender delivers messages into the running program.
type sender interface {
	Send(msg tea.Msg)
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	orch         *game.Orchestrator
	logger       *slog.Logger
	chatViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	loading      bool
	flash        string

	// Quit confirmation state
	showQuitModal bool

	// Progress bar state
	progressTick int

	// Typewriter state. Entries after the animating one stay hidden until
	// their turn; queue holds the animated entries still waiting.
	anim      *typewriter.Controller
	animID    string
	queue     []storylog.Entry
	scheduler typewriter.Scheduler

	// notify must not block: typewriter callbacks can fire inside Update.
	notify func(tea.Msg)
	copy   func(string) error
}

type eventMsg struct {
	event game.Event
}

type revealMsg struct {
	id string
}

type revealDoneMsg struct {
	id string
}

type commandDoneMsg struct {
	err error
}

type progressTickMsg struct{}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	artStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("180")) // sand

	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")). // yellow
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(orch *game.Orchestrator, s sender, logger *slog.Logger) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 500
	ta.SetWidth(50)
	ta.SetHeight(2)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	chatVp := viewport.New(50, 20)
	chatVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		orch:         orch,
		logger:       logger,
		textarea:     ta,
		chatViewport: chatVp,
		metaViewport: metaVp,
		scheduler:    typewriter.TimerScheduler{},
		notify:       func(msg tea.Msg) { go s.Send(msg) },
		copy:         clipboard.WriteAll,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.initialize())
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.chatViewport, vpCmd = m.chatViewport.Update(msg)
		return m, vpCmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		chatWidth := int(float64(m.width)*0.75) - 4
		metaWidth := m.width - chatWidth - 6

		m.chatViewport.Width = chatWidth - 2
		m.chatViewport.Height = m.height - 7
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 4
		m.textarea.SetWidth(chatWidth - 4)
		m.ready = true
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			if m.anim != nil {
				m.skipAnimation()
				m.refresh()
				return m, nil
			}
			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}
			m.textarea.Reset()
			m.flash = ""
			return m, m.submit(input)
		case tea.KeyCtrlP:
			if m.anim != nil {
				switch m.anim.Status() {
				case typewriter.StatusRunning:
					m.anim.Pause()
					m.flash = "Paused. Ctrl+P to resume."
				case typewriter.StatusPaused:
					m.anim.Resume()
					m.flash = ""
				}
				m.refresh()
			}
			return m, nil
		case tea.KeyCtrlR:
			m.stopAnimation()
			return m, m.reset()
		case tea.KeyCtrlW:
			next := m.orch.Worlds().Next(m.orch.World().Key)
			m.stopAnimation()
			return m, m.changeWorld(next.Key)
		case tea.KeyCtrlT:
			muted := !m.orch.Preferences().Muted
			m.orch.SetMuted(muted)
			m.flash = "Sound on."
			if muted {
				m.flash = "Sound muted."
			}
			m.refresh()
			return m, nil
		case tea.KeyCtrlS:
			speed := m.orch.Preferences().TextSpeed.Next()
			if err := m.orch.SetTextSpeed(speed); err == nil {
				m.flash = fmt.Sprintf("Text speed: %s.", speed)
			}
			m.refresh()
			return m, nil
		case tea.KeyCtrlY:
			m.copyLatestNarration()
			m.refresh()
			return m, nil
		}

	case eventMsg:
		cmd := m.handleEvent(msg.event)
		m.refresh()
		return m, cmd

	case revealMsg:
		if msg.id == m.animID {
			m.refresh()
		}
		return m, nil

	case revealDoneMsg:
		if msg.id == m.animID {
			m.anim = nil
			m.animID = ""
			m.startNextAnimation()
			m.refresh()
		}
		return m, nil

	case commandDoneMsg:
		switch {
		case errors.Is(msg.err, game.ErrProcessing):
			m.flash = "The narrator is still speaking..."
		case errors.Is(msg.err, game.ErrGameOver):
			m.flash = "The game is over. Press Ctrl+R to begin again."
		case msg.err != nil && !errors.Is(msg.err, game.ErrEmptyCommand):
			m.flash = msg.err.Error()
		}
		m.refresh()
		return m, nil

	case progressTickMsg:
		if m.loading {
			m.progressTick++
			m.refresh()
			return m, progressTick()
		}
		return m, nil
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.chatViewport, vpCmd = m.chatViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

func (m *ConsoleUI) handleEvent(ev game.Event) tea.Cmd {
	// Events queued before a reset can arrive after it.
	if ev.Session != m.orch.Session() {
		return nil
	}

	switch ev.Type {
	case game.EventSessionReset:
		m.stopAnimation()
		m.flash = "A new adventure begins in " + m.orch.World().Name + "."
	case game.EventEntryAppended:
		if ev.Entry != nil && ev.Entry.Kind.Animated() {
			m.enqueueAnimation(*ev.Entry)
		}
	case game.EventProcessingChanged:
		wasLoading := m.loading
		m.loading = ev.Processing != nil && *ev.Processing
		if m.loading && !wasLoading {
			m.progressTick = 0
			return progressTick()
		}
	}
	return nil
}

func (m *ConsoleUI) enqueueAnimation(e storylog.Entry) {
	m.queue = append(m.queue, e)
	if m.anim == nil {
		m.startNextAnimation()
	}
}

func (m *ConsoleUI) startNextAnimation() {
	if len(m.queue) == 0 {
		m.orch.SetTyping(false)
		return
	}
	e := m.queue[0]
	m.queue = m.queue[1:]

	id := e.ID
	notify := m.notify
	speed := m.orch.Preferences().TextSpeed
	m.anim = typewriter.New(e.Content, m.scheduler, typewriter.Options{
		Delay:      speed.Delay(e.Kind == storylog.KindArt),
		OnUpdate:   func(string) { notify(revealMsg{id: id}) },
		OnComplete: func() { notify(revealDoneMsg{id: id}) },
	})
	m.animID = id
	m.orch.SetTyping(true)
	m.anim.Start()
}

// skipAnimation reveals the current entry and everything queued behind it.
func (m *ConsoleUI) skipAnimation() {
	if m.anim != nil {
		m.anim.Skip()
	}
	m.anim = nil
	m.animID = ""
	m.queue = nil
	m.orch.SetTyping(false)
}

func (m *ConsoleUI) stopAnimation() {
	if m.anim != nil {
		m.anim.Stop()
	}
	m.anim = nil
	m.animID = ""
	m.queue = nil
	m.orch.SetTyping(false)
}

func (m *ConsoleUI) copyLatestNarration() {
	e, ok := m.orch.LatestNarration()
	if !ok {
		m.flash = "Nothing to copy yet."
		return
	}
	if err := m.copy(e.Content); err != nil {
		m.logger.Warn("Failed to copy to clipboard", "error", err)
		m.flash = "Could not copy to the clipboard."
		return
	}
	m.flash = "Copied the latest narration."
}

// refresh rebuilds both panels from the orchestrator's state.
func (m *ConsoleUI) refresh() {
	if !m.ready {
		return
	}
	snap := m.orch.Snapshot()
	m.chatViewport.SetContent(m.writeChatContent(snap.Entries))
	m.chatViewport.GotoBottom()
	m.metaViewport.SetContent(m.writeMetadata(snap))
}

func (m ConsoleUI) writeChatContent(entries []storylog.Entry) string {
	chatWidth := m.chatViewport.Width - 6 // Account for left(3) + right(3) padding
	if chatWidth < 20 {
		chatWidth = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("ADVENTURE CONSOLE") + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", chatWidth)) + "\n\n")

	for _, e := range entries {
		if e.ID == m.animID && m.anim != nil {
			content.WriteString(renderEntry(e, m.anim.Revealed(), chatWidth) + "\n\n")
			break
		}
		content.WriteString(renderEntry(e, e.Content, chatWidth) + "\n\n")
	}

	if m.loading {
		content.WriteString(m.renderProgressBar() + "\n\n")
	}
	if m.flash != "" {
		content.WriteString(errorStyle.Render(m.flash) + "\n")
	}
	return content.String()
}

func renderEntry(e storylog.Entry, text string, width int) string {
	switch e.Kind {
	case storylog.KindPlayer:
		return userStyle.Render("You: ") + wordwrap.String(text, width-5)
	case storylog.KindNarrator:
		return formatNarratorResponse(text, width)
	case storylog.KindArt:
		return artStyle.Render(text)
	default:
		return systemStyle.Render(wordwrap.String(text, width))
	}
}

func (m ConsoleUI) writeMetadata(snap game.Snapshot) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("ADVENTURER") + "\n\n")

	content.WriteString("World:\n")
	content.WriteString(snap.World.Name + "\n\n")

	content.WriteString("Health:\n")
	content.WriteString(healthBar(snap.Player.Health) + fmt.Sprintf(" %d/%d\n\n", snap.Player.Health, state.MaxHealth))

	content.WriteString("Inventory:\n")
	if len(snap.Player.Inventory) == 0 {
		content.WriteString("Empty\n")
	}
	for _, item := range snap.Player.Inventory {
		content.WriteString("• " + item + "\n")
	}
	content.WriteString("\n")

	sound := "on"
	if snap.Preferences.Muted {
		sound = "muted"
	}
	content.WriteString(fmt.Sprintf("Speed: %s\nSound: %s\n", snap.Preferences.TextSpeed, sound))
	if snap.Phase == game.PhaseGameOver {
		content.WriteString("\n" + errorStyle.Render("GAME OVER") + "\n")
	}

	content.WriteString("\n")
	content.WriteString("Commands:\n")
	content.WriteString("• Enter: Send / Skip\n")
	content.WriteString("• Ctrl+P: Pause text\n")
	content.WriteString("• Ctrl+R: Restart\n")
	content.WriteString("• Ctrl+W: Next world\n")
	content.WriteString("• Ctrl+T: Mute\n")
	content.WriteString("• Ctrl+S: Text speed\n")
	content.WriteString("• Ctrl+Y: Copy\n")
	content.WriteString("• help, inventory, status\n")

	return content.String()
}

func healthBar(health int) string {
	const segments = 10
	filled := (health*segments + state.MaxHealth - 1) / state.MaxHealth
	if filled < 0 {
		filled = 0
	}
	color := lipgloss.Color("86") // green
	switch {
	case health <= 25:
		color = lipgloss.Color("196") // red
	case health <= 60:
		color = lipgloss.Color("214") // yellow
	}
	return lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filled)) +
		separatorStyle.Render(strings.Repeat("░", segments-filled))
}

func formatNarratorResponse(response string, width int) string {
	narratorPrefix := AgentName + ": "
	wrapped := wordwrap.String(response, width-len(narratorPrefix))
	lines := strings.Split(wrapped, "\n")
	for i, line := range lines {
		if idx := strings.Index(line, ":"); idx > 0 && idx <= 20 {
			speaker := line[:idx]
			if len(strings.Fields(speaker)) <= 2 && speaker == strings.TrimSpace(speaker) {
				lines[i] = speakerStyle.Render(speaker+":") + line[idx+1:]
			}
		}
	}
	return narratorStyle.Render(narratorPrefix) + strings.Join(lines, "\n")
}

func (m ConsoleUI) initialize() tea.Cmd {
	orch := m.orch
	return func() tea.Msg {
		orch.Initialize(context.Background())
		return nil
	}
}

func (m ConsoleUI) submit(input string) tea.Cmd {
	orch := m.orch
	return func() tea.Msg {
		return commandDoneMsg{err: orch.SubmitCommand(context.Background(), input)}
	}
}

func (m ConsoleUI) reset() tea.Cmd {
	orch := m.orch
	return func() tea.Msg {
		orch.ResetGame(context.Background())
		return nil
	}
}

func (m ConsoleUI) changeWorld(key string) tea.Cmd {
	orch := m.orch
	return func() tea.Msg {
		return commandDoneMsg{err: orch.ChangeWorld(context.Background(), key)}
	}
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			m.stopAnimation()
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				m.stopAnimation()
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to quit your adventure?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - chatWidth - 6

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.chatViewport.View(),
			"", // Add empty line for spacing
			separatorStyle.Render(strings.Repeat("─", chatWidth-4)),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}

// renderProgressBar creates an animated progress bar while the narrator works
func (m ConsoleUI) renderProgressBar() string {
	usable := m.chatViewport.Width - 6
	if usable <= 0 {
		usable = 30 // fallback before sizing
	}
	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓") // Blinking effect at the progress point
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
