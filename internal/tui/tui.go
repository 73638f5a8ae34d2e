// Package tui provides a Bubble Tea terminal user interface for mc-downloader.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/handiism/mc-downloader/internal/config"
	"github.com/handiism/mc-downloader/internal/download"
	"github.com/handiism/mc-downloader/internal/manifest"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7BC74D")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	releaseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// maxLogs is how many log lines stay on screen.
const maxLogs = 10

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateInitializing
	StateDownloading
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// activity tracks running transfers. It is written from download
// goroutines and read when rendering.
type activity struct {
	mu      sync.Mutex
	running map[string]download.Progress
}

func newActivity() *activity {
	return &activity{running: make(map[string]download.Progress)}
}

func (a *activity) update(p download.Progress) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.running[p.ID] = p
}

func (a *activity) done(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.running, id)
}

func (a *activity) snapshot() []download.Progress {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]download.Progress, 0, len(a.running))
	for _, p := range a.running {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	logs      []LogEntry
	releases  []string
	err       error

	// Download context
	ctx    context.Context
	cancel context.CancelFunc

	// Download manager reference
	manager *download.Manager

	// Manager events are forwarded to Update through this channel.
	events   chan download.ProgressEvent
	activity *activity

	// Download progress
	totalFiles      int32
	downloadedFiles int32
	totalBytes      int64
	receivedBytes   int64

	// Options
	verify  bool
	verbose bool

	width  int
	height int
}

// NewModel creates a new TUI model using settings.
func NewModel(settings *config.Settings) Model {
	ti := textinput.New()
	ti.Placeholder = "1.20.1, 23w31a"
	ti.Focus()
	ti.CharLimit = 200
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7BC74D"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		logs:      make([]LogEntry, 0),
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan download.ProgressEvent, 64),
		activity:  newActivity(),
		verify:    settings.VerifyChecksums,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.listen())
}

// Message types
type (
	// ProgressMsg is sent when the manager reports a status message.
	ProgressMsg struct {
		Event download.ProgressEvent
	}

	// LatestMsg carries the newest release id from the listing.
	LatestMsg struct {
		ID  string
		Err error
	}

	// InitDoneMsg is sent when initialization completes.
	InitDoneMsg struct {
		Releases []string
		Manager  *download.Manager
		Err      error
	}

	// DownloadDoneMsg is sent when all downloads complete.
	DownloadDoneMsg struct {
		Received int64
		Total    int64
		Files    int32
		TotalF   int32
		Err      error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 20
		if m.progress.Width > 80 {
			m.progress.Width = 80
		}
		if m.progress.Width < 20 {
			m.progress.Width = 20
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateDownloading || m.state == StateInitializing {
				m.cancel()
				m.state = StateError
				m.err = fmt.Errorf("cancelled by user")
			}

		case "enter":
			if m.state == StateInput && strings.TrimSpace(m.textInput.Value()) != "" {
				m.state = StateInitializing
				return m, tea.Batch(m.initializeDownload(), m.spinner.Tick)
			}

		case "ctrl+l":
			if m.state == StateInput {
				return m, m.fetchLatest()
			}

		case "ctrl+t":
			if m.state == StateInput {
				m.verify = !m.verify
				return m, nil
			}

		case "ctrl+o":
			if m.state == StateInput {
				m.verbose = !m.verbose
				return m, nil
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				m.reset()
				return m, nil
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		cmds = append(cmds, m.listen())
		if msg.Event.Level == download.LevelVerbose && !m.verbose {
			break
		}
		m.logs = append(m.logs, LogEntry{
			Message: msg.Event.Message,
			Level:   msg.Event.Level,
		})
		if len(m.logs) > maxLogs {
			m.logs = m.logs[len(m.logs)-maxLogs:]
		}

	case LatestMsg:
		if msg.Err != nil {
			m.logs = append(m.logs, LogEntry{Message: msg.Err.Error(), Level: download.LevelError})
		} else if msg.ID != "" {
			m.textInput.SetValue(msg.ID)
			m.textInput.CursorEnd()
		}

	case InitDoneMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		} else {
			m.releases = msg.Releases
			m.manager = msg.Manager
			m.state = StateDownloading
			cmds = append(cmds, m.startDownload(), m.tickProgress())
		}

	case DownloadDoneMsg:
		m.receivedBytes = msg.Received
		m.totalBytes = msg.Total
		m.downloadedFiles = msg.Files
		m.totalFiles = msg.TotalF
		if msg.Err != nil && m.ctx.Err() == nil {
			m.state = StateError
			m.err = msg.Err
		} else if m.ctx.Err() != nil {
			m.state = StateError
			m.err = fmt.Errorf("cancelled by user")
		} else {
			m.state = StateComplete
		}

	case TickMsg:
		if m.manager != nil && m.state == StateDownloading {
			received, total, files, totalFiles := m.manager.GetProgress()
			m.receivedBytes = received
			m.totalBytes = total
			m.downloadedFiles = files
			m.totalFiles = totalFiles

			progressCmd := m.progress.SetPercent(m.percent())
			cmds = append(cmds, progressCmd, m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) reset() {
	m.state = StateInput
	m.logs = nil
	m.releases = nil
	m.err = nil
	m.downloadedFiles = 0
	m.totalFiles = 0
	m.receivedBytes = 0
	m.totalBytes = 0
	m.manager = nil
	m.activity = newActivity()
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.textInput.SetValue("")
	m.textInput.Focus()
}

// percent is byte based when sizes are known and file based otherwise.
func (m Model) percent() float64 {
	switch {
	case m.totalBytes > 0:
		return min(float64(m.receivedBytes)/float64(m.totalBytes), 1)
	case m.totalFiles > 0:
		return float64(m.downloadedFiles) / float64(m.totalFiles)
	}
	return 0
}

// listen waits for the next manager message.
func (m Model) listen() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return ProgressMsg{Event: <-events}
	}
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("⛏  MC Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download game releases and their libraries"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateInitializing:
		b.WriteString(m.viewInitializing())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter release id(s):"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Verify checksums (ctrl+t)\n", checkbox(m.verify)))
	b.WriteString(fmt.Sprintf("  %s Verbose/debug output (ctrl+o)\n", checkbox(m.verbose)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Download path: %s", m.settings.DownloadsPath)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Mirror: %s", m.settings.MirrorBaseURL)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Components: %s", strings.Join(m.settings.Components, ", "))))
	b.WriteString("\n")

	if len(m.logs) > 0 {
		b.WriteString("\n")
		b.WriteString(m.renderLogs())
	}

	return b.String()
}

func (m Model) viewInitializing() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Fetching release info..."))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	if len(m.releases) > 0 {
		b.WriteString(successStyle.Render(fmt.Sprintf("Found %d release(s):", len(m.releases))))
		b.WriteString("\n")
		for _, r := range m.releases {
			b.WriteString(releaseStyle.Render(fmt.Sprintf("  ▸ %s", r)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(m.progress.ViewAs(m.percent()))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Files: %d/%d | Downloaded: %s / %s",
		m.downloadedFiles,
		m.totalFiles,
		humanize.Bytes(uint64(max(m.receivedBytes, 0))),
		humanize.Bytes(uint64(m.totalBytes)),
	)))
	b.WriteString("\n\n")

	for _, p := range m.activity.snapshot() {
		b.WriteString(dimStyle.Render("  " + formatTransfer(p)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	box := boxStyle.Render(fmt.Sprintf(
		"✨ Download Complete!\n\n"+
			"Releases: %d\n"+
			"Files: %d\n"+
			"Size: %s",
		len(m.releases),
		m.downloadedFiles,
		humanize.Bytes(uint64(max(m.receivedBytes, 0))),
	))
	b.WriteString(box)

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("❌ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • ctrl+l: latest release • ctrl+t: verify • ctrl+o: verbose • esc: quit"
	case StateInitializing, StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new download • q: quit"
	}
	return ""
}

func checkbox(on bool) string {
	if on {
		return "[×]"
	}
	return "[ ]"
}

// formatTransfer renders one running download. Sizes the server did not
// announce are shown as received bytes only.
func formatTransfer(p download.Progress) string {
	name := p.ID
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if p.Total <= 0 {
		return fmt.Sprintf("%s  %s", name, humanize.Bytes(uint64(p.Received)))
	}
	return fmt.Sprintf("%s  %s / %s", name, humanize.Bytes(uint64(p.Received)), humanize.Bytes(uint64(p.Total)))
}

// fetchLatest looks up the newest release id.
func (m *Model) fetchLatest() tea.Cmd {
	settings := m.settings
	ctx := m.ctx
	return func() tea.Msg {
		client := manifest.NewClient(
			manifest.WithBaseURL(settings.MirrorBaseURL),
			manifest.WithHTTPClient(download.NewHTTPClient(settings)),
		)
		if _, err := client.FetchReleases(ctx); err != nil {
			return LatestMsg{Err: err}
		}
		return LatestMsg{ID: client.Latest().Release}
	}
}

// initializeDownload resolves the releases and creates the manager.
func (m *Model) initializeDownload() tea.Cmd {
	input := m.textInput.Value()
	ctx := m.ctx
	events := m.events
	act := m.activity

	settings := *m.settings
	settings.VerifyChecksums = m.verify

	return func() tea.Msg {
		manager := download.NewManager(&settings, download.WithEvents(download.Events{
			OnMessage: func(event download.ProgressEvent) {
				select {
				case events <- event:
				case <-ctx.Done():
				}
			},
			OnProgress: act.update,
			OnComplete: func(r download.Result) { act.done(r.ID) },
		}))

		if err := manager.Initialize(ctx, []string{input}); err != nil {
			return InitDoneMsg{Err: err}
		}

		return InitDoneMsg{
			Releases: manager.GetReleaseNames(),
			Manager:  manager,
		}
	}
}

// startDownload starts the actual download in background.
func (m *Model) startDownload() tea.Cmd {
	manager := m.manager
	ctx := m.ctx
	return func() tea.Msg {
		if manager == nil {
			return DownloadDoneMsg{Err: fmt.Errorf("no manager")}
		}

		err := manager.StartDownloads(ctx)
		received, total, files, totalFiles := manager.GetProgress()

		return DownloadDoneMsg{
			Received: received,
			Total:    total,
			Files:    files,
			TotalF:   totalFiles,
			Err:      err,
		}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings) error {
	p := tea.NewProgram(NewModel(settings), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
