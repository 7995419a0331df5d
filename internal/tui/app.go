// Package tui is the terminal game client: a Bubble Tea program that drives
// the round engine against the server API, with audio through mpv.
package tui

import (
	"context"
	"io"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yearjam/yearjam/internal/api"
	"github.com/yearjam/yearjam/internal/apiclient"
	"github.com/yearjam/yearjam/internal/game"
	"github.com/yearjam/yearjam/internal/player"
)

const requestTimeout = 30 * time.Second

// Options configures the TUI model.
type Options struct {
	Client    *apiclient.Client
	Player    *player.Controller
	Logger    *slog.Logger
	YearStart int
	YearEnd   int
	User      *api.User
}

// Model is the Bubble Tea model for the game client.
type Model struct {
	opts    Options
	engine  *game.Engine
	counter *game.ScoreCounter

	// audioToken/audioURL remember which round the currently loaded audio
	// belongs to, so player events can be tagged before they re-enter the
	// engine.
	audioToken uint64
	audioURL   string

	cursor      int // index into the year grid
	leaderboard []api.LeaderboardEntry
	setlist     []api.Track
	sessionPts  int
	errMsg      string
	width       int
}

// NewModel creates the initial model.
func NewModel(opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	counter := game.NewScoreCounter()
	return Model{
		opts:    opts,
		engine:  game.NewEngine(counter, opts.Logger),
		counter: counter,
	}
}

// Messages.

type clipLoadedMsg struct {
	token uint64
	clip  *api.Clip
	err   error
}

type showMetaMsg struct {
	token uint64
	show  *api.Show
	err   error
}

type setlistMsg struct {
	token  uint64
	tracks []api.Track
}

type leaderboardMsg struct {
	entries []api.LeaderboardEntry
	err     error
}

type scoreSubmittedMsg struct {
	err error
}

type playerMsg player.Event

// Init starts listening to the player and loads the leaderboard.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.watchPlayerCmd(), m.refreshLeaderboardCmd())
}

// Commands.

func (m Model) watchPlayerCmd() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.opts.Player.Events()
		if !ok {
			return nil
		}
		return playerMsg(ev)
	}
}

func (m Model) loadClipCmd(token uint64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		clip, err := m.opts.Client.RandomClip(ctx, m.opts.YearStart, m.opts.YearEnd)
		return clipLoadedMsg{token: token, clip: clip, err: err}
	}
}

func (m Model) fetchShowMetaCmd(token uint64, identifier string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		show, err := m.opts.Client.Show(ctx, identifier)
		return showMetaMsg{token: token, show: show, err: err}
	}
}

func (m Model) fetchSetlistCmd(token uint64, identifier string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		show, err := m.opts.Client.Show(ctx, identifier)
		if err != nil || show == nil {
			return setlistMsg{token: token}
		}
		return setlistMsg{token: token, tracks: show.Tracks}
	}
}

func (m Model) submitScoreCmd(points int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return scoreSubmittedMsg{err: m.opts.Client.SubmitScore(ctx, points)}
	}
}

func (m Model) refreshLeaderboardCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		entries, err := m.opts.Client.Leaderboard(ctx)
		return leaderboardMsg{entries: entries, err: err}
	}
}

// execute turns engine effects into Bubble Tea commands. Transport effects
// act on the player directly; fetch effects become async commands whose
// results re-enter the engine token-tagged.
func (m *Model) execute(effects []game.Effect) tea.Cmd {
	var cmds []tea.Cmd
	for _, effect := range effects {
		switch e := effect.(type) {
		case game.LoadClip:
			cmds = append(cmds, m.loadClipCmd(e.Token))
		case game.StartAudio:
			m.audioToken = e.Token
			m.audioURL = e.URL
			m.setlist = nil
			if err := m.opts.Player.Load(e.URL); err != nil {
				m.errMsg = err.Error()
			}
		case game.PauseAudio:
			if err := m.opts.Player.Pause(); err != nil {
				m.errMsg = err.Error()
			}
		case game.ResumeAudio:
			if err := m.opts.Player.Resume(); err != nil {
				m.errMsg = err.Error()
			}
		case game.StopAudio:
			if err := m.opts.Player.Stop(); err != nil {
				m.errMsg = err.Error()
			}
		case game.FetchShowMeta:
			cmds = append(cmds, m.fetchShowMetaCmd(e.Token, e.Identifier))
		case game.SubmitScore:
			if m.opts.User != nil {
				cmds = append(cmds, m.submitScoreCmd(e.Points))
			}
			// Terminal state reached: fetch the setlist for the answer panel.
			if snap := m.engine.Snapshot(); snap.Clip != nil {
				cmds = append(cmds, m.fetchSetlistCmd(snap.Token, snap.Clip.Identifier))
			}
		case game.RefreshLeaderboard:
			cmds = append(cmds, m.refreshLeaderboardCmd())
		}
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

// Update is the single event loop: UI events and async completions all pass
// through here, so engine inputs never interleave.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case clipLoadedMsg:
		return m, m.execute(m.engine.HandleClipLoaded(msg.token, msg.clip, msg.err))

	case showMetaMsg:
		return m, m.execute(m.engine.HandleShowMeta(msg.token, msg.show, msg.err))

	case setlistMsg:
		if msg.token == m.engine.Snapshot().Token {
			m.setlist = msg.tracks
		}
		return m, nil

	case playerMsg:
		cmd := m.handlePlayerEvent(player.Event(msg))
		return m, tea.Batch(cmd, m.watchPlayerCmd())

	case scoreSubmittedMsg:
		// Best-effort: a failed submission is reported but never reopens
		// the round or blocks play-again.
		if msg.err != nil {
			m.errMsg = "score not saved: " + msg.err.Error()
		}
		return m, nil

	case leaderboardMsg:
		if msg.err == nil {
			m.leaderboard = msg.entries
			m.syncSessionScore()
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handlePlayerEvent(ev player.Event) tea.Cmd {
	switch {
	case ev.Err != nil:
		m.errMsg = ev.Err.Error()
		return nil
	case ev.Ready:
		return m.execute(m.engine.HandleAudioReady(m.audioToken, m.audioURL))
	case ev.Ended:
		return m.execute(m.engine.HandleAudioEnded(m.audioToken))
	}
	return nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	years := m.yearCount()
	switch msg.String() {
	case "q", "ctrl+c":
		m.opts.Player.Close()
		return m, tea.Quit

	case "p", " ":
		m.errMsg = ""
		return m, m.execute(m.engine.PressPlay())

	case "left", "h":
		if m.cursor > 0 {
			m.cursor--
		}
	case "right", "l":
		if m.cursor < years-1 {
			m.cursor++
		}
	case "up", "k":
		if m.cursor-yearsPerRow >= 0 {
			m.cursor -= yearsPerRow
		}
	case "down", "j":
		if m.cursor+yearsPerRow < years {
			m.cursor += yearsPerRow
		}

	case "enter":
		return m, m.execute(m.engine.Guess(m.opts.YearStart + m.cursor))

	case "r":
		return m, m.refreshLeaderboardCmd()
	}
	return m, nil
}

// syncSessionScore adopts the leaderboard total for the signed-in user, the
// same way the web client seeds its session counter after login.
func (m *Model) syncSessionScore() {
	m.sessionPts = m.counter.Total()
	if m.opts.User == nil {
		return
	}
	for _, e := range m.leaderboard {
		if e.Username == m.opts.User.Username {
			m.counter.Set(e.Points)
			m.sessionPts = e.Points
			return
		}
	}
}

func (m Model) yearCount() int {
	return m.opts.YearEnd - m.opts.YearStart + 1
}
