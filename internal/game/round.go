// Package game implements the round engine: the state machine that
// coordinates clip loading, playback, guessing, and scoring for one player
// session, plus the pure guess evaluator and the session score counter.
package game

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/yearjam/yearjam/internal/api"
)

// identifierPattern is the restricted character set for catalog identifiers.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// liveAtPrefix strips the collection boilerplate from show titles before
// display; the title would otherwise give the band away on every answer.
var liveAtPrefix = regexp.MustCompile(`(?i)^Grateful Dead Live at\s*`)

// Engine owns the lifecycle of rounds for one session. Every input method
// returns the effects the host must execute; async completions come back
// through the Handle* methods carrying the round token captured when the
// effect was issued. Completions with a stale token are discarded without
// touching state.
//
// Methods are safe for concurrent use, though hosts normally drive the
// engine from a single event loop.
type Engine struct {
	mu sync.Mutex

	token      uint64
	state      State
	clip       *api.Clip
	guessCount int
	usedYears  map[int]bool
	lastPoints int
	won        bool
	status     string

	counter *ScoreCounter
	logger  *slog.Logger
}

// NewEngine creates an idle engine. The counter accumulates session points
// and may be shared with other displays; logger may be nil.
func NewEngine(counter *ScoreCounter, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if counter == nil {
		counter = NewScoreCounter()
	}
	return &Engine{
		state:     StateIdle,
		usedYears: make(map[int]bool),
		counter:   counter,
		logger:    logger,
	}
}

// Snapshot is a read-only view of the engine for rendering.
type Snapshot struct {
	Token      uint64
	State      State
	Clip       *api.Clip
	GuessCount int
	Remaining  int
	UsedYears  map[int]bool
	Status     string
	LastPoints int
	Won        bool
}

// Snapshot returns the current view. The clip and year map are copies.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	var clip *api.Clip
	if e.clip != nil {
		c := *e.clip
		clip = &c
	}
	used := make(map[int]bool, len(e.usedYears))
	for y := range e.usedYears {
		used[y] = true
	}
	return Snapshot{
		Token:      e.token,
		State:      e.state,
		Clip:       clip,
		GuessCount: e.guessCount,
		Remaining:  MaxGuesses - e.guessCount,
		UsedYears:  used,
		Status:     e.status,
		LastPoints: e.lastPoints,
		Won:        e.won,
	}
}

// PressPlay handles the primary control. While no clip is present it starts
// a new round; once a clip is loaded it becomes a transport toggle. From a
// terminal state it starts the next round.
func (e *Engine) PressPlay() []Effect {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateIdle, StateLoading, StateRoundEnd, StateRoundEndPaused:
		return e.startRound()
	case StatePlaying:
		e.setState(StatePaused)
		return []Effect{PauseAudio{}}
	case StatePaused:
		e.setState(StatePlaying)
		return []Effect{ResumeAudio{}}
	}
	return nil
}

// startRound supersedes any in-flight round: it bumps the token, which
// invalidates every outstanding completion, and resets guess state.
// Callers hold e.mu.
func (e *Engine) startRound() []Effect {
	e.token++
	e.setState(StateLoading)
	e.clip = nil
	e.guessCount = 0
	e.usedYears = make(map[int]bool)
	e.lastPoints = 0
	e.won = false
	e.status = "Picking a random show and track…"

	e.logger.Debug("round started", slog.Uint64("token", e.token))
	return []Effect{StopAudio{}, LoadClip{Token: e.token}}
}

// HandleClipLoaded receives the clip-fetch completion.
func (e *Engine) HandleClipLoaded(token uint64, clip *api.Clip, err error) []Effect {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stale(token, "clip load") {
		return nil
	}
	if err != nil || clip == nil || clip.URL == "" {
		e.logger.Warn("clip load failed", slog.Any("err", err))
		e.setState(StateIdle)
		e.status = "Couldn’t load a clip. Try again."
		return nil
	}

	c := *clip
	e.clip = &c
	// Still loading: guessing opens only once audio is actually ready.
	return []Effect{StartAudio{Token: e.token, URL: c.URL}}
}

// HandleAudioReady receives the player's ready signal along with the URL the
// player actually resolved after redirects. It opens guessing and, when the
// resolved URL points at a different show than expected, requests a metadata
// re-fetch so the answer matches the audio.
func (e *Engine) HandleAudioReady(token uint64, resolvedURL string) []Effect {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stale(token, "audio ready") {
		return nil
	}
	if e.state != StateLoading || e.clip == nil {
		return nil
	}

	e.setState(StatePlaying)
	e.status = fmt.Sprintf("Guess 1 of %d: pick a year.", MaxGuesses)

	if id := IdentifierFromURL(resolvedURL); id != "" && id != e.clip.Identifier {
		return []Effect{FetchShowMeta{Token: e.token, Identifier: id}}
	}
	return nil
}

// HandleShowMeta receives the metadata-reconciliation completion. Failures
// are swallowed: the round proceeds with the metadata it already has. On
// success the descriptive fields are overwritten; the playback URL and file
// are never touched.
func (e *Engine) HandleShowMeta(token uint64, show *api.Show, err error) []Effect {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stale(token, "show meta") {
		return nil
	}
	if err != nil || show == nil || e.clip == nil {
		return nil
	}

	e.clip.Identifier = show.Meta.Identifier
	if show.Meta.Title != "" {
		e.clip.Title = show.Meta.Title
	}
	if show.Meta.Date != "" {
		e.clip.Date = show.Meta.Date
	}
	if show.Meta.Venue != "" {
		e.clip.Venue = show.Meta.Venue
	}
	if show.Meta.Location != "" {
		e.clip.Location = show.Meta.Location
	}
	return nil
}

// HandleAudioEnded receives the natural end-of-clip signal. A round that
// ends without a terminal guess is abandoned without scoring.
func (e *Engine) HandleAudioEnded(token uint64) []Effect {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stale(token, "audio end") {
		return nil
	}
	if e.state != StatePlaying && e.state != StatePaused {
		return nil
	}

	e.setState(StateIdle)
	e.clip = nil
	e.guessCount = 0
	e.usedYears = make(map[int]bool)
	e.status = "Clip ended. Press play for another."
	return nil
}

// Guess submits a year. Reused years and guesses outside an active round
// are no-ops, so a racing double-click can never double-score.
func (e *Engine) Guess(year int) []Effect {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StatePlaying && e.state != StatePaused {
		return nil
	}
	if e.clip == nil || e.clip.Date == "" {
		return nil
	}
	if e.usedYears[year] {
		return nil
	}

	e.guessCount++
	e.usedYears[year] = true

	correct := YearOf(e.clip.Date)
	out := Evaluate(year, correct, e.guessCount)

	switch {
	case out.Correct:
		e.status = fmt.Sprintf("You nailed it on guess %d!", e.guessCount)
		return e.finishRound(out.Points, true)
	case !out.Terminal:
		e.status = fmt.Sprintf("Guess %d wrong. Try again — %d left.", e.guessCount, MaxGuesses-e.guessCount)
		return nil
	default:
		e.status = fmt.Sprintf("Out of guesses. The correct year was %d.", correct)
		return e.finishRound(0, false)
	}
}

// finishRound is the single terminal entry point: every route into a
// terminal state passes through here, which is what guarantees exactly one
// score submission per round. Callers hold e.mu.
func (e *Engine) finishRound(points int, won bool) []Effect {
	if e.state == StatePaused {
		e.setState(StateRoundEndPaused)
	} else {
		e.setState(StateRoundEnd)
	}
	e.lastPoints = points
	e.won = won
	e.counter.Add(points)

	e.logger.Info("round finished",
		slog.Uint64("token", e.token),
		slog.Int("points", points),
		slog.Bool("won", won))
	return []Effect{SubmitScore{Points: points}, RefreshLeaderboard{}}
}

// stale reports whether a completion belongs to a superseded round.
// Callers hold e.mu.
func (e *Engine) stale(token uint64, kind string) bool {
	if token != e.token {
		e.logger.Debug("stale completion discarded",
			slog.String("kind", kind),
			slog.Uint64("token", token),
			slog.Uint64("current", e.token))
		return true
	}
	return false
}

// setState applies a transition, rejecting anything not in the table.
// Callers hold e.mu.
func (e *Engine) setState(to State) {
	if e.state == to {
		return
	}
	if !canTransition(e.state, to) {
		e.logger.Error("illegal state transition rejected",
			slog.String("from", e.state.String()),
			slog.String("to", to.String()))
		return
	}
	e.state = to
}

// IdentifierFromURL derives the show identifier from a playback URL of the
// form …/download/<identifier>/<file>. Returns "" when the URL does not
// contain a well-formed identifier; callers treat that as "no reconciliation
// possible", never as an error.
func IdentifierFromURL(u string) string {
	_, rest, ok := strings.Cut(u, "/download/")
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, "/")
	if !identifierPattern.MatchString(id) {
		return ""
	}
	return id
}

// CleanShowTitle prepares a show title for the answer panel, falling back
// to date and venue when the title is empty.
func CleanShowTitle(title, date, venue string) string {
	if title == "" {
		d, _, _ := strings.Cut(date, "T")
		title = d + " — " + venue
	}
	return liveAtPrefix.ReplaceAllString(title, "")
}
