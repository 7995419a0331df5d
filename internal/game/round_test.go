package game

import (
	"errors"
	"testing"

	"github.com/yearjam/yearjam/internal/api"
)

func testClip(identifier, date string) *api.Clip {
	return &api.Clip{
		Identifier: identifier,
		Date:       date,
		Title:      "Grateful Dead Live at Barton Hall",
		Venue:      "Barton Hall",
		URL:        "https://example.org/download/" + identifier + "/t01.mp3",
	}
}

// startedEngine drives a fresh engine through load and audio-ready so it is
// playing the given clip. Returns the engine and the active round token.
func startedEngine(t *testing.T, clip *api.Clip) (*Engine, uint64) {
	t.Helper()
	e := NewEngine(nil, nil)
	return e, playRound(t, e, clip)
}

// playRound runs the load and audio-ready steps of a new round on e.
func playRound(t *testing.T, e *Engine, clip *api.Clip) uint64 {
	t.Helper()
	token := loadTokenOf(t, e.PressPlay())

	if fx := e.HandleClipLoaded(token, clip, nil); len(fx) != 1 {
		t.Fatalf("HandleClipLoaded effects = %v, want one StartAudio", fx)
	}
	e.HandleAudioReady(token, clip.URL)
	if st := e.Snapshot().State; st != StatePlaying {
		t.Fatalf("state after audio ready = %v, want playing", st)
	}
	return token
}

func loadTokenOf(t *testing.T, effects []Effect) uint64 {
	t.Helper()
	for _, fx := range effects {
		if lc, ok := fx.(LoadClip); ok {
			return lc.Token
		}
	}
	t.Fatalf("no LoadClip in effects %v", effects)
	return 0
}

func hasEffect[T Effect](effects []Effect) bool {
	for _, fx := range effects {
		if _, ok := fx.(T); ok {
			return true
		}
	}
	return false
}

func TestPressPlayStartsRound(t *testing.T) {
	e := NewEngine(nil, nil)

	effects := e.PressPlay()
	if !hasEffect[StopAudio](effects) || !hasEffect[LoadClip](effects) {
		t.Fatalf("effects = %v, want StopAudio and LoadClip", effects)
	}
	if st := e.Snapshot().State; st != StateLoading {
		t.Errorf("state = %v, want loading", st)
	}
}

func TestStaleClipLoadDiscarded(t *testing.T) {
	e := NewEngine(nil, nil)

	tokenA := loadTokenOf(t, e.PressPlay())
	tokenB := loadTokenOf(t, e.PressPlay())
	if tokenA == tokenB {
		t.Fatal("second round did not bump token")
	}

	// Round A resolves after B superseded it.
	if fx := e.HandleClipLoaded(tokenA, testClip("gd1977-05-08", "1977-05-08"), nil); fx != nil {
		t.Errorf("stale clip load produced effects %v", fx)
	}
	if snap := e.Snapshot(); snap.Clip != nil {
		t.Errorf("stale clip stored: %+v", snap.Clip)
	}

	// Round B's own completion still lands.
	fx := e.HandleClipLoaded(tokenB, testClip("gd1980-10-31", "1980-10-31"), nil)
	if !hasEffect[StartAudio](fx) {
		t.Errorf("current clip load effects = %v, want StartAudio", fx)
	}
}

func TestStaleAudioAndMetaDiscarded(t *testing.T) {
	e := NewEngine(nil, nil)
	oldToken := loadTokenOf(t, e.PressPlay())
	e.HandleClipLoaded(oldToken, testClip("gd1977-05-08", "1977-05-08"), nil)

	// Supersede, then deliver the old round's completions.
	newToken := loadTokenOf(t, e.PressPlay())

	if fx := e.HandleAudioReady(oldToken, "https://example.org/download/gd1977-05-08/t01.mp3"); fx != nil {
		t.Errorf("stale audio ready produced effects %v", fx)
	}
	if st := e.Snapshot().State; st != StateLoading {
		t.Errorf("state = %v, want loading", st)
	}

	show := &api.Show{Meta: api.ShowMeta{Identifier: "gd1977-05-08", Title: "old round"}}
	if fx := e.HandleShowMeta(oldToken, show, nil); fx != nil {
		t.Errorf("stale show meta produced effects %v", fx)
	}
	if fx := e.HandleAudioEnded(oldToken); fx != nil {
		t.Errorf("stale audio end produced effects %v", fx)
	}

	// The live round is unaffected.
	clipB := testClip("gd1980-10-31", "1980-10-31")
	e.HandleClipLoaded(newToken, clipB, nil)
	e.HandleAudioReady(newToken, clipB.URL)
	if snap := e.Snapshot(); snap.State != StatePlaying || snap.Clip.Identifier != "gd1980-10-31" {
		t.Errorf("live round disturbed: state=%v clip=%+v", snap.State, snap.Clip)
	}
}

func TestClipLoadFailure(t *testing.T) {
	e := NewEngine(nil, nil)
	token := loadTokenOf(t, e.PressPlay())

	if fx := e.HandleClipLoaded(token, nil, errors.New("upstream down")); fx != nil {
		t.Errorf("failure produced effects %v", fx)
	}
	snap := e.Snapshot()
	if snap.State != StateIdle {
		t.Errorf("state = %v, want idle", snap.State)
	}
	if snap.Status == "" {
		t.Error("status not set on failure")
	}
}

func TestAudioReadyGatesGuessing(t *testing.T) {
	e := NewEngine(nil, nil)
	token := loadTokenOf(t, e.PressPlay())
	clip := testClip("gd1977-05-08", "1977-05-08")
	e.HandleClipLoaded(token, clip, nil)

	// Clip is present but audio not ready: still loading, guesses rejected.
	if st := e.Snapshot().State; st != StateLoading {
		t.Fatalf("state = %v, want loading until audio ready", st)
	}
	if fx := e.Guess(1977); fx != nil {
		t.Errorf("guess before audio ready produced %v", fx)
	}

	e.HandleAudioReady(token, clip.URL)
	if st := e.Snapshot().State; st != StatePlaying {
		t.Errorf("state = %v, want playing", st)
	}
}

func TestAudioReadyReconciliation(t *testing.T) {
	e := NewEngine(nil, nil)
	token := loadTokenOf(t, e.PressPlay())
	clip := testClip("gd1977-05-08", "1977-05-08")
	e.HandleClipLoaded(token, clip, nil)

	// Redirect landed on a different show.
	fx := e.HandleAudioReady(token, "https://mirror.example.org/download/gd1977-05-09.sbd/t01.mp3")
	if len(fx) != 1 {
		t.Fatalf("effects = %v, want one FetchShowMeta", fx)
	}
	meta, ok := fx[0].(FetchShowMeta)
	if !ok || meta.Identifier != "gd1977-05-09.sbd" {
		t.Fatalf("effect = %+v, want FetchShowMeta for resolved identifier", fx[0])
	}

	show := &api.Show{Meta: api.ShowMeta{
		Identifier: "gd1977-05-09.sbd",
		Title:      "Grateful Dead Live at War Memorial",
		Date:       "1977-05-09",
		Venue:      "War Memorial",
	}}
	e.HandleShowMeta(token, show, nil)

	snap := e.Snapshot()
	if snap.Clip.Identifier != "gd1977-05-09.sbd" {
		t.Errorf("identifier = %q, want reconciled", snap.Clip.Identifier)
	}
	if snap.Clip.Date != "1977-05-09" {
		t.Errorf("date = %q, want reconciled", snap.Clip.Date)
	}
	if snap.Clip.URL != clip.URL {
		t.Errorf("URL changed during reconciliation: %q", snap.Clip.URL)
	}
}

func TestShowMetaFailureSwallowed(t *testing.T) {
	clip := testClip("gd1977-05-08", "1977-05-08")
	e, token := startedEngine(t, clip)

	if fx := e.HandleShowMeta(token, nil, errors.New("metadata down")); fx != nil {
		t.Errorf("failure produced effects %v", fx)
	}
	if snap := e.Snapshot(); snap.Clip.Identifier != clip.Identifier {
		t.Errorf("clip changed on failed reconciliation")
	}
}

func TestPauseToggle(t *testing.T) {
	e, _ := startedEngine(t, testClip("gd1977-05-08", "1977-05-08"))

	fx := e.PressPlay()
	if !hasEffect[PauseAudio](fx) {
		t.Fatalf("effects = %v, want PauseAudio", fx)
	}
	if st := e.Snapshot().State; st != StatePaused {
		t.Fatalf("state = %v, want paused", st)
	}

	fx = e.PressPlay()
	if !hasEffect[ResumeAudio](fx) {
		t.Fatalf("effects = %v, want ResumeAudio", fx)
	}
	if st := e.Snapshot().State; st != StatePlaying {
		t.Fatalf("state = %v, want playing", st)
	}
}

func TestGuessingWhilePaused(t *testing.T) {
	e, _ := startedEngine(t, testClip("gd1977-05-08", "1977-05-08"))
	e.PressPlay() // pause

	fx := e.Guess(1977)
	if !hasEffect[SubmitScore](fx) {
		t.Fatalf("effects = %v, want SubmitScore for correct guess", fx)
	}
	if st := e.Snapshot().State; st != StateRoundEndPaused {
		t.Errorf("state = %v, want round end paused", st)
	}
}

func TestCorrectGuessScoring(t *testing.T) {
	tests := []struct {
		name       string
		misses     int
		wantPoints int
	}{
		{name: "first guess", misses: 0, wantPoints: 3},
		{name: "second guess", misses: 1, wantPoints: 2},
		{name: "third guess", misses: 2, wantPoints: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := startedEngine(t, testClip("gd1977-05-08", "1977-05-08"))

			for i := 0; i < tt.misses; i++ {
				if fx := e.Guess(1966 + i); fx != nil {
					t.Fatalf("miss %d produced effects %v", i+1, fx)
				}
			}
			fx := e.Guess(1977)
			score := submittedPoints(t, fx)
			if score != tt.wantPoints {
				t.Errorf("points = %d, want %d", score, tt.wantPoints)
			}
			snap := e.Snapshot()
			if !snap.Won || snap.LastPoints != tt.wantPoints {
				t.Errorf("snapshot won=%v points=%d, want won with %d", snap.Won, snap.LastPoints, tt.wantPoints)
			}
		})
	}
}

func TestThreeMissesEndRound(t *testing.T) {
	counter := NewScoreCounter()
	e := NewEngine(counter, nil)
	playRound(t, e, testClip("gd1977-05-08", "1977-05-08"))

	e.Guess(1966)
	e.Guess(1967)
	fx := e.Guess(1968)
	if pts := submittedPoints(t, fx); pts != 0 {
		t.Errorf("points = %d, want 0", pts)
	}
	snap := e.Snapshot()
	if snap.State != StateRoundEnd || snap.Won {
		t.Errorf("snapshot state=%v won=%v, want lost round end", snap.State, snap.Won)
	}
	if counter.Total() != 0 {
		t.Errorf("counter total = %d, want 0", counter.Total())
	}
}

func TestUsedYearIsNoOp(t *testing.T) {
	e, _ := startedEngine(t, testClip("gd1977-05-08", "1977-05-08"))

	e.Guess(1966)
	if fx := e.Guess(1966); fx != nil {
		t.Errorf("repeat year produced effects %v", fx)
	}
	if got := e.Snapshot().GuessCount; got != 1 {
		t.Errorf("guess count = %d, want 1", got)
	}
}

func TestGuessAfterTerminalIsNoOp(t *testing.T) {
	counter := NewScoreCounter()
	e := NewEngine(counter, nil)
	playRound(t, e, testClip("gd1977-05-08", "1977-05-08"))

	e.Guess(1977)
	// One score submission per round: the racing duplicate must not score.
	if fx := e.Guess(1978); fx != nil {
		t.Errorf("guess after round end produced effects %v", fx)
	}
	if total := counter.Total(); total != 3 {
		t.Errorf("counter total = %d, want 3", total)
	}
}

func TestPlayAgainFromRoundEnd(t *testing.T) {
	e, _ := startedEngine(t, testClip("gd1977-05-08", "1977-05-08"))
	e.Guess(1977)

	effects := e.PressPlay()
	if !hasEffect[LoadClip](effects) || !hasEffect[StopAudio](effects) {
		t.Fatalf("effects = %v, want new round", effects)
	}
	snap := e.Snapshot()
	if snap.State != StateLoading || snap.GuessCount != 0 || len(snap.UsedYears) != 0 {
		t.Errorf("round state not reset: %+v", snap)
	}
}

func TestAudioEndedAbandonsRound(t *testing.T) {
	e, token := startedEngine(t, testClip("gd1977-05-08", "1977-05-08"))
	e.Guess(1966)

	if fx := e.HandleAudioEnded(token); fx != nil {
		t.Errorf("audio end produced effects %v", fx)
	}
	snap := e.Snapshot()
	if snap.State != StateIdle || snap.Clip != nil {
		t.Errorf("state=%v clip=%v, want idle with no clip", snap.State, snap.Clip)
	}
}

func TestAudioEndedAfterRoundEndIgnored(t *testing.T) {
	e, token := startedEngine(t, testClip("gd1977-05-08", "1977-05-08"))
	e.Guess(1977)

	e.HandleAudioEnded(token)
	if st := e.Snapshot().State; st != StateRoundEnd {
		t.Errorf("state = %v, want round end preserved", st)
	}
}

func submittedPoints(t *testing.T, effects []Effect) int {
	t.Helper()
	count := 0
	points := 0
	for _, fx := range effects {
		if s, ok := fx.(SubmitScore); ok {
			count++
			points = s.Points
		}
	}
	if count != 1 {
		t.Fatalf("SubmitScore count = %d in %v, want exactly 1", count, effects)
	}
	return points
}

func TestIdentifierFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "plain", url: "https://archive.org/download/gd1977-05-08.sbd/t01.mp3", want: "gd1977-05-08.sbd"},
		{name: "mirror host", url: "https://ia801234.us.archive.org/5/items/x/../download/gd77/file.mp3", want: "gd77"},
		{name: "no download segment", url: "https://archive.org/details/gd77", want: ""},
		{name: "bad characters", url: "https://archive.org/download/gd 77/file.mp3", want: ""},
		{name: "empty", url: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IdentifierFromURL(tt.url); got != tt.want {
				t.Errorf("IdentifierFromURL(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestCleanShowTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		date  string
		venue string
		want  string
	}{
		{name: "strips prefix", title: "Grateful Dead Live at Barton Hall on 1977-05-08", want: "Barton Hall on 1977-05-08"},
		{name: "case insensitive", title: "grateful dead live at Winterland", want: "Winterland"},
		{name: "no prefix untouched", title: "Barton Hall 1977", want: "Barton Hall 1977"},
		{name: "empty falls back", title: "", date: "1977-05-08T00:00:00Z", venue: "Barton Hall", want: "1977-05-08 — Barton Hall"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanShowTitle(tt.title, tt.date, tt.venue); got != tt.want {
				t.Errorf("CleanShowTitle = %q, want %q", got, tt.want)
			}
		})
	}
}
