package game

// Effect is an asynchronous action requested by the engine. The host (TUI,
// tests) executes effects and feeds completions back through the Handle*
// methods, tagging each with the Token captured here. The engine itself
// performs no I/O.
type Effect interface {
	isEffect()
}

// LoadClip requests a fresh clip from the selection API.
type LoadClip struct {
	Token uint64
}

// StartAudio loads the clip URL into the player and starts playback. The
// engine transitions to playing only on the audio-ready completion, not on
// this effect being issued.
type StartAudio struct {
	Token uint64
	URL   string
}

// PauseAudio pauses the transport.
type PauseAudio struct{}

// ResumeAudio resumes the transport.
type ResumeAudio struct{}

// StopAudio hard-stops the transport and drops any buffered audio. Issued
// when a new round supersedes the old one.
type StopAudio struct{}

// FetchShowMeta requests authoritative metadata for the show the resolved
// playback URL actually points at.
type FetchShowMeta struct {
	Token      uint64
	Identifier string
}

// SubmitScore reports the round's points to the score ledger. Issued exactly
// once per terminal transition; failures must not re-enter the engine.
type SubmitScore struct {
	Points int
}

// RefreshLeaderboard asks the host to re-read the leaderboard.
type RefreshLeaderboard struct{}

func (LoadClip) isEffect()           {}
func (StartAudio) isEffect()         {}
func (PauseAudio) isEffect()         {}
func (ResumeAudio) isEffect()        {}
func (StopAudio) isEffect()          {}
func (FetchShowMeta) isEffect()      {}
func (SubmitScore) isEffect()        {}
func (RefreshLeaderboard) isEffect() {}
