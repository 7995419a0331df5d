// Package api defines the JSON wire contract shared by the server handlers
// and the API client.
package api

// ClipFile describes the single audio file chosen for a round.
type ClipFile struct {
	Name   string `json:"name"`
	Title  string `json:"title"`
	Length string `json:"length"`
}

// Clip is the selection result returned by GET /api/random-clip. It combines
// show-level metadata with one playable track and a constructed playback URL.
type Clip struct {
	Identifier string   `json:"identifier"`
	Date       string   `json:"date"`
	Title      string   `json:"title"`
	Venue      string   `json:"venue"`
	Location   string   `json:"location"`
	File       ClipFile `json:"file"`
	URL        string   `json:"url"`
}

// ShowMeta is the authoritative metadata block of GET /api/show/{id}.
type ShowMeta struct {
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	Date       string `json:"date"`
	Venue      string `json:"venue"`
	Location   string `json:"location"`
}

// Track is one playable audio file belonging to a show.
type Track struct {
	Name   string `json:"name"`
	Title  string `json:"title"`
	Length string `json:"length"`
	URL    string `json:"url"`
}

// Show is the response of GET /api/show/{id}.
type Show struct {
	Meta   ShowMeta `json:"meta"`
	Tracks []Track  `json:"tracks"`
}

// LeaderboardEntry is one ranked row of GET /api/leaderboard.
type LeaderboardEntry struct {
	Username string `json:"username"`
	Points   int    `json:"points"`
	Games    int    `json:"games"`
}

// LeaderboardResponse wraps the ranked rows.
type LeaderboardResponse struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// User is the authenticated identity returned by /api/me and the auth
// endpoints.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// AuthRequest is the body of /api/register and /api/login.
type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse is returned on successful register/login.
type AuthResponse struct {
	Success bool `json:"success"`
	User    User `json:"user"`
}

// MeResponse is returned by GET /api/me. User is null when signed out;
// Points carries the stored total for signed-in players.
type MeResponse struct {
	User   *User `json:"user"`
	Points int   `json:"points"`
}

// ScoreRequest is the body of POST /api/score.
type ScoreRequest struct {
	Score int `json:"score"`
}

// OKResponse acknowledges a write.
type OKResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse is the error envelope used by every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}
