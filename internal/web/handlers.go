package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yearjam/yearjam/internal/api"
	"github.com/yearjam/yearjam/internal/archive"
	"github.com/yearjam/yearjam/internal/db"
	"github.com/yearjam/yearjam/internal/picker"
	"github.com/yearjam/yearjam/pkg/metrics"
)

const (
	// maxScore is the server-side score bound; the round engine only ever
	// sends 0..3, everything above is a client gone wrong.
	maxScore = 100000

	bcryptCost = 10
)

// identifierPattern restricts show identifiers before anything reaches the
// upstream catalog.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ClipSelector selects one playable clip from a year range.
type ClipSelector interface {
	SelectClip(ctx context.Context, start, end int) (*api.Clip, error)
}

// ShowCatalog is the read interface the show and browse endpoints need.
type ShowCatalog interface {
	GetItem(ctx context.Context, identifier string) (*archive.Item, error)
	SearchShows(ctx context.Context, year int) ([]archive.ShowDoc, error)
	SearchText(ctx context.Context, term string, rows int) ([]archive.ShowDoc, error)
	DownloadURL(identifier, filename string) string
}

// UserStore is the user persistence the auth endpoints need.
type UserStore interface {
	Create(ctx context.Context, username, passwordHash string) (*db.User, error)
	Get(ctx context.Context, id uuid.UUID) (*db.User, error)
	GetByUsername(ctx context.Context, username string) (*db.User, error)
}

// ScoreStore is the score-ledger contract: idempotent append plus ranked
// aggregate.
type ScoreStore interface {
	Append(ctx context.Context, userID uuid.UUID, points int) error
	Leaderboard(ctx context.Context, limit int) ([]api.LeaderboardEntry, error)
	UserTotal(ctx context.Context, userID uuid.UUID) (int, error)
}

// Handlers contains the HTTP handlers for the game API.
type Handlers struct {
	selector  ClipSelector
	catalog   ShowCatalog
	users     UserStore
	scores    ScoreStore
	sessions  SessionManager
	templates *Templates
	metrics   *metrics.Manager
	logger    *slog.Logger

	yearStart        int
	yearEnd          int
	leaderboardLimit int
}

// RandomClip handles GET /api/random-clip?start=&end=.
func (h *Handlers) RandomClip(w http.ResponseWriter, r *http.Request) {
	start := queryYear(r, "start", h.yearStart)
	end := queryYear(r, "end", h.yearEnd)

	clip, err := h.selector.SelectClip(r.Context(), start, end)
	if err != nil {
		h.logger.Error("random-clip failed", slog.Any("err", err))
		h.metrics.ClipError(clipErrorKind(err))
		writeError(w, http.StatusInternalServerError, "Could not load a random clip")
		return
	}

	h.metrics.ClipServed()
	writeJSON(w, http.StatusOK, clip)
}

// Show handles GET /api/show/{id}: authoritative metadata plus the full
// track list with playback URLs.
func (h *Handlers) Show(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !identifierPattern.MatchString(id) {
		writeError(w, http.StatusBadRequest, "Invalid show identifier")
		return
	}

	item, err := h.catalog.GetItem(r.Context(), id)
	if err != nil {
		h.logger.Error("show fetch failed", slog.String("id", id), slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "Could not load show details")
		return
	}

	tracks := []api.Track{}
	for _, f := range item.Files {
		if !f.IsMP3() {
			continue
		}
		tracks = append(tracks, api.Track{
			Name:   f.Name,
			Title:  f.Title,
			Length: f.Length.String(),
			URL:    h.catalog.DownloadURL(id, f.Name),
		})
	}

	writeJSON(w, http.StatusOK, api.Show{
		Meta: api.ShowMeta{
			Identifier: id,
			Title:      item.Metadata.Title,
			Date:       item.Metadata.Date,
			Venue:      item.Metadata.Venue,
			Location:   item.Metadata.Location,
		},
		Tracks: tracks,
	})
}

// Register handles POST /api/register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req api.AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password required")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		h.logger.Error("hashing password failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	user, err := h.users.Create(r.Context(), req.Username, string(hashed))
	if errors.Is(err, db.ErrDuplicate) {
		writeError(w, http.StatusConflict, "Username already taken")
		return
	}
	if err != nil {
		h.logger.Error("creating user failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	h.signIn(w, r, user)
}

// Login handles POST /api/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req api.AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password required")
		return
	}

	user, err := h.users.GetByUsername(r.Context(), req.Username)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		h.logger.Error("looking up user failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	h.signIn(w, r, user)
}

// signIn creates a session for a verified user and writes the auth
// response.
func (h *Handlers) signIn(w http.ResponseWriter, r *http.Request, user *db.User) {
	session, err := h.sessions.Create(r.Context(), user.ID, user.Username)
	if err != nil {
		h.logger.Error("creating session failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "Could not create session")
		return
	}
	h.sessions.SetCookie(w, session)

	writeJSON(w, http.StatusOK, api.AuthResponse{
		Success: true,
		User:    api.User{ID: user.ID.String(), Username: user.Username},
	})
}

// Me handles GET /api/me. Signed-out requests get a null user, not an
// error; signed-in ones also get their stored point total.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)
	if session == nil {
		writeJSON(w, http.StatusOK, api.MeResponse{})
		return
	}

	total, err := h.scores.UserTotal(r.Context(), session.UserID)
	if err != nil {
		h.logger.Error("user total query failed", slog.Any("err", err))
		total = 0
	}
	writeJSON(w, http.StatusOK, api.MeResponse{
		User:   &api.User{ID: session.UserID.String(), Username: session.Username},
		Points: total,
	})
}

// Logout handles POST /api/logout.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessions.GetFromRequest(r); session != nil {
		h.sessions.Delete(r.Context(), session.ID)
	}
	h.sessions.ClearCookie(w)
	writeJSON(w, http.StatusOK, api.OKResponse{OK: true})
}

// SubmitScore handles POST /api/score. Requires a session; the score must
// be an integer in [0, maxScore].
func (h *Handlers) SubmitScore(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.GetFromRequest(r)
	if session == nil {
		writeError(w, http.StatusUnauthorized, "Sign in required")
		return
	}

	var req api.ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid score")
		return
	}
	if req.Score < 0 || req.Score > maxScore {
		writeError(w, http.StatusBadRequest, "Invalid score")
		return
	}

	if err := h.scores.Append(r.Context(), session.UserID, req.Score); err != nil {
		h.logger.Error("appending score failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "Could not record score")
		return
	}

	h.metrics.ScoreSubmitted()
	writeJSON(w, http.StatusOK, api.OKResponse{OK: true})
}

// Leaderboard handles GET /api/leaderboard.
func (h *Handlers) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.scores.Leaderboard(r.Context(), h.leaderboardLimit)
	if err != nil {
		h.logger.Error("leaderboard query failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "Could not load leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, api.LeaderboardResponse{Leaderboard: entries})
}

// Ping handles GET /_ping.
func (h *Handlers) Ping(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("pong"))
}

// queryYear parses an optional year query parameter, falling back to def on
// absence or garbage.
func queryYear(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return year
}

// clipErrorKind maps selector failures to metric labels.
func clipErrorKind(err error) string {
	switch {
	case errors.Is(err, picker.ErrNoShows):
		return "no_shows"
	case errors.Is(err, picker.ErrNoPlayableTrack):
		return "no_playable_track"
	case errors.Is(err, archive.ErrUnavailable):
		return "upstream_unavailable"
	default:
		return "other"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, api.ErrorResponse{Error: msg})
}
