package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yearjam/yearjam/internal/api"
	"github.com/yearjam/yearjam/internal/archive"
	"github.com/yearjam/yearjam/internal/db"
	"github.com/yearjam/yearjam/pkg/metrics"
)

type fakeSelector struct {
	clip       *api.Clip
	err        error
	start, end int
}

func (f *fakeSelector) SelectClip(_ context.Context, start, end int) (*api.Clip, error) {
	f.start, f.end = start, end
	if f.err != nil {
		return nil, f.err
	}
	return f.clip, nil
}

type fakeCatalog struct {
	items map[string]*archive.Item
}

func (f *fakeCatalog) GetItem(_ context.Context, identifier string) (*archive.Item, error) {
	item, ok := f.items[identifier]
	if !ok {
		return nil, errors.New("not found")
	}
	return item, nil
}

func (f *fakeCatalog) SearchShows(context.Context, int) ([]archive.ShowDoc, error) {
	return nil, nil
}

func (f *fakeCatalog) SearchText(context.Context, string, int) ([]archive.ShowDoc, error) {
	return nil, nil
}

func (f *fakeCatalog) DownloadURL(identifier, filename string) string {
	return "https://example.org/download/" + identifier + "/" + filename
}

type fakeUsers struct {
	byName map[string]*db.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byName: make(map[string]*db.User)}
}

func (f *fakeUsers) Create(_ context.Context, username, passwordHash string) (*db.User, error) {
	if _, ok := f.byName[username]; ok {
		return nil, db.ErrDuplicate
	}
	u := &db.User{ID: uuid.New(), Username: username, PasswordHash: passwordHash}
	f.byName[username] = u
	return u, nil
}

func (f *fakeUsers) Get(_ context.Context, id uuid.UUID) (*db.User, error) {
	for _, u := range f.byName {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*db.User, error) {
	u, ok := f.byName[username]
	if !ok {
		return nil, db.ErrNotFound
	}
	return u, nil
}

type fakeScores struct {
	appended []int
	byUser   map[uuid.UUID]int
	board    []api.LeaderboardEntry
	err      error
}

func newFakeScores() *fakeScores {
	return &fakeScores{byUser: make(map[uuid.UUID]int)}
}

func (f *fakeScores) Append(_ context.Context, userID uuid.UUID, points int) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, points)
	f.byUser[userID] += points
	return nil
}

func (f *fakeScores) Leaderboard(context.Context, int) ([]api.LeaderboardEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.board, nil
}

func (f *fakeScores) UserTotal(_ context.Context, userID uuid.UUID) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.byUser[userID], nil
}

type testEnv struct {
	router   chi.Router
	selector *fakeSelector
	catalog  *fakeCatalog
	users    *fakeUsers
	scores   *fakeScores
	sessions *SessionStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		selector: &fakeSelector{},
		catalog:  &fakeCatalog{items: make(map[string]*archive.Item)},
		users:    newFakeUsers(),
		scores:   newFakeScores(),
		sessions: NewSessionStore(),
	}

	h := &Handlers{
		selector:         env.selector,
		catalog:          env.catalog,
		users:            env.users,
		scores:           env.scores,
		sessions:         env.sessions,
		metrics:          metrics.NewManager(),
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		yearStart:        1966,
		yearEnd:          1995,
		leaderboardLimit: 20,
	}

	r := chi.NewRouter()
	r.Get("/api/random-clip", h.RandomClip)
	r.Get("/api/show/{id}", h.Show)
	r.Get("/api/leaderboard", h.Leaderboard)
	r.Post("/api/score", h.SubmitScore)
	r.Post("/api/register", h.Register)
	r.Post("/api/login", h.Login)
	r.Get("/api/me", h.Me)
	r.Post("/api/logout", h.Logout)
	r.Get("/_ping", h.Ping)
	env.router = r
	return env
}

func (env *testEnv) do(t *testing.T, method, target string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestRandomClip(t *testing.T) {
	env := newTestEnv(t)
	env.selector.clip = &api.Clip{
		Identifier: "gd1977-05-08",
		Date:       "1977-05-08",
		URL:        "https://example.org/download/gd1977-05-08/t01.mp3",
	}

	rec := env.do(t, http.MethodGet, "/api/random-clip?start=1970&end=1980", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	clip := decode[api.Clip](t, rec)
	if clip.Identifier != "gd1977-05-08" {
		t.Errorf("identifier = %q", clip.Identifier)
	}
	if env.selector.start != 1970 || env.selector.end != 1980 {
		t.Errorf("range passed = [%d,%d], want [1970,1980]", env.selector.start, env.selector.end)
	}
}

func TestRandomClipDefaultsAndGarbageParams(t *testing.T) {
	env := newTestEnv(t)
	env.selector.clip = &api.Clip{Identifier: "x", URL: "u"}

	env.do(t, http.MethodGet, "/api/random-clip?start=banana", nil, nil)
	if env.selector.start != 1966 || env.selector.end != 1995 {
		t.Errorf("range passed = [%d,%d], want defaults [1966,1995]", env.selector.start, env.selector.end)
	}
}

func TestRandomClipFailure(t *testing.T) {
	env := newTestEnv(t)
	env.selector.err = errors.New("catalog down")

	rec := env.do(t, http.MethodGet, "/api/random-clip", nil, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	resp := decode[api.ErrorResponse](t, rec)
	if resp.Error != "Could not load a random clip" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestShow(t *testing.T) {
	env := newTestEnv(t)
	env.catalog.items["gd1977-05-08"] = &archive.Item{
		Metadata: archive.ItemMeta{
			Identifier: "gd1977-05-08",
			Title:      "Barton Hall",
			Date:       "1977-05-08",
		},
		Files: []archive.FileEntry{
			{Name: "t01.mp3", Title: "Opener", Length: "5:00"},
			{Name: "cover.jpg"},
			{Name: "t02.mp3", Title: "Closer", Length: "12:30"},
		},
	}

	rec := env.do(t, http.MethodGet, "/api/show/gd1977-05-08", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	show := decode[api.Show](t, rec)
	if show.Meta.Title != "Barton Hall" {
		t.Errorf("title = %q", show.Meta.Title)
	}
	if len(show.Tracks) != 2 {
		t.Fatalf("tracks = %d, want 2 MP3s", len(show.Tracks))
	}
	if !strings.HasPrefix(show.Tracks[0].URL, "https://example.org/download/gd1977-05-08/") {
		t.Errorf("track URL = %q", show.Tracks[0].URL)
	}
}

func TestShowRejectsMalformedIdentifier(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/show/gd!1977", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRegisterAndMe(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/register", api.AuthRequest{Username: "jerry", Password: "ripple"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body.String())
	}
	auth := decode[api.AuthResponse](t, rec)
	if !auth.Success || auth.User.Username != "jerry" {
		t.Fatalf("auth response = %+v", auth)
	}
	cookie := sessionCookie(t, rec)

	rec = env.do(t, http.MethodGet, "/api/me", nil, cookie)
	me := decode[api.MeResponse](t, rec)
	if me.User == nil || me.User.Username != "jerry" {
		t.Errorf("me = %+v, want signed-in jerry", me)
	}

	// Stored hash must verify, and must not be the plaintext.
	stored := env.users.byName["jerry"].PasswordHash
	if stored == "ripple" {
		t.Error("password stored in plaintext")
	}
	if bcrypt.CompareHashAndPassword([]byte(stored), []byte("ripple")) != nil {
		t.Error("stored hash does not verify")
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body any
		want int
	}{
		{name: "empty username", body: api.AuthRequest{Password: "x"}, want: http.StatusBadRequest},
		{name: "empty password", body: api.AuthRequest{Username: "x"}, want: http.StatusBadRequest},
		{name: "valid", body: api.AuthRequest{Username: "bob", Password: "weir"}, want: http.StatusOK},
		{name: "duplicate", body: api.AuthRequest{Username: "bob", Password: "weir"}, want: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/register", tt.body, nil)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/register", api.AuthRequest{Username: "phil", Password: "boxofrain"}, nil)

	tests := []struct {
		name string
		body api.AuthRequest
		want int
	}{
		{name: "valid", body: api.AuthRequest{Username: "phil", Password: "boxofrain"}, want: http.StatusOK},
		{name: "wrong password", body: api.AuthRequest{Username: "phil", Password: "wrong"}, want: http.StatusUnauthorized},
		{name: "unknown user", body: api.AuthRequest{Username: "nobody", Password: "x"}, want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/login", tt.body, nil)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/register", api.AuthRequest{Username: "pig", Password: "pen"}, nil)
	cookie := sessionCookie(t, rec)

	rec = env.do(t, http.MethodPost, "/api/logout", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/me", nil, cookie)
	me := decode[api.MeResponse](t, rec)
	if me.User != nil {
		t.Errorf("me after logout = %+v, want null user", me.User)
	}
}

func TestMeSignedOut(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/me", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	me := decode[api.MeResponse](t, rec)
	if me.User != nil {
		t.Errorf("me = %+v, want null user", me.User)
	}
}

func TestSubmitScore(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/register", api.AuthRequest{Username: "mickey", Password: "drums"}, nil)
	cookie := sessionCookie(t, rec)

	tests := []struct {
		name   string
		score  int
		cookie *http.Cookie
		want   int
	}{
		{name: "signed out", score: 3, cookie: nil, want: http.StatusUnauthorized},
		{name: "negative", score: -1, cookie: cookie, want: http.StatusBadRequest},
		{name: "too large", score: 100001, cookie: cookie, want: http.StatusBadRequest},
		{name: "zero", score: 0, cookie: cookie, want: http.StatusOK},
		{name: "normal", score: 3, cookie: cookie, want: http.StatusOK},
		{name: "upper bound", score: 100000, cookie: cookie, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/score", api.ScoreRequest{Score: tt.score}, tt.cookie)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	wantAppends := []int{0, 3, 100000}
	if len(env.scores.appended) != len(wantAppends) {
		t.Fatalf("appended = %v, want %v", env.scores.appended, wantAppends)
	}
	for i, p := range wantAppends {
		if env.scores.appended[i] != p {
			t.Errorf("appended[%d] = %d, want %d", i, env.scores.appended[i], p)
		}
	}

	rec = env.do(t, http.MethodGet, "/api/me", nil, cookie)
	me := decode[api.MeResponse](t, rec)
	if me.Points != 100003 {
		t.Errorf("me points = %d, want accumulated 100003", me.Points)
	}
}

func TestSubmitScoreBadBody(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/register", api.AuthRequest{Username: "bill", Password: "drums"}, nil)
	cookie := sessionCookie(t, rec)

	req := httptest.NewRequest(http.MethodPost, "/api/score", strings.NewReader("{not json"))
	req.AddCookie(cookie)
	out := httptest.NewRecorder()
	env.router.ServeHTTP(out, req)
	if out.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", out.Code)
	}
}

func TestLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	env.scores.board = []api.LeaderboardEntry{
		{Username: "jerry", Points: 42, Games: 20},
		{Username: "bob", Points: 42, Games: 25},
	}

	rec := env.do(t, http.MethodGet, "/api/leaderboard", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decode[api.LeaderboardResponse](t, rec)
	if len(resp.Leaderboard) != 2 || resp.Leaderboard[0].Username != "jerry" {
		t.Errorf("leaderboard = %+v", resp.Leaderboard)
	}
}

func TestPing(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/_ping", nil, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
		t.Errorf("ping = %d %q, want 200 pong", rec.Code, rec.Body.String())
	}
}
