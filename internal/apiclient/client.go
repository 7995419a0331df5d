// Package apiclient is the Go client for the yearjam server API, used by
// the terminal game client.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"github.com/yearjam/yearjam/internal/api"
)

// Sentinel errors.
var (
	// ErrUnauthorized is returned for requests that need a session when none
	// is active, and for rejected credentials.
	ErrUnauthorized = errors.New("unauthorized")
)

// Client talks to the game server. The cookie jar carries the session.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the server at baseURL (e.g.
// "http://127.0.0.1:3000").
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: 30 * time.Second,
		},
	}, nil
}

// RandomClip fetches a clip for a new round.
func (c *Client) RandomClip(ctx context.Context, start, end int) (*api.Clip, error) {
	q := url.Values{}
	if start > 0 {
		q.Set("start", strconv.Itoa(start))
	}
	if end > 0 {
		q.Set("end", strconv.Itoa(end))
	}
	path := "/api/random-clip"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var clip api.Clip
	if err := c.get(ctx, path, &clip); err != nil {
		return nil, err
	}
	return &clip, nil
}

// Show fetches authoritative metadata and the track list for one show.
func (c *Client) Show(ctx context.Context, identifier string) (*api.Show, error) {
	var show api.Show
	if err := c.get(ctx, "/api/show/"+url.PathEscape(identifier), &show); err != nil {
		return nil, err
	}
	return &show, nil
}

// Leaderboard fetches the ranked top players.
func (c *Client) Leaderboard(ctx context.Context) ([]api.LeaderboardEntry, error) {
	var resp api.LeaderboardResponse
	if err := c.get(ctx, "/api/leaderboard", &resp); err != nil {
		return nil, err
	}
	return resp.Leaderboard, nil
}

// Register creates an account and signs in.
func (c *Client) Register(ctx context.Context, username, password string) (*api.User, error) {
	return c.auth(ctx, "/api/register", username, password)
}

// Login signs in. Returns ErrUnauthorized on bad credentials.
func (c *Client) Login(ctx context.Context, username, password string) (*api.User, error) {
	return c.auth(ctx, "/api/login", username, password)
}

func (c *Client) auth(ctx context.Context, path, username, password string) (*api.User, error) {
	var resp api.AuthResponse
	err := c.post(ctx, path, api.AuthRequest{Username: username, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Me returns the signed-in user, nil when signed out.
func (c *Client) Me(ctx context.Context) (*api.User, error) {
	var resp api.MeResponse
	if err := c.get(ctx, "/api/me", &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, "/api/logout", struct{}{}, &api.OKResponse{})
}

// SubmitScore records points for the signed-in user.
func (c *Client) SubmitScore(ctx context.Context, score int) error {
	return c.post(ctx, "/api/score", api.ScoreRequest{Score: score}, &api.OKResponse{})
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server: %s", apiErr.Error)
		}
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}
