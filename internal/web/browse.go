package web

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yearjam/yearjam/internal/archive"
)

const searchRows = 200

// showRow is one row of a browse listing.
type showRow struct {
	Date  string
	Title string
	Venue string
}

// browsePageData feeds the year and search templates.
type browsePageData struct {
	Heading string
	Query   string
	Shows   []showRow
}

// Home handles GET /: leaderboard plus pointers at the browse pages.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	entries, err := h.scores.Leaderboard(r.Context(), h.leaderboardLimit)
	if err != nil {
		h.logger.Error("leaderboard query failed", slog.Any("err", err))
		entries = nil
	}

	data := struct {
		YearStart   int
		YearEnd     int
		Leaderboard []leaderboardRow
	}{
		YearStart: h.yearStart,
		YearEnd:   h.yearEnd,
	}
	for i, e := range entries {
		data.Leaderboard = append(data.Leaderboard, leaderboardRow{
			Rank:     i + 1,
			Username: e.Username,
			Points:   e.Points,
			Games:    e.Games,
		})
	}

	h.renderPage(w, "home", data)
}

type leaderboardRow struct {
	Rank     int
	Username string
	Points   int
	Games    int
}

// YearPage handles GET /year/{year}: all shows of one year.
func (h *Handlers) YearPage(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		http.Error(w, "Invalid year", http.StatusBadRequest)
		return
	}

	docs, err := h.catalog.SearchShows(r.Context(), year)
	if err != nil {
		h.logger.Error("year browse failed", slog.Int("year", year), slog.Any("err", err))
		http.Error(w, "Error fetching shows", http.StatusInternalServerError)
		return
	}

	h.renderPage(w, "browse", browsePageData{
		Heading: "Shows in " + strconv.Itoa(year),
		Shows:   showRows(docs),
	})
}

// SearchPage handles GET /search?q=: free-text show search.
func (h *Handlers) SearchPage(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("q"))

	docs, err := h.catalog.SearchText(r.Context(), term, searchRows)
	if err != nil {
		h.logger.Error("search browse failed", slog.String("q", term), slog.Any("err", err))
		http.Error(w, "Error fetching shows", http.StatusInternalServerError)
		return
	}

	heading := "All shows"
	if term != "" {
		heading = "Search results for " + strconv.Quote(term)
	}
	h.renderPage(w, "browse", browsePageData{
		Heading: heading,
		Query:   term,
		Shows:   showRows(docs),
	})
}

func showRows(docs []archive.ShowDoc) []showRow {
	rows := make([]showRow, 0, len(docs))
	for _, d := range docs {
		date, _, _ := strings.Cut(d.Date, "T")
		rows = append(rows, showRow{Date: date, Title: d.Title, Venue: d.Venue})
	}
	return rows
}

func (h *Handlers) renderPage(w http.ResponseWriter, page string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Render(w, page, data); err != nil {
		h.logger.Error("rendering template failed", slog.String("page", page), slog.Any("err", err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}
