// Package picker implements clip selection: it turns a year range into a
// single playable track with show metadata.
package picker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/yearjam/yearjam/internal/api"
	"github.com/yearjam/yearjam/internal/archive"
)

// Sentinel errors.
var (
	// ErrNoShows is returned when the sampled year has no shows.
	ErrNoShows = errors.New("no shows found")

	// ErrNoPlayableTrack is returned when the chosen show has no playable audio.
	ErrNoPlayableTrack = errors.New("no playable track")
)

// MinLongTrackSeconds is the duration threshold for the preferred track
// pool. Tracks at or above it are sampled first; shorter ones only when no
// long track exists.
const MinLongTrackSeconds = 180

// Catalog is the read interface the picker needs from the clip catalog.
type Catalog interface {
	SearchShows(ctx context.Context, year int) ([]archive.ShowDoc, error)
	GetItem(ctx context.Context, identifier string) (*archive.Item, error)
	DownloadURL(identifier, filename string) string
}

// Option configures a Picker.
type Option func(*Picker)

// WithRand replaces the random source. Used by tests for determinism.
func WithRand(intN func(n int) int) Option {
	return func(p *Picker) { p.intN = intN }
}

// WithMinLongSeconds overrides the long-track preference threshold.
func WithMinLongSeconds(seconds float64) Option {
	return func(p *Picker) { p.minLong = seconds }
}

// Picker selects clips from a catalog within a fixed valid year range.
type Picker struct {
	catalog Catalog
	minYear int
	maxYear int
	minLong float64
	intN    func(n int) int
}

// New creates a Picker over the given catalog and valid year range.
func New(catalog Catalog, minYear, maxYear int, opts ...Option) *Picker {
	p := &Picker{
		catalog: catalog,
		minYear: minYear,
		maxYear: maxYear,
		minLong: MinLongTrackSeconds,
		intN:    rand.Intn,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SelectClip samples a year uniformly from [start,end], a show uniformly
// within that year, and a track within that show, preferring tracks of at
// least MinLongTrackSeconds. Years are sampled uniformly regardless of how
// many shows each has, so heavily documented years do not dominate.
//
// Bounds are clamped to the picker's valid range first; inverted bounds are
// swapped. Failures are not retried here.
func (p *Picker) SelectClip(ctx context.Context, start, end int) (*api.Clip, error) {
	start, end = p.clampRange(start, end)

	year := start + p.intN(end-start+1)

	docs, err := p.catalog.SearchShows(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("searching year %d: %w", year, err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w in %d", ErrNoShows, year)
	}
	doc := docs[p.intN(len(docs))]

	item, err := p.catalog.GetItem(ctx, doc.Identifier)
	if err != nil {
		return nil, fmt.Errorf("fetching show %s: %w", doc.Identifier, err)
	}

	chosen, err := p.chooseTrack(item.Files)
	if err != nil {
		return nil, fmt.Errorf("show %s: %w", doc.Identifier, err)
	}

	return p.buildClip(doc, item, chosen), nil
}

// clampRange limits the requested bounds to the valid catalog range and
// swaps them if inverted.
func (p *Picker) clampRange(start, end int) (int, int) {
	if start < p.minYear || start > p.maxYear {
		start = p.minYear
	}
	if end < p.minYear || end > p.maxYear {
		end = p.maxYear
	}
	if start > end {
		start, end = end, start
	}
	return start, end
}

// chooseTrack filters the file list to MP3s and samples one, from the long
// pool when possible.
func (p *Picker) chooseTrack(files []archive.FileEntry) (archive.FileEntry, error) {
	var mp3s []archive.FileEntry
	for _, f := range files {
		if f.IsMP3() {
			mp3s = append(mp3s, f)
		}
	}
	if len(mp3s) == 0 {
		return archive.FileEntry{}, ErrNoPlayableTrack
	}

	var long []archive.FileEntry
	for _, f := range mp3s {
		if sec, ok := f.Seconds(); ok && sec >= p.minLong {
			long = append(long, f)
		}
	}

	pool := long
	if len(pool) == 0 {
		pool = mp3s
	}
	return pool[p.intN(len(pool))], nil
}

// buildClip assembles the response, preferring authoritative item metadata
// over the coarser search-index fields.
func (p *Picker) buildClip(doc archive.ShowDoc, item *archive.Item, file archive.FileEntry) *api.Clip {
	return &api.Clip{
		Identifier: doc.Identifier,
		Date:       firstNonEmpty(item.Metadata.Date, doc.Date),
		Title:      firstNonEmpty(item.Metadata.Title, doc.Title),
		Venue:      firstNonEmpty(item.Metadata.Venue, doc.Venue),
		Location:   firstNonEmpty(item.Metadata.Location, doc.Location),
		File: api.ClipFile{
			Name:   file.Name,
			Title:  file.Title,
			Length: file.Length.String(),
		},
		URL: p.catalog.DownloadURL(doc.Identifier, file.Name),
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
