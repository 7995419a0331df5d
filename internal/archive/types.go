package archive

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ShowDoc is one search result row from the advancedsearch endpoint. The
// fields are the coarse, search-index copies; GetItem returns the
// authoritative versions.
type ShowDoc struct {
	Identifier string `json:"identifier"`
	Date       string `json:"date"`
	Title      string `json:"title"`
	Venue      string `json:"venue"`
	Location   string `json:"location"`
}

// searchResponse is the JSON envelope of the advancedsearch endpoint.
type searchResponse struct {
	Response struct {
		NumFound int       `json:"numFound"`
		Docs     []ShowDoc `json:"docs"`
	} `json:"response"`
}

// ItemMeta is the authoritative per-item metadata block.
type ItemMeta struct {
	Identifier string `json:"identifier"`
	Date       string `json:"date"`
	Title      string `json:"title"`
	Venue      string `json:"venue"`
	Location   string `json:"location"`
}

// FileEntry is one file belonging to an item. Length is free text: the
// catalog serves plain seconds ("245.32"), MM:SS, H:MM:SS, and occasionally
// a bare JSON number.
type FileEntry struct {
	Name   string     `json:"name"`
	Title  string     `json:"title"`
	Length FlexLength `json:"length"`
	Format string     `json:"format"`
}

// Item is the authoritative metadata + file list for one show.
type Item struct {
	Metadata ItemMeta    `json:"metadata"`
	Files    []FileEntry `json:"files"`
}

// FlexLength holds a duration field that may arrive as a JSON string or
// number. The raw text is preserved for display.
type FlexLength string

// UnmarshalJSON accepts both string and numeric encodings.
func (l *FlexLength) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = FlexLength(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*l = FlexLength(n.String())
	return nil
}

func (l FlexLength) String() string { return string(l) }

// ParseLength converts a free-text duration to seconds. Supported forms are
// plain seconds ("245" or "245.32"), MM:SS, and H:MM:SS. The second return
// is false when the text is empty or unparseable; an unknown length is never
// reported as zero.
func ParseLength(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if sec, err := strconv.ParseFloat(s, 64); err == nil {
		return sec, true
	}
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, false
	}
	var total float64
	for _, p := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0, false
		}
		total = total*60 + n
	}
	return total, true
}

// Seconds parses the length field. ok is false for unknown durations.
func (f FileEntry) Seconds() (float64, bool) {
	return ParseLength(string(f.Length))
}

// IsMP3 reports whether the file is a playable MP3 by name.
func (f FileEntry) IsMP3() bool {
	return strings.HasSuffix(strings.ToLower(f.Name), ".mp3")
}
