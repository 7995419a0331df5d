package archive

import (
	"encoding/json"
	"testing"
)

func TestParseLength(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantOK  bool
	}{
		{name: "plain seconds", input: "245", want: 245, wantOK: true},
		{name: "fractional seconds", input: "245.32", want: 245.32, wantOK: true},
		{name: "minutes and seconds", input: "4:05", want: 245, wantOK: true},
		{name: "hours minutes seconds", input: "1:02:03", want: 3723, wantOK: true},
		{name: "whitespace", input: " 3:00 ", want: 180, wantOK: true},
		{name: "empty", input: "", wantOK: false},
		{name: "free text", input: "about four minutes", wantOK: false},
		{name: "partial garbage", input: "4:xx", wantOK: false},
		{name: "too many parts", input: "1:2:3:4", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLength(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseLength(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseLength(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFlexLengthUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "string", input: `{"length":"4:05"}`, want: "4:05"},
		{name: "number", input: `{"length":245.32}`, want: "245.32"},
		{name: "integer", input: `{"length":245}`, want: "245"},
		{name: "missing", input: `{}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FileEntry
			if err := json.Unmarshal([]byte(tt.input), &f); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if f.Length.String() != tt.want {
				t.Errorf("length = %q, want %q", f.Length.String(), tt.want)
			}
		})
	}
}

func TestFileEntryIsMP3(t *testing.T) {
	tests := []struct {
		name string
		file string
		want bool
	}{
		{name: "lowercase", file: "track01.mp3", want: true},
		{name: "uppercase", file: "TRACK01.MP3", want: true},
		{name: "flac", file: "track01.flac", want: false},
		{name: "derivative text", file: "item_meta.xml", want: false},
		{name: "empty", file: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := FileEntry{Name: tt.file}
			if got := f.IsMP3(); got != tt.want {
				t.Errorf("IsMP3(%q) = %v, want %v", tt.file, got, tt.want)
			}
		})
	}
}
