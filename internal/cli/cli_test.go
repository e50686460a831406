package cli

import (
	"bytes"
	"fmt"
	"io"
	"testing"
	"time"
)

func TestSplitTags(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"work", 1},
		{" work , sleep ,,", 2},
	}
	for _, tt := range tests {
		if got := splitTags(tt.in); len(got) != tt.want {
			t.Errorf("splitTags(%q) = %v, want %d tags", tt.in, got, tt.want)
		}
	}
}

func TestParseTime(t *testing.T) {
	got, err := parseTime("2026-03-02")
	if err != nil {
		t.Fatalf("parseTime: %v", err)
	}
	if want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	got, err = parseTime("2026-03-02T10:00:00+02:00")
	if err != nil {
		t.Fatalf("parseTime: %v", err)
	}
	if got.Hour() != 8 || got.Location() != time.UTC {
		t.Errorf("expected UTC 08:00, got %v", got)
	}

	if _, err := parseTime("yesterday"); err == nil {
		t.Error("expected error for unparseable time")
	}
}

func TestWriteOut(t *testing.T) {
	v := map[string]int{"sessions": 3}
	text := func(w io.Writer) { fmt.Fprintln(w, "three sessions") }

	tests := []struct {
		format string
		text   func(io.Writer)
		want   string
	}{
		{formatJSON, text, "{\n  \"sessions\": 3\n}\n"},
		{formatYAML, text, "sessions: 3\n"},
		{formatText, text, "three sessions\n"},
		{formatText, nil, "{\n  \"sessions\": 3\n}\n"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := writeOut(&buf, tt.format, v, tt.text); err != nil {
			t.Fatalf("%s: %v", tt.format, err)
		}
		if buf.String() != tt.want {
			t.Errorf("%s: got %q, want %q", tt.format, buf.String(), tt.want)
		}
	}
}
