// Package segment splits long session text into embedding-sized pieces.
package segment

import (
	"strings"
)

// DefaultMaxChars keeps segments well inside common embedding input limits.
const DefaultMaxChars = 1200

// Split breaks text into segments of at most maxChars, preferring paragraph
// boundaries, then sentence boundaries, then whitespace. Short text returns a
// single segment; blank text returns nil.
func Split(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= maxChars {
		return []string{text}
	}

	var pieces []string
	for _, para := range paragraphs(text) {
		if len(para) <= maxChars {
			pieces = append(pieces, para)
			continue
		}
		for _, sent := range sentences(para) {
			if len(sent) <= maxChars {
				pieces = append(pieces, sent)
				continue
			}
			pieces = append(pieces, hardSplit(sent, maxChars)...)
		}
	}

	return pack(pieces, maxChars)
}

// paragraphs splits on blank lines.
func paragraphs(text string) []string {
	var out []string
	var current []string
	flush := func() {
		p := strings.TrimSpace(strings.Join(current, "\n"))
		if p != "" {
			out = append(out, p)
		}
		current = nil
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return out
}

// sentences splits after '.', '!' or '?' followed by whitespace.
func sentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 == len(text) || text[i+1] == ' ' || text[i+1] == '\n' {
				if s := strings.TrimSpace(text[start : i+1]); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// hardSplit breaks text on whitespace so no piece exceeds maxChars. A single
// word longer than maxChars is cut at byte boundaries.
func hardSplit(text string, maxChars int) []string {
	var out []string
	var b strings.Builder
	for _, word := range strings.Fields(text) {
		for len(word) > maxChars {
			if b.Len() > 0 {
				out = append(out, b.String())
				b.Reset()
			}
			out = append(out, word[:maxChars])
			word = word[maxChars:]
		}
		if b.Len() > 0 && b.Len()+1+len(word) > maxChars {
			out = append(out, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(word)
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}

// pack greedily merges adjacent pieces while they fit.
func pack(pieces []string, maxChars int) []string {
	var out []string
	current := ""
	for _, p := range pieces {
		if current == "" {
			current = p
			continue
		}
		if len(current)+1+len(p) <= maxChars {
			current += " " + p
			continue
		}
		out = append(out, current)
		current = p
	}
	if current != "" {
		out = append(out, current)
	}
	return out
}
