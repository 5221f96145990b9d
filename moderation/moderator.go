// Package moderation censors public message bodies before they are stored
// and broadcast. Matching is resistant to basic obfuscation: case changes,
// accents stripped by normalization upstream of the automaton, leet speak
// substitutions and punctuation padding inside a word.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	machine     *goahocorasick.Machine
	replacement rune
}

// mapping ties each rune of the normalized text back to its position in the
// original string, so a match found on the normalized form can star out the
// exact original characters, punctuation included.
type mapping struct {
	normalized []rune
	origIdx    []int
}

// NewModerator builds the Aho-Corasick automaton from the word list. Words
// are normalized the same way inbound text is, so "B.4.D" still matches
// "bad".
func NewModerator(words []string, replacement rune) (*Moderator, error) {
	patterns := make([][]rune, len(words))
	for i, w := range words {
		patterns[i] = normalize(w).normalized
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{machine: machine, replacement: replacement}, nil
}

// Censor replaces every matched span with the replacement rune, covering the
// noise characters inside the span so "b-a-d" becomes "*****".
func (m *Moderator) Censor(text string) string {
	mapped := normalize(text)
	if len(mapped.normalized) == 0 {
		return text
	}

	spans := m.machine.MultiPatternSearch(mapped.normalized, false)
	if len(spans) == 0 {
		return text
	}

	runes := []rune(text)
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(mapped.origIdx) {
			continue
		}
		// Star out everything between the first and last matched original
		// rune, inclusive.
		for i := mapped.origIdx[start]; i <= mapped.origIdx[end-1]; i++ {
			runes[i] = m.replacement
		}
	}
	return string(runes)
}

func normalize(text string) mapping {
	orig := []rune(text)
	out := mapping{
		normalized: make([]rune, 0, len(orig)),
		origIdx:    make([]int, 0, len(orig)),
	}
	for i, r := range orig {
		r = deleet(r)
		if isNoise(r) {
			continue
		}
		out.normalized = append(out.normalized, unicode.ToLower(r))
		out.origIdx = append(out.origIdx, i)
	}
	return out
}

// deleet maps common leet speak substitutions back to letters.
func deleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}

// Passthrough satisfies the censor contract without altering anything.
// Used when moderation is disabled and in tests that assert on raw bodies.
type Passthrough struct{}

func (Passthrough) Censor(text string) string { return text }
