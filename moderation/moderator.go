package moderation

import (
	"log/slog"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator masks forbidden words in message bodies before they are
// stored or broadcast. Matching runs on a normalized view of the text
// (lowercased, leet speak folded, punctuation and spacing stripped) so
// that "B.4.d word" variants cannot slip through, while the masking is
// applied to the original runes to preserve layout.
type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
	log         *slog.Logger
}

// NewModerator builds the Aho-Corasick automaton from the dictionary.
// An empty dictionary yields a pass-through moderator.
func NewModerator(censoredWords []string, replacement rune, log *slog.Logger) (Moderator, error) {
	if len(censoredWords) == 0 {
		return Moderator{replacement: replacement, log: log}, nil
	}

	patterns := make([][]rune, len(censoredWords))
	for i, word := range censoredWords {
		patterns[i] = foldRunes([]rune(word))
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return Moderator{}, err
	}
	return Moderator{matcher: m, replacement: replacement, log: log}, nil
}

// Censor returns the masked text plus the normalized words that were hit.
func (m *Moderator) Censor(original string) (string, []string) {
	if m.matcher == nil {
		return original, nil
	}

	normalized, originIdx := m.fold(original)
	if len(normalized) == 0 {
		return original, nil
	}

	spans := m.matcher.MultiPatternSearch(normalized, false)
	if len(spans) == 0 {
		return original, nil
	}

	origRunes := []rune(original)
	var hits []string
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(originIdx) {
			continue
		}
		hits = append(hits, string(span.Word))

		// Mask every original rune between the first and the last rune
		// that contributed to the normalized match, noise included.
		for i := originIdx[start]; i <= originIdx[end-1]; i++ {
			origRunes[i] = m.replacement
		}
	}

	m.log.Debug("Censored message content", "hits", len(hits))
	return string(origRunes), hits
}

// fold builds the normalized rune stream and, for each normalized rune,
// the index of the original rune it came from.
func (m *Moderator) fold(input string) ([]rune, []int) {
	origRunes := []rune(input)
	normalized := make([]rune, 0, len(origRunes))
	originIdx := make([]int, 0, len(origRunes))

	for i, r := range origRunes {
		folded := foldLeet(r)
		if isNoise(folded) {
			continue
		}
		normalized = append(normalized, unicode.ToLower(folded))
		originIdx = append(originIdx, i)
	}
	return normalized, originIdx
}

func foldRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		folded := foldLeet(r)
		if isNoise(folded) {
			continue
		}
		out = append(out, unicode.ToLower(folded))
	}
	return out
}

// foldLeet maps common leet speak characters back to their standard
// alphabet counterparts.
func foldLeet(r rune) rune {
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
