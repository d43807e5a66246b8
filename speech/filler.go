// Package speech derives behavioral metrics from a session transcript.
package speech

import (
	"sort"
	"strings"
	"unicode"
)

// DefaultFillerWords is the filler vocabulary used when none is configured.
var DefaultFillerWords = []string{"um", "uh", "like", "you know", "actually", "basically", "literally"}

// FillerMatcher counts filler words in free text.
//
// Tokens are whitespace separated, stripped of non-letters and lowercased.
// With phrase matching disabled only single-token entries can ever match, so
// "you know" is never counted; that mode reproduces the legacy counts.
type FillerMatcher struct {
	words   map[string]struct{}
	phrases [][]string
}

// NewFillerMatcher builds a matcher for fillers. Multi-word entries are matched
// as consecutive tokens only when matchPhrases is set.
func NewFillerMatcher(fillers []string, matchPhrases bool) *FillerMatcher {
	f := &FillerMatcher{words: make(map[string]struct{}, len(fillers))}
	for _, entry := range fillers {
		tokens := Tokenize(entry)
		switch {
		case len(tokens) == 1:
			f.words[tokens[0]] = struct{}{}
		case len(tokens) > 1 && matchPhrases:
			f.phrases = append(f.phrases, tokens)
		}
	}
	// longest phrase wins at a position
	sort.SliceStable(f.phrases, func(i, j int) bool {
		return len(f.phrases[i]) > len(f.phrases[j])
	})
	return f
}

// Count returns the number of filler occurrences in text. A matched phrase
// consumes its tokens, so "you know like" counts two.
func (f *FillerMatcher) Count(text string) int {
	tokens := Tokenize(text)
	count := 0
	for i := 0; i < len(tokens); {
		if n := f.phraseAt(tokens, i); n > 0 {
			count++
			i += n
			continue
		}
		if _, ok := f.words[tokens[i]]; ok {
			count++
		}
		i++
	}
	return count
}

func (f *FillerMatcher) phraseAt(tokens []string, i int) int {
	for _, phrase := range f.phrases {
		if i+len(phrase) > len(tokens) {
			continue
		}
		matched := true
		for k, word := range phrase {
			if tokens[i+k] != word {
				matched = false
				break
			}
		}
		if matched {
			return len(phrase)
		}
	}
	return 0
}

// Tokenize splits text on whitespace, strips every non-letter rune and
// lowercases the rest. Tokens left empty are dropped.
func Tokenize(text string) []string {
	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		cleaned := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, field)
		if cleaned != "" {
			tokens = append(tokens, cleaned)
		}
	}
	return tokens
}

// WordCount counts whitespace separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
