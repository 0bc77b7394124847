// Package lexicon splits identifiers and paths into the word tokens that
// become word nodes of the foraging graph.
package lexicon

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

// Tokenizer turns text into lowercase word tokens. The zero value has an
// empty stop-word set and is ready to use.
type Tokenizer struct {
	stopWords map[string]struct{}
}

// NewTokenizer creates a tokenizer that drops the given stop words.
// Stop words are matched case-insensitively.
func NewTokenizer(stopWords []string) *Tokenizer {
	set := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return &Tokenizer{stopWords: set}
}

// LoadStopWords reads one stop word per line. Blank lines and lines starting
// with '#' are ignored.
func LoadStopWords(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening stop words: %w", err)
	}
	defer f.Close()

	return ReadStopWords(f)
}

// ReadStopWords parses a stop-word list from r.
func ReadStopWords(r io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stop words: %w", err)
	}
	return words, nil
}

// IsStopWord reports whether word (in any case) is a stop word.
func (t *Tokenizer) IsStopWord(word string) bool {
	if t == nil || t.stopWords == nil {
		return false
	}
	_, ok := t.stopWords[strings.ToLower(word)]
	return ok
}

// SplitVerbatim splits text on every run of non-alphanumeric characters and
// lowercases the pieces. Empty pieces and stop words are dropped; nothing is
// stemmed.
func (t *Tokenizer) SplitVerbatim(text string) []string {
	fields := strings.FieldsFunc(text, isBoundary)

	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.ToLower(f)
		if t.IsStopWord(w) {
			continue
		}
		words = append(words, w)
	}
	return words
}

// SplitCamelStem splits text like SplitVerbatim and additionally on
// camel-case and letter/digit boundaries, then stems each piece.
//
//	"HelloWorld.java {{RSSOwl_AtomFeedLoader}}"
//	-> hello world java rss owl atom feed loader (stemmed)
func (t *Tokenizer) SplitCamelStem(text string) []string {
	var words []string
	for _, field := range strings.FieldsFunc(text, isBoundary) {
		for _, part := range splitCamel(field) {
			if t.IsStopWord(part) {
				continue
			}
			words = append(words, Stem(part))
		}
	}
	return words
}

// Stem reduces a single word to its lowercase English root.
func Stem(word string) string {
	return english.Stem(strings.ToLower(word), true)
}

func isBoundary(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// splitCamel breaks an alphanumeric run at lower->Upper, UPPER->Upper-lower
// and letter<->digit transitions.
func splitCamel(s string) []string {
	runes := []rune(s)
	if len(runes) == 0 {
		return nil
	}

	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		split := false
		switch {
		case unicode.IsLower(prev) && unicode.IsUpper(cur):
			split = true
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) &&
			i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			split = true
		case unicode.IsLetter(prev) && unicode.IsDigit(cur):
			split = true
		case unicode.IsDigit(prev) && unicode.IsLetter(cur):
			split = true
		}
		if split {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	return append(parts, string(runes[start:]))
}
