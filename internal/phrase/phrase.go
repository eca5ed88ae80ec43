// Package phrase provides the PhraseSource collaborator: a pure, random
// phrase-per-difficulty provider. It is grounded on codejam's
// models/phrase_generator.py, which reads newline-delimited dictionaries
// off disk by difficulty name; spec.md section 1 treats the dictionary
// files themselves as an opaque, out-of-scope collaborator, so this
// package only needs to know how to load and sample them.
package phrase

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

// Difficulty is one of the three phrase dictionaries a Game can be
// configured with.
type Difficulty string

const (
	Easy   Difficulty = "EASY"
	Medium Difficulty = "MEDIUM"
	Hard   Difficulty = "HARD"
)

// ValidDifficulty reports whether d is one of the three known difficulties.
func ValidDifficulty(d Difficulty) bool {
	switch d {
	case Easy, Medium, Hard:
		return true
	default:
		return false
	}
}

// ConfigError is raised at startup when a requested dictionary is missing
// or empty; per spec.md section 4.1 this is fatal, since the server cannot
// run a game for a difficulty it can never produce a phrase for.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return e.Reason }

// Source draws a random phrase for a difficulty. Rand is injectable so
// tests can pin the selection (spec.md section 9's "inject a random
// source" note).
type Source struct {
	dictionaries map[Difficulty][]string
	Rand         *rand.Rand
}

// NewSource loads one dictionary file per difficulty from dir, named
// easy.txt, medium.txt and hard.txt (lowercase difficulty + ".txt"),
// one phrase per line, blank lines ignored.
func NewSource(dir string) (*Source, error) {
	s := &Source{
		dictionaries: make(map[Difficulty][]string, 3),
		Rand:         rand.New(rand.NewSource(rand.Int63())),
	}

	for _, d := range []Difficulty{Easy, Medium, Hard} {
		phrases, err := readDictionary(dir, d)
		if err != nil {
			return nil, err
		}
		if len(phrases) == 0 {
			return nil, &ConfigError{Reason: fmt.Sprintf("phrase dictionary for %s is empty", d)}
		}
		s.dictionaries[d] = phrases
	}

	return s, nil
}

// NewSourceFromDictionaries builds a Source directly from in-memory
// dictionaries, for tests and for embedding a default word list without
// touching the filesystem.
func NewSourceFromDictionaries(dictionaries map[Difficulty][]string) (*Source, error) {
	s := &Source{
		dictionaries: make(map[Difficulty][]string, len(dictionaries)),
		Rand:         rand.New(rand.NewSource(rand.Int63())),
	}
	for d, phrases := range dictionaries {
		if len(phrases) == 0 {
			return nil, &ConfigError{Reason: fmt.Sprintf("phrase dictionary for %s is empty", d)}
		}
		s.dictionaries[d] = append([]string(nil), phrases...)
	}
	return s, nil
}

func readDictionary(dir string, d Difficulty) ([]string, error) {
	path := filepath.Join(dir, strings.ToLower(string(d))+".txt")

	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("cannot open phrase dictionary %q: %v", path, err)}
	}
	defer f.Close()

	var phrases []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		phrases = append(phrases, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ConfigError{Reason: fmt.Sprintf("cannot read phrase dictionary %q: %v", path, err)}
	}

	return phrases, nil
}

// Phrase returns a phrase chosen uniformly at random from difficulty's
// dictionary, falling back to MEDIUM if difficulty is unrecognized.
func (s *Source) Phrase(difficulty Difficulty) string {
	phrases, ok := s.dictionaries[difficulty]
	if !ok {
		phrases = s.dictionaries[Medium]
	}
	return phrases[s.Rand.Intn(len(phrases))]
}
