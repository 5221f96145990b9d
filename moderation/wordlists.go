package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"io/fs"
	"strings"

	"chat-hub/errors"
)

//go:embed wordlists/*
var wordlistFS embed.FS

// Wordlists holds the embedded dictionaries plus metadata for startup logs.
type Wordlists struct {
	Words     []string
	Languages []string
}

// LoadWordlists reads every embedded .txt dictionary, one word per line,
// deduplicated across languages. The filename stem names the language.
func LoadWordlists() (*Wordlists, error) {
	entries, err := fs.ReadDir(wordlistFS, "wordlists")
	if err != nil {
		return nil, err
	}

	unique := make(map[string]struct{})
	var languages []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := wordlistFS.ReadFile("wordlists/" + entry.Name())
		if err != nil {
			return nil, err
		}
		// Scanner copes with \r\n endings that sneak into word files.
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			word := strings.TrimSpace(scanner.Text())
			if word != "" {
				unique[word] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(unique) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(unique))
	for w := range unique {
		words = append(words, w)
	}
	return &Wordlists{Words: words, Languages: languages}, nil
}
