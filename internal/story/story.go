// Package story renders an illustrated story file into narrated page
// audio and a slideshow video.
package story

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoPages is returned when a story file contains no pages.
var ErrNoPages = errors.New("story has no pages")

// Page is one illustrated page: a still image and the text narrated
// over it.
type Page struct {
	Image string `json:"image"`
	Text  string `json:"text"`
}

// Story is the decoded story file.
type Story struct {
	Title    string `json:"title"`
	Language string `json:"language"`
	Pages    []Page `json:"pages"`
}

// Load reads and validates a story file. Relative image paths resolve
// against the story file's directory, and a missing language defaults
// to English.
func Load(path string) (*Story, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read story: %w", err)
	}

	var s Story
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse story %s: %w", filepath.Base(path), err)
	}

	if len(s.Pages) == 0 {
		return nil, ErrNoPages
	}
	if s.Language == "" {
		s.Language = "en"
	}

	dir := filepath.Dir(path)
	for i := range s.Pages {
		p := &s.Pages[i]
		if strings.TrimSpace(p.Text) == "" {
			return nil, fmt.Errorf("page %d: empty text", i+1)
		}
		if p.Image == "" {
			return nil, fmt.Errorf("page %d: missing image", i+1)
		}
		if !filepath.IsAbs(p.Image) {
			p.Image = filepath.Join(dir, p.Image)
		}
		if _, err := os.Stat(p.Image); err != nil {
			return nil, fmt.Errorf("page %d: image %s: %w", i+1, filepath.Base(p.Image), err)
		}
	}

	return &s, nil
}
