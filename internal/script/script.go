// Package script reads command scripts: an optional YAML frontmatter header
// followed by one utterance per line.
//
//	---
//	app: app_1234
//	activePage: home
//	---
//	# lines starting with # are comments
//	add page Pricing
//	rename page Pricing to Plans
package script

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Header is the frontmatter of a script. App targets an existing blueprint;
// when empty, Name is used to create a new one.
type Header struct {
	App        string `yaml:"app"`
	Name       string `yaml:"name"`
	ActivePage string `yaml:"activePage"`
}

// Line is one utterance with its 1-based line number in the source.
type Line struct {
	Number int
	Text   string
}

// Script is a parsed command script.
type Script struct {
	Header Header
	Lines  []Line
}

// Texts returns the utterances in order.
func (s *Script) Texts() []string {
	out := make([]string, len(s.Lines))
	for i, l := range s.Lines {
		out[i] = l.Text
	}
	return out
}

const delim = "---"

// Parse splits data into header and utterances. Blank lines and # comments
// are skipped.
func Parse(data []byte) (*Script, error) {
	header, body, offset, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	s := &Script{Header: header}
	sc := bufio.NewScanner(bytes.NewReader(body))
	n := offset
	for sc.Scan() {
		n++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		s.Lines = append(s.Lines, Line{Number: n, Text: text})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("script: read: %w", err)
	}
	return s, nil
}

// splitFrontmatter separates the YAML header between leading --- lines from
// the body. offset is the number of lines consumed before the body.
func splitFrontmatter(data []byte) (Header, []byte, int, error) {
	var h Header
	if !bytes.HasPrefix(data, []byte(delim)) {
		return h, data, 0, nil
	}

	lines := bytes.SplitAfter(data, []byte("\n"))
	if strings.TrimSpace(string(lines[0])) != delim {
		return h, data, 0, nil
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(string(lines[i])) != delim {
			continue
		}
		block := bytes.Join(lines[1:i], nil)
		dec := yaml.NewDecoder(bytes.NewReader(block))
		dec.KnownFields(true)
		if err := dec.Decode(&h); err != nil && len(bytes.TrimSpace(block)) > 0 {
			return Header{}, nil, 0, fmt.Errorf("script: frontmatter: %w", err)
		}
		return h, bytes.Join(lines[i+1:], nil), i + 1, nil
	}
	return h, nil, 0, fmt.Errorf("script: frontmatter: missing closing %q", delim)
}
