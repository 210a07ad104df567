// Package composepatch adds an environment variable to a compose file once.
package composepatch

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrAnchorNotFound = errors.New("anchor line not found")
	ErrEmptyKey       = errors.New("patch key is required")
	ErrNotApplied     = errors.New("patched content does not define the key")
)

// Patch inserts Key=Value after the service environment entry containing
// Anchor unless Key is already defined. Marker is the substring that proves the key is present
// when the file cannot be parsed; it defaults to Key.
type Patch struct {
	Anchor string
	Key    string
	Value  string
	Marker string
}

func (p Patch) marker() string {
	if p.Marker != "" {
		return p.Marker
	}

	return p.Key
}

type composeFile struct {
	Services map[string]struct {
		Environment yaml.Node `yaml:"environment"`
	} `yaml:"services"`
}

// Defined reports whether the key is already set in content. Every service
// environment block is searched in both list and map form. Content that is
// not a compose file is searched for the marker instead.
func Defined(content []byte, p Patch) bool {
	compose, ok := parse(content)
	if !ok {
		return bytes.Contains(content, []byte(p.marker()))
	}

	for _, service := range compose.Services {
		if environmentDefines(&service.Environment, p.Key) {
			return true
		}
	}

	return false
}

func parse(content []byte) (composeFile, bool) {
	var compose composeFile
	if err := yaml.Unmarshal(content, &compose); err != nil || len(compose.Services) == 0 {
		return composeFile{}, false
	}

	return compose, true
}

// anchorLine returns the zero-based line of the first environment entry
// whose name contains the anchor. Unparseable content is scanned as text.
func anchorLine(content []byte, lines []string, anchor string) int {
	if anchor == "" {
		return -1
	}

	compose, ok := parse(content)
	if !ok {
		for i, line := range lines {
			if strings.Contains(line, anchor) {
				return i
			}
		}

		return -1
	}

	found := -1
	for _, service := range compose.Services {
		line := environmentLine(&service.Environment, anchor)
		if line >= 0 && (found < 0 || line < found) {
			found = line
		}
	}

	return found
}

func environmentLine(env *yaml.Node, anchor string) int {
	switch env.Kind {
	case yaml.SequenceNode:
		for _, item := range env.Content {
			if item.Kind == yaml.ScalarNode && strings.Contains(item.Value, anchor) {
				return item.Line - 1
			}
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(env.Content); i += 2 {
			key, value := env.Content[i], env.Content[i+1]
			if strings.Contains(key.Value, anchor) && value.Line == key.Line {
				return key.Line - 1
			}
		}
	}

	return -1
}

func environmentDefines(env *yaml.Node, key string) bool {
	switch env.Kind {
	case yaml.SequenceNode:
		for _, item := range env.Content {
			name, _, _ := strings.Cut(item.Value, "=")
			if strings.TrimSpace(name) == key {
				return true
			}
		}
	case yaml.MappingNode:
		for i := 0; i < len(env.Content); i += 2 {
			if env.Content[i].Value == key {
				return true
			}
		}
	}

	return false
}

// Apply returns content with the patch applied. changed is false when the key
// was already defined, in which case content is returned untouched.
func Apply(content []byte, p Patch) ([]byte, bool, error) {
	if p.Key == "" {
		return nil, false, ErrEmptyKey
	}

	if Defined(content, p) {
		return content, false, nil
	}

	lines := strings.SplitAfter(string(content), "\n")

	anchor := anchorLine(content, lines, p.Anchor)
	if anchor < 0 || anchor >= len(lines) {
		return nil, false, fmt.Errorf("%w: %q", ErrAnchorNotFound, p.Anchor)
	}

	anchored := strings.TrimRight(lines[anchor], "\r\n")
	body := strings.TrimLeft(anchored, " \t")
	indent := anchored[:len(anchored)-len(body)]

	newline := "\n"
	if strings.HasSuffix(lines[anchor], "\r\n") {
		newline = "\r\n"
	}

	var inserted string
	if strings.HasPrefix(body, "-") {
		inserted = indent + "- " + p.Key + "=" + p.Value + newline
	} else {
		inserted = indent + p.Key + ": " + strconv.Quote(p.Value) + newline
	}

	if !strings.HasSuffix(lines[anchor], "\n") {
		lines[anchor] += newline
	}

	var out strings.Builder
	out.Grow(len(content) + len(inserted))
	for i, line := range lines {
		out.WriteString(line)
		if i == anchor {
			out.WriteString(inserted)
		}
	}

	patched := []byte(out.String())
	if !Defined(patched, p) {
		return nil, false, fmt.Errorf("%w: %s", ErrNotApplied, p.Key)
	}

	return patched, true, nil
}
