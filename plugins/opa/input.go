package opa

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Input is the input document sent with every Compile request. Keys are
// addressed by dot paths: "subject.role" is input.subject.role.
type Input map[string]any

// Set stores val at path, creating intermediate objects. A scalar in the
// way is replaced by an object.
func (in Input) Set(path string, val any) {
	parts := strings.Split(path, ".")
	current := map[string]any(in)
	for _, p := range parts[:len(parts)-1] {
		next, ok := current[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[p] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = val
}

// Get returns the value at path, or nil.
func (in Input) Get(path string) any {
	parent, leaf := in.parent(path)
	if parent == nil {
		return nil
	}
	return parent[leaf]
}

// Delete removes the value at path. Emptied parent objects are kept.
func (in Input) Delete(path string) {
	if parent, leaf := in.parent(path); parent != nil {
		delete(parent, leaf)
	}
}

func (in Input) parent(path string) (map[string]any, string) {
	parts := strings.Split(path, ".")
	current := map[string]any(in)
	for _, p := range parts[:len(parts)-1] {
		next, ok := current[p].(map[string]any)
		if !ok {
			return nil, ""
		}
		current = next
	}
	return current, parts[len(parts)-1]
}

// Paths returns the dot path of every scalar value, sorted.
func (in Input) Paths() []string {
	var paths []string
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, v := range m {
			if nested, ok := v.(map[string]any); ok {
				walk(prefix+k+".", nested)
				continue
			}
			paths = append(paths, prefix+k)
		}
	}
	walk("", in)
	slices.Sort(paths)
	return paths
}

var jsonNumberRe = regexp.MustCompile(`^-?(0|[1-9]\d*)(\.\d+)?([eE][+-]?\d+)?$`)

// ParseValue converts typed text into an input value: a JSON number, a
// boolean, or the text itself.
func ParseValue(s string) any {
	if jsonNumberRe.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
