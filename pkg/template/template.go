// Package template renders line-oriented config templates against an
// environment surface and a feature flag set. A template is parsed once
// into an immutable sequence of typed segments; rendering is a pure walk
// over that sequence and never mutates shared state.
package template

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Block delimiters are whole lines of the form "#[FLAG]" ... "#[/FLAG]".
// Blocks for different flags never overlap and never nest; that is an
// authoring invariant enforced at parse time.
var (
	delimPattern = regexp.MustCompile(`^#\[(/?)([A-Z][A-Z0-9_]*)\]$`)
	tokenPattern = regexp.MustCompile(`\[\$([A-Za-z_][A-Za-z0-9_]*)\]|\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// SyntaxError reports a malformed template or an unresolvable token.
// Both are fatal at parse or render time.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template syntax error at line %d: %s", e.Line, e.Msg)
}

// part is one run within a line: literal text or a substitution token.
type part struct {
	literal   string
	token     string // token name; empty for literal parts
	bracketed bool   // [$NAME] address literal form
}

// line is one template line plus the flag scoping it ("" = unconditional).
type line struct {
	parts []part
	flag  string
	num   int // 1-based source line, for render-time errors
}

// Template is the parsed, immutable segment sequence.
type Template struct {
	lines []line
}

// Parse builds a Template from line-oriented text.
func Parse(data string) (*Template, error) {
	var t Template
	openFlag := ""
	openLine := 0

	for i, raw := range strings.Split(data, "\n") {
		n := i + 1
		if m := delimPattern.FindStringSubmatch(strings.TrimSpace(raw)); m != nil {
			closing, flag := m[1] == "/", m[2]
			switch {
			case closing && openFlag == "":
				return nil, &SyntaxError{Line: n, Msg: fmt.Sprintf("close delimiter for %s without an open block", flag)}
			case closing && flag != openFlag:
				return nil, &SyntaxError{Line: n, Msg: fmt.Sprintf("close delimiter for %s inside block %s", flag, openFlag)}
			case closing:
				openFlag = ""
			case openFlag != "":
				return nil, &SyntaxError{Line: n, Msg: fmt.Sprintf("block %s opened inside block %s", flag, openFlag)}
			default:
				openFlag = flag
				openLine = n
			}
			continue
		}
		t.lines = append(t.lines, line{parts: splitParts(raw), flag: openFlag, num: n})
	}
	if openFlag != "" {
		return nil, &SyntaxError{Line: openLine, Msg: fmt.Sprintf("block %s is never closed", openFlag)}
	}
	return &t, nil
}

// LoadFile parses a template from disk.
func LoadFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	return Parse(string(data))
}

func splitParts(raw string) []part {
	var parts []part
	last := 0
	for _, loc := range tokenPattern.FindAllStringSubmatchIndex(raw, -1) {
		if loc[0] > last {
			parts = append(parts, part{literal: raw[last:loc[0]]})
		}
		if loc[2] >= 0 {
			parts = append(parts, part{token: raw[loc[2]:loc[3]], bracketed: true})
		} else {
			parts = append(parts, part{token: raw[loc[4]:loc[5]]})
		}
		last = loc[1]
	}
	if last < len(raw) || len(parts) == 0 {
		parts = append(parts, part{literal: raw[last:]})
	}
	return parts
}
