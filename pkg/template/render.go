package template

import (
	"fmt"
	"strings"
)

// Environment resolves substitution tokens. The surface is closed: a
// token outside the enumerated set is a syntax error, while a name in
// the set that resolves empty yields a valid degraded render.
type Environment interface {
	Value(name string) (string, bool)
}

// FlagSource resolves the feature flags scoping conditional blocks.
type FlagSource interface {
	Enabled(name string) bool
}

// Render produces the concrete artifact. It is deterministic: identical
// inputs yield byte-identical output. Lines inside blocks whose flag is
// disabled are dropped; delimiter lines never reach the output; a
// bracketed token resolving empty removes the whole bracket construct.
func (t *Template) Render(env Environment, flags FlagSource) ([]byte, error) {
	var b strings.Builder
	first := true
	for _, ln := range t.lines {
		if ln.flag != "" && !flags.Enabled(ln.flag) {
			continue
		}
		if !first {
			b.WriteByte('\n')
		}
		first = false
		for _, p := range ln.parts {
			if p.token == "" {
				b.WriteString(p.literal)
				continue
			}
			v, ok := env.Value(p.token)
			if !ok {
				return nil, &SyntaxError{Line: ln.num, Msg: fmt.Sprintf("token $%s is not in the environment surface", p.token)}
			}
			if p.bracketed {
				if v != "" {
					b.WriteString("[" + v + "]")
				}
				continue
			}
			b.WriteString(v)
		}
	}
	return []byte(b.String()), nil
}

// MapEnvironment adapts a plain map for tests and ad hoc renders.
type MapEnvironment map[string]string

func (m MapEnvironment) Value(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// MapFlags adapts a plain map of enabled flags.
type MapFlags map[string]bool

func (m MapFlags) Enabled(name string) bool { return m[name] }
