// Package depstring splits dependency strings such as "glibc>=2.28" or
// "crda: wireless regulatory domain" into their parts.
package depstring

import "strings"

// Version constraint operators, numbered as the engine numbers them.
const (
	ModAny = iota + 1
	ModEq
	ModGe
	ModLe
	ModGt
	ModLt
)

// Spec is a parsed dependency string. Desc is only set when the string
// carried a ": " separated description.
type Spec struct {
	Name    string
	Version string
	Desc    string
	HasDesc bool
	Mod     int
}

// Parse splits s. The description separator is ": " so that an epoch
// ("1:2.0") is never mistaken for one. The first '<' wins over '>' which
// wins over '='.
func Parse(s string) Spec {
	var spec Spec
	head := s
	if i := strings.Index(s, ": "); i >= 0 {
		spec.Desc = s[i+2:]
		spec.HasDesc = true
		head = s[:i]
	}

	switch {
	case strings.IndexByte(head, '<') >= 0:
		i := strings.IndexByte(head, '<')
		spec.Name = head[:i]
		if strings.HasPrefix(head[i:], "<=") {
			spec.Mod, spec.Version = ModLe, head[i+2:]
		} else {
			spec.Mod, spec.Version = ModLt, head[i+1:]
		}
	case strings.IndexByte(head, '>') >= 0:
		i := strings.IndexByte(head, '>')
		spec.Name = head[:i]
		if strings.HasPrefix(head[i:], ">=") {
			spec.Mod, spec.Version = ModGe, head[i+2:]
		} else {
			spec.Mod, spec.Version = ModGt, head[i+1:]
		}
	case strings.IndexByte(head, '=') >= 0:
		i := strings.IndexByte(head, '=')
		spec.Name, spec.Mod, spec.Version = head[:i], ModEq, head[i+1:]
	default:
		spec.Name, spec.Mod = head, ModAny
	}
	return spec
}

// Operator returns the textual form of mod, empty for ModAny and unknown
// values.
func Operator(mod int) string {
	switch mod {
	case ModEq:
		return "="
	case ModGe:
		return ">="
	case ModLe:
		return "<="
	case ModGt:
		return ">"
	case ModLt:
		return "<"
	}
	return ""
}

// Format is the inverse of Parse.
func Format(spec Spec) string {
	var b strings.Builder
	b.WriteString(spec.Name)
	if op := Operator(spec.Mod); op != "" {
		b.WriteString(op)
		b.WriteString(spec.Version)
	}
	if spec.HasDesc {
		b.WriteString(": ")
		b.WriteString(spec.Desc)
	}
	return b.String()
}
