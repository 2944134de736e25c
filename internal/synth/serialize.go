package synth

import "strings"

// generatedHeader marks the arch file as generated.
const generatedHeader = "# Makefile generated by archsmith, do not edit"

// Serialize renders directives in insertion order, one "KEY = VALUE" line
// each, followed by the compile-rule overrides.
func Serialize(o *OptionSet, rules []CompileRule) string {
	var sb strings.Builder
	sb.WriteString(generatedHeader)
	sb.WriteString("\n\n")
	for _, k := range o.Keys() {
		v := o.Value(k)
		if v == "" {
			sb.WriteString(k + " =\n")
			continue
		}
		sb.WriteString(k + " = " + v + "\n")
	}
	for _, r := range rules {
		sb.WriteString("\n")
		sb.WriteString(r.String())
	}
	return sb.String()
}
