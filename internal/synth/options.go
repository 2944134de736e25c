package synth

import "strings"

// Directive names shared by more than one pipeline step.
const (
	keyCFlags      = "CFLAGS"
	keyDFlags      = "DFLAGS"
	keyLibs        = "LIBS"
	keyFC          = "FC"
	keyLD          = "LD"
	keyFCFlagsOpt  = "FCFLAGSOPT"
	keyFCFlagsOpt2 = "FCFLAGSOPT2"
)

// OptionSet is an ordered set of build directives. Keys keep the order in
// which they were first written.
type OptionSet struct {
	keys   []string
	values map[string]string
}

// NewOptionSet returns an empty set.
func NewOptionSet() *OptionSet {
	return &OptionSet{values: make(map[string]string)}
}

func (o *OptionSet) touch(key string) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
		o.values[key] = ""
	}
}

// Set replaces the value of key.
func (o *OptionSet) Set(key, value string) {
	o.touch(key)
	o.values[key] = strings.TrimSpace(value)
}

// Append adds fragments after the current value, separated by single
// spaces. Empty fragments are skipped; key is created even if every fragment
// is empty.
func (o *OptionSet) Append(key string, fragments ...string) {
	o.touch(key)
	o.values[key] = join(append([]string{o.values[key]}, fragments...)...)
}

// Prepend adds fragments in front of the current value.
func (o *OptionSet) Prepend(key string, fragments ...string) {
	o.touch(key)
	o.values[key] = join(append(append([]string(nil), fragments...), o.values[key])...)
}

// Get returns the value of key and whether it is set.
func (o *OptionSet) Get(key string) (string, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Value returns the value of key, or "" if unset.
func (o *OptionSet) Value(key string) string { return o.values[key] }

// Keys returns the directive names in insertion order.
func (o *OptionSet) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Len returns the number of directives.
func (o *OptionSet) Len() int { return len(o.keys) }

func join(fragments ...string) string {
	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}
