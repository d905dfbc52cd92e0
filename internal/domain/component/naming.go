package component

import (
	"unicode"
	"unicode/utf8"
)

// NameGenerator derives a component name from its type.
type NameGenerator interface {
	Generate(t Type) string
}

// NameGeneratorFunc adapts a function to NameGenerator.
type NameGeneratorFunc func(t Type) string

// Generate calls f.
func (f NameGeneratorFunc) Generate(t Type) string { return f(t) }

// DefaultNameGenerator lower-cases the first letter of the type's simple name.
var DefaultNameGenerator NameGenerator = NameGeneratorFunc(func(t Type) string {
	name := t.SimpleName()
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToLower(r)) + name[size:]
})
