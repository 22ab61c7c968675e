package dsl

import (
	"github.com/alecthomas/participle/v2"
)

var moduleParser = participle.MustBuild[ModuleSrc](
	participle.Lexer(Lexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

// ParseSource parses a module description into its concrete syntax tree.
func ParseSource(source string) (*ModuleSrc, error) {
	return moduleParser.ParseString("", source)
}
