// Package dsl implements a minimal textual notation for describing an IR
// module's functions, blocks and terminators in a file passed on the
// command line, built with the participle lexer/grammar idiom. It exists
// so cmd/lafpass has something concrete
// to parse and instrument, since this domain has no host compiler handing
// it an already-built Module.
package dsl

import "github.com/alecthomas/participle/v2/lexer"

// Lexer tokenizes lafpass module-description source.
var Lexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_.]*`, nil},
		{"Integer", `0x[0-9a-fA-F]+|[0-9]+`, nil},
		{"Punct", `[{}():,;]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
