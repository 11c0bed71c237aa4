package template

import "embed"

// builtinFS embeds the default template set shipped with the binary.
//
//go:embed builtin/*.yml
var builtinFS embed.FS
