// Package serve is the inference entry point: it reloads a fitted model and
// applies it to CSV rows. Its entry point source ships next to the model.
package serve

import _ "embed"

// EntrypointFile is the name the entry point source is exported under.
const EntrypointFile = "serve.go"

//go:embed entrypoint.go
var entrypoint []byte

// Source returns the inference entry point's source text.
func Source() []byte {
	return entrypoint
}
