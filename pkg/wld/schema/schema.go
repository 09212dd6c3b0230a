// Package schema embeds the world header field catalog.
package schema

import _ "embed"

// HeaderJSON is the ordered, version-gated list of world header fields.
//
//go:embed header.json
var HeaderJSON []byte

// HeaderSchemaJSON is the JSON Schema every header catalog must satisfy.
//
//go:embed header.schema.json
var HeaderSchemaJSON []byte
