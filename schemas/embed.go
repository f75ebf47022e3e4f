// Package schemas embeds the JSON Schemas for structured generation output.
package schemas

import "embed"

// FS holds every *.schema.json file of this directory.
//
//go:embed *.schema.json
var FS embed.FS

// Schema file names.
const (
	Analysis = "analysis.schema.json"
	Final    = "final.schema.json"
)
