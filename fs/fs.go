// Package appfs holds assets compiled into the binary, so deployments
// never depend on files sitting next to the executable.
package appfs

import "embed"

//go:embed migrations
var FS embed.FS
