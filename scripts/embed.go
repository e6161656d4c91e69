// Package scripts holds the Risor report scripts shipped with arbor.
// Shared helpers live at the root so reports can import them by name.
package scripts

import "embed"

//go:embed table.risor report/*.risor
var FS embed.FS
