// internal/app/features/suppliers/templates.go
package suppliers

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "suppliers",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
