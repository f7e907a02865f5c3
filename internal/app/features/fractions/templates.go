// internal/app/features/fractions/templates.go
package fractions

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "fractions",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
