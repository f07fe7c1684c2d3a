// Package suggest produces description suggestions for journal entries.
package suggest

import (
	"strings"

	"heartloom/internal/models"
)

// Suggester turns a set of images and the selected children into a
// suggested entry description. Implementations may inspect image content;
// the core treats them as opaque.
type Suggester interface {
	Suggest(imageData [][]byte, children []models.ChildProfile) string
}

// Heuristic is the model-free fallback: it builds a suggestion from the
// children's names alone and ignores the image bytes.
type Heuristic struct{}

// Suggest implements Suggester.
func (Heuristic) Suggest(_ [][]byte, children []models.ChildProfile) string {
	names := make([]string, 0, len(children))
	for _, c := range children {
		names = append(names, c.Name)
	}
	switch len(names) {
	case 0:
		return "A memorable family moment."
	case 1:
		return names[0] + " — a moment to remember."
	default:
		return "Moments with " + strings.Join(names, ", ") + "."
	}
}
