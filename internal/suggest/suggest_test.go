package suggest

import (
	"testing"

	"heartloom/internal/models"
)

func TestHeuristicSuggest(t *testing.T) {
	tests := []struct {
		name     string
		children []models.ChildProfile
		want     string
	}{
		{
			name:     "no children",
			children: nil,
			want:     "A memorable family moment.",
		},
		{
			name:     "one child",
			children: []models.ChildProfile{{Name: "Mia"}},
			want:     "Mia — a moment to remember.",
		},
		{
			name:     "two children",
			children: []models.ChildProfile{{Name: "Mia"}, {Name: "Leo"}},
			want:     "Moments with Mia, Leo.",
		},
		{
			name:     "three children",
			children: []models.ChildProfile{{Name: "Mia"}, {Name: "Leo"}, {Name: "Ava"}},
			want:     "Moments with Mia, Leo, Ava.",
		},
	}

	var h Heuristic
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := h.Suggest(nil, tt.children)
			if got != tt.want {
				t.Errorf("Suggest() = %q, want %q", got, tt.want)
			}
		})
	}
}
