package slug_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/victorytouchdown/vtshop-api/internal/slug"
)

func TestMake(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Football Helmets", "football-helmets"},
		{"Épée Légère", "epee-legere"},
		{"  Shoulder -- Pads!  ", "shoulder-pads"},
		{"Size 10 / XL", "size-10-xl"},
		{"a4x9k2mz0q", "a4x9k2mz0q"},
		{"???", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, slug.Make(tt.in))
		})
	}
}
