package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapPlatform(t *testing.T) {
	tests := []struct {
		name   string
		claims []string
		want   []string
	}{
		{"creator maps to owner", []string{"creator"}, []string{"owner"}},
		{"administrator maps to admin", []string{"administrator"}, []string{"admin"}},
		{"unknown statuses are dropped", []string{"member", "restricted"}, nil},
		{"mixed claims keep order", []string{"member", "creator", "administrator"}, []string{"owner", "admin"}},
		{"empty claims", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapPlatform(tt.claims))
		})
	}
}
