package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"Place", &Place{}, "places"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestDatabaseModels_ContainsPlace(t *testing.T) {
	assert.Len(t, DatabaseModels, 1)
	_, ok := DatabaseModels[0].(*Place)
	assert.True(t, ok)
}
