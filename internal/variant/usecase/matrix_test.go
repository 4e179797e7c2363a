package usecase

import (
	"testing"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/fekuna/omnipos-inventory-service/internal/variant/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandMatrixFirstAttributeVariesSlowest(t *testing.T) {
	combos, err := expandMatrix([]dto.AttributeInput{
		{Name: "Color", Values: []string{"Red", "Blue"}},
		{Name: "Size", Values: []string{"S", "M", "L"}},
	})
	require.NoError(t, err)
	require.Len(t, combos, 6)

	assert.Equal(t, []dto.AttributePair{{Name: "Color", Value: "Red"}, {Name: "Size", Value: "S"}}, combos[0])
	assert.Equal(t, []dto.AttributePair{{Name: "Color", Value: "Red"}, {Name: "Size", Value: "L"}}, combos[2])
	assert.Equal(t, []dto.AttributePair{{Name: "Color", Value: "Blue"}, {Name: "Size", Value: "S"}}, combos[3])
}

func TestExpandMatrixEmpty(t *testing.T) {
	combos, err := expandMatrix(nil)
	require.NoError(t, err)
	assert.Empty(t, combos)
}

func TestExpandMatrixRejectsBlankRow(t *testing.T) {
	_, err := expandMatrix([]dto.AttributeInput{
		{Name: "Color", Values: []string{"Red"}},
		{Name: "Size", Values: []string{"  ", "\t"}},
	})
	assert.True(t, apperror.Is(err, apperror.CodeValidation))
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Classic T-Shirt":   "classic-t-shirt",
		"  Kopi Susu 250ml": "kopi-susu-250ml",
		"Mug!!":             "mug",
		"***":               "variant",
	}
	for in, want := range tests {
		assert.Equal(t, want, slug(in), in)
	}
}
