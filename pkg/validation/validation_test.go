package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "tiergate/pkg/domain-errors"
)

type sample struct {
	Kind     string  `validate:"required,notblank"`
	Priority string  `validate:"omitempty,oneof=low normal high"`
	Score    float64 `validate:"gte=0,lte=1"`
}

func TestValidate(t *testing.T) {
	t.Run("accepts valid struct", func(t *testing.T) {
		require.NoError(t, Validate(sample{Kind: "dam_construction", Priority: "high", Score: 0.5}))
	})

	t.Run("reports missing required field in snake case", func(t *testing.T) {
		err := Validate(sample{})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Equal(t, "kind is required", err.Error())
	})

	t.Run("rejects whitespace-only value", func(t *testing.T) {
		err := Validate(sample{Kind: "   "})
		require.Error(t, err)
		assert.Equal(t, "kind must not be blank", err.Error())
	})

	t.Run("reports oneof choices", func(t *testing.T) {
		err := Validate(sample{Kind: "x", Priority: "urgent"})
		require.Error(t, err)
		assert.Equal(t, "priority must be one of [low normal high]", err.Error())
	})

	t.Run("reports numeric bounds", func(t *testing.T) {
		err := Validate(sample{Kind: "x", Score: 1.5})
		require.Error(t, err)
		assert.Equal(t, "score must be less than or equal to 1", err.Error())
	})
}
