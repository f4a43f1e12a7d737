package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spinelli666/tabela-gamificacao-alunos/internal/domain/shared"
)

type sample struct {
	Name     string  `json:"name" validate:"notblank,max=10"`
	Day      string  `json:"day" validate:"omitempty,date"`
	Category string  `json:"category" validate:"omitempty,reward_category"`
	Value    float64 `json:"value" validate:"gte=0,lte=10"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct("Sample", sample{Name: "Ana", Day: "2025-03-10", Category: "voucher", Value: 7}))
}

func TestStruct_FieldErrors(t *testing.T) {
	err := Struct("Sample", sample{Name: "   ", Day: "10/03/2025", Category: "jackpot", Value: 11})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))

	fields := Fields(err)
	require.Len(t, fields, 4)
	assert.Equal(t, "name cannot be blank", fields["name"])
	assert.Equal(t, "day must be a date in YYYY-MM-DD format", fields["day"])
	assert.Equal(t, "category must be a known reward category", fields["category"])
	assert.Contains(t, fields["value"], "value")
}

func TestFields_NonValidationError(t *testing.T) {
	assert.Nil(t, Fields(shared.ErrStudentNotFound))
	assert.Nil(t, Fields(nil))
}
