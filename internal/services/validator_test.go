package services

import (
	"testing"

	"printhub/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestValidatorDefaultsWithoutLoadedRules(t *testing.T) {
	v := NewRedisProgramValidator(nil)

	assert.NoError(t, v.ValidateInput(validInput()))

	tooManyColors := validInput()
	tooManyColors.Colors = make([]string, 17)
	err := v.ValidateInput(tooManyColors)
	assert.True(t, domain.IsValidation(err))

	outOfRange := validInput()
	outOfRange.MachineNumber = 100
	err = v.ValidateInput(outOfRange)
	assert.True(t, domain.IsValidation(err))
}
