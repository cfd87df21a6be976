package schemerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessagesNameTheOffendingForm(t *testing.T) {
	assert.Contains(t, NewSyntaxError("duplicate parameter name", "x").Error(), "x")
	assert.Contains(t, NewReadError(12, "malformed S-expression", nil).Error(), "offset 12")
	assert.Contains(t, NewNotYetImplemented("do form").Error(), "do form")
	assert.Contains(t, NewInternal("free variable missing").Error(), "internal error")
}

func TestSyntaxErrorWithoutFormStaysTerse(t *testing.T) {
	assert.Equal(t, "syntax error: malformed let", NewSyntaxError("malformed let", "").Error())
}

func TestReadErrorUnwrapsItsCause(t *testing.T) {
	cause := errors.New("io failure")
	err := NewReadError(0, "cannot read source", cause)
	assert.ErrorIs(t, err, cause)
}
