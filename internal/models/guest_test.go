package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuestKind(t *testing.T) {
	assert.Equal(t, GuestKindRegular, GuestKindFor(false))
	assert.Equal(t, GuestKindTest, GuestKindFor(true))

	assert.Equal(t, GuestKindRegular, Guest{IsTest: false}.Kind())
	assert.Equal(t, GuestKindTest, Guest{IsTest: true}.Kind())
}
