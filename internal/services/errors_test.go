package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("conn reset")
	wrapped := fmt.Errorf("send: %w", transient("insert message", cause))

	assert.True(t, IsTransient(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.False(t, IsNotFound(wrapped))

	assert.True(t, IsNotFound(notFound("chat", "c1")))
	assert.Equal(t, `chat "c1" not found`, notFound("chat", "c1").Error())

	assert.True(t, IsValidation(invalid("chatId", "is required")))
	assert.Equal(t, "chatId: is required", invalid("chatId", "is required").Error())
}
