package req

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cancelBody struct {
	SubscriptionID string `json:"subscription_id" validate:"required"`
}

func TestHandleBody(t *testing.T) {
	body, err := HandleBody[cancelBody](io.NopCloser(strings.NewReader(`{"subscription_id":"abc"}`)))
	require.NoError(t, err)
	assert.Equal(t, "abc", body.SubscriptionID)
}

func TestHandleBody_MissingField(t *testing.T) {
	_, err := HandleBody[cancelBody](io.NopCloser(strings.NewReader(`{}`)))
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "SubscriptionID", verrs[0].Field())
}

func TestHandleBody_Malformed(t *testing.T) {
	_, err := HandleBody[cancelBody](io.NopCloser(strings.NewReader(`{"subscription_id":`)))
	require.Error(t, err)

	_, err = HandleBody[cancelBody](nil)
	assert.ErrorIs(t, err, io.EOF)
}
