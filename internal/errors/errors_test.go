package appErrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[*Error]int{
		Validation("bad %s", "input"):     http.StatusBadRequest,
		NotFound("campaign", 7):           http.StatusNotFound,
		Conflict("taken"):                 http.StatusConflict,
		Unauthorized("who are you"):       http.StatusUnauthorized,
		RateLimited("slow down"):          http.StatusTooManyRequests,
		External("provider down", nil):    http.StatusBadGateway,
		Internal("boom", errors.New("x")): http.StatusInternalServerError,
	}
	for e, status := range cases {
		assert.Equal(t, status, e.HTTPStatus(), e.Error())
	}
}

func TestNotFoundMessage(t *testing.T) {
	e := NotFound("prospect", "abc")
	assert.Equal(t, "prospect with ID abc not found", e.Message)
	assert.Equal(t, "prospect", e.ToResponse().Context["kind"])
}

func TestIsTypeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("loading: %w", NotFound("group", 1))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsType(err, TypeConflict))
	assert.False(t, IsNotFound(errors.New("plain")))
}

func TestAsStructuredError(t *testing.T) {
	assert.Nil(t, AsStructuredError(nil))

	cause := errors.New("connection reset")
	e := AsStructuredError(cause)
	assert.Equal(t, TypeInternal, e.Type)
	assert.ErrorIs(t, e, cause)
	assert.NotContains(t, e.ToResponse().Error, "connection reset")

	v := Validation("nope").WithField("field", "email")
	assert.Same(t, v, AsStructuredError(fmt.Errorf("wrapped: %w", v)))
	assert.Equal(t, "email", v.ToResponse().Context["field"])
}
