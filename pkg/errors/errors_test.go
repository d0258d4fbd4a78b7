package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{New(CodeInvalid, "bad"), http.StatusBadRequest},
		{New(CodeNotFound, "User not found"), http.StatusNotFound},
		{New(CodeConflict, "dup"), http.StatusConflict},
		{New(CodeUnavailable, "upstream"), http.StatusBadGateway},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", New(CodeNotFound, "User not found")), http.StatusNotFound},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "User not found", MessageOf(New(CodeNotFound, "User not found")))
	assert.Equal(t, "Internal Server Error", MessageOf(fmt.Errorf("pq: connection reset")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := Wrap(cause, CodeInternal, "create entity failed")
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsCode(err, CodeInternal))
	assert.Equal(t, "internal: create entity failed: boom", err.Error())
	assert.Equal(t, "email", err.WithMeta("field", "email").Meta["field"])
}
