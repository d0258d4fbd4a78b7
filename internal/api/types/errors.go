package types

import appErr "github.com/userhub/engine/pkg/errors"

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func FromAppError(err error) ErrorResponse {
	return ErrorResponse{Detail: appErr.MessageOf(err)}
}
