package client

import (
	"encoding/json"
	"errors"
	"fmt"

	"learnstyle/internal/common"
)

// ErrService matches every *ServiceError through errors.Is.
var ErrService = errors.New("prediction service error")

// ServiceError is a non-2xx answer from the prediction service or the relay.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Is(target error) bool {
	return target == ErrService
}

// TransportError means no answer was received at all. Error returns a
// generic message fit for the banner; Detail keeps the cause for logs.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return common.ErrMsgUnreachable
}

// Detail names the request and the underlying failure.
func (e *TransportError) Detail() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// serviceError builds the error for status. With useBody, a JSON body's error
// field becomes the message; otherwise the message names the status.
func serviceError(status int, body []byte, useBody bool) *ServiceError {
	if useBody {
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
			return &ServiceError{Status: status, Message: payload.Error}
		}
	}
	return &ServiceError{Status: status, Message: fmt.Sprintf("HTTP error! status: %d", status)}
}
