package saleor

import (
	"fmt"
	"strings"
)

// HTTPError is a non-2xx response from the API endpoint.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("saleor API error (%d): %s", e.StatusCode, body)
}

// GraphQLErrorItem is one entry of the top-level errors array.
type GraphQLErrorItem struct {
	Message    string                 `json:"message"`
	Path       []interface{}          `json:"path,omitempty"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

// GraphQLError is returned when the response carries top-level errors.
type GraphQLError struct {
	Errors []GraphQLErrorItem
}

func (e *GraphQLError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, item := range e.Errors {
		msgs = append(msgs, item.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

// FieldError is a validation error returned inside a mutation payload, e.g.
// AccountError from tokenCreate.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// MutationError is returned when a mutation payload lists errors.
type MutationError struct {
	Mutation string
	Errors   []FieldError
}

func (e *MutationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		if fe.Field != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s (%s)", fe.Field, fe.Message, fe.Code))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s (%s)", fe.Message, fe.Code))
		}
	}
	return fmt.Sprintf("%s failed: %s", e.Mutation, strings.Join(msgs, "; "))
}

// HasCode reports whether any field error carries code.
func (e *MutationError) HasCode(code string) bool {
	for _, fe := range e.Errors {
		if fe.Code == code {
			return true
		}
	}
	return false
}
