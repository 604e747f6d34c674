package respond

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"
)

// Success represents a standard structure for successful responses.
type Success struct {
	Result   interface{} `json:"result"`
	Warnings []string    `json:"warnings,omitempty"`
}

// Error represents a standard structure for error responses.
type Error struct {
	Message  string   `json:"message"`
	Warnings []string `json:"warnings,omitempty"`
}

// JSON sends a JSON response with the specified HTTP status code and data.
func JSON(c *ginext.Context, status int, data interface{}) {
	c.JSON(status, data)
}

// OK sends a 200 OK JSON response, wrapping the given result in a Success struct.
func OK(c *ginext.Context, result interface{}) {
	JSON(c, http.StatusOK, Success{Result: result})
}

// OKWithWarnings sends a 200 OK response carrying user-facing warnings,
// e.g. files rejected by validation while the rest of the batch proceeds.
func OKWithWarnings(c *ginext.Context, result interface{}, warnings []string) {
	JSON(c, http.StatusOK, Success{Result: result, Warnings: warnings})
}

// Created sends a 201 Created JSON response, wrapping the given result in a Success struct.
func Created(c *ginext.Context, result interface{}) {
	JSON(c, http.StatusCreated, Success{Result: result})
}

// Fail sends an error JSON response with the specified HTTP status code.
// The error message is wrapped in an Error struct.
func Fail(c *ginext.Context, status int, err error) {
	JSON(c, status, Error{Message: err.Error()})
}

// FailWithWarnings sends an error response that also carries the warnings
// collected before the failure.
func FailWithWarnings(c *ginext.Context, status int, err error, warnings []string) {
	JSON(c, status, Error{Message: err.Error(), Warnings: warnings})
}
