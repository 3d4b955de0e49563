package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Status is the body shape the form-save and subscribe endpoints answer
// with. Success or failure is carried only by the Status string; the HTTP
// status code stays 200 for vendor-side failures.
type Status struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Success returns a success status body
func Success(message string) Status {
	return Status{Status: "success", Message: message}
}

// Failure returns a failure status body
func Failure(message string) Status {
	return Status{Status: "failure", Message: message}
}

// Error returns an error status body
func Error(message string) Status {
	return Status{Status: "error", Message: message}
}

// OK sends a status body with HTTP 200
func OK(c *gin.Context, body Status) {
	c.JSON(http.StatusOK, body)
}
