package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/announcement-sync/pkg/errors"
)

// ErrorBody is the error contract shared by every endpoint.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON sends a success response without caching.
func JSON(c *gin.Context, status int, data interface{}) {
	noStore(c)
	c.JSON(status, data)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	ErrorWithMessage(c, err, "")
}

// ErrorWithMessage renders err's status and code with a caller-chosen message.
// An empty message falls back to err's own text.
func ErrorWithMessage(c *gin.Context, err error, message string) {
	appErr := appErrors.FromError(err)
	if appErr == nil {
		appErr = appErrors.ErrInternal
	}
	status, code := appErr.Status, appErr.Code
	if errors.Is(err, appErrors.ErrPortalTimeout) {
		status, code = appErrors.ErrPortalTimeout.Status, appErrors.ErrPortalTimeout.Code
	}
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if message == "" {
		message = appErr.Error()
	}
	ErrorMessage(c, status, code, message)
}

// ErrorMessage sends an error response with a preformatted message.
func ErrorMessage(c *gin.Context, status int, code, message string) {
	noStore(c)
	c.JSON(status, ErrorBody{Error: message, Code: code})
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
