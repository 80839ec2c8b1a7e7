package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio/api/apperr"
	"portfolio/api/models"
)

// bindJSON decodes the request body into dst, mapping decode failures to
// field level validation errors.
func bindJSON(c *gin.Context, dst any) error {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, models.ErrMetadataNotObject):
		return apperr.Validation(apperr.FieldError{Field: "metadata", Message: "must be a JSON object"})
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return apperr.Validation(apperr.FieldError{Field: typeErr.Field, Message: "must be a " + typeErr.Type.String()})
	default:
		return apperr.Validation(apperr.FieldError{Field: "body", Message: "must be a valid JSON object"})
	}
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func created(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": message, "data": data})
}
