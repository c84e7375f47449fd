package api

import (
	"errors"
	"net/http"

	"food-delivery/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var statusByError = []struct {
	err    error
	status int
}{
	{models.ErrNotFound, http.StatusNotFound},
	{models.ErrForbidden, http.StatusForbidden},
	{models.ErrInvalidCredentials, http.StatusUnauthorized},
	{models.ErrConflict, http.StatusConflict},
	{models.ErrInsufficientStock, http.StatusConflict},
	{models.ErrEmptyCart, http.StatusBadRequest},
	{models.ErrCannotCancel, http.StatusBadRequest},
	{models.ErrInvalidTransition, http.StatusBadRequest},
	{models.ErrInvalidWebhook, http.StatusBadRequest},
	{models.ErrPaymentProvider, http.StatusBadRequest},
}

// respondError maps a service error to its HTTP response
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "Validation failed",
			"fields": vErr.Fields,
		})
		return
	}

	for _, m := range statusByError {
		if errors.Is(err, m.err) {
			c.JSON(m.status, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// respondBindError reports a request body that failed to bind
func respondBindError(c *gin.Context, err error) {
	_ = c.Error(err)

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fe.Field()] = validationMessage(fe)
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "Validation failed",
			"fields": fields,
		})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request body",
		"details": err.Error(),
	})
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return "Must be at least " + fe.Param()
	case "max":
		return "Must be at most " + fe.Param()
	case "len":
		return "Must be exactly " + fe.Param() + " characters"
	case "oneof":
		return "Must be one of: " + fe.Param()
	}
	return "Invalid value"
}
