// Package validation provides input validation middleware for the silentauth API.
package validation

import (
	"math"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// MaxStringLength is the maximum length for string fields
const MaxStringLength = 10000

// MaxBatchSamples is the maximum number of behavioral samples in one request
const MaxBatchSamples = 500

var (
	// idRegex validates prefixed identifiers (usr_..., dev_..., ses_...)
	idRegex = regexp.MustCompile(`^[a-z]{2,8}_[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)
	// ja3Regex validates JA3/JA4 TLS fingerprint hashes
	ja3Regex = regexp.MustCompile(`^[a-fA-F0-9]{32}$`)
)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidID checks if a string is a valid prefixed identifier
func IsValidID(id string) bool {
	return idRegex.MatchString(id)
}

// IsValidJA3 checks if a string is a valid JA3 fingerprint hash
func IsValidJA3(s string) bool {
	return ja3Regex.MatchString(s)
}

// IsValidScore checks that a score is a finite value in [0, 1]
func IsValidScore(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v >= 0 && v <= 1
}

// IsFinite rejects NaN and infinite feature values
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SanitizeString removes dangerous characters and limits length
func SanitizeString(s string, maxLen int) string {
	// Trim whitespace
	s = strings.TrimSpace(s)

	// Limit length
	if len(s) > maxLen {
		s = s[:maxLen]
	}

	// Remove null bytes
	s = strings.ReplaceAll(s, "\x00", "")

	return s
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Field + ": " + e[0].Message
}

// Validate validates a request and returns errors
func Validate(validators ...func() *ValidationError) ValidationErrors {
	var errors ValidationErrors
	for _, v := range validators {
		if err := v(); err != nil {
			errors = append(errors, *err)
		}
	}
	return errors
}

// Required checks if a field is non-empty
func Required(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if strings.TrimSpace(value) == "" {
			return &ValidationError{Field: field, Message: "is required"}
		}
		return nil
	}
}

// MaxLength checks if a field exceeds max length
func MaxLength(field, value string, max int) func() *ValidationError {
	return func() *ValidationError {
		if len(value) > max {
			return &ValidationError{Field: field, Message: "exceeds maximum length"}
		}
		return nil
	}
}

// ValidScore checks if a numeric field is a score in [0, 1]
func ValidScore(field string, value float64) func() *ValidationError {
	return func() *ValidationError {
		if !IsValidScore(value) {
			return &ValidationError{Field: field, Message: "must be a finite value between 0 and 1"}
		}
		return nil
	}
}

// FiniteFeature checks that an optional feature value is finite when present
func FiniteFeature(field string, value *float64) func() *ValidationError {
	return func() *ValidationError {
		if value == nil {
			return nil
		}
		if !IsFinite(*value) {
			return &ValidationError{Field: field, Message: "must be a finite number"}
		}
		return nil
	}
}

// UserIDParamMiddleware validates the :userId URL parameter on routes that use it.
// Apply to route groups that include :userId params to reject malformed IDs early.
func UserIDParamMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("userId")
		if id != "" && len(id) > 128 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_user_id",
				"message": "userId exceeds maximum length",
			})
			return
		}
		c.Next()
	}
}
