package server

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"unicode"

	"minitweet/internal/models"
	"minitweet/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

var errMissingTweet = models.NewValidationError("tweet is required")

// flexID is a user or tweet id in a request body. It accepts a JSON number or
// a string holding a number.
type flexID struct {
	Value uint
	Set   bool
}

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = flexID{}
		return nil
	}

	raw := string(data)
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}

	// Accept integral floats such as 3.0.
	if n, err := strconv.ParseUint(raw, 10, 64); err == nil {
		*f = flexID{Value: uint(n), Set: true}
		return nil
	}
	if fl, err := strconv.ParseFloat(raw, 64); err == nil && fl >= 0 && fl == float64(uint64(fl)) {
		*f = flexID{Value: uint(fl), Set: true}
		return nil
	}
	return errors.New("id must be a non-negative integer")
}

// requireID returns the id or a validation error naming field.
func requireID(f flexID, field string) (uint, error) {
	if !f.Set {
		return 0, models.NewValidationError(field + " is required")
	}
	return f.Value, nil
}

// tagUser records the acting user on the request context so service and
// repository logs carry user_id.
func tagUser(c *fiber.Ctx, userID uint) {
	c.SetUserContext(context.WithValue(c.UserContext(), observability.UserIDKey, userID))
}

// parseBody decodes the JSON request body into dst.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return errResponseWritten
	}
	return nil
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "tweetId" -> "tweet ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		words := splitCamel(param[:len(param)-2])
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}

// respondError maps err to its HTTP status and writes the JSON error body.
func respondError(c *fiber.Ctx, err error) error {
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		observability.Logger.ErrorContext(c.UserContext(), "request error",
			"path", c.Path(), "error", err)
	}
	return models.RespondWithError(c, status, err)
}

// errorHandler renders errors that escape handlers, including Fiber's own
// routing errors, in the standard JSON shape.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	return respondError(c, err)
}
