package httputil

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/connectors/internal/errors"
)

// Page size bounds of listing endpoints.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

var (
	errInvalidOffset = apperrors.Wrap(apperrors.ErrInvalidInput, "invalid offset parameter: must be a non-negative integer")
	errInvalidLimit  = apperrors.Wrapf(apperrors.ErrInvalidInput, "invalid limit parameter: must be between 1 and %d", MaxPageLimit)
)

// ParsePagination parses the offset and limit query parameters. Offset defaults to 0 and
// limit to DefaultPageLimit; errors wrap ErrInvalidInput.
func ParsePagination(c *gin.Context) (offset, limit int, err error) {
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		return 0, 0, errInvalidOffset
	}

	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultPageLimit)))
	if err != nil || limit < 1 || limit > MaxPageLimit {
		return 0, 0, errInvalidLimit
	}

	return offset, limit, nil
}
