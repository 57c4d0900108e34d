package validation

import (
	"math"
	"strconv"
	"strings"

	"github.com/lyzr/chainquery/common/federation"
)

// QueryValidator normalizes client query parameters
type QueryValidator struct {
	defaultSize int64
	maxSize     int64
}

// NewQueryValidator creates a validator. Sizes below 1 fall back to 10.
func NewQueryValidator(defaultSize, maxSize int) *QueryValidator {
	v := &QueryValidator{defaultSize: int64(defaultSize), maxSize: int64(maxSize)}
	if v.defaultSize < 1 {
		v.defaultSize = 10
	}
	if v.maxSize < v.defaultSize {
		v.maxSize = v.defaultSize
	}
	return v
}

// ParsePage reads page and limit. Missing, non-numeric or non-positive
// values fall back to page 1 and the default size; limit is capped at the
// maximum size. The page number is capped so its offset fits in an int64.
func (v *QueryValidator) ParsePage(page, limit string) federation.Page {
	p := federation.Page{
		Number: positiveOr(page, 1),
		Size:   positiveOr(limit, v.defaultSize),
	}
	if p.Size > v.maxSize {
		p.Size = v.maxSize
	}
	if last := math.MaxInt64/p.Size + 1; p.Number > last {
		p.Number = last
	}
	return p
}

// SearchTerm returns raw as given, or a MissingSearchField error when it is
// empty. Blanks are part of the term.
func (v *QueryValidator) SearchTerm(raw string) (string, error) {
	if raw == "" {
		return "", federation.NewError(federation.KindMissingSearchField, "SearchField required", nil)
	}
	return raw, nil
}

func positiveOr(raw string, fallback int64) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
