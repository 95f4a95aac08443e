package ranking

import (
	"math"
	"slices"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Place-Ranking-Platform/pkg/errors"
)

func ValidateType(t Type) error {
	if !slices.Contains(Types, t) {
		names := make([]string, len(Types))
		for i, v := range Types {
			names[i] = string(v)
		}
		return apperrors.InvalidInput("invalid ranking type %q: must be one of %s", t, strings.Join(names, ", "))
	}
	return nil
}

// ValidateGenre accepts the empty string as "no filter".
func ValidateGenre(genre string) error {
	if genre == "" || slices.Contains(Genres, genre) {
		return nil
	}
	return apperrors.InvalidInput("invalid genre %q: must be one of %s", genre, strings.Join(Genres, ", "))
}

func ValidatePage(page float64) error {
	if !isInteger(page) || page < 1 || page > MaxPage {
		return apperrors.InvalidInput("invalid page %v: must be an integer between 1 and %d", page, MaxPage)
	}
	return nil
}

func ValidateLimit(limit float64) error {
	if !isInteger(limit) || limit < MinLimit || limit > MaxLimit {
		return apperrors.InvalidInput("invalid limit %v: must be an integer between %d and %d", limit, MinLimit, MaxLimit)
	}
	return nil
}

// ValidateRequest checks type, genre, page and limit in that order and
// returns the first failure. Absent page and limit are valid.
func ValidateRequest(req Request) error {
	if err := ValidateType(req.Type); err != nil {
		return err
	}
	if err := ValidateGenre(req.Genre); err != nil {
		return err
	}
	if req.Page != nil {
		if err := ValidatePage(*req.Page); err != nil {
			return err
		}
	}
	if req.Limit != nil {
		if err := ValidateLimit(*req.Limit); err != nil {
			return err
		}
	}
	return nil
}

// SanitizePage never fails: absent, zero or fractional input gives 1, and
// anything else is clamped to [1, MaxPage].
func SanitizePage(page *float64) int {
	if page == nil || *page == 0 || !isInteger(*page) {
		return 1
	}
	return int(math.Max(1, math.Min(*page, MaxPage)))
}

// SanitizeLimit never fails: absent, zero or fractional input gives def, and
// the result, def included, is clamped to [MinLimit, MaxLimit].
func SanitizeLimit(limit *float64, def int) int {
	v := float64(def)
	if limit != nil && *limit != 0 && isInteger(*limit) {
		v = *limit
	}
	return int(math.Max(MinLimit, math.Min(v, MaxLimit)))
}

func isInteger(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v == math.Trunc(v)
}
