package errors

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// MaxMapTiles bounds the number of tiles a single occupancy map may hold.
// Visibility sets are quadratic in the tile count, so anything larger is
// rejected up front rather than exhausting memory halfway through a build.
const MaxMapTiles = 1 << 20

// ValidateMapDimensions validates the width and height of an occupancy map.
//
// Validation rules:
//   - Width and height must both be positive
//   - width*height must not exceed MaxMapTiles
func ValidateMapDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return New(ErrCodeInvalidMap, "map dimensions must be positive, got %dx%d", width, height)
	}
	if width > MaxMapTiles/height {
		return New(ErrCodeInvalidMap, "map too large: %dx%d exceeds %d tiles", width, height, MaxMapTiles)
	}
	return nil
}

// ValidatePositive reports an INVALID_OPTION error when v < 1.
func ValidatePositive(name string, v int) error {
	if v < 1 {
		return New(ErrCodeInvalidOption, "%s must be >= 1, got %d", name, v)
	}
	return nil
}

// ValidateNonNegative reports an INVALID_OPTION error when v is negative,
// NaN or infinite.
func ValidateNonNegative(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return New(ErrCodeInvalidOption, "%s must be a finite non-negative number, got %v", name, v)
	}
	return nil
}

// ValidateOneOf reports an INVALID_OPTION error when value is not a key of
// allowed. The message lists the accepted values in sorted order.
func ValidateOneOf(name, value string, allowed map[string]bool) error {
	if allowed[value] {
		return nil
	}
	keys := make([]string, 0, len(allowed))
	for k := range allowed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return New(ErrCodeInvalidOption, "invalid %s %q (valid: %s)", name, value, strings.Join(keys, ", "))
}

// ValidatePath validates a user-supplied file path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	return nil
}
