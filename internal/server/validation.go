package server

import (
	"errors"
	"fmt"
	"strings"
)

const (
	maxTitleLength   = 200
	maxCommentLength = 600
	maxLabelLength   = 200
	maxURLLength     = 600
	minScore         = 1
	maxScore         = 10
)

// isSet is the shared presence predicate: a string field counts as set
// only when it is non-nil and non-empty after trimming. The lifecycle
// engine and the metadata merge both use these helpers so null handling
// cannot diverge.
func isSet(value *string) bool {
	return value != nil && strings.TrimSpace(*value) != ""
}

func intSet(value *int) bool {
	return value != nil
}

func floatSet(value *float64) bool {
	return value != nil
}

func strptr(value string) *string {
	return &value
}

// titleKey normalizes a title for the case/whitespace-insensitive
// uniqueness check across non-deleted games.
func titleKey(title string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(title)))
	return strings.Join(fields, " ")
}

func validateTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", errors.New("title is required")
	}
	if len(trimmed) > maxTitleLength {
		return "", fmt.Errorf("title must be %d characters or fewer", maxTitleLength)
	}
	return trimmed, nil
}

func validateScore(score int) error {
	if score < minScore || score > maxScore {
		return errInvalidScore
	}
	return nil
}

func validateURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("url is required")
	}
	if len(trimmed) > maxURLLength {
		return "", fmt.Errorf("url must be %d characters or fewer", maxURLLength)
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		return "", errors.New("url must start with http:// or https://")
	}
	return trimmed, nil
}

func validateLabel(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) > maxLabelLength {
		return "", fmt.Errorf("label must be %d characters or fewer", maxLabelLength)
	}
	return trimmed, nil
}
