package valueobjects

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrEmptyNodeID   = errors.New("node ID cannot be empty")
	ErrInvalidNodeID = errors.New("node ID must be a valid UUID")
)

// NewNodeID returns a fresh random node identifier
func NewNodeID() string {
	return uuid.New().String()
}

// ParseNodeID validates an externally supplied node identifier and returns it
// in canonical form
func ParseNodeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrEmptyNodeID
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", ErrInvalidNodeID
	}
	return parsed.String(), nil
}
