package reconciler

import (
	"strings"

	"lottery-reconciliation-service/internal/parsers"
	"lottery-reconciliation-service/pkg/errors"
)

// DefaultMaxInputBytes bounds a single pasted or uploaded statement.
const DefaultMaxInputBytes = 2_000_000

// InputChecker rejects statements the engine should never see.
type InputChecker struct {
	maxBytes int
}

// NewInputChecker creates a checker; a non-positive limit uses the default
func NewInputChecker(maxBytes int) *InputChecker {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxInputBytes
	}
	return &InputChecker{maxBytes: maxBytes}
}

// CheckText rejects blank text and text over the byte limit
func (c *InputChecker) CheckText(text string) error {
	if len(text) > c.maxBytes {
		return errors.InputError(errors.CodeInputTooLarge, len(text), c.maxBytes, nil)
	}
	if strings.TrimSpace(strings.TrimPrefix(text, "\uFEFF")) == "" {
		return errors.InputError(errors.CodeEmptyInput, 0, c.maxBytes, nil)
	}
	return nil
}

// CheckBytes applies the size limit to raw upload bytes, then decodes
// and checks the text.
func (c *InputChecker) CheckBytes(data []byte) (string, error) {
	if len(data) > c.maxBytes {
		return "", errors.InputError(errors.CodeInputTooLarge, len(data), c.maxBytes, nil)
	}
	text, err := parsers.Decode(data)
	if err != nil {
		return "", err
	}
	if err := c.CheckText(text); err != nil {
		return "", err
	}
	return text, nil
}

// MaxBytes returns the configured limit
func (c *InputChecker) MaxBytes() int {
	return c.maxBytes
}
