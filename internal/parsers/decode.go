package parsers

import (
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"lottery-reconciliation-service/pkg/errors"
)

// Decode turns uploaded statement bytes into text. A UTF-8 or UTF-16
// byte-order mark selects the decoding and is dropped; without one the
// bytes are taken as UTF-8 and validated later by Tokenize.
func Decode(data []byte) (string, error) {
	decoder := unicode.BOMOverride(transform.Nop)
	out, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return "", errors.InputError(errors.CodeInvalidEncoding, len(data), 0, err)
	}
	return string(out), nil
}
