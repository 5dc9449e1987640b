package keys

import (
	"errors"
	"fmt"
)

// ErrInvalidKey is matched by every InvalidKeyError.
var ErrInvalidKey = errors.New("metafields: invalid key")

// InvalidKeyError reports a malformed, reserved or blocked key.
type InvalidKeyError struct {
	Key    any
	Reason string
}

// Error implements the error interface.
func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("metafields: invalid key %q: %s", fmt.Sprint(e.Key), e.Reason)
}

// Is makes errors.Is(err, ErrInvalidKey) hold.
func (e *InvalidKeyError) Is(target error) bool {
	return target == ErrInvalidKey
}
