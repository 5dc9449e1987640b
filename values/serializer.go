package values

import (
	"errors"
	"fmt"
)

// Built-in serializer identifiers.
const (
	// DefaultID resolves to whatever default the Resolver was configured with.
	DefaultID  = "default"
	StandardID = "standard"
	DirectID   = "direct"
	JSONID     = "json"
)

// Serializer converts values to and from the opaque string stored in the
// value column. Implementations must not keep mutable state between calls
// and must round-trip every value they accept.
type Serializer interface {
	Serialize(value any) (string, error)
	Deserialize(serialized string) (any, error)
}

var (
	// ErrSerialization is matched by every SerializationError.
	ErrSerialization = errors.New("metafields: serialization failed")
	// ErrInvalidSerializer is matched by every InvalidSerializerError.
	ErrInvalidSerializer = errors.New("metafields: invalid serializer")
)

// SerializationError reports a value or payload a serializer cannot handle.
type SerializationError struct {
	Serializer string
	Op         string
	Err        error
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	return fmt.Sprintf("metafields: %s %s: %v", e.Serializer, e.Op, e.Err)
}

// Unwrap returns the codec error.
func (e *SerializationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrSerialization) hold.
func (e *SerializationError) Is(target error) bool {
	return target == ErrSerialization
}

// InvalidSerializerError reports an identifier that does not name a Serializer.
type InvalidSerializerError struct {
	ID     string
	Reason string
}

// Error implements the error interface.
func (e *InvalidSerializerError) Error() string {
	return fmt.Sprintf("metafields: invalid serializer %q: %s", e.ID, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidSerializer) hold.
func (e *InvalidSerializerError) Is(target error) bool {
	return target == ErrInvalidSerializer
}
