package metafields

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-metafields/keys"
	"github.com/goliatone/go-metafields/values"
)

var (
	// ErrModelNotSet is matched by every ModelNotSetError.
	ErrModelNotSet = errors.New("metafields: model not set")
	// ErrDuplicateKey is matched by every DuplicateKeyError.
	ErrDuplicateKey = errors.New("metafields: duplicate key")
	// ErrMethodNotAllowed is matched by every MethodNotAllowedError.
	ErrMethodNotAllowed = errors.New("metafields: method not allowed")

	ErrInvalidKey        = keys.ErrInvalidKey
	ErrInvalidSerializer = values.ErrInvalidSerializer
	ErrSerialization     = values.ErrSerialization
)

// Errors raised by the packages the engine is built on.
type (
	InvalidKeyError        = keys.InvalidKeyError
	InvalidSerializerError = values.InvalidSerializerError
	SerializationError     = values.SerializationError
)

// ModelNotSetError is returned by data operations on an engine with no bound model.
type ModelNotSetError struct {
	Op string
}

// Error implements the error interface.
func (e *ModelNotSetError) Error() string {
	return fmt.Sprintf("metafields: %s: no model set, call SetModel first", e.Op)
}

// Is makes errors.Is(err, ErrModelNotSet) hold.
func (e *ModelNotSetError) Is(target error) bool {
	return target == ErrModelNotSet
}

// DuplicateKeyError is returned when a key already has a serializer binding.
type DuplicateKeyError struct {
	Key      string
	Existing string
}

// Error implements the error interface.
func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("metafields: key %q is already mapped to serializer %q", e.Key, e.Existing)
}

// Is makes errors.Is(err, ErrDuplicateKey) hold.
func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// MethodNotAllowedError is returned by the cache-free view for anything but reads.
type MethodNotAllowedError struct {
	Method  string
	Allowed []string
}

// Error implements the error interface.
func (e *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("metafields: method %q is not allowed without cache, allowed methods: %s",
		e.Method, strings.Join(e.Allowed, ", "))
}

// Is makes errors.Is(err, ErrMethodNotAllowed) hold.
func (e *MethodNotAllowedError) Is(target error) bool {
	return target == ErrMethodNotAllowed
}
