package keys

import "fmt"

// Key is a validated metafield key. The zero value is not a valid key and
// is only produced on error paths.
type Key struct {
	value string
}

// String returns the canonical string form stored in the key column.
func (k Key) String() string {
	return k.value
}

// IsZero reports whether k was never minted by a Normalizer.
func (k Key) IsZero() bool {
	return k.value == ""
}

// Input is the closed set of values a Normalizer accepts: Raw strings,
// enums wrapped with FromEnum and already canonical Keys.
type Input interface {
	raw() (any, bool)
}

// Raw is a plain string key.
type Raw string

func (r Raw) raw() (any, bool) { return string(r), false }

func (k Key) raw() (any, bool) { return k.value, false }

// Enum is implemented by enumerated key types. MetafieldKey returns the
// backing value; only string backed enums produce valid keys.
type Enum interface {
	MetafieldKey() any
}

type enumInput struct {
	enum Enum
}

func (e enumInput) raw() (any, bool) { return e.enum.MetafieldKey(), true }

// FromEnum wraps an enumerated key so it can be passed where an Input is expected.
func FromEnum(e Enum) Input {
	return enumInput{enum: e}
}

// Of converts loosely typed input, as found in CLI arguments or decoded
// payloads, into an Input. Anything outside string, Key, Enum and
// fmt.Stringer is rejected.
func Of(v any) (Input, error) {
	switch t := v.(type) {
	case Input:
		return t, nil
	case string:
		return Raw(t), nil
	case Enum:
		return FromEnum(t), nil
	case fmt.Stringer:
		return Raw(t.String()), nil
	default:
		return nil, &InvalidKeyError{Key: v, Reason: fmt.Sprintf("unsupported key type %T", v)}
	}
}
