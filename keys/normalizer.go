package keys

import "fmt"

// DefaultAllFieldsKey is the reserved literal used for the "all fields" cache entry.
const DefaultAllFieldsKey = "__all_metafields__"

// Normalizer turns key inputs into canonical Keys. It holds no mutable state
// and can be shared.
type Normalizer struct {
	allFields string
	blocked   map[string]struct{}
}

// NewNormalizer creates a Normalizer that rejects allFields and every entry in blocked.
// An empty allFields falls back to DefaultAllFieldsKey.
func NewNormalizer(allFields string, blocked []string) *Normalizer {
	if allFields == "" {
		allFields = DefaultAllFieldsKey
	}
	set := make(map[string]struct{}, len(blocked))
	for _, b := range blocked {
		set[b] = struct{}{}
	}
	return &Normalizer{allFields: allFields, blocked: set}
}

// Normalize validates in and returns its canonical Key.
func (n *Normalizer) Normalize(in Input) (Key, error) {
	return n.normalize(in, false)
}

// NormalizeUnchecked converts in without the reserved and block-list checks.
// Enum values must still be string backed.
func (n *Normalizer) NormalizeUnchecked(in Input) (Key, error) {
	return n.normalize(in, true)
}

// NormalizeAll normalizes inputs in order and stops at the first invalid one.
func (n *Normalizer) NormalizeAll(inputs ...Input) ([]Key, error) {
	out := make([]Key, 0, len(inputs))
	for _, in := range inputs {
		k, err := n.Normalize(in)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

// AllFields returns the sentinel Key addressing the aggregate of every field.
func (n *Normalizer) AllFields() Key {
	return Key{value: n.allFields}
}

// IsBlocked reports whether s is the reserved literal or block-listed.
func (n *Normalizer) IsBlocked(s string) bool {
	if s == n.allFields {
		return true
	}
	_, ok := n.blocked[s]
	return ok
}

func (n *Normalizer) normalize(in Input, ignoreValidation bool) (Key, error) {
	if in == nil {
		return Key{}, &InvalidKeyError{Key: nil, Reason: "key is nil"}
	}

	raw, fromEnum := in.raw()
	s, ok := raw.(string)
	if !ok {
		reason := fmt.Sprintf("enum value of type %T is not a string", raw)
		if !fromEnum {
			reason = fmt.Sprintf("unsupported key type %T", raw)
		}
		return Key{}, &InvalidKeyError{Key: raw, Reason: reason}
	}

	if ignoreValidation {
		return Key{value: s}, nil
	}

	switch {
	case s == "":
		return Key{}, &InvalidKeyError{Key: s, Reason: "key is empty"}
	case s == n.allFields:
		return Key{}, &InvalidKeyError{Key: s, Reason: "key is reserved"}
	}
	if _, blocked := n.blocked[s]; blocked {
		return Key{}, &InvalidKeyError{Key: s, Reason: "key is not allowed"}
	}

	return Key{value: s}, nil
}
