package values

import "fmt"

// DirectSerializer stores string values verbatim.
type DirectSerializer struct{}

// NewDirectSerializer returns a passthrough serializer.
func NewDirectSerializer() *DirectSerializer {
	return &DirectSerializer{}
}

// Serialize implements Serializer. Only string-like values are accepted.
func (DirectSerializer) Serialize(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", &SerializationError{
			Serializer: DirectID,
			Op:         "serialize",
			Err:        fmt.Errorf("value of type %T cannot be stored verbatim", value),
		}
	}
}

// Deserialize implements Serializer.
func (DirectSerializer) Deserialize(serialized string) (any, error) {
	return serialized, nil
}
