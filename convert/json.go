package convert

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/anirudhraja/protocodec/message"
	"github.com/anirudhraja/protocodec/schema"
)

// jsonAPI writes objects with sorted keys and reads numbers as json.Number.
var jsonAPI = jsoniter.Config{
	EscapeHTML:  true,
	SortMapKeys: true,
	UseNumber:   true,
}.Froze()

// JSONOptions is the option set ToJSON uses: 64-bit integers as decimal
// strings, enums by name, bytes as base64 and the protobuf JSON forms of
// non-finite floats and well-known types.
func JSONOptions() ToObjectOptions {
	return ToObjectOptions{
		Longs: LongsString,
		Enums: EnumsString,
		Bytes: BytesBase64,
		JSON:  true,
	}
}

// ToJSON converts m to its canonical JSON-ready plain form.
func ToJSON(m *message.Message) map[string]interface{} {
	return ToObject(m, JSONOptions())
}

// MarshalJSON serializes m in its ToJSON form.
func MarshalJSON(m *message.Message) ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	return jsonAPI.Marshal(ToJSON(m))
}

// ParseJSON decodes data into a plain object. Numbers stay json.Number so
// 64-bit values keep their precision.
func ParseJSON(data []byte) (interface{}, error) {
	var obj interface{}
	if err := jsonAPI.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return obj, nil
}

// UnmarshalJSON parses data as a JSON object and converts it with FromObject.
func UnmarshalJSON(data []byte, desc *schema.Message, r message.Resolver) (*message.Message, error) {
	obj, err := ParseJSON(data)
	if err != nil {
		return nil, err
	}
	return FromObject(obj, desc, r)
}
