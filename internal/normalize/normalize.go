// Package normalize decodes upstream JSON into uniform records.
//
// Each resource has one schema decoder. A decoder either returns fully
// populated records or a single MalformedResponse failure; absent optional
// nested fields default to empty values and are never an error. Only a
// missing or unreadable top-level payload fails.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"

	"nasa-explorer/internal/domain"
)

// Decoder turns a raw response body into records
type Decoder func(body []byte) (domain.Normalized, error)

var decoders = map[domain.Resource]Decoder{
	domain.ResourceApod:        decodeApod,
	domain.ResourceMarsPhotos:  decodeMars,
	domain.ResourceNeoFeed:     decodeNeo,
	domain.ResourceImageSearch: decodeSearch,
}

// Normalize decodes body with the resource's decoder
func Normalize(resource domain.Resource, body []byte) (domain.Normalized, error) {
	dec, ok := decoders[resource]
	if !ok {
		return domain.Normalized{}, domain.Malformed(fmt.Sprintf("no decoder for resource %q", resource), nil)
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return domain.Normalized{}, domain.Malformed("empty payload", nil)
	}
	return dec(trimmed)
}

func unmarshal(body []byte, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return domain.Malformed("unexpected JSON shape", err)
	}
	return nil
}

// flexString accepts a JSON string or number. Upstream APIs are inconsistent
// about numeric identifiers and measurements. Any other JSON type decodes
// to the empty string.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err == nil {
			*f = flexString(s)
		}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexString(n.String())
	}
	return nil
}

// flexFloat accepts a JSON number or a numeric string. Anything else,
// including non-finite values, leaves it unset.
type flexFloat struct {
	v *float64
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	var s flexString
	_ = s.UnmarshalJSON(b)
	f.v, _ = parseFinite(string(s))
	return nil
}

func (f flexFloat) ptr() *float64 {
	return f.v
}

// lenient decodes an optional nested value. A type mismatch keeps the zero
// value so one odd field cannot fail the whole response.
type lenient[T any] struct {
	V T
}

func (l *lenient[T]) UnmarshalJSON(b []byte) error {
	var v T
	if err := json.Unmarshal(b, &v); err == nil {
		l.V = v
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
