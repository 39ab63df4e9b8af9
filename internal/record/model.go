package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Record is one registered text: the content captured from a scanned
// identification document plus its review state.
type Record struct {
	ID          int64
	Content     Content
	ContentHash string
	Status      bool
	Duplicated  bool // computed once at insert
	CreatedAt   time.Time
}

// Content holds the fields read from a document. Every field is always
// serialized, absent ones as "".
type Content struct {
	Name      string `json:"name"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	Section   string `json:"section"`
	Colony    string `json:"colony"`
	Request   string `json:"request"`
	Reference string `json:"reference"`
	CreatedBy string `json:"createdBy"`
}

// contentKeys pairs each field with the key older clients sent for it.
var contentKeys = []struct {
	canonical string
	legacy    string
	field     func(*Content) *string
}{
	{"name", "nombre", func(c *Content) *string { return &c.Name }},
	{"address", "domicilio", func(c *Content) *string { return &c.Address }},
	{"phone", "telefono", func(c *Content) *string { return &c.Phone }},
	{"section", "seccion", func(c *Content) *string { return &c.Section }},
	{"colony", "colonia", func(c *Content) *string { return &c.Colony }},
	{"request", "peticion", func(c *Content) *string { return &c.Request }},
	{"reference", "referencia", func(c *Content) *string { return &c.Reference }},
	{"createdBy", "creadopor", func(c *Content) *string { return &c.CreatedBy }},
}

// UnmarshalJSON accepts canonical and legacy keys. Strings are trimmed,
// numbers are kept as their literal text, and unknown keys are ignored.
func (c *Content) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: text must be a JSON object", ErrMalformedContent)
	}

	var out Content
	for _, k := range contentKeys {
		val, key, ok := lookup(raw, k.canonical, k.legacy)
		if !ok {
			continue
		}
		s, err := fieldText(val)
		if err != nil {
			return fmt.Errorf("%w: field %q %v", ErrMalformedContent, key, err)
		}
		*k.field(&out) = s
	}

	*c = out
	return nil
}

func lookup(raw map[string]json.RawMessage, keys ...string) (json.RawMessage, string, bool) {
	for _, key := range keys {
		val, ok := raw[key]
		if ok && !bytes.Equal(bytes.TrimSpace(val), []byte("null")) {
			return val, key, true
		}
	}
	return nil, "", false
}

func fieldText(val json.RawMessage) (string, error) {
	val = bytes.TrimSpace(val)
	if len(val) == 0 {
		return "", nil
	}

	switch val[0] {
	case '"':
		var s string
		if err := json.Unmarshal(val, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(val, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	default:
		return "", fmt.Errorf("must be a string or number")
	}
}

// Validate reports whether the content carries the fields every record needs.
func (c Content) Validate() error {
	if c.Name == "" || c.Phone == "" {
		return ErrInvalidContent
	}
	return nil
}

// Filter narrows a listing. Zero values match everything.
type Filter struct {
	Section    string
	Colony     string
	Duplicated *bool
}

// Match reports whether r passes the filter. Section and colony are
// case-insensitive substring matches.
func (f Filter) Match(r *Record) bool {
	if f.Duplicated != nil && r.Duplicated != *f.Duplicated {
		return false
	}
	if s := strings.TrimSpace(f.Section); s != "" &&
		!strings.Contains(strings.ToLower(r.Content.Section), strings.ToLower(s)) {
		return false
	}
	if s := strings.TrimSpace(f.Colony); s != "" &&
		!strings.Contains(strings.ToLower(r.Content.Colony), strings.ToLower(s)) {
		return false
	}
	return true
}

// ParseDuplicated reads the duplicated query value: "all" or "" for no
// restriction, "true" or "false" otherwise. The web client's "duplicated"
// and "notDuplicated" are accepted too.
func ParseDuplicated(val string) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "", "all":
		return nil, nil
	case "true", "duplicated":
		b := true
		return &b, nil
	case "false", "notduplicated":
		b := false
		return &b, nil
	default:
		return nil, ErrInvalidFilter
	}
}
