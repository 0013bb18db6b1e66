package sqsdispatch

import (
	"errors"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned when the input is not valid JSON.
var ErrInvalidJSON = errors.New("invalid JSON")

// Inspector examines raw bytes and returns a View for field queries.
type Inspector interface {
	Inspect(raw []byte) (View, error)
}

// View provides field access for discriminator matching. Paths use gjson
// syntax, so nested fields are addressed as "location.bucketName".
type View interface {
	// HasField returns true if the path exists.
	HasField(path string) bool

	// GetString returns the string value at path, or false if not found
	// or not a string.
	GetString(path string) (string, bool)

	// IsObject returns true if the path holds a JSON object.
	IsObject(path string) bool
}

// JSONInspector returns an Inspector that uses gjson for field access.
func JSONInspector() Inspector {
	return jsonInspector{}
}

type jsonInspector struct{}

func (jsonInspector) Inspect(raw []byte) (View, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidJSON
	}
	return jsonView{root: gjson.ParseBytes(raw)}, nil
}

type jsonView struct {
	root gjson.Result
}

func (v jsonView) HasField(path string) bool {
	return v.root.Get(path).Exists()
}

func (v jsonView) GetString(path string) (string, bool) {
	r := v.root.Get(path)
	if !r.Exists() || r.Type != gjson.String {
		return "", false
	}
	return r.String(), true
}

func (v jsonView) IsObject(path string) bool {
	return v.root.Get(path).IsObject()
}
