package awr

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Project is a single project record as returned by the provider. The
// provider owns the schema; beyond id and name every field is passed through
// untouched.
type Project map[string]any

// ID returns the provider-assigned project ID normalized to a string. The
// provider emits it sometimes as a string, sometimes as a number.
func (p Project) ID() string {
	return stringify(p["id"])
}

// Name returns the project name, the lookup key for the details call.
func (p Project) Name() string {
	if s, ok := p["name"].(string); ok {
		return s
	}
	return stringify(p["name"])
}

// Envelope is the uniform result of every client operation. Exactly one of
// the data fields (Projects/Project/Raw) or Error is populated, never both.
// Warning marks a response that parsed but did not match any known shape;
// such responses stay success-shaped with the raw body passed through.
type Envelope struct {
	OK       bool           `json:"ok"`
	Projects []Project      `json:"projects,omitempty"`
	Project  map[string]any `json:"project,omitempty"`
	Raw      map[string]any `json:"raw,omitempty"`
	Warning  string         `json:"warning,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// errorEnvelope builds a failure envelope. Projects is a non-nil empty slice
// so callers can range over it without a nil check.
func errorEnvelope(msg string) Envelope {
	return Envelope{OK: false, Error: msg, Projects: []Project{}}
}

// stringify renders a JSON scalar as the string the provider would print.
// Numbers decoded as float64 lose their integer form; restore it.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
