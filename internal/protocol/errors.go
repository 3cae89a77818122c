package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	segjson "github.com/segmentio/encoding/json"
	"github.com/tidwall/gjson"
)

// Error is the normalized shape of every server-side failure:
// {"error": ..., "reason": ..., "details": ...}.
type Error struct {
	Code    string          `json:"error,omitempty"`
	Reason  string          `json:"reason,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (e *Error) Error() string {
	switch {
	case e.Reason != "" && e.Code != "":
		return fmt.Sprintf("%s [%s]", e.Reason, e.Code)
	case e.Reason != "":
		return e.Reason
	case e.Code != "":
		return e.Code
	}
	return "unknown error"
}

// Is reports whether target is a *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Normalize coerces an arbitrary error value into an *Error.
// Falsy values (nil, false, "", 0) yield nil.
func Normalize(v any) *Error {
	switch e := v.(type) {
	case nil:
		return nil
	case *Error:
		return e
	case Error:
		return &e
	case json.RawMessage:
		return NormalizeRaw(e)
	case []byte:
		return NormalizeRaw(e)
	case string:
		if e == "" {
			return nil
		}
		return &Error{Code: e}
	case bool:
		if !e {
			return nil
		}
		return &Error{}
	case int:
		if e == 0 {
			return nil
		}
		return &Error{Code: fmt.Sprint(e)}
	case float64:
		if e == 0 {
			return nil
		}
		return &Error{Code: fmt.Sprint(e)}
	case map[string]any:
		return fromMap(e)
	case error:
		var pe *Error
		if errors.As(e, &pe) {
			return pe
		}
		return &Error{Code: e.Error()}
	}
	return &Error{}
}

// NormalizeRaw coerces a raw JSON error payload into an *Error.
func NormalizeRaw(raw json.RawMessage) *Error {
	if len(raw) == 0 {
		return nil
	}
	r := gjson.ParseBytes(raw)
	switch r.Type {
	case gjson.Null, gjson.False:
		return nil
	case gjson.String:
		if r.Str == "" {
			return nil
		}
		return &Error{Code: r.Str}
	case gjson.Number:
		if r.Num == 0 {
			return nil
		}
		return &Error{Code: r.Raw}
	case gjson.JSON:
		if !r.IsObject() {
			return &Error{}
		}
		e := &Error{
			Code:   r.Get("error").String(),
			Reason: r.Get("reason").String(),
		}
		if d := r.Get("details"); d.Exists() && d.Type != gjson.Null {
			e.Details = json.RawMessage(d.Raw)
		}
		return e
	}
	return &Error{}
}

func fromMap(m map[string]any) *Error {
	e := &Error{}
	if code, ok := m["error"]; ok && code != nil {
		e.Code = fmt.Sprint(code)
	}
	if reason, ok := m["reason"].(string); ok {
		e.Reason = reason
	}
	if details, ok := m["details"]; ok && details != nil {
		if data, err := segjson.Marshal(details); err == nil {
			e.Details = data
		}
	}
	return e
}
