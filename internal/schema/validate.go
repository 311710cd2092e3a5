package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"lifedash/internal/core"
)

// Normalize prepares a client document for storage. The id and any field the
// schema does not know are dropped, defaults are applied and every rule is
// checked. All offending fields are reported in one *core.ValidationError.
func (s *Schema) Normalize(in Document) (Document, error) {
	out, verr := normalize(s.Fields, in, "")
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

// Merge overlays partial onto stored and re-validates the result. Top-level
// fields are replaced wholesale; an explicit null clears the field. The id of
// stored is preserved.
func (s *Schema) Merge(stored, partial Document) (Document, error) {
	merged := stored.Clone()
	if merged == nil {
		merged = Document{}
	}
	for k, v := range partial {
		if k == "id" {
			continue
		}
		if v == nil {
			f, ok := s.Field(k)
			if ok && f.Nullable {
				merged[k] = nil
			} else {
				delete(merged, k)
			}
			continue
		}
		merged[k] = v
	}

	out, err := s.Normalize(merged)
	if err != nil {
		return nil, err
	}
	if id := stored.ID(); id != "" {
		out["id"] = id
	}
	return out, nil
}

func normalize(fields []Field, in Document, prefix string) (Document, *core.ValidationError) {
	verr := &core.ValidationError{}
	out := make(Document, len(fields))

	for _, f := range fields {
		v, present := in[f.Name]
		if present && v == nil && !f.Nullable {
			present = false
		}

		if !present {
			switch {
			case f.Default != nil:
				out[f.Name] = f.Default()
			case f.Required:
				verr.Add(prefix+f.Name, "is required")
			case f.Nullable:
				out[f.Name] = nil
			}
			continue
		}

		if v == nil {
			if f.Required {
				verr.Add(prefix+f.Name, "is required")
				continue
			}
			out[f.Name] = nil
			continue
		}

		nv, ok := check(f, v, prefix, verr)
		if ok {
			out[f.Name] = nv
		}
	}
	return out, verr
}

func check(f Field, v any, prefix string, verr *core.ValidationError) (any, bool) {
	name := prefix + f.Name

	switch f.Type {
	case String:
		s, ok := v.(string)
		if !ok {
			verr.Add(name, "must be a string")
			return nil, false
		}
		if f.Required && strings.TrimSpace(s) == "" {
			verr.Add(name, "is required")
			return nil, false
		}
		if len(f.Enum) > 0 && !contains(f.Enum, s) {
			verr.Add(name, "must be one of: "+strings.Join(f.Enum, ", "))
			return nil, false
		}
		return s, true

	case Bool:
		b, ok := v.(bool)
		if !ok {
			verr.Add(name, "must be a boolean")
			return nil, false
		}
		return b, true

	case Number, Integer:
		n, ok := toFloat(v)
		if !ok {
			verr.Add(name, "must be a number")
			return nil, false
		}
		if f.Type == Integer && n != math.Trunc(n) {
			verr.Add(name, "must be an integer")
			return nil, false
		}
		if f.Type == Integer && (n < math.MinInt32 || n > math.MaxInt32) {
			verr.Add(name, "is out of range")
			return nil, false
		}
		if f.Positive && n <= 0 {
			verr.Add(name, "must be greater than 0")
			return nil, false
		}
		if f.NonNegative && n < 0 {
			verr.Add(name, "must not be negative")
			return nil, false
		}
		return n, true

	case Timestamp:
		s, ok := v.(string)
		if !ok || !validTimestamp(s) {
			verr.Add(name, "must be an ISO 8601 timestamp")
			return nil, false
		}
		return s, true

	case TimestampList:
		items, ok := toList(v)
		if !ok {
			verr.Add(name, "must be a list of timestamps")
			return nil, false
		}
		out := make([]any, 0, len(items))
		for i, item := range items {
			s, ok := item.(string)
			if !ok || !validTimestamp(s) {
				verr.Add(fmt.Sprintf("%s[%d]", name, i), "must be an ISO 8601 timestamp")
				return nil, false
			}
			out = append(out, s)
		}
		return out, true

	case ObjectList:
		items, ok := toList(v)
		if !ok {
			verr.Add(name, "must be a list")
			return nil, false
		}
		out := make([]any, 0, len(items))
		valid := true
		for i, item := range items {
			obj, ok := toDocument(item)
			elemPrefix := fmt.Sprintf("%s[%d].", name, i)
			if !ok {
				verr.Add(strings.TrimSuffix(elemPrefix, "."), "must be an object")
				valid = false
				continue
			}
			elem, elemErr := normalize(f.Elem, obj, "")
			verr.Merge(elemPrefix, elemErr)
			if elemErr.OrNil() != nil {
				valid = false
				continue
			}
			out = append(out, map[string]any(elem))
		}
		return out, valid
	}

	verr.Add(name, "has an unsupported type")
	return nil, false
}

func validTimestamp(s string) bool {
	_, err := core.ParseTimestamp(s, time.UTC)
	return err == nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(l))
		for i, m := range l {
			out[i] = m
		}
		return out, true
	default:
		return nil, false
	}
}

func toDocument(v any) (Document, bool) {
	switch m := v.(type) {
	case map[string]any:
		return Document(m), true
	case Document:
		return m, true
	default:
		return nil, false
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
