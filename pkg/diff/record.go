package diff

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrShapeMismatch is matched by every *ShapeError.
var ErrShapeMismatch = errors.New("shape mismatch")

// ShapeError reports a record that lacks an attribute the engine relies on.
type ShapeError struct {
	Index     int
	Program   string
	Attribute string
}

func (e *ShapeError) Error() string {
	if e.Program != "" {
		return fmt.Sprintf("record %d (%s): missing or malformed %q", e.Index, e.Program, e.Attribute)
	}
	return fmt.Sprintf("record %d: missing or malformed %q", e.Index, e.Attribute)
}

func (e *ShapeError) Is(target error) bool { return target == ErrShapeMismatch }

// Record is one program on one platform, as published upstream.
type Record map[string]any

// Target is one scope asset of a program.
type Target map[string]any

// TargetSet holds the in-scope and out-of-scope targets of a program.
type TargetSet struct {
	InScope    []Target
	OutOfScope []Target
}

// Name returns the program name.
func (r Record) Name() string {
	s, _ := r[FieldName].(string)
	return s
}

// Targets decodes the targets attribute.
func (r Record) Targets() (TargetSet, error) {
	raw, ok := r[FieldTargets].(map[string]any)
	if !ok {
		return TargetSet{}, fmt.Errorf("missing %s", FieldTargets)
	}
	in, err := targetList(raw, "in_scope")
	if err != nil {
		return TargetSet{}, err
	}
	out, err := targetList(raw, "out_of_scope")
	if err != nil {
		return TargetSet{}, err
	}
	return TargetSet{InScope: in, OutOfScope: out}, nil
}

func targetList(raw map[string]any, key string) ([]Target, error) {
	v, ok := raw[key]
	if !ok {
		return nil, fmt.Errorf("missing %s.%s", FieldTargets, key)
	}
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s.%s is not a list", FieldTargets, key)
	}
	out := make([]Target, 0, len(items))
	for i, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s.%s[%d] is not an object", FieldTargets, key, i)
		}
		out = append(out, Target(m))
	}
	return out, nil
}

// ParsePrograms decodes a platform snapshot: a JSON array of program objects.
// Every record is checked for a name and a well-formed targets object.
func ParsePrograms(raw []byte) ([]Record, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrShapeMismatch)
	}
	res := gjson.ParseBytes(raw)
	if !res.IsArray() {
		return nil, fmt.Errorf("%w: expected a JSON array of programs", ErrShapeMismatch)
	}

	var records []Record
	var shapeErr error
	res.ForEach(func(_, value gjson.Result) bool {
		idx := len(records)
		m, ok := value.Value().(map[string]any)
		if !ok {
			shapeErr = &ShapeError{Index: idx, Attribute: "record"}
			return false
		}
		rec := Record(m)
		if err := validate(idx, rec); err != nil {
			shapeErr = err
			return false
		}
		records = append(records, rec)
		return true
	})
	if shapeErr != nil {
		return nil, shapeErr
	}
	return records, nil
}

func validate(idx int, rec Record) error {
	if _, ok := rec[FieldName].(string); !ok {
		return &ShapeError{Index: idx, Attribute: FieldName}
	}
	if _, err := rec.Targets(); err != nil {
		return &ShapeError{Index: idx, Program: rec.Name(), Attribute: FieldTargets}
	}
	return nil
}
