package csvbind

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Annotations maps slot names to their Column annotation. It lets the
// column layout live in a YAML file next to the data:
//
//	name:
//	  ordinal: 1
//	  required: true
//	amount:
//	  name: Amount
//	  ordinal: 2
//	  number_style: currency
//	  format: N2
type Annotations map[string]Column

// ParseAnnotations decodes a YAML annotation document. Unknown keys are rejected.
func ParseAnnotations(data []byte) (Annotations, error) {
	a := Annotations{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&a); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: annotations: %w", ErrInvalidConfig, err)
	}
	return a, nil
}

// Annotate returns a copy of slots with the matching annotations attached.
// An annotation naming no slot is an error.
func Annotate[T any](slots []Slot[T], a Annotations) ([]Slot[T], error) {
	out := make([]Slot[T], len(slots))
	seen := make(map[string]bool, len(a))
	for i, s := range slots {
		if col, ok := a[s.Name]; ok {
			s = s.With(col)
			seen[s.Name] = true
		}
		out[i] = s
	}
	for name := range a {
		if !seen[name] {
			return nil, fmt.Errorf("%w: annotation for unknown slot %q", ErrInvalidConfig, name)
		}
	}
	return out, nil
}
