package storage

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"

	"github.com/pixil98/go-errors"
)

var identifierPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// ValidatingSpec is anything that can be stored as an asset.
type ValidatingSpec interface {
	Validate() error
}

// Asset is the on-disk envelope around a spec.
type Asset[T ValidatingSpec] struct {
	Version    uint   `json:"version"`
	Identifier string `json:"id"`
	Spec       T      `json:"spec"`
}

func (a *Asset[T]) Validate() error {
	el := errors.NewErrorList()

	if a.Version == 0 {
		el.Add(fmt.Errorf("version must be set"))
	}

	switch {
	case a.Identifier == "":
		el.Add(fmt.Errorf("id must be set"))
	case !identifierPattern.MatchString(a.Identifier):
		el.Add(fmt.Errorf("id %q must be lowercase alphanumeric or hyphens", a.Identifier))
	}

	if v := reflect.ValueOf(a.Spec); !v.IsValid() || (v.Kind() == reflect.Pointer && v.IsNil()) {
		el.Add(fmt.Errorf("spec must be set"))
	} else {
		el.Add(a.Spec.Validate())
	}

	return el.Err()
}

// Ref is a reference by id to another asset. It marshals as the bare id and
// is bound to the referenced value with Resolve.
type Ref[T ValidatingSpec] struct {
	id  string
	val T
}

func NewRef[T ValidatingSpec](id string) Ref[T] {
	return Ref[T]{id: id}
}

func NewResolvedRef[T ValidatingSpec](id string, val T) Ref[T] {
	return Ref[T]{id: id, val: val}
}

func (r *Ref[T]) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &r.id)
}

func (r Ref[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.id)
}

func (r Ref[T]) Validate() error {
	if r.id == "" {
		return fmt.Errorf("%s reference is required", typeName[T]())
	}
	return nil
}

// Resolve looks the reference up in st.
func (r *Ref[T]) Resolve(st Storer[T]) error {
	val, ok := st.Get(r.id)
	if !ok {
		return fmt.Errorf("%s %q not found", typeName[T](), r.id)
	}
	r.val = val
	return nil
}

// ID returns the referenced id.
func (r Ref[T]) ID() string {
	return r.id
}

// Get returns the resolved value, or the zero value before Resolve.
func (r Ref[T]) Get() T {
	return r.val
}

func typeName[T any]() string {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
