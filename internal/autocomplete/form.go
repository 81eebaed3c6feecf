package autocomplete

import (
	"strings"
	"sync"
)

// Class names applied to fields while loading and while locked.
const (
	LoadingClass = "is-loading"
	LockedClass  = "bg-light"
)

// FieldAccessor is the form the engine reads and writes. Selectors are
// "#id", ".class" (first match), or a bare id. Operations on a missing field
// are no-ops that report false.
type FieldAccessor interface {
	Has(selector string) bool
	Value(selector string) (string, bool)
	SetValue(selector, value string) bool
	Lock(selector string) bool
	Unlock(selector string) bool
	Locked(selector string) bool
	SetLoading(selector string, loading bool)
}

// Field is a snapshot of one MemoryForm field.
type Field struct {
	ID       string
	Classes  []string
	Value    string
	ReadOnly bool
}

// HasClass reports whether the field carries class c.
func (f Field) HasClass(c string) bool {
	for _, x := range f.Classes {
		if x == c {
			return true
		}
	}
	return false
}

// MemoryForm is an in-memory FieldAccessor. It is safe for concurrent use.
type MemoryForm struct {
	mu     sync.RWMutex
	fields []*Field
}

// NewMemoryForm creates a form with one field per id.
func NewMemoryForm(ids ...string) *MemoryForm {
	f := &MemoryForm{}
	for _, id := range ids {
		f.AddField(id)
	}
	return f
}

// AddField appends a field and returns the form.
func (f *MemoryForm) AddField(id string, classes ...string) *MemoryForm {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields = append(f.fields, &Field{ID: id, Classes: append([]string(nil), classes...)})
	return f
}

// Type sets a field value the way a user would, ignoring the read-only flag.
func (f *MemoryForm) Type(selector, value string) bool {
	return f.SetValue(selector, value)
}

// Field returns a copy of the field matching selector.
func (f *MemoryForm) Field(selector string) (Field, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	fld := f.find(selector)
	if fld == nil {
		return Field{}, false
	}
	out := *fld
	out.Classes = append([]string(nil), fld.Classes...)
	return out, true
}

// Fields returns copies of every field in insertion order.
func (f *MemoryForm) Fields() []Field {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Field, 0, len(f.fields))
	for _, fld := range f.fields {
		c := *fld
		c.Classes = append([]string(nil), fld.Classes...)
		out = append(out, c)
	}
	return out
}

func (f *MemoryForm) Has(selector string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.find(selector) != nil
}

func (f *MemoryForm) Value(selector string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	fld := f.find(selector)
	if fld == nil {
		return "", false
	}
	return fld.Value, true
}

func (f *MemoryForm) SetValue(selector, value string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	fld := f.find(selector)
	if fld == nil {
		return false
	}
	fld.Value = value
	return true
}

func (f *MemoryForm) Lock(selector string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	fld := f.find(selector)
	if fld == nil {
		return false
	}
	fld.ReadOnly = true
	fld.Classes = addClass(fld.Classes, LockedClass)
	return true
}

func (f *MemoryForm) Unlock(selector string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	fld := f.find(selector)
	if fld == nil {
		return false
	}
	fld.ReadOnly = false
	fld.Classes = removeClass(fld.Classes, LockedClass)
	return true
}

func (f *MemoryForm) Locked(selector string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	fld := f.find(selector)
	return fld != nil && fld.ReadOnly
}

func (f *MemoryForm) SetLoading(selector string, loading bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fld := f.find(selector)
	if fld == nil {
		return
	}
	if loading {
		fld.Classes = addClass(fld.Classes, LoadingClass)
	} else {
		fld.Classes = removeClass(fld.Classes, LoadingClass)
	}
}

// find resolves a selector. Callers hold f.mu.
func (f *MemoryForm) find(selector string) *Field {
	switch {
	case strings.HasPrefix(selector, "."):
		class := selector[1:]
		for _, fld := range f.fields {
			if fld.HasClass(class) {
				return fld
			}
		}
		return nil
	case strings.HasPrefix(selector, "#"):
		selector = selector[1:]
	}
	for _, fld := range f.fields {
		if fld.ID == selector {
			return fld
		}
	}
	return nil
}

func addClass(classes []string, c string) []string {
	for _, x := range classes {
		if x == c {
			return classes
		}
	}
	return append(classes, c)
}

func removeClass(classes []string, c string) []string {
	out := classes[:0]
	for _, x := range classes {
		if x != c {
			out = append(out, x)
		}
	}
	return out
}
