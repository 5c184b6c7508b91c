// Package attachment implements the logical-file convention used by
// document-bearing tables: a (name, data) column pair whose physical storage
// is described by a static, schema-time descriptor rather than per-row
// metadata. Descriptors are registered once at startup and never change for
// the lifetime of the process.
package attachment

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingRequired is returned when a required attachment has an
	// empty name or payload.
	ErrMissingRequired = errors.New("required attachment is missing")
	// ErrInvalidPath is returned when a filesystem reference would resolve
	// outside the configured storage root.
	ErrInvalidPath = errors.New("invalid attachment path")
	// ErrNotFound is returned when a filesystem reference points at a file
	// that no longer exists on disk.
	ErrNotFound = errors.New("attachment not found")
)

// Mode selects where the attachment payload physically lives.
type Mode string

const (
	// ModeInline stores the payload directly in the data column, base64
	// encoded.
	ModeInline Mode = "inline"
	// ModeFilesystem stores the payload on disk under the storage root;
	// the data column holds the root-relative path.
	ModeFilesystem Mode = "filesystem"
)

// Spec describes one file-bearing column. It is bound to a column, not a
// row: all rows of the table share the same descriptor.
type Spec struct {
	Table      string
	DataColumn string
	NameColumn string
	Base       string
	Mode       Mode
	Required   bool
}

// Validate checks the descriptor itself, not a payload.
func (s Spec) Validate() error {
	if s.Table == "" || s.DataColumn == "" || s.NameColumn == "" || s.Base == "" {
		return fmt.Errorf("attachment spec for %q.%q is incomplete", s.Table, s.DataColumn)
	}
	if s.Mode != ModeInline && s.Mode != ModeFilesystem {
		return fmt.Errorf("attachment spec for %q.%q has unknown mode %q", s.Table, s.DataColumn, s.Mode)
	}
	return nil
}

// Registry holds the process-wide set of attachment descriptors keyed by
// table and data column.
type Registry struct {
	specs map[string]Spec
}

func specKey(table, column string) string {
	return table + "." + column
}

// NewRegistry builds an immutable registry from the given descriptors.
func NewRegistry(specs ...Spec) (*Registry, error) {
	r := &Registry{specs: make(map[string]Spec, len(specs))}
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		key := specKey(s.Table, s.DataColumn)
		if _, ok := r.specs[key]; ok {
			return nil, fmt.Errorf("duplicate attachment spec for %s", key)
		}
		r.specs[key] = s
	}
	return r, nil
}

// Lookup returns the descriptor bound to the given table and data column.
func (r *Registry) Lookup(table, column string) (Spec, bool) {
	s, ok := r.specs[specKey(table, column)]
	return s, ok
}

// DefaultRegistry returns the descriptors for the shipped schema: the
// mandatory order document pair.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Spec{
		Table:      "orders",
		DataColumn: "document_data",
		NameColumn: "document_name",
		Base:       "document",
		Mode:       ModeFilesystem,
		Required:   true,
	})
	if err != nil {
		// Static descriptors above; failure here is a programming error.
		panic(err)
	}
	return r
}
