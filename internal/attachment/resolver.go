package attachment

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Ref is the pair of persisted column values produced by Store and consumed
// by Fetch. Data holds either the base64 payload (inline mode) or a path
// relative to the storage root (filesystem mode). The zero Ref means no
// attachment was stored: optional specs produce it for an empty upload, and
// fetching it reports ErrNotFound because there is no payload to resolve.
type Ref struct {
	Name string
	Data string
}

// Resolver mediates reads and writes of attachment payloads. It is safe for
// concurrent use; the descriptor registry it works against is immutable.
type Resolver struct {
	root string
}

// NewResolver creates a resolver rooted at the given directory. The
// directory is created if it does not exist yet. Filesystem-mode payloads
// never leave this root.
func NewResolver(root string) (*Resolver, error) {
	if root == "" {
		return nil, fmt.Errorf("attachment storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create attachment root %s: %w", root, err)
	}
	return &Resolver{root: root}, nil
}

// Root returns the configured storage root directory.
func (r *Resolver) Root() string {
	return r.root
}

// Store normalizes a logical file into its persisted column values.
// Required specs reject empty names or payloads with ErrMissingRequired;
// optional specs map an empty upload to the zero Ref.
func (r *Resolver) Store(ctx context.Context, spec Spec, name string, data []byte) (Ref, error) {
	if err := spec.Validate(); err != nil {
		return Ref{}, err
	}
	if spec.Required && (name == "" || len(data) == 0) {
		return Ref{}, fmt.Errorf("%w: %s.%s requires a name and payload", ErrMissingRequired, spec.Table, spec.DataColumn)
	}
	if name == "" && len(data) == 0 {
		return Ref{}, nil
	}

	switch spec.Mode {
	case ModeInline:
		return Ref{
			Name: name,
			Data: base64.StdEncoding.EncodeToString(data),
		}, nil

	case ModeFilesystem:
		if err := ctx.Err(); err != nil {
			return Ref{}, err
		}

		// Unique filename so concurrent writers and re-uploads never
		// collide; the original name survives in the name column.
		filename := uuid.NewString() + "_" + sanitizeFilename(name)
		full, err := resolveUnderRoot(r.root, filename)
		if err != nil {
			return Ref{}, err
		}
		if err := os.WriteFile(full, data, 0o644); err != nil {
			return Ref{}, fmt.Errorf("failed to write attachment payload: %w", err)
		}
		return Ref{Name: name, Data: filename}, nil

	default:
		return Ref{}, fmt.Errorf("attachment spec for %s.%s has unknown mode %q", spec.Table, spec.DataColumn, spec.Mode)
	}
}

// Fetch resolves a persisted reference back into the original name and
// payload bytes. An empty reference fails with ErrMissingRequired on a
// required spec and ErrNotFound on an optional one (nothing was stored). A
// filesystem reference whose file has gone missing on disk fails with
// ErrNotFound; drift between database and filesystem is surfaced, never
// swallowed.
func (r *Resolver) Fetch(ctx context.Context, spec Spec, ref Ref) (string, []byte, error) {
	if err := spec.Validate(); err != nil {
		return "", nil, err
	}
	if ref.Data == "" {
		if spec.Required {
			return "", nil, fmt.Errorf("%w: %s.%s holds no reference", ErrMissingRequired, spec.Table, spec.DataColumn)
		}
		return "", nil, fmt.Errorf("%w: empty reference", ErrNotFound)
	}

	switch spec.Mode {
	case ModeInline:
		data, err := base64.StdEncoding.DecodeString(ref.Data)
		if err != nil {
			return "", nil, fmt.Errorf("failed to decode inline attachment: %w", err)
		}
		return ref.Name, data, nil

	case ModeFilesystem:
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}

		full, err := resolveUnderRoot(r.root, ref.Data)
		if err != nil {
			return "", nil, err
		}
		data, err := os.ReadFile(full)
		if err != nil {
			if os.IsNotExist(err) {
				return "", nil, fmt.Errorf("%w: %s missing on disk", ErrNotFound, ref.Data)
			}
			return "", nil, fmt.Errorf("failed to read attachment payload: %w", err)
		}
		return ref.Name, data, nil

	default:
		return "", nil, fmt.Errorf("attachment spec for %s.%s has unknown mode %q", spec.Table, spec.DataColumn, spec.Mode)
	}
}

// Remove deletes the filesystem payload behind a reference. Inline
// references carry their payload in the row and need no cleanup. Used to
// roll back an attachment write when the surrounding operation fails.
func (r *Resolver) Remove(ctx context.Context, spec Spec, ref Ref) error {
	if spec.Mode != ModeFilesystem || ref.Data == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	full, err := resolveUnderRoot(r.root, ref.Data)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove attachment payload: %w", err)
	}
	return nil
}

func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = filepath.Base(filepath.Clean(name))
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "attachment.bin"
	}
	return name
}
