package attachment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func inlineSpec(required bool) Spec {
	return Spec{
		Table:      "orders",
		DataColumn: "document_data",
		NameColumn: "document_name",
		Base:       "document",
		Mode:       ModeInline,
		Required:   required,
	}
}

func filesystemSpec(required bool) Spec {
	s := inlineSpec(required)
	s.Mode = ModeFilesystem
	return s
}

func TestInlineRoundTrip(t *testing.T) {
	resolver, err := NewResolver(t.TempDir())
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	ctx := context.Background()

	payload := []byte("contract body \x00\x01 binary")
	ref, err := resolver.Store(ctx, inlineSpec(true), "contract.pdf", payload)
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if ref.Data == string(payload) {
		t.Fatalf("inline payload stored verbatim, expected encoded form")
	}

	name, data, err := resolver.Fetch(ctx, inlineSpec(true), ref)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if name != "contract.pdf" || string(data) != string(payload) {
		t.Fatalf("round trip mismatch: name=%q len=%d", name, len(data))
	}
}

func TestFilesystemRoundTrip(t *testing.T) {
	root := t.TempDir()
	resolver, err := NewResolver(root)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	ctx := context.Background()

	ref, err := resolver.Store(ctx, filesystemSpec(true), "scan.png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if filepath.IsAbs(ref.Data) {
		t.Fatalf("reference should be root-relative, got %q", ref.Data)
	}
	if _, err := os.Stat(filepath.Join(root, ref.Data)); err != nil {
		t.Fatalf("payload not written: %v", err)
	}

	name, data, err := resolver.Fetch(ctx, filesystemSpec(true), ref)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if name != "scan.png" || string(data) != "png-bytes" {
		t.Fatalf("round trip mismatch: name=%q data=%q", name, data)
	}
}

func TestFilesystemDriftSurfacesNotFound(t *testing.T) {
	root := t.TempDir()
	resolver, err := NewResolver(root)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	ctx := context.Background()

	ref, err := resolver.Store(ctx, filesystemSpec(true), "scan.png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	// Delete the payload behind the resolver's back.
	if err := os.Remove(filepath.Join(root, ref.Data)); err != nil {
		t.Fatalf("remove payload: %v", err)
	}

	if _, _, err := resolver.Fetch(ctx, filesystemSpec(true), ref); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRequiredAttachmentRejectsEmpty(t *testing.T) {
	resolver, err := NewResolver(t.TempDir())
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	ctx := context.Background()

	if _, err := resolver.Store(ctx, filesystemSpec(true), "", []byte("data")); !errors.Is(err, ErrMissingRequired) {
		t.Fatalf("expected ErrMissingRequired for empty name, got %v", err)
	}
	if _, err := resolver.Store(ctx, filesystemSpec(true), "doc.txt", nil); !errors.Is(err, ErrMissingRequired) {
		t.Fatalf("expected ErrMissingRequired for empty payload, got %v", err)
	}
	if _, _, err := resolver.Fetch(ctx, filesystemSpec(true), Ref{}); !errors.Is(err, ErrMissingRequired) {
		t.Fatalf("expected ErrMissingRequired for empty reference, got %v", err)
	}
}

func TestOptionalAttachmentEmptyUpload(t *testing.T) {
	resolver, err := NewResolver(t.TempDir())
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	ctx := context.Background()

	ref, err := resolver.Store(ctx, filesystemSpec(false), "", nil)
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if ref != (Ref{}) {
		t.Fatalf("empty optional upload should yield the zero Ref, got %+v", ref)
	}

	// Nothing was stored, so the zero Ref resolves to nothing.
	if _, _, err := resolver.Fetch(ctx, filesystemSpec(false), ref); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for zero Ref, got %v", err)
	}
}

func TestFetchRejectsEscapingReference(t *testing.T) {
	resolver, err := NewResolver(t.TempDir())
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	ctx := context.Background()

	ref := Ref{Name: "evil", Data: "../../etc/passwd"}
	if _, _, err := resolver.Fetch(ctx, filesystemSpec(true), ref); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
}

func TestRemoveDeletesFilesystemPayload(t *testing.T) {
	root := t.TempDir()
	resolver, err := NewResolver(root)
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	ctx := context.Background()

	ref, err := resolver.Store(ctx, filesystemSpec(true), "scan.png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if err := resolver.Remove(ctx, filesystemSpec(true), ref); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, ref.Data)); !os.IsNotExist(err) {
		t.Fatalf("payload still present after Remove: %v", err)
	}
}

func TestRegistryLookup(t *testing.T) {
	registry := DefaultRegistry()

	spec, ok := registry.Lookup("orders", "document_data")
	if !ok {
		t.Fatalf("expected orders.document_data to be registered")
	}
	if spec.NameColumn != "document_name" || !spec.Required {
		t.Fatalf("unexpected spec: %+v", spec)
	}

	if _, ok := registry.Lookup("orders", "status"); ok {
		t.Fatalf("status is not a file column")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	if _, err := NewRegistry(inlineSpec(true), filesystemSpec(false)); err == nil {
		t.Fatalf("expected duplicate spec to be rejected")
	}
}
