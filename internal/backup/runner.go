package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ArchiveRunner is the default backup procedure: a timestamped directory
// containing a copy of the SQLite database file and a tar.gz of the
// attachment files directory.
type ArchiveRunner struct {
	DatabasePath string
	FilesDir     string
	OutDir       string
}

// NewArchiveRunner creates a runner writing artifacts under outDir.
func NewArchiveRunner(databasePath, filesDir, outDir string) *ArchiveRunner {
	return &ArchiveRunner{
		DatabasePath: databasePath,
		FilesDir:     filesDir,
		OutDir:       outDir,
	}
}

// Run produces one backup artifact. A missing files directory is not an
// error; a missing database file is.
func (r *ArchiveRunner) Run(ctx context.Context) (Result, error) {
	start := time.Now()

	// Timestamp plus short unique suffix so two runs within the same
	// second never collide.
	name := fmt.Sprintf("backup_%s_%s", start.UTC().Format("20060102_150405"), strings.Split(uuid.NewString(), "-")[0])
	artifactDir := filepath.Join(r.OutDir, name)
	if err := os.MkdirAll(artifactDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to create backup directory: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if err := copyFile(r.DatabasePath, filepath.Join(artifactDir, "db.sqlite")); err != nil {
		return Result{}, fmt.Errorf("failed to copy database: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if _, err := os.Stat(r.FilesDir); err == nil {
		if err := tarDirectory(r.FilesDir, filepath.Join(artifactDir, "files.tar.gz")); err != nil {
			return Result{}, fmt.Errorf("failed to archive files directory: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return Result{}, fmt.Errorf("failed to stat files directory: %w", err)
	}

	return Result{
		Artifact: artifactDir,
		Duration: time.Since(start),
	}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func tarDirectory(dir, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	defer gz.Close()

	tw := tar.NewWriter(gz)
	defer tw.Close()

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(header); err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(tw, f)
		return err
	})
}
