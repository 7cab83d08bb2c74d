// Package archive packs a working directory into a gzip-compressed tarball.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const partialSuffix = ".partial"

// writers is the file -> gzip -> tar chain, closed in reverse order.
type writers struct {
	tw      *tar.Writer
	closers []io.Closer
}

func (w *writers) Close() error {
	var firstErr error
	for i := len(w.closers) - 1; i >= 0; i-- {
		if err := w.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func openWriters(path string) (*writers, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive file: %w", err)
	}
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	return &writers{tw: tw, closers: []io.Closer{f, gz, tw}}, nil
}

// Build writes the contents of sourceDir to destPath as a .tar.gz. Entry names
// are relative to sourceDir, so the archive has no leading directory. The
// archive only appears at destPath once it is complete; on failure nothing is
// left behind.
func Build(ctx context.Context, sourceDir, destPath string) (err error) {
	info, err := os.Stat(sourceDir)
	if err != nil {
		return fmt.Errorf("failed to stat source directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source %s is not a directory", sourceDir)
	}

	partial := destPath + partialSuffix
	w, err := openWriters(partial)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(partial)
		}
	}()

	if err = addTree(ctx, w.tw, sourceDir); err != nil {
		w.Close()
		return err
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err = os.Rename(partial, destPath); err != nil {
		return fmt.Errorf("failed to move archive into place: %w", err)
	}
	return nil
}

func addTree(ctx context.Context, tw *tar.Writer, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return fmt.Errorf("failed to walk %s: %w", path, walkErr)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		return addEntry(tw, path, filepath.ToSlash(rel), d)
	})
}

func addEntry(tw *tar.Writer, path, name string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	var link string
	switch {
	case info.Mode()&fs.ModeSymlink != 0:
		if link, err = os.Readlink(path); err != nil {
			return fmt.Errorf("failed to read link %s: %w", path, err)
		}
	case info.IsDir(), info.Mode().IsRegular():
	default:
		// Sockets, devices and pipes have no useful archived form.
		return nil
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return fmt.Errorf("failed to build header for %s: %w", path, err)
	}
	hdr.Name = name
	if info.IsDir() {
		hdr.Name += "/"
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to copy %s: %w", path, err)
	}
	return nil
}
