// Package archive reads, probes and extracts zip archives such as mobile
// packages and downloaded configuration bundles.
package archive

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/klauspost/compress/zip"
)

const (
	ErrTypeInvalidArchive = "invalid_archive"
	ErrTypeEntryNotFound  = "entry_not_found"
	ErrTypeUnsafePath     = "unsafe_path"
)

// Entry is a file to write in an archive.
type Entry struct {
	Name string
	Data []byte
}

// Stats describes an extraction.
type Stats struct {
	Files int
	Bytes uint64
}

// IsStored reports whether every file of the archive is stored without
// compression, which allows its content to be read in place.
func IsStored(filename string) (bool, error) {
	r, err := open(filename)
	if err != nil {
		return false, err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if f.Method != zip.Store {
			return false, nil
		}
	}
	return true, nil
}

// ReadFile returns the content of the named file of the archive.
func ReadFile(filename, name string) ([]byte, error) {
	r, err := open(filename)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	name = path.Clean(strings.TrimPrefix(filepath.ToSlash(name), "/"))
	for _, f := range r.File {
		if path.Clean(f.Name) != name {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, errors.New("opening archive file failed").
				WithType(ErrTypeInvalidArchive).
				WithTag("archive", filename).
				WithTag("name", name).
				Wrap(err)
		}
		defer rc.Close()

		return io.ReadAll(rc)
	}

	return nil, errors.New("archive file not found").
		WithType(ErrTypeEntryNotFound).
		WithTag("archive", filename).
		WithTag("name", name)
}

// Extract writes the files of the archive under dir. Files whose path would
// escape dir are rejected. Extraction stops when ctx is canceled.
func Extract(ctx context.Context, filename, dir string) (Stats, error) {
	var stats Stats

	r, err := open(filename)
	if err != nil {
		return stats, err
	}
	defer r.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stats, errors.New("creating extraction directory failed").
			WithTag("dir", dir).
			Wrap(err)
	}

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		target, err := safeJoin(dir, f.Name)
		if err != nil {
			return stats, err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return stats, errors.New("creating directory failed").
					WithTag("dir", target).
					Wrap(err)
			}
			continue
		}

		n, err := extractFile(f, target)
		if err != nil {
			return stats, errors.New("extracting archive file failed").
				WithTag("archive", filename).
				WithTag("name", f.Name).
				Wrap(err)
		}

		stats.Files++
		stats.Bytes += uint64(n)
	}

	return stats, nil
}

func extractFile(f *zip.File, target string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, err
	}

	rc, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, rc)
	if err != nil {
		out.Close()
		return n, err
	}
	return n, out.Close()
}

// Create writes entries to a new archive. Entries are compressed with
// method, either zip.Store or zip.Deflate.
func Create(filename string, method uint16, entries ...Entry) error {
	out, err := os.Create(filename)
	if err != nil {
		return errors.New("creating archive failed").
			WithTag("archive", filename).
			Wrap(err)
	}

	if err := Write(out, method, entries...); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Write writes entries as a zip archive to w.
func Write(w io.Writer, method uint16, entries ...Entry) error {
	zw := zip.NewWriter(w)

	for _, e := range entries {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:   e.Name,
			Method: method,
		})
		if err != nil {
			return errors.New("adding archive entry failed").
				WithTag("name", e.Name).
				Wrap(err)
		}

		if _, err := fw.Write(e.Data); err != nil {
			return errors.New("writing archive entry failed").
				WithTag("name", e.Name).
				Wrap(err)
		}
	}

	return zw.Close()
}

func open(filename string) (*zip.ReadCloser, error) {
	r, err := zip.OpenReader(filename)
	if err != nil {
		return nil, errors.New("opening archive failed").
			WithType(ErrTypeInvalidArchive).
			WithTag("archive", filename).
			Wrap(err)
	}
	return r, nil
}

func safeJoin(dir, name string) (string, error) {
	target := filepath.Join(dir, filepath.FromSlash(name))

	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(name) {
		return "", errors.New("archive file escapes extraction directory").
			WithType(ErrTypeUnsafePath).
			WithTag("name", name)
	}
	return target, nil
}
