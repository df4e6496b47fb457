// Package mspk reads mobile scene packages.
//
// A package is a zip archive with the .mspk extension, or a directory holding
// the same content. Its root contains a package.json manifest listing the
// documents of the package, their thumbnails and their GeoJSON layers.
package mspk

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/aukilabs/dsa/archive"
	"github.com/aukilabs/dsa/geoview"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
)

const (
	// Extension is the extension of mobile scene packages.
	Extension = ".mspk"

	// MapPackageExtension is the extension of mobile map packages, which are
	// not supported.
	MapPackageExtension = ".mmpk"

	// UnpackedSuffix is appended to the package name to name its unpacked
	// directory.
	UnpackedSuffix = "_unpacked"

	// ManifestName is the name of the manifest at the root of a package.
	ManifestName = "package.json"
)

const (
	ErrTypeInvalidPackage   = "invalid_package"
	ErrTypeDocumentNotFound = "document_not_found"
)

// Manifest describes the content of a package.
type Manifest struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
	Documents   []Document `json:"documents"`
}

// Document describes a map or a scene of a package.
type Document struct {
	Name      string  `json:"name"`
	Title     string  `json:"title,omitempty"`
	Kind      string  `json:"kind,omitempty"`
	Thumbnail string  `json:"thumbnail,omitempty"`
	Layers    []Layer `json:"layers,omitempty"`
}

// Layer references a GeoJSON file of a package.
type Layer struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// UnpackedName returns the name of the directory a package is unpacked to:
// foo.mspk becomes foo_unpacked.
func UnpackedName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + UnpackedSuffix
}

// IsDirectReadSupported reports whether the content of a package archive can
// be read in place, without unpacking it first.
func IsDirectReadSupported(filename string) (bool, error) {
	return archive.IsStored(filename)
}

// Unpack extracts a package archive to dir. The archive is extracted into a
// temporary directory next to dir which is renamed to dir once complete, so
// dir only exists for fully unpacked packages.
func Unpack(ctx context.Context, filename, dir string) (archive.Stats, error) {
	tmp, err := os.MkdirTemp(filepath.Dir(dir), ".unpack-*")
	if err != nil {
		return archive.Stats{}, errors.New("creating unpack directory failed").
			WithType(ErrTypeInvalidPackage).
			WithTag("package", filename).
			Wrap(err)
	}

	stats, err := archive.Extract(ctx, filename, tmp)
	if err != nil {
		os.RemoveAll(tmp)
		return stats, errors.New("unpacking package failed").
			WithType(ErrTypeInvalidPackage).
			WithTag("package", filename).
			Wrap(err)
	}

	if err := os.Rename(tmp, dir); err != nil {
		os.RemoveAll(tmp)
		return stats, errors.New("installing unpacked package failed").
			WithType(ErrTypeInvalidPackage).
			WithTag("package", filename).
			WithTag("path", dir).
			Wrap(err)
	}
	return stats, nil
}

type reader interface {
	ReadFile(name string) ([]byte, error)
}

type dirReader string

func (d dirReader) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(string(d), filepath.FromSlash(name)))
}

type zipReader string

func (z zipReader) ReadFile(name string) ([]byte, error) {
	return archive.ReadFile(string(z), name)
}

// Package is an opened package.
type Package struct {
	Path     string
	Manifest Manifest

	reader reader
}

// Open opens the package at path, which is either a directory or a package
// archive, and reads its manifest.
func Open(path string) (*Package, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.New("package not found").
			WithType(ErrTypeInvalidPackage).
			WithTag("package", path).
			Wrap(err)
	}

	p := &Package{Path: path}
	if info.IsDir() {
		p.reader = dirReader(path)
	} else {
		p.reader = zipReader(path)
	}

	data, err := p.reader.ReadFile(ManifestName)
	if err != nil {
		return nil, errors.New("reading package manifest failed").
			WithType(ErrTypeInvalidPackage).
			WithTag("package", path).
			Wrap(err)
	}

	if err := json.Unmarshal(data, &p.Manifest); err != nil {
		return nil, errors.New("decoding package manifest failed").
			WithType(ErrTypeInvalidPackage).
			WithTag("package", path).
			Wrap(err)
	}
	return p, nil
}

// Documents returns the documents of the package.
func (p *Package) Documents() []Document {
	return p.Manifest.Documents
}

// Thumbnail returns the package thumbnail. It returns nil when the package
// has none.
func (p *Package) Thumbnail() ([]byte, error) {
	return p.readOptional(p.Manifest.Thumbnail)
}

// DocumentThumbnail returns the thumbnail of the document at index i.
func (p *Package) DocumentThumbnail(i int) ([]byte, error) {
	d, err := p.document(i)
	if err != nil {
		return nil, err
	}
	return p.readOptional(d.Thumbnail)
}

// LoadDocument reads the layers of the document at index i.
func (p *Package) LoadDocument(i int) (*geoview.Document, error) {
	d, err := p.document(i)
	if err != nil {
		return nil, err
	}

	kind := geoview.KindScene
	if d.Kind == geoview.KindMap.String() {
		kind = geoview.KindMap
	}

	doc := geoview.NewDocument(d.Name, d.Title, kind)
	for _, l := range d.Layers {
		data, err := p.reader.ReadFile(l.Path)
		if err != nil {
			return nil, errors.New("reading layer failed").
				WithType(ErrTypeInvalidPackage).
				WithTag("package", p.Path).
				WithTag("layer", l.Name).
				Wrap(err)
		}

		layer, err := geoview.DecodeLayer(l.Name, data)
		if err != nil {
			return nil, errors.New("loading layer failed").
				WithType(ErrTypeInvalidPackage).
				WithTag("package", p.Path).
				Wrap(err)
		}
		doc.Layers.Append(layer)
	}
	return doc, nil
}

func (p *Package) document(i int) (Document, error) {
	if i < 0 || i >= len(p.Manifest.Documents) {
		return Document{}, errors.New("document not found").
			WithType(ErrTypeDocumentNotFound).
			WithTag("package", p.Path).
			WithTag("index", i)
	}
	return p.Manifest.Documents[i], nil
}

func (p *Package) readOptional(name string) ([]byte, error) {
	if name == "" {
		return nil, nil
	}

	data, err := p.reader.ReadFile(name)
	if err != nil {
		return nil, errors.New("reading package file failed").
			WithTag("package", p.Path).
			WithTag("name", name).
			Wrap(err)
	}
	return data, nil
}
