package mspk

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aukilabs/dsa/archive"
	"github.com/aukilabs/dsa/geoview"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/klauspost/compress/zip"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

const testLayer = `{
	"type": "FeatureCollection",
	"features": [
		{"type": "Feature", "geometry": {"type": "Point", "coordinates": [1, 2]}, "properties": {"name": "ted"}}
	]
}`

func testManifest() Manifest {
	return Manifest{
		Title:     "Demo",
		Thumbnail: "thumbnail.png",
		Documents: []Document{
			{
				Name:      "scene",
				Title:     "Scene",
				Thumbnail: "scene.png",
				Layers:    []Layer{{Name: "sites", Path: "data/sites.geojson"}},
			},
			{
				Name:  "map",
				Title: "Map",
				Kind:  "map",
			},
		},
	}
}

func testEntries(t *testing.T, m Manifest) []archive.Entry {
	manifest, err := json.Marshal(m)
	require.NoError(t, err)

	return []archive.Entry{
		{Name: ManifestName, Data: manifest},
		{Name: "thumbnail.png", Data: []byte("package thumbnail")},
		{Name: "scene.png", Data: []byte("scene thumbnail")},
		{Name: "data/sites.geojson", Data: []byte(testLayer)},
	}
}

func writeDir(t *testing.T, dir string, entries []archive.Entry) {
	for _, e := range entries {
		filename := filepath.Join(dir, filepath.FromSlash(e.Name))
		require.NoError(t, os.MkdirAll(filepath.Dir(filename), 0o755))
		require.NoError(t, os.WriteFile(filename, e.Data, 0o644))
	}
}

func TestUnpackedName(t *testing.T) {
	require.Equal(t, "foo_unpacked", UnpackedName("foo.mspk"))
	require.Equal(t, "foo_unpacked", UnpackedName("foo"))
	require.Equal(t, "foo.bar_unpacked", UnpackedName("foo.bar.mspk"))
}

func TestOpen(t *testing.T) {
	entries := testEntries(t, testManifest())

	dir := t.TempDir()
	stored := filepath.Join(dir, "stored.mspk")
	require.NoError(t, archive.Create(stored, zip.Store, entries...))

	compressed := filepath.Join(dir, "compressed.mspk")
	require.NoError(t, archive.Create(compressed, zip.Deflate, entries...))

	unpacked := filepath.Join(dir, "plain_unpacked")
	writeDir(t, unpacked, entries)

	for _, path := range []string{stored, compressed, unpacked} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			p, err := Open(path)
			require.NoError(t, err)
			require.Equal(t, "Demo", p.Manifest.Title)
			require.Len(t, p.Documents(), 2)

			thumbnail, err := p.Thumbnail()
			require.NoError(t, err)
			require.Equal(t, "package thumbnail", string(thumbnail))

			thumbnail, err = p.DocumentThumbnail(0)
			require.NoError(t, err)
			require.Equal(t, "scene thumbnail", string(thumbnail))

			thumbnail, err = p.DocumentThumbnail(1)
			require.NoError(t, err)
			require.Nil(t, thumbnail)

			doc, err := p.LoadDocument(0)
			require.NoError(t, err)
			require.Equal(t, geoview.KindScene, doc.Kind)
			require.Equal(t, 1, doc.Layers.Len())

			layer, _ := doc.Layers.At(0)
			require.Equal(t, "sites", layer.Name)
			require.Equal(t, 1, layer.Features.Len())

			doc, err = p.LoadDocument(1)
			require.NoError(t, err)
			require.Equal(t, geoview.KindMap, doc.Kind)

			_, err = p.LoadDocument(2)
			require.Error(t, err)
			require.Equal(t, ErrTypeDocumentNotFound, errors.Type(err))
		})
	}

	t.Run("direct read", func(t *testing.T) {
		ok, err := IsDirectReadSupported(stored)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = IsDirectReadSupported(compressed)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("missing package", func(t *testing.T) {
		_, err := Open(filepath.Join(dir, "missing.mspk"))
		require.Error(t, err)
		require.Equal(t, ErrTypeInvalidPackage, errors.Type(err))
	})

	t.Run("missing manifest", func(t *testing.T) {
		_, err := Open(t.TempDir())
		require.Error(t, err)
		require.Equal(t, ErrTypeInvalidPackage, errors.Type(err))
	})

	t.Run("missing layer file", func(t *testing.T) {
		broken := filepath.Join(t.TempDir(), "broken")
		writeDir(t, broken, entries[:1])

		p, err := Open(broken)
		require.NoError(t, err)

		_, err = p.LoadDocument(0)
		require.Error(t, err)
	})
}

func TestUnpack(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "foo.mspk")
	require.NoError(t, archive.Create(filename, zip.Deflate, testEntries(t, testManifest())...))

	out := filepath.Join(dir, UnpackedName("foo.mspk"))
	stats, err := Unpack(context.Background(), filename, out)
	require.NoError(t, err)
	require.Equal(t, 4, stats.Files)

	p, err := Open(out)
	require.NoError(t, err)
	require.Equal(t, "Demo", p.Manifest.Title)
	require.Equal(t, []string{"foo.mspk", "foo_unpacked"}, dirNames(t, dir))

	t.Run("invalid archive leaves no directory", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.mspk")
		require.NoError(t, os.WriteFile(bad, []byte("ted"), 0o644))

		_, err := Unpack(context.Background(), bad, filepath.Join(dir, "bad_unpacked"))
		require.Error(t, err)
		require.Equal(t, ErrTypeInvalidPackage, errors.Type(err))
		require.Equal(t, []string{"bad.mspk", "foo.mspk", "foo_unpacked"}, dirNames(t, dir))
	})

	t.Run("canceled unpack leaves no directory", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := Unpack(ctx, filename, filepath.Join(dir, "canceled_unpacked"))
		require.Error(t, err)
		require.NotContains(t, dirNames(t, dir), "canceled_unpacked")
	})

	t.Run("existing directory is not replaced", func(t *testing.T) {
		_, err := Unpack(context.Background(), filename, out)
		require.Error(t, err)
		require.Equal(t, []string{"bad.mspk", "foo.mspk", "foo_unpacked"}, dirNames(t, dir))
	})
}

func dirNames(t *testing.T, dir string) []string {
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
