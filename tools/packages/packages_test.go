package packages

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/aukilabs/dsa/archive"
	"github.com/aukilabs/dsa/eventloop"
	"github.com/aukilabs/dsa/featureflag"
	"github.com/aukilabs/dsa/geoview"
	"github.com/aukilabs/dsa/mspk"
	"github.com/aukilabs/dsa/tools"
	"github.com/klauspost/compress/zip"
	dto "github.com/prometheus/client_model/go"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

const testLayer = `{
	"type": "FeatureCollection",
	"features": [
		{"type": "Feature", "geometry": {"type": "Point", "coordinates": [1, 2]}, "properties": {}}
	]
}`

func packageEntries(t *testing.T, title string) []archive.Entry {
	manifest, err := json.Marshal(mspk.Manifest{
		Title:     title,
		Thumbnail: "thumbnail.png",
		Documents: []mspk.Document{
			{
				Name:      "first",
				Title:     "First",
				Thumbnail: "first.png",
				Layers:    []mspk.Layer{{Name: "sites", Path: "sites.geojson"}},
			},
			{
				Name:  "second",
				Title: "Second",
				Kind:  "map",
			},
		},
	})
	require.NoError(t, err)

	return []archive.Entry{
		{Name: mspk.ManifestName, Data: manifest},
		{Name: "thumbnail.png", Data: []byte("package")},
		{Name: "first.png", Data: []byte("first")},
		{Name: "sites.geojson", Data: []byte(testLayer)},
	}
}

func writeDir(t *testing.T, dir string, entries []archive.Entry) {
	for _, e := range entries {
		filename := filepath.Join(dir, filepath.FromSlash(e.Name))
		require.NoError(t, os.MkdirAll(filepath.Dir(filename), 0o755))
		require.NoError(t, os.WriteFile(filename, e.Data, 0o644))
	}
}

type fixture struct {
	dir       string
	loop      *eventloop.Loop
	resources *geoview.ResourceProvider
	c         *Controller
	errors    []tools.ToolError
}

func setup(t *testing.T, flags ...string) *fixture {
	dir := t.TempDir()

	require.NoError(t, archive.Create(filepath.Join(dir, "foo.mspk"), zip.Deflate, packageEntries(t, "Packed foo")...))
	writeDir(t, filepath.Join(dir, "foo_unpacked"), packageEntries(t, "Unpacked foo"))
	require.NoError(t, archive.Create(filepath.Join(dir, "bar.mspk"), zip.Store, packageEntries(t, "Bar")...))
	require.NoError(t, archive.Create(filepath.Join(dir, "baz.mspk"), zip.Deflate, packageEntries(t, "Baz")...))
	writeDir(t, filepath.Join(dir, "plain"), packageEntries(t, "Plain"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "map.mmpk"), []byte("map"), 0o644))

	loop := eventloop.New(0)
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)

	f := &fixture{
		dir:       dir,
		loop:      loop,
		resources: geoview.NewResourceProvider(),
	}
	f.c = New(loop, f.resources, featureflag.New(flags))
	f.c.ErrorOccurred.Connect(func(e tools.ToolError) {
		f.errors = append(f.errors, e)
	})

	t.Cleanup(func() {
		f.call(t, f.c.Close)
		cancel()
		loop.Close()
	})
	return f
}

func (f *fixture) call(t *testing.T, do func()) {
	require.NoError(t, f.loop.Call(context.Background(), do))
}

func (f *fixture) eventually(t *testing.T, condition func() bool) {
	require.Eventually(t, func() bool {
		var ok bool
		f.call(t, func() { ok = condition() })
		return ok
	}, 5*time.Second, 10*time.Millisecond)
}

func (f *fixture) entry(t *testing.T, name string) Entry {
	var entry Entry
	f.call(t, func() {
		e, ok := f.c.entry(name)
		require.True(t, ok)
		entry = *e
	})
	return entry
}

func TestScan(t *testing.T) {
	f := setup(t)

	f.call(t, func() {
		f.c.SetProperties(tools.Properties{tools.PackageDirectoryProperty: f.dir})
	})

	f.eventually(t, func() bool {
		e, ok := f.c.entry("bar.mspk")
		return ok && e.Title == "Bar"
	})

	var names []string
	f.call(t, func() {
		for _, e := range f.c.Packages().Items() {
			names = append(names, e.Name)
		}
	})
	require.ElementsMatch(t, []string{"bar.mspk", "baz.mspk", "foo.mspk", "plain"}, names)

	foo := f.entry(t, "foo.mspk")
	require.Equal(t, "foo_unpacked", foo.UnpackedName)

	f.eventually(t, func() bool {
		e, _ := f.c.entry("foo.mspk")
		return e.Title == "Unpacked foo"
	})

	f.eventually(t, func() bool {
		e, _ := f.c.entry("baz.mspk")
		return e.RequiresUnpack
	})

	bar := f.entry(t, "bar.mspk")
	require.False(t, bar.RequiresUnpack)
	require.Equal(t, []string{"First", "Second"}, bar.DocumentNames)

	f.eventually(t, func() bool {
		e, _ := f.c.entry("plain")
		return e.ImageReady && e.DocumentImagesReady
	})

	t.Run("unknown directory is ignored", func(t *testing.T) {
		f.call(t, func() {
			f.c.SetProperties(tools.Properties{tools.PackageDirectoryProperty: filepath.Join(f.dir, "missing")})
			require.Equal(t, f.dir, f.c.PackageDataPath())
		})
	})
}

func TestScanDisabled(t *testing.T) {
	f := setup(t, string(featureflag.FlagDisableDirectoryScan))

	f.call(t, func() {
		f.c.SetProperties(tools.Properties{tools.PackageDirectoryProperty: f.dir})
		require.Zero(t, f.c.Packages().Len())
	})
}

func TestSelectPackageUsesUnpackedSibling(t *testing.T) {
	f := setup(t, string(featureflag.FlagDisableDirectoryScan))

	f.call(t, func() {
		f.c.SetProperties(tools.Properties{tools.PackageDirectoryProperty: f.dir})
		f.c.SelectPackageName("foo.mspk")
		require.Equal(t, "foo_unpacked", f.c.CurrentPackage())
	})

	f.eventually(t, func() bool {
		return f.c.State() == Loaded
	})

	f.call(t, func() {
		require.Equal(t, "Unpacked foo", f.c.active.Manifest.Title)
		require.Len(t, f.c.Documents(), 2)
	})

	entries, err := os.ReadDir(filepath.Join(f.dir, "foo_unpacked"))
	require.NoError(t, err)
	require.Len(t, entries, 4)

	f.call(t, func() {
		require.Empty(t, f.errors)
	})
}

func TestSelectPackageDirectRead(t *testing.T) {
	f := setup(t, string(featureflag.FlagDisableDirectoryScan))

	f.call(t, func() {
		f.c.SetProperties(tools.Properties{tools.PackageDirectoryProperty: f.dir})
		f.c.SelectPackageName("bar.mspk")
	})

	f.eventually(t, func() bool {
		return f.c.State() == Loaded
	})

	f.call(t, func() {
		require.Equal(t, "bar.mspk", f.c.CurrentPackage())
		require.Equal(t, "Bar", f.c.active.Manifest.Title)
	})

	_, err := os.Stat(filepath.Join(f.dir, "bar_unpacked"))
	require.True(t, os.IsNotExist(err))
}

func TestSelectPackageUnpacks(t *testing.T) {
	f := setup(t, string(featureflag.FlagDisableDirectoryScan))

	var states []State
	f.call(t, func() {
		f.c.StateChanged.Connect(func(s State) { states = append(states, s) })
		f.c.SetProperties(tools.Properties{tools.PackageDirectoryProperty: f.dir})
		f.c.SelectPackageName("baz.mspk")
	})

	f.eventually(t, func() bool {
		return f.c.State() == Loaded
	})

	f.call(t, func() {
		require.Equal(t, "baz_unpacked", f.c.CurrentPackage())
		require.Equal(t, "Baz", f.c.active.Manifest.Title)
		require.Equal(t, []State{Found, Unpacking, Loaded}, states)

		e, ok := f.c.entry("baz.mspk")
		require.True(t, ok)
		require.Equal(t, "baz_unpacked", e.UnpackedName)
	})

	info, err := os.Stat(filepath.Join(f.dir, "baz_unpacked"))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestRestoreDeflatedPackageWithScan(t *testing.T) {
	f := setup(t)

	padding := make([]byte, 4<<20)
	rand.New(rand.NewSource(7)).Read(padding)
	entries := append([]archive.Entry{{Name: "padding.bin", Data: padding}}, packageEntries(t, "Big")...)
	slices.Reverse(entries[1:])
	require.NoError(t, archive.Create(filepath.Join(f.dir, "big.mspk"), zip.Deflate, entries...))

	unpacks := unpackCount(t)

	var states []State
	f.call(t, func() {
		f.c.StateChanged.Connect(func(s State) { states = append(states, s) })
		f.c.SetProperties(tools.Properties{
			tools.PackageDirectoryProperty: f.dir,
			tools.CurrentPackageProperty:   "big.mspk",
		})
	})

	f.eventually(t, func() bool {
		return f.c.State() == Loaded && !f.c.requests.Any(func(r request) bool {
			return r.kind == probeRequest || r.kind == scanRequest || r.kind == unpackRequest
		})
	})

	f.call(t, func() {
		require.Empty(t, f.errors)
		require.Equal(t, []State{Found, Unpacking, Loaded}, states)
		require.Equal(t, "big_unpacked", f.c.CurrentPackage())
		require.Equal(t, "Big", f.c.active.Manifest.Title)
	})
	require.Equal(t, unpacks+1, unpackCount(t))

	dirEntries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	for _, e := range dirEntries {
		require.False(t, strings.HasPrefix(e.Name(), "."), e.Name())
	}
}

func TestScanSkipsUnpacksInProgress(t *testing.T) {
	f := setup(t)
	writeDir(t, filepath.Join(f.dir, ".unpack-123"), packageEntries(t, "Partial"))

	f.call(t, func() {
		f.c.SetProperties(tools.Properties{tools.PackageDirectoryProperty: f.dir})
		_, ok := f.c.entry(".unpack-123")
		require.False(t, ok)
	})
}

func unpackCount(t *testing.T) float64 {
	var m dto.Metric
	require.NoError(t, packageOperations.WithLabelValues("unpack", "success").Write(&m))
	return m.GetCounter().GetValue()
}

func TestSelectPackageErrors(t *testing.T) {
	t.Run("map packages are not supported", func(t *testing.T) {
		f := setup(t, string(featureflag.FlagDisableDirectoryScan))

		f.call(t, func() {
			f.c.SetProperties(tools.Properties{tools.PackageDirectoryProperty: f.dir})
			f.c.SelectPackageName("map.mmpk")
			require.Equal(t, Failed, f.c.State())
		})

		require.Len(t, f.errors, 1)
		require.Equal(t, tools.ErrTypeUnsupportedFormat, f.errors[0].Type)
	})

	t.Run("missing package is ignored", func(t *testing.T) {
		f := setup(t, string(featureflag.FlagDisableDirectoryScan))

		f.call(t, func() {
			f.c.SetProperties(tools.Properties{tools.PackageDirectoryProperty: f.dir})
			f.c.SelectPackageName("missing.mspk")
			require.Equal(t, Unresolved, f.c.State())
		})
		require.Empty(t, f.errors)
	})

	t.Run("broken package fails", func(t *testing.T) {
		f := setup(t, string(featureflag.FlagDisableDirectoryScan))
		require.NoError(t, os.MkdirAll(filepath.Join(f.dir, "broken"), 0o755))

		f.call(t, func() {
			f.c.SetProperties(tools.Properties{tools.PackageDirectoryProperty: f.dir})
			f.c.SelectPackageName("broken")
		})

		f.eventually(t, func() bool {
			return f.c.State() == Failed
		})

		f.call(t, func() {
			require.Len(t, f.errors, 1)
			require.Equal(t, tools.ErrTypeOperationFailed, f.errors[0].Type)
		})
	})
}

func TestSelectDocument(t *testing.T) {
	f := setup(t, string(featureflag.FlagDisableDirectoryScan))

	f.call(t, func() {
		f.c.SetProperties(tools.Properties{tools.PackageDirectoryProperty: f.dir})
		f.c.SelectPackageName("plain")
		f.c.SelectDocument(0)
	})

	f.eventually(t, func() bool {
		return f.resources.Document() != nil
	})

	first := f.resources.Document()
	require.Equal(t, "first", first.Name)
	require.Equal(t, geoview.KindScene, f.resources.GeoView().Kind)
	require.Equal(t, 1, first.Layers.Len())

	t.Run("out of range index leaves the document unchanged", func(t *testing.T) {
		f.call(t, func() {
			f.c.SelectDocument(2)
			f.c.SelectDocument(-1)
			require.Equal(t, 0, f.c.DocumentIndex())
		})

		f.call(t, func() {})
		require.Equal(t, first, f.resources.Document())
	})

	t.Run("select another document", func(t *testing.T) {
		f.call(t, func() {
			f.c.SelectDocument(1)
		})

		f.eventually(t, func() bool {
			return f.resources.Document() != first
		})
		require.Equal(t, "second", f.resources.Document().Name)
		require.Equal(t, geoview.KindMap, f.resources.GeoView().Kind)
	})
}

func TestRestoredDocumentIndex(t *testing.T) {
	f := setup(t, string(featureflag.FlagDisableDirectoryScan))

	var changed []tools.Property
	f.call(t, func() {
		f.c.PropertyChanged.Connect(func(p tools.Property) {
			changed = append(changed, p)
		})

		f.c.SetProperties(tools.Properties{
			tools.PackageDirectoryProperty: f.dir,
			tools.CurrentPackageProperty:   "plain",
			tools.PackageIndexProperty:     float64(1),
		})
	})

	f.eventually(t, func() bool {
		return f.resources.Document() != nil
	})
	require.Equal(t, "second", f.resources.Document().Name)

	f.call(t, func() {
		require.Contains(t, changed, tools.Property{Name: tools.CurrentPackageProperty, Value: "plain"})
		require.Contains(t, changed, tools.Property{Name: tools.PackageIndexProperty, Value: 1})
	})
}

func TestThumbnails(t *testing.T) {
	f := setup(t, string(featureflag.FlagDisableDirectoryScan))

	images := make(map[string]string)
	f.call(t, func() {
		f.c.ImageReady.Connect(func(img Image) {
			images[img.Key] = string(img.Data)
		})

		f.c.SetProperties(tools.Properties{tools.PackageDirectoryProperty: f.dir})
		f.c.SelectPackageName("plain")
	})

	f.eventually(t, func() bool {
		return len(images) == 2
	})

	f.call(t, func() {
		require.Equal(t, "package", images["plain"])
		require.Equal(t, "first", images["plain_First"])
	})

	t.Run("disabled", func(t *testing.T) {
		f := setup(t,
			string(featureflag.FlagDisableDirectoryScan),
			string(featureflag.FlagDisableThumbnails),
		)

		var fetched bool
		f.call(t, func() {
			f.c.ImageReady.Connect(func(Image) { fetched = true })
			f.c.SetProperties(tools.Properties{tools.PackageDirectoryProperty: f.dir})
			f.c.SelectPackageName("plain")
		})

		f.eventually(t, func() bool {
			return f.c.State() == Loaded
		})

		f.call(t, func() {})
		require.False(t, fetched)
	})
}
