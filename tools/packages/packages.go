// Package packages implements the tool that lists the packages of a
// directory and opens their documents.
//
// Selecting a package resolves it to a directory or a package archive.
// Archives that cannot be read in place are unpacked next to themselves,
// into a directory named after the package with the _unpacked suffix, and
// the unpacked directory is loaded instead. Probing, unpacking, loading and
// thumbnail fetching run outside the event loop and their results are
// applied back on the loop.
package packages

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aukilabs/dsa/eventloop"
	"github.com/aukilabs/dsa/featureflag"
	"github.com/aukilabs/dsa/geoview"
	"github.com/aukilabs/dsa/mspk"
	"github.com/aukilabs/dsa/notify"
	"github.com/aukilabs/dsa/tools"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

const (
	// ToolName is the name of the package tool.
	ToolName = "mobile scene package picker"

	probeConcurrency = 4
)

type requestKind int

const (
	probeRequest requestKind = iota
	scanRequest
	unpackRequest
	loadRequest
	documentRequest
)

type request struct {
	kind requestKind
	name string
}

// Controller is the package tool. Its methods must be called on the event
// loop it was created with.
type Controller struct {
	tools.Events

	// Emitted when the package directory changes.
	PackageDataPathChanged notify.Event

	// Emitted when the current package changes.
	CurrentPackageChanged notify.Event

	// Emitted when the current document index changes.
	DocumentIndexChanged notify.Event

	// Emitted when the resolution state of the current package changes.
	StateChanged notify.Signal[State]

	// Emitted when a thumbnail was fetched.
	ImageReady notify.Signal[Image]

	loop      *eventloop.Loop
	resources *geoview.ResourceProvider
	flags     featureflag.FeatureFlag
	ctx       context.Context
	cancel    context.CancelFunc
	requests  eventloop.Requests[request]
	closed    bool

	dataPath      string
	current       string
	documentIndex int
	state         State
	active        *mspk.Package
	packages      *notify.List[*Entry]
	opened        map[string]*mspk.Package
	loading       map[string]struct{}
}

// New creates a package tool that loads the documents of the selected
// package into resources.
func New(loop *eventloop.Loop, resources *geoview.ResourceProvider, flags featureflag.FeatureFlag) *Controller {
	ctx, cancel := context.WithCancel(context.Background())

	return &Controller{
		loop:          loop,
		resources:     resources,
		flags:         flags,
		ctx:           ctx,
		cancel:        cancel,
		documentIndex: -1,
		packages:      notify.NewList[*Entry](),
		opened:        make(map[string]*mspk.Package),
		loading:       make(map[string]struct{}),
	}
}

func (c *Controller) ToolName() string {
	return ToolName
}

// SetProperties applies the package directory, the current package and the
// document index.
func (c *Controller) SetProperties(p tools.Properties) {
	var dataPathChanged, packageChanged, indexChanged bool

	if dir, ok := p.String(tools.PackageDirectoryProperty); ok {
		dataPathChanged = c.setPackageDataPath(dir)
	}

	if name, ok := p.String(tools.CurrentPackageProperty); ok {
		if packageChanged = c.setCurrentPackage(name); packageChanged {
			c.setState(Unresolved)
		}
	}

	if index, ok := p.Int(tools.PackageIndexProperty); ok {
		indexChanged = c.setDocumentIndex(index)
	}

	switch {
	case (dataPathChanged || packageChanged) && c.current != "" && c.dataPath != "":
		c.findPackage()

	case indexChanged:
		c.loadDocument()
	}
}

// Packages returns the packages of the package directory.
func (c *Controller) Packages() *notify.List[*Entry] {
	return c.packages
}

// PackageDataPath returns the package directory.
func (c *Controller) PackageDataPath() string {
	return c.dataPath
}

// CurrentPackage returns the name of the current package.
func (c *Controller) CurrentPackage() string {
	return c.current
}

// DocumentIndex returns the index of the current document, or -1.
func (c *Controller) DocumentIndex() int {
	return c.documentIndex
}

// State returns the resolution state of the current package.
func (c *Controller) State() State {
	return c.state
}

// Documents returns the documents of the loaded package.
func (c *Controller) Documents() []mspk.Document {
	if c.active == nil {
		return nil
	}
	return c.active.Documents()
}

// SelectPackageName makes name the current package and resolves it. The
// document index is reset.
func (c *Controller) SelectPackageName(name string) {
	if !c.setCurrentPackage(name) {
		return
	}

	c.setState(Unresolved)
	c.active = nil
	c.setDocumentIndex(-1)
	c.findPackage()
}

// SelectDocument makes the document at index the current document. Indexes
// outside the documents of the loaded package are ignored.
func (c *Controller) SelectDocument(index int) {
	if index < 0 {
		return
	}
	if c.active != nil && index >= len(c.active.Documents()) {
		return
	}

	if !c.setDocumentIndex(index) {
		return
	}
	c.loadDocument()
}

func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true

	c.cancel()
	c.requests.CancelFunc(func(request) bool { return true })
}

func (c *Controller) setPackageDataPath(dir string) bool {
	if dir == "" || dir == c.dataPath {
		return false
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		logs.WithTag("tool", ToolName).
			WithTag("path", dir).
			Debug("package directory not found")
		return false
	}

	c.requests.CancelFunc(func(request) bool { return true })
	c.dataPath = dir
	c.opened = make(map[string]*mspk.Package)
	c.loading = make(map[string]struct{})
	c.packages.Replace(nil)

	notify.Fire(&c.PackageDataPathChanged)
	c.ChangeProperty(tools.PackageDirectoryProperty, dir)

	c.flags.IfNotSet(featureflag.FlagDisableDirectoryScan, c.scan)
	return true
}

// setCurrentPackage changes the name of the current package. The resolution
// state is left to the caller: a selection restarts it while switching to
// the unpacked directory of the current package continues it.
func (c *Controller) setCurrentPackage(name string) bool {
	if name == "" || name == c.current {
		return false
	}

	c.current = name

	notify.Fire(&c.CurrentPackageChanged)
	c.ChangeProperty(tools.CurrentPackageProperty, name)
	return true
}

func (c *Controller) setDocumentIndex(index int) bool {
	if index == c.documentIndex {
		return false
	}

	c.documentIndex = index

	notify.Fire(&c.DocumentIndexChanged)
	c.ChangeProperty(tools.PackageIndexProperty, index)
	return true
}

func (c *Controller) setState(s State) {
	if s == c.state {
		return
	}

	c.state = s
	c.StateChanged.Emit(s)
}

func (c *Controller) path(name string) string {
	return filepath.Join(c.dataPath, name)
}

// findPackage resolves the current package.
func (c *Controller) findPackage() {
	path := c.path(c.current)

	info, err := os.Stat(path)
	if err != nil {
		logs.WithTag("tool", ToolName).
			WithTag("package", path).
			Debug("package not found")
		return
	}

	switch {
	case info.IsDir():
		c.setState(Found)
		c.load(c.current)

	case strings.HasSuffix(path, mspk.Extension):
		c.setState(Found)

		unpacked := mspk.UnpackedName(c.current)
		if isDir(c.path(unpacked)) {
			c.setUnpackedName(c.current, unpacked)
			c.setCurrentPackage(unpacked)
			c.load(unpacked)
			return
		}
		c.probe(c.current)

	case strings.HasSuffix(path, mspk.MapPackageExtension):
		c.setState(Failed)
		c.ReportError("MobileMapPackages (.mmpk) are not supported", errors.New("unsupported package format").
			WithType(tools.ErrTypeUnsupportedFormat).
			WithTag("package", path))

	default:
		logs.WithTag("tool", ToolName).
			WithTag("package", path).
			Debug("package format not recognized")
	}
}

// scan lists the packages of the package directory.
func (c *Controller) scan() {
	entries, err := os.ReadDir(c.dataPath)
	if err != nil {
		logs.Warn(errors.New("listing packages failed").
			WithTag("path", c.dataPath).
			Wrap(err))
		return
	}

	var files []string
	dirs := make(map[string]struct{})
	var dirOrder []string

	for _, e := range entries {
		switch {
		case strings.HasPrefix(e.Name(), "."):
			// Hidden, like unpacks in progress.

		case e.IsDir():
			dirs[e.Name()] = struct{}{}
			dirOrder = append(dirOrder, e.Name())

		case strings.HasSuffix(e.Name(), mspk.Extension):
			files = append(files, e.Name())
		}
	}

	var probes []string
	for _, name := range files {
		if !c.addEntry(name) {
			continue
		}

		unpacked := mspk.UnpackedName(name)
		if _, ok := dirs[unpacked]; ok {
			delete(dirs, unpacked)
			c.setUnpackedName(name, unpacked)
			c.load(unpacked)
			continue
		}
		probes = append(probes, name)
	}

	for _, name := range dirOrder {
		if _, ok := dirs[name]; !ok {
			continue
		}
		if c.addEntry(name) {
			c.load(name)
		}
	}

	if len(probes) != 0 {
		c.probeAll(probes)
	}

	logs.WithTag("tool", ToolName).
		WithTag("path", c.dataPath).
		WithTag("packages", c.packages.Len()).
		Info("package directory scanned")
}

type probeResult struct {
	names  []string
	direct []bool
	err    error
}

// probeAll probes package archives concurrently.
func (c *Controller) probeAll(names []string) {
	id := c.requests.Add(request{kind: scanRequest, name: c.dataPath})
	dir := c.dataPath

	eventloop.Async(c.ctx, c.loop, func(ctx context.Context) probeResult {
		res := probeResult{
			names:  names,
			direct: make([]bool, len(names)),
		}

		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(probeConcurrency)

		for i, name := range names {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}

				direct, err := mspk.IsDirectReadSupported(filepath.Join(dir, name))
				instrumentOperation("probe", err)
				if err != nil {
					logs.Warn(errors.New("probing package failed").
						WithTag("package", name).
						Wrap(err))
					return nil
				}
				res.direct[i] = direct
				return nil
			})
		}

		res.err = g.Wait()
		return res
	}, func(res probeResult) {
		if _, ok := c.requests.Take(id); !ok {
			return
		}
		if res.err != nil {
			return
		}

		for i, name := range res.names {
			c.onProbed(name, res.direct[i])
		}
	})
}

type probeOne struct {
	direct bool
	err    error
}

func (c *Controller) probe(name string) {
	id := c.requests.Add(request{kind: probeRequest, name: name})
	filename := c.path(name)

	eventloop.Async(c.ctx, c.loop, func(ctx context.Context) probeOne {
		direct, err := mspk.IsDirectReadSupported(filename)
		instrumentOperation("probe", err)
		return probeOne{direct: direct, err: err}
	}, func(res probeOne) {
		if _, ok := c.requests.Take(id); !ok {
			return
		}

		if res.err != nil {
			c.fail(name, "Failed to open package", res.err)
			return
		}
		c.onProbed(name, res.direct)
	})
}

func (c *Controller) onProbed(name string, direct bool) {
	if c.flags.Has(featureflag.FlagDisableDirectRead) {
		direct = false
	}

	c.updateEntry(name, func(e *Entry) {
		e.RequiresUnpack = !direct
	})

	switch {
	case direct:
		c.load(name)

	case name == c.current:
		c.unpack(name)
	}
}

type unpackResult struct {
	unpacked string
	bytes    uint64
	files    int
	err      error
}

// unpack extracts a package archive next to it. A package already being
// unpacked is not unpacked again.
func (c *Controller) unpack(name string) {
	if c.unpacking(name) {
		return
	}

	unpacked := mspk.UnpackedName(name)
	if isDir(c.path(unpacked)) {
		c.setUnpackedName(name, unpacked)
		c.setCurrentPackage(unpacked)
		c.load(unpacked)
		return
	}

	id := c.requests.Add(request{kind: unpackRequest, name: name})
	filename := c.path(name)
	dir := c.path(unpacked)
	c.setState(Unpacking)

	eventloop.Async(c.ctx, c.loop, func(ctx context.Context) unpackResult {
		start := time.Now()
		stats, err := mspk.Unpack(ctx, filename, dir)
		instrumentUnpack(start, err)

		return unpackResult{
			unpacked: unpacked,
			bytes:    stats.Bytes,
			files:    stats.Files,
			err:      err,
		}
	}, func(res unpackResult) {
		if _, ok := c.requests.Take(id); !ok {
			return
		}

		if res.err != nil {
			c.fail(name, "Failed to unpack mspk", res.err)
			return
		}

		logs.WithTag("tool", ToolName).
			WithTag("package", name).
			WithTag("files", res.files).
			WithTag("size", humanize.Bytes(res.bytes)).
			Info("package unpacked")

		c.setUnpackedName(name, res.unpacked)
		if name == c.current {
			c.setCurrentPackage(res.unpacked)
		}
		c.load(res.unpacked)
	})
}

func (c *Controller) unpacking(name string) bool {
	return c.requests.Any(func(r request) bool {
		return r.kind == unpackRequest && r.name == name
	})
}

type loadResult struct {
	pkg *mspk.Package
	err error
}

// load opens a package. The package becomes the active package when it is
// still the current package once opened.
func (c *Controller) load(name string) {
	if pkg, ok := c.opened[name]; ok {
		c.onLoaded(name, pkg)
		return
	}

	if _, ok := c.loading[name]; ok {
		return
	}
	c.loading[name] = struct{}{}

	id := c.requests.Add(request{kind: loadRequest, name: name})
	path := c.path(name)

	eventloop.Async(c.ctx, c.loop, func(ctx context.Context) loadResult {
		pkg, err := mspk.Open(path)
		instrumentOperation("load", err)
		return loadResult{pkg: pkg, err: err}
	}, func(res loadResult) {
		if _, ok := c.requests.Take(id); !ok {
			return
		}
		delete(c.loading, name)

		if res.err != nil {
			c.fail(name, "Failed to load package", res.err)
			return
		}

		c.opened[name] = res.pkg
		c.describe(name, res.pkg)
		c.onLoaded(name, res.pkg)
	})
}

func (c *Controller) onLoaded(name string, pkg *mspk.Package) {
	if name != c.current {
		return
	}

	c.active = pkg
	c.setState(Loaded)

	if n := len(pkg.Documents()); c.documentIndex >= n {
		logs.WithTag("tool", ToolName).
			WithTag("package", name).
			WithTag("index", c.documentIndex).
			WithTag("documents", n).
			Debug("restored document index out of range")
	}
	c.loadDocument()
}

// describe records the details of an opened package in its entry and
// fetches its thumbnails.
func (c *Controller) describe(name string, pkg *mspk.Package) {
	entryName := name
	if e, ok := c.entry(name); ok {
		entryName = e.Name
	}

	var names []string
	for _, d := range pkg.Documents() {
		names = append(names, d.Title)
	}

	c.updateEntry(name, func(e *Entry) {
		e.Title = pkg.Manifest.Title
		e.Description = pkg.Manifest.Description
		e.DocumentNames = names
	})

	c.flags.IfNotSet(featureflag.FlagDisableThumbnails, func() {
		c.fetchThumbnails(entryName, name, pkg)
	})
}

type thumbnailResult struct {
	key  string
	data []byte
	err  error
}

func (c *Controller) fetchThumbnails(entryName, name string, pkg *mspk.Package) {
	done := func(ready func(*Entry, bool)) func(thumbnailResult) {
		return func(res thumbnailResult) {
			if c.closed {
				return
			}

			ok := res.err == nil && len(res.data) != 0
			if ok {
				c.ImageReady.Emit(Image{Key: res.key, Data: res.data})
			}
			c.updateEntry(entryName, func(e *Entry) {
				ready(e, ok)
			})
		}
	}

	eventloop.Async(c.ctx, c.loop, func(ctx context.Context) thumbnailResult {
		data, err := pkg.Thumbnail()
		return thumbnailResult{key: entryName, data: data, err: err}
	}, done(func(e *Entry, ok bool) {
		e.ImageReady = ok
	}))

	for i, d := range pkg.Documents() {
		if d.Thumbnail == "" {
			continue
		}
		key := name + "_" + d.Title

		eventloop.Async(c.ctx, c.loop, func(ctx context.Context) thumbnailResult {
			data, err := pkg.DocumentThumbnail(i)
			return thumbnailResult{key: key, data: data, err: err}
		}, done(func(e *Entry, ok bool) {
			e.DocumentImagesReady = e.DocumentImagesReady || ok
		}))
	}
}

type documentResult struct {
	pkg   *mspk.Package
	index int
	doc   *geoview.Document
	err   error
}

// loadDocument loads the current document of the active package into the
// resource provider.
func (c *Controller) loadDocument() {
	if c.active == nil || c.documentIndex < 0 {
		return
	}

	pkg := c.active
	if len(pkg.Documents()) == 0 {
		c.ReportError("Package contains no scenes", errors.New("package has no document").
			WithType(tools.ErrTypeOperationFailed).
			WithTag("package", pkg.Path))
		return
	}
	if c.documentIndex >= len(pkg.Documents()) {
		return
	}

	id := c.requests.Add(request{kind: documentRequest, name: c.current})
	index := c.documentIndex

	eventloop.Async(c.ctx, c.loop, func(ctx context.Context) documentResult {
		doc, err := pkg.LoadDocument(index)
		instrumentOperation("document", err)
		return documentResult{pkg: pkg, index: index, doc: doc, err: err}
	}, func(res documentResult) {
		if _, ok := c.requests.Take(id); !ok {
			return
		}
		if res.pkg != c.active || res.index != c.documentIndex {
			return
		}

		if res.err != nil {
			c.ReportError("Failed to load document", errors.New("loading document failed").
				WithType(tools.ErrTypeOperationFailed).
				Wrap(res.err))
			return
		}

		c.showDocument(res.doc)
	})
}

func (c *Controller) showDocument(doc *geoview.Document) {
	if view := c.resources.GeoView(); view == nil || view.Kind != doc.Kind {
		switch doc.Kind {
		case geoview.KindMap:
			c.resources.SetGeoView(geoview.NewMapView())
		case geoview.KindScene:
			c.resources.SetGeoView(geoview.NewSceneView())
		}
	}
	c.resources.SetDocument(doc)

	logs.WithTag("tool", ToolName).
		WithTag("package", c.current).
		WithTag("document", doc.Name).
		WithTag("layers", doc.Layers.Len()).
		Info("document loaded")
}

// fail reports a failed operation on a package. The state only changes when
// the package is the current package.
func (c *Controller) fail(name, message string, err error) {
	if name == c.current {
		c.setState(Failed)
	}

	c.ReportError(message, errors.New("package operation failed").
		WithType(tools.ErrTypeOperationFailed).
		WithTag("package", name).
		Wrap(err))
}

func (c *Controller) addEntry(name string) bool {
	if _, ok := c.entry(name); ok {
		return false
	}

	c.packages.Append(&Entry{Name: name})
	return true
}

// entry returns the entry of a package, looking up unpacked names too.
func (c *Controller) entry(name string) (*Entry, bool) {
	for _, e := range c.packages.Items() {
		if e.Name == name || (e.UnpackedName != "" && e.UnpackedName == name) {
			return e, true
		}
	}
	return nil, false
}

func (c *Controller) updateEntry(name string, update func(*Entry)) {
	for i, e := range c.packages.Items() {
		if e.Name == name || (e.UnpackedName != "" && e.UnpackedName == name) {
			update(e)
			c.packages.Touch(i)
			return
		}
	}
}

func (c *Controller) setUnpackedName(name, unpacked string) {
	c.addEntry(name)
	c.updateEntry(name, func(e *Entry) {
		e.UnpackedName = unpacked
		e.RequiresUnpack = true
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
