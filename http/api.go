package http

import (
	"net/http"
	"strconv"

	"github.com/aukilabs/dsa/alerts"
	"github.com/aukilabs/dsa/eventloop"
	"github.com/aukilabs/dsa/mspk"
	"github.com/aukilabs/dsa/quadtree"
	"github.com/aukilabs/dsa/tools"
	"github.com/aukilabs/dsa/tools/alertlist"
	"github.com/aukilabs/dsa/tools/analysis"
	"github.com/aukilabs/dsa/tools/configurations"
	"github.com/aukilabs/dsa/tools/packages"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/segmentio/encoding/json"
	"github.com/twpayne/go-geom/encoding/geojson"
)

const errTypeUnavailable = "unavailable"

// API exposes the tools state over HTTP. Every handler reads and mutates the
// tools on the event loop they live on.
type API struct {
	loop           *eventloop.Loop
	alerts         *alertlist.Controller
	packages       *packages.Controller
	configurations *configurations.Controller
	analyses       *analysis.CombinedListModel

	images     map[string][]byte
	disconnect func()
}

type packagesState struct {
	DataPath       string           `json:"data_path"`
	CurrentPackage string           `json:"current_package"`
	DocumentIndex  int              `json:"document_index"`
	State          string           `json:"state"`
	Packages       []packages.Entry `json:"packages"`
	Documents      []mspk.Document  `json:"documents"`
}

type configurationsState struct {
	Configurations  []configurations.Item `json:"configurations"`
	Downloading     bool                  `json:"downloading"`
	Progress        *progress             `json:"progress,omitempty"`
	RequiresRestart bool                  `json:"requires_restart"`
	Available       bool                  `json:"available"`
}

type progress struct {
	configurations.Progress

	Fraction *float64 `json:"fraction,omitempty"`
}

type errorOut struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type selectPackageIn struct {
	Name string `json:"name"`
}

type minLevelIn struct {
	Level int `json:"level"`
}

// NewAPI creates an API over the given tools. It must be called on loop.
func NewAPI(
	loop *eventloop.Loop,
	alertList *alertlist.Controller,
	packagePicker *packages.Controller,
	configurationsTool *configurations.Controller,
	analyses *analysis.CombinedListModel,
) *API {
	a := &API{
		loop:           loop,
		alerts:         alertList,
		packages:       packagePicker,
		configurations: configurationsTool,
		analyses:       analyses,
		images:         make(map[string][]byte),
	}

	a.disconnect = packagePicker.ImageReady.Connect(func(img packages.Image) {
		a.images[img.Key] = img.Data
	})
	return a
}

// Handle registers the API routes on mux.
func (a *API) Handle(mux *http.ServeMux) {
	mux.Handle("GET /alerts", HandleWithCORS(http.HandlerFunc(a.handleAlerts)))
	mux.Handle("POST /alerts/min-level", HandleWithCORS(http.HandlerFunc(a.handleMinLevel)))
	mux.Handle("POST /alerts/{row}/{action}", HandleWithCORS(http.HandlerFunc(a.handleAlert)))

	mux.Handle("GET /packages", HandleWithCORS(http.HandlerFunc(a.handlePackages)))
	mux.Handle("GET /packages/images/{key}", HandleWithCORS(http.HandlerFunc(a.handlePackageImage)))
	mux.Handle("POST /packages/select", HandleWithCORS(http.HandlerFunc(a.handleSelectPackage)))
	mux.Handle("POST /packages/documents/{index}", HandleWithCORS(http.HandlerFunc(a.handleSelectDocument)))

	mux.Handle("GET /configurations", HandleWithCORS(http.HandlerFunc(a.handleConfigurations)))
	mux.Handle("POST /configurations/default", HandleWithCORS(http.HandlerFunc(a.handleDownloadDefault)))
	mux.Handle("POST /configurations/{index}/{action}", HandleWithCORS(http.HandlerFunc(a.handleConfiguration)))

	mux.Handle("GET /analyses", HandleWithCORS(http.HandlerFunc(a.handleAnalyses)))
}

// Close disconnects the API from the tools. It must be called on the loop.
func (a *API) Close() {
	a.disconnect()
}

func (a *API) handleAlerts(w http.ResponseWriter, r *http.Request) {
	var fc *geojson.FeatureCollection
	if !a.call(w, r, func() error {
		fc = alertFeatures(a.alerts.AlertListModel().Alerts())
		return nil
	}) {
		return
	}

	writeJSON(w, http.StatusOK, fc)
}

func (a *API) handleMinLevel(w http.ResponseWriter, r *http.Request) {
	var in minLevelIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, errors.New("decoding request body failed").
			WithType(tools.ErrTypeInvalidArgument).
			Wrap(err))
		return
	}

	if !alerts.Status(in.Level).Valid() {
		writeError(w, errors.New("invalid alert level").
			WithType(tools.ErrTypeInvalidArgument).
			WithTag("level", in.Level))
		return
	}

	if a.call(w, r, func() error {
		a.alerts.SetMinLevel(in.Level)
		return nil
	}) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (a *API) handleAlert(w http.ResponseWriter, r *http.Request) {
	row, err := pathIndex(r, "row")
	if err != nil {
		writeError(w, err)
		return
	}

	action := r.PathValue("action")

	if a.call(w, r, func() error {
		if row >= a.alerts.AlertListModel().Len() {
			return errors.New("alert not found").
				WithType(tools.ErrTypeNotFound).
				WithTag("row", row)
		}

		switch action {
		case "dismiss":
			a.alerts.Dismiss(row)

		case "viewed":
			a.alerts.SetViewed(row)

		case "highlight":
			show := r.URL.Query().Get("show") != "false"
			a.alerts.Highlight(row, show)

		case "zoom":
			a.alerts.ZoomTo(row)

		default:
			return errors.New("unknown alert action").
				WithType(tools.ErrTypeNotFound).
				WithTag("action", action)
		}
		return nil
	}) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (a *API) handlePackages(w http.ResponseWriter, r *http.Request) {
	var state packagesState
	if !a.call(w, r, func() error {
		state = packagesState{
			DataPath:       a.packages.PackageDataPath(),
			CurrentPackage: a.packages.CurrentPackage(),
			DocumentIndex:  a.packages.DocumentIndex(),
			State:          a.packages.State().String(),
			Packages:       make([]packages.Entry, 0, a.packages.Packages().Len()),
			Documents:      a.packages.Documents(),
		}

		for _, e := range a.packages.Packages().Items() {
			state.Packages = append(state.Packages, *e)
		}
		return nil
	}) {
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func (a *API) handlePackageImage(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	var data []byte
	if !a.call(w, r, func() error {
		img, ok := a.images[key]
		if !ok {
			return errors.New("image not found").
				WithType(tools.ErrTypeNotFound).
				WithTag("key", key)
		}
		data = img
		return nil
	}) {
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (a *API) handleSelectPackage(w http.ResponseWriter, r *http.Request) {
	var in selectPackageIn
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, errors.New("decoding request body failed").
			WithType(tools.ErrTypeInvalidArgument).
			Wrap(err))
		return
	}

	if in.Name == "" {
		writeError(w, errors.New("package name is empty").
			WithType(tools.ErrTypeInvalidArgument))
		return
	}

	if a.call(w, r, func() error {
		a.packages.SelectPackageName(in.Name)
		return nil
	}) {
		w.WriteHeader(http.StatusAccepted)
	}
}

func (a *API) handleSelectDocument(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r, "index")
	if err != nil {
		writeError(w, err)
		return
	}

	if a.call(w, r, func() error {
		a.packages.SelectDocument(index)
		return nil
	}) {
		w.WriteHeader(http.StatusAccepted)
	}
}

func (a *API) handleConfigurations(w http.ResponseWriter, r *http.Request) {
	var state configurationsState
	if !a.call(w, r, func() error {
		state = configurationsState{
			Configurations:  a.configurations.Configurations(),
			Downloading:     a.configurations.Downloading(),
			RequiresRestart: a.configurations.RequiresRestart(),
			Available:       a.configurations.ConfigurationIsAvailable(),
		}

		if p, ok := a.configurations.Progress(); ok {
			state.Progress = &progress{Progress: p}
			if f, ok := p.Fraction(); ok {
				state.Progress.Fraction = &f
			}
		}
		return nil
	}) {
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func (a *API) handleDownloadDefault(w http.ResponseWriter, r *http.Request) {
	if a.call(w, r, a.configurations.DownloadDefaultData) {
		w.WriteHeader(http.StatusAccepted)
	}
}

func (a *API) handleConfiguration(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r, "index")
	if err != nil {
		writeError(w, err)
		return
	}

	action := r.PathValue("action")
	status := http.StatusNoContent

	if a.call(w, r, func() error {
		switch action {
		case "download":
			status = http.StatusAccepted
			return a.configurations.Download(index)

		case "select":
			return a.configurations.Select(index)

		case "cancel":
			a.configurations.Cancel(index)
			return nil

		case "remove":
			return a.configurations.Remove(index)

		default:
			return errors.New("unknown configuration action").
				WithType(tools.ErrTypeNotFound).
				WithTag("action", action)
		}
	}) {
		w.WriteHeader(status)
	}
}

func (a *API) handleAnalyses(w http.ResponseWriter, r *http.Request) {
	var rows []analysis.Row
	if !a.call(w, r, func() error {
		rows = a.analyses.Rows()
		return nil
	}) {
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

// call runs f on the loop. It writes the error response and returns false
// when the loop is unavailable or f fails.
func (a *API) call(w http.ResponseWriter, r *http.Request, f func() error) bool {
	var err error
	if callErr := a.loop.Call(r.Context(), func() { err = f() }); callErr != nil {
		err = errors.New("event loop call failed").
			WithType(errTypeUnavailable).
			Wrap(callErr)
	}

	if err != nil {
		writeError(w, err)
		return false
	}
	return true
}

func alertFeatures(list []*alerts.Alert) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{
		Features: make([]*geojson.Feature, 0, len(list)),
	}

	bounds := quadtree.EmptyExtent()
	for _, a := range list {
		f := &geojson.Feature{
			ID: a.ID().String(),
			Properties: map[string]any{
				"message":     a.Message(),
				"status":      a.Status().String(),
				"level":       int(a.Status()),
				"description": a.Description(),
				"viewed":      a.Viewed(),
				"flashing":    a.Flashing(),
			},
		}

		if extent := quadtree.ExtentOf(a.Position()); !extent.IsEmpty() {
			f.Geometry = a.Position()
			f.BBox = extent.Bounds()
			bounds = quadtree.Union(bounds, extent)
		}

		fc.Features = append(fc.Features, f)
	}

	if !bounds.IsEmpty() {
		fc.BBox = bounds.Bounds()
	}
	return fc
}

func pathIndex(r *http.Request, name string) (int, error) {
	v := r.PathValue(name)

	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return 0, errors.New("invalid path index").
			WithType(tools.ErrTypeInvalidArgument).
			WithTag(name, v)
	}
	return i, nil
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.Type(err) {
	case tools.ErrTypeInvalidArgument:
		status = http.StatusBadRequest

	case tools.ErrTypeNotFound:
		status = http.StatusNotFound

	case tools.ErrTypeDownloadInProgress:
		status = http.StatusConflict

	case errTypeUnavailable:
		status = http.StatusServiceUnavailable

	default:
		logs.Warn(err)
	}

	data, _ := json.Marshal(errorOut{
		Type:    errors.Type(err),
		Message: err.Error(),
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, errors.New("encoding response failed").Wrap(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
