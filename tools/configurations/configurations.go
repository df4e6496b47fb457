// Package configurations implements the tool that downloads data
// configurations and selects the one used by the application.
//
// Configurations are listed in a configurations.json file at the root of the
// configurations directory. A configuration is downloaded when a directory
// named after it exists next to that file. A single download runs at a time.
package configurations

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/aukilabs/dsa/eventloop"
	"github.com/aukilabs/dsa/notify"
	"github.com/aukilabs/dsa/tools"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// ToolName is the name of the configurations tool.
const ToolName = "Configurations"

// Item is a configuration as listed by the tool.
type Item struct {
	Configuration

	Downloaded  bool `json:"downloaded"`
	Downloading bool `json:"downloading"`
}

type download struct {
	id       uuid.UUID
	index    int
	name     string
	cancel   context.CancelFunc
	progress Progress
}

// Controller is the configurations tool. Its methods must be called on the
// event loop it was created with.
type Controller struct {
	tools.Events

	// Emitted when the configurations or their state change.
	ConfigurationsChanged notify.Event

	// Emitted when the active download progresses.
	ProgressChanged notify.Signal[Progress]

	loop     *eventloop.Loop
	client   *http.Client
	root     string
	ctx      context.Context
	cancel   context.CancelFunc
	requests eventloop.Requests[int]

	configurations  []Configuration
	active          *download
	requiresRestart bool
}

// New creates a configurations tool for the configurations of root. The
// client is used for downloads.
func New(loop *eventloop.Loop, client *http.Client, root string) (*Controller, error) {
	configurations, err := readConfigurations(root)
	if err != nil {
		return nil, err
	}

	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		loop:           loop,
		client:         client,
		root:           root,
		ctx:            ctx,
		cancel:         cancel,
		configurations: configurations,
	}, nil
}

func (c *Controller) ToolName() string {
	return ToolName
}

// SetProperties does nothing: configurations are stored in their own file.
func (c *Controller) SetProperties(tools.Properties) {
}

// Configurations returns the configurations and their download state.
func (c *Controller) Configurations() []Item {
	items := make([]Item, len(c.configurations))
	for i, conf := range c.configurations {
		items[i] = Item{
			Configuration: conf,
			Downloaded:    c.downloaded(conf.Name),
			Downloading:   c.active != nil && c.active.index == i,
		}
	}
	return items
}

// Downloading reports whether a download is in progress.
func (c *Controller) Downloading() bool {
	return c.active != nil
}

// Progress returns the progress of the active download.
func (c *Controller) Progress() (Progress, bool) {
	if c.active == nil {
		return Progress{}, false
	}
	return c.active.progress, true
}

// RequiresRestart reports whether a selection is waiting for the
// application to restart.
func (c *Controller) RequiresRestart() bool {
	return c.requiresRestart
}

// ConfigurationIsAvailable reports whether the selected configuration is
// downloaded.
func (c *Controller) ConfigurationIsAvailable() bool {
	for _, conf := range c.configurations {
		if conf.Selected {
			return c.downloaded(conf.Name)
		}
	}
	return false
}

// Path returns the directory holding the data of a configuration.
func (c *Controller) Path(name string) string {
	return filepath.Join(c.root, name)
}

// Download starts downloading the configuration at index. A download
// requested while another one runs is rejected.
func (c *Controller) Download(index int) error {
	conf, err := c.configuration(index)
	if err != nil {
		return err
	}

	if c.active != nil {
		return errors.New("a download is already in progress").
			WithType(tools.ErrTypeDownloadInProgress).
			WithTag("configuration", conf.Name).
			WithTag("downloading", c.active.name)
	}

	ctx, cancel := context.WithCancel(c.ctx)
	id := c.requests.Add(index)
	c.active = &download{
		id:       id,
		index:    index,
		name:     conf.Name,
		cancel:   cancel,
		progress: Progress{Index: index, Total: -1},
	}

	instrumentDownload(conf.Name)
	logs.WithTag("tool", ToolName).
		WithTag("configuration", conf.Name).
		WithTag("url", conf.URL).
		Info("downloading configuration")

	notify.Fire(&c.ConfigurationsChanged)

	dir := c.Path(conf.Name)
	client := c.client
	root := c.root

	eventloop.Async(ctx, c.loop, func(ctx context.Context) downloadResult {
		start := time.Now()

		filename, n, err := fetch(ctx, client, conf.URL, root, func(received, total int64) {
			c.loop.Post(func() {
				c.onProgress(id, received, total)
			})
		})
		if err != nil {
			instrumentDownloadResult(conf.Name, start, err)
			return downloadResult{err: err}
		}
		defer os.Remove(filename)

		stats, err := extract(ctx, filename, dir)
		instrumentDownloadResult(conf.Name, start, err)
		return downloadResult{bytes: n, stats: stats, err: err}
	}, func(res downloadResult) {
		c.onDownloaded(id, res)
	})
	return nil
}

func (c *Controller) onProgress(id uuid.UUID, received, total int64) {
	if c.active == nil || c.active.id != id {
		return
	}

	c.active.progress.Received = received
	c.active.progress.Total = total
	c.ProgressChanged.Emit(c.active.progress)
}

func (c *Controller) onDownloaded(id uuid.UUID, res downloadResult) {
	if _, ok := c.requests.Take(id); !ok {
		return
	}

	name := c.active.name
	c.active.cancel()
	c.active = nil
	defer notify.Fire(&c.ConfigurationsChanged)

	if res.err != nil {
		message := "Failed to download configuration"
		if errors.Type(res.err) == ErrTypeExtractFailed {
			message = "Failed to extract configuration"
		}

		c.ReportError(message, res.err)
		return
	}

	logs.WithTag("tool", ToolName).
		WithTag("configuration", name).
		WithTag("downloaded", humanize.Bytes(uint64(res.bytes))).
		WithTag("extracted", humanize.Bytes(res.stats.Bytes)).
		WithTag("files", res.stats.Files).
		Info("configuration downloaded")
}

// Cancel abandons the download of the configuration at index. A completion
// of the abandoned download is ignored.
func (c *Controller) Cancel(index int) {
	if c.active == nil || c.active.index != index {
		return
	}

	c.requests.Cancel(c.active.id)
	c.active.cancel()

	logs.WithTag("tool", ToolName).
		WithTag("configuration", c.active.name).
		Info("configuration download canceled")

	c.active = nil
	notify.Fire(&c.ConfigurationsChanged)
}

// Remove deletes the downloaded data of the configuration at index. The
// selected configuration cannot be removed.
func (c *Controller) Remove(index int) error {
	conf, err := c.configuration(index)
	if err != nil {
		return err
	}

	if conf.Selected {
		return errors.New("the selected configuration cannot be removed").
			WithType(tools.ErrTypeInvalidArgument).
			WithTag("configuration", conf.Name)
	}

	c.Cancel(index)

	if err := os.RemoveAll(c.Path(conf.Name)); err != nil {
		return errors.New("removing configuration failed").
			WithType(tools.ErrTypeOperationFailed).
			WithTag("configuration", conf.Name).
			Wrap(err)
	}

	notify.Fire(&c.ConfigurationsChanged)
	return nil
}

// Select makes the configuration at index the selected configuration. The
// selection takes effect after the application restarts.
func (c *Controller) Select(index int) error {
	conf, err := c.configuration(index)
	if err != nil {
		return err
	}
	if conf.Selected {
		return nil
	}

	configurations := slices.Clone(c.configurations)
	for i := range configurations {
		configurations[i].Selected = i == index
	}

	if err := writeConfigurations(c.root, configurations); err != nil {
		return err
	}

	c.configurations = configurations
	c.requiresRestart = true
	notify.Fire(&c.ConfigurationsChanged)
	return nil
}

// DownloadDefaultData adds the default configuration when it is missing and
// downloads it.
func (c *Controller) DownloadDefaultData() error {
	index := -1
	for i, conf := range c.configurations {
		if conf.Name == DefaultName {
			index = i
			break
		}
	}

	if index < 0 {
		configurations := append(slices.Clone(c.configurations), Configuration{
			Name:     DefaultName,
			URL:      DefaultDownloadURL,
			Selected: !c.hasSelection(),
		})

		if err := writeConfigurations(c.root, configurations); err != nil {
			return err
		}

		c.configurations = configurations
		index = len(c.configurations) - 1
		notify.Fire(&c.ConfigurationsChanged)
	}

	return c.Download(index)
}

func (c *Controller) Close() {
	c.cancel()
	c.requests.CancelFunc(func(int) bool { return true })
	c.active = nil
}

func (c *Controller) configuration(index int) (Configuration, error) {
	if index < 0 || index >= len(c.configurations) {
		return Configuration{}, errors.New("configuration not found").
			WithType(tools.ErrTypeInvalidArgument).
			WithTag("index", index)
	}
	return c.configurations[index], nil
}

func (c *Controller) downloaded(name string) bool {
	info, err := os.Stat(c.Path(name))
	return err == nil && info.IsDir()
}

func (c *Controller) hasSelection() bool {
	for _, conf := range c.configurations {
		if conf.Selected {
			return true
		}
	}
	return false
}
