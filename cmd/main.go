package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"path/filepath"
	"reflect"
	"syscall"
	"time"

	"github.com/aukilabs/dsa/alerts"
	"github.com/aukilabs/dsa/eventloop"
	"github.com/aukilabs/dsa/featureflag"
	"github.com/aukilabs/dsa/geoview"
	dsahttp "github.com/aukilabs/dsa/http"
	"github.com/aukilabs/dsa/settings"
	"github.com/aukilabs/dsa/tools"
	"github.com/aukilabs/dsa/tools/alertlist"
	"github.com/aukilabs/dsa/tools/analysis"
	"github.com/aukilabs/dsa/tools/configurations"
	"github.com/aukilabs/dsa/tools/editalerts"
	"github.com/aukilabs/dsa/tools/follow"
	"github.com/aukilabs/dsa/tools/packages"
	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
)

var (
	// The DSA version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "dsa_info",
		Help:        "DSA information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr             string        `cli:""        env:"DSA_ADDR"              help:"Listening address for the API."`
	AdminAddr        string        `cli:""        env:"DSA_ADMIN_ADDR"        help:"Admin listening address."`
	DataDir          string        `cli:""        env:"DSA_DATA_DIR"          help:"Directory holding the settings and the configurations."`
	PackageDirectory string        `cli:""        env:"DSA_PACKAGE_DIRECTORY" help:"Directory scanned for packages when none is stored in the settings."`
	LogLevel         string        `cli:""        env:"DSA_LOG_LEVEL"         help:"Log level (debug|info|warning|error)."`
	LogIndent        bool          `cli:""        env:"DSA_LOG_INDENT"        help:"Indent logs."`
	DownloadTimeout  time.Duration `cli:",hidden" env:"DSA_DOWNLOAD_TIMEOUT"  help:"Timeout of configuration downloads."`
	QueueSize        int           `cli:",hidden" env:"DSA_QUEUE_SIZE"        help:"The size of the event loop queue."`
	FeatureFlags     []string      `cli:",hidden" env:"DSA_FEATURE_FLAGS"     help:"Comma separated feature flags"`
	Version          bool          `cli:""        env:"-"                     help:"Show version."`
	Help             bool          `cli:""        env:"-"                     help:"Show help."`
}

type app struct {
	manager   *tools.Manager
	analyses  *analysis.CombinedListModel
	api       *dsahttp.API
	readiness func() bool
}

func main() {
	conf := config{
		Addr:            ":4000",
		AdminAddr:       ":18190",
		DataDir:         "data",
		LogLevel:        logs.InfoLevel.String(),
		DownloadTimeout: time.Minute * 30,
		QueueSize:       256,
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts the DSA mapping tools server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := validateConfig(conf); err != nil {
		logs.Fatal(err)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	client := &http.Client{
		Transport: metrics.HTTPTransport(http.DefaultTransport),
		Timeout:   conf.DownloadTimeout,
	}

	loop := eventloop.New(conf.QueueSize)
	go loop.Run(ctx)

	var a app
	var err error
	if callErr := loop.Call(ctx, func() {
		a, err = setup(loop, client, conf)
	}); callErr != nil {
		err = callErr
	}
	if err != nil {
		logs.Fatal(errors.New("setting up tools failed").Wrap(err))
	}

	var service http.ServeMux
	a.api.Handle(&service)
	service.Handle("/health", dsahttp.HandleWithCORS(http.HandlerFunc(dsahttp.HandleHealthCheck)))
	service.Handle("/version", dsahttp.HandleWithCORS(http.HandlerFunc(dsahttp.HandleVersion(version))))
	service.Handle("/ready", dsahttp.HandleWithCORS(http.HandlerFunc(dsahttp.HandleReadyCheck(a.readiness))))

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", dsahttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.HandleFunc("/ready", dsahttp.HandleReadyCheck(a.readiness))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("data_dir", conf.DataDir).
		WithTag("feature_flags", conf.FeatureFlags).
		Info("starting dsa server")

	dsahttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			dsahttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)

	// The loop stopped with ctx: tools are closed from here, once every
	// handler returned.
	a.api.Close()
	a.analyses.Close()
	a.manager.Close()
	loop.Close()
}

// setup creates the tools and registers them. It runs on loop.
func setup(loop *eventloop.Loop, client *http.Client, conf config) (app, error) {
	flags := featureflag.New(conf.FeatureFlags)

	store, err := settings.Load(filepath.Join(conf.DataDir, "settings.json"))
	if err != nil {
		return app{}, err
	}

	configurationsDir := filepath.Join(conf.DataDir, "configurations")
	created, err := configurations.CreateDefaultConfigurationsFile(configurationsDir)
	if err != nil {
		return app{}, err
	}
	if created {
		logs.WithTag("path", configurationsDir).Info("default configurations file created")
	}

	model := alerts.NewModel()
	resources := geoview.NewResourceProvider()
	resources.SetGeoView(geoview.NewMapView())

	configurationsTool, err := configurations.New(loop, client, configurationsDir)
	if err != nil {
		return app{}, err
	}

	alertList := alertlist.New(model, resources)
	packagePicker := packages.New(loop, resources, flags)

	manager := tools.NewManager()
	for _, t := range []tools.Tool{
		editalerts.New(model, resources),
		alertList,
		packagePicker,
		configurationsTool,
		follow.New(resources),
	} {
		if err := manager.Add(t); err != nil {
			return app{}, err
		}
	}

	manager.ErrorOccurred.Connect(func(e tools.ToolEvent[tools.ToolError]) {
		logs.Warn(errors.New(e.Value.Message).
			WithType(e.Value.Type).
			WithTag("tool", e.Tool).
			WithTag("details", e.Value.Additional))
	})

	manager.UseSettings(store)
	if _, ok := store.String(tools.PackageDirectoryProperty); !ok && conf.PackageDirectory != "" {
		manager.SetProperties(tools.Properties{
			tools.PackageDirectoryProperty: conf.PackageDirectory,
		})
	}

	flags.IfNotSet(featureflag.FlagDisableDefaultDownload, func() {
		if configurationsTool.ConfigurationIsAvailable() || configurationsTool.Downloading() {
			return
		}

		if err := configurationsTool.DownloadDefaultData(); err != nil {
			logs.Warn(errors.New("downloading default configuration failed").Wrap(err))
		}
	})

	analyses := analysis.NewCombinedListModel(resources)

	return app{
		manager:  manager,
		analyses: analyses,
		api:      dsahttp.NewAPI(loop, alertList, packagePicker, configurationsTool, analyses),
		readiness: func() bool {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			var ready bool
			err := loop.Call(ctx, func() {
				ready = configurationsTool.ConfigurationIsAvailable()
			})
			return err == nil && ready
		},
	}, nil
}

func validateConfig(conf config) error {
	if conf.DataDir == "" {
		return errors.New("data directory is empty")
	}

	if conf.QueueSize < 0 {
		return errors.New("invalid queue size").
			WithTag("queue_size", conf.QueueSize)
	}

	return nil
}
