package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Tom4hawk/ADSBTranslatorService/internal/fanout"
	"github.com/Tom4hawk/ADSBTranslatorService/internal/feed"
	"github.com/Tom4hawk/ADSBTranslatorService/internal/logging"
	"github.com/Tom4hawk/ADSBTranslatorService/internal/natsink"
	"github.com/Tom4hawk/ADSBTranslatorService/internal/translator"
	"github.com/Tom4hawk/ADSBTranslatorService/internal/web"
)

const (
	dialTimeout     = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Application represents the main application
type Application struct {
	config     Config
	logger     *logrus.Logger
	stdout     io.Writer
	translator *translator.Translator
	hub        *fanout.Hub
	feed       *feed.Client
	sbsServer  *fanout.Server
	webServer  *web.Server
	archive    *logging.Archive
	wg         sync.WaitGroup
}

// NewApplication creates a new application instance
func NewApplication(config Config) *Application {
	logger := logrus.New()
	if config.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Application{
		config: config,
		logger: logger,
		stdout: os.Stdout,
	}
}

// Start runs the application until SIGINT or SIGTERM
func (app *Application) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return app.Run(ctx)
}

// Run initializes every component and blocks until ctx is cancelled
func (app *Application) Run(ctx context.Context) error {
	app.logger.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	}).Info("Starting ADS-B SBS translator")

	if err := app.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := app.initializeComponents(); err != nil {
		app.closeComponents()
		return fmt.Errorf("failed to initialize components: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	app.run(runCtx, cancel)

	<-runCtx.Done()
	app.logger.Info("Received shutdown signal")
	app.shutdown()
	return nil
}

// initializeComponents builds the pipeline: source, translator, hub and sinks
func (app *Application) initializeComponents() error {
	app.translator = translator.New(
		app.config.Translator.FixSingleBitErrors,
		app.config.Translator.AircraftTTL,
		translator.SystemClock{},
		app.logger,
	)
	app.hub = fanout.NewHub(app.logger)

	source, format, err := app.newSource()
	if err != nil {
		return err
	}
	app.feed = feed.NewClient(source, format, app.translator, app.hub, app.config.Source.ReconnectDelay, app.logger)

	app.sbsServer = fanout.NewServer(app.config.Output.Listen, app.hub, app.logger)
	if err := app.sbsServer.Listen(); err != nil {
		return err
	}

	if app.config.Output.Stdout {
		app.hub.Subscribe(&writerSink{w: app.stdout, name: "stdout"}, fanout.Options{QueueSize: 4096, Persistent: true})
	}

	if app.config.Archive.Dir != "" {
		app.archive, err = logging.NewArchive(app.config.Archive.Dir, app.config.Archive.UTC, app.config.Archive.MaxDays, app.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize archive: %w", err)
		}
		app.hub.Subscribe(app.archive, fanout.Options{QueueSize: 4096, Persistent: true})
	}

	if app.config.NATS.URL != "" {
		publisher, err := natsink.Connect(app.config.NATS, app.logger)
		if err != nil {
			return err
		}
		app.hub.Subscribe(publisher, fanout.Options{QueueSize: 4096, Persistent: true})
	}

	if app.config.HTTP.Listen != "" {
		app.webServer = web.NewServer(app.config.HTTP.Listen, app.translator, app.hub, app.feed, app.logger)
	}
	return nil
}

// newSource maps the source configuration onto a feed source
func (app *Application) newSource() (feed.Source, feed.Format, error) {
	format, err := feed.ParseFormat(app.config.Source.Format)
	if err != nil {
		return nil, "", err
	}

	switch app.config.Source.Type {
	case SourceTCP:
		return &feed.TCPSource{Address: app.config.Source.Address, DialTimeout: dialTimeout}, format, nil
	case SourceSerial:
		return &feed.SerialSource{Port: app.config.Source.SerialPort, BaudRate: app.config.Source.BaudRate}, format, nil
	case SourceRTLSDR:
		return &feed.RTLSDRSource{Config: app.config.Source.RTLSDR, Logger: app.logger}, feed.FormatAVR, nil
	default:
		return nil, "", fmt.Errorf("unknown source type %q", app.config.Source.Type)
	}
}

// run starts one goroutine per long-lived component. A component that
// fails cancels the whole application.
func (app *Application) run(ctx context.Context, cancel context.CancelFunc) {
	app.goRun("feed", cancel, func() error { return app.feed.Run(ctx) })
	app.goRun("sbs server", cancel, func() error { return app.sbsServer.Serve(ctx) })

	if app.webServer != nil {
		app.goRun("http server", cancel, func() error { return app.webServer.Run(ctx) })
	}
	if app.archive != nil {
		app.goRun("archive", cancel, func() error {
			app.archive.Start(ctx)
			return nil
		})
	}
	app.goRun("statistics", cancel, func() error {
		app.reportStatistics(ctx, app.config.StatsInterval)
		return nil
	})

	app.logger.Info("All components started successfully")
}

func (app *Application) goRun(name string, cancel context.CancelFunc, fn func() error) {
	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		if err := fn(); err != nil {
			app.logger.WithError(err).WithField("component", name).Error("Component failed")
			cancel()
		}
	}()
}

// reportStatistics logs processing statistics periodically
func (app *Application) reportStatistics(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.logStatistics()
		}
	}
}

func (app *Application) logStatistics() {
	ts := app.translator.Stats()
	hs := app.hub.Stats()
	fs := app.feed.Stats()

	successRate := 0.0
	if ts.Frames > 0 {
		successRate = float64(ts.Accepted) / float64(ts.Frames) * 100
	}

	app.logger.WithFields(logrus.Fields{
		"frames":       ts.Frames,
		"malformed":    ts.Malformed,
		"discarded":    ts.Discarded,
		"corrected":    ts.Corrected,
		"recovered":    ts.Recovered,
		"accepted":     ts.Accepted,
		"lines":        ts.Lines,
		"aircraft":     ts.Aircraft,
		"subscribers":  hs.Subscribers,
		"dropped":      hs.Dropped,
		"bytes_read":   fs.BytesRead,
		"unterminated": fs.Dropped,
		"connects":     fs.Connects,
		"success_rate": fmt.Sprintf("%.2f%%", successRate),
	}).Info("Translator statistics")
}

// shutdown waits for the component goroutines and closes every sink
func (app *Application) shutdown() {
	app.logger.Info("Shutting down application")

	done := make(chan struct{})
	go func() {
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		app.logger.Info("All goroutines finished")
	case <-time.After(shutdownTimeout):
		app.logger.Warn("Shutdown timeout, forcing exit")
	}

	app.closeComponents()
	app.logger.Info("Shutdown completed")
}

func (app *Application) closeComponents() {
	if app.sbsServer != nil {
		app.sbsServer.Close()
	}
	if app.hub != nil {
		app.hub.Close()
	}
	if app.archive != nil {
		if err := app.archive.Close(); err != nil {
			app.logger.WithError(err).Error("Failed to close archive")
		}
	}
}

// writerSink echoes SBS lines to a writer such as stdout
type writerSink struct {
	mu   sync.Mutex
	w    io.Writer
	name string
}

func (s *writerSink) Send(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.w, line+"\n")
	return err
}

func (s *writerSink) Close() error {
	return nil
}

func (s *writerSink) String() string {
	return s.name
}
