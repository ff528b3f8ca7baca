package analysis

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/platewatch/internal/camera"
	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/display"
	"github.com/tphakala/platewatch/internal/httpserver"
	"github.com/tphakala/platewatch/internal/logger"
	"github.com/tphakala/platewatch/internal/mqtt"
	"github.com/tphakala/platewatch/internal/notify"
	"github.com/tphakala/platewatch/internal/observability"
	"github.com/tphakala/platewatch/internal/pipeline"
	"github.com/tphakala/platewatch/internal/search"
	"github.com/tphakala/platewatch/internal/telemetry"
)

const (
	mqttConnectTimeout = 10 * time.Second
	sentryFlushTimeout = 2 * time.Second
)

// RealtimeAnalysis reads the configured camera until interrupted, the
// stream ends or the preview window is closed, reporting the owner of
// every newly recognized plate.
func RealtimeAnalysis(settings *conf.Settings) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runRealtime(ctx, settings)
}

func runRealtime(ctx context.Context, settings *conf.Settings) error {
	log := GetLogger()
	logHostInfo(log)

	if settings.Sentry.Enabled {
		if err := telemetry.InitSentry(settings); err != nil {
			log.Warn("error telemetry disabled", logger.Error(err))
		} else {
			defer telemetry.Flush(sentryFlushTimeout)
		}
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	store, err := openStore(settings)
	if err != nil {
		return err
	}
	defer closeStore(store)

	lookup := search.New(store, settings.Lookup.CacheTTL, m.Lookup)

	rec, err := newRecognizer(settings, m)
	if err != nil {
		return err
	}
	defer rec.Close()

	capture, err := camera.Open(&settings.Camera)
	if err != nil {
		return err
	}
	defer capture.Close()

	publishers, closePublishers := newPublishers(ctx, settings, m)
	defer closePublishers()

	deps := pipeline.Deps{
		Frames:      capture,
		Detector:    rec.detector,
		Reader:      rec.reader,
		Lookup:      lookup,
		Publishers:  publishers,
		Metrics:     m.Pipeline,
		EndOfStream: camera.ErrEndOfStream,
		SourceLost:  camera.ErrCaptureLost,
	}

	// The window has to live on this goroutine, which also drives the
	// pipeline loop.
	if settings.Camera.Window {
		win := display.NewWindow(settings.Camera.WindowName)
		defer win.Close()
		deps.Renderer = win
	}

	p, err := pipeline.New(settings, deps)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if settings.WebServer.Enabled {
		srv, err := httpserver.New(settings,
			httpserver.WithLookup(lookup),
			httpserver.WithRegistry(store),
			httpserver.WithPlateStatus(p),
			httpserver.WithMetrics(m))
		if err != nil {
			return err
		}
		g.Go(func() error { return srv.Run(gctx) })
	}

	log.Info("starting realtime analysis",
		logger.String("device", settings.Camera.Device),
		logger.Float64("threshold", settings.Detector.Threshold),
		logger.Int("frame_skip", settings.Camera.FrameSkip))

	runErr := p.Run(gctx)
	cancel()
	if err := g.Wait(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		telemetry.CaptureError(runErr, "analysis")
	}
	return runErr
}

// newPublishers builds the MQTT and notification publishers that are
// enabled. A broker that cannot be reached at startup is logged and kept,
// publishes fail until it comes back.
func newPublishers(ctx context.Context, settings *conf.Settings, m *observability.Metrics) (publishers []pipeline.Publisher, closeAll func()) {
	log := GetLogger()
	var closers []func()

	if settings.MQTT.Enabled {
		client, err := mqtt.NewClient(settings, m)
		if err != nil {
			log.Error("MQTT disabled", logger.Error(err))
		} else {
			connectCtx, cancel := context.WithTimeout(ctx, mqttConnectTimeout)
			if err := client.Connect(connectCtx); err != nil {
				log.Warn("failed to connect to MQTT broker",
					logger.String("broker", settings.MQTT.Broker),
					logger.Error(err))
			}
			cancel()
			publishers = append(publishers, mqtt.NewPublisher(client, settings.MQTT.Topic))
			closers = append(closers, client.Disconnect)
		}
	}

	if settings.Notify.Enabled {
		n, err := notify.New(&settings.Notify)
		if err != nil {
			log.Error("notifications disabled", logger.Error(err))
		} else {
			publishers = append(publishers, n)
		}
	}

	return publishers, func() {
		for _, c := range closers {
			c()
		}
	}
}

func logHostInfo(log logger.Logger) {
	info, err := host.Info()
	if err != nil {
		log.Warn("failed to read host info", logger.Error(err))
		return
	}
	log.Info("system details",
		logger.String("os", info.OS),
		logger.String("platform", info.Platform),
		logger.String("platform_version", info.PlatformVersion),
		logger.String("arch", info.KernelArch))
}
