// Package app wires the data source, sample pipeline and output
// writers together and owns the process lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/RyanBlaney/latency-benchmark-common/logging"

	"github.com/emsysdev/accelspec/configs"
	"github.com/emsysdev/accelspec/internal/output"
	"github.com/emsysdev/accelspec/internal/pipeline"
	"github.com/emsysdev/accelspec/internal/publish"
	"github.com/emsysdev/accelspec/internal/spectral"
	"github.com/emsysdev/accelspec/pkg/spatial"
)

// Context holds everything the application needs to run: the resolved
// configuration, the data source collaborator and the logger. InfoOnly
// prints device metadata and exits instead of starting the pipeline.
type Context struct {
	Config   *configs.Config
	Source   spatial.Source
	InfoOnly bool
	Logger   logging.Logger
}

// App runs the capture pipeline for one process lifetime.
type App struct {
	ctx    *Context
	config *configs.Config
	logger logging.Logger

	scheduler *pipeline.Scheduler
	wav       *output.WavWriter
	publisher *publish.Publisher
}

// New validates the context and builds the application.
func New(ctx *Context) (*App, error) {
	if ctx.Config == nil {
		return nil, fmt.Errorf("app requires a configuration")
	}
	if ctx.Source == nil {
		return nil, fmt.Errorf("app requires a data source")
	}
	logger := ctx.Logger
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	ctx.Logger = logger

	logger.Debug("Application initialized", logging.Fields{
		"sample_rate":      ctx.Config.Sensor.SampleRate,
		"average_interval": ctx.Config.Spectral.AverageInterval,
		"max_frequency":    ctx.Config.Spectral.MaxFrequency,
		"output_directory": ctx.Config.Output.Directory,
		"info_only":        ctx.InfoOnly,
	})

	return &App{
		ctx:    ctx,
		config: ctx.Config,
		logger: logger,
	}, nil
}

// Run executes the application until ctx is canceled. A clean shutdown
// stops accepting samples, discards any partially filled window and
// closes the output files.
func (app *App) Run(ctx context.Context) error {
	cfg := app.config
	source := app.ctx.Source

	if app.ctx.InfoOnly {
		if err := source.Open(spatial.Handlers{
			OnAttach: app.onAttach,
			OnDetach: app.onDetach,
			OnError:  app.onDeviceError,
		}); err != nil {
			return fmt.Errorf("failed to open data source: %w", err)
		}
		defer source.Close()

		if err := app.waitAttachment(ctx, source); err != nil {
			return err
		}
		return app.printDeviceInfo(source)
	}

	if err := app.buildPipeline(); err != nil {
		return err
	}

	if err := source.Open(spatial.Handlers{
		OnAttach: app.onAttach,
		OnDetach: app.onDetach,
		OnError:  app.onDeviceError,
		OnData:   app.onData,
	}); err != nil {
		return fmt.Errorf("failed to open data source: %w", err)
	}

	if err := app.waitAttachment(ctx, source); err != nil {
		source.Close()
		return err
	}

	if err := source.SetDataRate(cfg.Sensor.SampleRate); err != nil {
		source.Close()
		return fmt.Errorf("failed to set device data rate: %w", err)
	}

	app.logger.Info("Capture pipeline running", logging.Fields{
		"sample_rate":      cfg.Sensor.SampleRate,
		"average_interval": cfg.Spectral.AverageInterval,
		"wav":              cfg.Output.WAV,
	})

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		app.scheduler.Run(consumerCtx)
	}()

	<-ctx.Done()

	// Shutdown order matters: stop the sample flow first, then the
	// consumer, then release the output files.
	if err := source.Close(); err != nil {
		app.logger.Error(err, "Failed closing data source")
	}
	stopConsumer()
	<-consumerDone

	if app.wav != nil {
		if err := app.wav.Close(); err != nil {
			app.logger.Error(err, "Failed closing raw output file")
		}
	}
	if app.publisher != nil {
		app.publisher.Close()
	}

	stats := app.scheduler.Stats()
	app.logger.Info("Capture pipeline stopped", logging.Fields{
		"frames_processed": stats.FramesProcessed,
		"rows_emitted":     stats.RowsEmitted,
		"overruns":         stats.Overruns,
		"sink_errors":      stats.SinkErrors,
	})
	return nil
}

// buildPipeline allocates the writers, the optional publisher and the
// scheduler. All buffer sizing happens here, before the first sample.
func (app *App) buildPipeline() error {
	cfg := app.config

	writer := output.NewWriter(cfg.Output.Directory, cfg.Spectral.MaxFrequency, app.logger)
	sinks := []pipeline.Sink{writer}

	if cfg.Publish.Broker != "" {
		publisher, err := publish.New(cfg.Publish, app.logger)
		if err != nil {
			return fmt.Errorf("failed to connect summary publisher: %w", err)
		}
		app.publisher = publisher
		sinks = append(sinks, publisher)
	}

	mode := spectral.ModeAverage
	if cfg.Spectral.CalcMax {
		mode = spectral.ModeMax
	}

	scheduler, err := pipeline.NewScheduler(pipeline.Config{
		SampleRate:      cfg.Sensor.SampleRate,
		PipelineLength:  cfg.Pipeline.Length,
		AverageInterval: cfg.Spectral.AverageInterval,
		MaxFrequency:    cfg.Spectral.MaxFrequency,
		Mode:            mode,
		PollInterval:    cfg.Pipeline.PollInterval,
		Logger:          app.logger,
	}, fanout(sinks))
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	app.scheduler = scheduler

	if cfg.Output.WAV {
		app.wav = output.NewWavWriter(cfg.Output.Directory, cfg.Sensor.SampleRate,
			cfg.Spectral.TauSeconds, app.logger)
	}
	return nil
}

// onData is the producer hot path: raw stream first, then frame ingest.
func (app *App) onData(batch []spatial.Sample) {
	if app.wav != nil {
		if err := app.wav.WriteBatch(batch); err != nil {
			app.logger.Error(err, "Failed writing raw stream batch")
		}
	}
	app.scheduler.Ingest(batch)
}

// waitAttachment blocks until the device attaches, retrying with
// backoff indefinitely, or until ctx is canceled.
func (app *App) waitAttachment(ctx context.Context, source spatial.Source) error {
	cfg := app.config.Sensor
	app.logger.Info("Waiting for spatial sensor to attach", logging.Fields{
		"timeout": cfg.AttachTimeout.String(),
	})
	for {
		err := source.WaitAttachment(cfg.AttachTimeout)
		if err == nil {
			return nil
		}
		app.logger.Warn("Sensor not attached, retrying", logging.Fields{
			"error":   err.Error(),
			"backoff": cfg.RetryBackoff.String(),
		})
		select {
		case <-ctx.Done():
			return fmt.Errorf("canceled while waiting for sensor: %w", ctx.Err())
		case <-time.After(cfg.RetryBackoff):
		}
	}
}

// printDeviceInfo writes the device metadata to stdout for --info mode.
func (app *App) printDeviceInfo(source spatial.Source) error {
	info, err := source.Info()
	if err != nil {
		return fmt.Errorf("failed to query device info: %w", err)
	}
	fmt.Fprintf(os.Stdout, "%s\n", info.DeviceType)
	fmt.Fprintf(os.Stdout, "Serial Number: %10d\nVersion: %8d\n", info.SerialNumber, info.Version)
	fmt.Fprintf(os.Stdout, "Number of Accel Axes: %d\n", info.AccelAxisCount)
	fmt.Fprintf(os.Stdout, "Number of Gyro Axes: %d\n", info.GyroAxisCount)
	fmt.Fprintf(os.Stdout, "Number of Compass Axes: %d\n", info.CompassAxisCount)
	fmt.Fprintf(os.Stdout, "Data Rate range: %d - %d\n", info.DataRateMin, info.DataRateMax)
	return nil
}

func (app *App) onAttach(info spatial.DeviceInfo) {
	app.logger.Info("Spatial sensor attached", logging.Fields{
		"serial": info.SerialNumber,
		"type":   info.DeviceType,
	})
}

func (app *App) onDetach(info spatial.DeviceInfo) {
	app.logger.Warn("Spatial sensor detached", logging.Fields{
		"serial": info.SerialNumber,
	})
}

func (app *App) onDeviceError(code int, description string) {
	app.logger.Warn("Spatial sensor reported an error", logging.Fields{
		"code":        code,
		"description": description,
	})
}

// fanoutSink hands each row to every configured sink and reports the
// combined failures; one failing sink never starves the others.
type fanoutSink []pipeline.Sink

func fanout(sinks []pipeline.Sink) pipeline.Sink {
	if len(sinks) == 1 {
		return sinks[0]
	}
	return fanoutSink(sinks)
}

func (f fanoutSink) Append(axis spatial.Axis, ts time.Time, values []float64) error {
	var errs []error
	for _, sink := range f {
		if err := sink.Append(axis, ts, values); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
