package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rotenc/encoder"
	"rotenc/eventpipe"
	"rotenc/indicator"
	"rotenc/mqtt"
	"rotenc/pins"
	"rotenc/rotary"
)

var myBuild string

// App holds the application state and dependencies.
type App struct {
	cfg       *Config
	log       *slog.Logger
	pins      pins.Provider
	rotary    *rotary.Rotary
	mqtt      *mqtt.Client
	indicator indicator.Indicator
	events    *eventpipe.EventPipe
	ctx       context.Context
	cancel    context.CancelFunc
}

func main() {
	fmt.Printf("rotenc build %s\n", myBuild)

	cfgfile := flag.String("cfg", "rotenc.cfg", "Config file")
	logLevel := flag.String("log-level", "", "Override log level (error, warn, info, debug)")
	flag.Parse()

	cfg, err := LoadConfig(*cfgfile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rotenc: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rotenc: %v\n", err)
		os.Exit(1)
	}
	logger := setupLogger(level)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		cfg:    cfg,
		log:    logger,
		ctx:    ctx,
		cancel: cancel,
	}
	if err := app.init(); err != nil {
		logger.Error("init failed", "error", err)
		os.Exit(1)
	}

	// Start background goroutines
	go func() {
		if err := app.mqtt.Connect(); err != nil {
			logger.Warn("mqtt connect", "error", err)
		}
	}()
	go func() {
		if err := app.rotary.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("rotary loop", "error", err)
		}
	}()
	go app.pingSender()
	if app.events != nil {
		go app.events.Start()
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	app.shutdown()
	logger.Info("shutdown complete")
}

func (app *App) init() error {
	var err error

	// Start with connection lost state until the broker answers
	app.indicator, err = indicator.New(app.cfg.Indicator)
	if err != nil {
		return fmt.Errorf("init indicator: %w", err)
	}
	app.indicator.ConnectionLost()

	app.mqtt, err = mqtt.New(app.cfg.MQTT, app.cfg.ClientID, mqtt.Handlers{
		OnConnect:    app.onMQTTConnect,
		OnDisconnect: app.onMQTTDisconnect,
		OnParalysis:  app.setParalysis,
	}, app.log.With("component", "mqtt"))
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}

	app.pins, err = pins.New(app.cfg.Pins)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}

	app.rotary, err = rotary.New(app.cfg.Rotary, app.pins, pins.NewMonotonic(), rotary.Handlers{
		OnTurn: app.onTurn,
	}, app.log.With("component", "rotary"))
	if err != nil {
		return fmt.Errorf("init rotary: %w", err)
	}

	if sim, ok := app.pins.(*pins.Sim); ok {
		bench := newBench(sim, app.rotary, app.cfg.Rotary, app.log.With("component", "bench"))
		app.events, err = eventpipe.New(app.cfg.EventPipe, bench.apply, app.log.With("component", "eventpipe"))
		if err != nil {
			return fmt.Errorf("init event pipe: %w", err)
		}
	}
	return nil
}

func (app *App) shutdown() {
	app.cancel()

	if app.events != nil {
		app.events.Close()
	}
	if err := app.rotary.Release(); err != nil {
		app.log.Warn("release rotary", "error", err)
	}
	if err := app.pins.Close(); err != nil {
		app.log.Warn("close gpio", "error", err)
	}
	app.mqtt.Disconnect()
	app.indicator.Shutdown()
	if err := app.indicator.Release(); err != nil {
		app.log.Warn("release indicator", "error", err)
	}
}

func (app *App) onTurn(dir encoder.Direction, position int64) {
	app.indicator.Rotated(dir, position)
	app.mqtt.PublishRotation(dir, position)
}

func (app *App) setParalysis(ms uint32) {
	if err := app.rotary.SetParalysis(ms); err != nil {
		app.log.Warn("rejected paralysis command", "error", err)
	}
}

func (app *App) onMQTTConnect() {
	app.indicator.Idle()
}

func (app *App) onMQTTDisconnect() {
	app.indicator.ConnectionLost()
}

func (app *App) pingSender() {
	ticker := time.NewTicker(120 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			lineErr := app.rotary.LineErr()
			if lineErr != nil {
				app.log.Warn("encoder line failing", "error", lineErr)
			}
			app.mqtt.Ping(lineErr)
		}
	}
}
