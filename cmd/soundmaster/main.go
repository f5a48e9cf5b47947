//go:build linux

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kimifish/soundmaster/internal/audiostatus"
	"github.com/kimifish/soundmaster/internal/bus"
	"github.com/kimifish/soundmaster/internal/config"
	"github.com/kimifish/soundmaster/internal/control"
	"github.com/kimifish/soundmaster/internal/display"
	"github.com/kimifish/soundmaster/internal/encoder"
	"github.com/kimifish/soundmaster/internal/gpio"
	"github.com/kimifish/soundmaster/internal/i2c"
	"github.com/kimifish/soundmaster/internal/inputsel"
	"github.com/kimifish/soundmaster/internal/logging"
	"github.com/kimifish/soundmaster/internal/mqtt"
	"github.com/kimifish/soundmaster/internal/pt2258"
	"github.com/kimifish/soundmaster/internal/state"
	"github.com/kimifish/soundmaster/internal/statusws"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("soundmaster v%s\n", version)
	fmt.Println("Home audio controller daemon: PT2258 volume, input selector, MQTT")
}

func main() {
	var (
		configPath  = flag.String("config", "/etc/soundmaster/config.yaml", "Path to YAML configuration file")
		logLevel    = flag.String("log-level", "", "Log level override: error, warn, info, debug")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		printVersion()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("daemon exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("soundmaster stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("soundmaster starting", "version", version)

	dispatcher := bus.NewDispatcher(logger.With("component", "bus"))
	loop := control.NewLoop(dispatcher, 0, logger.With("component", "loop"))

	// ------------------------------------------------------------------
	// I2C devices
	// ------------------------------------------------------------------

	i2cBus, err := i2c.Open(cfg.I2C.BusNumber)
	if err != nil {
		return fmt.Errorf("open i2c bus: %w", err)
	}
	defer i2cBus.Close()

	attenuator, err := pt2258.New(i2cBus, cfg.I2C.PT2258Address)
	if err != nil {
		// Without the attenuator there is nothing to control.
		return fmt.Errorf("init pt2258: %w", err)
	}
	logger.Info("pt2258 initialized", "addr", fmt.Sprintf("%#02x", attenuator.Addr()))

	var screen *display.Display
	if cfg.Display.Enabled {
		panel, err := display.NewSSD1306(i2cBus, cfg.I2C.DisplayAddress)
		if err != nil {
			// The controller works headless; a broken panel is not fatal.
			logger.Error("display init failed, continuing without display", "error", err)
		} else {
			screen = display.New(panel, cfg.Display.ClearDelay, logger.With("component", "display"))
		}
	}

	// ------------------------------------------------------------------
	// GPIO: input selector + rotary encoder
	// ------------------------------------------------------------------

	chip := gpio.NewChip(cfg.Pins.Chip)

	selector, selectorClose, err := wireSelector(chip, cfg.Pins.Input, loop, logger)
	if err != nil {
		return fmt.Errorf("wire input selector: %w", err)
	}
	defer selectorClose()

	buttonOut, err := chip.RequestOutput(cfg.Pins.Input.Button)
	if err != nil {
		return fmt.Errorf("request selector button output: %w", err)
	}
	defer buttonOut.Close()
	switcher := inputsel.NewSwitcher(buttonOut, selector, logger.With("component", "inputsel"))

	encoderClose, err := wireEncoder(chip, cfg.Pins.Encoder, loop, logger)
	if err != nil {
		return fmt.Errorf("wire encoder: %w", err)
	}
	defer encoderClose()

	// ------------------------------------------------------------------
	// MQTT
	// ------------------------------------------------------------------

	client, err := mqtt.Connect(cfg.MQTT, logger.With("component", "mqtt"))
	if err != nil {
		return fmt.Errorf("connect mqtt: %w", err)
	}
	defer client.Close()

	topics := mqtt.Topics{Base: cfg.MQTT.BaseTopic}
	bridge := mqtt.NewBridge(client, topics, loop, logger.With("component", "mqtt"))
	if err := bridge.Start(); err != nil {
		return fmt.Errorf("start mqtt bridge: %w", err)
	}

	// ------------------------------------------------------------------
	// State, controller, publishers
	// ------------------------------------------------------------------

	settings, err := state.Load(cfg.StateFile)
	if err != nil {
		logger.Warn("loading saved state failed, using defaults", "error", err)
	}

	var ctrl *control.Controller
	saver := state.NewSaver(cfg.SaveDelay,
		func() error {
			snap := ctrl.Snapshot()
			return state.Save(cfg.StateFile, state.Settings{
				MasterVolume:   snap.MasterVolume,
				ChannelVolumes: snap.ChannelVolumes,
				MuteState:      snap.MuteState,
				ActiveInput:    snap.ActiveInput,
			})
		},
		func() { loop.Push(bus.StateSaved{}) },
		logger.With("component", "state"))
	defer saver.Flush()

	publishers := control.MultiPublisher{bridge}

	var hub *statusws.Hub
	if cfg.StatusWS.Enabled {
		hub = statusws.NewHub(func() control.Snapshot { return ctrl.Snapshot() },
			logger.With("component", "statusws"))
		publishers = append(publishers, hub)
	}

	var controllerScreen control.Screen
	if screen != nil {
		controllerScreen = screen
	}
	ctrl = control.New(attenuator, controllerScreen, switcher, saver, publishers,
		control.Snapshot{
			MasterVolume:   settings.MasterVolume,
			ChannelVolumes: settings.ChannelVolumes,
			MuteState:      settings.MuteState,
			ActiveInput:    settings.ActiveInput,
		},
		logger.With("component", "control"))
	ctrl.Register(dispatcher)

	poller := audiostatus.New(cfg.SoundcardStatusFile, 0,
		func(st string) { loop.Push(bus.AudioStatusChanged{State: st}) },
		logger.With("component", "audiostatus"))

	// ------------------------------------------------------------------
	// Run
	// ------------------------------------------------------------------

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(ctx) })
	g.Go(func() error { return poller.Run(ctx) })
	if screen != nil {
		g.Go(func() error { return screen.Run(ctx) })
	}
	if hub != nil {
		g.Go(func() error { return hub.Run(ctx) })
		g.Go(func() error { return serveStatusWS(ctx, cfg.StatusWS.Addr, hub, logger) })
	}

	loop.Push(bus.AttenuatorReady{})
	loop.Push(bus.StateLoaded{})
	logger.Info("soundmaster running")

	return g.Wait()
}

// wireSelector requests the three selector sense lines and feeds every edge
// into a shared decoder that re-reads all lines, since a single edge never
// identifies the selected input on its own.
func wireSelector(chip *gpio.Chip, pins config.InputPins, loop *control.Loop, logger *slog.Logger) (*inputsel.Decoder, func(), error) {
	var (
		mu       sync.Mutex
		lines    [3]*gpio.InputLine
		selector *inputsel.Decoder
	)

	poll := func() {
		mu.Lock()
		defer mu.Unlock()
		if selector == nil {
			return
		}
		var levels [3]bool
		for i, l := range lines {
			v, err := l.Value()
			if err != nil {
				logger.Error("selector pin read failed", "error", err)
				return
			}
			levels[i] = v
		}
		selector.HandlePins(levels[0], levels[1], levels[2])
	}

	closeAll := func() {
		for _, l := range lines {
			if l != nil {
				l.Close()
			}
		}
	}

	onEdge := func(gpio.Edge) { poll() }
	for i, offset := range []int{pins.Opt, pins.Aux, pins.TV} {
		line, err := chip.RequestInput(offset, true, onEdge)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		lines[i] = line
	}

	var levels [3]bool
	for i, l := range lines {
		v, err := l.Value()
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		levels[i] = v
	}

	onSwitch := func(old, next inputsel.Source) {
		loop.Push(bus.SourceSwitched{Old: old, New: next})
	}

	mu.Lock()
	selector = inputsel.NewDecoder(levels[0], levels[1], levels[2], onSwitch,
		logger.With("component", "inputsel"))
	mu.Unlock()

	return selector, closeAll, nil
}

// wireEncoder requests the two quadrature lines and the push button and
// funnels their edges through one mutex into the decoder, which expects
// serialized calls.
func wireEncoder(chip *gpio.Chip, pins config.EncoderPins, loop *control.Loop, logger *slog.Logger) (func(), error) {
	var (
		mu          sync.Mutex
		left, right bool
		accel       encoder.Accelerator
	)

	dec := encoder.New(
		func(at time.Time, direction int) {
			// accel is guarded by mu: ticks only fire inside the edge handlers.
			steps := accel.Scale(at, direction)
			loop.Push(bus.Rotation{Steps: steps, At: at})
		},
		func(at time.Time) { loop.Push(bus.ShortPress{At: at}) },
		func(at time.Time) { loop.Push(bus.LongPress{At: at}) },
		logger.With("component", "encoder"))

	var lines []*gpio.InputLine
	closeAll := func() {
		for _, l := range lines {
			l.Close()
		}
	}

	leftLine, err := chip.RequestInput(pins.Left, false, func(e gpio.Edge) {
		mu.Lock()
		defer mu.Unlock()
		left = e.Level
		dec.HandleRotation(e.At, left, right)
	})
	if err != nil {
		return nil, err
	}
	lines = append(lines, leftLine)

	rightLine, err := chip.RequestInput(pins.Right, false, func(e gpio.Edge) {
		mu.Lock()
		defer mu.Unlock()
		right = e.Level
		dec.HandleRotation(e.At, left, right)
	})
	if err != nil {
		closeAll()
		return nil, err
	}
	lines = append(lines, rightLine)

	keyLine, err := chip.RequestInput(pins.Key, false, func(e gpio.Edge) {
		mu.Lock()
		defer mu.Unlock()
		dec.HandleButton(e.At, e.Level)
	})
	if err != nil {
		closeAll()
		return nil, err
	}
	lines = append(lines, keyLine)

	if v, err := leftLine.Value(); err == nil {
		left = v
	}
	if v, err := rightLine.Value(); err == nil {
		right = v
	}

	return closeAll, nil
}

// serveStatusWS runs the websocket status endpoint until ctx is cancelled.
func serveStatusWS(ctx context.Context, addr string, hub *statusws.Hub, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("status websocket listening", "addr", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
