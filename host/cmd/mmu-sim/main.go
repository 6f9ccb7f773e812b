package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"mmuctl/config"
	"mmuctl/core"
	"mmuctl/host/serial"
	"mmuctl/mmu"
	"mmuctl/motion"
	"mmuctl/protocol"
	"mmuctl/sim"
	"mmuctl/storage"
)

var (
	configPath = flag.String("config", "", "Config file (.json, .yaml)")
	device     = flag.String("device", "", "Serial device path; empty talks on stdin/stdout")
	baud       = flag.Int("baud", 0, "Baud rate, overrides the config")
	eepromPath = flag.String("eeprom", "", "EEPROM backing file, overrides the config")
	setup      = flag.Bool("setup", false, "Start in the setup menu")
	logLevel   = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	fast       = flag.Bool("fast", false, "Run moves on the virtual clock without waiting")
)

func main() {
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	log.SetLevel(level)
	routeDebug(log)

	if err := run(log); err != nil {
		log.WithError(err).Error("mmu-sim stopped")
		os.Exit(1)
	}
}

// routeDebug sends core debug lines to log, the "[MODULE]" prefix
// becoming a field
func routeDebug(log *logrus.Logger) {
	core.SetDebugEnabled(log.IsLevelEnabled(logrus.DebugLevel))
	core.SetDebugWriter(func(s string) {
		entry := log.WithFields(nil)
		if strings.HasPrefix(s, "[") {
			if end := strings.IndexByte(s, ']'); end > 0 {
				entry = entry.WithField("module", strings.ToLower(s[1:end]))
				s = strings.TrimSpace(s[end+1:])
			}
		}
		entry.Debug(s)
	})
}

func loadConfig() (*config.MachineConfig, error) {
	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			return nil, err
		}
	}
	if *device != "" {
		cfg.Serial.Device = *device
	}
	if *baud != 0 {
		cfg.Serial.Baud = *baud
	}
	if *eepromPath != "" {
		cfg.EEPROM = *eepromPath
	}
	return cfg, cfg.Validate()
}

func openPort(cfg config.SerialConfig) (serial.Port, error) {
	if cfg.Device == "" {
		return serial.Stdio(os.Stdin, os.Stdout), nil
	}
	return serial.Open(&serial.Config{
		Device:      cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeoutMs,
	})
}

func openEEPROM(path string) (storage.EEPROM, io.Closer, error) {
	if path == "" {
		return storage.NewMemEEPROM(storage.DefaultSize), io.NopCloser(nil), nil
	}
	dev, err := storage.OpenFileEEPROM(path, storage.DefaultSize)
	if err != nil {
		return nil, nil, err
	}
	return dev, dev, nil
}

func run(log *logrus.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dev, closer, err := openEEPROM(cfg.EEPROM)
	if err != nil {
		return err
	}
	defer closer.Close()

	rig, err := sim.NewRigWithEEPROM(cfg.Motion, dev)
	if err != nil {
		return err
	}
	rig.Clock.RealTime = !*fast
	core.SetEventClock(rig.Clock)

	port, err := openPort(cfg.Serial)
	if err != nil {
		return err
	}
	uart := serial.NewUART(port, 4*protocol.RxBufferSize)
	defer uart.Close()
	link := protocol.NewLink(uart)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-uart.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	hw := rig.Hardware()
	hw.Sentinel = link
	hw.Indicator = &logIndicator{log: log}
	if cfg.Serial.Device != "" {
		// stdin is free for the front panel
		buttons := newConsoleButtons(os.Stdin)
		hw.Buttons = buttons
		go buttons.run(log)
	}

	log.WithFields(logrus.Fields{
		"device": cfg.Serial.Device,
		"eeprom": cfg.EEPROM,
		"mode":   cfg.Mode,
		"slots":  cfg.Motion.Slots,
	}).Info("mmu-sim starting")

	enterSetup := *setup
	for {
		// a reset request powers the controller up again; the mechanics
		// and the EEPROM keep their state
		ctrl := motion.NewController(cfg.Motion, hw)
		if err := ctrl.SetMode(cfg.DriverMode()); err != nil {
			return err
		}
		unit := mmu.NewUnit(mmu.Parts{
			Controller: ctrl,
			Store:      rig.Store,
			Link:       link,
			Buttons:    hw.Buttons,
			Indicator:  hw.Indicator,
			Clock:      rig.Clock,
		})
		if err := unit.Start(enterSetup); err != nil {
			return err
		}
		enterSetup = false

		err := unit.Run(ctx)
		if errors.Is(err, mmu.ErrReset) {
			log.Info("reset requested")
			continue
		}
		if ctx.Err() != nil {
			log.WithField("state", unit.State()).Info("shutting down")
			return uart.Err()
		}
		return err
	}
}

// logIndicator logs pattern changes instead of lighting LEDs
type logIndicator struct {
	log  *logrus.Logger
	last core.Pattern
	slot int
}

func (l *logIndicator) Signal(p core.Pattern, slot int) {
	if p == l.last && slot == l.slot {
		return
	}
	l.last, l.slot = p, slot
	l.log.WithFields(logrus.Fields{"pattern": p.String(), "slot": slot}).Info("leds")
}

// consoleButtons reads front panel clicks as lines: l, m or r
type consoleButtons struct {
	in     io.Reader
	clicks chan core.Button
}

func newConsoleButtons(in io.Reader) *consoleButtons {
	return &consoleButtons{in: in, clicks: make(chan core.Button, 8)}
}

func (b *consoleButtons) run(log *logrus.Logger) {
	scanner := bufio.NewScanner(b.in)
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "l", "left":
			b.clicks <- core.ButtonLeft
		case "m", "middle":
			b.clicks <- core.ButtonMiddle
		case "r", "right":
			b.clicks <- core.ButtonRight
		case "":
		default:
			log.Warn("buttons: type l, m or r")
		}
	}
}

// Clicked implements core.ButtonInput
func (b *consoleButtons) Clicked() core.Button {
	select {
	case c := <-b.clicks:
		return c
	default:
		return core.ButtonNone
	}
}
