package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"roompanel-firmware/config"
	"roompanel-firmware/internal/apiclient"
	"roompanel-firmware/internal/db"
	"roompanel-firmware/internal/device"
	"roompanel-firmware/internal/hw"
	"roompanel-firmware/internal/logging"
	"roompanel-firmware/internal/model"
	"roompanel-firmware/internal/provision"
	"roompanel-firmware/internal/store"
	"roompanel-firmware/internal/ui"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", configPath, err)
			os.Exit(1)
		}
		cfg = config.Default()
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("roompaneld starting",
		zap.String("version", cfg.Firmware.Version),
		zap.String("config", configPath))

	gormDB, err := db.Init(cfg.Store.Path)
	if err != nil {
		logger.Fatal("settings database unavailable", zap.Error(err))
	}
	settings := store.NewGormStore(gormDB)

	client := apiclient.New(logger)
	display := hw.NewLogDisplay(cfg.Display.Width, cfg.Display.Height, logger)
	screens := ui.NewManager(display)

	// The vendor touch controller driver pushes events into this queue.
	// Without one attached it simply stays empty.
	touchSrc := hw.NewTouchQueue()

	iface := os.Getenv("WIFI_IFACE")
	if iface == "" {
		iface = "wlan0"
	}
	network := hw.NewWifiNetwork(iface, logger)

	timings := device.DefaultTimings()
	timings.StatusPoll = cfg.Poll.StatusInterval
	timings.Ping = cfg.Poll.PingInterval
	timings.FirmwareCheck = cfg.Poll.FirmwareInterval
	timings.Retry = cfg.Poll.RetryInterval
	timings.ScreenTimeout = time.Duration(cfg.Display.TimeoutSeconds) * time.Second

	machine := device.NewMachine(device.Deps{
		Store:     settings,
		Codec:     client,
		UI:        screens,
		Touch:     touchSrc,
		Net:       network,
		Restarter: hw.NewProcessRestarter(logger),
		Web:       newSetupServer(cfg, settings, logger),
		Updater:   hw.NewFileUpdater(cfg.Firmware.ImagePath, cfg.Firmware.StagingPath, logger),
		Logger:    logger,
		Version:   cfg.Firmware.Version,
		Timings:   timings,
	})
	pendingMachine = machine

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		logger.Info("shutdown signal received")
		cancel()
	}()

	if err := machine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("device loop stopped", zap.Error(err))
	}
	logger.Info("roompaneld stopped")
}

// pendingMachine breaks the construction cycle between the machine and the
// setup server: the server needs the machine as its controller, the machine
// needs the server as its web endpoint. The machine is assigned before Run
// starts the server, so the indirection never observes nil in practice.
var pendingMachine *device.Machine

type deferredController struct{}

func (deferredController) ApplyConfig(cfg model.DeviceConfig) {
	if pendingMachine != nil {
		pendingMachine.ApplyConfig(cfg)
	}
}

func (deferredController) FactoryReset() {
	if pendingMachine != nil {
		pendingMachine.FactoryReset()
	}
}

func newSetupServer(cfg *config.Config, settings store.Store, logger *zap.Logger) *provision.Server {
	handler := provision.NewHandler(settings, deferredController{}, logger,
		cfg.Firmware.Version, time.Duration(cfg.Server.SessionTTLMin)*time.Minute)
	return provision.NewServer(handler, cfg.Server.Port,
		rate.Limit(cfg.Server.RateLimitPerSec), logger)
}
