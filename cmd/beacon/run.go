package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"beacon/internal/api"
	"beacon/internal/auth"
	"beacon/internal/command"
	"beacon/internal/config"
	"beacon/internal/connectivity"
	"beacon/internal/credentials"
	"beacon/internal/events"
	"beacon/internal/led"
	"beacon/internal/metrics"
	"beacon/internal/mqtt"
	"beacon/internal/netif"
	"beacon/internal/peripheral"
	"beacon/internal/provisioning"
	"beacon/internal/storage"
)

const (
	activityLogSize = 200
	stripPixels     = 1
	shutdownTimeout = 5 * time.Second
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the device",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx, newLogger())
	},
}

func run(ctx context.Context, logger *log.Logger) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Printf("Configuration loaded: %s", cfg)

	id, err := resolveIdentity(cfg)
	if err != nil {
		return fmt.Errorf("failed to determine device identity: %w", err)
	}
	logger.Printf("Device %s (MAC %s)", id.ClientID(), id.MAC())

	store, err := storage.NewBoltStorage(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	creds := credentials.NewStore(store, logger)

	activity := events.NewStore(activityLogSize)
	m := metrics.New()
	hub := api.NewStripHub(logger)

	line, err := openLine(cfg, logger)
	if err != nil {
		return err
	}

	client, err := mqtt.New(mqtt.Config{
		Broker:   cfg.MQTTBroker(),
		ClientID: id.ClientID(),
		Username: cfg.MQTTUsername(),
		Password: cfg.MQTTPassword(),
		UseTLS:   cfg.MQTTUseTLS(),
	}, logger)
	if err != nil {
		line.Close()
		return err
	}

	// LED subsystem, its state mirrored to the state topic
	var leds *led.Subsystem
	statePub := mqtt.NewStatePublisher(client, id.StateTopic(), func() interface{} {
		return leds.Snapshot()
	}, logger)

	handles := peripheral.NewManager(line, stripFactory(cfg, hub), logger)
	leds = led.NewSubsystem(handles, led.Options{
		Animation: led.DefaultAnimationConfig(),
		OnModeChange: func(mode led.Mode) {
			m.SetLEDMode(mode.String())
			activity.Add(events.ActivityModeChange, "led", true, mode.String())
			statePub.Notify()
		},
		OnFrame: m.IncFrames,
	}, logger)
	defer func() {
		if err := leds.Close(); err != nil {
			logger.Printf("Failed to close LED subsystem: %v", err)
		}
	}()

	router := command.NewRouter(id.CommandTopic(), leds, creds, command.Options{
		Activity: activity,
		Metrics:  m,
	}, logger)

	// Provisioning and connectivity
	bus := events.NewBus()
	defer bus.Close()

	prov := provisioning.NewManager(bus, logger)
	prov.Subscribe(bus)

	station := netif.NewHostStation(bus, netif.Options{
		Iface:        cfg.Iface(),
		PollInterval: cfg.NetPollInterval(),
	}, logger)

	supervisor := connectivity.NewSupervisor(creds, prov, station, connectivity.Config{
		MaxRetry: cfg.ProvMaxRetry(),
		Pairing:  pairingFor(cfg, id),
	}, connectivity.Options{
		Activity: activity,
		Metrics:  m,
	}, logger)
	supervisor.Subscribe(bus)

	// MQTT session: subscribe on every connect, announce once
	session := mqtt.NewSession(client, mqtt.SessionConfig{
		Topics:       []string{command.DefaultTopic, id.CommandTopic()},
		Announcement: id.CommandTopic(),
	}, func(topic string, payload []byte) {
		router.Route(topic, payload)
	}, logger)

	discovery := mqtt.NewDiscovery(client, id.ClientID(), id.CommandTopic(), id.StateTopic(), mqtt.DefaultSwitches, logger)
	session.OnReady(func() {
		if err := discovery.Publish(); err != nil {
			logger.Printf("Home Assistant discovery incomplete: %v", err)
		}
		statePub.Notify()
	})
	client.OnConnect(session.HandleConnect)

	// API
	jwtManager := auth.NewJWTManager(cfg.JWTSecret(), cfg.JWTExpiration(), auth.DefaultIssuer)
	limiter := auth.NewFailureLimiter()
	wsTokens := auth.NewWSTokenStore()
	go limiter.RunCleanup(ctx, time.Minute)
	go wsTokens.RunCleanup(ctx, time.Minute)

	server := api.NewServer(api.Deps{
		Identity:     id,
		LED:          leds,
		Router:       router,
		Connectivity: supervisor,
		Provisioner:  prov,
		MQTT:         client,
		Activity:     activity,
		Metrics:      m,
		Hub:          hub,
		Auth:         auth.NewMiddleware(jwtManager, limiter, wsTokens, cfg.NoAuth()),
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	logger.Printf("beacon %s API listening on %s", Version, cfg.Addr())
	if cfg.NoAuth() {
		logger.Println("WARNING: Authentication is DISABLED!")
	}
	printAccessURLs(cfg.Addr(), cfg.Iface())

	go statePub.Run(ctx)

	if err := supervisor.Boot(ctx); err != nil {
		shutdownHTTP(httpServer, logger)
		return err
	}

	// MQTT starts once the station first has an address
	go func() {
		if err := supervisor.WaitConnected(ctx); err != nil {
			return
		}
		logger.Printf("Network is up, connecting to %s", cfg.MQTTBroker())
		if err := client.Connect(); err != nil {
			logger.Printf("MQTT connect failed: %v", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Println("Shutting down")
	case err := <-serverErr:
		logger.Printf("Server failed: %v", err)
		client.Disconnect()
		return err
	}

	client.Disconnect()
	shutdownHTTP(httpServer, logger)
	return nil
}

// openLine requests the single LED line; without a chip the LED is simulated
func openLine(cfg *config.Config, logger *log.Logger) (peripheral.Line, error) {
	chip := cfg.GPIOChip()
	if chip == "" {
		logger.Println("No GPIO chip configured, single LED is simulated")
		return peripheral.NewNoopLine(logger), nil
	}

	line, err := peripheral.NewCdevLine(chip, cfg.GPIOLine())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize single LED: %w", err)
	}
	return line, nil
}

func stripFactory(cfg *config.Config, hub *api.StripHub) peripheral.StripFactory {
	if cfg.Strip() == config.StripNone {
		return peripheral.NoopStripFactory
	}
	return peripheral.NewBroadcastStripFactory(stripPixels, hub)
}

func shutdownHTTP(srv *http.Server, logger *log.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("HTTP shutdown: %v", err)
	}
}

// printAccessURLs prints all available access URLs
func printAccessURLs(addr, iface string) {
	port := addr
	if _, p, err := net.SplitHostPort(addr); err == nil {
		port = p
	} else {
		port = strings.TrimPrefix(port, ":")
	}

	ips := netif.LocalIPv4(iface)
	if len(ips) == 0 {
		fmt.Printf("\nOpen http://localhost:%s in your browser\n", port)
		return
	}

	fmt.Println("\nAccess URLs:")
	for _, ip := range ips {
		fmt.Printf("  http://%s:%s\n", ip, port)
	}
	fmt.Println()
}
