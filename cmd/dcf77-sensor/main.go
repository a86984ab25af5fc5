// Command dcf77-sensor decodes the DCF77 time signal from a receiver module
// on GPIO and publishes each decoded minute to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sweeney/dcf77-sensor/internal/clock"
	"github.com/sweeney/dcf77-sensor/internal/config"
	"github.com/sweeney/dcf77-sensor/internal/gpio"
	"github.com/sweeney/dcf77-sensor/internal/metrics"
	"github.com/sweeney/dcf77-sensor/internal/mqtt"
	"github.com/sweeney/dcf77-sensor/internal/receiver"
	"github.com/sweeney/dcf77-sensor/internal/status"
	"github.com/sweeney/dcf77-sensor/internal/sysclock"
	"github.com/sweeney/dcf77-sensor/internal/web"
)

// statusInterval is how often engine diagnostics are copied to the status
// page and metrics.
const statusInterval = time.Second

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, config.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	log.SetLevel(cfg.Level())
	log.SetReportTimestamp(true)

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config) error {
	hw, err := openReceiver(cfg)
	if err != nil {
		return fmt.Errorf("init receiver: %w", err)
	}
	defer hw.Close()

	// Print level mode
	if cfg.PrintLevel {
		level, err := hw.Level()
		if err != nil {
			return fmt.Errorf("read data line: %w", err)
		}
		fmt.Printf("data: %d\n", level)
		return nil
	}

	publisher, err := openPublisher(cfg)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Chip:           cfg.Chip,
		DataPin:        cfg.DataPin,
		EnablePin:      cfg.EnablePin,
		SampleOffsetMs: int64(cfg.SampleOffsetMs),
		HeartbeatMs:    cfg.Heartbeat.Milliseconds(),
		Broker:         cfg.Broker,
		HTTPPort:       cfg.HTTP,
		Simulate:       cfg.Simulate,
		SetClock:       cfg.SetClock,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.SetMQTTConnected(publisher.IsConnected())

	m := metrics.New()
	sinks := receiver.MultiSink{tracker, m, mqtt.NewSink(publisher), logSink{}}
	if cfg.SetClock {
		sinks = append(sinks, sysclock.New())
	}
	engine := receiver.New(hw, clock.SystemClock{}, clock.NewTimer(), sinks, cfg.Engine())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Errorf("failed to publish startup event: %v", err)
	} else {
		log.Infof("published startup event")
	}

	// Start HTTP status server
	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker, m.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Infof("http status server listening on %s", cfg.HTTP)
	}

	if err := engine.Start(); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer func() {
		if err := engine.Stop(); err != nil {
			log.Warnf("stop engine: %v", err)
		}
	}()

	log.Infof("started: chip=%s data=%d enable=%d offset=%dms broker=%s heartbeat=%v simulate=%v",
		cfg.Chip, cfg.DataPin, cfg.EnablePin, cfg.SampleOffsetMs, cfg.Broker, cfg.Heartbeat, cfg.Simulate)

	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(engine, publisher, publisher, tracker, m, cfg.Heartbeat, time.Now, ticker.C, sigCh)
}

func openReceiver(cfg config.Config) (gpio.Receiver, error) {
	if cfg.Simulate {
		log.Infof("using simulated DCF77 transmitter")
		return gpio.NewSimulator(clock.SystemClock{}), nil
	}
	return gpio.NewRealReceiver(cfg.GPIO())
}

// brokerConn is what the daemon needs from its MQTT connection.
type brokerConn interface {
	mqtt.Publisher
	mqtt.ConnectionStatus
}

func openPublisher(cfg config.Config) (brokerConn, error) {
	if cfg.Broker == "" {
		log.Infof("no broker configured, mqtt disabled")
		return discardPublisher{}, nil
	}
	return mqtt.NewRealPublisher(cfg.Broker, cfg.ClientID)
}

// discardPublisher stands in for the broker when MQTT is disabled.
type discardPublisher struct{}

func (discardPublisher) Publish(mqtt.Event) error             { return nil }
func (discardPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (discardPublisher) Close() error                         { return nil }
func (discardPublisher) IsConnected() bool                    { return false }

// diagnoser is the part of the engine the loop polls.
type diagnoser interface {
	Snapshot() receiver.Diagnostics
}

// engineObserver receives the polled diagnostics.
type engineObserver interface {
	UpdateEngine(receiver.Diagnostics)
}

func runLoop(engine diagnoser, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, gauges engineObserver, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	lastBeat := now()

	for {
		select {
		case s := <-sig:
			log.Infof("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				refresh(engine, mqttStatus, tracker, gauges)
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Errorf("failed to publish shutdown event: %v", err)
			} else {
				log.Infof("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			refresh(engine, mqttStatus, tracker, gauges)

			if heartbeat <= 0 || t.Sub(lastBeat) < heartbeat {
				continue
			}
			lastBeat = t

			hbEvent := mqtt.SystemEvent{
				Timestamp: t,
				Event:     "HEARTBEAT",
			}
			if tracker != nil {
				// Refresh network info for heartbeat
				if net := readNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
				snap := tracker.Snapshot()
				log.Infof("heartbeat: state=%s uptime=%v syncs=%d tick_errors=%d beacon_errors=%d",
					snap.State, snap.Uptime().Truncate(time.Second), snap.Counts.Syncs, snap.Counts.TickErrors, snap.Counts.BeaconErrors)
				hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Errorf("heartbeat publish error: %v", err)
			}
		}
	}
}

// refresh copies engine diagnostics and MQTT connectivity to the status
// consumers.
func refresh(engine diagnoser, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, gauges engineObserver) {
	d := engine.Snapshot()
	if gauges != nil {
		gauges.UpdateEngine(d)
	}
	if tracker == nil {
		return
	}
	tracker.UpdateEngine(d)
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
