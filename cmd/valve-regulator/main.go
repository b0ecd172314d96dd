// Command valve-regulator measures radiator temperature through a
// charge-timing thermistor circuit and pulses the valve motor to hold
// the reading at a target. Decisions, heartbeats, and lifecycle events
// are published to MQTT; current state is served over HTTP and an
// optional serial command port.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/valve-regulator/internal/config"
	"github.com/sweeney/valve-regulator/internal/gpio"
	"github.com/sweeney/valve-regulator/internal/mqtt"
	"github.com/sweeney/valve-regulator/internal/regulator"
	"github.com/sweeney/valve-regulator/internal/sensor"
	"github.com/sweeney/valve-regulator/internal/smoothing"
	"github.com/sweeney/valve-regulator/internal/status"
	"github.com/sweeney/valve-regulator/internal/telemetry"
	"github.com/sweeney/valve-regulator/internal/valve"
	"github.com/sweeney/valve-regulator/internal/web"
)

func main() {
	defaults := config.Default()

	configPath := flag.String("config", "", "YAML config file (flags override file values)")
	target := flag.Uint("target", uint(defaults.Control.Target), "Target thermistor reading (lower = hotter)")
	hysteresis := flag.Uint("hysteresis", uint(defaults.Control.Hysteresis), "Dead band around the target")
	responseWindow := flag.Int("response-window", defaults.Control.ResponseWindow, "Measurement cycles between decisions")
	steepness := flag.Int("steepness", defaults.Control.Steepness, "Trend extrapolation factor (power of two)")
	motorOpen := flag.Duration("motor-open", defaults.Motor.OpenTime.Std(), "Valve open pulse duration")
	motorClose := flag.Duration("motor-close", defaults.Motor.CloseTime.Std(), "Valve close pulse duration")
	window := flag.Duration("window", defaults.Sensor.Window.Std(), "Measurement cycle duration")
	chargeTimeout := flag.Duration("charge-timeout", defaults.Sensor.ChargeTimeout.Std(), "Capacitor charge timeout")
	broker := flag.String("broker", defaults.MQTT.Broker, "MQTT broker address")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", defaults.HTTP.Addr, "HTTP status address (empty to disable)")
	commandPort := flag.String("command-port", defaults.Command.Port, "Serial command port device (empty to disable)")
	baudRate := flag.Int("baud", defaults.Command.BaudRate, "Serial command port baud rate")
	clearOnRead := flag.Bool("clear-on-read", true, "Reset the reported action to HELD after each command port query")
	pinCharge := flag.Int("pin-charge", defaults.Pins.Charge, "BCM pin number for the charge line")
	pinComparator := flag.Int("pin-comparator", defaults.Pins.Comparator, "BCM pin number for the comparator input")
	pinOpen := flag.Int("pin-open", defaults.Pins.Open, "BCM pin number for the motor open line")
	pinClose := flag.Int("pin-close", defaults.Pins.Close, "BCM pin number for the motor close line")
	poll := flag.Duration("poll", 50*time.Millisecond, "Regulation loop pacing interval")
	printReading := flag.Bool("print-reading", false, "Take one measurement, print it, and exit")

	flag.Parse()

	cfg := defaults
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
		cfg = loaded
	}

	// Explicitly set flags win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "target":
			cfg.Control.Target = uint16(*target)
		case "hysteresis":
			cfg.Control.Hysteresis = uint16(*hysteresis)
		case "response-window":
			cfg.Control.ResponseWindow = *responseWindow
		case "steepness":
			cfg.Control.Steepness = *steepness
		case "motor-open":
			cfg.Motor.OpenTime = config.Duration(*motorOpen)
		case "motor-close":
			cfg.Motor.CloseTime = config.Duration(*motorClose)
		case "window":
			cfg.Sensor.Window = config.Duration(*window)
		case "charge-timeout":
			cfg.Sensor.ChargeTimeout = config.Duration(*chargeTimeout)
		case "broker":
			cfg.MQTT.Broker = *broker
		case "http":
			cfg.HTTP.Addr = *httpAddr
		case "command-port":
			cfg.Command.Port = *commandPort
		case "baud":
			cfg.Command.BaudRate = *baudRate
		case "pin-charge":
			cfg.Pins.Charge = *pinCharge
		case "pin-comparator":
			cfg.Pins.Comparator = *pinComparator
		case "pin-open":
			cfg.Pins.Open = *pinOpen
		case "pin-close":
			cfg.Pins.Close = *pinClose
		}
	})

	if err := run(cfg, *heartbeat, *poll, *clearOnRead, *printReading); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config, heartbeat, poll time.Duration, clearOnRead, printReading bool) error {
	params := regulator.Params{
		Target:         cfg.Control.Target,
		Hysteresis:     cfg.Control.Hysteresis,
		ResponseWindow: cfg.Control.ResponseWindow,
		Steepness:      cfg.Control.Steepness,
		MotorOpen:      cfg.Motor.OpenTime.Std(),
		MotorClose:     cfg.Motor.CloseTime.Std(),
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("control parameters: %w", err)
	}

	// Initialize GPIO
	hw, err := gpio.NewRealSensor(cfg.Pins.Charge, cfg.Pins.Comparator)
	if err != nil {
		return fmt.Errorf("init sensor gpio: %w", err)
	}
	defer hw.Close()

	meter := sensor.NewMeter(hw,
		sensor.WithChargeTimeout(cfg.Sensor.ChargeTimeout.Std()),
		sensor.WithWindow(cfg.Sensor.Window.Std()))

	// Print reading mode
	if printReading {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		raw, err := meter.Measure(ctx)
		if err != nil {
			return fmt.Errorf("measure: %w", err)
		}
		fmt.Printf("reading: %d\n", raw)
		return nil
	}

	motor, err := gpio.NewRealMotor(cfg.Pins.Open, cfg.Pins.Close)
	if err != nil {
		return fmt.Errorf("init motor gpio: %w", err)
	}
	defer motor.Close()

	actuator := valve.New(motor, params.MotorOpen, params.MotorClose)
	filter := smoothing.ForTarget(params.Target)
	responder := telemetry.NewResponder(clearOnRead)

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(cfg.MQTT.Broker)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:         poll.Milliseconds(),
		WindowMs:       cfg.Sensor.Window.Std().Milliseconds(),
		HeartbeatMs:    heartbeat.Milliseconds(),
		Target:         params.Target,
		Hysteresis:     params.Hysteresis,
		ResponseWindow: params.ResponseWindow,
		Steepness:      params.Steepness,
		MotorOpenMs:    params.MotorOpen.Milliseconds(),
		MotorCloseMs:   params.MotorClose.Milliseconds(),
		Broker:         cfg.MQTT.Broker,
		HTTPAddr:       cfg.HTTP.Addr,
		CommandPort:    cfg.Command.Port,
	})

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupPayload, err := status.FormatStatusEvent(snap, "STARTUP", "")
	if err != nil {
		return fmt.Errorf("format startup event: %w", err)
	}
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: startupPayload,
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start HTTP status server
	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	// Start serial command responder
	if cfg.Command.Port != "" {
		port, err := telemetry.OpenPort(cfg.Command.Port, cfg.Command.BaudRate)
		if err != nil {
			return fmt.Errorf("init command port: %w", err)
		}
		defer port.Close()
		go func() {
			if err := telemetry.NewPortServer(port, responder).Serve(ctx); err != nil {
				log.Printf("command port error: %v", err)
			}
		}()
		log.Printf("command responder listening on %s", cfg.Command.Port)
	}

	log.Printf("started: target=%d hysteresis=%d window=%d steepness=%d broker=%s filter=%s",
		params.Target, params.Hysteresis, params.ResponseWindow, params.Steepness, cfg.MQTT.Broker, filter)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctx, meter, filter, params, actuator, responder, publisher, publisher, tracker, heartbeat, time.Now, ticker.C, sigCh)
}

// measurer is the part of sensor.Meter the loop needs.
type measurer interface {
	Measure(ctx context.Context) (uint16, error)
}

func runLoop(ctx context.Context, meter measurer, filter smoothing.Filter, params regulator.Params, driver valve.Driver, responder *telemetry.Responder, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	ctrl := regulator.NewController(params, now())
	lastAction := regulator.ActionHeld

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
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
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				if payload, err := status.FormatStatusEvent(snap, "SHUTDOWN", signalName); err == nil {
					event.RawPayload = payload
				}
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			raw, err := meter.Measure(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Printf("measure error: %v", err)
				continue
			}

			stabilized := filter.Update(raw)
			responder.SetReading(stabilized)

			if decision := ctrl.Observe(stabilized); decision != nil {
				log.Printf("decision: %s (reading=%d trend=%d predicted=%d)",
					decision.Action, stabilized, decision.Trend, decision.Predicted)

				switch decision.Action {
				case regulator.ActionOpened:
					if err := driver.Pulse(ctx, valve.DirectionOpen); err != nil {
						log.Printf("valve open error: %v", err)
					}
				case regulator.ActionClosed:
					if err := driver.Pulse(ctx, valve.DirectionClose); err != nil {
						log.Printf("valve close error: %v", err)
					}
				}

				responder.SetAction(decision.Action)
				lastAction = decision.Action

				event := mqtt.ValveEvent{
					Timestamp: now(),
					Action:    decision.Action,
					Reading:   stabilized,
					Trend:     decision.Trend,
					Predicted: decision.Predicted,
				}
				if err := publisher.Publish(event); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			// Check for heartbeat
			if hb := ctrl.CheckHeartbeat(now(), heartbeat); hb != nil {
				log.Printf("heartbeat: uptime=%v opened=%d closed=%d held=%d",
					hb.Uptime, hb.Counts.Opened, hb.Counts.Closed, hb.Counts.Held)

				hbEvent := mqtt.SystemEvent{
					Timestamp: hb.Timestamp,
					Event:     "HEARTBEAT",
					Heartbeat: &mqtt.HeartbeatInfo{
						UptimeSeconds: int64(hb.Uptime.Seconds()),
						Counts:        hb.Counts,
					},
				}
				if tracker != nil {
					if mqttStatus != nil {
						tracker.SetMQTTConnected(mqttStatus.IsConnected())
					}
					tracker.Update(stabilized, lastAction, ctrl.Primed(), ctrl.Counts())
					snap := tracker.Snapshot()
					if payload, err := status.FormatStatusEvent(snap, "HEARTBEAT", ""); err == nil {
						hbEvent.RawPayload = payload
					}
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(stabilized, lastAction, ctrl.Primed(), ctrl.Counts())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}
