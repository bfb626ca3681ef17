package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/sweeney/home-safety-sensor/internal/actuator"
	"github.com/sweeney/home-safety-sensor/internal/config"
	"github.com/sweeney/home-safety-sensor/internal/dashboard"
	"github.com/sweeney/home-safety-sensor/internal/eventlog"
	"github.com/sweeney/home-safety-sensor/internal/mqtt"
)

// service is one started downstream service.
type service struct {
	name string
	svc  *mqtt.Service

	// events is set for event_logger.
	events *eventlog.Logger

	// release frees the service's own resources after it goes offline.
	release func() error

	// worker, if set, runs from announcement until the context is done.
	worker func(ctx context.Context)
	done   chan struct{}
}

// stop waits for the worker, announces offline, then releases resources.
// The worker only stops once the context passed to startService is done.
func (s *service) stop() error {
	if s.done != nil {
		<-s.done
	}
	err := s.svc.Close()
	if s.release != nil {
		if rerr := s.release(); err == nil {
			err = rerr
		}
	}
	log.Printf("%s: stopped", s.name)
	return err
}

// startService builds the named service, subscribes it to its data topic
// and announces it online. open is used by alert_manager for its LED.
func startService(ctx context.Context, cfg *config.Config, name string, open lineOpener) (*service, error) {
	s := &service{name: name}
	var handler mqtt.Handler

	switch name {
	case mqtt.TargetStats:
		w := &dashboard.Writer{Path: cfg.Dashboard.Path, Color: cfg.Dashboard.Color}
		if cfg.Dashboard.Console {
			w.Console = os.Stdout
		}
		handler = w.Handle

	case mqtt.TargetEvents:
		logger, err := eventlog.Open(cfg.EventLog.Path, cfg.EventLog.Recent)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		s.events = logger
		s.release = logger.Close
		handler = logger.Handle

	case mqtt.TargetPulses:
		led, err := open(cfg.GPIO.LED)
		if err != nil {
			return nil, fmt.Errorf("%s: request led pin %d: %w", name, cfg.GPIO.LED, err)
		}
		a := actuator.New(led, cfg.Actuator.Durations(), cfg.Actuator.Queue)
		if err := a.Init(); err != nil {
			led.Close()
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		s.release = led.Close
		s.worker = a.Run
		handler = a.Handle

	default:
		return nil, fmt.Errorf("unknown service %q", name)
	}

	topics := cfg.MQTT.Topics()
	rt, err := mqtt.Dial(mqtt.Options{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID + "-" + name,
		Will:     mqtt.Will(topics, name),
	})
	if err != nil {
		s.abort()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	s.svc = mqtt.NewService(name, rt, topics)

	// Subscribe before announcing so nothing sent after discovery is lost.
	if err := s.svc.Listen(handler); err != nil {
		rt.Close()
		s.abort()
		return nil, err
	}
	if err := s.svc.Announce(); err != nil {
		rt.Close()
		s.abort()
		return nil, err
	}
	if s.worker != nil {
		s.done = make(chan struct{})
		go func() {
			defer close(s.done)
			s.worker(ctx)
		}()
	}
	return s, nil
}

// abort releases resources of a service that never came online.
func (s *service) abort() {
	if s.release != nil {
		s.release()
	}
}

// runService runs one downstream service until ctx is cancelled.
func runService(ctx context.Context, cfg *config.Config, name string, open lineOpener) error {
	if open == nil {
		var release func()
		open, release = openChip(cfg.GPIO.Chip)
		defer release()
	}
	s, err := startService(ctx, cfg, name, open)
	if err != nil {
		return err
	}
	<-ctx.Done()
	return s.stop()
}
