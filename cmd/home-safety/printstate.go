package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/sweeney/home-safety-sensor/internal/config"
	"github.com/sweeney/home-safety-sensor/internal/gpio"
	"github.com/sweeney/home-safety-sensor/internal/logic"
	"github.com/sweeney/home-safety-sensor/internal/state"
)

// printState initialises every sensor, takes one reading from each, and
// prints the readings with the alert level they would produce.
func printState(w io.Writer, open lineOpener, cfg *config.Config) error {
	store := state.NewStore()
	samplers, lines := buildSamplers(open, cfg, store, nil)
	defer func() {
		for _, l := range lines {
			l.Close()
		}
	}()
	if len(samplers) == 0 {
		return fmt.Errorf("no sensors available")
	}

	for _, s := range samplers {
		name := s.Acquirer.Name()
		if err := s.Acquirer.Init(); err != nil {
			fmt.Fprintf(w, "%-9s init failed: %v\n", name+":", err)
			continue
		}
		desc, err := s.Acquirer.Sample(store)
		if err != nil {
			fmt.Fprintf(w, "%-9s error: %v\n", name+":", err)
			continue
		}
		fmt.Fprintf(w, "%-9s %s\n", name+":", desc)
	}

	res := logic.NewEvaluator(cfg.Thresholds.Logic()).Evaluate(store.Snapshot().Readings)
	for _, a := range res.Alerts {
		fmt.Fprintf(w, "alert:    %s\n", a)
	}
	fmt.Fprintf(w, "level:    %s\n", res.Level)
	return nil
}

// printStateOnChip runs printState against the real chip, then optionally
// prints gas and motion edges until ctx is cancelled.
func printStateOnChip(ctx context.Context, w io.Writer, cfg *config.Config, watch bool) error {
	chip, err := gpio.OpenChip(cfg.GPIO.Chip)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer chip.Close()

	if err := printState(w, chipOpener(chip), cfg); err != nil {
		return err
	}
	if !watch {
		return nil
	}

	var mu sync.Mutex
	edge := func(name string, activeLow bool) func(gpio.EdgeEvent) {
		return func(e gpio.EdgeEvent) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(w, "%s: %s\n", name, edgeState(e.Rising, activeLow))
		}
	}
	gas, err := chip.Watch(cfg.GPIO.Gas, gpio.PullNone, edge("gas", true))
	if err != nil {
		return fmt.Errorf("watch gas: %w", err)
	}
	defer gas.Close()
	motion, err := chip.Watch(cfg.GPIO.Motion, gpio.PullNone, edge("motion", false))
	if err != nil {
		return fmt.Errorf("watch motion: %w", err)
	}
	defer motion.Close()

	fmt.Fprintln(w, "watching gas and motion (Ctrl+C to stop)")
	<-ctx.Done()
	return nil
}

// edgeState describes a detector edge given the output's polarity.
func edgeState(rising, activeLow bool) string {
	if rising != activeLow {
		return "detected"
	}
	return "clear"
}
