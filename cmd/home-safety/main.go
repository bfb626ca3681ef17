// Command home-safety samples climate, gas, motion and door sensors, raises
// alerts, and runs the downstream services that consume them.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sweeney/home-safety-sensor/internal/config"
	"github.com/sweeney/home-safety-sensor/internal/mqtt"
)

const usage = `usage: home-safety <command> [flags]

commands:
  run            sample sensors and publish readings, alerts and pulses
  stats-update   write dashboard.json from aggregated readings
  event-logger   append alerts and log lines to the event log
  alert-manager  pulse the indicator LED for each pulse code
  print-state    read every sensor once and exit
  validate       check the configuration file

run "home-safety <command> -h" for the flags of a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]
	var err error

	switch cmd {
	case "run":
		err = runCommand(args)
	case mqtt.TargetStats, "stats-update":
		err = serviceCommand(mqtt.TargetStats, args)
	case mqtt.TargetEvents, "event-logger":
		err = serviceCommand(mqtt.TargetEvents, args)
	case mqtt.TargetPulses, "alert-manager":
		err = serviceCommand(mqtt.TargetPulses, args)
	case "print-state":
		err = printStateCommand(args)
	case "validate":
		err = validateCommand(args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprint(os.Stderr, usage)
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("fatal: %s: %v", cmd, err)
	}
}

// commonFlags are accepted by every subcommand.
type commonFlags struct {
	config  *string
	broker  *string
	http    *string
	verbose *bool
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		config:  fs.String("config", "", "Path to YAML configuration (defaults apply when empty)"),
		broker:  fs.String("broker", "", `MQTT broker URL, overrides the config ("none" for standalone)`),
		http:    fs.String("http", "", `HTTP status address, overrides the config ("off" to disable)`),
		verbose: fs.Bool("verbose", false, "Log every successful acquisition"),
	}
}

// load reads the configuration and applies command-line overrides.
func (c commonFlags) load() (*config.Config, error) {
	cfg, err := config.Load(*c.config)
	if err != nil {
		return nil, err
	}
	switch *c.broker {
	case "":
	case "none":
		cfg.MQTT.Broker = ""
		cfg.MQTT.EmbeddedBroker = ""
	default:
		cfg.MQTT.Broker = *c.broker
	}
	switch *c.http {
	case "":
	case "off":
		cfg.HTTP.Addr = ""
	default:
		cfg.HTTP.Addr = *c.http
	}
	if *c.verbose {
		cfg.Verbose = true
	}
	return cfg, nil
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	common := addCommonFlags(fs)
	withServices := fs.Bool("with-services", false, "Also run stats_update, event_logger and alert_manager in this process")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.load()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel(nil)
	return runAnalyzer(ctx, cfg, runOptions{WithServices: *withServices})
}

func serviceCommand(name string, args []string) error {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.load()
	if err != nil {
		return err
	}
	if cfg.MQTT.Broker == "" {
		return fmt.Errorf("%s needs a broker", name)
	}

	ctx, cancel := signalContext()
	defer cancel(nil)
	return runService(ctx, cfg, name, nil)
}

func printStateCommand(args []string) error {
	fs := flag.NewFlagSet("print-state", flag.ExitOnError)
	common := addCommonFlags(fs)
	watch := fs.Bool("watch", false, "After reading, print gas and motion edges until interrupted")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.load()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel(nil)
	return printStateOnChip(ctx, os.Stdout, cfg, *watch)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.load()
	if err != nil {
		return err
	}
	fmt.Printf("config %s ok: broker=%q prefix=%s sample=%v aggregate=%v\n",
		*common.config, cfg.MQTT.Broker, cfg.MQTT.TopicPrefix, cfg.Timing.SampleInterval, cfg.Timing.AggregateInterval)
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM with the signal name as
// its cause.
func signalContext() (context.Context, context.CancelCauseFunc) {
	ctx, cancel := context.WithCancelCause(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case s := <-sigCh:
			log.Printf("received %v, shutting down", s)
			cancel(fmt.Errorf("%s", signalName(s)))
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}
