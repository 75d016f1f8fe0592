// snstotal prints the total of every Subscribe & Save delivery card.
//
// Usage:
//
//	snstotal [--page-file deliveries.html] [--format text|json]
package main

import (
	"fmt"
	"os"
	"time"

	ucli "github.com/urfave/cli/v2"

	"snstotal/internal/amqp"
	"snstotal/internal/browser"
	"snstotal/internal/cli"
	"snstotal/internal/config"
	applog "snstotal/internal/log"
	"snstotal/internal/pipeline"
	"snstotal/internal/render"
)

func main() {
	cli.LoadEnvFile()

	app := &ucli.App{
		Name:  "snstotal",
		Usage: "Total the Subscribe & Save delivery cards of an auto-deliveries page",
		Flags: []ucli.Flag{
			&ucli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&ucli.StringFlag{
				Name:    "page-file",
				Aliases: []string{"f"},
				Usage:   "Read a saved delivery page instead of loading it in Chrome",
				EnvVars: []string{"PAGE_FILE"},
			},
			&ucli.StringFlag{
				Name:    "page-url",
				Usage:   "Auto-deliveries page to load",
				EnvVars: []string{"PAGE_URL"},
			},
			&ucli.BoolFlag{
				Name:    "headless",
				Value:   true,
				Usage:   "Run Chrome without a window",
				EnvVars: []string{"HEADLESS"},
			},
			&ucli.StringFlag{
				Name:  "format",
				Value: "text",
				Usage: "Output format (text, json)",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *ucli.Context) error {
	logger := cli.SetupLogger(c.String("log-level"))

	cfg := config.Load()
	if c.IsSet("page-file") {
		cfg.PageFile = c.String("page-file")
	}
	if c.IsSet("page-url") {
		cfg.PageURL = c.String("page-url")
	}
	if c.IsSet("headless") {
		cfg.Headless = c.Bool("headless")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	base, err := cli.ParseBaseURL(cfg)
	if err != nil {
		return err
	}

	var out pipeline.Sink
	switch c.String("format") {
	case "text":
		out = render.NewTextSink(os.Stdout)
	case "json":
		out = render.NewJSONSink(os.Stdout)
	default:
		return fmt.Errorf("unknown format %q: must be text or json", c.String("format"))
	}
	sinks := pipeline.MultiSink{out}

	if cfg.AMQPEnabled() {
		publisher, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("connect to AMQP: %w", err)
		}
		defer publisher.Close()
		sinks = append(sinks, publisher)
		logger.Info("Publishing card outcomes", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	stack := cli.NewStack(cfg, base, sinks, logger)

	ctx, _ := cli.GracefulShutdown(logger, 10*time.Second, nil)

	var source pipeline.Source
	if cfg.PageFile != "" {
		source = pipeline.FileSource{Path: cfg.PageFile}
		logger.Info("Reading saved delivery page", "path", cfg.PageFile)
	} else {
		source = browser.NewLoader(browser.Options{
			URL:         cfg.PageURL,
			ExecPath:    cfg.ChromePath,
			UserDataDir: cfg.ChromeUserDataDir,
			Headless:    cfg.Headless,
			Timeout:     cfg.LoadTimeout,
		}, stack.HTTP, logger)
		logger.Info("Loading delivery page", "url", cfg.PageURL, "headless", cfg.Headless)
	}

	report, err := stack.Processor.Run(ctx, source)
	if err != nil {
		return fmt.Errorf("processing pass: %w", err)
	}

	logger.Info("Done",
		applog.FieldRunID, report.RunID,
		applog.FieldCardCount, len(report.Outcomes),
		"failed", report.Failed())
	return nil
}
