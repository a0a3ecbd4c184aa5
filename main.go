package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ops-vhost/pkg/config"
	"github.com/ops-vhost/pkg/loader"
	"github.com/ops-vhost/pkg/logging"
	"github.com/ops-vhost/pkg/metrics"
	"github.com/ops-vhost/pkg/registry"
	"github.com/ops-vhost/pkg/render"
	"gopkg.in/alecthomas/kingpin.v2"
)

var (
	configFile      = kingpin.Flag("config.file", "Path to configuration file.").Default("vhost.yaml").String()
	outputFile      = kingpin.Flag("output.file", "Where to write the nginx configuration, - for stdout. Overrides output.file.").String()
	overwritePolicy = kingpin.Flag("overwrite-policy", "What to do when a location is already taken: error, ignore or overwrite.").String()
	logLevel        = kingpin.Flag("log.level", "Log level: debug, info, warn, error.").String()
	metricsTextfile = kingpin.Flag("metrics.textfile", "Write registry metrics to this file (node exporter textfile format).").String()
	httpWrap        = kingpin.Flag("http-wrap", "Wrap the generated server blocks in an http block.").Bool()
)

func main() {
	kingpin.Parse()

	appConfig, err := config.LoadConfig(*configFile)
	if errors.Is(err, config.ErrConfigNotFound) {
		// No config file: defaults plus environment (VHOST_PROXY_SERVERS, ...)
		logging.Warnf("Failed to load config file: %v, using defaults", err)
		appConfig = &config.Config{}
		appConfig.SetDefaults()
		appConfig.ApplyEnvOverrides()
	} else if err != nil {
		logging.Fatalf("Failed to load config file: %v", err)
	}

	applyFlags(appConfig)
	if err := appConfig.Validate(); err != nil {
		logging.Fatalf("Invalid configuration: %v", err)
	}
	if err := logging.Configure(appConfig.Log.Level, appConfig.Log.Format); err != nil {
		logging.Fatalf("Invalid log settings: %v", err)
	}
	logging.Logf("Generator initialized with run ID: %s", logging.GetRunID())

	if err := run(appConfig); err != nil {
		logging.Fatalf("Generation failed: %v", err)
	}
}

func applyFlags(cfg *config.Config) {
	if *outputFile != "" {
		cfg.Output.File = *outputFile
	}
	if *overwritePolicy != "" {
		cfg.Output.Policy = *overwritePolicy
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *httpWrap {
		cfg.Output.WrapHTTP = true
	}
}

func run(cfg *config.Config) error {
	plan, err := loader.Build(cfg)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector(nil)
	reg := registry.New(registry.WithObserver(collector))
	collector.GetStats = reg.Stats

	if err := plan.Apply(reg); err != nil {
		return err
	}
	for _, line := range reg.TableLines() {
		logging.Logf("[registry] %s", line)
	}

	out, err := render.Nginx(reg.Snapshot(), render.Options{
		WrapHTTP:      cfg.Output.WrapHTTP,
		TLSDirectives: plan.TLSDirectives,
	})
	if err != nil {
		return err
	}
	if err := writeOutput(cfg.Output.File, out); err != nil {
		return err
	}

	if *metricsTextfile != "" {
		if err := metrics.WriteTextfile(*metricsTextfile, collector); err != nil {
			return err
		}
	}
	return nil
}

func writeOutput(path, content string) error {
	if path == "-" {
		_, err := os.Stdout.WriteString(content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", path, err)
	}
	logging.Logf("Wrote nginx configuration to %s", path)
	return nil
}
