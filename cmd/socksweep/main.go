package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"socksweep/internal/config"
	"socksweep/internal/database"
	"socksweep/internal/geo"
	"socksweep/internal/logger"
	"socksweep/internal/output"
	"socksweep/pkg/manager"
	"socksweep/pkg/scan"
	"socksweep/pkg/sources"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	genConfig  = flag.Bool("gen-config", false, "Generate default config file")
	version    = flag.Bool("version", false, "Show version")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	interval   = flag.Duration("interval", 0, "Rescan interval (0 runs a single scan)")
	retest     = flag.Bool("retest", false, "Retest the previous scan's invalid records")
	retestFile = flag.String("proxy-file", "", "Retest candidates from a proxy list file")
	provinces  = flag.String("provinces", "", "Comma-separated province filter for the search source")
	operators  = flag.String("operators", "", "Comma-separated operator filter for the search source")
)

const Version = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("socksweep v%s\n", Version)
		return
	}

	log := logger.New("main")
	logger.SetDebug(*debug)

	if *genConfig {
		if err := config.SaveConfigTemplate("config.yaml"); err != nil {
			log.Fatal("failed to generate config", "error", err)
		}
		fmt.Println("Default config generated: config.yaml")
		return
	}

	// .env carries QUAKE_API_KEY and SOCKSWEEP_* overrides.
	if err := godotenv.Load(); err == nil {
		log.Debug("loaded .env file")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}

	applyFlagOverrides(cfg)

	log.Info("starting socksweep", "version", Version)
	config.PrintConfig(cfg)

	opts := manager.Options{
		Writer: output.NewWriter(cfg.Output.Directory, cfg.Output.Formats),
	}

	if cfg.Database.Enabled {
		db, err := database.NewDB(cfg.Database.Path)
		if err != nil {
			log.Fatal("failed to initialize database", "error", err)
		}
		defer db.Close()
		opts.Store = database.NewService(db)
	}

	if cfg.Geo.Enabled {
		resolver, err := geo.NewResolver(geo.Config{
			CityDBPath:   cfg.Geo.CityDBPath,
			ASNDBPath:    cfg.Geo.ASNDBPath,
			HTTPFallback: cfg.Geo.HTTPFallback,
			APITimeout:   cfg.Geo.APITimeout,
			CacheTTL:     cfg.Geo.CacheTTL,
		})
		if err != nil {
			log.Fatal("failed to initialize geo resolver", "error", err)
		}
		defer resolver.Close()
		opts.Geo = resolver
	}

	opts.Sources = buildSources(cfg)

	pipe := manager.New(cfg, opts)

	if *interval > 0 {
		runPeriodic(pipe, *interval, log)
		return
	}

	runOnce(pipe, cfg, log)
}

func runOnce(pipe *manager.Pipeline, cfg *config.Config, log *logger.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		report *scan.Report
		err    error
	)
	switch {
	case *retestFile != "":
		var candidates []scan.Candidate
		candidates, err = sources.LoadFromFile(*retestFile)
		if err == nil {
			report, err = pipe.Scan(ctx, candidates)
		}
	case *retest:
		report, err = pipe.Retest(ctx, 0)
	default:
		report, err = pipe.RunOnce(ctx)
	}

	if err != nil {
		log.Fatal("scan failed", "error", err)
	}

	printStats(report)
}

func runPeriodic(pipe *manager.Pipeline, interval time.Duration, log *logger.Logger) {
	if err := pipe.Start(interval); err != nil {
		log.Fatal("failed to start pipeline", "error", err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Info("shutting down")
	pipe.Stop()
}

func buildSources(cfg *config.Config) *sources.Multi {
	srcCfg := sources.Config{
		Timeout:   cfg.Sources.Timeout,
		UserAgent: cfg.Sources.UserAgent,
		FreeLists: cfg.Sources.FreeLists,
		Provinces: cfg.Sources.Provinces,
		Operators: cfg.Sources.Operators,
		QuakeURL:  cfg.Sources.QuakeURL,
		QuakeSize: cfg.Sources.QuakeSize,
	}

	var srcs []sources.Source
	if cfg.Sources.Mode == "free" || cfg.Sources.Mode == "both" {
		srcs = append(srcs, sources.NewFreeListSources(srcCfg)...)
	}
	if cfg.Sources.Mode == "quake" || cfg.Sources.Mode == "both" {
		srcs = append(srcs, sources.NewQuakeSource(config.QuakeAPIKey(), srcCfg))
	}

	return sources.NewMulti(srcs)
}

func applyFlagOverrides(cfg *config.Config) {
	if *provinces != "" {
		cfg.Sources.Provinces = splitList(*provinces)
	}
	if *operators != "" {
		cfg.Sources.Operators = expandOperators(splitList(*operators))
	}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// expandOperators maps the short carrier aliases onto full names.
func expandOperators(ops []string) []string {
	aliases := map[string]string{
		"移动": "中国移动",
		"电信": "中国电信",
		"联通": "中国联通",
	}
	out := make([]string, 0, len(ops))
	for _, op := range ops {
		if full, ok := aliases[op]; ok {
			out = append(out, full)
			continue
		}
		out = append(out, op)
	}
	return out
}

func printStats(report *scan.Report) {
	fmt.Println(strings.Repeat("=", 40))
	fmt.Println("Scan statistics:")
	fmt.Printf("  total scanned: %d\n", report.Summary.TotalScanned)
	fmt.Printf("  valid:         %d\n", report.Summary.TotalValid)
	fmt.Printf("  working:       %d\n", report.Summary.TotalWorking)
	for source, count := range report.Summary.PerSource {
		fmt.Printf("  source %-16s %d\n", source+":", count)
	}
	fmt.Println(strings.Repeat("=", 40))
}
