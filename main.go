package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"metagen/content"
	"metagen/db"
	"metagen/generator"
	"metagen/metrics"
	"metagen/prompt"
	"metagen/server"
	"metagen/utils"
)

var (
	version = "0.1.0"
)

const usageText = `metagen generates alt text, SEO titles, SEO descriptions and icon labels.

Usage:
  metagen [-config path] <command> [flags]

Commands:
  serve         run the HTTP API
  alt           generate alt text for an image
  title         generate an SEO title for a document
  description   generate an SEO description for a document
  icon          generate an accessible label for an icon
  usage         print token and cost usage from the audit log
  export        export audit entries as JSON or Markdown
  prune         delete audit entries older than the retention window
`

// app holds what every command needs
type app struct {
	configPath string
	config     *utils.Config
	logger     *utils.Logger
	database   *db.DB
}

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usageText) }
	flag.Parse()

	if *showVersion {
		fmt.Printf("metagen v%s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	a, err := setup(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "serve":
		err = a.serve(ctx, rest)
	case "alt":
		err = a.alt(ctx, rest)
	case "title":
		err = a.seo(ctx, rest, false)
	case "description":
		err = a.seo(ctx, rest, true)
	case "icon":
		err = a.icon(ctx, rest)
	case "usage":
		err = a.usage(rest)
	case "export":
		err = a.export(rest)
	case "prune":
		err = a.prune(rest)
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		a.logger.Error("%s: %v", cmd, err)
		os.Exit(1)
	}
}

func setup(configPath string) (*app, error) {
	// Load or create default configuration
	actualConfigPath, err := utils.EnsureDefaultConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create default config: %w", err)
	}
	config, err := utils.LoadConfig(actualConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logPath := config.Logging.Path
	if logPath == "" {
		logPath = utils.GetLogPath()
	}
	logger, err := utils.NewLogger(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetLevel(config.Logging.Level)
	logger.Info("Starting metagen v%s", version)
	logger.Debug("Using config file: %s", actualConfigPath)

	// Initialize database
	database, err := db.New(config.Data.DBPath)
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Debug("Database initialized: %s", config.Data.DBPath)
	if !database.HasFullTextSearch() {
		logger.Warn("SQLite built without FTS5, audit search falls back to LIKE")
	}

	return &app{
		configPath: actualConfigPath,
		config:     config,
		logger:     logger,
		database:   database,
	}, nil
}

func (a *app) close() {
	if err := a.database.Close(); err != nil {
		a.logger.Error("Failed to close database: %v", err)
	}
	a.logger.Close()
}

// settings re-reads the config file on every call so edits apply without a
// restart
func (a *app) settings(ctx context.Context) (*utils.AISettings, error) {
	cfg, err := utils.LoadConfig(a.configPath)
	if err != nil {
		return nil, err
	}
	return &cfg.AI, nil
}

func (a *app) generator(extra ...generator.Option) *generator.Generator {
	opts := []generator.Option{
		generator.WithAuditStore(a.database),
		generator.WithEventSink(generator.MultiSink{
			generator.LoggerSink{Logger: a.logger},
			metrics.Sink{},
		}),
		generator.WithLogger(a.logger),
	}
	return generator.New(a.settings, append(opts, extra...)...)
}

func (a *app) serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", a.config.Server.Addr, "Listen address")
	fs.Parse(args)

	cfg := a.config.Server
	cfg.Addr = *addr

	// Prune once at startup; the audit log otherwise only grows
	if a.config.Data.RetentionDays > 0 {
		if n, err := a.database.PruneAuditEntries(a.config.Data.RetentionDays); err != nil {
			a.logger.Warn("Failed to prune audit log: %v", err)
		} else if n > 0 {
			a.logger.Info("Pruned %d audit entries", n)
		}
	}

	return server.New(cfg, a.generator(), a.database, a.logger).Run(ctx)
}

func (a *app) alt(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("alt", flag.ExitOnError)
	image := fs.String("image", "", "Image URL, data URL or local file path")
	filename := fs.String("filename", "", "Original filename used for the fallback")
	title := fs.String("title", "", "Title of the page showing the image")
	category := fs.String("category", "", "Category of the page showing the image")
	tags := fs.String("tags", "", "Comma separated page tags")
	batch := fs.String("batch", "", "JSON file with an array of alt tag requests")
	concurrency := fs.Int("concurrency", generator.DefaultBatchConcurrency, "Parallel requests for -batch")
	fs.Parse(args)

	// the CLI may name local image files
	gen := a.generator(generator.WithLocalImages())

	if *batch != "" {
		data, err := utils.ReadFileContent(*batch)
		if err != nil {
			return err
		}
		var reqs []generator.AltTagRequest
		if err := json.Unmarshal([]byte(data), &reqs); err != nil {
			return fmt.Errorf("failed to parse batch file: %w", err)
		}
		return printJSON(gen.BatchAltTags(ctx, reqs, *concurrency))
	}

	if *image == "" {
		return fmt.Errorf("-image is required")
	}
	req := generator.AltTagRequest{
		ImageURL: *image,
		Filename: *filename,
		Actor:    currentActor(),
	}
	if *title != "" || *category != "" || *tags != "" {
		req.Context = &prompt.PageContext{
			PageTitle: *title,
			Category:  *category,
			Tags:      splitList(*tags),
		}
	}
	return printJSON(gen.GenerateAltTag(ctx, req))
}

func (a *app) seo(ctx context.Context, args []string, description bool) error {
	name := "title"
	if description {
		name = "description"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	docPath := fs.String("doc", "", "JSON document file")
	keywords := fs.String("keywords", "", "Comma separated target keywords")
	guidance := fs.String("guidance", "", "Extra instructions for the model")
	fs.Parse(args)

	if *docPath == "" {
		return fmt.Errorf("-doc is required")
	}
	data, err := utils.ReadFileContent(*docPath)
	if err != nil {
		return err
	}
	var doc content.Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	req := generator.SeoRequest{
		Document: &doc,
		Keywords: splitList(*keywords),
		Guidance: *guidance,
		Actor:    currentActor(),
	}
	gen := a.generator()
	if description {
		return printJSON(gen.GenerateSeoDescription(ctx, req))
	}
	return printJSON(gen.GenerateSeoTitle(ctx, req))
}

func (a *app) icon(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("icon", flag.ExitOnError)
	name := fs.String("name", "", "Icon name")
	keywords := fs.String("keywords", "", "Comma separated keywords")
	usage := fs.String("usage", "", "Where the icon is used")
	fs.Parse(args)

	return printJSON(a.generator().GenerateIconMetadata(ctx, generator.IconRequest{
		IconName: *name,
		Keywords: splitList(*keywords),
		Usage:    *usage,
		Actor:    currentActor(),
	}))
}

func (a *app) usage(args []string) error {
	fs := flag.NewFlagSet("usage", flag.ExitOnError)
	days := fs.Int("days", 30, "Number of days to report")
	top := fs.Int("top", 5, "Number of most expensive models to list")
	fs.Parse(args)

	end := time.Now()
	start := end.AddDate(0, 0, -*days)
	stats, err := a.database.GetUsageStats(start, end)
	if err != nil {
		return err
	}
	models, err := a.database.GetTopModels(*top, start, end)
	if err != nil {
		return err
	}
	dbStats, err := a.database.GetStats()
	if err != nil {
		return err
	}

	fmt.Printf("Usage for the last %d days\n\n", *days)
	fmt.Printf("Requests:  %d (%d failed)\n", stats.TotalRequests, stats.FailedRequests)
	fmt.Printf("Tokens:    %d\n", stats.TotalTokens)
	fmt.Printf("Cost:      $%.6f\n", stats.TotalCost)
	fmt.Printf("Audit log: %d entries, %.1f KB\n\n", dbStats.AuditEntryCount, float64(dbStats.DBSizeBytes)/1024)

	for op, s := range stats.OperationStats {
		fmt.Printf("  %-18s %5d requests  %5d ok  $%.6f  avg %.0fms\n", op, s.RequestCount, s.SuccessCount, s.TotalCost, s.AvgDurationMs)
	}
	if len(models) > 0 {
		fmt.Println("\nTop models by cost:")
		for _, m := range models {
			fmt.Printf("  %-10s %-28s %5d requests  $%.6f\n", m.Provider, m.Model, m.RequestCount, m.TotalCost)
		}
	}
	return nil
}

func (a *app) export(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	formatName := fs.String("format", "json", "json or markdown")
	out := fs.String("out", "", "Output file (default ./exports/audit_<timestamp>)")
	days := fs.Int("days", 0, "Only entries from the last N days")
	operation := fs.String("operation", "", "Only entries for this operation")
	limit := fs.Int("limit", 1000, "Maximum entries")
	fs.Parse(args)

	format, err := utils.ParseExportFormat(*formatName)
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		dir, err := utils.GetDefaultExportPath()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, utils.GenerateExportFilename("audit", format))
	}

	filter := db.AuditFilter{Operation: *operation, Limit: *limit}
	if *days > 0 {
		filter.Since = time.Now().AddDate(0, 0, -*days)
	}
	n, err := utils.ExportAuditEntries(a.database, filter, format, path)
	if err != nil {
		return err
	}
	a.logger.Info("Exported %d audit entries to %s", n, path)
	return nil
}

func (a *app) prune(args []string) error {
	fs := flag.NewFlagSet("prune", flag.ExitOnError)
	days := fs.Int("days", a.config.Data.RetentionDays, "Keep entries newer than N days")
	fs.Parse(args)

	if *days <= 0 {
		return fmt.Errorf("retention must be at least one day")
	}
	n, err := a.database.PruneAuditEntries(*days)
	if err != nil {
		return err
	}
	if err := a.database.Vacuum(); err != nil {
		return err
	}
	a.logger.Info("Pruned %d audit entries older than %d days", n, *days)
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func currentActor() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return os.Getenv("USERNAME")
}
