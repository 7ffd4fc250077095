// Package main is the pagesift CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/pagesift/internal/cli"
	"github.com/hyperjump/pagesift/internal/config"
	"github.com/hyperjump/pagesift/internal/keyword"
	"github.com/hyperjump/pagesift/internal/models"
	"github.com/hyperjump/pagesift/internal/queue"
	"github.com/hyperjump/pagesift/internal/server"
	"github.com/hyperjump/pagesift/internal/watcher"
	"github.com/hyperjump/pagesift/pkg/utils"
)

var version = "dev"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence. Returns the config and the path
// that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == config.DefaultPath() {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				path = fallback
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	config.LoadDotEnv()

	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "search":
		runSearch()
	case "pages":
		runPages()
	case "status":
		runStatus()
	case "watch":
		runWatch()
	case "consume":
		runConsume()
	case "enqueue":
		runEnqueue()
	case "version", "--version", "-v":
		fmt.Printf("pagesift version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config, creates the logger and wires components. It exits the
// process on failure.
func setup(configPath string, debug bool) (*config.Config, string, *zap.Logger, *Components) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved))

	components, err := initializeComponents(cfg, logger, debugMode)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	return cfg, resolved, logger, components
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	feeder := watcher.NewFeeder(components.Indexer, logger)
	watchSvc := watcher.NewWatcher(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		func(path string) {
			if _, err := feeder.HandleFile(watchCtx, path); err != nil {
				logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
			}
		},
		watcher.WithLogger(logger),
	)
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	watchSvc.SyncExisting()

	srv := server.NewServer(
		components.Indexer,
		components.Engine,
		components.Status,
		&cfg.Server,
		logger,
		server.WithWatch(watchSvc, resolvedConfigPath, cfg),
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	watchSvc.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func printIngestUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: pagesift ingest [flags] <url>...\n\n")
	fs.PrintDefaults()
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	serverURL := fs.String("server", "", "server URL (empty = ingest directly into the local store)")
	listFile := fs.String("file", "", "file with one URL per line")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printIngestUsage(fs) }
	_ = fs.Parse(argsReorder(os.Args[2:]))

	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	urls := fs.Args()
	if *listFile != "" {
		fromFile, err := watcher.ReadURLs(*listFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", *listFile, err)
			os.Exit(1)
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		printIngestUsage(fs)
		os.Exit(1)
	}

	var results []*models.IngestResult
	if *serverURL != "" {
		results, err = ingestViaHTTP(*serverURL, urls)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		results = ingestLocal(*configPath, *debug, urls)
	}

	if err := cli.WriteIngestResults(os.Stdout, results, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if failedCount(results) > 0 {
		os.Exit(2)
	}
}

// ingestLocal runs the batch against the local store and closes it, saving
// the vector index snapshot, before returning.
func ingestLocal(configPath string, debug bool, urls []string) []*models.IngestResult {
	_, _, logger, components := setup(configPath, debug)
	defer logger.Sync()
	defer components.Close()
	return components.Indexer.IngestBatch(context.Background(), urls)
}

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: pagesift search [flags] <text>\n\n")
	fmt.Fprintf(fs.Output(), "Text is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
The text is classified and only stored pages of the same category are returned.

Examples:
  pagesift search interest rates rise again
  pagesift search --limit 10 "champions league final"
`)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	serverURL := fs.String("server", "", "server URL (empty = search the local store directly)")
	limit := fs.Int("limit", models.DefaultSearchLimit, "number of nearest records to consider")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(argsReorder(os.Args[2:]))

	text := buildSearchQuery(fs.Args())
	if text == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	query := &models.SearchQuery{Text: text, Limit: limit}
	n, err := query.Validate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid query: %v\n", err)
		os.Exit(1)
	}

	var results []*models.SearchResult
	if *serverURL != "" {
		results, err = searchViaHTTP(*serverURL, query)
	} else {
		_, _, logger, components := setup(*configPath, *debug)
		defer logger.Sync()
		defer components.Close()
		results, err = components.Engine.Retrieve(context.Background(), text, n)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, text, results, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runPages() {
	fs := flag.NewFlagSet("pages", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	serverURL := fs.String("server", "", "server URL (empty = search the local page index directly)")
	limit := fs.Int("limit", 10, "number of results")
	category := fs.String("category", "", "restrict results to one category")
	fuzzy := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	q := buildSearchQuery(fs.Args())
	if q == "" {
		fmt.Println("Usage: pagesift pages [flags] <query>")
		os.Exit(1)
	}
	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	opts := &keyword.SearchOptions{
		Category:     models.Category(*category),
		URLBoost:     2,
		FuzzyEnabled: *fuzzy,
	}

	var hits []*models.PageHit
	if *serverURL != "" {
		hits, err = pageSearchViaHTTP(*serverURL, q, *limit, opts)
	} else {
		_, _, logger, components := setup(*configPath, *debug)
		defer logger.Sync()
		defer components.Close()
		hits, err = components.Engine.SearchPages(context.Background(), q, *limit, opts)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Page search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WritePageHits(os.Stdout, q, hits, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "config file path")
	serverURL := fs.String("server", "", "server URL (empty = read the local store directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := parseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	var st *models.Status
	if *serverURL != "" {
		st, err = statusViaHTTP(*serverURL)
	} else {
		_, _, logger, components := setup(*configPath, false)
		defer logger.Sync()
		defer components.Close()
		st, err = components.Status(context.Background())
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func printWatchUsage() {
	fmt.Println("Usage: pagesift watch <run|add|remove|list> [path...]")
	fmt.Println("  pagesift watch run [dir...]     Watch directories for URL lists and ingest them")
	fmt.Println("  pagesift watch add <path>       Add directory to a running server's watch")
	fmt.Println("  pagesift watch remove <path>    Remove directory from a running server's watch")
	fmt.Println("  pagesift watch list             List a running server's watched directories")
}

func runWatch() {
	if len(os.Args) < 3 {
		printWatchUsage()
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(argsReorder(os.Args[3:]))

	switch sub {
	case "run":
		runWatchLocal(*configPath, *debug, fs.Args())
	case "add", "remove":
		if fs.NArg() < 1 {
			fmt.Printf("Usage: pagesift watch %s <path>\n", sub)
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		var err error
		if sub == "add" {
			err = watchAddViaHTTP(*serverURL, path)
		} else {
			err = watchRemoveViaHTTP(*serverURL, path)
		}
		if err != nil {
			fmt.Printf("Watch %s failed: %v\n", sub, err)
			os.Exit(1)
		}
		if sub == "add" {
			fmt.Printf("Added: %s\n", path)
		} else {
			fmt.Printf("Removed: %s\n", path)
		}
	case "list":
		dirs, err := watchListViaHTTP(*serverURL)
		if err != nil {
			fmt.Printf("Watch list failed: %v\n", err)
			os.Exit(1)
		}
		if len(dirs) == 0 {
			fmt.Println("No watched directories.")
			return
		}
		for _, d := range dirs {
			fmt.Println(d)
		}
	default:
		printWatchUsage()
		os.Exit(1)
	}
}

func runWatchLocal(configPath string, debug bool, dirs []string) {
	cfg, _, logger, components := setup(configPath, debug)
	defer logger.Sync()
	defer components.Close()

	if len(dirs) == 0 {
		dirs = cfg.Watch.Directories
	}
	if len(dirs) == 0 {
		fmt.Fprintln(os.Stderr, "No directories to watch; pass them as arguments or set watch.directories")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	feeder := watcher.NewFeeder(components.Indexer, logger)
	w := watcher.NewWatcher(dirs, cfg.Watch.Extensions, func(path string) {
		results, err := feeder.HandleFile(ctx, path)
		if err != nil {
			logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
			return
		}
		if len(results) > 0 {
			_ = cli.WriteIngestResults(os.Stdout, results, cli.OutputText)
		}
	}, watcher.WithLogger(logger))
	if err := w.Start(ctx); err != nil {
		logger.Error("Failed to start watcher", zap.Error(err))
		return
	}
	w.SyncExisting()
	logger.Info("watching", zap.Strings("directories", w.Directories()))
	<-ctx.Done()
	w.Stop()
}

func runConsume() {
	fs := flag.NewFlagSet("consume", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	brokers := fs.String("brokers", "", "comma-separated Kafka brokers (overrides config)")
	topic := fs.String("topic", "", "URL topic (overrides config)")
	groupID := fs.String("group", "", "consumer group (overrides config)")
	_ = fs.Parse(os.Args[2:])

	cfg, _, logger, components := setup(*configPath, *debug)
	defer logger.Sync()
	defer components.Close()
	applyKafkaFlags(&cfg.Kafka, *brokers, *topic, *groupID)
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Error("no Kafka brokers configured")
		return
	}

	opts := []queue.ConsumerOption{queue.WithLogger(logger)}
	if cfg.Kafka.ResultsTopic != "" {
		results, err := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.ResultsTopic)
		if err != nil {
			logger.Error("Failed to create results producer", zap.Error(err))
			return
		}
		defer results.Close()
		opts = append(opts, queue.WithResults(results))
	}
	consumer, err := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, components.Indexer, opts...)
	if err != nil {
		logger.Error("Failed to create consumer", zap.Error(err))
		return
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Info("consuming",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
		zap.String("group", cfg.Kafka.GroupID),
	)
	if err := consumer.Run(ctx); err != nil {
		logger.Error("consumer stopped", zap.Error(err))
	}
}

func runEnqueue() {
	fs := flag.NewFlagSet("enqueue", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "config file path")
	brokers := fs.String("brokers", "", "comma-separated Kafka brokers (overrides config)")
	topic := fs.String("topic", "", "URL topic (overrides config)")
	listFile := fs.String("file", "", "file with one URL per line")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	applyKafkaFlags(&cfg.Kafka, *brokers, *topic, "")

	urls := fs.Args()
	if *listFile != "" {
		fromFile, err := watcher.ReadURLs(*listFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", *listFile, err)
			os.Exit(1)
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		fmt.Println("Usage: pagesift enqueue [flags] <url>...")
		os.Exit(1)
	}

	producer, err := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create producer: %v\n", err)
		os.Exit(1)
	}
	defer producer.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := producer.Enqueue(ctx, urls...); err != nil {
		fmt.Fprintf(os.Stderr, "Enqueue failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Enqueued %d URL(s) to %s\n", len(urls), cfg.Kafka.Topic)
}

func printUsage() {
	fmt.Println(`pagesift - web page ingestion and category-aware retrieval

Usage:
  pagesift <command> [flags]

Commands:
  server    Start HTTP server (also watches configured URL list directories)
  ingest    Fetch, classify, embed and store one or more URLs
  search    Retrieve stored pages in the same category as the text
  pages     Full-text search over ingested page text
  status    Show store status
  watch     Watch directories of URL lists (run, add, remove, list)
  consume   Ingest URLs read from a Kafka topic
  enqueue   Publish URLs to the Kafka topic
  version   Show version
  help      Show this help

Run 'pagesift <command> -h' for command flags.`)
}

// buildSearchQuery joins positional args so multi-word queries work with or
// without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags that appear after the positional arguments to
// the front so flag.Parse sees them.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func parseOutputFormat(s string) (cli.OutputFormat, error) {
	switch s {
	case "text":
		return cli.OutputText, nil
	case "json":
		return cli.OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// splitList splits a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func applyKafkaFlags(k *config.KafkaConfig, brokers, topic, groupID string) {
	if b := splitList(brokers); len(b) > 0 {
		k.Brokers = b
	}
	if topic != "" {
		k.Topic = topic
	}
	if groupID != "" {
		k.GroupID = groupID
	}
}

func failedCount(results []*models.IngestResult) int {
	n := 0
	for _, r := range results {
		if r.Failed() {
			n++
		}
	}
	return n
}
