// Package main is the matomeru CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/matomeru/internal/cli"
	"github.com/hyperjump/matomeru/internal/config"
	"github.com/hyperjump/matomeru/internal/embedding"
	"github.com/hyperjump/matomeru/internal/engine"
	"github.com/hyperjump/matomeru/internal/extract"
	"github.com/hyperjump/matomeru/internal/fileid"
	"github.com/hyperjump/matomeru/internal/ingest"
	"github.com/hyperjump/matomeru/internal/models"
	"github.com/hyperjump/matomeru/internal/server"
	"github.com/hyperjump/matomeru/internal/watcher"
	"github.com/hyperjump/matomeru/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/matomeru/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory is preferred if it exists. Returns the config and the path that
// was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// loadConfigOrDefault is loadConfig for commands that can run without a config file.
func loadConfigOrDefault(path string) (*config.Config, string) {
	cfg, resolved, err := loadConfig(path)
	if err != nil {
		return config.Default(), ""
	}
	return cfg, resolved
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	args := os.Args[2:]
	var err error
	switch command {
	case "server":
		runServer(args)
	case "cluster":
		err = runCluster(args)
	case "add":
		err = runAdd(args)
	case "remove":
		err = runRemove(args)
	case "threshold":
		err = runThreshold(args)
	case "clusters":
		err = runClusters(args)
	case "status":
		err = runStatus(args)
	case "version", "--version", "-v":
		fmt.Printf("matomeru version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", command, err)
		os.Exit(1)
	}
}

// components are the long-lived pieces of a running server.
type components struct {
	Embedder embedding.Embedder
	Engine   *engine.Engine
	Ingester *ingest.Ingester
}

func (c *components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*components, error) {
	emb, err := embedding.New(&cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	eng, err := engine.New(emb, engine.FromConfig(&cfg.Clustering), engine.WithLogger(logger))
	if err != nil {
		_ = emb.Close()
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}
	ing := ingest.New(eng, extract.NewExtractor(),
		ingest.WithLogger(logger),
		ingest.WithRegistry(fileid.NewRegistry(cfg.Watch.IDBase)))
	return &components{Embedder: emb, Engine: eng, Ingester: ing}, nil
}

func runServer(args []string) {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (every add, remove and file event)")
	_ = fs.Parse(args)

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	cfg.Debug = debugMode
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.Float64("threshold", cfg.Clustering.Threshold),
	)

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchSvc server.WatchService
	if len(cfg.Watch.Directories) > 0 {
		exts := cfg.Watch.Extensions
		w := watcher.New(
			cfg.Watch.Directories,
			exts,
			cfg.Watch.RecursiveOrDefault(),
			comps.Ingester.WatchHandler(watchCtx, exts),
			watcher.WithLogger(logger),
		)
		if err := w.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
		w.SyncExistingFiles()
		watchSvc = w
	}

	srv := server.NewServer(comps.Engine, cfg, resolvedConfigPath, logger, watchSvc)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...", zap.String("instance", srv.InstanceID()))
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// runCluster adds every item of a file to a fresh engine, one at a time, and prints
// the final partition.
func runCluster(args []string) error {
	fs := flag.NewFlagSet("cluster", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	threshold := fs.Float64("threshold", 0, "similarity threshold in (0, 1] (default from config)")
	topK := fs.Int("top-k", 0, "neighbourhood size (default from config)")
	backend := fs.String("backend", "", "embedding backend: onnx or hashing (default from config)")
	outputFormat := fs.String("output", "text", "output format: text, compact or json")
	debug := fs.Bool("debug", false, "log every add")
	_ = fs.Parse(reorderArgs(args))

	if fs.NArg() != 1 {
		fmt.Println("Usage: matomeru cluster [flags] <file>")
		fs.PrintDefaults()
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		return err
	}
	cfg, _ := loadConfigOrDefault(*configPath)
	applyClusterOverrides(cfg, *threshold, *topK, *backend)
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	path := fs.Arg(0)
	items, err := extract.NewExtractor().Items(path)
	if err != nil {
		return err
	}
	emb, err := embedding.New(&cfg.Embedding, logger)
	if err != nil {
		return err
	}
	defer emb.Close()
	eng, err := engine.New(emb, engine.FromConfig(&cfg.Clustering), engine.WithLogger(logger))
	if err != nil {
		return err
	}

	labels := make(map[int]string, len(items))
	kinds := make(map[int]string, len(items))
	res, stats, err := ingest.AddItems(context.Background(), eng, items, 0, cfg.Clustering.TitleOnlyHosts,
		func(id int, item extract.Item, r *engine.Result) {
			labels[id] = itemLabel(item)
			// unknown kinds in a file count as pages
			kinds[id], _ = models.ParseKind(item.Kind)
			logger.Debug("item clustered", zap.Int("id", id), zap.Int("clusters", r.Partition.Len()))
		})
	if err != nil {
		return err
	}
	part := res.Partition
	clusters := part.Clusters()
	report := &cli.Report{
		Source: path,
		Items:  stats.Items,
		Partition: models.PartitionResponse{
			IDs:       part.IDs,
			Sizes:     part.Sizes,
			Clusters:  clusters,
			Groups:    models.GroupByKind(clusters, func(id int) string { return kinds[id] }),
			Threshold: eng.Threshold(),
			Timing:    models.NewTiming(stats.Timing.Tokenization, stats.Timing.Inference, stats.Timing.Clustering),
		},
		Labels: labels,
		WallMS: float64(stats.Wall.Microseconds()) / 1000,
	}
	return cli.PrintReport(report, format)
}

func applyClusterOverrides(cfg *config.Config, threshold float64, topK int, backend string) {
	if threshold != 0 {
		cfg.Clustering.Threshold = threshold
	}
	if topK > 0 {
		cfg.Clustering.TopK = topK
	}
	if backend != "" {
		cfg.Embedding.Backend = backend
	}
}

// itemLabel is the title of an item, or the start of its content.
func itemLabel(item extract.Item) string {
	if t := strings.TrimSpace(item.Title); t != "" {
		return utils.Truncate(t, 60)
	}
	return utils.Truncate(cli.TruncateWords(utils.Preprocess(item.Content), 8), 60)
}

// reorderArgs moves any flags (and their values) that appear after the positional
// arguments to the front so flag.Parse sees them.
func reorderArgs(args []string) []string {
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

func printUsage() {
	fmt.Println(`matomeru - Incremental semantic clustering of short texts

Usage:
  matomeru server [flags]              Start the HTTP server (and directory watcher)
  matomeru cluster [flags] <file>      Cluster the items of a file and print the partition
  matomeru add [flags] <text>          Add (or replace) an item on the server
  matomeru remove [flags] <id>         Remove an item from the server
  matomeru threshold [value]           Show or change the server threshold
  matomeru clusters [flags]            Show the current partition
  matomeru status [flags]              Show server status
  matomeru version                     Show version
  matomeru help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/matomeru/config.yaml)
  --debug            Enable debug logging

Cluster Flags:
  --config string    Config file path
  --threshold float  Similarity threshold in (0, 1]
  --top-k int        Neighbourhood size
  --backend string   Embedding backend: onnx or hashing
  --output string    Output format: text, compact or json (default: text)

Remote Flags (add, remove, threshold, clusters, status):
  --server string    Server URL (default: from config, or http://localhost:8080)
  --id int           Item id (add)
  --title string     Item title (add)
  --replace          Replace an existing item (add) or open a replace (remove)
  --output string    Output format (default: text)

Examples:
  matomeru server
  matomeru cluster --threshold 0.5 headlines.txt
  matomeru cluster --output json survey.csv
  matomeru add --id 7 --title "Weekly notes" "standup moved to Tuesday"
  matomeru add --id 7 --replace "standup moved to Wednesday"
  matomeru remove 7
  matomeru threshold 0.6
  matomeru clusters --output compact`)
}
