package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/finwire/newsintel/internal/config"
	"github.com/finwire/newsintel/internal/ingest"
	"github.com/finwire/newsintel/internal/model"
	"github.com/finwire/newsintel/internal/pipeline"
	"github.com/finwire/newsintel/internal/server"
	"github.com/finwire/newsintel/internal/store"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "newsintel",
	Short:   "Financial news intelligence",
	Long:    "newsintel deduplicates financial news into stories, maps impacted stocks, and answers natural-language queries about them.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			// Fall back to the embedded defaults so demo commands work
			// out of the box.
			cfg, err = config.Default()
			if err != nil {
				return err
			}
			return nil
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(storiesCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("newsintel", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/newsintel/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds, entity tables, and thresholds.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show archive status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		articles, err := db.CountArticles()
		if err != nil {
			return fmt.Errorf("counting articles: %w", err)
		}
		sources, err := db.CountSources()
		if err != nil {
			return fmt.Errorf("counting sources: %w", err)
		}

		fmt.Printf("Archive: %s\n\n", db.Path())
		fmt.Printf("  Articles: %d\n", articles)
		fmt.Printf("  Sources:  %d\n", sources)
		return nil
	},
}

// --- ingest command ---

var (
	ingestLive  bool
	ingestFetch bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest articles from a JSONL dataset or live RSS feeds",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		var articles []*model.Article
		switch {
		case ingestLive:
			fmt.Println("Collecting live RSS articles...")
			collector := ingest.NewFeedCollector(cfg.Sources)
			articles = collector.CollectAll()
			if ingestFetch {
				fetcher := ingest.NewContentFetcher(15 * time.Second)
				result := fetcher.FillBodies(articles)
				fmt.Printf("Fetched full text for %d articles (%d failed)\n", result.Fetched, result.Failed)
			}
		default:
			path := cfg.Sources.Dataset
			if len(args) > 0 {
				path = args[0]
			}
			fmt.Printf("Loading dataset %s...\n", path)
			articles, err = ingest.LoadDataset(path)
			if err != nil {
				return err
			}
		}

		inserted := 0
		for _, a := range articles {
			ok, err := db.InsertArticle(a)
			if err != nil {
				return fmt.Errorf("archiving article: %w", err)
			}
			if ok {
				inserted++
			}
		}

		fmt.Printf("\nIngestion complete: %d new articles (%d total seen, %d duplicates)\n",
			inserted, len(articles), len(articles)-inserted)
		return nil
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestLive, "live", false, "Collect from configured RSS feeds instead of a dataset file")
	ingestCmd.Flags().BoolVar(&ingestFetch, "fetch", false, "Fetch full article text for RSS teasers")
}

// --- stories command ---

var storiesCmd = &cobra.Command{
	Use:   "stories",
	Short: "Build the index and print stories with impact mapping",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, db, err := buildSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		for _, story := range snap.Enriched {
			fmt.Printf("Story: %s\n", story.Title)
			fmt.Printf("  Articles: %d", len(story.ArticleIDs))
			if len(story.Sources) > 0 {
				fmt.Printf("  Sources: %s", strings.Join(story.Sources, ", "))
			}
			fmt.Println()
			if story.Sentiment != "" {
				fmt.Printf("  Sentiment: %s (%.2f)\n", story.Sentiment, story.SentimentScore)
			}
			if len(story.Impacted) == 0 {
				fmt.Println("  Impacted stocks: (none detected)")
			} else {
				fmt.Println("  Impacted stocks:")
				for _, imp := range story.Impacted {
					fmt.Printf("    - %s | confidence=%.2f | types=%s\n",
						imp.Symbol, imp.Confidence, strings.Join(imp.ImpactTypes, ","))
				}
			}
			fmt.Println(strings.Repeat("-", 72))
		}
		fmt.Printf("%d stories from %d articles\n", len(snap.Enriched), len(snap.Articles))
		return nil
	},
}

// --- query command ---

var (
	queryTopK     int
	queryMinScore float64
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Build the index and run a ranked query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, db, err := buildSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		topK := queryTopK
		if !cmd.Flags().Changed("top-k") && cfg.Query.DefaultTopK > 0 {
			topK = cfg.Query.DefaultTopK
		}
		minScore := queryMinScore
		if !cmd.Flags().Changed("min-score") && cfg.Query.DefaultMinScore > 0 {
			minScore = cfg.Query.DefaultMinScore
		}

		results, err := snap.Search(cmd.Context(), args[0], topK, minScore)
		if err != nil {
			return err
		}

		if len(results) == 0 {
			fmt.Println("No results.")
			return nil
		}
		for _, res := range results {
			fmt.Printf("[score=%.3f] %s\n", res.Score, res.Story.Title)
			for _, imp := range res.Story.Impacted {
				fmt.Printf("    %s (%.2f, %s)\n", imp.Symbol, imp.Confidence, strings.Join(imp.ImpactTypes, ","))
			}
		}
		return nil
	},
}

func init() {
	queryCmd.Flags().IntVar(&queryTopK, "top-k", 5, "Maximum number of results")
	queryCmd.Flags().Float64Var(&queryMinScore, "min-score", 0.05, "Minimum result score")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Build the index and start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, db, err := buildSnapshot(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, pipeline.New(cfg), snap, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

// buildSnapshot opens the archive and runs a full build over it.
func buildSnapshot(ctx context.Context) (*pipeline.Snapshot, *store.DB, error) {
	db, err := openDB()
	if err != nil {
		return nil, nil, err
	}

	articles, err := db.GetAllArticles()
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("reading archive: %w", err)
	}
	if len(articles) == 0 {
		fmt.Println("Archive is empty. Run 'newsintel ingest' first.")
	}

	snap, err := pipeline.New(cfg).Build(ctx, articles)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return snap, db, nil
}

func openDB() (*store.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "newsintel.db")
	return store.Open(dbPath)
}
