package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"yxscraper/pkg/config"
	"yxscraper/pkg/logger"
	"yxscraper/pkg/models"
	"yxscraper/pkg/scraper"
	"yxscraper/pkg/ui"
)

var (
	// Search command flags
	outputDir      string
	maxScrolls     int
	headless       bool
	concurrent     int
	requestTimeout time.Duration
	settleInterval time.Duration
	downloadDelay  time.Duration
	maxRetries     int
	noProgress     bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <image>",
	Short: "Reverse-search an image and download the similar results",
	Long: `Upload a local image to Yandex reverse image search, expand the
similar-images feed, and download every result.

Already-downloaded images are recognized by their content-addressed
filenames and skipped without any network traffic, so interrupted runs
can simply be re-run.`,
	Example: `  # Search with default settings
  yxscraper search photo.jpg

  # Download to a specific directory with more workers
  yxscraper search photo.jpg --output ./results --concurrent 5

  # Run the browser headless with a deeper scroll
  yxscraper search photo.jpg --headless --max-scrolls 100`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runSearch(cmd, args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for downloads (default: ./yandex_images)")
	searchCmd.Flags().IntVar(&maxScrolls, "max-scrolls", 0, "maximum scroll rounds before giving up")
	searchCmd.Flags().BoolVar(&headless, "headless", false, "run the browser headless")
	searchCmd.Flags().IntVar(&concurrent, "concurrent", 0, "number of concurrent downloads")
	searchCmd.Flags().DurationVar(&requestTimeout, "request-timeout", 0, "per-download HTTP timeout")
	searchCmd.Flags().DurationVar(&settleInterval, "settle", 0, "pause after each scroll for content to load")
	searchCmd.Flags().DurationVar(&downloadDelay, "delay", -1, "fixed delay between downloads per worker")
	searchCmd.Flags().IntVar(&maxRetries, "max-retries", -1, "maximum retry attempts per download")
	searchCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the live progress display")
}

func runSearch(cmd *cobra.Command, args []string) {
	imagePath := args[0]

	ui.PrintInfo("Query image", imagePath)

	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if cmd.Flags().Changed("headless") {
		flags["headless"] = headless
	}
	if maxScrolls > 0 {
		flags["max-scrolls"] = maxScrolls
	}
	if settleInterval > 0 {
		flags["settle-interval"] = settleInterval
	}
	if concurrent > 0 {
		flags["concurrent"] = concurrent
	}
	if requestTimeout > 0 {
		flags["request-timeout"] = requestTimeout
	}
	if downloadDelay >= 0 {
		flags["download-delay"] = downloadDelay
	}
	if maxRetries >= 0 {
		flags["max-retries"] = maxRetries
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}
	logger.WithField("version", version).Info("yxscraper starting")

	// SIGINT stops cleanly between rounds and downloads; in-flight
	// requests are allowed to finish
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := scraper.New(cfg)
	if err != nil {
		ui.PrintError("Failed to initialize scraper", err.Error())
		os.Exit(1)
	}

	var progress *ui.Progress
	if !noProgress && !ui.IsQuietMode() {
		s.OnBatchStart(func(total int) {
			progress = ui.NewProgress(total)
		})
		s.OnRecord(func(rec models.DownloadRecord) {
			if progress != nil {
				progress.Record(rec)
			}
		})
	}

	summary, err := s.Run(ctx, imagePath)
	if progress != nil {
		progress.Finish()
	}
	if err != nil {
		logger.WithError(err).Error("search run failed")
		ui.PrintError("SEARCH FAILED", err.Error())
		os.Exit(1)
	}

	printSummary(summary)

	if summary.Failed > 0 && summary.Succeeded == 0 && summary.Skipped == 0 {
		os.Exit(1)
	}
}

func printSummary(summary *models.RunSummary) {
	ui.PrintSuccess("[SEARCH COMPLETED]")
	fmt.Println()
	ui.PrintInfo("Attempted", fmt.Sprintf("%d", summary.Attempted))
	ui.PrintInfo("Downloaded", fmt.Sprintf("%d", summary.Succeeded))
	ui.PrintInfo("Skipped", fmt.Sprintf("%d (already present)", summary.Skipped))
	ui.PrintInfo("Failed", fmt.Sprintf("%d", summary.Failed))
	ui.PrintInfo("Output", summary.OutputDir)
}
