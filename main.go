package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"miyuki-dl/pkg/api"
	"miyuki-dl/pkg/assembler"
	"miyuki-dl/pkg/config"
	"miyuki-dl/pkg/downloader"
	"miyuki-dl/pkg/fsutil"
	"miyuki-dl/pkg/ledger"
	"miyuki-dl/pkg/logger"
	"miyuki-dl/pkg/processor"
)

const banner = `
 __  __ _             _    _
|  \/  (_)_   _ _   _| | _(_)
| |\/| | | | | | | | | |/ / |
| |  | | | |_| | |_| |   <| |
|_|  |_|_|\__, |\__,_|_|\_\_|
          |___/
`

func main() {
	os.Exit(run())
}

func run() int {
	// Parse configuration
	cfg, err := config.ParseCfg(os.Args[1:])
	if errors.Is(err, config.ErrHelp) {
		return 0
	}
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to parse config/args")
		return 1
	}

	if !cfg.Noban {
		fmt.Print(banner)
	}

	logger.SetDebug(cfg.Debug)
	if err := logger.EnableFileOutput(cfg.LogFile); err != nil {
		logger.GetLogger().WithError(err).Warn("Failed to open log file, logging to stdout only")
	}
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create output directory
	if err := fsutil.MakeDirs(cfg.OutPath); err != nil {
		log.WithError(err).Error("Failed to make output folder")
		return 1
	}

	// Initialize API client
	apiClient, err := api.NewClient(api.Options{Proxy: cfg.Proxy, Insecure: cfg.Insecure})
	if err != nil {
		log.WithError(err).Error("Failed to create HTTP client")
		return 1
	}

	var asm assembler.Assembler = assembler.Concat{}
	if cfg.Ffmpeg {
		ff := assembler.FFmpeg{Path: cfg.FfmpegPath}
		if !ff.Available() {
			log.WithField("path", cfg.FfmpegPath).Error("ffmpeg not found, install it or set ffmpegPath in config.json")
			return 1
		}
		asm = ff
	}

	fetcher := downloader.NewFetcher(apiClient, cfg.Retry, cfg.RetryDelay(), cfg.FetchTimeout())
	coordinator := downloader.NewCoordinator(fetcher, apiClient, os.Stderr)
	proc := processor.NewProcessor(apiClient, coordinator, asm, ledger.Open(cfg.RecordFile), cfg)

	urls, err := proc.CollectURLs(ctx)
	if err != nil {
		logger.WrapError(err, map[string]interface{}{"plist": cfg.Plist, "search": cfg.Search})
		return 1
	}
	if len(urls) == 0 {
		log.Error("No movie URLs to process")
		return 1
	}

	log.WithFields(logrus.Fields{
		"threads":   cfg.Threads,
		"retry":     cfg.Retry,
		"assembler": asm.Name(),
		"output":    cfg.OutPath,
	}).Info("Starting downloads")

	summary := proc.ProcessAll(ctx, urls)
	if summary.Interrupted {
		log.Warn("Interrupted, staging folders were cleaned")
		return 130
	}
	if summary.Failed > 0 && summary.Failed == summary.Total {
		return 1
	}
	return 0
}
