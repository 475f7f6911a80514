package processor

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"miyuki-dl/pkg/api"
	"miyuki-dl/pkg/assembler"
	"miyuki-dl/pkg/config"
	"miyuki-dl/pkg/downloader"
	"miyuki-dl/pkg/fsutil"
	"miyuki-dl/pkg/ledger"
	"miyuki-dl/pkg/logger"
	"miyuki-dl/pkg/manifest"
	"miyuki-dl/pkg/models"
	"miyuki-dl/pkg/scraper"
)

// Processor runs the download pipeline for movie pages
type Processor struct {
	apiClient   *api.Client
	scraper     *scraper.Scraper
	coordinator *downloader.Coordinator
	assembler   assembler.Assembler
	ledger      *ledger.Ledger
	config      *config.Config
}

// Summary is the outcome of a batch
type Summary struct {
	Total       int
	Completed   int
	Skipped     int
	Failed      int
	FailedURLs  []string
	Interrupted bool
}

// NewProcessor creates a new processor instance
func NewProcessor(apiClient *api.Client, coordinator *downloader.Coordinator, asm assembler.Assembler, led *ledger.Ledger, cfg *config.Config) *Processor {
	return &Processor{
		apiClient:   apiClient,
		scraper:     scraper.New(apiClient),
		coordinator: coordinator,
		assembler:   asm,
		ledger:      led,
		config:      cfg,
	}
}

// CollectURLs gathers the movie pages named by the configured source
func (p *Processor) CollectURLs(ctx context.Context) ([]string, error) {
	log := logger.GetLogger()

	switch {
	case p.config.Plist != "":
		urls, err := p.scraper.CollectPlaylist(ctx, p.config.Plist, p.config.Limit)
		if err != nil {
			return nil, err
		}
		log.WithField("total", len(urls)).Info("The URLs of all videos in this playlist")
		return urls, nil

	case p.config.Search != "":
		url, err := p.scraper.Search(ctx, p.config.Search)
		if err != nil {
			return nil, err
		}
		return []string{url}, nil

	default:
		log.WithField("total", len(p.config.Urls)).Info("The URLs of all videos to process")
		return p.config.Urls, nil
	}
}

// ProcessAll processes every URL in order. Item failures are logged and counted;
// only cancellation of ctx stops the batch early.
func (p *Processor) ProcessAll(ctx context.Context, urls []string) Summary {
	log := logger.GetLogger()
	summary := Summary{Total: len(urls)}

	for i, url := range urls {
		if ctx.Err() != nil {
			summary.Interrupted = true
			break
		}

		p.cleanStaging()
		log.WithFields(logrus.Fields{"url": url, "item_num": i + 1, "total": summary.Total}).Info("Processing URL")

		skipped, err := p.processMovie(ctx, url)
		switch {
		case err != nil:
			summary.Failed++
			summary.FailedURLs = append(summary.FailedURLs, url)
			context := map[string]interface{}{
				"url":      url,
				"item_num": i + 1,
				"total":    summary.Total,
			}
			if dlErr, ok := err.(*models.DownloadError); ok {
				context["error_type"] = dlErr.Type.String()
				if dlErr.UserGuide != "" {
					context["guide"] = dlErr.UserGuide
				}
			}
			logger.WrapError(err, context)
		case skipped:
			summary.Skipped++
		default:
			summary.Completed++
			log.WithField("url", url).Info("Processing URL Complete")
		}

		p.cleanStaging()
	}

	if ctx.Err() != nil {
		summary.Interrupted = true
	}

	log.WithFields(logrus.Fields{
		"total":       summary.Total,
		"completed":   summary.Completed,
		"skipped":     summary.Skipped,
		"failed":      summary.Failed,
		"interrupted": summary.Interrupted,
	}).Info("Batch finished")
	return summary
}

// ProcessMovie downloads and assembles one movie page. A page already in the
// ledger is skipped without any network access.
func (p *Processor) ProcessMovie(ctx context.Context, pageURL string) error {
	_, err := p.processMovie(ctx, pageURL)
	return err
}

func (p *Processor) processMovie(ctx context.Context, pageURL string) (bool, error) {
	log := logger.GetLogger()
	item := models.NewSourceItem(pageURL)

	done, err := p.ledger.IsComplete(item.Key)
	if err != nil {
		return false, err
	}
	if done {
		log.WithField("movie", item.Name).Info("Already downloaded, skipped")
		return true, nil
	}

	page, err := p.scraper.ResolvePage(ctx, item.Key)
	if err != nil {
		return false, err
	}

	playlist, err := p.apiClient.GetText(ctx, p.apiClient.PlaylistURL(page.UUID))
	if err != nil {
		return false, models.NewDownloadError(models.ErrNetwork, "Failed to fetch playlist", "Check your network or proxy settings", true, err)
	}
	quality, ref, err := manifest.ResolveQuality(playlist, p.config.Quality)
	if err != nil {
		return false, err
	}
	resolution := strings.Split(ref, "/")[0]
	item.BaseName = item.Name + "_" + quality

	media, err := p.apiClient.GetText(ctx, p.apiClient.VariantURL(page.UUID, ref))
	if err != nil {
		return false, models.NewDownloadError(models.ErrNetwork, "Failed to fetch video playlist", "Check your network or proxy settings", true, err)
	}
	maxIndex, err := manifest.MaxSegmentIndex(media)
	if err != nil {
		return false, err
	}

	log.WithFields(logrus.Fields{
		"movie":    item.Name,
		"quality":  quality,
		"segments": maxIndex + 1,
	}).Info("Playlist resolved")

	item.StagingDir = fsutil.SafeJoin(p.config.OutPath, item.Name)
	if err := fsutil.MakeDirs(item.StagingDir); err != nil {
		return false, models.NewDownloadError(models.ErrFileSystem, "Failed to create movie folder", "Check write permissions for the output directory", false, err)
	}

	coverPath := ""
	if p.config.Cover {
		coverPath = p.saveCover(ctx, item.Name)
	}

	job := downloader.Job{
		VideoID:    page.UUID,
		Resolution: resolution,
		StagingDir: item.StagingDir,
		Total:      maxIndex + 1,
	}
	if _, err := p.coordinator.Download(ctx, job, downloader.Partition(job.Total, p.config.Threads)); err != nil {
		return false, err
	}

	asmJob := assembler.Job{
		StagingDir: item.StagingDir,
		MaxIndex:   maxIndex,
		OutputDir:  p.config.OutPath,
		BaseName:   item.BaseName,
	}
	if p.config.Ffcover {
		asmJob.CoverPath = coverPath
	}
	res, err := p.assembler.Assemble(ctx, asmJob)
	if err != nil {
		return false, err
	}

	if err := p.ledger.MarkComplete(item.Key); err != nil {
		return false, err
	}

	if p.config.Title && page.Title != "" {
		renamed, err := assembler.RenameToTitle(res.OutputPath, page.Title)
		if err != nil {
			log.WithField("movie", item.Name).WithError(err).Warn("Keeping quality name")
		} else {
			log.WithField("output", renamed).Info("Renamed to title")
		}
	}
	return false, nil
}

// saveCover stores the cover beside the outputs and returns its path, or "" when
// it could not be fetched
func (p *Processor) saveCover(ctx context.Context, name string) string {
	log := logger.GetLogger().WithField("movie", name)

	data, err := p.apiClient.GetBytes(ctx, p.apiClient.CoverURL(name), p.config.FetchTimeout())
	if err != nil {
		log.WithError(err).Error("Failed to download the cover")
		return ""
	}

	path := filepath.Join(p.config.OutPath, name+"-cover.jpg")
	f, err := fsutil.WriteFile(path)
	if err != nil {
		log.WithError(err).Error("Failed to save the cover")
		return ""
	}
	_, werr := f.Write(data)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		os.Remove(path)
		log.Error("Failed to save the cover")
		return ""
	}

	log.WithField("size", humanize.Bytes(uint64(len(data)))).Info("Cover saved")
	return path
}

func (p *Processor) cleanStaging() {
	if err := fsutil.RemoveSubdirs(p.config.OutPath); err != nil {
		logger.GetLogger().WithError(err).Warn("Failed to clean staging folders")
	}
}
