package downloader

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"miyuki-dl/pkg/logger"
	"miyuki-dl/pkg/models"
)

// Coordinator runs one Worker per range and waits for all of them
type Coordinator struct {
	fetcher  *Fetcher
	locator  SegmentLocator
	tracker  *Tracker
	progress io.Writer
}

// NewCoordinator creates a coordinator; a nil progress writer means stderr
func NewCoordinator(fetcher *Fetcher, locator SegmentLocator, progress io.Writer) *Coordinator {
	if progress == nil {
		progress = os.Stderr
	}
	return &Coordinator{
		fetcher:  fetcher,
		locator:  locator,
		tracker:  &Tracker{},
		progress: progress,
	}
}

// Tracker returns the counter shared by the workers
func (c *Coordinator) Tracker() *Tracker {
	return c.tracker
}

// Download fetches every range of job concurrently and returns the number of
// segments written. It returns an error only when ctx is cancelled.
func (c *Coordinator) Download(ctx context.Context, job Job, ranges []models.SegmentRange) (int, error) {
	c.tracker.Reset()
	defer c.tracker.Reset()

	if job.Total > 0 {
		bar := newProgressBar(c.progress, job.Total)
		c.tracker.Observe(func(current int) {
			bar.Set(current)
		})
		defer func() {
			c.tracker.Observe(nil)
			io.WriteString(c.progress, "\n")
		}()
	}

	log := logger.GetLogger()
	log.WithFields(logrus.Fields{
		"video_id": job.VideoID,
		"quality":  job.Resolution,
		"segments": job.Total,
		"workers":  len(ranges),
	}).Info("Downloading segments")

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range ranges {
		r := r
		w := &Worker{
			Fetcher: c.fetcher,
			Locator: c.locator,
			Tracker: c.tracker,
			Job:     job,
		}
		g.Go(func() error {
			return w.Run(gctx, r)
		})
	}
	err := g.Wait()

	saved := c.tracker.Count()
	log.WithFields(logrus.Fields{
		"video_id": job.VideoID,
		"saved":    saved,
		"segments": job.Total,
	}).Info("Segment download finished")

	return saved, err
}
