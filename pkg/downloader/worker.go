package downloader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"miyuki-dl/pkg/fsutil"
	"miyuki-dl/pkg/logger"
	"miyuki-dl/pkg/models"
)

// SegmentLocator builds the location of one segment
type SegmentLocator interface {
	SegmentURL(videoID, resolution string, index int) string
}

// Job describes the segments of one item
type Job struct {
	VideoID    string
	Resolution string // quality label, e.g. "720p"
	StagingDir string
	Total      int // maxIndex + 1
}

// SegmentPath returns the staging file of segment i
func SegmentPath(dir string, i int) string {
	return filepath.Join(dir, fmt.Sprintf("video%d.jpeg", i))
}

// Worker downloads every segment of one range into the staging directory
type Worker struct {
	Fetcher *Fetcher
	Locator SegmentLocator
	Tracker *Tracker
	Job     Job
}

// Run fetches r in index order. Unavailable segments and failed writes leave a
// gap; only cancellation of ctx is returned.
func (w *Worker) Run(ctx context.Context, r models.SegmentRange) error {
	for i := r.Start; i < r.End; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		body, ok := w.Fetcher.Fetch(ctx, w.Locator.SegmentURL(w.Job.VideoID, w.Job.Resolution, i))
		if !ok {
			continue
		}

		path := SegmentPath(w.Job.StagingDir, i)
		if err := writeSegment(path, body); err != nil {
			logger.GetLogger().WithFields(logrus.Fields{
				"segment": i,
				"path":    path,
			}).WithError(err).Warn("Failed to write segment")
			continue
		}

		w.Tracker.IncrementAndGet()
	}
	return ctx.Err()
}

func writeSegment(path string, body []byte) error {
	f, err := fsutil.WriteFile(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(body); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}
