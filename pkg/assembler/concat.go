package assembler

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"miyuki-dl/pkg/fsutil"
	"miyuki-dl/pkg/logger"
	"miyuki-dl/pkg/models"
)

// Concat joins the raw bytes of every staged segment in index order
type Concat struct{}

// Name returns the strategy name
func (Concat) Name() string {
	return "concat"
}

// Assemble writes segments 0..MaxIndex to the output, skipping missing ones
func (c Concat) Assemble(ctx context.Context, job Job) (*Result, error) {
	log := logger.GetLogger()
	outPath := job.OutputPath()

	out, err := fsutil.WriteFile(outPath)
	if err != nil {
		return nil, models.NewDownloadError(models.ErrFileSystem, "Failed to create output file", "Check the output folder permissions", false, err)
	}

	res := &Result{OutputPath: outPath, Total: job.MaxIndex + 1}
	for i := 0; i <= job.MaxIndex; i++ {
		if err := ctx.Err(); err != nil {
			out.Close()
			os.Remove(outPath)
			return nil, err
		}

		path := job.segmentPath(i)
		copied, err := appendSegment(out, path)
		if err != nil {
			if os.IsNotExist(err) {
				log.WithFields(logrus.Fields{"segment": i, "path": path}).Debug("Segment missing, skipped")
				continue
			}
			if _, isRead := err.(readError); isRead {
				log.WithFields(logrus.Fields{"segment": i, "path": path}).WithError(err).Warn("Segment unreadable, skipped")
				continue
			}
			out.Close()
			os.Remove(outPath)
			return nil, models.NewDownloadError(models.ErrFileSystem, "Failed to write output file", "Check free disk space", false, err)
		}
		res.Saved++
		res.Size += copied
	}

	if err := out.Close(); err != nil {
		os.Remove(outPath)
		return nil, models.NewDownloadError(models.ErrFileSystem, "Failed to write output file", "Check free disk space", false, err)
	}
	if res.Saved == 0 {
		os.Remove(outPath)
		return nil, noSegments(job)
	}

	logResult(c.Name(), res)
	return res, nil
}

type readError struct{ error }

func (e readError) Unwrap() error { return e.error }

// appendSegment copies one staged file to out. Errors reading the segment are
// wrapped in readError; errors writing out are returned as is.
func appendSegment(out io.Writer, path string) (int64, error) {
	in, err := fsutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, err
		}
		return 0, readError{err}
	}
	defer in.Close()

	data, err := io.ReadAll(in)
	if err != nil {
		return 0, readError{err}
	}
	n, err := out.Write(data)
	return int64(n), err
}
