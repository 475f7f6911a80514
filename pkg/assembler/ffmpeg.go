package assembler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"miyuki-dl/pkg/fsutil"
	"miyuki-dl/pkg/logger"
	"miyuki-dl/pkg/models"
)

// ListFileName is the concat list written into the staging directory
const ListFileName = "ffmpeg_input_miyuki.txt"

// FFmpeg concatenates the staged segments with an external ffmpeg binary
// without re-encoding
type FFmpeg struct {
	Path string
}

// Name returns the strategy name
func (FFmpeg) Name() string {
	return "ffmpeg"
}

// Available reports whether the configured binary can be found
func (f FFmpeg) Available() bool {
	_, err := exec.LookPath(f.Path)
	return err == nil
}

// Assemble writes the concat list and runs ffmpeg. A non-zero exit fails the job.
func (f FFmpeg) Assemble(ctx context.Context, job Job) (*Result, error) {
	log := logger.GetLogger()

	present := presentSegments(job)
	res := &Result{OutputPath: job.OutputPath(), Saved: len(present), Total: job.MaxIndex + 1}
	log.WithFields(logrus.Fields{
		"total":      res.Total,
		"downloaded": res.Saved,
	}).Info("Concat list prepared")
	if res.Saved == 0 {
		return nil, noSegments(job)
	}

	listPath := filepath.Join(job.StagingDir, ListFileName)
	if err := writeConcatList(listPath, job, present); err != nil {
		return nil, models.NewDownloadError(models.ErrFileSystem, "Failed to write concat list", "Check the output folder permissions", false, err)
	}

	withCover := false
	if job.CoverPath != "" {
		withCover, _ = fsutil.FileExists(job.CoverPath)
	}
	args := ffmpegArgs(listPath, job.CoverPath, withCover, res.OutputPath)

	var errBuffer bytes.Buffer
	cmd := exec.CommandContext(ctx, f.Path, args...)
	cmd.Stderr = &errBuffer

	log.WithField("cover", withCover).Info("FFmpeg executing...")
	if err := cmd.Run(); err != nil {
		stderr := errBuffer.String()
		errType, msg, guide := ParseFFmpegError(err, stderr)
		if stderr != "" {
			msg = fmt.Sprintf("%s: %s", msg, strings.TrimSpace(stderr))
		}
		return nil, models.NewDownloadError(errType, msg, guide, false, err)
	}
	log.Info("FFmpeg execution completed.")

	res.Size = fileSize(res.OutputPath)
	logResult(f.Name(), res)
	return res, nil
}

func ffmpegArgs(listPath, coverPath string, withCover bool, outPath string) []string {
	args := []string{"-loglevel", "error", "-f", "concat", "-safe", "0", "-i", listPath}
	if withCover {
		args = append(args,
			"-i", coverPath,
			"-map", "0", "-map", "1",
			"-c", "copy",
			"-disposition:v:1", "attached_pic",
		)
	} else {
		args = append(args, "-c", "copy")
	}
	return append(args, "-y", outPath)
}

// writeConcatList writes one "file '<abs path>'" line per present segment
func writeConcatList(listPath string, job Job, present []int) error {
	f, err := fsutil.WriteFile(listPath)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	for _, i := range present {
		path, err := filepath.Abs(job.segmentPath(i))
		if err != nil {
			f.Close()
			return err
		}
		fmt.Fprintf(&buf, "file '%s'\n", strings.ReplaceAll(path, "'", `'\''`))
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		os.Remove(listPath)
		return err
	}
	return f.Close()
}

// ParseFFmpegError analyzes FFmpeg error output for actionable feedback
func ParseFFmpegError(err error, stderr string) (models.ErrorType, string, string) {
	if err == nil {
		return models.ErrUnknown, "No error", ""
	}

	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return models.ErrFFmpeg, "FFmpeg executable not found", "Install FFmpeg and ensure it's in your PATH"
	}

	if strings.Contains(stderr, "Permission denied") {
		return models.ErrFileSystem, "Permission denied accessing file", "Check file permissions and try again"
	}

	if strings.Contains(stderr, "No space left on device") {
		return models.ErrDiskSpace, "Disk full during processing", "Free up disk space and try again"
	}

	if strings.Contains(stderr, "Invalid data found") || strings.Contains(stderr, "corrupt") {
		return models.ErrCorruption, "Segments appear corrupted", "Try downloading the movie again"
	}

	return models.ErrFFmpeg, "FFmpeg execution failed", "Check FFmpeg installation and file integrity"
}
