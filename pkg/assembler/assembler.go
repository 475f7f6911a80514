// Package assembler turns the staged segments of one item into a single file.
package assembler

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"miyuki-dl/pkg/downloader"
	"miyuki-dl/pkg/fsutil"
	"miyuki-dl/pkg/logger"
	"miyuki-dl/pkg/models"
)

// OutputExt is the extension of every assembled file
const OutputExt = ".mp4"

var separatorRegex = regexp.MustCompile(`[\/\\]`)

// Job describes what to assemble and where
type Job struct {
	StagingDir string
	MaxIndex   int
	OutputDir  string
	BaseName   string
	CoverPath  string // embedded as poster frame when set and present
}

// OutputPath returns the file the job produces
func (j Job) OutputPath() string {
	return filepath.Join(j.OutputDir, j.BaseName+OutputExt)
}

func (j Job) segmentPath(i int) string {
	return downloader.SegmentPath(j.StagingDir, i)
}

// Result reports what went into the output
type Result struct {
	OutputPath string
	Saved      int
	Total      int
	Size       int64
}

// Integrity returns Saved/Total
func (r *Result) Integrity() float64 {
	if r.Total <= 0 {
		return 0
	}
	return float64(r.Saved) / float64(r.Total)
}

// Assembler is one reassembly strategy
type Assembler interface {
	Name() string
	Assemble(ctx context.Context, job Job) (*Result, error)
}

// Sanitise turns an already decoded page title into a usable file name
func Sanitise(title string) string {
	title = separatorRegex.ReplaceAllString(title, "_")
	return strings.TrimSpace(title)
}

// RenameToTitle moves the output to "<sanitised title>.mp4" in the same
// directory. The original path is returned when the title is unusable or the
// rename fails.
func RenameToTitle(outputPath, title string) (string, error) {
	name := Sanitise(title)
	if name == "" {
		return outputPath, models.FileError{Path: outputPath, Op: "rename", Message: "empty title"}
	}

	target := filepath.Join(filepath.Dir(outputPath), name+OutputExt)
	if fsutil.PathsEqual(target, outputPath) {
		return outputPath, nil
	}
	if err := os.Rename(outputPath, target); err != nil {
		return outputPath, models.FileError{Path: outputPath, Op: "rename", Message: err.Error()}
	}
	return target, nil
}

// presentSegments lists the staged indices in order
func presentSegments(job Job) []int {
	var present []int
	for i := 0; i <= job.MaxIndex; i++ {
		if ok, _ := fsutil.FileExists(job.segmentPath(i)); ok {
			present = append(present, i)
		}
	}
	return present
}

func logResult(strategy string, res *Result) {
	logger.GetLogger().WithFields(logrus.Fields{
		"strategy":  strategy,
		"output":    res.OutputPath,
		"total":     res.Total,
		"saved":     res.Saved,
		"size":      humanize.Bytes(uint64(res.Size)),
		"integrity": humanize.FtoaWithDigits(res.Integrity()*100, 2) + "%",
	}).Info("Save completed")
}

func fileSize(path string) int64 {
	if st, err := os.Stat(path); err == nil {
		return st.Size()
	}
	return 0
}

func noSegments(job Job) error {
	return models.NewDownloadError(models.ErrCorruption, "No segment was downloaded for "+job.BaseName,
		"Check your network or proxy and try again", true, nil)
}
