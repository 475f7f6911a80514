package assembler

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"miyuki-dl/pkg/downloader"
	"miyuki-dl/pkg/fsutil"
	"miyuki-dl/pkg/models"
)

// fakeFFmpeg records its arguments and creates the output file (last argument)
const fakeFFmpeg = `#!/bin/sh
printf '%s\n' "$@" > "$(dirname "$0")/args.txt"
for last; do :; done
printf 'muxed' > "$last"
`

// TestSuite for assembler package
type AssemblerTestSuite struct {
	suite.Suite
	tempDir    string
	stagingDir string
}

// SetupTest creates an output root with a staging directory
func (suite *AssemblerTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
	suite.stagingDir = filepath.Join(suite.tempDir, "sw-950")
	require.NoError(suite.T(), fsutil.MakeDirs(suite.stagingDir))
}

// stage writes segment files for the given indices
func (suite *AssemblerTestSuite) stage(segments map[int]string) {
	for i, content := range segments {
		require.NoError(suite.T(), os.WriteFile(downloader.SegmentPath(suite.stagingDir, i), []byte(content), 0644))
	}
}

func (suite *AssemblerTestSuite) job(maxIndex int) Job {
	return Job{
		StagingDir: suite.stagingDir,
		MaxIndex:   maxIndex,
		OutputDir:  suite.tempDir,
		BaseName:   "sw-950_720p",
	}
}

// TestConcat_WithGap tests index ordered concatenation around a missing segment
func (suite *AssemblerTestSuite) TestConcat_WithGap() {
	suite.stage(map[int]string{0: "AAA", 2: "CCC"})

	res, err := Concat{}.Assemble(context.Background(), suite.job(2))

	require.NoError(suite.T(), err)
	data, err := os.ReadFile(res.OutputPath)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "AAACCC", string(data))
	assert.Equal(suite.T(), filepath.Join(suite.tempDir, "sw-950_720p.mp4"), res.OutputPath)
	assert.Equal(suite.T(), 2, res.Saved)
	assert.Equal(suite.T(), 3, res.Total)
	assert.InDelta(suite.T(), 2.0/3.0, res.Integrity(), 1e-9)
	assert.Equal(suite.T(), int64(6), res.Size)
}

// TestConcat_NoSegments tests that an empty download fails the item
func (suite *AssemblerTestSuite) TestConcat_NoSegments() {
	_, err := Concat{}.Assemble(context.Background(), suite.job(3))

	assert.True(suite.T(), models.IsType(err, models.ErrCorruption))
	assert.NoFileExists(suite.T(), suite.job(3).OutputPath())
}

// TestConcat_BadOutputDir tests output creation failure
func (suite *AssemblerTestSuite) TestConcat_BadOutputDir() {
	suite.stage(map[int]string{0: "AAA"})
	job := suite.job(0)
	job.OutputDir = filepath.Join(suite.tempDir, "missing")

	_, err := Concat{}.Assemble(context.Background(), job)

	assert.True(suite.T(), models.IsType(err, models.ErrFileSystem))
}

// TestFFmpeg_Failure tests that a non-zero exit is fatal for the item
func (suite *AssemblerTestSuite) TestFFmpeg_Failure() {
	if fsutil.IsWindows() {
		suite.T().Skip("requires a POSIX false binary")
	}
	suite.stage(map[int]string{0: "AAA"})

	_, err := FFmpeg{Path: "false"}.Assemble(context.Background(), suite.job(0))

	require.Error(suite.T(), err)
	assert.True(suite.T(), models.IsType(err, models.ErrFFmpeg))
}

// TestFFmpeg_Success tests the list file and the argument contract without cover
func (suite *AssemblerTestSuite) TestFFmpeg_Success() {
	if fsutil.IsWindows() {
		suite.T().Skip("requires a POSIX shell")
	}
	bin := suite.writeFakeFFmpeg()
	suite.stage(map[int]string{0: "AAA", 2: "CCC"})
	job := suite.job(2)

	res, err := FFmpeg{Path: bin}.Assemble(context.Background(), job)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2, res.Saved)
	assert.Equal(suite.T(), 3, res.Total)
	assert.Equal(suite.T(), int64(5), res.Size)

	listPath := filepath.Join(suite.stagingDir, ListFileName)
	list, err := os.ReadFile(listPath)
	require.NoError(suite.T(), err)
	seg0, _ := filepath.Abs(downloader.SegmentPath(suite.stagingDir, 0))
	seg2, _ := filepath.Abs(downloader.SegmentPath(suite.stagingDir, 2))
	assert.Equal(suite.T(), "file '"+seg0+"'\nfile '"+seg2+"'\n", string(list))

	expected := []string{"-loglevel", "error", "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", "-y", job.OutputPath()}
	assert.Equal(suite.T(), expected, suite.readArgs(bin))
}

// TestFFmpeg_WithCover tests the poster frame mapping
func (suite *AssemblerTestSuite) TestFFmpeg_WithCover() {
	if fsutil.IsWindows() {
		suite.T().Skip("requires a POSIX shell")
	}
	bin := suite.writeFakeFFmpeg()
	suite.stage(map[int]string{0: "AAA"})
	cover := filepath.Join(suite.tempDir, "sw-950-cover.jpg")
	require.NoError(suite.T(), os.WriteFile(cover, []byte("jpg"), 0644))
	job := suite.job(0)
	job.CoverPath = cover

	_, err := FFmpeg{Path: bin}.Assemble(context.Background(), job)
	require.NoError(suite.T(), err)

	args := strings.Join(suite.readArgs(bin), " ")
	assert.Contains(suite.T(), args, "-i "+cover+" -map 0 -map 1 -c copy -disposition:v:1 attached_pic")
}

// TestFFmpeg_MissingCover tests that an absent cover falls back to plain copy
func (suite *AssemblerTestSuite) TestFFmpeg_MissingCover() {
	if fsutil.IsWindows() {
		suite.T().Skip("requires a POSIX shell")
	}
	bin := suite.writeFakeFFmpeg()
	suite.stage(map[int]string{0: "AAA"})
	job := suite.job(0)
	job.CoverPath = filepath.Join(suite.tempDir, "nope.jpg")

	_, err := FFmpeg{Path: bin}.Assemble(context.Background(), job)
	require.NoError(suite.T(), err)

	assert.NotContains(suite.T(), suite.readArgs(bin), "attached_pic")
}

// TestFFmpeg_Available tests binary lookup
func (suite *AssemblerTestSuite) TestFFmpeg_Available() {
	assert.False(suite.T(), FFmpeg{Path: "ffmpeg-does-not-exist-miyuki"}.Available())
	if !fsutil.IsWindows() {
		assert.True(suite.T(), FFmpeg{Path: "true"}.Available())
	}
}

// TestParseFFmpegError tests error classification
func (suite *AssemblerTestSuite) TestParseFFmpegError() {
	testCases := []struct {
		stderr   string
		expected models.ErrorType
	}{
		{"No space left on device", models.ErrDiskSpace},
		{"Permission denied", models.ErrFileSystem},
		{"Invalid data found when processing input", models.ErrCorruption},
		{"something else", models.ErrFFmpeg},
	}

	for _, tc := range testCases {
		errType, _, _ := ParseFFmpegError(assert.AnError, tc.stderr)
		assert.Equal(suite.T(), tc.expected, errType, "Failed for stderr: %s", tc.stderr)
	}

	errType, _, _ := ParseFFmpegError(nil, "")
	assert.Equal(suite.T(), models.ErrUnknown, errType)
}

// TestSanitise tests title cleanup
func (suite *AssemblerTestSuite) TestSanitise() {
	assert.Equal(suite.T(), "Miyuki's 1_2 cut_x", Sanitise(" Miyuki's 1/2 cut\\x "))
	assert.Equal(suite.T(), "A &amp; B", Sanitise("A &amp; B"))
	assert.Equal(suite.T(), "&lt;x&gt;", Sanitise("&lt;x&gt;"))
}

// TestRenameToTitle tests renaming and the kept name on failure
func (suite *AssemblerTestSuite) TestRenameToTitle() {
	out := filepath.Join(suite.tempDir, "sw-950_720p.mp4")
	require.NoError(suite.T(), os.WriteFile(out, []byte("x"), 0644))

	renamed, err := RenameToTitle(out, "SW-950 A/B")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), filepath.Join(suite.tempDir, "SW-950 A_B.mp4"), renamed)
	assert.FileExists(suite.T(), renamed)

	kept, err := RenameToTitle(filepath.Join(suite.tempDir, "gone.mp4"), "title")
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), filepath.Join(suite.tempDir, "gone.mp4"), kept)

	kept, err = RenameToTitle(renamed, "   ")
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), renamed, kept)
}

// TestIntegrity_ZeroTotal tests the degenerate ratio
func (suite *AssemblerTestSuite) TestIntegrity_ZeroTotal() {
	assert.Equal(suite.T(), 0.0, (&Result{}).Integrity())
}

func (suite *AssemblerTestSuite) writeFakeFFmpeg() string {
	binDir := filepath.Join(suite.tempDir, "bin")
	require.NoError(suite.T(), fsutil.MakeDirs(binDir))
	bin := filepath.Join(binDir, "ffmpeg")
	require.NoError(suite.T(), os.WriteFile(bin, []byte(fakeFFmpeg), 0755))
	return bin
}

func (suite *AssemblerTestSuite) readArgs(bin string) []string {
	data, err := os.ReadFile(filepath.Join(filepath.Dir(bin), "args.txt"))
	require.NoError(suite.T(), err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

// Run the test suite
func TestAssemblerTestSuite(t *testing.T) {
	suite.Run(t, new(AssemblerTestSuite))
}
