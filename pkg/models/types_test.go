package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// TestSuite for models package
type ModelsTestSuite struct {
	suite.Suite
}

// TestNewSourceItem tests identity derivation from page URLs
func (suite *ModelsTestSuite) TestNewSourceItem() {
	item := NewSourceItem("https://example.com/dm1/sw-950/")

	assert.Equal(suite.T(), "https://example.com/dm1/sw-950", item.Key)
	assert.Equal(suite.T(), "sw-950", item.Name)
	assert.Empty(suite.T(), item.StagingDir)
}

// TestMovieName tests name extraction for several URL shapes
func (suite *ModelsTestSuite) TestMovieName() {
	testCases := []struct {
		url      string
		expected string
	}{
		{"https://example.com/sw-950", "sw-950"},
		{"https://example.com/en/dandy-917?ref=home", "dandy-917"},
		{"sw-950", "sw-950"},
		{"https://example.com/a/b/", "b"},
	}

	for _, tc := range testCases {
		assert.Equal(suite.T(), tc.expected, MovieName(tc.url), "Failed for URL: %s", tc.url)
	}
}

// TestSegmentRange tests range length helpers
func (suite *ModelsTestSuite) TestSegmentRange() {
	assert.Equal(suite.T(), 3, SegmentRange{Start: 3, End: 6}.Len())
	assert.True(suite.T(), SegmentRange{Start: 4, End: 4}.Empty())
	assert.Equal(suite.T(), 0, SegmentRange{Start: 5, End: 2}.Len())
}

// TestDownloadError tests error formatting and unwrapping
func (suite *ModelsTestSuite) TestDownloadError() {
	cause := errors.New("exit status 1")
	err := NewDownloadError(ErrFFmpeg, "FFmpeg execution failed", "Check FFmpeg installation", false, cause)

	assert.Equal(suite.T(), "FFmpeg execution failed: exit status 1", err.Error())
	assert.ErrorIs(suite.T(), err, cause)
	assert.False(suite.T(), err.Retryable)

	bare := NewDownloadError(ErrNotFound, "No video id on page", "", false, nil)
	assert.Equal(suite.T(), "No video id on page", bare.Error())
}

// TestIsType tests type detection through wrapping
func (suite *ModelsTestSuite) TestIsType() {
	err := fmt.Errorf("item failed: %w", NewDownloadError(ErrParse, "bad manifest", "", false, nil))

	assert.True(suite.T(), IsType(err, ErrParse))
	assert.False(suite.T(), IsType(err, ErrNetwork))
	assert.False(suite.T(), IsType(errors.New("plain"), ErrParse))
}

// TestErrorTypeString tests error type names
func (suite *ModelsTestSuite) TestErrorTypeString() {
	assert.Equal(suite.T(), "ffmpeg", ErrFFmpeg.String())
	assert.Equal(suite.T(), "not_found", ErrNotFound.String())
	assert.Equal(suite.T(), "unknown", ErrorType(99).String())
}

// TestValueErrors tests the plain error types
func (suite *ModelsTestSuite) TestValueErrors() {
	assert.Equal(suite.T(), "network error: Not Found (HTTP 404)",
		NetworkError{URL: "https://x", Status: 404, Message: "Not Found"}.Error())
	assert.Equal(suite.T(), "network error: timeout", NetworkError{Message: "timeout"}.Error())
	assert.Equal(suite.T(), "file error: write on /tmp/a: disk full",
		FileError{Path: "/tmp/a", Op: "write", Message: "disk full"}.Error())
	assert.Contains(suite.T(), ConfigError{Field: "retry", Value: 0, Message: "must be positive"}.Error(), "field: retry")
}

// Run the test suite
func TestModelsTestSuite(t *testing.T) {
	suite.Run(t, new(ModelsTestSuite))
}
