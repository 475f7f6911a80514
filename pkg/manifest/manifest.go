// Package manifest parses the host's HLS playlists and picks the variant to download.
//
// Host manifest contract (v1): the master playlist announces one
// #EXT-X-STREAM-INF per rendition carrying RESOLUTION=<w>x<h>, followed by a
// relative reference of the form "<w>x<h>/video.m3u8" or "<h>p/video.m3u8",
// renditions listed from lowest to highest. Each video.m3u8 lists segments named
// video<i>.jpeg numbered from 0 and is terminated by #EXT-X-ENDLIST.
package manifest

import (
	"bufio"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/grafov/m3u8"

	"miyuki-dl/pkg/models"
)

const variantSuffix = "/video.m3u8"

var digitsRegex = regexp.MustCompile(`\d+`)

// Variant is one rendition announced by the master playlist
type Variant struct {
	Width     int
	Height    int
	Bandwidth uint32
	URI       string
}

// Manifest is the structured form of a master playlist
type Manifest struct {
	Variants []Variant
}

// Heights returns variant heights in announcement order
func (m *Manifest) Heights() []int {
	heights := make([]int, 0, len(m.Variants))
	for _, v := range m.Variants {
		heights = append(heights, v.Height)
	}
	return heights
}

// ParseMaster decodes a master playlist, keeping only variants that announce a resolution
func ParseMaster(text string) (*Manifest, error) {
	playlist, listType, err := m3u8.DecodeFrom(strings.NewReader(text), false)
	if err != nil {
		return nil, err
	}
	if listType != m3u8.MASTER {
		return nil, fmt.Errorf("not a master playlist")
	}
	master, ok := playlist.(*m3u8.MasterPlaylist)
	if !ok {
		return nil, fmt.Errorf("not a master playlist")
	}

	manifest := &Manifest{}
	for _, v := range master.Variants {
		if v == nil {
			continue
		}
		width, height, ok := parseResolution(v.Resolution)
		if !ok {
			continue
		}
		manifest.Variants = append(manifest.Variants, Variant{
			Width:     width,
			Height:    height,
			Bandwidth: v.Bandwidth,
			URI:       v.URI,
		})
	}
	return manifest, nil
}

// ResolveQuality picks the sub-manifest reference and its quality label.
// A quality <= 0 selects the last announced variant. Malformed manifests fall
// back to the last non-blank line; only a manifest without any line is an error.
func ResolveQuality(text string, quality int) (string, string, error) {
	manifest, err := ParseMaster(text)
	if err != nil || len(manifest.Variants) == 0 {
		return fallback(text)
	}

	best := manifest.Variants[len(manifest.Variants)-1]
	if quality <= 0 {
		return bestQuality(text, best)
	}

	closest := FindClosest(manifest.Heights(), quality)
	width := 0
	for _, v := range manifest.Variants {
		if v.Height == closest {
			width = v.Width
		}
	}

	label := qualityLabel(closest)
	byWidth := fmt.Sprintf("%dx%d%s", width, closest, variantSuffix)
	if strings.Contains(text, byWidth) {
		return label, byWidth, nil
	}
	byHeight := fmt.Sprintf("%dp%s", closest, variantSuffix)
	if strings.Contains(text, byHeight) {
		return label, byHeight, nil
	}
	return bestQuality(text, best)
}

// FindClosest returns the value nearest to target; the first one wins ties
func FindClosest(values []int, target int) int {
	if len(values) == 0 {
		return 0
	}
	closest := values[0]
	minDiff := abs(values[0] - target)
	for _, v := range values {
		if diff := abs(v - target); diff < minDiff {
			minDiff = diff
			closest = v
		}
	}
	return closest
}

// LastNonBlankLine returns the last line holding anything but whitespace
func LastNonBlankLine(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line, true
		}
	}
	return "", false
}

// ParseMedia returns the segment references of a media playlist in order
func ParseMedia(text string) ([]string, error) {
	playlist, listType, err := m3u8.DecodeFrom(strings.NewReader(text), false)
	if err != nil {
		return nil, err
	}
	media, ok := playlist.(*m3u8.MediaPlaylist)
	if listType != m3u8.MEDIA || !ok {
		return nil, fmt.Errorf("not a media playlist")
	}

	var uris []string
	for _, seg := range media.Segments {
		if seg == nil {
			break
		}
		uris = append(uris, seg.URI)
	}
	return uris, nil
}

// MaxSegmentIndex returns the number carried by the last segment reference
func MaxSegmentIndex(text string) (int, error) {
	var last string
	if uris, err := ParseMedia(text); err == nil && len(uris) > 0 {
		last = uris[len(uris)-1]
	} else {
		last = lastSegmentLine(text)
	}
	if last == "" {
		return 0, models.NewDownloadError(models.ErrParse, "No segment reference in video playlist", "The video may have been removed", false, nil)
	}

	matches := digitsRegex.FindAllString(path.Base(last), -1)
	if len(matches) == 0 {
		return 0, models.NewDownloadError(models.ErrParse, "Segment reference carries no index: "+last, "The host may have changed its manifest layout", false, nil)
	}
	index, err := strconv.Atoi(matches[len(matches)-1])
	if err != nil {
		return 0, models.NewDownloadError(models.ErrParse, "Invalid segment index", "", false, err)
	}
	return index, nil
}

func bestQuality(text string, best Variant) (string, string, error) {
	ref, ok := LastNonBlankLine(text)
	if !ok {
		return fallback(text)
	}
	return qualityLabel(best.Height), ref, nil
}

func fallback(text string) (string, string, error) {
	ref, ok := LastNonBlankLine(text)
	if !ok {
		return "", "", models.NewDownloadError(models.ErrParse, "Playlist holds no sub-manifest reference", "The video may have been removed", false, nil)
	}
	return strings.Split(ref, "/")[0], ref, nil
}

func lastSegmentLine(text string) string {
	var last string
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			last = line
		}
	}
	return last
}

func parseResolution(res string) (int, int, bool) {
	w, h, found := strings.Cut(strings.ToLower(res), "x")
	if !found {
		return 0, 0, false
	}
	width, err := strconv.Atoi(w)
	if err != nil {
		return 0, 0, false
	}
	height, err := strconv.Atoi(h)
	if err != nil {
		return 0, 0, false
	}
	return width, height, true
}

func qualityLabel(height int) string {
	return strconv.Itoa(height) + "p"
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
