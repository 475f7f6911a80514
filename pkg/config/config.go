package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alexflint/go-arg"

	"miyuki-dl/pkg/fsutil"
	"miyuki-dl/pkg/models"
)

// ErrHelp is returned by ParseCfg after printing usage for -h/--help
var ErrHelp = arg.ErrHelp

// Config represents the application configuration
type Config struct {
	OutPath         string `json:"outPath"`
	RecordFile      string `json:"recordFile"`
	LogFile         string `json:"logFile"`
	FfmpegPath      string `json:"ffmpegPath"`
	UseFfmpegEnvVar bool   `json:"useFfmpegEnvVar"`
	Threads         int    `json:"threads"`
	Retry           int    `json:"retry"`
	Delay           int    `json:"delay"`
	Timeout         int    `json:"timeout"`
	Quality         int    `json:"quality"`
	Proxy           string `json:"proxy"`
	Insecure        bool   `json:"insecure"`

	// Per-run options, command line only
	Urls    []string `json:"-"`
	File    string   `json:"-"`
	Plist   string   `json:"-"`
	Limit   int      `json:"-"`
	Search  string   `json:"-"`
	Ffmpeg  bool     `json:"-"`
	Cover   bool     `json:"-"`
	Ffcover bool     `json:"-"` // cover as poster frame, implies Ffmpeg and Cover
	Noban   bool     `json:"-"`
	Title   bool     `json:"-"`
	Debug   bool     `json:"-"`
}

// Args represents command line arguments
type Args struct {
	Urls    []string `arg:"--urls" help:"Movie URLs, separate multiple URLs with spaces"`
	File    string   `arg:"--file" help:"File with one movie URL per line"`
	Plist   string   `arg:"--plist" help:"Public playlist URL"`
	Limit   *int     `arg:"--limit" help:"Maximum number of movies taken from the playlist"`
	Search  string   `arg:"--search" help:"Movie serial number"`
	Proxy   string   `arg:"--proxy" help:"HTTP(S) proxy, e.g. localhost:7890"`
	Ffmpeg  bool     `arg:"--ffmpeg" help:"Use ffmpeg to assemble the video (recommended)"`
	Cover   bool     `arg:"--cover" help:"Download the video cover"`
	Ffcover bool     `arg:"--ffcover" help:"Set the cover as the video preview (ffmpeg required)"`
	Noban   bool     `arg:"--noban" help:"Do not display the banner"`
	Title   bool     `arg:"--title" help:"Use the full title as the movie file name"`
	Quality *int     `arg:"--quality" help:"Preferred video height, e.g. 720"`
	Retry   *int     `arg:"--retry" help:"Attempts per segment"`
	Delay   *int     `arg:"--delay" help:"Seconds between attempts"`
	Timeout *int     `arg:"--timeout" help:"Seconds per attempt"`
	Threads *int     `arg:"--threads" help:"Concurrent segment workers"`
	OutPath string   `arg:"-o,--output" help:"Output directory"`
	Config  string   `arg:"--config" help:"Path of the JSON config file"`
	Debug   bool     `arg:"--debug" help:"Verbose logging"`
}

// Description is shown at the top of the usage text
func (Args) Description() string {
	return "Download movies from MissAV as segmented HLS and assemble them into mp4 files."
}

// ParseCfg merges the optional config file with the command line arguments in
// argv (without the program name) and validates the result
func ParseCfg(argv []string) (*Config, error) {
	args, err := parseArgs(argv)
	if err != nil {
		return nil, err
	}

	configPath := args.Config
	if configPath == "" {
		configPath = DefaultConfigFile
	}
	cfg, err := readConfig(configPath, args.Config != "")
	if err != nil {
		return nil, err
	}

	if err := mergeArgs(cfg, args); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	if cfg.File != "" {
		lines, err := readURLFile(cfg.File)
		if err != nil {
			return nil, err
		}
		cfg.Urls = lines
	}
	cfg.Urls = processUrls(cfg.Urls)

	if cfg.FfmpegPath == "" {
		if cfg.UseFfmpegEnvVar || fsutil.IsWindows() {
			cfg.FfmpegPath = FfmpegEnvName
		} else {
			cfg.FfmpegPath = FfmpegLocalName
		}
	}

	return cfg, nil
}

// RetryDelay returns the pause between segment attempts
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Delay) * time.Second
}

// FetchTimeout returns the bound on one segment attempt
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func defaultConfig() *Config {
	return &Config{
		OutPath:         DefaultOutPath,
		RecordFile:      DefaultRecordFile,
		LogFile:         DefaultLogFile,
		UseFfmpegEnvVar: true,
		Threads:         runtime.NumCPU(),
		Retry:           DefaultRetry,
		Delay:           DefaultDelay,
		Timeout:         DefaultTimeout,
		Insecure:        true,
	}
}

// readConfig overlays the JSON file on the defaults. A missing file is only an
// error when it was requested explicitly.
func readConfig(path string, required bool) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return cfg, nil
		}
		return nil, models.ConfigError{Field: "config", Value: path, Message: err.Error()}
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, models.ConfigError{Field: "config", Value: path, Message: err.Error()}
	}
	return cfg, nil
}

// parseArgs parses command line arguments
func parseArgs(argv []string) (*Args, error) {
	var args Args
	p, err := arg.NewParser(arg.Config{Program: "miyuki"}, &args)
	if err != nil {
		return nil, err
	}

	err = p.Parse(argv)
	if errors.Is(err, arg.ErrHelp) {
		p.WriteHelp(os.Stdout)
		return nil, ErrHelp
	}
	if err != nil {
		return nil, models.ConfigError{Field: "args", Value: strings.Join(argv, " "), Message: err.Error()}
	}
	return &args, nil
}

func mergeArgs(cfg *Config, args *Args) error {
	positives := []struct {
		name  string
		value *int
		dst   *int
	}{
		{"limit", args.Limit, &cfg.Limit},
		{"quality", args.Quality, &cfg.Quality},
		{"retry", args.Retry, &cfg.Retry},
		{"delay", args.Delay, &cfg.Delay},
		{"timeout", args.Timeout, &cfg.Timeout},
		{"threads", args.Threads, &cfg.Threads},
	}
	for _, p := range positives {
		if p.value == nil {
			continue
		}
		if *p.value <= 0 {
			return models.ConfigError{Field: p.name, Value: fmt.Sprint(*p.value), Message: "accepts only positive integers"}
		}
		*p.dst = *p.value
	}

	cfg.Urls = args.Urls
	cfg.File = args.File
	cfg.Plist = args.Plist
	cfg.Search = args.Search
	cfg.Ffmpeg = args.Ffmpeg
	cfg.Cover = args.Cover
	cfg.Ffcover = args.Ffcover
	cfg.Noban = args.Noban
	cfg.Title = args.Title
	cfg.Debug = args.Debug
	if args.Proxy != "" {
		cfg.Proxy = args.Proxy
	}
	if args.OutPath != "" {
		cfg.OutPath = args.OutPath
	}

	if cfg.Ffcover {
		cfg.Ffmpeg = true
		cfg.Cover = true
	}
	return nil
}

func validate(cfg *Config) error {
	sources := 0
	for _, set := range []bool{len(cfg.Urls) > 0, cfg.File != "", cfg.Plist != "", cfg.Search != ""} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return models.ConfigError{Field: "source", Message: "exactly one of --urls, --file, --plist and --search must be specified"}
	}

	// config.json values bypass mergeArgs
	for name, v := range map[string]int{"retry": cfg.Retry, "delay": cfg.Delay, "timeout": cfg.Timeout, "threads": cfg.Threads} {
		if v <= 0 {
			return models.ConfigError{Field: name, Value: fmt.Sprint(v), Message: "accepts only positive integers"}
		}
	}
	if cfg.Quality < 0 {
		return models.ConfigError{Field: "quality", Value: fmt.Sprint(cfg.Quality), Message: "accepts only positive integers"}
	}
	if strings.TrimSpace(cfg.OutPath) == "" {
		return models.ConfigError{Field: "outPath", Message: "must not be empty"}
	}
	return nil
}

// readURLFile returns the URLs of a text file, one per line
func readURLFile(path string) ([]string, error) {
	exists, err := fsutil.FileExists(path)
	if err != nil || !exists {
		return nil, models.ConfigError{Field: "file", Value: path, Message: "accepts only a valid file path"}
	}

	lines, err := fsutil.ReadTxtFile(path)
	if err != nil {
		return nil, models.ConfigError{Field: "file", Value: path, Message: err.Error()}
	}
	if len(lines) == 0 {
		return nil, models.ConfigError{Field: "file", Value: path, Message: "file is empty"}
	}
	for _, line := range lines {
		if !utf8.ValidString(line) {
			return nil, models.ConfigError{Field: "file", Value: path, Message: "file is not UTF-8 text"}
		}
	}
	return lines, nil
}

// processUrls trims, de-duplicates and strips the trailing slash of each URL
func processUrls(urls []string) []string {
	var processed []string
	for _, url := range urls {
		url = strings.TrimSuffix(strings.TrimSpace(url), "/")
		if url == "" || contains(processed, url) {
			continue
		}
		processed = append(processed, url)
	}
	return processed
}

// contains checks if a slice contains a string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
