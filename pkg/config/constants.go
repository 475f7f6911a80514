package config

const (
	// Files and folders
	DefaultConfigFile = "config.json"
	DefaultOutPath    = "movies_folder_miyuki"
	DefaultRecordFile = "downloaded_urls_miyuki.txt"
	DefaultLogFile    = "miyuki.log"

	// Segment fetch settings
	DefaultRetry   = 5  // attempts per segment
	DefaultDelay   = 2  // seconds between attempts
	DefaultTimeout = 10 // seconds per attempt

	// External tool
	FfmpegEnvName   = "ffmpeg"
	FfmpegLocalName = "./ffmpeg"
)
