package config

// Default returns the baseline configuration before any file overrides.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: "~/media/courses",
			LogDir:     "~/.local/state/lectern",
			SocketPath: "~/.local/state/lectern/lectern.sock",
		},
		Scanner: Scanner{
			IntervalSeconds:  300,
			Extensions:       []string{".mp4"},
			AcceptableCodecs: []string{"h264", "h265"},
		},
		Encoding: Encoding{
			FFmpegBinary:  "ffmpeg",
			FFprobeBinary: "ffprobe",
			TargetCodec:   "libx264",
			Preset:        "fast",
		},
		Queue: Queue{
			Capacity: 5,
		},
		Subtitles: Subtitles{
			Enabled:       false,
			WhisperBinary: "whisper",
			Model:         "base",
			Language:      "",
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
