package config

const (
	defaultOutputDir  = "~/clipforge"
	defaultScratchDir = "~/.local/share/clipforge/scratch"
	defaultLogDir     = "~/.local/share/clipforge/logs"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultThreads = 5
	maxThreads     = 20

	defaultProbeTimeoutSeconds  = 30
	defaultCopyTimeoutSeconds   = 600
	defaultEncodeTimeoutSeconds = 3600
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:  defaultOutputDir,
			ScratchDir: defaultScratchDir,
			LogDir:     defaultLogDir,
		},
		Tools: Tools{
			FFmpeg:  "ffmpeg",
			FFprobe: "ffprobe",
		},
		Processing: Processing{
			Threads:              defaultThreads,
			ProbeTimeoutSeconds:  defaultProbeTimeoutSeconds,
			CopyTimeoutSeconds:   defaultCopyTimeoutSeconds,
			EncodeTimeoutSeconds: defaultEncodeTimeoutSeconds,
			TwoPass:              false,
			SampleMemory:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
