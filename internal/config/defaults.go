package config

const (
	defaultWorkDir                = "~/.local/share/sematube/work"
	defaultOutputDir              = "~/sematube"
	defaultLogDir                 = "~/.local/share/sematube/logs"
	defaultEngine                 = EngineWhisper
	defaultWhisperBinary          = "whisper"
	defaultModelSize              = "base"
	defaultModelCacheSize         = 1
	defaultTranscriptionTimeout   = 3600
	defaultOpenAIBaseURL          = "http://localhost:8080/v1"
	defaultOpenAIModel            = "whisper-1"
	defaultTranslationBaseURL     = "https://lewiskimaru-helloworld.hf.space"
	defaultTranslationTimeout     = 60
	defaultTranslationConcurrency = 4
	defaultMaxLineWidth           = 80
	defaultMaxLines               = 2
	defaultFFmpegBinary           = "ffmpeg"
	defaultFFprobeBinary          = "ffprobe"
	defaultYTDLPBinary            = "yt-dlp"
	defaultDownloadTimeout        = 1800
	defaultMuxTimeout             = 3600
	defaultServerBind             = "127.0.0.1:7490"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Transcription: Transcription{
			Engine:         defaultEngine,
			WhisperBinary:  defaultWhisperBinary,
			DefaultModel:   defaultModelSize,
			ModelCacheSize: defaultModelCacheSize,
			TimeoutSeconds: defaultTranscriptionTimeout,
			OpenAIBaseURL:  defaultOpenAIBaseURL,
			OpenAIModel:    defaultOpenAIModel,
		},
		Translation: Translation{
			BaseURL:        defaultTranslationBaseURL,
			TimeoutSeconds: defaultTranslationTimeout,
			Concurrency:    defaultTranslationConcurrency,
		},
		Captions: Captions{
			MaxLineWidth: defaultMaxLineWidth,
			MaxLines:     defaultMaxLines,
		},
		Media: Media{
			FFmpegBinary:           defaultFFmpegBinary,
			FFprobeBinary:          defaultFFprobeBinary,
			YTDLPBinary:            defaultYTDLPBinary,
			DownloadTimeoutSeconds: defaultDownloadTimeout,
			MuxTimeoutSeconds:      defaultMuxTimeout,
			Mux:                    true,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
