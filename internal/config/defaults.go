package config

const (
	defaultConfigPath  = "~/.config/filer/config.toml"
	projectConfigName  = "filer.toml"
	defaultIncomingDir = "~/filer/incoming"
	defaultDestDir     = "~/filer/sorted"
	defaultStateDir    = "~/.local/state/filer"
	defaultLogDir      = "~/.local/state/filer/logs"

	defaultMaxDepth            = 3
	defaultSimilarityThreshold = 0.65

	// Classifier backends.
	BackendOpenRouter = "openrouter"
	BackendOpenAI     = "openai"
	BackendGemini     = "gemini"
	BackendProcess    = "process"

	defaultBackend       = BackendOpenRouter
	defaultBatchSize     = 5
	defaultBatchDelayMS  = 1000
	defaultBucket        = "未分类"
	defaultMaxKnownDirs  = 500
	defaultLLMTitle      = "filer"
	defaultLLMReferer    = "https://github.com/filer/filer"
	defaultLLMTimeoutSec = 60

	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultOpenRouterModel   = "google/gemini-2.5-flash"
	defaultOpenAIModel       = "gpt-4o-mini"
	defaultGeminiModel       = "gemini-2.5-flash"

	defaultMaxRetries       = 5
	defaultRetryBaseDelayMS = 200

	defaultExiftoolBinary   = "exiftool"
	defaultDescribeMaxLen   = 200
	defaultDescribeParallel = 4

	defaultWatchDebounceSeconds = 5

	defaultLogFormat     = "console"
	defaultLogLevel      = "info"
	defaultRetentionDays = 30
)

var defaultIgnorePatterns = []string{"*.part", "*.crdownload", "*.tmp", "~$*"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			IncomingDir:    defaultIncomingDir,
			DestinationDir: defaultDestDir,
			LogDir:         defaultLogDir,
			StateDir:       defaultStateDir,
		},
		Scan: Scan{
			MaxDepth:       defaultMaxDepth,
			IgnoreHidden:   true,
			IgnorePatterns: append([]string(nil), defaultIgnorePatterns...),
		},
		Matching: Matching{
			SimilarityThreshold: defaultSimilarityThreshold,
		},
		Classifier: Classifier{
			Backend:       defaultBackend,
			BatchSize:     defaultBatchSize,
			BatchDelayMS:  defaultBatchDelayMS,
			DefaultBucket: defaultBucket,
			MaxKnownDirs:  defaultMaxKnownDirs,
		},
		LLM: LLM{
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSec,
		},
		Mover: Mover{
			MaxRetries:       defaultMaxRetries,
			RetryBaseDelayMS: defaultRetryBaseDelayMS,
		},
		Describe: Describe{
			Enabled:        true,
			ExiftoolBinary: defaultExiftoolBinary,
			MaxLength:      defaultDescribeMaxLen,
			Concurrency:    defaultDescribeParallel,
		},
		Watch: Watch{
			DebounceSeconds: defaultWatchDebounceSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultRetentionDays,
		},
	}
}
