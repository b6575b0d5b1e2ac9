package config

const (
	defaultTranscriptsDir  = "~/.local/share/notepipe/transcripts"
	defaultIntermediateDir = "~/.local/share/notepipe/intermediate"
	defaultLogDir          = "~/.local/share/notepipe/logs"
	defaultTempDir         = "~/.local/share/notepipe/temp"

	defaultScanPattern  = "*.md"
	defaultMinWordCount = 100

	defaultGeminiBinary       = "gemini"
	defaultGeminiTimeout      = 300
	defaultGeminiMaxRetries   = 3
	defaultGeminiRetryBase    = 3
	defaultGeminiRetryMax     = 60
	defaultGeminiTemplate     = "default"
	defaultNotebookBaseURL    = "http://localhost:5055"
	defaultNotebookAttempts   = 3
	defaultNotebookRetryDelay = 5
	defaultNotebookTimeout    = 30
	defaultNotebookName       = "Transcripts"

	defaultItemDelaySeconds = 1

	defaultLogLevel  = "info"
	defaultLogFormat = "console"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			TranscriptsDir:  defaultTranscriptsDir,
			IntermediateDir: defaultIntermediateDir,
			LogDir:          defaultLogDir,
			TempDir:         defaultTempDir,
		},
		Discovery: Discovery{
			Pattern:      defaultScanPattern,
			MinWordCount: defaultMinWordCount,
		},
		Gemini: Gemini{
			Binary:           defaultGeminiBinary,
			TimeoutSeconds:   defaultGeminiTimeout,
			MaxRetries:       defaultGeminiMaxRetries,
			RetryBaseSeconds: defaultGeminiRetryBase,
			RetryMaxSeconds:  defaultGeminiRetryMax,
			DefaultTemplate:  defaultGeminiTemplate,
		},
		Notebook: Notebook{
			BaseURL:         defaultNotebookBaseURL,
			MaxAttempts:     defaultNotebookAttempts,
			RetryDelay:      defaultNotebookRetryDelay,
			RequestTimeout:  defaultNotebookTimeout,
			DefaultNotebook: defaultNotebookName,
			EmbedOnCreate:   true,
		},
		Pipeline: Pipeline{
			ItemDelaySeconds: defaultItemDelaySeconds,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
