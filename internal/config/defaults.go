package config

const (
	// ProviderGemini selects the Google Gemini API backend.
	ProviderGemini = "gemini"
	// ProviderOpenRouter selects the OpenAI-compatible OpenRouter backend.
	ProviderOpenRouter = "openrouter"

	defaultConfigPath         = "~/.config/reelsub/config.toml"
	defaultStateDir           = "~/.local/share/reelsub"
	defaultGeminiModel        = "gemini-2.5-flash"
	defaultOpenRouterBaseURL  = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel    = "google/gemini-2.5-flash"
	defaultReferer            = "https://github.com/reelsub/reelsub"
	defaultTitle              = "reelsub"
	defaultTimeoutSeconds     = 120
	defaultChunkSize          = 60
	defaultPaceDelayMS        = 1000
	defaultMaxOutputTokens    = 8192
	defaultMaxCandidates      = 3
	defaultRateLimitRetries   = 2
	defaultRetryBaseMS        = 2000
	defaultRetryMaxMS         = 30000
	defaultAPIBind            = "127.0.0.1:7490"
	defaultRateLimitPerMinute = 30
	defaultRateLimitBurst     = 5
	defaultMaxRequestBytes    = 8 << 20
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultNtfyTimeoutSeconds = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Provider: Provider{
			Name:           ProviderGemini,
			DefaultModel:   defaultGeminiModel,
			TimeoutSeconds: defaultTimeoutSeconds,
			Referer:        defaultReferer,
			Title:          defaultTitle,
		},
		Translation: Translation{
			ChunkSize:        defaultChunkSize,
			PaceDelayMS:      defaultPaceDelayMS,
			MaxOutputTokens:  defaultMaxOutputTokens,
			MaxCandidates:    defaultMaxCandidates,
			RateLimitRetries: defaultRateLimitRetries,
			RetryBaseMS:      defaultRetryBaseMS,
			RetryMaxMS:       defaultRetryMaxMS,
			Languages:        []string{"en:my", "ko:my", "zh:my", "ko:en", "zh:en"},
		},
		Server: Server{
			Bind:               defaultAPIBind,
			StateDir:           defaultStateDir,
			RateLimitPerMinute: defaultRateLimitPerMinute,
			RateLimitBurst:     defaultRateLimitBurst,
			MaxRequestBytes:    defaultMaxRequestBytes,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
			OnSuccess:             true,
		},
	}
}
