package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config is the full environment surface of the daemon. None of these knobs
// change core behaviour; they select which backend answers each adapter call
// and where artifacts land.
type Config struct {
	OpenAIAPIKey string `env:"OPENAI_API_KEY,required,notEmpty"`

	ChatModel   string `env:"PROMETHEUS_CHAT_MODEL" envDefault:"gpt-5-mini"`
	IntentModel string `env:"PROMETHEUS_INTENT_MODEL" envDefault:"gpt-5-nano"`
	VisionModel string `env:"PROMETHEUS_VISION_MODEL" envDefault:"gpt-5-mini"`
	SpeechModel string `env:"PROMETHEUS_SPEECH_MODEL" envDefault:"gpt-4o-mini-tts"`
	Voice       string `env:"PROMETHEUS_VOICE" envDefault:"alloy"`

	WhisperModelPath string `env:"WHISPER_MODEL_PATH" envDefault:"third_party/whisper.cpp/models/ggml-medium.bin"`

	ScreenshotPath string `env:"PROMETHEUS_SCREENSHOT_PATH" envDefault:"screenshot.jpg"`
	ReportPath     string `env:"PROMETHEUS_REPORT_PATH" envDefault:"report.txt"`

	// MaxTurns keeps the system turn plus the most recent N user/assistant
	// pairs when calling the chat provider. 0 replays the full history.
	MaxTurns int `env:"PROMETHEUS_MAX_TURNS" envDefault:"0"`

	ListenAddr string `env:"PROMETHEUS_LISTEN_ADDR" envDefault:"127.0.0.1:8093"`

	IdleDelay time.Duration `env:"PROMETHEUS_IDLE_DELAY" envDefault:"100ms"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.MaxTurns < 0 {
		return nil, fmt.Errorf("PROMETHEUS_MAX_TURNS must be >= 0, got %d", cfg.MaxTurns)
	}
	return cfg, nil
}
