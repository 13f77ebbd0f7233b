package cmd

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

type Config struct {
	JobDescription string    `mapstructure:"job-description" json:"job-description" validate:"required"`
	Resumes        []string  `mapstructure:"resumes" json:"resumes" validate:"required,min=1,dive,required"`
	Export         string    `mapstructure:"export" json:"export,omitempty"`
	OutputDir      string    `mapstructure:"output-dir" json:"output-dir"`
	AI             *AIConfig `mapstructure:"ai" json:"ai" validate:"required"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider" json:"provider" validate:"omitempty,oneof=gemini"`
	Timeout  time.Duration `mapstructure:"timeout" json:"timeout" validate:"gte=0"`
	Gemini   *GeminiConfig `mapstructure:"gemini" json:"gemini" validate:"required"`
}

type GeminiConfig struct {
	APIKey            string   `mapstructure:"api-key" json:"-"`
	APIKeyFile        string   `mapstructure:"api-key-file" json:"api-key-file,omitempty"`
	Model             string   `mapstructure:"model" json:"model"`
	Temperature       *float32 `mapstructure:"temperature" json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	MaxRetries        int      `mapstructure:"max-retries" json:"max-retries" validate:"gte=0,lte=10"`
	MaxLogLength      int      `mapstructure:"max-log-length" json:"max-log-length" validate:"gte=0"`
	RequestsPerMinute int      `mapstructure:"requests-per-minute" json:"requests-per-minute" validate:"gte=0"`
}

func setDefaults() {
	viper.SetDefault("output-dir", ".")
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.timeout", "60s")
	viper.SetDefault("ai.gemini.model", "gemini-2.5-pro")
	viper.SetDefault("ai.gemini.max-retries", 2)
	viper.SetDefault("ai.gemini.max-log-length", 200)
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return config, err
	}

	return config, nil
}

func validateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("config is required")
	}

	if err := validator.New().Struct(config); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
