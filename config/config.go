package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the application's configuration
type Config struct {
	Port                int           `mapstructure:"PORT"`
	LogLevel            string        `mapstructure:"LOG_LEVEL"`
	GroqAPIKey          string        `mapstructure:"GROQ_API_KEY"`
	GroqModel           string        `mapstructure:"GROQ_MODEL"`
	GroqChatURL         string        `mapstructure:"GROQ_CHAT_URL"`
	Temperature         float64       `mapstructure:"TEMPERATURE"`
	MaxCompletionTokens int           `mapstructure:"MAX_COMPLETION_TOKENS"`
	RetrieveK           int           `mapstructure:"RETRIEVE_K"`
	RetrieveCacheSize   int           `mapstructure:"RETRIEVE_CACHE_SIZE"`
	KnowledgePath       string        `mapstructure:"KNOWLEDGE_PATH"`
	StreamHardTimeout   time.Duration `mapstructure:"STREAM_HARD_TIMEOUT"`
	KeepAliveInterval   time.Duration `mapstructure:"KEEP_ALIVE_INTERVAL"`
	ChatRequestTimeout  time.Duration `mapstructure:"CHAT_REQUEST_TIMEOUT"`
	AllowedOrigins      []string      `mapstructure:"ALLOWED_ORIGINS"`
	RateLimitPerMinute  int           `mapstructure:"RATE_LIMIT_PER_MIN"`
	RateLimitBurstSize  int           `mapstructure:"RATE_LIMIT_BURST_SIZE"`
}

func Load(logger *zap.Logger) *Config {
	var config Config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("PORT", 8787)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("GROQ_API_KEY", "")
	viper.SetDefault("GROQ_MODEL", "llama-3.3-70b-versatile")
	viper.SetDefault("GROQ_CHAT_URL", "https://api.groq.com/openai/v1/chat/completions")
	viper.SetDefault("TEMPERATURE", 0.2)
	viper.SetDefault("MAX_COMPLETION_TOKENS", 600)
	viper.SetDefault("RETRIEVE_K", 8)
	viper.SetDefault("RETRIEVE_CACHE_SIZE", 256)
	viper.SetDefault("KNOWLEDGE_PATH", "")
	viper.SetDefault("STREAM_HARD_TIMEOUT", 60)
	viper.SetDefault("KEEP_ALIVE_INTERVAL", 15)
	viper.SetDefault("CHAT_REQUEST_TIMEOUT", 90)
	viper.SetDefault("ALLOWED_ORIGINS", []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"https://portfolio-nicoespins-projects.vercel.app",
	})
	viper.SetDefault("RATE_LIMIT_PER_MIN", 20)
	viper.SetDefault("RATE_LIMIT_BURST_SIZE", 5)

	if err := viper.ReadInConfig(); err != nil {
		if logger != nil {
			logger.Warn("Could not read config file, using defaults/env vars", zap.Error(err))
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		// Config unmarshaling is critical - fail fast during bootstrap
		if logger != nil {
			logger.Fatal("Unable to decode config into struct", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "FATAL: Unable to decode config into struct: %v\n", err)
			os.Exit(1)
		}
	}

	// The process refuses to start without an upstream credential.
	if strings.TrimSpace(config.GroqAPIKey) == "" {
		if logger != nil {
			logger.Fatal("Missing GROQ_API_KEY in environment")
		} else {
			fmt.Fprintln(os.Stderr, "FATAL: Missing GROQ_API_KEY in environment")
			os.Exit(1)
		}
	}

	// Convert seconds to proper time.Duration
	config.StreamHardTimeout = config.StreamHardTimeout * time.Second
	config.KeepAliveInterval = config.KeepAliveInterval * time.Second
	config.ChatRequestTimeout = config.ChatRequestTimeout * time.Second

	return &config
}
