package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	PoolPersuasive = "persuasive"
	PoolNeutral    = "neutral"
)

// DefaultPath is the experiment file read when no --config flag is given
const DefaultPath = "thinkchat.yaml"

// Config holds application configuration
type Config struct {
	// Experiment constants
	RequiredQuestion string   `yaml:"required_question"`
	ThinkingEnabled  bool     `yaml:"thinking_enabled"`
	ThinkingTime     float64  `yaml:"thinking_time"` // seconds
	DisplayTime      float64  `yaml:"display_time"`  // seconds shown in "Thought for N s"
	EndDelay         float64  `yaml:"end_delay"`     // seconds between the answer and the end notice
	VerifyCode       string   `yaml:"verify_code"`
	DevMode          bool     `yaml:"dev_mode"`
	AnswerPool       string   `yaml:"answer_pool"`
	Answers          []string `yaml:"answers"` // overrides AnswerPool when non-empty

	UserAvatarPath  string `yaml:"user_avatar"`
	AgentAvatarPath string `yaml:"agent_avatar"`

	// Runtime
	Listen       string `yaml:"listen"`
	LogDir       string `yaml:"log_dir"`
	TranscriptDB string `yaml:"transcript_db"` // empty disables the archive
	Debug        bool   `yaml:"debug"`
}

// Default returns the raw milk study configuration
func Default() Config {
	return Config{
		RequiredQuestion: "Is raw milk healthier than pasteurized milk?",
		ThinkingEnabled:  true,
		ThinkingTime:     2.0,
		DisplayTime:      2.0,
		EndDelay:         2.0,
		VerifyCode:       "RM2048",
		AnswerPool:       PoolPersuasive,
		UserAvatarPath:   "assets/user.png",
		AgentAvatarPath:  "assets/agent.png",
		Listen:           "127.0.0.1:8501",
		LogDir:           "logs",
		TranscriptDB:     "thinkchat.db",
	}
}

// Load reads a YAML experiment file on top of the defaults and applies
// THINKCHAT_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the experiment constants
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RequiredQuestion) == "" {
		return fmt.Errorf("required_question cannot be empty")
	}
	if strings.TrimSpace(c.VerifyCode) == "" {
		return fmt.Errorf("verify_code cannot be empty")
	}
	for _, d := range []float64{c.ThinkingTime, c.DisplayTime, c.EndDelay} {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return fmt.Errorf("durations must be finite")
		}
		if d < 0 {
			return fmt.Errorf("durations must be >= 0")
		}
	}
	if len(c.Answers) == 0 {
		switch c.AnswerPool {
		case PoolPersuasive, PoolNeutral:
		default:
			return fmt.Errorf("unknown answer_pool %q", c.AnswerPool)
		}
	}
	return nil
}

// EndDelayDuration converts EndDelay to a time.Duration
func (c *Config) EndDelayDuration() time.Duration {
	return Seconds(c.EndDelay)
}

// Seconds converts fractional seconds to a time.Duration
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func applyEnv(c *Config) {
	c.RequiredQuestion = getEnv("THINKCHAT_REQUIRED_QUESTION", c.RequiredQuestion)
	c.VerifyCode = getEnv("THINKCHAT_VERIFY_CODE", c.VerifyCode)
	c.ThinkingEnabled = getEnvBool("THINKCHAT_THINKING_ENABLED", c.ThinkingEnabled)
	c.ThinkingTime = getEnvFloat("THINKCHAT_THINKING_TIME", c.ThinkingTime)
	c.DisplayTime = getEnvFloat("THINKCHAT_DISPLAY_TIME", c.DisplayTime)
	c.EndDelay = getEnvFloat("THINKCHAT_END_DELAY", c.EndDelay)
	c.DevMode = getEnvBool("THINKCHAT_DEV_MODE", c.DevMode)
	c.AnswerPool = getEnv("THINKCHAT_ANSWER_POOL", c.AnswerPool)
	c.Listen = getEnv("THINKCHAT_LISTEN", c.Listen)
	c.LogDir = getEnv("THINKCHAT_LOG_DIR", c.LogDir)
	c.TranscriptDB = getEnv("THINKCHAT_TRANSCRIPT_DB", c.TranscriptDB)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}
