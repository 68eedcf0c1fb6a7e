package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config 구조체 - 모든 환경변수를 담음
type Config struct {
	// Redis (비어있으면 in-process 타이머로 정리)
	RedisHost     string `env:"REDIS_HOST"`
	RedisPort     string `env:"REDIS_PORT" envDefault:"6379"`
	RedisUsername string `env:"REDIS_USERNAME"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisUseTLS   bool   `env:"REDIS_USE_TLS" envDefault:"false"`

	// Gemini API
	GeminiAPIKey      string        `env:"GEMINI_API_KEY"`
	GeminiModel       string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash-image"`
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT" envDefault:"110s"`

	// Server
	Port           string   `env:"PORT" envDefault:"3001"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://127.0.0.1:5173"`
	StaticDir      string   `env:"STATIC_DIR"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`

	// 파일 저장소
	UploadDir           string        `env:"UPLOAD_DIR" envDefault:"uploads"`
	CatalogDir          string        `env:"CATALOG_DIR" envDefault:"public"`
	MaxUploadBytes      int64         `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`
	OutputRetention     time.Duration `env:"OUTPUT_RETENTION" envDefault:"1h"`
	InputRetention      time.Duration `env:"INPUT_RETENTION" envDefault:"1m"`
	CleanupPollInterval time.Duration `env:"CLEANUP_POLL_INTERVAL" envDefault:"5s"`
}

// LoadConfig - 환경변수 로드
func LoadConfig() (*Config, error) {
	// .env 파일 로드 (있으면)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("⚠️  .env file not found, using environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// API 키는 생성 시점에 검증 (서버는 키 없이도 기동)
	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("⚠️  GEMINI_API_KEY is not set, outfit generation will fail until it is configured")
	}

	log.Info().Msg("✅ Configuration loaded successfully")
	log.Info().Msgf("   Gemini: %s (timeout %s)", cfg.GeminiModel, cfg.GenerationTimeout)
	log.Info().Msgf("   Uploads: %s (output %s / input %s)", cfg.UploadDir, cfg.OutputRetention, cfg.InputRetention)
	if cfg.UseRedis() {
		log.Info().Msgf("   Redis: %s (TLS: %v)", cfg.GetRedisAddr(), cfg.RedisUseTLS)
	}

	return cfg, nil
}

// Validate - 값 범위 검증
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.GeminiModel == "" {
		return fmt.Errorf("GEMINI_MODEL must not be empty")
	}
	if c.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR must not be empty")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if c.OutputRetention <= 0 || c.InputRetention <= 0 {
		return fmt.Errorf("retention windows must be positive")
	}
	if c.GenerationTimeout <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT must be positive")
	}
	if c.UseRedis() && c.CleanupPollInterval <= 0 {
		return fmt.Errorf("CLEANUP_POLL_INTERVAL must be positive")
	}
	return nil
}

// UseRedis - Redis 지연 큐 사용 여부
func (c *Config) UseRedis() bool {
	return c.RedisHost != ""
}

// GetRedisAddr - Redis 연결 문자열 생성
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// ListenAddr - HTTP 리슨 주소
func (c *Config) ListenAddr() string {
	return ":" + c.Port
}
