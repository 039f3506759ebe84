package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// HTTPサーバ設定
	Server ServerConfig

	// OpenAI設定（ドキュメント生成用LLM）
	OpenAI OpenAIConfig

	// レート制限設定
	RateLimit RateLimitConfig

	// バッチ生成設定
	Batch BatchConfig

	// Git設定（batch gitコマンド用）
	Git GitConfig

	// Database設定（レート制限ストアをpostgresにした場合のみ使用）
	Database DatabaseConfig
}

// ServerConfig はHTTPサーバ設定
type ServerConfig struct {
	Port int

	// BypassTokens はレート制限を免除するAPIトークンのリスト
	// （管理・サポート用途。X-Admin-Tokenヘッダで照合する）
	BypassTokens []string
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// RateLimitConfig はレート制限設定
type RateLimitConfig struct {
	MinuteLimit int
	HourLimit   int

	// Store はカウンタストアの種別 ("memory" or "postgres")
	// 単一インスタンス運用ではmemory、水平スケール時はpostgresを使用する
	Store string
}

// BatchConfig はバッチ生成設定
type BatchConfig struct {
	// ThrottleSeconds はファイル間のスロットル遅延（秒）
	ThrottleSeconds int

	// MaxFiles は1バッチで処理する最大ファイル数
	MaxFiles int
}

// GitConfig はGit操作設定
type GitConfig struct {
	CloneDir    string
	SSHKeyPath  string
	SSHPassword string // SSH秘密鍵のパスワード（パスフレーズ）
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN はpgx用の接続文字列を返します
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvAsInt("CODEDOC_PORT", 8080),
			BypassTokens: getEnvAsList("CODEDOC_BYPASS_TOKENS"),
		},
		OpenAI: OpenAIConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Temperature: getEnvAsFloat("OPENAI_TEMPERATURE", 0.3),
			MaxTokens:   getEnvAsInt("OPENAI_MAX_TOKENS", 4096),
		},
		RateLimit: RateLimitConfig{
			MinuteLimit: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 10),
			HourLimit:   getEnvAsInt("RATE_LIMIT_PER_HOUR", 100),
			Store:       getEnv("RATE_LIMIT_STORE", "memory"),
		},
		Batch: BatchConfig{
			ThrottleSeconds: getEnvAsInt("BATCH_THROTTLE_SECONDS", 15),
			MaxFiles:        getEnvAsInt("BATCH_MAX_FILES", 50),
		},
		Git: GitConfig{
			CloneDir:    getEnv("GIT_CLONE_DIR", os.TempDir()),
			SSHKeyPath:  getEnv("GIT_SSH_KEY_PATH", ""),
			SSHPassword: getEnv("GIT_SSH_PASSWORD", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "codedoc"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "codedoc"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}

	return cfg, nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList は環境変数をカンマ区切りリストとして取得します
func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}

	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
