package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kitbuilder587/study-finder/internal/search"
)

var (
	ErrInvalidProvider  = errors.New("SEARCH_PROVIDER must be duckduckgo or tavily")
	ErrMissingTavilyKey = errors.New("TAVILY_API_KEY is required for the tavily provider")
	ErrInvalidAttempts  = errors.New("SEARCH_RETRY_ATTEMPTS must be at least 1")
	ErrInvalidTimeout   = errors.New("SEARCH_TIMEOUT_SEC must be at least 1")
)

type Config struct {
	Server    ServerConfig
	Search    SearchConfig
	Tavily    TavilyConfig
	DDG       DDGConfig
	Telegram  TelegramConfig
	Log       LogConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type SearchConfig struct {
	Provider string
	// каталог программ, которым ограничиваем выдачу
	DirectoryDomains []string
	MaxResults       int
	Region           string
	Timeout          time.Duration
	RetryAttempts    int
	RetryBaseDelay   time.Duration
	Workers          int
}

type TavilyConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type DDGConfig struct {
	BaseURL      string
	Timeout      time.Duration
	RequestDelay time.Duration
}

type TelegramConfig struct {
	Token string
	Debug bool
}

type LogConfig struct {
	Level string
	// json или console; пусто - по уровню логирования
	Format string
}

type CacheConfig struct {
	TTL time.Duration
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

// Load читает .env (если есть) и переменные окружения.
// Переменные окружения важнее .env: godotenv не перетирает уже выставленные.
func Load() (*Config, error) {
	cfg := FromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromEnv собирает конфиг без валидации, чтобы CLI мог наложить свои флаги
func FromEnv() *Config {
	for _, envFile := range []string{".env", "../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	return &Config{
		Server: ServerConfig{
			Addr:         getEnvOrDefault("SERVER_ADDR", ":8080"),
			ReadTimeout:  time.Duration(getEnvIntOrDefault("SERVER_READ_TIMEOUT_SEC", 30)) * time.Second,
			WriteTimeout: time.Duration(getEnvIntOrDefault("SERVER_WRITE_TIMEOUT_SEC", 120)) * time.Second,
		},
		Search: SearchConfig{
			Provider:         strings.ToLower(getEnvOrDefault("SEARCH_PROVIDER", search.ProviderDuckDuckGo)),
			DirectoryDomains: getEnvListOrDefault("SEARCH_DIRECTORY_DOMAINS", []string{"daad.de"}),
			MaxResults:       getEnvIntOrDefault("SEARCH_MAX_RESULTS", 15),
			Region:           getEnvOrDefault("SEARCH_REGION", "wt-wt"),
			Timeout:          time.Duration(getEnvIntOrDefault("SEARCH_TIMEOUT_SEC", 90)) * time.Second,
			RetryAttempts:    getEnvIntOrDefault("SEARCH_RETRY_ATTEMPTS", 3),
			RetryBaseDelay:   time.Duration(getEnvIntOrDefault("SEARCH_RETRY_BASE_SEC", 5)) * time.Second,
			// с запасом: ожидание слота съедает дедлайн запроса
			Workers:          getEnvIntOrDefault("SEARCH_WORKERS", 32),
		},
		Tavily: TavilyConfig{
			APIKey:  os.Getenv("TAVILY_API_KEY"),
			BaseURL: getEnvOrDefault("TAVILY_BASE_URL", "https://api.tavily.com"),
			Timeout: time.Duration(getEnvIntOrDefault("TAVILY_TIMEOUT_SEC", 30)) * time.Second,
		},
		DDG: DDGConfig{
			BaseURL:      getEnvOrDefault("DDG_BASE_URL", "https://html.duckduckgo.com/html/"),
			Timeout:      time.Duration(getEnvIntOrDefault("DDG_TIMEOUT_SEC", 30)) * time.Second,
			RequestDelay: time.Duration(getEnvIntOrDefault("SEARCH_REQUEST_DELAY_MS", 2000)) * time.Millisecond,
		},
		Telegram: TelegramConfig{
			Token: os.Getenv("TELEGRAM_BOT_TOKEN"),
			Debug: getEnvOrDefault("TELEGRAM_DEBUG", "false") == "true",
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: os.Getenv("LOG_FORMAT"),
		},
		Cache: CacheConfig{
			TTL: time.Duration(getEnvIntOrDefault("CACHE_TTL_SEC", 3600)) * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvIntOrDefault("RATE_LIMIT_PER_MINUTE", 20),
		},
	}
}

func (c *Config) Validate() error {
	switch c.Search.Provider {
	case search.ProviderDuckDuckGo:
	case search.ProviderTavily:
		if c.Tavily.APIKey == "" {
			return ErrMissingTavilyKey
		}
	default:
		return ErrInvalidProvider
	}
	if c.Search.RetryAttempts < 1 {
		return ErrInvalidAttempts
	}
	if c.Search.Timeout < time.Second {
		return ErrInvalidTimeout
	}
	return nil
}

// TelegramEnabled - бот поднимаем только если задан токен
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.Token != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// пустой список ("SEARCH_DIRECTORY_DOMAINS=,") снимает ограничение по каталогу
func getEnvListOrDefault(key string, defaultValue []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
