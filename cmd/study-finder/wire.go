package main

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kitbuilder587/study-finder/internal/config"
	"github.com/kitbuilder587/study-finder/internal/search"
	"github.com/kitbuilder587/study-finder/internal/search/duckduckgo"
	"github.com/kitbuilder587/study-finder/internal/search/tavily"
)

// loadConfig: env и .env, поверх них файл конфига и флаги
func loadConfig() (*config.Config, error) {
	cfg := config.FromEnv()
	applyOverrides(cfg, viper.GetViper())

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Config, v *viper.Viper) {
	if v.IsSet("server.addr") {
		cfg.Server.Addr = v.GetString("server.addr")
	}
	if v.IsSet("log.level") {
		cfg.Log.Level = v.GetString("log.level")
	}
	if v.IsSet("log.format") {
		cfg.Log.Format = v.GetString("log.format")
	}
	if v.IsSet("search.provider") {
		cfg.Search.Provider = strings.ToLower(v.GetString("search.provider"))
	}
	if v.IsSet("search.domains") {
		cfg.Search.DirectoryDomains = v.GetStringSlice("search.domains")
	}
	if v.IsSet("search.max_results") {
		cfg.Search.MaxResults = v.GetInt("search.max_results")
	}
	if v.IsSet("search.timeout") {
		cfg.Search.Timeout = v.GetDuration("search.timeout")
	}
	if v.IsSet("search.workers") {
		cfg.Search.Workers = v.GetInt("search.workers")
	}
	if v.IsSet("tavily.api_key") {
		cfg.Tavily.APIKey = v.GetString("tavily.api_key")
	}
	if v.IsSet("telegram.token") {
		cfg.Telegram.Token = v.GetString("telegram.token")
	}
	if v.IsSet("cache.ttl") {
		cfg.Cache.TTL = v.GetDuration("cache.ttl")
	}
	if v.IsSet("ratelimit.per_minute") {
		cfg.RateLimit.RequestsPerMinute = v.GetInt("ratelimit.per_minute")
	}
}

func newSearchClient(cfg *config.Config, logger *zap.Logger) search.SearchClient {
	switch cfg.Search.Provider {
	case search.ProviderTavily:
		return tavily.New(tavily.Config{
			APIKey:  cfg.Tavily.APIKey,
			BaseURL: cfg.Tavily.BaseURL,
			Timeout: cfg.Tavily.Timeout,
		}, logger)
	default:
		return duckduckgo.New(duckduckgo.Config{
			BaseURL:      cfg.DDG.BaseURL,
			Timeout:      cfg.DDG.Timeout,
			RequestDelay: cfg.DDG.RequestDelay,
		}, logger)
	}
}
