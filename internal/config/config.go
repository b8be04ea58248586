// Package config loads the host application's rate limiter settings from the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/calebsouza/throttleguard/pkg/limiter"
)

type Config struct {
	Server  ServerConfig
	Redis   RedisConfig
	Limiter LimiterConfig
}

type ServerConfig struct {
	Addr string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LimiterConfig struct {
	// KeyPrefix namespaces this application's counters from any co-tenant in
	// the same Redis.
	KeyPrefix string

	// StoreTimeout bounds each counter store round trip.
	StoreTimeout time.Duration

	// StoreRetries is the number of fast retries before the store is treated
	// as unavailable.
	StoreRetries int

	// Policies maps scope name to its rate limit policy.
	Policies map[string]limiter.Policy
}

// Load reads configuration from the environment, after loading a .env file if
// one is present.
func Load() (Config, error) {
	_ = godotenv.Load()

	server := ServerConfig{Addr: getEnv("SERVER_ADDR", ":8080")}

	redisCfg, err := buildRedisConfig()
	if err != nil {
		return Config{}, err
	}

	limiterCfg, err := buildLimiterConfig()
	if err != nil {
		return Config{}, err
	}

	return Config{
		Server:  server,
		Redis:   redisCfg,
		Limiter: limiterCfg,
	}, nil
}

func buildRedisConfig() (RedisConfig, error) {
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	return RedisConfig{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}, nil
}

func buildLimiterConfig() (LimiterConfig, error) {
	timeoutMillis, err := strconv.Atoi(getEnv("RATE_LIMIT_STORE_TIMEOUT_MS", "250"))
	if err != nil {
		return LimiterConfig{}, fmt.Errorf("invalid RATE_LIMIT_STORE_TIMEOUT_MS: %w", err)
	}
	retries, err := strconv.Atoi(getEnv("RATE_LIMIT_STORE_RETRIES", "1"))
	if err != nil {
		return LimiterConfig{}, fmt.Errorf("invalid RATE_LIMIT_STORE_RETRIES: %w", err)
	}

	policies, err := parsePolicies(getEnv("RATE_LIMIT_POLICIES", "login:5:60:closed,api:100:60:open"))
	if err != nil {
		return LimiterConfig{}, err
	}

	return LimiterConfig{
		KeyPrefix:    getEnv("RATE_LIMIT_KEY_PREFIX", "ratelimit:"),
		StoreTimeout: time.Duration(timeoutMillis) * time.Millisecond,
		StoreRetries: retries,
		Policies:     policies,
	}, nil
}

// parsePolicies reads a comma-separated list of
// SCOPE:MAX_REQUESTS:PERIOD_SECONDS:FAIL_MODE entries, e.g.
//
//	login:5:60:closed,password-reset:3:3600:closed,api:100:60:open
func parsePolicies(raw string) (map[string]limiter.Policy, error) {
	policies := make(map[string]limiter.Policy)
	if strings.TrimSpace(raw) == "" {
		return policies, nil
	}

	for _, item := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(item), ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("policy must follow SCOPE:MAX_REQUESTS:PERIOD_SECONDS:FAIL_MODE: %s", item)
		}

		scope := strings.TrimSpace(parts[0])
		maxRequests, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid max requests for scope %s: %w", scope, err)
		}
		periodSeconds, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("invalid period seconds for scope %s: %w", scope, err)
		}
		mode, err := limiter.ParseFailMode(parts[3])
		if err != nil {
			return nil, fmt.Errorf("invalid fail mode for scope %s: %w", scope, err)
		}

		policy, err := limiter.NewPolicy(scope, maxRequests, time.Duration(periodSeconds)*time.Second)
		if err != nil {
			return nil, fmt.Errorf("invalid policy for scope %s: %w", scope, err)
		}
		policies[scope] = policy.WithFailMode(mode)
	}

	return policies, nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
