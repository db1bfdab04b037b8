// Package config loads process configuration from the environment, the
// way the upstream agent's cmd/main.go loaded a .env file before parsing
// flags — generalized here to the full set of env vars this service
// recognizes (§6 of the component spec) plus an optional AWS Secrets
// Manager overlay for production deployments that don't want API keys
// sitting in plain .env files.
package config

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config is the fully-resolved, read-only process configuration. It is
// constructed once at startup and passed through request handlers rather
// than re-read from os.Getenv on every request (§9 "Global mutable
// process state").
type Config struct {
	HTTPAddr string

	MaxInputChars int

	SessionTTL      time.Duration
	SessionRedisURL string

	ModelProvider            string
	ModelName                string
	ModelAPIKey               string
	UpstreamStreaming        bool
	LLMTimeout               time.Duration
	LLMStreamTimeout         time.Duration
	ToolTimeout              time.Duration
	ToolMaxIters             int
	UseSimpleStrategy        bool

	StreamChunkSize  int
	StreamDelayMS    int
	StreamKeepalive  time.Duration
	StreamTotalTimeout time.Duration

	BinanceBaseURL     string
	BinanceFallbackURL string
	CEXDefaultQuote    string
	CEXKlineInterval   string
	CEXKlineLimit      int

	EVMRPCURL      string
	RouterAddress  string
	FactoryAddress string
	PairAddress    string
	WETHAddress    string
	DemoTokenAddress string

	CrossChainInboundToken string

	DisableStartup bool
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Load reads .env (if present, non-fatal if missing — mirrors the
// upstream behavior), optionally overlays secrets from AWS Secrets
// Manager, and builds a Config from the resulting environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Err(err).Msg("no .env file found or error loading it, continuing with process environment")
	}

	if secretsID := os.Getenv("AWS_SECRETS_ID"); secretsID != "" {
		if err := overlaySecretsManager(secretsID); err != nil {
			log.Warn().Err(err).Str("secrets_id", secretsID).Msg("failed to load AWS secrets overlay, continuing with process environment")
		}
	}

	cfg := &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		MaxInputChars: getEnvInt("MAX_INPUT_CHARS", 2000),

		SessionTTL:      time.Duration(getEnvInt("SESSION_TTL_SECONDS", 1800)) * time.Second,
		SessionRedisURL: getEnv("SESSION_REDIS_URL", "redis://127.0.0.1:6379/0"),

		ModelProvider:     getEnv("MODEL_PROVIDER", "deepseek"),
		ModelName:         getEnv("MODEL_NAME", ""),
		ModelAPIKey:       resolveModelAPIKey(getEnv("MODEL_PROVIDER", "deepseek")),
		UpstreamStreaming: getEnvBool("UPSTREAM_STREAMING", true),
		LLMTimeout:        time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 60)) * time.Second,
		LLMStreamTimeout:  time.Duration(getEnvInt("LLM_STREAM_TIMEOUT_SECONDS", 0)) * time.Second,
		ToolTimeout:       time.Duration(getEnvInt("TOOL_TIMEOUT_SECONDS", 20)) * time.Second,
		ToolMaxIters:      getEnvInt("TOOL_MAX_ITERS", 6),
		UseSimpleStrategy: getEnvBool("USE_SIMPLE_STRATEGY", true),

		StreamChunkSize:    getEnvInt("STREAM_CHUNK_SIZE", 12),
		StreamDelayMS:      getEnvInt("STREAM_DELAY_MS", 15),
		StreamKeepalive:    time.Duration(getEnvInt("STREAM_KEEPALIVE_SECONDS", 2)) * time.Second,
		StreamTotalTimeout: time.Duration(getEnvInt("STREAM_TOTAL_TIMEOUT_SECONDS", 75)) * time.Second,

		BinanceBaseURL:     getEnv("BINANCE_BASE_URL", "https://api.binance.com"),
		BinanceFallbackURL: getEnv("BINANCE_FALLBACK_URL", "https://data-api.binance.vision"),
		CEXDefaultQuote:    getEnv("CEX_DEFAULT_QUOTE", "USDT"),
		CEXKlineInterval:   getEnv("CEX_KLINE_INTERVAL", "1h"),
		CEXKlineLimit:      getEnvInt("CEX_KLINE_LIMIT", 200),

		EVMRPCURL:        getEnv("EVM_RPC_URL", ""),
		RouterAddress:    getEnv("EVM_ROUTER_ADDRESS", ""),
		FactoryAddress:   getEnv("EVM_FACTORY_ADDRESS", ""),
		PairAddress:      getEnv("EVM_PAIR_ADDRESS", ""),
		WETHAddress:      getEnv("EVM_WETH_ADDRESS", ""),
		DemoTokenAddress: getEnv("EVM_DEMO_TOKEN_ADDRESS", ""),

		CrossChainInboundToken: getEnv("CROSSCHAIN_INBOUND_TOKEN", ""),

		DisableStartup: getEnvBool("DISABLE_STARTUP", false),
	}

	return cfg, nil
}

func resolveModelAPIKey(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "dashscope":
		return os.Getenv("DASHSCOPE_API_KEY")
	default:
		return os.Getenv("DEEPSEEK_API_KEY")
	}
}

// overlaySecretsManager fetches a single secret blob (a YAML or JSON
// mapping of env-var-name to value) from AWS Secrets Manager and applies
// any keys not already set in the process environment. Existing env vars
// always win, so a local .env can still override the shared secret for
// development.
func overlaySecretsManager(secretsID string) error {
	sess, err := session.NewSession(&aws.Config{})
	if err != nil {
		return err
	}
	svc := secretsmanager.New(sess)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	out, err := svc.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretsID),
	})
	if err != nil {
		return err
	}
	if out.SecretString == nil {
		return nil
	}

	values := map[string]string{}
	if err := yaml.Unmarshal([]byte(*out.SecretString), &values); err != nil {
		return err
	}

	for k, v := range values {
		if os.Getenv(k) == "" {
			os.Setenv(k, v)
		}
	}
	return nil
}
