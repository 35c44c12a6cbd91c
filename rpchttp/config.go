package rpchttp

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config controls the HTTP binding.
type Config struct {
	// Path is the route serving RPC requests.
	Path string
	// HealthPath is the liveness route; empty disables it.
	HealthPath string
	// DiscoverEnabled controls the rpc.discover method.
	DiscoverEnabled bool
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Path:            "/",
		HealthPath:      "/health",
		DiscoverEnabled: true,
	}
}

// LoadConfig reads configuration from the environment, loading a .env
// file first when one is present:
//
//	RPCSERVE_PATH         route serving RPC requests (default "/")
//	RPCSERVE_HEALTH_PATH  liveness route, "" to disable (default "/health")
//	RPCSERVE_DISCOVER     enable rpc.discover (default true)
func LoadConfig() Config {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if v, ok := os.LookupEnv("RPCSERVE_PATH"); ok && v != "" {
		cfg.Path = v
	}
	if v, ok := os.LookupEnv("RPCSERVE_HEALTH_PATH"); ok {
		cfg.HealthPath = v
	}
	if v, ok := os.LookupEnv("RPCSERVE_DISCOVER"); ok {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.DiscoverEnabled = enabled
		}
	}
	return cfg
}
