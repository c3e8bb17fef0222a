package configs

import (
	"flag"
	"os"

	"github.com/kcstrada/mes-realtime-gateway/internal/infrastructure/env"
)

func DetermineConfigPath() string {
	var configPath string

	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	if configPath == "" {
		configPath = env.GetString("GATEWAY_CONFIG", "")
	}

	if configPath == "" {
		candidates := []string{
			"./config.yaml",
			"./config.yml",
			"/etc/mes-gateway/config.yaml",
			"/app/config.yaml", // common in Docker
		}

		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	// Everything has an env or built-in default, so a missing file is fine
	// as long as GATEWAY_JWT_SECRET is set.
	return configPath
}
