package configs

import (
	"flag"
	"os"

	"github.com/focusritual/collab/internal/infrastructure/env"
)

// DetermineConfigPath resolves the config file location from the --config
// flag, the COLLAB_CONFIG env var, or a set of conventional locations. An
// empty return means "defaults only", which is a valid way to run.
func DetermineConfigPath() string {
	var configPath string

	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	if configPath == "" {
		configPath = env.GetString("COLLAB_CONFIG", "")
	}

	if configPath == "" {
		candidates := []string{
			"./config.yaml",
			"./config.yml",
			"/etc/collab/config.yaml",
			"/app/config.yaml", // common in Docker
		}

		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	return configPath
}
