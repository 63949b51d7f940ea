package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const DEV_ENV_FILENAME = ".env.development"
const PROD_ENV_FILENAME = ".env.production"

// InitEnvironmentVariables loads the .env file that sits next to the config directory.
// A missing file is not an error: the variables may already be set by the environment.
func InitEnvironmentVariables(dir string) error {
	if os.Getenv("ENV") == "production" {
		log.Info("Running in production environment")
		return nil
	}

	envFile := filepath.Join(dir, DEV_ENV_FILENAME)
	if os.Getenv("GO_ENV") == "production" {
		envFile = filepath.Join(dir, PROD_ENV_FILENAME)
	}

	if err := godotenv.Load(envFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debugf("no env file at %s", envFile)
			return nil
		}

		return fmt.Errorf("failed to load %s file: %w", envFile, err)
	}

	log.Debugf("loaded env file %s", envFile)

	return nil
}
