package config

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// SetupLog applies the log section to the standard logrus logger.
func (c *Config) SetupLog() error {
	if c.Log.Level != "" {
		level, err := log.ParseLevel(c.Log.Level)
		if err != nil {
			return fmt.Errorf("SetupLog: %w", err)
		}

		log.SetLevel(level)
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("SetupLog: unknown log format %q", c.Log.Format)
	}

	return nil
}
