package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.TempDir == "" {
		return errors.New("paths.temp_dir must be set")
	}
	if c.Paths.DatabasePath == "" {
		return errors.New("paths.database_path must be set")
	}
	return nil
}

func (c *Config) validateWorker() error {
	known := map[string]struct{}{QueueGPU: {}, QueueCPU: {}, QueueGeneric: {}}
	for _, queue := range c.Worker.Queues {
		if _, ok := known[queue]; !ok {
			return fmt.Errorf("worker.queues contains unknown queue %q", queue)
		}
	}
	if err := ensurePositiveMap(map[string]int{
		"worker.poll_interval":      c.Worker.PollInterval,
		"worker.heartbeat_interval": c.Worker.HeartbeatInterval,
		"worker.heartbeat_timeout":  c.Worker.HeartbeatTimeout,
	}); err != nil {
		return err
	}
	if c.Worker.HeartbeatTimeout <= c.Worker.HeartbeatInterval {
		return errors.New("worker.heartbeat_timeout must be greater than worker.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateAPI() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/clipworker/config.toml"
		}
		return fmt.Errorf("api.base_url is required. Set CLIPWORKER_API_URL env var or edit %s (create with 'clipworker config init')", defaultPath)
	}
	if strings.TrimSpace(c.API.Token) == "" {
		return errors.New("api.token is required. Set CLIPWORKER_API_TOKEN env var or edit the config file")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must start with http:// or https://, got %q", c.API.BaseURL)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
