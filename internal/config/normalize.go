package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeWorker(); err != nil {
		return err
	}
	c.normalizeEncoder()
	c.normalizeAPI()
	c.normalizeOutput()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if value, ok := os.LookupEnv("CLIPPYFRONT_INSTANCE"); ok && strings.TrimSpace(value) != "" {
		c.Paths.InstanceRoot = strings.TrimSpace(value)
	}
	if c.Paths.InstanceRoot, err = expandPath(c.Paths.InstanceRoot); err != nil {
		return fmt.Errorf("paths.instance_root: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = defaultTempDir
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DatabasePath) == "" {
		c.Paths.DatabasePath = defaultDatabasePath
	}
	if c.Paths.DatabasePath, err = expandPath(c.Paths.DatabasePath); err != nil {
		return fmt.Errorf("paths.database_path: %w", err)
	}

	aliases := make([]Alias, 0, len(c.Paths.Aliases))
	for i, alias := range c.Paths.Aliases {
		from := strings.TrimSpace(alias.From)
		to := strings.TrimSpace(alias.To)
		if from == "" && to == "" {
			continue
		}
		if from == "" || to == "" {
			return fmt.Errorf("paths.alias[%d]: both from and to must be set", i)
		}
		if to, err = expandPath(to); err != nil {
			return fmt.Errorf("paths.alias[%d].to: %w", i, err)
		}
		aliases = append(aliases, Alias{From: from, To: to})
	}
	c.Paths.Aliases = aliases
	return nil
}

func (c *Config) normalizeWorker() error {
	c.Worker.Name = strings.TrimSpace(c.Worker.Name)
	if c.Worker.Name == "" {
		host, err := os.Hostname()
		if err != nil || strings.TrimSpace(host) == "" {
			host = "clipworker"
		}
		c.Worker.Name = host
	}
	c.Worker.VersionTag = strings.TrimSpace(c.Worker.VersionTag)
	if c.Worker.VersionTag == "" {
		c.Worker.VersionTag = defaultVersionTag
	}

	c.Worker.Queues = normalizeNames(c.Worker.Queues)
	if len(c.Worker.Queues) == 0 {
		c.Worker.Queues = []string{QueueGPU, QueueCPU, QueueGeneric}
	}
	c.Worker.CompatibleTags = normalizeNames(c.Worker.CompatibleTags)
	if len(c.Worker.CompatibleTags) == 0 {
		c.Worker.CompatibleTags = []string{c.Worker.VersionTag}
	}

	if c.Worker.PollInterval <= 0 {
		c.Worker.PollInterval = defaultPollInterval
	}
	if c.Worker.HeartbeatInterval <= 0 {
		c.Worker.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Worker.HeartbeatTimeout <= 0 {
		c.Worker.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	return nil
}

func (c *Config) normalizeEncoder() {
	c.Encoder.FFmpegBinary = strings.TrimSpace(c.Encoder.FFmpegBinary)
	c.Encoder.FFprobeBinary = strings.TrimSpace(c.Encoder.FFprobeBinary)
	c.Encoder.HardwareCodec = strings.TrimSpace(c.Encoder.HardwareCodec)
	if c.Encoder.HardwareCodec == "" {
		c.Encoder.HardwareCodec = defaultHardwareCodec
	}
	if !c.Encoder.ForceSoftware {
		if value, ok := os.LookupEnv("CLIPWORKER_FORCE_SOFTWARE"); ok {
			switch strings.ToLower(strings.TrimSpace(value)) {
			case "1", "true", "yes":
				c.Encoder.ForceSoftware = true
			}
		}
	}
	if c.Encoder.ProbeCacheSeconds <= 0 {
		c.Encoder.ProbeCacheSeconds = defaultProbeCacheSecs
	}
}

func (c *Config) normalizeAPI() {
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("CLIPWORKER_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
	if c.API.BaseURL == "" {
		if value, ok := os.LookupEnv("CLIPWORKER_API_URL"); ok {
			c.API.BaseURL = strings.TrimSpace(value)
		}
	}
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = defaultAPITimeoutSecs
	}
}

func (c *Config) normalizeOutput() {
	if c.Output.Width <= 0 {
		c.Output.Width = defaultOutputWidth
	}
	if c.Output.Height <= 0 {
		c.Output.Height = defaultOutputHeight
	}
	if c.Output.FPS <= 0 {
		c.Output.FPS = defaultOutputFPS
	}
	c.Output.VideoCodec = strings.TrimSpace(c.Output.VideoCodec)
	if c.Output.VideoCodec == "" {
		c.Output.VideoCodec = defaultVideoCodec
	}
	c.Output.Preset = strings.TrimSpace(c.Output.Preset)
	if c.Output.Preset == "" {
		c.Output.Preset = defaultPreset
	}
	if c.Output.CRF <= 0 {
		c.Output.CRF = defaultCRF
	}
	c.Output.AudioCodec = strings.TrimSpace(c.Output.AudioCodec)
	if c.Output.AudioCodec == "" {
		c.Output.AudioCodec = defaultAudioCodec
	}
	c.Output.AudioBitrate = strings.TrimSpace(c.Output.AudioBitrate)
	if c.Output.AudioBitrate == "" {
		c.Output.AudioBitrate = defaultAudioBitrate
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeNames(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		normalized := strings.ToLower(strings.TrimSpace(value))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
