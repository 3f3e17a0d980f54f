package config

const (
	defaultInstanceRoot      = "~/clippyfront/instance"
	defaultOutputDir         = "~/.local/share/clipworker/output"
	defaultTempDir           = "~/.local/share/clipworker/tmp"
	defaultLogDir            = "~/.local/share/clipworker/logs"
	defaultDatabasePath      = "~/.local/share/clipworker/queue.db"
	defaultVersionTag        = "v2"
	defaultPollInterval      = 5
	defaultHeartbeatInterval = 15
	defaultHeartbeatTimeout  = 120
	defaultHardwareCodec     = "h264_nvenc"
	defaultProbeCacheSecs    = 300
	defaultAPITimeoutSecs    = 30
	defaultOutputWidth       = 1920
	defaultOutputHeight      = 1080
	defaultOutputFPS         = 30
	defaultVideoCodec        = "libx264"
	defaultPreset            = "medium"
	defaultCRF               = 23
	defaultAudioCodec        = "aac"
	defaultAudioBitrate      = "192k"
	defaultNotifyTimeout     = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InstanceRoot: defaultInstanceRoot,
			OutputDir:    defaultOutputDir,
			TempDir:      defaultTempDir,
			LogDir:       defaultLogDir,
			DatabasePath: defaultDatabasePath,
		},
		Worker: Worker{
			VersionTag:        defaultVersionTag,
			Queues:            []string{QueueGPU, QueueCPU, QueueGeneric},
			CompatibleTags:    []string{defaultVersionTag},
			PollInterval:      defaultPollInterval,
			HeartbeatInterval: defaultHeartbeatInterval,
			HeartbeatTimeout:  defaultHeartbeatTimeout,
		},
		Encoder: Encoder{
			HardwareCodec:     defaultHardwareCodec,
			ProbeCacheSeconds: defaultProbeCacheSecs,
		},
		API: API{
			TimeoutSeconds: defaultAPITimeoutSecs,
		},
		Output: Output{
			Width:        defaultOutputWidth,
			Height:       defaultOutputHeight,
			FPS:          defaultOutputFPS,
			VideoCodec:   defaultVideoCodec,
			Preset:       defaultPreset,
			CRF:          defaultCRF,
			AudioCodec:   defaultAudioCodec,
			AudioBitrate: defaultAudioBitrate,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			JobStarted:     true,
			JobCompleted:   true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// Queue names the coordinator routes jobs across, in priority order.
const (
	QueueGPU     = "gpu"
	QueueCPU     = "cpu"
	QueueGeneric = "generic"
)
