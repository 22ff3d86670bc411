package config

const (
	defaultDataDir              = "~/.local/share/ytqueue"
	defaultLogDir               = "~/.local/share/ytqueue/logs"
	defaultLogRetentionDays     = 30
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultAPIBind              = "127.0.0.1:7488"
	defaultEngineCommand        = "ytengine"
	defaultWatchPollSeconds     = 10
	defaultNotifyRequestTimeout = 10
	defaultStorageBackend       = StorageFile
	defaultEngineTimeoutSeconds = 0
	defaultRunnerMaxRetries     = 0
	defaultScheduleRetryFailed  = false
	defaultWatchAutoUpload      = false
	defaultNotificationsQueue   = true
	defaultNotificationsJobs    = true
	defaultNotificationsErrors  = true
)

func defaultWatchExtensions() []string {
	return []string{".mp3", ".wav", ".m4a", ".flac", ".ogg", ".aac"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Storage: Storage{
			Backend: defaultStorageBackend,
		},
		Engine: Engine{
			GenerateCommand: defaultEngineCommand,
			GenerateArgs:    []string{"generate"},
			UploadCommand:   defaultEngineCommand,
			UploadArgs:      []string{"upload"},
			TimeoutSeconds:  defaultEngineTimeoutSeconds,
		},
		Runner: Runner{
			MaxRetries:          defaultRunnerMaxRetries,
			ScheduleRetryFailed: defaultScheduleRetryFailed,
		},
		Watch: Watch{
			PollSeconds: defaultWatchPollSeconds,
			AutoUpload:  defaultWatchAutoUpload,
			Extensions:  defaultWatchExtensions(),
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Queue:          defaultNotificationsQueue,
			Jobs:           defaultNotificationsJobs,
			Errors:         defaultNotificationsErrors,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
