package server

import "github.com/spf13/viper"

func GetServerDefault() BaseServerConfig {
	return BaseServerConfig{
		ShutdownTimeout: "10s",

		Log: LogServerConfig{
			Level:      "INFO",
			TimeFormat: "2006-01-02 15:04:05",
			File:       "",
			NoColor:    false,
			JSON:       false,
			NoTerminal: false,
			Rotation: LogServerRotationConfig{
				MaxSize:    128,
				MaxBackups: 5,
				MaxAge:     16,
				Compress:   false,
			},
		},

		Metadata: MetadataServerConfig{
			Type: "sqlite",
			SQLite: MetadataSQLiteConfig{
				Path: "data/backoffice.db",
			},
		},

		Files: FilesServerConfig{
			Root: "data/files",
		},

		Audit: AuditServerConfig{
			File: "",
			Rotation: LogServerRotationConfig{
				MaxSize:    128,
				MaxBackups: 5,
				MaxAge:     16,
				Compress:   false,
			},
		},

		Backup: BackupServerConfig{
			Directory:    "data/backups",
			TickInterval: "1m",
		},
	}
}

func setDefaults() {
	defaults := GetServerDefault()

	viper.SetDefault("shutdown_timeout", defaults.ShutdownTimeout)

	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.time_format", defaults.Log.TimeFormat)
	viper.SetDefault("log.file", defaults.Log.File)
	viper.SetDefault("log.no_color", defaults.Log.NoColor)
	viper.SetDefault("log.json", defaults.Log.JSON)
	viper.SetDefault("log.no_terminal", defaults.Log.NoTerminal)
	viper.SetDefault("log.rotation.max_size", defaults.Log.Rotation.MaxSize)
	viper.SetDefault("log.rotation.max_backups", defaults.Log.Rotation.MaxBackups)
	viper.SetDefault("log.rotation.max_age", defaults.Log.Rotation.MaxAge)
	viper.SetDefault("log.rotation.compress", defaults.Log.Rotation.Compress)

	viper.SetDefault("metadata.type", defaults.Metadata.Type)
	viper.SetDefault("metadata.sqlite.path", defaults.Metadata.SQLite.Path)

	viper.SetDefault("files.root", defaults.Files.Root)

	viper.SetDefault("audit.file", defaults.Audit.File)
	viper.SetDefault("audit.rotation.max_size", defaults.Audit.Rotation.MaxSize)
	viper.SetDefault("audit.rotation.max_backups", defaults.Audit.Rotation.MaxBackups)
	viper.SetDefault("audit.rotation.max_age", defaults.Audit.Rotation.MaxAge)
	viper.SetDefault("audit.rotation.compress", defaults.Audit.Rotation.Compress)

	viper.SetDefault("backup.directory", defaults.Backup.Directory)
	viper.SetDefault("backup.tick_interval", defaults.Backup.TickInterval)
}
