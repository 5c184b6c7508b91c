package server

// BackupServerConfig holds backup runner configuration. The schedule itself
// (enabled/hour/minute/timezone) is not configured here: it lives in the
// app_settings table and is re-read on every scheduler tick.
type BackupServerConfig struct {
	Directory    string `mapstructure:"directory"     yaml:"directory"`
	TickInterval string `mapstructure:"tick_interval" yaml:"tick_interval"`
}
