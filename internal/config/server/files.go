package server

// FilesServerConfig holds the attachment storage configuration. Root is the
// directory that every filesystem-mode attachment must resolve under.
type FilesServerConfig struct {
	Root string `mapstructure:"root" yaml:"root"`
}
