package server

// AuditServerConfig configures the optional JSONL mirror of the audit
// trail. The durable copy always lives in the database; the file is for
// operators tailing events without database access.
type AuditServerConfig struct {
	File     string                  `mapstructure:"file"     yaml:"file"`
	Rotation LogServerRotationConfig `mapstructure:"rotation" yaml:"rotation"`
}
