package config

// BackupConfig selects where previous asset bodies are kept before the
// installer overwrites or deletes them.  An empty Bucket keeps backups in
// process memory, which is only useful for development.
type BackupConfig struct {
	Enabled   bool
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// LoadBackupConfig reads the BACKUP_* variables.
func LoadBackupConfig() BackupConfig {
	return BackupConfig{
		Enabled:   envBool("BACKUP_ENABLED", false),
		Bucket:    envStr("BACKUP_S3_BUCKET", ""),
		Prefix:    envStr("BACKUP_S3_PREFIX", "asset-backups"),
		Region:    envStr("BACKUP_S3_REGION", "us-east-1"),
		Endpoint:  envStr("BACKUP_S3_ENDPOINT", ""),
		AccessKey: envStr("BACKUP_S3_ACCESS_KEY", ""),
		SecretKey: envStr("BACKUP_S3_SECRET_KEY", ""),
	}
}
