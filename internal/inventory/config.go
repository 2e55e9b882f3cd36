package inventory

import "codeberg.org/mutker/thermald/internal/errors"

const (
	defaultDirPerm   = 0o755
	defaultDBPath    = "/var/lib/thermald/inventory.db"
	defaultBackupDir = "/var/lib/thermald/backups"
)

type Config struct {
	DBPath    string
	BackupDir string
	Enabled   bool
}

func DefaultConfig() Config {
	return Config{
		DBPath:    defaultDBPath,
		BackupDir: defaultBackupDir,
		Enabled:   false,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Enabled && c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
