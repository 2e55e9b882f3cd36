package inventory

import (
	"database/sql"

	"codeberg.org/mutker/thermald/internal/errors"
	"codeberg.org/mutker/thermald/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS snapshot (
	       id          INTEGER PRIMARY KEY CHECK (id = 1),
	       taken_at    INTEGER NOT NULL,
	       config_path TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS zones (
	       zone_index  INTEGER PRIMARY KEY,
	       type        TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS trips (
	       zone_index  INTEGER NOT NULL REFERENCES zones(zone_index),
	       trip_index  INTEGER NOT NULL,
	       type        TEXT NOT NULL,
	       PRIMARY KEY (zone_index, trip_index)
	   );
	   CREATE TABLE IF NOT EXISTS cooling_devices (
	       device_index INTEGER PRIMARY KEY,
	       type         TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS devices (
	       slot        TEXT PRIMARY KEY,
	       name        TEXT NOT NULL,
	       type        TEXT NOT NULL,
	       kernel_index INTEGER NOT NULL,
	       stub        INTEGER NOT NULL CHECK (stub IN (0, 1)),
	       threshold   REAL,
	       shutdown    REAL,
	       vr_min      REAL
	   );`

	insertSnapshotSQL = `INSERT INTO snapshot (id, taken_at, config_path) VALUES (1, ?, ?)`
	insertZoneSQL     = `INSERT INTO zones (zone_index, type) VALUES (?, ?)`
	insertTripSQL     = `INSERT INTO trips (zone_index, trip_index, type) VALUES (?, ?, ?)`
	insertCoolingSQL  = `INSERT INTO cooling_devices (device_index, type) VALUES (?, ?)`
	insertDeviceSQL   = `
    INSERT INTO devices (
        slot, name, type, kernel_index, stub,
        threshold, shutdown, vr_min
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
)

// dataTables lists the snapshot tables in deletion order.
var dataTables = []string{"trips", "zones", "cooling_devices", "devices", "snapshot"}

// InitSchema creates a new database schema with the current version
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	log.Debug().Msg("Creating database...")

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				log.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			SQL   string
		}{
			Error: err.Error(),
			SQL:   createTablesSQL,
		})
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			Phase string
		}{
			Error: err.Error(),
			Phase: "record_version",
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	log.Info().
		Int("version", SchemaVersion).
		Msg("Schema initialized successfully")

	return nil
}

// GetSchemaVersion returns the current schema version, 0 for a new database
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := TableExists(db, "schema_versions")
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Error string
		}{
			Phase: "get_version",
			Error: err.Error(),
		})
	}

	return version, nil
}

// TableExists checks if a table exists
func TableExists(db *sql.DB, tableName string) (bool, error) {
	errFactory := errors.New()
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: tableName,
			Error: err.Error(),
		})
	}
	return exists, nil
}
