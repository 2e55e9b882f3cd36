package inventory

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/thermald/internal/errors"
	"codeberg.org/mutker/thermald/internal/logger"
	"codeberg.org/mutker/thermald/internal/sysfs"
	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	db     *sql.DB
	logger logger.Logger
	cfg    Config
	mu     sync.Mutex
}

func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}
	if cfg.BackupDir == "" {
		cfg.BackupDir = filepath.Join(filepath.Dir(cfg.DBPath), "backups")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	dsn := cfg.DBPath + "?_journal=WAL&_foreign_keys=1"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	if err := ValidateAndUpdateSchema(db, cfg.BackupDir, log); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "schema_version",
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Msg("Inventory repository initialized")

	return &repository{
		db:     db,
		logger: log,
		cfg:    cfg,
	}, nil
}

// Save replaces the stored snapshot.
func (r *repository) Save(ctx context.Context, s *Snapshot) error {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				r.logger.Error().Err(err).Msg("Failed to roll back transaction")
			}
		}
	}()

	for _, table := range dataTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if _, err := tx.ExecContext(ctx, insertSnapshotSQL, s.TakenAt.Unix(), s.ConfigPath); err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	for _, z := range s.Zones {
		if _, err := tx.ExecContext(ctx, insertZoneSQL, z.Index, z.Type); err != nil {
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
		for j, trip := range z.Trips {
			if _, err := tx.ExecContext(ctx, insertTripSQL, z.Index, j, trip); err != nil {
				return errFactory.Wrap(ErrTransactionFailed, err)
			}
		}
	}

	for _, d := range s.CoolingDevices {
		if _, err := tx.ExecContext(ctx, insertCoolingSQL, d.Index, d.Type); err != nil {
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	for _, d := range s.Devices {
		values := []interface{}{
			d.Slot, d.Name, d.Type, d.Index, boolToInt(d.Stub),
			d.Threshold, d.Shutdown, d.VRMin,
		}
		if _, err := tx.ExecContext(ctx, insertDeviceSQL, values...); err != nil {
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	committed = true

	r.logger.Debug().
		Int("zones", len(s.Zones)).
		Int("cooling_devices", len(s.CoolingDevices)).
		Int("devices", len(s.Devices)).
		Msg("Saved hardware inventory")

	return nil
}

// Load returns the stored snapshot, or nil if none was saved yet.
func (r *repository) Load(ctx context.Context) (*Snapshot, error) {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	var takenAt int64
	s := &Snapshot{}
	err := r.db.QueryRowContext(ctx, `SELECT taken_at, config_path FROM snapshot WHERE id = 1`).
		Scan(&takenAt, &s.ConfigPath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageRead, err)
	}
	s.TakenAt = time.Unix(takenAt, 0).UTC()

	if s.Zones, err = r.loadZones(ctx); err != nil {
		return nil, errFactory.Wrap(ErrStorageRead, err)
	}
	if s.CoolingDevices, err = r.loadCoolingDevices(ctx); err != nil {
		return nil, errFactory.Wrap(ErrStorageRead, err)
	}
	if s.Devices, err = r.loadDevices(ctx); err != nil {
		return nil, errFactory.Wrap(ErrStorageRead, err)
	}

	return s, nil
}

func (r *repository) loadZones(ctx context.Context) ([]sysfs.Zone, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT zone_index, type FROM zones ORDER BY zone_index`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []sysfs.Zone
	for rows.Next() {
		z := sysfs.Zone{Trips: []string{}}
		if err := rows.Scan(&z.Index, &z.Type); err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tripRows, err := r.db.QueryContext(ctx, `SELECT zone_index, type FROM trips ORDER BY zone_index, trip_index`)
	if err != nil {
		return nil, err
	}
	defer tripRows.Close()

	for tripRows.Next() {
		var zone int
		var tripType string
		if err := tripRows.Scan(&zone, &tripType); err != nil {
			return nil, err
		}
		for i := range zones {
			if zones[i].Index == zone {
				zones[i].Trips = append(zones[i].Trips, tripType)
			}
		}
	}

	return zones, tripRows.Err()
}

func (r *repository) loadCoolingDevices(ctx context.Context) ([]sysfs.CoolingDevice, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT device_index, type FROM cooling_devices ORDER BY device_index`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []sysfs.CoolingDevice
	for rows.Next() {
		var d sysfs.CoolingDevice
		if err := rows.Scan(&d.Index, &d.Type); err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}

	return devices, rows.Err()
}

func (r *repository) loadDevices(ctx context.Context) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT slot, name, type, kernel_index, stub, threshold, shutdown, vr_min
        FROM devices
        ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		var d Device
		var stub int
		var threshold, shutdown, vrMin sql.NullFloat64
		if err := rows.Scan(&d.Slot, &d.Name, &d.Type, &d.Index, &stub, &threshold, &shutdown, &vrMin); err != nil {
			return nil, err
		}
		d.Stub = stub != 0
		d.Threshold = threshold.Float64
		d.Shutdown = shutdown.Float64
		d.VRMin = vrMin.Float64
		devices = append(devices, d)
	}

	return devices, rows.Err()
}

func (r *repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "checkpoint_wal",
			Error: err.Error(),
		})
	}

	if err := r.db.Close(); err != nil {
		return errors.New().WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	r.logger.Info().Msg("Inventory repository closed")

	return nil
}
