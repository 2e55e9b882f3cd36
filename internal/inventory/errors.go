package inventory

import "codeberg.org/mutker/thermald/internal/errors"

const (
	// Configuration Errors
	ErrInvalidDBPath = errors.ErrorCode("inventory_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("inventory_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("inventory_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("inventory_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("inventory_transaction_failed")

	// Storage Errors
	ErrStorageInit  = errors.ErrInitFailed
	ErrStorageRead  = errors.ErrorCode("inventory_storage_read_failed")
	ErrStorageClose = errors.ErrShutdownFailed
)
