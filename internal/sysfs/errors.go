package sysfs

import "codeberg.org/mutker/thermald/internal/errors"

const (
	ErrIO           = errors.ErrorCode("sysfs_io_error")
	ErrInvalidValue = errors.ErrorCode("sysfs_invalid_value")
	ErrOutOfRange   = errors.ErrorCode("sysfs_index_out_of_range")
)
