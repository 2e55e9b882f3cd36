package errors_test

import (
	"fmt"
	"testing"

	"codeberg.org/mutker/thermald/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestFactoryMessages(t *testing.T) {
	errFactory := errors.New()

	err := errFactory.New(errors.ErrAlreadyRunning)
	assert.Equal(t, "Another instance is already running", err.Error())
	assert.Equal(t, errors.ErrAlreadyRunning, err.Code())

	wrapped := errFactory.Wrap(errors.ErrInitFailed, fmt.Errorf("boom"))
	assert.Equal(t, "Initialization failed: boom", wrapped.Error())

	custom := errFactory.WithMessage(errors.ErrInvalidConfig, "interval must be positive")
	assert.Equal(t, "interval must be positive", custom.Error())

	withData := wrapped.WithData("zone 3")
	assert.Equal(t, "Initialization failed: zone 3", withData.Error())
	assert.Equal(t, "zone 3", withData.GetData())
}

func TestCodeOfThroughWrapping(t *testing.T) {
	errFactory := errors.New()
	inner := errFactory.New(errors.ErrReadConfig)
	outer := fmt.Errorf("loading: %w", inner)

	assert.Equal(t, errors.ErrReadConfig, errors.CodeOf(outer))
	assert.True(t, errors.HasCode(outer, errors.ErrReadConfig))
	assert.False(t, errors.HasCode(outer, errors.ErrInternal))
	assert.Equal(t, errors.ErrorCode(""), errors.CodeOf(fmt.Errorf("plain")))
}

func TestHasCodeNested(t *testing.T) {
	errFactory := errors.New()
	inner := errFactory.New(errors.ErrInvalidInterval)
	outer := errFactory.Wrap(errors.ErrInvalidConfig, inner)

	assert.Equal(t, errors.ErrInvalidConfig, errors.CodeOf(outer))
	assert.True(t, errors.HasCode(outer, errors.ErrInvalidInterval))
}
