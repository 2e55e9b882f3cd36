package thermalconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"codeberg.org/mutker/thermald/internal/errors"
	"codeberg.org/mutker/thermald/internal/logger"
)

// DefaultProduct is used when no product identifier is configured.
const DefaultProduct = "generic"

// DefaultDirs lists the base directories searched for the document, in order.
var DefaultDirs = []string{"/vendor/etc", "/system/etc"}

// FileName returns the document name for a product identifier.
func FileName(product string) string {
	if product == "" {
		product = DefaultProduct
	}

	return fmt.Sprintf("thermal.%s.xml", product)
}

// Locate returns the first existing document for product in dirs.
func Locate(product string, dirs []string) (string, error) {
	errFactory := errors.New()
	name := FileName(product)

	tried := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		tried = append(tried, path)
	}

	return "", errFactory.WithData(ErrConfigNotFound, tried)
}

// Load locates and parses the configuration document for product.
// It returns the parsed store together with the path it was read from.
func Load(product string, dirs []string, log logger.Logger) (*Store, string, error) {
	errFactory := errors.New()

	path, err := Locate(product, dirs)
	if err != nil {
		return nil, "", err
	}

	log.Debug().Str("path", path).Msg("Reading configuration")

	f, err := os.Open(path)
	if err != nil {
		return nil, path, errFactory.Wrap(ErrReadConfig, err)
	}
	defer f.Close()

	store, err := NewParser(ThermalGrammar(), log).Parse(f)
	if err != nil {
		return nil, path, err
	}

	log.Info().
		Str("path", path).
		Int("devices", store.Len()).
		Msg("Configuration loaded")

	return store, path, nil
}
