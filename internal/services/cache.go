package services

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const cacheVersion = "v2"

var errCacheDisabled = errors.New("cache disabled")

func (d *Dashboard) cacheFilename(ordersPath, paymentsPath string) string {
	key := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(ordersPath + "+" + paymentsPath)
	return filepath.Join(d.cacheDir, fmt.Sprintf("%s_%s.gob", key, cacheVersion))
}

func (d *Dashboard) saveToCache(ordersPath, paymentsPath string, data *dataset) error {
	if d.cacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(d.cacheDir, 0o755); err != nil {
		return err
	}

	file, err := os.Create(d.cacheFilename(ordersPath, paymentsPath))
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewEncoder(file).Encode(data)
}

// loadFromCache returns the cached dataset when it is newer than both
// source files.
func (d *Dashboard) loadFromCache(ordersPath, paymentsPath string) (*dataset, error) {
	if d.cacheDir == "" {
		return nil, errCacheDisabled
	}

	file, err := os.Open(d.cacheFilename(ordersPath, paymentsPath))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var data dataset
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, err
	}

	for _, source := range []string{ordersPath, paymentsPath} {
		info, err := os.Stat(source)
		if err != nil {
			return nil, err
		}
		if !info.ModTime().Before(data.LastModified) {
			return nil, fmt.Errorf("cache older than %s", source)
		}
	}
	return &data, nil
}
