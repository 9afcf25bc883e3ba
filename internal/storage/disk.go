package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"storefront-assistant/pkg/logger"
)

const valueExt = ".json"

// DiskStorage keeps one file per key under <dataDir>/kv and mirrors
// values in memory. Writes go through a temp file and a rename.
type DiskStorage struct {
	dataDir string
	mu      sync.RWMutex
	cache   map[string]string
}

func NewDiskStorage(dataDir string) *DiskStorage {
	return &DiskStorage{
		dataDir: dataDir,
		cache:   make(map[string]string),
	}
}

func (d *DiskStorage) Init() error {
	if err := d.createDirectories(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	if err := d.loadValues(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageInit, err)
	}

	logger.Infof("Disk storage initialized at %s", d.dataDir)
	return nil
}

func (d *DiskStorage) valuesDir() string {
	return filepath.Join(d.dataDir, "kv")
}

func (d *DiskStorage) valuePath(key string) string {
	return filepath.Join(d.valuesDir(), key+valueExt)
}

func (d *DiskStorage) createDirectories() error {
	dirs := []string{
		d.dataDir,
		d.valuesDir(),
		filepath.Join(d.dataDir, "backup"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	return nil
}

func (d *DiskStorage) loadValues() error {
	files, err := os.ReadDir(d.valuesDir())
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != valueExt {
			continue
		}

		key := strings.TrimSuffix(file.Name(), valueExt)
		data, err := os.ReadFile(filepath.Join(d.valuesDir(), file.Name()))
		if err != nil {
			logger.Errorf("Failed to load value %s: %v", key, err)
			continue
		}
		d.cache[key] = string(data)
	}

	return nil
}

func (d *DiskStorage) Get(_ context.Context, key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	d.mu.RLock()
	if value, exists := d.cache[key]; exists {
		d.mu.RUnlock()
		return value, nil
	}
	d.mu.RUnlock()

	data, err := os.ReadFile(d.valuePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrKeyNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.mu.Lock()
	d.cache[key] = string(data)
	d.mu.Unlock()

	return string(data), nil
}

func (d *DiskStorage) Set(_ context.Context, key, value string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	path := d.valuePath(key)
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, []byte(value), 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	d.cache[key] = value
	return nil
}

func (d *DiskStorage) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.Remove(d.valuePath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	delete(d.cache, key)
	return nil
}

func (d *DiskStorage) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cache = make(map[string]string)
	return nil
}

// Backup copies every stored value into backup/backup_<unix>/kv.
func (d *DiskStorage) Backup() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	backupDir := filepath.Join(d.dataDir, "backup", fmt.Sprintf("backup_%d", time.Now().UnixNano()))
	dstDir := filepath.Join(backupDir, "kv")

	if err := os.MkdirAll(dstDir, 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	if err := d.copyDir(d.valuesDir(), dstDir); err != nil {
		return fmt.Errorf("%w: %v", ErrFileOperation, err)
	}

	logger.Infof("Backup completed: %s", backupDir)
	return nil
}

func (d *DiskStorage) copyDir(src, dst string) error {
	files, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != valueExt {
			continue
		}

		data, err := os.ReadFile(filepath.Join(src, file.Name()))
		if err != nil {
			return err
		}

		if err := os.WriteFile(filepath.Join(dst, file.Name()), data, 0644); err != nil {
			return err
		}
	}

	return nil
}
