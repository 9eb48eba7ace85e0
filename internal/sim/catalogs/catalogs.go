package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrMissingCatalog is returned when a required content document is absent.
var ErrMissingCatalog = errors.New("missing catalog")

const (
	DailyTasksFile = "daily_tasks.json"
	ShopFile       = "maailma_shop.json"
	BuildingsFile  = "buildings.json"
)

type Catalogs struct {
	DailyTasks DailyTaskCatalog
	Shop       ShopCatalog
	Buildings  BuildingCatalog
}

// Load reads every content document from configDir. Individual malformed
// entries are normalized or dropped; only unreadable documents fail.
func Load(configDir string) (*Catalogs, error) {
	var c Catalogs

	raw, err := readRequired(filepath.Join(configDir, DailyTasksFile))
	if err != nil {
		return nil, err
	}
	if c.DailyTasks, err = ParseDailyTasks(raw); err != nil {
		return nil, fmt.Errorf("%s: %w", DailyTasksFile, err)
	}

	if raw, err = readRequired(filepath.Join(configDir, ShopFile)); err != nil {
		return nil, err
	}
	if c.Shop, err = ParseShop(raw); err != nil {
		return nil, fmt.Errorf("%s: %w", ShopFile, err)
	}

	if raw, err = readRequired(filepath.Join(configDir, BuildingsFile)); err != nil {
		return nil, err
	}
	if c.Buildings, err = ParseBuildings(raw); err != nil {
		return nil, fmt.Errorf("%s: %w", BuildingsFile, err)
	}
	return &c, nil
}

func readRequired(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrMissingCatalog)
		}
		return nil, err
	}
	return raw, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
