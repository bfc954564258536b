package store

import (
	"github.com/kilianp07/islandsim/config"
	corestore "github.com/kilianp07/islandsim/core/store"
)

// New opens the store described by cfg. A jsonl store rotates when
// MaxSizeMB is set.
func New(cfg config.StoreConfig) (corestore.Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case "jsonl":
		if cfg.MaxSizeMB > 0 {
			return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		}
		return NewJSONLStore(cfg.Path)
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	}
	return corestore.Nop{}, nil
}
