package oracle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	domainoracle "estateoracle/internal/domain/oracle"
	"estateoracle/internal/errs"
)

const watchlistVersion = 1

type WatchedProperty struct {
	ID          string `toml:"id"`
	Location    string `toml:"location"`
	Description string `toml:"description"`
	Size        string `toml:"size"`
	// AutoUpdate defaults to true when omitted.
	AutoUpdate *bool `toml:"auto_update"`
}

func (p WatchedProperty) AutoUpdateEnabled() bool {
	return p.AutoUpdate == nil || *p.AutoUpdate
}

type Watchlist struct {
	Version    int               `toml:"version"`
	Properties []WatchedProperty `toml:"property"`
}

// LoadWatchlist reads and validates a watchlist file. Ids are normalised; the
// first entry wins when an id repeats. A missing file is an empty watchlist.
func LoadWatchlist(path string) (Watchlist, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return Watchlist{}, errors.New("watchlist file is required")
	}

	raw, err := os.ReadFile(filepath.Clean(trimmed))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Watchlist{Version: watchlistVersion}, nil
		}
		return Watchlist{}, errs.Wrapf(err, "read watchlist %s", trimmed)
	}
	return ParseWatchlist(raw)
}

func ParseWatchlist(raw []byte) (Watchlist, error) {
	var list Watchlist
	if err := toml.Unmarshal(raw, &list); err != nil {
		return Watchlist{}, errs.Wrap(err, "decode watchlist")
	}
	if list.Version == 0 {
		list.Version = watchlistVersion
	}
	if list.Version != watchlistVersion {
		return Watchlist{}, fmt.Errorf("unsupported watchlist version %d", list.Version)
	}

	seen := make(map[string]struct{}, len(list.Properties))
	properties := make([]WatchedProperty, 0, len(list.Properties))
	for i, property := range list.Properties {
		id, err := domainoracle.NormalizeEntityID(property.ID)
		if err != nil {
			return Watchlist{}, fmt.Errorf("watchlist property #%d: %w", i+1, err)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		property.ID = id
		property.Location = strings.TrimSpace(property.Location)
		property.Size = strings.TrimSpace(property.Size)
		properties = append(properties, property)
	}
	sort.SliceStable(properties, func(i, j int) bool {
		return lessEntityID(properties[i].ID, properties[j].ID)
	})
	list.Properties = properties
	return list, nil
}

func lessEntityID(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
