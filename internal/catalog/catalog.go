// Package catalog discovers the visualizations shipped in the static dist
// directory by reading each one's metadata.toml.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"

	"github.com/dimalipin/netviz/internal/logging"
)

const (
	// Dir is the folder under the dist root holding one folder per visualization.
	Dir = "Visualizations"
	// MetadataFile is read from every visualization folder.
	MetadataFile = "metadata.toml"
	// MaxCards caps how many cards the landing page lists.
	MaxCards = 16
)

// ErrNoMetadata marks a visualization folder without metadata.toml.
var ErrNoMetadata = errors.New("no " + MetadataFile + " found")

// Card is one entry on the landing page.
type Card struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	Icon        string `json:"icon,omitempty"`
}

// Metadata mirrors metadata.toml.
type Metadata struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
}

// Catalog holds the cards found at load time. It is safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	cards    []Card
	problems *multierror.Error
}

// Load scans <distPath>/Visualizations. Folders with missing or invalid
// metadata are skipped and reported through Problems; only an unreadable
// Visualizations folder fails the load.
func Load(ctx context.Context, distPath string, log logging.Logger) (*Catalog, error) {
	if log == nil {
		log = logging.Noop()
	}
	vizPath := filepath.Join(distPath, Dir)
	entries, err := os.ReadDir(vizPath)
	if err != nil {
		return &Catalog{}, fmt.Errorf("read %s: %w", vizPath, err)
	}

	c := &Catalog{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		card, err := loadCard(vizPath, entry.Name())
		if err != nil {
			log.Warn(ctx, "skipping visualization",
				logging.String("id", entry.Name()),
				logging.Err(err),
			)
			c.problems = multierror.Append(c.problems, err)
			continue
		}
		log.Info(ctx, "loaded visualization",
			logging.String("id", card.ID),
			logging.String("title", card.Title),
			logging.String("icon", card.Icon),
		)
		c.cards = append(c.cards, card)
	}
	log.Info(ctx, "visualizations loaded", logging.Int("count", len(c.cards)))
	return c, nil
}

func loadCard(vizPath, id string) (Card, error) {
	metadataPath := filepath.Join(vizPath, id, MetadataFile)
	if _, err := os.Stat(metadataPath); errors.Is(err, fs.ErrNotExist) {
		return Card{}, fmt.Errorf("%s: %w", id, ErrNoMetadata)
	}

	var meta Metadata
	if _, err := toml.DecodeFile(metadataPath, &meta); err != nil {
		return Card{}, fmt.Errorf("%s: parse %s: %w", id, MetadataFile, err)
	}

	icon := ""
	if matches, err := filepath.Glob(filepath.Join(vizPath, id, "icon.*")); err == nil && len(matches) > 0 {
		icon = "/" + path.Join(Dir, id, filepath.Base(matches[0]))
	}

	return Card{
		ID:          id,
		Title:       meta.Title,
		Description: meta.Description,
		URL:         "/" + path.Join(Dir, id, "index.html"),
		Icon:        icon,
	}, nil
}

// Cards returns up to MaxCards cards in directory order.
func (c *Catalog) Cards() []Card {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := min(len(c.cards), MaxCards)
	out := make([]Card, n)
	copy(out, c.cards[:n])
	return out
}

// Len returns how many cards were loaded, including any beyond MaxCards.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cards)
}

// Problems aggregates every folder that was skipped, or nil.
func (c *Catalog) Problems() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.problems.ErrorOrNil()
}
