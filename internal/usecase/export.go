package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hipstersmoothie/pitchforkify/internal/domain"
	"github.com/hipstersmoothie/pitchforkify/internal/ports"
)

// Exporter dumps the named entities to JSON files for downstream tooling.
type Exporter struct {
	lister ports.EntityLister
	logger *slog.Logger
}

// NewExporter wires the entity lister.
func NewExporter(lister ports.EntityLister, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{lister: lister, logger: logger}
}

// Export writes genres.json as a list of names, and labels.json and
// artists.json as lists of {id, name}.
func (e *Exporter) Export(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	for _, rel := range domain.Relations {
		entities, err := e.lister.ListEntities(ctx, rel)
		if err != nil {
			return fmt.Errorf("list %s: %w", rel, err)
		}

		var payload any = entities
		if rel == domain.RelationGenres {
			names := make([]string, 0, len(entities))
			for _, g := range entities {
				names = append(names, g.Name)
			}
			payload = names
		} else if entities == nil {
			payload = []domain.NamedEntity{}
		}

		path := filepath.Join(dir, string(rel)+".json")
		if err := writeJSON(path, payload); err != nil {
			return err
		}
		e.logger.Info("exported", "relation", rel, "count", len(entities), "path", path)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
