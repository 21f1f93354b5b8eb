// Package catalog holds the static reference data loaded once at startup:
// the canonical checkpoint sequence and the tamper thresholds per package type.
package catalog

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"veriseal/internal/custody/models"
	id "veriseal/pkg/domain"
	dErrors "veriseal/pkg/domain-errors"
	pstrings "veriseal/pkg/platform/strings"
)

// CheckpointSpec is one catalog checkpoint as written in the YAML file.
type CheckpointSpec struct {
	ID            string `yaml:"id"`
	DisplayName   string `yaml:"display_name"`
	LocationLabel string `yaml:"location_label"`
}

// PackageSpec is one package type with its tamper thresholds.
type PackageSpec struct {
	Type              string `yaml:"type"`
	Label             string `yaml:"label"`
	models.Thresholds `yaml:",inline"`
}

// File is the YAML document layout.
type File struct {
	Checkpoints  []CheckpointSpec `yaml:"checkpoints"`
	PackageTypes []PackageSpec    `yaml:"package_types"`
}

// Catalog is immutable after construction and safe for concurrent use.
type Catalog struct {
	checkpoints []models.Checkpoint
	byID        map[id.CheckpointID]models.Checkpoint
	packages    map[id.PackageType]PackageSpec
}

// Load reads a catalog from a YAML file. An empty path yields Default().
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML catalog document.
func Parse(raw []byte) (*Catalog, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(f)
}

// New validates f and builds a catalog. Checkpoints keep file order, which is
// the canonical route order.
func New(f File) (*Catalog, error) {
	if len(f.Checkpoints) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "catalog must define at least one checkpoint")
	}
	if len(f.PackageTypes) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "catalog must define at least one package type")
	}

	ids := make([]string, len(f.Checkpoints))
	for i, cp := range f.Checkpoints {
		ids[i] = cp.ID
	}
	if dup, ok := pstrings.FirstDuplicate(ids); ok {
		return nil, dErrors.New(dErrors.CodeValidation, "duplicate checkpoint "+dup)
	}

	c := &Catalog{
		checkpoints: make([]models.Checkpoint, 0, len(f.Checkpoints)),
		byID:        make(map[id.CheckpointID]models.Checkpoint, len(f.Checkpoints)),
		packages:    make(map[id.PackageType]PackageSpec, len(f.PackageTypes)),
	}
	for i, spec := range f.Checkpoints {
		cpID, err := id.ParseCheckpointID(spec.ID)
		if err != nil {
			return nil, err
		}
		cp := models.Checkpoint{
			ID:            cpID,
			DisplayName:   spec.DisplayName,
			LocationLabel: spec.LocationLabel,
			SequenceIndex: i,
		}
		c.checkpoints = append(c.checkpoints, cp)
		c.byID[cpID] = cp
	}
	for _, spec := range f.PackageTypes {
		pt, err := id.ParsePackageType(spec.Type)
		if err != nil {
			return nil, err
		}
		if _, exists := c.packages[pt]; exists {
			return nil, dErrors.New(dErrors.CodeValidation, "duplicate package type "+pt.String())
		}
		if spec.TempMin > spec.TempMax {
			return nil, dErrors.New(dErrors.CodeValidation, "package type "+pt.String()+": temp_min exceeds temp_max")
		}
		if spec.ShockThreshold <= 0 {
			return nil, dErrors.New(dErrors.CodeValidation, "package type "+pt.String()+": shock_threshold must be positive")
		}
		spec.Type = pt.String()
		c.packages[pt] = spec
	}
	return c, nil
}

// Checkpoints returns the canonical checkpoint sequence.
func (c *Catalog) Checkpoints() []models.Checkpoint {
	return append([]models.Checkpoint(nil), c.checkpoints...)
}

// Checkpoint looks up a catalog checkpoint.
func (c *Catalog) Checkpoint(cpID id.CheckpointID) (models.Checkpoint, bool) {
	cp, ok := c.byID[cpID]
	return cp, ok
}

// Thresholds implements policy.ThresholdSource.
func (c *Catalog) Thresholds(pt id.PackageType) (models.Thresholds, bool) {
	spec, ok := c.packages[pt]
	if !ok {
		return models.Thresholds{}, false
	}
	return spec.Thresholds, true
}

// HasPackageType reports whether pt is declared in the catalog.
func (c *Catalog) HasPackageType(pt id.PackageType) bool {
	_, ok := c.packages[pt]
	return ok
}

// PackageTypes returns the declared package types sorted by name.
func (c *Catalog) PackageTypes() []PackageSpec {
	out := make([]PackageSpec, 0, len(c.packages))
	for _, spec := range c.packages {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// BuildRoute resolves checkpoint IDs into a shipment route. The IDs must be an
// ordered subsequence of the catalog; stops are re-indexed 0..n-1. An empty
// list selects the full catalog sequence.
func (c *Catalog) BuildRoute(ids []string) (models.Route, error) {
	if len(ids) == 0 {
		route := make(models.Route, len(c.checkpoints))
		copy(route, c.checkpoints)
		return route, nil
	}
	if dup, ok := pstrings.FirstDuplicate(ids); ok {
		return nil, dErrors.New(dErrors.CodeValidation, "route visits checkpoint "+dup+" more than once")
	}

	route := make(models.Route, 0, len(ids))
	lastCatalogIndex := -1
	for i, raw := range ids {
		cpID, err := id.ParseCheckpointID(raw)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid route checkpoint")
		}
		cp, ok := c.byID[cpID]
		if !ok {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown checkpoint "+cpID.String())
		}
		if cp.SequenceIndex <= lastCatalogIndex {
			return nil, dErrors.New(dErrors.CodeValidation, "route must follow catalog order")
		}
		lastCatalogIndex = cp.SequenceIndex
		cp.SequenceIndex = i
		route = append(route, cp)
	}
	return route, nil
}
