// Package seed loads maintenance-type catalogs from YAML and writes them to
// the store.
package seed

import (
	"context"
	_ "embed"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/pavemetrics/asset-cli/internal/model"
	"github.com/pavemetrics/asset-cli/internal/store"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Entry is one maintenance type in a catalog file.
type Entry struct {
	Category             string  `yaml:"category"`
	Name                 string  `yaml:"name"`
	CostPerMile          float64 `yaml:"cost_per_mile"`
	ConditionImprovement int     `yaml:"condition_improvement"`
	MinCondition         int     `yaml:"min_condition"`
	MaxCondition         int     `yaml:"max_condition"`
}

// Catalog is a set of maintenance types to seed for a tenant.
type Catalog struct {
	Types []Entry `yaml:"maintenance_types"`
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "seed: read catalog %s", path)
	}
	return parse(data)
}

// Default returns the built-in catalog of standard treatments.
func Default() *Catalog {
	c, err := parse(defaultCatalog)
	if err != nil {
		// The embedded catalog is validated by tests; a parse failure here is
		// a build defect.
		panic(err)
	}
	return c
}

func parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "seed: parse catalog")
	}
	if len(c.Types) == 0 {
		return nil, eris.New("seed: catalog has no maintenance types")
	}
	for _, e := range c.Types {
		if err := validate(e); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func validate(e Entry) error {
	if _, ok := model.ParseCategory(e.Category); !ok {
		return eris.Errorf("seed: unknown category %q for %q", e.Category, e.Name)
	}
	if e.Name == "" {
		return eris.New("seed: maintenance type missing name")
	}
	if e.CostPerMile <= 0 {
		return eris.Errorf("seed: %q cost_per_mile must be positive", e.Name)
	}
	if e.ConditionImprovement <= 0 {
		return eris.Errorf("seed: %q condition_improvement must be positive", e.Name)
	}
	if e.MinCondition < 0 || e.MaxCondition > 100 || e.MinCondition > e.MaxCondition {
		return eris.Errorf("seed: %q condition range [%d,%d] invalid", e.Name, e.MinCondition, e.MaxCondition)
	}
	return nil
}

// Apply upserts every catalog entry for the tenant and returns the count.
func (c *Catalog) Apply(ctx context.Context, s store.Store, tenantID string) (int, error) {
	for _, e := range c.Types {
		cat, _ := model.ParseCategory(e.Category)
		mt := model.MaintenanceType{
			TenantID:             tenantID,
			Category:             cat,
			Name:                 e.Name,
			CostPerMile:          e.CostPerMile,
			ConditionImprovement: e.ConditionImprovement,
			MinCondition:         e.MinCondition,
			MaxCondition:         e.MaxCondition,
		}
		if _, err := s.UpsertMaintenanceType(ctx, mt); err != nil {
			return 0, eris.Wrapf(err, "seed: upsert %q", e.Name)
		}
		zap.L().Debug("seeded maintenance type",
			zap.String("tenant", tenantID),
			zap.String("category", e.Category),
			zap.String("name", e.Name),
		)
	}
	return len(c.Types), nil
}
