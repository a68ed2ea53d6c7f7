package store

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/pavemetrics/asset-cli/internal/db"
	"github.com/pavemetrics/asset-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool; used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS road_assets (
	id             BIGSERIAL PRIMARY KEY,
	tenant_id      TEXT NOT NULL,
	name           TEXT NOT NULL,
	location       TEXT NOT NULL DEFAULT '',
	surface_type   TEXT NOT NULL,
	condition      INTEGER NOT NULL CHECK (condition BETWEEN 0 AND 100),
	length_miles   DOUBLE PRECISION NOT NULL,
	latitude       DOUBLE PRECISION NOT NULL DEFAULT 0,
	longitude      DOUBLE PRECISION NOT NULL DEFAULT 0,
	last_inspected TIMESTAMPTZ,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS maintenance_types (
	id                    BIGSERIAL PRIMARY KEY,
	tenant_id             TEXT NOT NULL,
	category              TEXT NOT NULL,
	name                  TEXT NOT NULL,
	cost_per_mile         DOUBLE PRECISION NOT NULL,
	condition_improvement INTEGER NOT NULL,
	min_condition         INTEGER NOT NULL,
	max_condition         INTEGER NOT NULL,
	UNIQUE (tenant_id, category, name)
);

CREATE TABLE IF NOT EXISTS budget_allocations (
	id                     TEXT PRIMARY KEY,
	tenant_id              TEXT NOT NULL,
	fiscal_year            INTEGER NOT NULL,
	total_budget           DOUBLE PRECISION NOT NULL,
	preventive_maintenance DOUBLE PRECISION NOT NULL DEFAULT 0,
	minor_rehabilitation   DOUBLE PRECISION NOT NULL DEFAULT 0,
	major_rehabilitation   DOUBLE PRECISION NOT NULL DEFAULT 0,
	reconstruction         DOUBLE PRECISION NOT NULL DEFAULT 0,
	active                 BOOLEAN NOT NULL DEFAULT false,
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS moisture_readings (
	id            BIGSERIAL PRIMARY KEY,
	tenant_id     TEXT NOT NULL,
	road_asset_id BIGINT NOT NULL REFERENCES road_assets(id),
	latitude      DOUBLE PRECISION NOT NULL,
	longitude     DOUBLE PRECISION NOT NULL,
	reading_value DOUBLE PRECISION NOT NULL,
	reading_date  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_road_assets_tenant ON road_assets(tenant_id);
CREATE INDEX IF NOT EXISTS idx_road_assets_condition ON road_assets(tenant_id, condition);
CREATE INDEX IF NOT EXISTS idx_maintenance_types_tenant ON maintenance_types(tenant_id);
CREATE INDEX IF NOT EXISTS idx_budget_allocations_tenant ON budget_allocations(tenant_id, fiscal_year);
CREATE INDEX IF NOT EXISTS idx_moisture_readings_asset ON moisture_readings(tenant_id, road_asset_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.closeFn()
	return nil
}

func (s *PostgresStore) CreateAsset(ctx context.Context, a model.RoadAsset) (*model.RoadAsset, error) {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	err := s.pool.QueryRow(ctx,
		`INSERT INTO road_assets (tenant_id, name, location, surface_type, condition, length_miles, latitude, longitude, last_inspected, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		a.TenantID, a.Name, a.Location, string(a.SurfaceType), a.Condition, a.LengthMiles,
		a.Latitude, a.Longitude, a.LastInspected, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert asset")
	}
	return &a, nil
}

func (s *PostgresStore) GetAsset(ctx context.Context, tenantID string, id int64) (*model.RoadAsset, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, name, location, surface_type, condition, length_miles, latitude, longitude, last_inspected, created_at, updated_at
		 FROM road_assets WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	)
	return scanAssetPgx(row)
}

func (s *PostgresStore) UpdateAsset(ctx context.Context, a model.RoadAsset) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE road_assets SET name = $1, location = $2, surface_type = $3, condition = $4, length_miles = $5, latitude = $6, longitude = $7, last_inspected = $8, updated_at = $9
		 WHERE tenant_id = $10 AND id = $11`,
		a.Name, a.Location, string(a.SurfaceType), a.Condition, a.LengthMiles,
		a.Latitude, a.Longitude, a.LastInspected, time.Now().UTC(),
		a.TenantID, a.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update asset %d", a.ID)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteAsset(ctx context.Context, tenantID string, id int64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM road_assets WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete asset %d", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListAssets(ctx context.Context, filter AssetFilter) ([]model.RoadAsset, error) {
	query := `SELECT id, tenant_id, name, location, surface_type, condition, length_miles, latitude, longitude, last_inspected, created_at, updated_at
	          FROM road_assets WHERE tenant_id = $1`
	args := []any{filter.TenantID}

	if filter.SurfaceType != "" {
		args = append(args, string(filter.SurfaceType))
		query += ` AND surface_type = $` + strconv.Itoa(len(args))
	}
	if filter.MaxCondition > 0 {
		args = append(args, filter.MaxCondition)
		query += ` AND condition <= $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list assets")
	}
	defer rows.Close()

	var assets []model.RoadAsset
	for rows.Next() {
		a, err := scanAssetPgx(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}
	return assets, eris.Wrap(rows.Err(), "postgres: list assets iterate")
}

func (s *PostgresStore) BulkInsertAssets(ctx context.Context, assets []model.RoadAsset) (int, error) {
	if len(assets) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(assets))
	for _, a := range assets {
		rows = append(rows, []any{
			a.TenantID, a.Name, a.Location, string(a.SurfaceType), a.Condition,
			a.LengthMiles, a.Latitude, a.Longitude, a.LastInspected, now, now,
		})
	}

	n, err := db.CopyFrom(ctx, s.pool, "road_assets", []string{
		"tenant_id", "name", "location", "surface_type", "condition",
		"length_miles", "latitude", "longitude", "last_inspected", "created_at", "updated_at",
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: bulk insert assets")
	}
	return int(n), nil
}

func (s *PostgresStore) UpsertMaintenanceType(ctx context.Context, mt model.MaintenanceType) (*model.MaintenanceType, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO maintenance_types (tenant_id, category, name, cost_per_mile, condition_improvement, min_condition, max_condition)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (tenant_id, category, name) DO UPDATE SET
		   cost_per_mile = EXCLUDED.cost_per_mile,
		   condition_improvement = EXCLUDED.condition_improvement,
		   min_condition = EXCLUDED.min_condition,
		   max_condition = EXCLUDED.max_condition
		 RETURNING id`,
		mt.TenantID, mt.Category.String(), mt.Name, mt.CostPerMile,
		mt.ConditionImprovement, mt.MinCondition, mt.MaxCondition,
	).Scan(&mt.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert maintenance type %q", mt.Name)
	}
	return &mt, nil
}

func (s *PostgresStore) ListMaintenanceTypes(ctx context.Context, tenantID string) ([]model.MaintenanceType, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, category, name, cost_per_mile, condition_improvement, min_condition, max_condition
		 FROM maintenance_types WHERE tenant_id = $1 ORDER BY id`,
		tenantID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list maintenance types")
	}
	defer rows.Close()

	var types []model.MaintenanceType
	for rows.Next() {
		var mt model.MaintenanceType
		var category string
		if err := rows.Scan(&mt.ID, &mt.TenantID, &category, &mt.Name,
			&mt.CostPerMile, &mt.ConditionImprovement, &mt.MinCondition, &mt.MaxCondition); err != nil {
			return nil, eris.Wrap(err, "postgres: scan maintenance type")
		}
		cat, ok := model.ParseCategory(category)
		if !ok {
			return nil, eris.Errorf("postgres: unknown maintenance category %q", category)
		}
		mt.Category = cat
		types = append(types, mt)
	}
	return types, eris.Wrap(rows.Err(), "postgres: list maintenance types iterate")
}

func (s *PostgresStore) CreateAllocation(ctx context.Context, b model.BudgetAllocation) (*model.BudgetAllocation, error) {
	b.ID = uuid.New().String()
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	_, err := s.pool.Exec(ctx,
		`INSERT INTO budget_allocations (id, tenant_id, fiscal_year, total_budget, preventive_maintenance, minor_rehabilitation, major_rehabilitation, reconstruction, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		b.ID, b.TenantID, b.FiscalYear, b.TotalBudget,
		b.PreventiveMaintenance, b.MinorRehabilitation, b.MajorRehabilitation, b.Reconstruction,
		b.Active, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert allocation")
	}
	return &b, nil
}

func (s *PostgresStore) GetAllocation(ctx context.Context, tenantID, id string) (*model.BudgetAllocation, error) {
	row := s.pool.QueryRow(ctx,
		pgAllocationSelect+` WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	)
	return scanAllocationPgx(row)
}

func (s *PostgresStore) ListAllocations(ctx context.Context, tenantID string) ([]model.BudgetAllocation, error) {
	rows, err := s.pool.Query(ctx,
		pgAllocationSelect+` WHERE tenant_id = $1 ORDER BY fiscal_year DESC, created_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list allocations")
	}
	defer rows.Close()

	var allocs []model.BudgetAllocation
	for rows.Next() {
		b, err := scanAllocationPgx(rows)
		if err != nil {
			return nil, err
		}
		allocs = append(allocs, *b)
	}
	return allocs, eris.Wrap(rows.Err(), "postgres: list allocations iterate")
}

func (s *PostgresStore) ActiveAllocation(ctx context.Context, tenantID string, fiscalYear int) (*model.BudgetAllocation, error) {
	row := s.pool.QueryRow(ctx,
		pgAllocationSelect+` WHERE tenant_id = $1 AND fiscal_year = $2 AND active LIMIT 1`,
		tenantID, fiscalYear,
	)
	return scanAllocationPgx(row)
}

func (s *PostgresStore) SetActiveAllocation(ctx context.Context, tenantID, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin activate allocation")
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	if _, err := tx.Exec(ctx,
		`UPDATE budget_allocations SET active = false, updated_at = $1
		 WHERE tenant_id = $2 AND fiscal_year = (SELECT fiscal_year FROM budget_allocations WHERE tenant_id = $2 AND id = $3)`,
		now, tenantID, id,
	); err != nil {
		return eris.Wrap(err, "postgres: deactivate allocations")
	}

	tag, err := tx.Exec(ctx,
		`UPDATE budget_allocations SET active = true, updated_at = $1 WHERE tenant_id = $2 AND id = $3`,
		now, tenantID, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: activate allocation %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit activate allocation")
}

func (s *PostgresStore) BulkInsertReadings(ctx context.Context, readings []model.MoistureReading) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(readings))
	for _, r := range readings {
		rows = append(rows, []any{
			r.TenantID, r.RoadAssetID, r.Latitude, r.Longitude, r.ReadingValue, r.ReadingDate.UTC(),
		})
	}

	n, err := db.CopyFrom(ctx, s.pool, "moisture_readings", []string{
		"tenant_id", "road_asset_id", "latitude", "longitude", "reading_value", "reading_date",
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: bulk insert readings")
	}
	return int(n), nil
}

func (s *PostgresStore) ListReadings(ctx context.Context, tenantID string, assetID int64, limit int) ([]model.MoistureReading, error) {
	query := `SELECT id, tenant_id, road_asset_id, latitude, longitude, reading_value, reading_date
	          FROM moisture_readings WHERE tenant_id = $1`
	args := []any{tenantID}

	if assetID > 0 {
		args = append(args, assetID)
		query += ` AND road_asset_id = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY reading_date DESC`

	if limit <= 0 {
		limit = 1000
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list readings")
	}
	defer rows.Close()

	var readings []model.MoistureReading
	for rows.Next() {
		var r model.MoistureReading
		if err := rows.Scan(&r.ID, &r.TenantID, &r.RoadAssetID, &r.Latitude, &r.Longitude, &r.ReadingValue, &r.ReadingDate); err != nil {
			return nil, eris.Wrap(err, "postgres: scan reading")
		}
		readings = append(readings, r)
	}
	return readings, eris.Wrap(rows.Err(), "postgres: list readings iterate")
}

// helpers

const pgAllocationSelect = `SELECT id, tenant_id, fiscal_year, total_budget, preventive_maintenance, minor_rehabilitation, major_rehabilitation, reconstruction, active, created_at, updated_at FROM budget_allocations`

func scanAssetPgx(row pgx.Row) (*model.RoadAsset, error) {
	var a model.RoadAsset
	var surface string

	err := row.Scan(&a.ID, &a.TenantID, &a.Name, &a.Location, &surface, &a.Condition,
		&a.LengthMiles, &a.Latitude, &a.Longitude, &a.LastInspected, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "postgres: scan asset")
	}

	a.SurfaceType = model.SurfaceType(surface)
	return &a, nil
}

func scanAllocationPgx(row pgx.Row) (*model.BudgetAllocation, error) {
	var b model.BudgetAllocation

	err := row.Scan(&b.ID, &b.TenantID, &b.FiscalYear, &b.TotalBudget,
		&b.PreventiveMaintenance, &b.MinorRehabilitation, &b.MajorRehabilitation, &b.Reconstruction,
		&b.Active, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "postgres: scan allocation")
	}
	return &b, nil
}
