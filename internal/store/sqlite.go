package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/pavemetrics/asset-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS road_assets (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	tenant_id      TEXT NOT NULL,
	name           TEXT NOT NULL,
	location       TEXT NOT NULL DEFAULT '',
	surface_type   TEXT NOT NULL,
	condition      INTEGER NOT NULL CHECK (condition BETWEEN 0 AND 100),
	length_miles   REAL NOT NULL,
	latitude       REAL NOT NULL DEFAULT 0,
	longitude      REAL NOT NULL DEFAULT 0,
	last_inspected DATETIME,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS maintenance_types (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	tenant_id             TEXT NOT NULL,
	category              TEXT NOT NULL,
	name                  TEXT NOT NULL,
	cost_per_mile         REAL NOT NULL,
	condition_improvement INTEGER NOT NULL,
	min_condition         INTEGER NOT NULL,
	max_condition         INTEGER NOT NULL,
	UNIQUE (tenant_id, category, name)
);

CREATE TABLE IF NOT EXISTS budget_allocations (
	id                     TEXT PRIMARY KEY,
	tenant_id              TEXT NOT NULL,
	fiscal_year            INTEGER NOT NULL,
	total_budget           REAL NOT NULL,
	preventive_maintenance REAL NOT NULL DEFAULT 0,
	minor_rehabilitation   REAL NOT NULL DEFAULT 0,
	major_rehabilitation   REAL NOT NULL DEFAULT 0,
	reconstruction         REAL NOT NULL DEFAULT 0,
	active                 INTEGER NOT NULL DEFAULT 0,
	created_at             DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at             DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS moisture_readings (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	tenant_id     TEXT NOT NULL,
	road_asset_id INTEGER NOT NULL REFERENCES road_assets(id),
	latitude      REAL NOT NULL,
	longitude     REAL NOT NULL,
	reading_value REAL NOT NULL,
	reading_date  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_road_assets_tenant ON road_assets(tenant_id);
CREATE INDEX IF NOT EXISTS idx_road_assets_condition ON road_assets(tenant_id, condition);
CREATE INDEX IF NOT EXISTS idx_maintenance_types_tenant ON maintenance_types(tenant_id);
CREATE INDEX IF NOT EXISTS idx_budget_allocations_tenant ON budget_allocations(tenant_id, fiscal_year);
CREATE INDEX IF NOT EXISTS idx_moisture_readings_asset ON moisture_readings(tenant_id, road_asset_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateAsset(ctx context.Context, a model.RoadAsset) (*model.RoadAsset, error) {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO road_assets (tenant_id, name, location, surface_type, condition, length_miles, latitude, longitude, last_inspected, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.TenantID, a.Name, a.Location, string(a.SurfaceType), a.Condition, a.LengthMiles,
		a.Latitude, a.Longitude, nullTime(a.LastInspected), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert asset")
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: asset last insert id")
	}
	a.ID = id
	return &a, nil
}

func (s *SQLiteStore) GetAsset(ctx context.Context, tenantID string, id int64) (*model.RoadAsset, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, location, surface_type, condition, length_miles, latitude, longitude, last_inspected, created_at, updated_at
		 FROM road_assets WHERE tenant_id = ? AND id = ?`,
		tenantID, id,
	)
	return scanAsset(row)
}

func (s *SQLiteStore) UpdateAsset(ctx context.Context, a model.RoadAsset) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE road_assets SET name = ?, location = ?, surface_type = ?, condition = ?, length_miles = ?, latitude = ?, longitude = ?, last_inspected = ?, updated_at = ?
		 WHERE tenant_id = ? AND id = ?`,
		a.Name, a.Location, string(a.SurfaceType), a.Condition, a.LengthMiles,
		a.Latitude, a.Longitude, nullTime(a.LastInspected), time.Now().UTC(),
		a.TenantID, a.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update asset %d", a.ID)
	}
	return checkRowsAffected(res)
}

func (s *SQLiteStore) DeleteAsset(ctx context.Context, tenantID string, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM road_assets WHERE tenant_id = ? AND id = ?`,
		tenantID, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete asset %d", id)
	}
	return checkRowsAffected(res)
}

func (s *SQLiteStore) ListAssets(ctx context.Context, filter AssetFilter) ([]model.RoadAsset, error) {
	query := `SELECT id, tenant_id, name, location, surface_type, condition, length_miles, latitude, longitude, last_inspected, created_at, updated_at
	          FROM road_assets WHERE tenant_id = ?`
	args := []any{filter.TenantID}

	if filter.SurfaceType != "" {
		query += ` AND surface_type = ?`
		args = append(args, string(filter.SurfaceType))
	}
	if filter.MaxCondition > 0 {
		query += ` AND condition <= ?`
		args = append(args, filter.MaxCondition)
	}
	query += ` ORDER BY id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list assets")
	}
	defer rows.Close()

	var assets []model.RoadAsset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}
	return assets, eris.Wrap(rows.Err(), "sqlite: list assets iterate")
}

func (s *SQLiteStore) BulkInsertAssets(ctx context.Context, assets []model.RoadAsset) (int, error) {
	if len(assets) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin bulk asset insert")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO road_assets (tenant_id, name, location, surface_type, condition, length_miles, latitude, longitude, last_inspected, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare bulk asset insert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, a := range assets {
		if _, err := stmt.ExecContext(ctx,
			a.TenantID, a.Name, a.Location, string(a.SurfaceType), a.Condition, a.LengthMiles,
			a.Latitude, a.Longitude, nullTime(a.LastInspected), now, now,
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: bulk insert asset %q", a.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit bulk asset insert")
	}
	return len(assets), nil
}

func (s *SQLiteStore) UpsertMaintenanceType(ctx context.Context, mt model.MaintenanceType) (*model.MaintenanceType, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO maintenance_types (tenant_id, category, name, cost_per_mile, condition_improvement, min_condition, max_condition)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (tenant_id, category, name) DO UPDATE SET
		   cost_per_mile = excluded.cost_per_mile,
		   condition_improvement = excluded.condition_improvement,
		   min_condition = excluded.min_condition,
		   max_condition = excluded.max_condition`,
		mt.TenantID, mt.Category.String(), mt.Name, mt.CostPerMile,
		mt.ConditionImprovement, mt.MinCondition, mt.MaxCondition,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert maintenance type %q", mt.Name)
	}
	// LastInsertId is unreliable on upsert; re-read the row id.
	row := s.db.QueryRowContext(ctx,
		`SELECT id FROM maintenance_types WHERE tenant_id = ? AND category = ? AND name = ?`,
		mt.TenantID, mt.Category.String(), mt.Name,
	)
	if err := row.Scan(&mt.ID); err != nil {
		return nil, eris.Wrap(err, "sqlite: read upserted maintenance type id")
	}
	return &mt, nil
}

func (s *SQLiteStore) ListMaintenanceTypes(ctx context.Context, tenantID string) ([]model.MaintenanceType, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, category, name, cost_per_mile, condition_improvement, min_condition, max_condition
		 FROM maintenance_types WHERE tenant_id = ? ORDER BY id`,
		tenantID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list maintenance types")
	}
	defer rows.Close()

	var types []model.MaintenanceType
	for rows.Next() {
		var mt model.MaintenanceType
		var category string
		if err := rows.Scan(&mt.ID, &mt.TenantID, &category, &mt.Name,
			&mt.CostPerMile, &mt.ConditionImprovement, &mt.MinCondition, &mt.MaxCondition); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan maintenance type")
		}
		cat, ok := model.ParseCategory(category)
		if !ok {
			return nil, eris.Errorf("sqlite: unknown maintenance category %q", category)
		}
		mt.Category = cat
		types = append(types, mt)
	}
	return types, eris.Wrap(rows.Err(), "sqlite: list maintenance types iterate")
}

func (s *SQLiteStore) CreateAllocation(ctx context.Context, b model.BudgetAllocation) (*model.BudgetAllocation, error) {
	b.ID = uuid.New().String()
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO budget_allocations (id, tenant_id, fiscal_year, total_budget, preventive_maintenance, minor_rehabilitation, major_rehabilitation, reconstruction, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.TenantID, b.FiscalYear, b.TotalBudget,
		b.PreventiveMaintenance, b.MinorRehabilitation, b.MajorRehabilitation, b.Reconstruction,
		boolToInt(b.Active), b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert allocation")
	}
	return &b, nil
}

func (s *SQLiteStore) GetAllocation(ctx context.Context, tenantID, id string) (*model.BudgetAllocation, error) {
	row := s.db.QueryRowContext(ctx,
		allocationSelect+` WHERE tenant_id = ? AND id = ?`,
		tenantID, id,
	)
	return scanAllocation(row)
}

func (s *SQLiteStore) ListAllocations(ctx context.Context, tenantID string) ([]model.BudgetAllocation, error) {
	rows, err := s.db.QueryContext(ctx,
		allocationSelect+` WHERE tenant_id = ? ORDER BY fiscal_year DESC, created_at DESC`,
		tenantID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list allocations")
	}
	defer rows.Close()

	var allocs []model.BudgetAllocation
	for rows.Next() {
		b, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		allocs = append(allocs, *b)
	}
	return allocs, eris.Wrap(rows.Err(), "sqlite: list allocations iterate")
}

func (s *SQLiteStore) ActiveAllocation(ctx context.Context, tenantID string, fiscalYear int) (*model.BudgetAllocation, error) {
	row := s.db.QueryRowContext(ctx,
		allocationSelect+` WHERE tenant_id = ? AND fiscal_year = ? AND active = 1 LIMIT 1`,
		tenantID, fiscalYear,
	)
	return scanAllocation(row)
}

func (s *SQLiteStore) SetActiveAllocation(ctx context.Context, tenantID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin activate allocation")
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	// Deactivate siblings in the same fiscal year, then flip the target.
	if _, err := tx.ExecContext(ctx,
		`UPDATE budget_allocations SET active = 0, updated_at = ?
		 WHERE tenant_id = ? AND fiscal_year = (SELECT fiscal_year FROM budget_allocations WHERE tenant_id = ? AND id = ?)`,
		now, tenantID, tenantID, id,
	); err != nil {
		return eris.Wrap(err, "sqlite: deactivate allocations")
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE budget_allocations SET active = 1, updated_at = ? WHERE tenant_id = ? AND id = ?`,
		now, tenantID, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: activate allocation %s", id)
	}
	if err := checkRowsAffected(res); err != nil {
		return err
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit activate allocation")
}

func (s *SQLiteStore) BulkInsertReadings(ctx context.Context, readings []model.MoistureReading) (int, error) {
	if len(readings) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin bulk reading insert")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO moisture_readings (tenant_id, road_asset_id, latitude, longitude, reading_value, reading_date)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare bulk reading insert")
	}
	defer stmt.Close()

	for _, r := range readings {
		if _, err := stmt.ExecContext(ctx,
			r.TenantID, r.RoadAssetID, r.Latitude, r.Longitude, r.ReadingValue, r.ReadingDate.UTC(),
		); err != nil {
			return 0, eris.Wrapf(err, "sqlite: bulk insert reading for asset %d", r.RoadAssetID)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit bulk reading insert")
	}
	return len(readings), nil
}

func (s *SQLiteStore) ListReadings(ctx context.Context, tenantID string, assetID int64, limit int) ([]model.MoistureReading, error) {
	query := `SELECT id, tenant_id, road_asset_id, latitude, longitude, reading_value, reading_date
	          FROM moisture_readings WHERE tenant_id = ?`
	args := []any{tenantID}

	if assetID > 0 {
		query += ` AND road_asset_id = ?`
		args = append(args, assetID)
	}
	query += ` ORDER BY reading_date DESC`

	if limit <= 0 {
		limit = 1000
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list readings")
	}
	defer rows.Close()

	var readings []model.MoistureReading
	for rows.Next() {
		var r model.MoistureReading
		if err := rows.Scan(&r.ID, &r.TenantID, &r.RoadAssetID, &r.Latitude, &r.Longitude, &r.ReadingValue, &r.ReadingDate); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan reading")
		}
		readings = append(readings, r)
	}
	return readings, eris.Wrap(rows.Err(), "sqlite: list readings iterate")
}

// helpers

const allocationSelect = `SELECT id, tenant_id, fiscal_year, total_budget, preventive_maintenance, minor_rehabilitation, major_rehabilitation, reconstruction, active, created_at, updated_at FROM budget_allocations`

func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAsset(row scannable) (*model.RoadAsset, error) {
	var a model.RoadAsset
	var surface string
	var lastInspected sql.NullTime

	err := row.Scan(&a.ID, &a.TenantID, &a.Name, &a.Location, &surface, &a.Condition,
		&a.LengthMiles, &a.Latitude, &a.Longitude, &lastInspected, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan asset")
	}

	a.SurfaceType = model.SurfaceType(surface)
	if lastInspected.Valid {
		t := lastInspected.Time
		a.LastInspected = &t
	}
	return &a, nil
}

func scanAllocation(row scannable) (*model.BudgetAllocation, error) {
	var b model.BudgetAllocation
	var active int

	err := row.Scan(&b.ID, &b.TenantID, &b.FiscalYear, &b.TotalBudget,
		&b.PreventiveMaintenance, &b.MinorRehabilitation, &b.MajorRehabilitation, &b.Reconstruction,
		&active, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan allocation")
	}

	b.Active = active != 0
	return &b, nil
}
