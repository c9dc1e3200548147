package catalog

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/lib/pq"

	"github.com/matzehuels/npym/pkg/errors"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS npym_wheels (
	filename        TEXT PRIMARY KEY,
	project         TEXT NOT NULL,
	distribution    TEXT NOT NULL,
	version         TEXT NOT NULL,
	package         TEXT NOT NULL,
	package_version TEXT NOT NULL,
	install_path    TEXT NOT NULL,
	requires        TEXT[] NOT NULL DEFAULT '{}',
	sha256          TEXT NOT NULL,
	size            BIGINT NOT NULL,
	run_id          TEXT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS npym_wheels_project ON npym_wheels (project);
`

const postgresColumns = `filename, project, distribution, version, package, package_version,
	install_path, requires, sha256, size, run_id, created_at`

// PostgresCatalog stores records in the npym_wheels table.
type PostgresCatalog struct {
	db *sql.DB
}

// NewPostgres opens dsn with the lib/pq driver and creates the schema if
// needed.
func NewPostgres(ctx context.Context, dsn string) (*PostgresCatalog, error) {
	if dsn == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "postgres catalog requires a URL")
	}
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse postgres URL")
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to postgres")
	}
	c := NewPostgresFromDB(db)
	if err := c.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// NewPostgresFromDB wraps an existing database handle. Call Migrate before
// first use on a fresh database.
func NewPostgresFromDB(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

// Migrate creates the table and index if they do not exist.
func (c *PostgresCatalog) Migrate(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, postgresSchema); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "create catalog schema")
	}
	return nil
}

func (c *PostgresCatalog) Put(ctx context.Context, rec Record) error {
	requires := rec.Requires
	if requires == nil {
		requires = []string{}
	}
	_, err := c.db.ExecContext(ctx, `
INSERT INTO npym_wheels (`+postgresColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (filename) DO UPDATE SET
	project = EXCLUDED.project,
	distribution = EXCLUDED.distribution,
	version = EXCLUDED.version,
	package = EXCLUDED.package,
	package_version = EXCLUDED.package_version,
	install_path = EXCLUDED.install_path,
	requires = EXCLUDED.requires,
	sha256 = EXCLUDED.sha256,
	size = EXCLUDED.size,
	run_id = EXCLUDED.run_id,
	created_at = EXCLUDED.created_at`,
		rec.Filename, NormalizeProject(rec.Distribution), rec.Distribution, rec.Version,
		rec.Package, rec.PackageVersion, rec.InstallPath, pq.Array(requires),
		rec.SHA256, rec.Size, rec.RunID, rec.CreatedAt)
	return err
}

func (c *PostgresCatalog) Projects(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT DISTINCT project FROM npym_wheels ORDER BY project`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (c *PostgresCatalog) Files(ctx context.Context, project string) ([]Record, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT `+postgresColumns+` FROM npym_wheels WHERE project = $1 ORDER BY filename`,
		NormalizeProject(project))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (c *PostgresCatalog) Get(ctx context.Context, filename string) (Record, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT `+postgresColumns+` FROM npym_wheels WHERE filename = $1`, filename)
	rec, err := scanRecord(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return Record{}, notFound(filename)
	}
	return rec, err
}

func (c *PostgresCatalog) Close() error { return c.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var rec Record
	err := s.Scan(&rec.Filename, &rec.Project, &rec.Distribution, &rec.Version,
		&rec.Package, &rec.PackageVersion, &rec.InstallPath, pq.Array(&rec.Requires),
		&rec.SHA256, &rec.Size, &rec.RunID, &rec.CreatedAt)
	return rec, err
}
