package stores

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/9seconds/geostash/geolib"
	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var postgresMigrations embed.FS

var (
	ErrConnectionFailed = errors.New("connection failed")
	ErrMigrationFailed  = errors.New("migration failed")
)

const (
	postgresQueryGet = `
		SELECT id, address, ip_version, raw, host,
			country_code, country_name, region, city, continent, postal_code,
			latitude, longitude, fetched_at
		FROM geolocations WHERE address = $1`
	postgresQueryUpsert = `
		INSERT INTO geolocations (
			id, address, ip_version, raw, host,
			country_code, country_name, region, city, continent, postal_code,
			latitude, longitude, fetched_at)
		VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11,
			$12, $13, $14)
		ON CONFLICT (address) DO UPDATE SET
			raw = EXCLUDED.raw,
			host = EXCLUDED.host,
			country_code = EXCLUDED.country_code,
			country_name = EXCLUDED.country_name,
			region = EXCLUDED.region,
			city = EXCLUDED.city,
			continent = EXCLUDED.continent,
			postal_code = EXCLUDED.postal_code,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			fetched_at = EXCLUDED.fetched_at
		RETURNING id`
	postgresQueryDelete = `DELETE FROM geolocations WHERE address = $1`
)

// Postgres is a store backed by PostgreSQL. Uniqueness of addresses is
// guaranteed by a unique constraint.
type Postgres struct {
	pool *pgxpool.Pool
}

func (p *Postgres) Get(ctx context.Context, addr geolib.Address) (geolib.GeolocationRecord, bool, error) {
	row := recordRow{}

	err := p.pool.QueryRow(ctx, postgresQueryGet, addr.String()).Scan(
		&row.ID, &row.Address, &row.IPVersion, &row.Raw, &row.Host,
		&row.CountryCode, &row.CountryName, &row.Region, &row.City, &row.Continent, &row.PostalCode,
		&row.Latitude, &row.Longitude, &row.FetchedAt)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return geolib.GeolocationRecord{}, false, nil
	case err != nil:
		return geolib.GeolocationRecord{}, false, fmt.Errorf("cannot select a record: %w", err)
	}

	record, err := row.Record()
	if err != nil {
		return geolib.GeolocationRecord{}, false, err
	}

	return record, true, nil
}

func (p *Postgres) Upsert(ctx context.Context, record geolib.GeolocationRecord) (geolib.GeolocationRecord, error) {
	if record.Address.IsZero() {
		return geolib.GeolocationRecord{}, ErrAddressIsEmpty
	}

	row := newRecordRow(record)

	err := p.pool.QueryRow(ctx, postgresQueryUpsert,
		uuid.NewString(), row.Address, row.IPVersion, row.Raw, row.Host,
		row.CountryCode, row.CountryName, row.Region, row.City, row.Continent, row.PostalCode,
		row.Latitude, row.Longitude, row.FetchedAt,
	).Scan(&record.ID)
	if err != nil {
		return geolib.GeolocationRecord{}, fmt.Errorf("cannot upsert a record: %w", err)
	}

	record.Source = ""

	return record, nil
}

func (p *Postgres) Delete(ctx context.Context, addr geolib.Address) (bool, error) {
	tag, err := p.pool.Exec(ctx, postgresQueryDelete, addr.String())
	if err != nil {
		return false, fmt.Errorf("cannot delete a record: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.pool.Close()

	return nil
}

func (p *Postgres) migrateUp() error {
	fsDriver, err := iofs.New(postgresMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("%w: cannot create migration source: %v", ErrMigrationFailed, err)
	}

	db := stdlib.OpenDBFromPool(p.pool)
	defer db.Close()

	driver, err := migratepostgres.WithInstance(db, &migratepostgres.Config{})
	if err != nil {
		return fmt.Errorf("%w: cannot get database driver: %v", ErrMigrationFailed, err)
	}

	m, err := migrate.NewWithInstance("iofs", fsDriver, "postgres", driver)
	if err != nil {
		return fmt.Errorf("%w: cannot create migration instance: %v", ErrMigrationFailed, err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%w: cannot migrate up: %v", ErrMigrationFailed, err)
	}

	return nil
}

// NewPostgres connects to PostgreSQL by dsn (URL or key=value string).
// If runMigrations is true, schema is migrated to the latest version.
func NewPostgres(ctx context.Context, dsn string, runMigrations bool) (*Postgres, error) {
	conf, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot parse config: %v", ErrConnectionFailed, err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot connect: %v", ErrConnectionFailed, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("%w: cannot ping database: %v", ErrConnectionFailed, err)
	}

	rv := &Postgres{
		pool: pool,
	}

	if runMigrations {
		if err := rv.migrateUp(); err != nil {
			pool.Close()

			return nil, err
		}
	}

	return rv, nil
}
