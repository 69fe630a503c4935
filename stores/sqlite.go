package stores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/9seconds/geostash/geolib"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// schema version, migrations are applied up to this one on open
const sqliteSchemaVersion = 1

var sqliteSchemaMigrations = []string{
	// 0 -> 1: initial schema
	`CREATE TABLE geolocations (
		id TEXT NOT NULL UNIQUE,
		address TEXT NOT NULL PRIMARY KEY,
		ip_version INTEGER NOT NULL,
		raw TEXT NOT NULL,
		host TEXT NOT NULL,
		country_code TEXT NOT NULL,
		country_name TEXT NOT NULL,
		region TEXT NOT NULL,
		city TEXT NOT NULL,
		continent TEXT NOT NULL,
		postal_code TEXT NOT NULL,
		latitude REAL,
		longitude REAL,
		fetched_at INTEGER NOT NULL
	);`,
}

const (
	sqliteQueryGet = `
		SELECT id, address, ip_version, raw, host,
			country_code, country_name, region, city, continent, postal_code,
			latitude, longitude, fetched_at
		FROM geolocations WHERE address = ?;`
	sqliteQueryUpsert = `
		INSERT INTO geolocations (
			id, address, ip_version, raw, host,
			country_code, country_name, region, city, continent, postal_code,
			latitude, longitude, fetched_at)
		VALUES (
			?, ?, ?, ?, ?,
			?, ?, ?, ?, ?, ?,
			?, ?, ?)
		ON CONFLICT (address) DO UPDATE SET
			raw = excluded.raw,
			host = excluded.host,
			country_code = excluded.country_code,
			country_name = excluded.country_name,
			region = excluded.region,
			city = excluded.city,
			continent = excluded.continent,
			postal_code = excluded.postal_code,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			fetched_at = excluded.fetched_at
		RETURNING id;`
	sqliteQueryDelete = `DELETE FROM geolocations WHERE address = ?;`
)

// SQLite is a store backed by a single SQLite database file.
type SQLite struct {
	db *sql.DB
}

func (s *SQLite) Get(ctx context.Context, addr geolib.Address) (geolib.GeolocationRecord, bool, error) {
	row := recordRow{}

	var fetchedAt int64

	err := s.db.QueryRowContext(ctx, sqliteQueryGet, addr.String()).Scan(
		&row.ID, &row.Address, &row.IPVersion, &row.Raw, &row.Host,
		&row.CountryCode, &row.CountryName, &row.Region, &row.City, &row.Continent, &row.PostalCode,
		&row.Latitude, &row.Longitude, &fetchedAt)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return geolib.GeolocationRecord{}, false, nil
	case err != nil:
		return geolib.GeolocationRecord{}, false, fmt.Errorf("cannot select a record: %w", err)
	}

	row.FetchedAt = time.UnixMilli(fetchedAt)

	record, err := row.Record()
	if err != nil {
		return geolib.GeolocationRecord{}, false, err
	}

	return record, true, nil
}

func (s *SQLite) Upsert(ctx context.Context, record geolib.GeolocationRecord) (geolib.GeolocationRecord, error) {
	if record.Address.IsZero() {
		return geolib.GeolocationRecord{}, ErrAddressIsEmpty
	}

	row := newRecordRow(record)

	err := s.db.QueryRowContext(ctx, sqliteQueryUpsert,
		uuid.NewString(), row.Address, row.IPVersion, row.Raw, row.Host,
		row.CountryCode, row.CountryName, row.Region, row.City, row.Continent, row.PostalCode,
		row.Latitude, row.Longitude, row.FetchedAt.UnixMilli(),
	).Scan(&record.ID)
	if err != nil {
		return geolib.GeolocationRecord{}, fmt.Errorf("cannot upsert a record: %w", err)
	}

	record.Source = ""

	return record, nil
}

func (s *SQLite) Delete(ctx context.Context, addr geolib.Address) (bool, error) {
	result, err := s.db.ExecContext(ctx, sqliteQueryDelete, addr.String())
	if err != nil {
		return false, fmt.Errorf("cannot delete a record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cannot get a number of deleted records: %w", err)
	}

	return affected > 0, nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS geolocations_schema (version INTEGER NOT NULL, time INTEGER NOT NULL);`)
	if err != nil {
		return fmt.Errorf("cannot create schema table: %w", err)
	}

	var schemaVersion sql.NullInt64

	err = s.db.QueryRowContext(ctx, `SELECT MAX(version) FROM geolocations_schema;`).Scan(&schemaVersion)
	if err != nil {
		return fmt.Errorf("cannot read schema version: %w", err)
	}

	for version := int(schemaVersion.Int64); version < sqliteSchemaVersion; version++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("cannot start a transaction: %w", err)
		}

		if _, err := tx.ExecContext(ctx, sqliteSchemaMigrations[version]); err != nil {
			tx.Rollback() // nolint: errcheck

			return fmt.Errorf("cannot migrate from schema version %d: %w", version, err)
		}

		_, err = tx.ExecContext(ctx, `INSERT INTO geolocations_schema (version, time) VALUES (?, ?);`,
			version+1, time.Now().Unix())
		if err != nil {
			tx.Rollback() // nolint: errcheck

			return fmt.Errorf("cannot update schema version to %d: %w", version+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("cannot commit schema version %d: %w", version+1, err)
		}
	}

	return nil
}

// NewSQLite opens a database by dsn (usually, a path to the file) and
// applies pending schema migrations.
func NewSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open a database: %w", err)
	}

	// :memory: database lives only as long as its connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL;`); err != nil {
		db.Close()

		return nil, fmt.Errorf("cannot turn on write-ahead log: %w", err)
	}

	rv := &SQLite{
		db: db,
	}

	if err := rv.migrate(ctx); err != nil {
		db.Close()

		return nil, err
	}

	return rv, nil
}
