package stores

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/9seconds/geostash/geolib"
)

// recordRow is a flat representation of geolib.GeolocationRecord as it
// is kept in SQL databases.
type recordRow struct {
	ID          string
	Address     string
	IPVersion   int
	Raw         string
	Host        string
	CountryCode string
	CountryName string
	Region      string
	City        string
	Continent   string
	PostalCode  string
	Latitude    sql.NullFloat64
	Longitude   sql.NullFloat64
	FetchedAt   time.Time
}

func (r *recordRow) Record() (geolib.GeolocationRecord, error) {
	addr, err := geolib.RestoreAddress(r.Address, r.Raw, r.Host)
	if err != nil {
		return geolib.GeolocationRecord{}, fmt.Errorf("incorrect address %s: %w", r.Address, err)
	}

	rv := geolib.GeolocationRecord{
		ID:        r.ID,
		Address:   addr,
		FetchedAt: r.FetchedAt.UTC(),
		Location: geolib.Location{
			CountryCode: r.CountryCode,
			CountryName: r.CountryName,
			Region:      r.Region,
			City:        r.City,
			Continent:   r.Continent,
			PostalCode:  r.PostalCode,
		},
	}

	if r.Latitude.Valid {
		rv.Latitude = geolib.Coordinate(r.Latitude.Float64)
	}

	if r.Longitude.Valid {
		rv.Longitude = geolib.Coordinate(r.Longitude.Float64)
	}

	return rv, nil
}

func newRecordRow(record geolib.GeolocationRecord) recordRow {
	rv := recordRow{
		ID:          record.ID,
		Address:     record.Address.String(),
		IPVersion:   int(record.Address.Kind()),
		Raw:         record.Address.Raw(),
		Host:        record.Address.Host(),
		CountryCode: record.CountryCode,
		CountryName: record.CountryName,
		Region:      record.Region,
		City:        record.City,
		Continent:   record.Continent,
		PostalCode:  record.PostalCode,
		FetchedAt:   record.FetchedAt.UTC(),
	}

	if record.Latitude != nil {
		rv.Latitude = sql.NullFloat64{Float64: *record.Latitude, Valid: true}
	}

	if record.Longitude != nil {
		rv.Longitude = sql.NullFloat64{Float64: *record.Longitude, Valid: true}
	}

	return rv
}
