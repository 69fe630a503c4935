package main

import (
	"context"
	"fmt"

	"github.com/9seconds/geostash/geolib"
	"github.com/brianvoe/gofakeit/v6"
)

func seedRecords(ctx context.Context, service *geolib.Service,
	faker *gofakeit.Faker, count int) ([]geolib.GeolocationRecord, error) {
	rv := make([]geolib.GeolocationRecord, 0, count)

	for i := 0; i < count; i++ {
		location := geolib.Location{
			CountryCode: faker.CountryAbr(),
			Region:      faker.State(),
			City:        faker.City(),
			PostalCode:  faker.Zip(),
			Latitude:    geolib.Coordinate(faker.Latitude()),
			Longitude:   geolib.Coordinate(faker.Longitude()),
		}

		record, err := service.Add(ctx, geolib.Request{
			IPAddress: faker.IPv4Address(),
		}, &location)
		if err != nil {
			return rv, fmt.Errorf("cannot seed record %d: %w", i, err)
		}

		rv = append(rv, record)
	}

	return rv, nil
}
