package stores_test

import (
	"context"
	"sync"
	"time"

	"github.com/9seconds/geostash/geolib"
	"github.com/stretchr/testify/suite"
)

// StoreTestSuite is a set of checks every store has to pass.
type StoreTestSuite struct {
	suite.Suite

	ctx   context.Context
	store geolib.Store
}

func (suite *StoreTestSuite) Address(raw string) geolib.Address {
	addr, err := geolib.ParseAddress(raw)

	suite.Require().NoError(err)

	return addr
}

func (suite *StoreTestSuite) Record(raw string) geolib.GeolocationRecord {
	return geolib.GeolocationRecord{
		Address: suite.Address(raw),
		Location: geolib.Location{
			CountryCode: "US",
			CountryName: "United States",
			Region:      "California",
			City:        "Mountain View",
			Continent:   "North America",
			PostalCode:  "94043",
			Latitude:    geolib.Coordinate(37.386),
			Longitude:   geolib.Coordinate(-122.0838),
		},
		FetchedAt: time.Now().UTC().Truncate(time.Millisecond),
		Source:    geolib.SourceFresh,
	}
}

func (suite *StoreTestSuite) TestGetAbsent() {
	_, ok, err := suite.store.Get(suite.ctx, suite.Address("8.8.8.8"))

	suite.NoError(err)
	suite.False(ok)
}

func (suite *StoreTestSuite) TestUpsertAndGet() {
	record := suite.Record("8.8.8.8")

	saved, err := suite.store.Upsert(suite.ctx, record)

	suite.NoError(err)
	suite.NotEmpty(saved.ID)
	suite.Empty(saved.Source)

	fetched, ok, err := suite.store.Get(suite.ctx, suite.Address("008.8.8.8"))

	suite.NoError(err)
	suite.True(ok)
	suite.Equal(saved.ID, fetched.ID)
	suite.Equal("8.8.8.8", fetched.Address.String())
	suite.Equal(record.Location, fetched.Location)
	suite.WithinDuration(record.FetchedAt, fetched.FetchedAt, time.Millisecond)
	suite.Empty(fetched.Source)
}

func (suite *StoreTestSuite) TestAbsentCoordinates() {
	record := suite.Record("2001:db8::1")
	record.Latitude = nil
	record.Longitude = nil

	_, err := suite.store.Upsert(suite.ctx, record)

	suite.NoError(err)

	fetched, ok, err := suite.store.Get(suite.ctx, record.Address)

	suite.NoError(err)
	suite.True(ok)
	suite.Nil(fetched.Latitude)
	suite.Nil(fetched.Longitude)
	suite.Equal(geolib.AddressKindIPv6, fetched.Address.Kind())
}

func (suite *StoreTestSuite) TestReplaceKeepsID() {
	first, err := suite.store.Upsert(suite.ctx, suite.Record("1.1.1.1"))

	suite.NoError(err)

	record := suite.Record("1.1.1.1")
	record.City = "Sydney"
	record.CountryCode = "AU"

	second, err := suite.store.Upsert(suite.ctx, record)

	suite.NoError(err)
	suite.Equal(first.ID, second.ID)

	fetched, ok, err := suite.store.Get(suite.ctx, record.Address)

	suite.NoError(err)
	suite.True(ok)
	suite.Equal("Sydney", fetched.City)
	suite.Equal("AU", fetched.CountryCode)
}

func (suite *StoreTestSuite) TestConcurrentUpsertsKeepOneRecord() {
	wg := &sync.WaitGroup{}
	ids := make([]string, 10)

	wg.Add(len(ids))

	for i := range ids {
		go func(idx int) {
			defer wg.Done()

			saved, err := suite.store.Upsert(suite.ctx, suite.Record("9.9.9.9"))
			if err == nil {
				ids[idx] = saved.ID
			}
		}(i)
	}

	wg.Wait()

	for _, v := range ids {
		suite.Equal(ids[0], v)
	}

	deleted, err := suite.store.Delete(suite.ctx, suite.Address("9.9.9.9"))

	suite.NoError(err)
	suite.True(deleted)

	_, ok, err := suite.store.Get(suite.ctx, suite.Address("9.9.9.9"))

	suite.NoError(err)
	suite.False(ok)
}

func (suite *StoreTestSuite) TestDelete() {
	addr := suite.Address("4.4.4.4")

	deleted, err := suite.store.Delete(suite.ctx, addr)

	suite.NoError(err)
	suite.False(deleted)

	_, err = suite.store.Upsert(suite.ctx, suite.Record("4.4.4.4"))

	suite.NoError(err)

	deleted, err = suite.store.Delete(suite.ctx, addr)

	suite.NoError(err)
	suite.True(deleted)

	deleted, err = suite.store.Delete(suite.ctx, addr)

	suite.NoError(err)
	suite.False(deleted)
}

func (suite *StoreTestSuite) TestEmptyAddress() {
	_, err := suite.store.Upsert(suite.ctx, geolib.GeolocationRecord{})

	suite.Error(err)
}

func (suite *StoreTestSuite) TestHostIsKept() {
	addr, err := geolib.RestoreAddress("142.250.74.36", "https://www.google.com", "www.google.com")

	suite.NoError(err)

	record := suite.Record("142.250.74.36")
	record.Address = addr

	_, err = suite.store.Upsert(suite.ctx, record)

	suite.NoError(err)

	fetched, ok, err := suite.store.Get(suite.ctx, suite.Address("142.250.74.36"))

	suite.NoError(err)
	suite.True(ok)
	suite.Equal("www.google.com", fetched.Address.Host())
	suite.Equal("https://www.google.com", fetched.Address.Raw())
}
