package geolib_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/9seconds/geostash/geolib"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type RetryingProviderTestSuite struct {
	suite.Suite

	ctx          context.Context
	addr         geolib.Address
	providerMock *geolib.ProviderMock
	p            geolib.Provider
}

func (suite *RetryingProviderTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.addr, _ = geolib.ParseAddress("8.8.8.8")
	suite.providerMock = &geolib.ProviderMock{}
	suite.p = geolib.NewRetryingProvider(suite.providerMock, geolib.RetryOpts{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	})

	suite.providerMock.On("Name").Return("test").Maybe()
}

func (suite *RetryingProviderTestSuite) TearDownTest() {
	suite.providerMock.AssertExpectations(suite.T())
}

func (suite *RetryingProviderTestSuite) TestName() {
	suite.Equal("test", suite.p.Name())
}

func (suite *RetryingProviderTestSuite) TestSuccessAfterFailures() {
	suite.providerMock.
		On("Lookup", mock.Anything, suite.addr).
		Return(geolib.Location{}, geolib.NewProviderError("test", geolib.ProviderUnavailable, io.EOF)).
		Twice()
	suite.providerMock.
		On("Lookup", mock.Anything, suite.addr).
		Return(geolib.Location{CountryCode: "US"}, nil).
		Once()

	location, err := suite.p.Lookup(suite.ctx, suite.addr)

	suite.NoError(err)
	suite.Equal("US", location.CountryCode)
}

func (suite *RetryingProviderTestSuite) TestRetriesAreExhausted() {
	suite.providerMock.
		On("Lookup", mock.Anything, suite.addr).
		Return(geolib.Location{}, geolib.NewProviderError("test", geolib.ProviderUnavailable, io.EOF)).
		Times(3)

	_, err := suite.p.Lookup(suite.ctx, suite.addr)

	var perr *geolib.ProviderError

	suite.True(errors.As(err, &perr))
	suite.Equal(geolib.ProviderUnavailable, perr.Kind)
	suite.Equal("test", perr.Provider)
	suite.True(errors.Is(err, io.EOF))
}

func (suite *RetryingProviderTestSuite) TestUnknownErrorIsRetried() {
	suite.providerMock.
		On("Lookup", mock.Anything, suite.addr).
		Return(geolib.Location{}, io.EOF).
		Times(3)

	_, err := suite.p.Lookup(suite.ctx, suite.addr)

	var perr *geolib.ProviderError

	suite.True(errors.As(err, &perr))
	suite.Equal(geolib.ProviderUnavailable, perr.Kind)
	suite.Equal("test", perr.Provider)
}

func (suite *RetryingProviderTestSuite) TestNoRetries() {
	kinds := []geolib.ProviderErrorKind{
		geolib.ProviderNotFound,
		geolib.ProviderRateLimited,
		geolib.ProviderInvalidResponse,
	}

	for _, v := range kinds {
		kind := v

		suite.T().Run(kind.String(), func(t *testing.T) {
			providerMock := &geolib.ProviderMock{}
			p := geolib.NewRetryingProvider(providerMock, geolib.RetryOpts{MaxRetries: 5})

			providerMock.
				On("Lookup", mock.Anything, suite.addr).
				Return(geolib.Location{}, geolib.NewProviderError("test", kind, nil)).
				Once()

			_, err := p.Lookup(suite.ctx, suite.addr)

			var perr *geolib.ProviderError

			suite.True(errors.As(err, &perr))
			suite.Equal(kind, perr.Kind)
			providerMock.AssertExpectations(t)
		})
	}
}

func (suite *RetryingProviderTestSuite) TestClosedContext() {
	ctx, cancel := context.WithCancel(suite.ctx)

	cancel()

	suite.providerMock.
		On("Lookup", mock.Anything, suite.addr).
		Return(geolib.Location{}, geolib.NewProviderError("test", geolib.ProviderUnavailable, context.Canceled)).
		Once()

	_, err := suite.p.Lookup(ctx, suite.addr)

	var perr *geolib.ProviderError

	suite.True(errors.As(err, &perr))
	suite.Equal(geolib.ProviderUnavailable, perr.Kind)
}

func (suite *RetryingProviderTestSuite) TestDeadlineStopsBackoff() {
	p := geolib.NewRetryingProvider(suite.providerMock, geolib.RetryOpts{
		MaxRetries:      100,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     50 * time.Millisecond,
	})
	ctx, cancel := context.WithTimeout(suite.ctx, 120*time.Millisecond)

	defer cancel()

	suite.providerMock.
		On("Lookup", mock.Anything, suite.addr).
		Return(geolib.Location{}, geolib.NewProviderError("test", geolib.ProviderUnavailable, io.EOF))

	started := time.Now()
	_, err := p.Lookup(ctx, suite.addr)

	var perr *geolib.ProviderError

	suite.True(errors.As(err, &perr))
	suite.Equal(geolib.ProviderUnavailable, perr.Kind)
	suite.Less(time.Since(started), time.Second)
}

func TestRetryingProvider(t *testing.T) {
	suite.Run(t, &RetryingProviderTestSuite{})
}
