package geolib

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type MetricsTestSuite struct {
	suite.Suite

	addr         Address
	metrics      *Metrics
	providerMock *ProviderMock
	storeMock    *StoreMock
	o            *Orchestrator
}

func (suite *MetricsTestSuite) SetupTest() {
	suite.addr, _ = ParseAddress("1.2.3.4")
	suite.metrics = NewMetrics(prometheus.NewRegistry())
	suite.providerMock = &ProviderMock{}
	suite.storeMock = &StoreMock{}

	suite.providerMock.On("Name").Return("test").Maybe()

	suite.o, _ = NewOrchestrator(OrchestratorOpts{
		Store:    suite.storeMock,
		Provider: suite.providerMock,
		Metrics:  suite.metrics,
	})
}

func (suite *MetricsTestSuite) TestNilMetrics() {
	var m *Metrics

	suite.NotPanics(func() {
		m.resolved(SourceCached)
		m.failed(ResolutionNotFound)
		m.providerCalled("test", time.Now(), nil)
	})
}

func (suite *MetricsTestSuite) TestCounters() {
	suite.storeMock.
		On("Get", mock.Anything, suite.addr).
		Return(GeolocationRecord{Address: suite.addr}, true, nil).
		Once()
	suite.storeMock.
		On("Get", mock.Anything, suite.addr).
		Return(GeolocationRecord{}, false, nil).
		Twice()
	suite.providerMock.
		On("Lookup", mock.Anything, suite.addr).
		Return(Location{}, NewProviderError("test", ProviderRateLimited, io.EOF)).
		Once()

	ctx := context.Background()

	suite.o.GetOrFetch(ctx, suite.addr) // nolint: errcheck
	suite.o.GetOrFetch(ctx, suite.addr) // nolint: errcheck

	suite.EqualValues(1, testutil.ToFloat64(suite.metrics.resolutions.WithLabelValues(string(SourceCached))))
	suite.EqualValues(0, testutil.ToFloat64(suite.metrics.resolutions.WithLabelValues(string(SourceFresh))))
	suite.EqualValues(1, testutil.ToFloat64(
		suite.metrics.resolutionFailures.WithLabelValues(ResolutionServiceUnavailable.String())))
	suite.EqualValues(1, testutil.ToFloat64(
		suite.metrics.providerErrors.WithLabelValues("test", ProviderRateLimited.String())))
}

func TestMetrics(t *testing.T) {
	suite.Run(t, &MetricsTestSuite{})
}
