package providers_test

import (
	"errors"
	"net/http"
	"time"

	"github.com/9seconds/geostash/geolib"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/suite"
)

type ProviderTestSuite struct {
	suite.Suite

	http geolib.HTTPClient
	addr geolib.Address
}

func (suite *ProviderTestSuite) SetupTest() {
	suite.http = geolib.NewHTTPClient(&http.Client{}, geolib.HTTPClientOpts{
		UserAgent:                          "test-agent",
		CircuitBreakerOpenThreshold:        100,
		CircuitBreakerHalfOpenTimeout:      10 * time.Second,
		CircuitBreakerResetFailuresTimeout: 10 * time.Second,
	})

	addr, err := geolib.ParseAddress("23.22.13.113")
	if err != nil {
		panic(err)
	}

	suite.addr = addr
}

func (suite *ProviderTestSuite) ProviderErrorKind(err error) geolib.ProviderErrorKind {
	var perr *geolib.ProviderError

	if suite.True(errors.As(err, &perr)) {
		return perr.Kind
	}

	return 0
}

type MockedProviderTestSuite struct {
	ProviderTestSuite
}

func (suite *MockedProviderTestSuite) SetupSuite() {
	httpmock.Activate()
}

func (suite *MockedProviderTestSuite) TearDownSuite() {
	httpmock.DeactivateAndReset()
}

func (suite *MockedProviderTestSuite) TearDownTest() {
	httpmock.Reset()
}
