package geolib

import (
	"context"
	"net/netip"

	"github.com/stretchr/testify/mock"
)

type ProviderMock struct {
	mock.Mock
}

func (m *ProviderMock) Lookup(ctx context.Context, addr Address) (Location, error) {
	args := m.Called(ctx, addr)

	return args.Get(0).(Location), args.Error(1)
}

func (m *ProviderMock) Name() string {
	return m.Called().String(0)
}

type StoreMock struct {
	mock.Mock
}

func (m *StoreMock) Get(ctx context.Context, addr Address) (GeolocationRecord, bool, error) {
	args := m.Called(ctx, addr)

	return args.Get(0).(GeolocationRecord), args.Bool(1), args.Error(2)
}

func (m *StoreMock) Upsert(ctx context.Context, record GeolocationRecord) (GeolocationRecord, error) {
	args := m.Called(ctx, record)

	return args.Get(0).(GeolocationRecord), args.Error(1)
}

func (m *StoreMock) Delete(ctx context.Context, addr Address) (bool, error) {
	args := m.Called(ctx, addr)

	return args.Bool(0), args.Error(1)
}

func (m *StoreMock) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type ResolverMock struct {
	mock.Mock
}

func (m *ResolverMock) LookupHost(ctx context.Context, host string) ([]netip.Addr, error) {
	args := m.Called(ctx, host)

	if addrs := args.Get(0); addrs != nil {
		return addrs.([]netip.Addr), args.Error(1)
	}

	return nil, args.Error(1)
}

type BreakerMock struct {
	mock.Mock
}

func (m *BreakerMock) Opened() bool {
	return m.Called().Bool(0)
}

type LoggerMock struct {
	mock.Mock
}

func (m *LoggerMock) LookupError(addr Address, provider string, err error) {
	m.Called(addr, provider, err)
}

func (m *LoggerMock) StoreError(addr Address, op string, err error) {
	m.Called(addr, op, err)
}

func (m *LoggerMock) Resolved(addr Address, source Source) {
	m.Called(addr, source)
}
