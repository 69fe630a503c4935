package stores

import (
	"context"
	"sync"

	"github.com/9seconds/geostash/geolib"
	"github.com/google/uuid"
)

// Memory keeps records in a map. It is useful for tests and for
// deployments which do not need to survive restarts.
type Memory struct {
	mutex   sync.RWMutex
	records map[string]geolib.GeolocationRecord
}

func (m *Memory) Get(_ context.Context, addr geolib.Address) (geolib.GeolocationRecord, bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	record, ok := m.records[addr.String()]

	return record, ok, nil
}

func (m *Memory) Upsert(_ context.Context, record geolib.GeolocationRecord) (geolib.GeolocationRecord, error) {
	if record.Address.IsZero() {
		return geolib.GeolocationRecord{}, ErrAddressIsEmpty
	}

	key := record.Address.String()
	record.Source = ""

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if existing, ok := m.records[key]; ok {
		record.ID = existing.ID
	} else {
		record.ID = uuid.NewString()
	}

	m.records[key] = record

	return record, nil
}

func (m *Memory) Delete(_ context.Context, addr geolib.Address) (bool, error) {
	key := addr.String()

	m.mutex.Lock()
	defer m.mutex.Unlock()

	_, ok := m.records[key]
	delete(m.records, key)

	return ok, nil
}

func (m *Memory) Ping(_ context.Context) error {
	return nil
}

func (m *Memory) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	return len(m.records)
}

func NewMemory() *Memory {
	return &Memory{
		records: map[string]geolib.GeolocationRecord{},
	}
}
