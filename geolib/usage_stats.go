package geolib

import (
	"encoding/json"
	"sync"
	"time"
)

// UsageStats collects statistics of provider calls.
type UsageStats struct {
	Name string

	mutex        sync.Mutex
	lastUsed     time.Time
	lastFailure  time.Time
	lastError    string
	successCount uint64
	failureCount uint64
}

func (u *UsageStats) Used(err error) {
	now := time.Now()

	u.mutex.Lock()
	defer u.mutex.Unlock()

	u.lastUsed = now

	if err == nil {
		u.successCount += 1

		return
	}

	u.failureCount += 1
	u.lastFailure = now
	u.lastError = err.Error()
}

func (u *UsageStats) MarshalJSON() ([]byte, error) {
	var lastUsedTime, lastFailureTime int64

	u.mutex.Lock()

	if !u.lastUsed.IsZero() {
		lastUsedTime = u.lastUsed.Unix()
	}

	if !u.lastFailure.IsZero() {
		lastFailureTime = u.lastFailure.Unix()
	}

	rawStruct := struct {
		Name         string `json:"name"`
		LastUsed     int64  `json:"last_used"`
		LastFailure  int64  `json:"last_failure"`
		LastError    string `json:"last_error,omitempty"`
		SuccessCount uint64 `json:"success_count"`
		FailureCount uint64 `json:"failure_count"`
	}{
		Name:         u.Name,
		LastUsed:     lastUsedTime,
		LastFailure:  lastFailureTime,
		LastError:    u.lastError,
		SuccessCount: u.successCount,
		FailureCount: u.failureCount,
	}

	u.mutex.Unlock()

	return json.Marshal(&rawStruct)
}
