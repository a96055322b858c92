// Package quota enforces a weekly byte/call budget per client, the one
// piece of the demo service's bbolt-backed bookkeeping that isn't already
// pkg/storage's job: storage answers "is this content stored", quota
// answers "has this client uploaded too much this week".
package quota

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.etcd.io/bbolt"
)

// Limiter tracks per-client usage in a single bbolt bucket.
type Limiter struct {
	DB *bbolt.DB

	err  error
	once sync.Once
}

var bStats = []byte("stats")

func (l *Limiter) init() error {
	l.once.Do(l._init)
	return l.err
}

func (l *Limiter) _init() {
	err := l.DB.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bStats)
		return err
	})
	if err != nil {
		l.err = fmt.Errorf("quota: initialization error: %w", err)
	}
}

// UsageStat is the running total of bytes/calls a client has spent within
// Period (a "year/weekNum" string).
type UsageStat struct {
	Period   string `json:"p"`
	NumBytes uint64 `json:"nb"`
	NumCalls uint64 `json:"nc"`
}

// UploadLimits bounds UsageStat.
type UploadLimits struct {
	MaxBytes uint64
	MaxCalls uint64
}

// ErrLimitsExceeded is returned by AddAmountsAndCompare once a client's
// usage would cross UploadLimits.
var ErrLimitsExceeded = errors.New("quota: limits exceeded")

// AddAmountsAndCompare increases the stats for client by deltaStat,
// resetting to deltaStat when the period rolled over, and rejects the
// update with ErrLimitsExceeded if the resulting totals would exceed
// limits.
func (l *Limiter) AddAmountsAndCompare(client string, deltaStat UsageStat, limits UploadLimits) error {
	if err := l.init(); err != nil {
		return err
	}
	return l.DB.Batch(func(tx *bbolt.Tx) error {
		bk := tx.Bucket(bStats)
		val := bk.Get([]byte(client))
		var stat UsageStat
		if len(val) != 0 {
			if err := json.Unmarshal(val, &stat); err != nil {
				return err
			}
		}

		if stat.Period == deltaStat.Period {
			stat.NumCalls += deltaStat.NumCalls
			stat.NumBytes += deltaStat.NumBytes
		} else {
			stat = deltaStat
		}

		if stat.NumBytes > limits.MaxBytes || stat.NumCalls > limits.MaxCalls {
			return ErrLimitsExceeded
		}

		res, err := json.Marshal(stat)
		if err != nil {
			return err
		}
		return bk.Put([]byte(client), res)
	})
}
