package semaphore

import (
	"encoding/json"
	"fmt"
)

type (
	// Record is the unit stored at one path in one region.
	Record struct {
		// Version mirrors the store's version token as of the write that
		// produced this record. The store token is the CAS comparator; this
		// field is never used as an application counter.
		Version int64 `json:"version"`
		// Concurrency is the capacity the writer believed in. It is not
		// trusted on load: every load overwrites it with the value freshly
		// resolved by the local concurrency policy.
		Concurrency int `json:"concurrency"`
		// Holders maps holder identity to acquisition unix timestamp.
		Holders map[string]int64 `json:"holders"`
	}
)

// initialRecordVersion is the version written on lazy record creation.
const initialRecordVersion int64 = 1

func newDefaultRecord(concurrency int) *Record {
	return &Record{
		Version:     initialRecordVersion,
		Concurrency: concurrency,
		Holders:     make(map[string]int64),
	}
}

func decodeRecord(data []byte) (*Record, error) {
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("malformed semaphore record: %w", err)
	}
	if record.Holders == nil {
		record.Holders = make(map[string]int64)
	}
	return &record, nil
}

func (r *Record) encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode semaphore record: %w", err)
	}
	return data, nil
}
