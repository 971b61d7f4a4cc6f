package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"nivel_exporter/internal/mapper"
	"nivel_exporter/internal/types"
)

const (
	pathLevels = "/api/nivel/"
	pathLast4h = "/api/nivel/last4h"
)

// GetSamples retrieves the recent reading history.
// Array responses carry the client's configured order; the legacy columnar
// object is always oldest-first.
func (c *APIClient) GetSamples(ctx context.Context) (types.SampleSet, error) {
	data, err := c.doRequest(ctx, "GET", pathLevels, nil)
	if err != nil {
		return types.SampleSet{}, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return types.SampleSet{}, ErrEmptyResponse
	}

	switch trimmed[0] {
	case '[':
		var records []types.LevelRecord
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return types.SampleSet{}, fmt.Errorf("unmarshal levels: %w", err)
		}
		if len(records) == 0 {
			return types.SampleSet{}, ErrEmptyResponse
		}
		return types.SampleSet{Samples: mapper.SamplesFromRecords(records), Order: c.order}, nil

	case '{':
		var legacy types.LegacyLevels
		if err := json.Unmarshal(trimmed, &legacy); err != nil {
			return types.SampleSet{}, fmt.Errorf("unmarshal legacy levels: %w", err)
		}
		samples := mapper.SamplesFromLegacy(legacy, c.now())
		if len(samples) == 0 {
			return types.SampleSet{}, ErrEmptyResponse
		}
		c.logger.Debug("Legacy columnar payload", "rows", len(samples))
		return types.SampleSet{Samples: samples, Order: types.OldestFirst}, nil

	default:
		return types.SampleSet{}, fmt.Errorf("unmarshal levels: unexpected payload starting with %q", trimmed[0])
	}
}

// GetBuckets retrieves the hourly level buckets used for the history chart.
func (c *APIClient) GetBuckets(ctx context.Context) ([]types.Bucket, error) {
	data, err := c.doRequest(ctx, "GET", pathLast4h, nil)
	if err != nil {
		return nil, err
	}

	var buckets []types.Bucket
	if err := json.Unmarshal(data, &buckets); err != nil {
		return nil, fmt.Errorf("unmarshal buckets: %w", err)
	}

	return buckets, nil
}
