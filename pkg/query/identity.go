// Package query maintains the channel-list query cache: per
// (filter, sort) identities and their cached channel-id sets.
package query

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"chatsync/pkg/models"
)

// Normalize returns the canonical key-value form of a filter, so
// structurally-equal filters always compare equal regardless of the
// shapes they were built from. The canonical form is what a JSON
// round-trip produces: string-keyed maps, float64 numbers, sorted keys
// on encode.
func Normalize(filter map[string]any) (map[string]any, error) {
	if filter == nil {
		filter = map[string]any{}
	}
	data, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("filter not encodable: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Identity derives the stable identity of a (filter, sort) descriptor.
// Two descriptors that normalize to the same filter and carry the same
// sort spec always produce the same identity.
func Identity(filter map[string]any, sort []models.SortOption) (string, error) {
	norm, err := Normalize(filter)
	if err != nil {
		return "", err
	}
	// json.Marshal emits map keys in sorted order, which makes the
	// encoding canonical.
	data, err := json.Marshal(norm)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write(data)
	for _, s := range sort {
		h.Write([]byte("|" + s.Field + ":" + strconv.Itoa(s.Direction)))
	}
	return hex.EncodeToString(h.Sum(nil))[:32], nil
}

// NewQueryChannels builds a query entity with its identity filled in.
func NewQueryChannels(filter map[string]any, sort []models.SortOption) (*models.QueryChannels, error) {
	norm, err := Normalize(filter)
	if err != nil {
		return nil, err
	}
	id, err := Identity(norm, sort)
	if err != nil {
		return nil, err
	}
	return &models.QueryChannels{ID: id, Filter: norm, Sort: sort}, nil
}
