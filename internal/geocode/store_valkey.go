// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

const valkeyKeyPrefix = "userlocation:geocode:"

// ValkeyStore keeps geocoding results in a Valkey (or Redis) server, so several instances
// can share them.
type ValkeyStore struct {
	client valkey.Client
}

func NewValkeyStore(addr string) (*ValkeyStore, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}
	return &ValkeyStore{client: client}, nil
}

func (v *ValkeyStore) Get(ctx context.Context, key string) ([]Placemark, bool, error) {
	data, err := v.client.Do(ctx, v.client.B().Get().Key(valkeyKeyPrefix+key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cache entry: %w", err)
	}

	var placemarks []Placemark
	if err = json.Unmarshal(data, &placemarks); err != nil {
		return nil, false, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return placemarks, true, nil
}

func (v *ValkeyStore) Set(ctx context.Context, key string, placemarks []Placemark, ttl time.Duration) error {
	if placemarks == nil {
		placemarks = []Placemark{}
	}
	data, err := json.Marshal(placemarks)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	cmd := v.client.B().Set().Key(valkeyKeyPrefix + key).Value(string(data)).Ex(ttl).Build()
	if err = v.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to set cache entry: %w", err)
	}
	return nil
}

func (v *ValkeyStore) Close() {
	v.client.Close()
}
