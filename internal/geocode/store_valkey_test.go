// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geocode

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wneessen/userlocation/internal/testhelper"
)

func TestValkeyStore_integration(t *testing.T) {
	testhelper.PerformIntegrationTests(t)
	addr := os.Getenv("USERLOCATION_TEST_VALKEY_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	store, err := NewValkeyStore(addr)
	if err != nil {
		t.Fatalf("failed to connect to valkey: %s", err)
	}
	t.Cleanup(store.Close)

	t.Run("placemarks survive a round trip", func(t *testing.T) {
		key := "test:" + uuid.NewString()
		if err = store.Set(t.Context(), key, []Placemark{testPlacemark}, time.Minute); err != nil {
			t.Fatal(err)
		}
		placemarks, ok, err := store.Get(t.Context(), key)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatal("expected entry to be found")
		}
		if len(placemarks) != 1 || placemarks[0].Thoroughfare != testPlacemark.Thoroughfare {
			t.Errorf("unexpected placemarks: %+v", placemarks)
		}
	})
	t.Run("empty results are stored as found", func(t *testing.T) {
		key := "test:" + uuid.NewString()
		if err = store.Set(t.Context(), key, nil, time.Minute); err != nil {
			t.Fatal(err)
		}
		placemarks, ok, err := store.Get(t.Context(), key)
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatal("expected entry to be found")
		}
		if len(placemarks) != 0 {
			t.Errorf("expected no placemarks, got %d", len(placemarks))
		}
	})
	t.Run("unknown keys are not found", func(t *testing.T) {
		_, ok, err := store.Get(t.Context(), "test:"+uuid.NewString())
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			t.Error("expected entry not to be found")
		}
	})
}
