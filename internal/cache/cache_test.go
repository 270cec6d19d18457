package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/iwvelando/heloc-forecast/pkg/domain"
	"github.com/iwvelando/heloc-forecast/pkg/simulator"
)

func testInput() simulator.Input {
	return simulator.Input{
		Mortgage: domain.MortgageInput{Principal: 250000, AnnualInterestRate: 0.065, TermInMonths: 240, MonthlyPayment: 1800},
		Heloc:    &domain.HelocInput{Limit: 100000, AnnualInterestRate: 0.045, AvailableCredit: 100000},
	}
}

func TestKey(t *testing.T) {
	a, err := Key(testInput(), simulator.DefaultConfig())
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	b, err := Key(testInput(), simulator.DefaultConfig())
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if a != b {
		t.Errorf("identical inputs produced different keys: %s vs %s", a, b)
	}

	changed := testInput()
	changed.Heloc.AvailableCredit = 50000
	c, _ := Key(changed, simulator.DefaultConfig())
	if c == a {
		t.Error("different inputs produced the same key")
	}

	capped := simulator.DefaultConfig()
	capped.MonthsToProject = 12
	d, _ := Key(testInput(), capped)
	if d == a {
		t.Error("different configs produced the same key")
	}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(time.Minute)
	m.now = func() time.Time { return now }

	if _, ok, err := m.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("Get(missing) = %v, %v", ok, err)
	}

	value := []byte(`{"status":"paid_off"}`)
	if err := m.Set(ctx, "k", value); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value[0] = 'x'

	got, ok, err := m.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get() = %v, %v", ok, err)
	}
	if string(got) != `{"status":"paid_off"}` {
		t.Errorf("stored value was aliased: %s", got)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("expired entry was returned")
	}
	if m.Len() != 0 {
		t.Errorf("expired entry was not evicted, Len() = %d", m.Len())
	}
}

func TestMemorySweepsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(time.Minute)
	m.now = func() time.Time { return now }

	for i := range 1000 {
		if err := m.Set(ctx, fmt.Sprintf("k%d", i), []byte("v")); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}
	if m.Len() != 1000 {
		t.Fatalf("Len() = %d, expected 1000", m.Len())
	}

	now = now.Add(time.Hour)
	if err := m.Set(ctx, "fresh", []byte("v")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if m.Len() != 1 {
		t.Errorf("expired entries survived a write, Len() = %d", m.Len())
	}
	if _, ok, _ := m.Get(ctx, "fresh"); !ok {
		t.Error("fresh entry missing after sweep")
	}
}

func TestMemoryMaxEntries(t *testing.T) {
	tests := []struct {
		name string
		ttl  time.Duration
	}{
		{"With expiry", time.Hour},
		{"Without expiry", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
			m := NewMemory(tt.ttl, WithMaxEntries(3))
			m.now = func() time.Time { return now }

			for i := range 5 {
				now = now.Add(time.Second)
				if err := m.Set(ctx, fmt.Sprintf("k%d", i), []byte("v")); err != nil {
					t.Fatalf("Set() error = %v", err)
				}
			}
			if m.Len() != 3 {
				t.Fatalf("Len() = %d, expected 3", m.Len())
			}
			if _, ok, _ := m.Get(ctx, "k4"); !ok {
				t.Error("latest entry was evicted")
			}
			if tt.ttl > 0 {
				if _, ok, _ := m.Get(ctx, "k0"); ok {
					t.Error("oldest entry was kept")
				}
			}

			// Overwriting an existing key does not evict.
			if err := m.Set(ctx, "k4", []byte("w")); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if m.Len() != 3 {
				t.Errorf("Len() after overwrite = %d, expected 3", m.Len())
			}
		})
	}
}
