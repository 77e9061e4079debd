package parallel

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestFor(t *testing.T) {
	configs := map[string]Config{
		"default":    DefaultConfig(),
		"sequential": Config{NumWorkers: 1, GrainSize: 1},
		"four":       {NumWorkers: 4, GrainSize: 1},
		"coarse":     {NumWorkers: 3, GrainSize: 100},
	}
	for name, c := range configs {
		t.Run(name, func(t *testing.T) {
			n := 1000
			var count int64
			hits := make([]int32, n)
			For(c, n, func(i int) {
				atomic.AddInt64(&count, 1)
				atomic.AddInt32(&hits[i], 1)
			})
			if count != int64(n) {
				t.Errorf("For processed %d items, want %d", count, n)
			}
			for i, h := range hits {
				if h != 1 {
					t.Fatalf("index %d visited %d times", i, h)
				}
			}
		})
	}
}

func TestForSmall(t *testing.T) {
	n := 4
	results := make([]int, n)
	For(DefaultConfig(), n, func(i int) {
		results[i] = i * 2
	})
	for i := 0; i < n; i++ {
		if results[i] != i*2 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], i*2)
		}
	}
	For(DefaultConfig(), 0, func(int) { t.Error("called for empty range") })
}

func TestForWithError(t *testing.T) {
	c := Config{NumWorkers: 4, GrainSize: 1}
	if err := ForWithError(c, 100, func(int) error { return nil }); err != nil {
		t.Errorf("ForWithError returned error: %v", err)
	}

	expected := errors.New("slice 50 failed")
	for _, cfg := range []Config{c, Config{NumWorkers: 1, GrainSize: 1}} {
		err := ForWithError(cfg, 100, func(i int) error {
			if i == 50 {
				return expected
			}
			return nil
		})
		if err != expected {
			t.Errorf("ForWithError(%+v) returned %v, want %v", cfg, err, expected)
		}
	}
}

func TestChunksCoverRange(t *testing.T) {
	c := Config{NumWorkers: 3, GrainSize: 1}
	ranges := c.chunks(10)
	if len(ranges) != 3 {
		t.Fatalf("got %d ranges", len(ranges))
	}
	next := 0
	for _, r := range ranges {
		if r[0] != next || r[1] <= r[0] {
			t.Fatalf("ranges %v not contiguous", ranges)
		}
		next = r[1]
	}
	if next != 10 {
		t.Errorf("ranges end at %d", next)
	}
	if c.chunks(3) != nil {
		t.Error("expected sequential run below the grain size")
	}
}

func TestWorkers(t *testing.T) {
	if (Config{NumWorkers: 5}).Workers() != 5 {
		t.Error("explicit worker count ignored")
	}
	if DefaultConfig().Workers() < 1 {
		t.Error("default worker count below one")
	}
}
