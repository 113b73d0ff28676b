package generator

import (
	"errors"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"
)

func mustGenerator(t *testing.T, dataCenterID, machineID int64) *SnowflakeGenerator {
	t.Helper()
	g, err := NewSnowflakeGenerator(dataCenterID, machineID)
	if err != nil {
		t.Fatalf("NewSnowflakeGenerator(%d, %d): %v", dataCenterID, machineID, err)
	}
	return g
}

func TestConstructorValidation(t *testing.T) {
	cases := []struct {
		name         string
		dataCenterID int64
		machineID    int64
		wantErr      bool
	}{
		{"data center too large", 32, 0, true},
		{"data center negative", -1, 0, true},
		{"machine too large", 0, 32, true},
		{"machine negative", 0, -1, true},
		{"both at max", 31, 31, false},
		{"both at min", 0, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewSnowflakeGenerator(tc.dataCenterID, tc.machineID)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidConfiguration) {
					t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestConstructorRejectsFutureEpoch(t *testing.T) {
	future := time.Now().UnixMilli() + 60_000
	_, err := NewSnowflakeGeneratorWithEpoch(0, 0, future)
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration for future epoch, got %v", err)
	}
}

func TestIDGeneration(t *testing.T) {
	g := mustGenerator(t, 1, 19)

	id, err := g.NextID()
	if err != nil {
		t.Fatalf("NextID: %v", err)
	}
	if id < 0 {
		t.Fatalf("expected non-negative id, got %d", id)
	}
	t.Logf("generated snowflake id: %d (binary %s)", id, strconv.FormatInt(id, 2))
}

func TestBitLayoutRoundTrip(t *testing.T) {
	const (
		epoch = int64(1725148800000)
		delta = int64(123456789)
	)
	g, err := NewSnowflakeGeneratorWithEpoch(9, 29, epoch)
	if err != nil {
		t.Fatalf("NewSnowflakeGeneratorWithEpoch: %v", err)
	}
	g.now = func() int64 { return epoch + delta }

	// The 8th ID within one millisecond carries sequence 7.
	var id int64
	for i := 0; i < 8; i++ {
		id, err = g.NextID()
		if err != nil {
			t.Fatalf("NextID #%d: %v", i, err)
		}
	}

	want := delta<<22 | 9<<17 | 29<<12 | 7
	if id != want {
		t.Fatalf("packed id = %d, want %d", id, want)
	}

	parsed, err := g.Parse(strconv.FormatInt(id, 10))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.TimestampMs != epoch+delta {
		t.Errorf("TimestampMs = %d, want %d", parsed.TimestampMs, epoch+delta)
	}
	if parsed.DataCenterID != 9 {
		t.Errorf("DataCenterID = %d, want 9", parsed.DataCenterID)
	}
	if parsed.MachineID != 29 {
		t.Errorf("MachineID = %d, want 29", parsed.MachineID)
	}
	if parsed.Sequence != 7 {
		t.Errorf("Sequence = %d, want 7", parsed.Sequence)
	}
}

func TestDecodedTimestampWithinCallWindow(t *testing.T) {
	g := mustGenerator(t, 3, 7)

	before := time.Now().UnixMilli()
	id, err := g.NextID()
	if err != nil {
		t.Fatalf("NextID: %v", err)
	}
	after := time.Now().UnixMilli()

	parsed, err := g.Parse(strconv.FormatInt(id, 10))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.TimestampMs < before || parsed.TimestampMs > after {
		t.Fatalf("decoded timestamp %d outside call window [%d, %d]", parsed.TimestampMs, before, after)
	}
}

func TestSequenceRollover(t *testing.T) {
	g, err := NewSnowflakeGeneratorWithEpoch(0, 0, 0)
	if err != nil {
		t.Fatalf("NewSnowflakeGeneratorWithEpoch: %v", err)
	}

	// Frozen fake clock: the first 4097 samples see ms 1000; every sample
	// after that sees 1001, so the rollover wait terminates.
	ticks := 0
	g.now = func() int64 {
		if ticks >= 4097 {
			return 1001
		}
		ticks++
		return 1000
	}

	for i := 0; i < 4096; i++ {
		id, err := g.NextID()
		if err != nil {
			t.Fatalf("NextID #%d: %v", i, err)
		}
		if seq := id & sequenceMask; seq != int64(i) {
			t.Fatalf("id #%d has sequence %d, want %d", i, seq, i)
		}
		if ts := id >> timestampShift; ts != 1000-g.epoch {
			t.Fatalf("id #%d has timestamp delta %d, want %d", i, ts, 1000-g.epoch)
		}
	}

	// The 4097th ID in the same millisecond must wait for the clock to
	// advance and restart the sequence at 0.
	id, err := g.NextID()
	if err != nil {
		t.Fatalf("NextID after rollover: %v", err)
	}
	if seq := id & sequenceMask; seq != 0 {
		t.Fatalf("post-rollover sequence = %d, want 0", seq)
	}
	if ts := id >> timestampShift; ts != 1001-g.epoch {
		t.Fatalf("post-rollover timestamp delta = %d, want %d", ts, 1001-g.epoch)
	}
}

func TestClockRegressionFailsAndPreservesState(t *testing.T) {
	g := mustGenerator(t, 0, 0)

	current := int64(1000)
	g.now = func() int64 { return current }

	if _, err := g.NextID(); err != nil {
		t.Fatalf("NextID: %v", err)
	}

	// One millisecond backwards must fail without mutating state.
	current = 999
	_, err := g.NextID()
	var regressed *ClockRegressedError
	if !errors.As(err, &regressed) {
		t.Fatalf("expected ClockRegressedError, got %v", err)
	}
	if regressed.LastTimestamp != 1000 || regressed.Timestamp != 999 {
		t.Fatalf("ClockRegressedError = {last: %d, now: %d}, want {1000, 999}", regressed.LastTimestamp, regressed.Timestamp)
	}
	if !errors.Is(err, ErrClockRegressed) {
		t.Fatalf("error does not match ErrClockRegressed: %v", err)
	}

	// Once the clock recovers the generator continues from where it was:
	// same millisecond, next sequence.
	current = 1000
	id, err := g.NextID()
	if err != nil {
		t.Fatalf("NextID after recovery: %v", err)
	}
	if seq := id & sequenceMask; seq != 1 {
		t.Fatalf("post-recovery sequence = %d, want 1 (state must not advance on failure)", seq)
	}
}

func TestClockRegressionDuringRolloverWait(t *testing.T) {
	g := mustGenerator(t, 0, 0)
	g.state.Store(1000<<sequenceBits | sequenceMask)

	samples := 0
	g.now = func() int64 {
		samples++
		if samples == 1 {
			return 1000 // triggers the rollover wait
		}
		return 999 // regression observed inside the wait loop
	}

	_, err := g.NextID()
	if !errors.Is(err, ErrClockRegressed) {
		t.Fatalf("expected clock regression from rollover wait, got %v", err)
	}
}

func TestSerialIDsStrictlyIncrease(t *testing.T) {
	g := mustGenerator(t, 2, 4)

	prev := int64(-1)
	for i := 0; i < 10_000; i++ {
		id, err := g.NextID()
		if err != nil {
			t.Fatalf("NextID #%d: %v", i, err)
		}
		if id <= prev {
			t.Fatalf("id #%d (%d) not greater than previous (%d)", i, id, prev)
		}
		prev = id
	}
}

func TestTimestampFieldNonDecreasing(t *testing.T) {
	g := mustGenerator(t, 0, 1)

	prevTS := int64(-1)
	for i := 0; i < 50_000; i++ {
		id, err := g.NextID()
		if err != nil {
			t.Fatalf("NextID #%d: %v", i, err)
		}
		ts := id >> timestampShift
		if ts < prevTS {
			t.Fatalf("id #%d timestamp field %d decreased below %d", i, ts, prevTS)
		}
		prevTS = ts
	}
}

func TestConcurrentUniqueness(t *testing.T) {
	g := mustGenerator(t, 31, 31)

	workers := runtime.GOMAXPROCS(0)
	perWorker := 1_000_000
	if testing.Short() {
		perWorker = 50_000
	}

	results := make([][]int64, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			ids := make([]int64, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				id, err := g.NextID()
				if err != nil {
					t.Errorf("worker %d: NextID: %v", w, err)
					return
				}
				ids = append(ids, id)
			}
			results[w] = ids
		}(w)
	}
	wg.Wait()

	seen := make(map[int64]struct{}, workers*perWorker)
	for w, ids := range results {
		if len(ids) != perWorker {
			t.Fatalf("worker %d produced %d ids, want %d", w, len(ids), perWorker)
		}
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				t.Fatalf("duplicate id detected: %d", id)
			}
			seen[id] = struct{}{}
		}
	}
	if len(seen) != workers*perWorker {
		t.Fatalf("got %d distinct ids, want %d", len(seen), workers*perWorker)
	}
}

func TestGenerateAndBatchDecimalForm(t *testing.T) {
	g := mustGenerator(t, 5, 6)

	id, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		t.Fatalf("Generate returned non-decimal id %q: %v", id, err)
	}

	ids, err := g.GenerateBatch(100)
	if err != nil {
		t.Fatalf("GenerateBatch: %v", err)
	}
	if len(ids) != 100 {
		t.Fatalf("GenerateBatch returned %d ids, want 100", len(ids))
	}
	seen := make(map[string]struct{}, len(ids))
	for _, s := range ids {
		if _, dup := seen[s]; dup {
			t.Fatalf("duplicate id in batch: %s", s)
		}
		seen[s] = struct{}{}
	}
}

func TestValidate(t *testing.T) {
	g := mustGenerator(t, 0, 0)

	id, err := g.Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if valid, reason := g.Validate(id); !valid {
		t.Fatalf("freshly generated id rejected: %s", reason)
	}
	if valid, _ := g.Validate("not-a-number"); valid {
		t.Fatal("non-numeric id accepted")
	}
	if valid, _ := g.Validate("-5"); valid {
		t.Fatal("negative id accepted")
	}

	// An id stamped one hour from now must be rejected.
	future := (time.Now().UnixMilli() - g.epoch + 3_600_000) << timestampShift
	if valid, _ := g.Validate(strconv.FormatInt(future, 10)); valid {
		t.Fatal("future-stamped id accepted")
	}
}

func TestParseRejectsMalformedInput(t *testing.T) {
	g := mustGenerator(t, 0, 0)

	if _, err := g.Parse("abc"); err == nil {
		t.Fatal("expected error for non-numeric id")
	}
	if _, err := g.Parse("-1"); err == nil {
		t.Fatal("expected error for negative id")
	}
}

func BenchmarkNextID(b *testing.B) {
	g, err := NewSnowflakeGenerator(1, 1)
	if err != nil {
		b.Fatal(err)
	}
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := g.NextID(); err != nil {
				b.Fatal(err)
			}
		}
	})
}
