package generator

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"
)

// Snowflake ID layout, most significant to least significant:
//
//	1 bit   sign, always 0
//	41 bits timestamp delta (ms since epoch)
//	5 bits  data center ID
//	5 bits  machine ID
//	12 bits sequence
const (
	// DefaultEpoch is 2024-09-01 00:00:00 UTC in unix milliseconds.
	DefaultEpoch int64 = 1725148800000

	timestampBits    = 41
	dataCenterIDBits = 5
	machineIDBits    = 5
	sequenceBits     = 12

	// MaxDataCenterID is the largest valid data center ID (5 bits).
	MaxDataCenterID int64 = (1 << dataCenterIDBits) - 1 // 31
	// MaxMachineID is the largest valid machine ID (5 bits).
	MaxMachineID int64 = (1 << machineIDBits) - 1 // 31

	sequenceMask int64 = (1 << sequenceBits) - 1 // 4095

	machineIDShift    = sequenceBits
	dataCenterIDShift = sequenceBits + machineIDBits
	timestampShift    = sequenceBits + machineIDBits + dataCenterIDBits
)

// stateSentinel encodes (lastTimestamp = -1, sequence = 0), the state of a
// generator that has not issued any ID yet. The first call always sees the
// wall clock ahead of it.
const stateSentinel = int64(-1) << sequenceBits

// ErrInvalidConfiguration is returned when a generator is constructed with an
// out-of-range data center ID, machine ID, or a future epoch.
var ErrInvalidConfiguration = errors.New("invalid generator configuration")

// ErrClockRegressed matches any ClockRegressedError via errors.Is.
var ErrClockRegressed = errors.New("clock moved backwards")

// ClockRegressedError reports that the wall clock was observed behind the
// timestamp of the most recently issued ID. It is never retried internally:
// generating through a backward jump risks duplicating IDs already handed out.
type ClockRegressedError struct {
	LastTimestamp int64 // ms timestamp of the last issued ID
	Timestamp     int64 // ms timestamp observed on this call
}

func (e *ClockRegressedError) Error() string {
	return fmt.Sprintf("clock moved backwards: refusing to generate ids for %dms (last=%d, now=%d)",
		e.LastTimestamp-e.Timestamp, e.LastTimestamp, e.Timestamp)
}

func (e *ClockRegressedError) Is(target error) bool { return target == ErrClockRegressed }

var (
	_ Generator = (*SnowflakeGenerator)(nil)
	_ Parser    = (*SnowflakeGenerator)(nil)
)

// SnowflakeGenerator produces unique, time-ordered 64-bit IDs. One instance
// may be shared by any number of goroutines: the mutable (lastTimestamp,
// sequence) pair is packed into a single atomic word and advanced with a
// compare-and-swap loop, so contending callers retry instead of blocking on
// a lock.
type SnowflakeGenerator struct {
	dataCenterID int64
	machineID    int64
	epoch        int64

	// state packs lastTimestamp<<sequenceBits | sequence. Both fields must
	// move in one atomic step; swapping them separately reopens the race
	// the CAS closes.
	state atomic.Int64

	now func() int64 // ms clock, replaceable in tests
}

// NewSnowflakeGenerator creates a generator with the default epoch.
// dataCenterID and machineID must each be in [0, 31].
func NewSnowflakeGenerator(dataCenterID, machineID int64) (*SnowflakeGenerator, error) {
	return NewSnowflakeGeneratorWithEpoch(dataCenterID, machineID, DefaultEpoch)
}

// NewSnowflakeGeneratorWithEpoch creates a generator with a custom epoch in
// unix milliseconds. The epoch must not be in the future. Range checks happen
// here once; NextID never re-validates configuration.
func NewSnowflakeGeneratorWithEpoch(dataCenterID, machineID, epoch int64) (*SnowflakeGenerator, error) {
	if dataCenterID < 0 || dataCenterID > MaxDataCenterID {
		return nil, fmt.Errorf("%w: data center ID %d must be between 0 and %d",
			ErrInvalidConfiguration, dataCenterID, MaxDataCenterID)
	}
	if machineID < 0 || machineID > MaxMachineID {
		return nil, fmt.Errorf("%w: machine ID %d must be between 0 and %d",
			ErrInvalidConfiguration, machineID, MaxMachineID)
	}
	if epoch > time.Now().UnixMilli() {
		return nil, fmt.Errorf("%w: epoch %d is in the future", ErrInvalidConfiguration, epoch)
	}

	g := &SnowflakeGenerator{
		dataCenterID: dataCenterID,
		machineID:    machineID,
		epoch:        epoch,
		now:          func() int64 { return time.Now().UnixMilli() },
	}
	g.state.Store(stateSentinel)
	return g, nil
}

// NextID returns the next unique ID, or a ClockRegressedError if the wall
// clock has moved behind the last issued timestamp. A failed call leaves the
// generator state untouched; once the clock catches up the instance is
// usable again.
func (g *SnowflakeGenerator) NextID() (int64, error) {
	for {
		snapshot := g.state.Load()
		last := snapshot >> sequenceBits
		seq := snapshot & sequenceMask

		ts := g.now()
		if ts < last {
			return 0, &ClockRegressedError{LastTimestamp: last, Timestamp: ts}
		}

		if ts == last {
			seq = (seq + 1) & sequenceMask
			if seq == 0 {
				// Sequence exhausted for this millisecond.
				var err error
				ts, err = g.waitNextMillis(last)
				if err != nil {
					return 0, err
				}
			}
		} else {
			seq = 0
		}

		if g.state.CompareAndSwap(snapshot, ts<<sequenceBits|seq) {
			return (ts-g.epoch)<<timestampShift |
				g.dataCenterID<<dataCenterIDShift |
				g.machineID<<machineIDShift |
				seq, nil
		}
		// Another goroutine advanced the state first; retry on a fresh
		// snapshot.
		runtime.Gosched()
	}
}

// waitNextMillis polls the clock until it moves strictly past last. A sample
// behind last is a clock regression and fails the call. The expected wait is
// under a millisecond, so this yields between samples rather than sleeping.
func (g *SnowflakeGenerator) waitNextMillis(last int64) (int64, error) {
	for {
		ts := g.now()
		if ts > last {
			return ts, nil
		}
		if ts < last {
			return 0, &ClockRegressedError{LastTimestamp: last, Timestamp: ts}
		}
		runtime.Gosched()
	}
}

// Generate returns the next ID formatted in decimal.
func (g *SnowflakeGenerator) Generate() (string, error) {
	id, err := g.NextID()
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(id, 10), nil
}

// GenerateBatch returns count IDs formatted in decimal.
func (g *SnowflakeGenerator) GenerateBatch(count int) ([]string, error) {
	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		id, err := g.Generate()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Validate reports whether id is a well-formed snowflake ID that this
// generator's epoch could have produced.
func (g *SnowflakeGenerator) Validate(id string) (bool, string) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return false, "invalid integer format"
	}
	if n < 0 {
		return false, "id must be a non-negative integer"
	}

	ts := (n >> timestampShift) & ((1 << timestampBits) - 1)
	if absolute := ts + g.epoch; absolute > time.Now().UnixMilli() {
		return false, "timestamp is in the future"
	}

	return true, ""
}

// Parse decodes the timestamp, data center ID, machine ID and sequence from
// a snowflake ID. The timestamp is returned as absolute unix milliseconds.
func (g *SnowflakeGenerator) Parse(id string) (*ParsedID, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid integer format: %w", err)
	}
	if n < 0 {
		return nil, errors.New("id must be a non-negative integer")
	}

	return &ParsedID{
		TimestampMs:  ((n >> timestampShift) & ((1 << timestampBits) - 1)) + g.epoch,
		DataCenterID: (n >> dataCenterIDShift) & MaxDataCenterID,
		MachineID:    (n >> machineIDShift) & MaxMachineID,
		Sequence:     n & sequenceMask,
	}, nil
}
