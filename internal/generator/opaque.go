package generator

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/nrednav/cuid2"
	"github.com/oklog/ulid/v2"
	"github.com/segmentio/ksuid"
)

// Opaque string-ID generators, offered alongside the snowflake generator for
// callers that want unguessable or lexicographically sortable identifiers
// rather than decodable 64-bit integers. None of them supports Parse.

// batch runs gen count times, failing on the first error.
func batch(count int, gen func() (string, error)) ([]string, error) {
	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		id, err := gen()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// UUIDGenerator produces random (v4) UUIDs.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator { return &UUIDGenerator{} }

func (g *UUIDGenerator) Generate() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate uuid: %w", err)
	}
	return id.String(), nil
}

func (g *UUIDGenerator) GenerateBatch(count int) ([]string, error) {
	return batch(count, g.Generate)
}

// ULIDGenerator produces ULIDs with crypto/rand entropy.
type ULIDGenerator struct{}

func NewULIDGenerator() *ULIDGenerator { return &ULIDGenerator{} }

func (g *ULIDGenerator) Generate() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate ulid: %w", err)
	}
	return id.String(), nil
}

func (g *ULIDGenerator) GenerateBatch(count int) ([]string, error) {
	return batch(count, g.Generate)
}

// KSUIDGenerator produces KSUIDs.
type KSUIDGenerator struct{}

func NewKSUIDGenerator() *KSUIDGenerator { return &KSUIDGenerator{} }

func (g *KSUIDGenerator) Generate() (string, error) {
	id, err := ksuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate ksuid: %w", err)
	}
	return id.String(), nil
}

func (g *KSUIDGenerator) GenerateBatch(count int) ([]string, error) {
	return batch(count, g.Generate)
}

// NanoID and CUID2 defaults, used by the service configuration.
const (
	DefaultNanoIDSize     = 21
	DefaultNanoIDAlphabet = "_-0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	DefaultCUID2Length    = 24
)

// NanoIDGenerator produces NanoIDs from a fixed alphabet and length.
type NanoIDGenerator struct {
	size     int
	alphabet string
}

// NewNanoIDGenerator validates size and alphabet once, at construction.
func NewNanoIDGenerator(size int, alphabet string) (*NanoIDGenerator, error) {
	if size < 1 || size > 256 {
		return nil, fmt.Errorf("%w: nanoid size %d must be between 1 and 256", ErrInvalidConfiguration, size)
	}
	if len(alphabet) < 2 {
		return nil, fmt.Errorf("%w: nanoid alphabet must have at least 2 characters", ErrInvalidConfiguration)
	}
	return &NanoIDGenerator{size: size, alphabet: alphabet}, nil
}

func (g *NanoIDGenerator) Generate() (string, error) {
	id, err := gonanoid.Generate(g.alphabet, g.size)
	if err != nil {
		return "", fmt.Errorf("failed to generate nanoid: %w", err)
	}
	return id, nil
}

func (g *NanoIDGenerator) GenerateBatch(count int) ([]string, error) {
	return batch(count, g.Generate)
}

// CUID2Generator produces CUID2 identifiers of a fixed length.
type CUID2Generator struct {
	generate func() string
}

// NewCUID2Generator validates length once, at construction.
// length must be between 2 and 32.
func NewCUID2Generator(length int) (*CUID2Generator, error) {
	if length < 2 || length > 32 {
		return nil, fmt.Errorf("%w: cuid2 length %d must be between 2 and 32", ErrInvalidConfiguration, length)
	}
	gen, err := cuid2.Init(cuid2.WithLength(length))
	if err != nil {
		return nil, fmt.Errorf("%w: cuid2 init: %v", ErrInvalidConfiguration, err)
	}
	return &CUID2Generator{generate: gen}, nil
}

func (g *CUID2Generator) Generate() (string, error) {
	return g.generate(), nil
}

func (g *CUID2Generator) GenerateBatch(count int) ([]string, error) {
	return batch(count, g.Generate)
}
