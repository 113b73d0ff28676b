package generator

// Generator produces string-form IDs.
type Generator interface {
	Generate() (string, error)
	GenerateBatch(count int) ([]string, error)
}

// Parser decodes structured IDs. Only the snowflake generator carries
// decodable structure; opaque formats do not implement it.
type Parser interface {
	Parse(id string) (*ParsedID, error)
	Validate(id string) (valid bool, reason string)
}

// ParsedID holds the fields decoded from a snowflake ID.
type ParsedID struct {
	TimestampMs  int64 `json:"timestamp_ms"`
	DataCenterID int64 `json:"data_center_id"`
	MachineID    int64 `json:"machine_id"`
	Sequence     int64 `json:"sequence"`
}
