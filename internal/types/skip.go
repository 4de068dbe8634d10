package types

// SkipReason explains why an entry was routed to the skip list.
type SkipReason string

const (
	SkipFolder      SkipReason = "Skip Folder"
	SkipFile        SkipReason = "Skip File"
	SkipAttention   SkipReason = "Attention"
	SkipNullDate    SkipReason = "Null date"
	SkipMalformed   SkipReason = "Malformed date"
	SkipConsistency SkipReason = "Consistency"
)

// SkipRecord is one entry of the skip list. A folder record covers its whole subtree.
type SkipRecord struct {
	Path   string     `json:"path" yaml:"path"`
	Reason SkipReason `json:"reason" yaml:"reason"`
}

// String renders the record the way it appears in the skip list file.
func (r SkipRecord) String() string {
	return string(r.Reason) + ": " + r.Path
}
