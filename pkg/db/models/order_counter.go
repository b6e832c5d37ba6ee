package models

// OrderCounter hands out per-year sequence numbers for human-readable order
// numbers (ORD-<year>-<seq>).
type OrderCounter struct {
	Year    int   `gorm:"column:year;primaryKey"`
	LastSeq int64 `gorm:"column:last_seq;not null;default:0"`
}
