package models

// Kind classifies what a ticker string resolved to.
type Kind int

const (
	KindUnresolved Kind = iota
	KindFuture
	KindOption
)

func (k Kind) String() string {
	switch k {
	case KindFuture:
		return "FUTURE"
	case KindOption:
		return "OPTION"
	default:
		return "UNRESOLVED"
	}
}

// Bucket is a futures roll bucket label, also reused to rank option expiries.
type Bucket string

const (
	BucketNear Bucket = "FUT_I"
	BucketMid  Bucket = "FUT_II"
	BucketFar  Bucket = "FUT_III"
)

// Buckets lists the roll buckets from nearest to farthest.
var Buckets = []Bucket{BucketNear, BucketMid, BucketFar}

// OptionType is CE (call) or PE (put).
type OptionType string

const (
	OptionNone OptionType = ""
	OptionCall OptionType = "CE"
	OptionPut  OptionType = "PE"
)

// Contract is the parsed form of one distinct ticker. Exactly one of the
// future or option shapes is populated unless Kind is KindUnresolved.
type Contract struct {
	Ticker string
	Symbol string
	Kind   Kind

	// Expiry is the raw ddMMMyy token for options and dated futures.
	Expiry string
	// Bucket is the roll bucket for futures; for options it is the
	// expiry's rank relative to the trade date.
	Bucket Bucket

	Strike     int64
	OptionType OptionType
}

// Resolved reports whether the ticker matched a modelled derivative shape.
func (c Contract) Resolved() bool {
	return c.Kind == KindFuture || c.Kind == KindOption
}
