package filter

import "fmt"

// Bucket is a named answer range on the 0–10 scale.
type Bucket string

const (
	Low  Bucket = "Low"
	Mod  Bucket = "Mod"
	High Bucket = "High"
)

// Buckets lists the canonical buckets in scale order.
var Buckets = []Bucket{Low, Mod, High}

// ParseBucket validates a bucket name. Names are case-sensitive.
func ParseBucket(s string) (Bucket, error) {
	for _, b := range Buckets {
		if string(b) == s {
			return b, nil
		}
	}
	return "", &InvalidBucketError{Bucket: s}
}

// Range returns the inclusive answer bounds of the bucket.
func (b Bucket) Range() (lo, hi int) {
	switch b {
	case Low:
		return 0, 6
	case Mod:
		return 7, 8
	case High:
		return 9, 10
	}
	return 1, 0
}

// Valid reports whether b is one of the canonical buckets.
func (b Bucket) Valid() bool {
	_, err := ParseBucket(string(b))
	return err == nil
}

// Contains reports whether an integer answer falls in the bucket.
func (b Bucket) Contains(answer int) bool {
	lo, hi := b.Range()
	return answer >= lo && answer <= hi
}

// BucketOf classifies an answer; answers outside 0..10 have no bucket.
func BucketOf(answer int) (Bucket, bool) {
	for _, b := range Buckets {
		if b.Contains(answer) {
			return b, true
		}
	}
	return "", false
}

// GroupFilter selects respondents whose answer to Question falls in Bucket.
type GroupFilter struct {
	Question string `json:"question" yaml:"question"`
	Bucket   Bucket `json:"group" yaml:"group"`
}

func (g GroupFilter) String() string { return fmt.Sprintf("%s:%s", g.Question, g.Bucket) }
