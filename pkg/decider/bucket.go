package decider

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// bucketCount is the granularity of the bucket space. Variant ranges are
// expressed as fractions of [0, 1), so 1000 buckets gives 0.1% resolution.
const bucketCount = 1000

// bucketFraction maps a bucketing identity onto [0, 1). The same seed always
// lands in the same bucket, across processes and across reloads of the same
// artifact.
func bucketFraction(seed string) float64 {
	return float64(xxhash.Sum64String(seed)%bucketCount) / bucketCount
}

// bucketSeed builds the hash seed for one experiment and one bucketing
// value. The experiment name salts the hash so the same user lands in
// independent buckets across experiments; a non-zero shuffle version
// re-salts to reshuffle assignments.
func bucketSeed(name string, shuffleVersion int, value string) string {
	if shuffleVersion > 0 {
		return name + "." + strconv.Itoa(shuffleVersion) + ":" + value
	}
	return name + ":" + value
}
