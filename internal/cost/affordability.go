package cost

// Band is a coarse affordability label.
type Band string

const (
	BandGood   Band = "good"
	BandWarn   Band = "warn"
	BandBad    Band = "bad"
	BandDanger Band = "danger"
)

// Upper bounds in USD per day for buckets 1 through 9.
var bucketThresholds = [...]float64{40, 60, 80, 100, 130, 170, 220, 300, 400}

// Bucket assigns a daily cost to a tier from 1 (cheapest) to 10: the first
// tier whose threshold is at least the cost, else 10.
func Bucket(costUSD float64) int {
	for i, limit := range bucketThresholds {
		if costUSD <= limit {
			return i + 1
		}
	}
	return len(bucketThresholds) + 1
}

// Score converts a bucket to 0-100 where cheaper is higher.
func Score(bucket int) float64 {
	return float64(11-bucket) * 10
}

// BandFor maps a bucket to its band.
func BandFor(bucket int) Band {
	switch {
	case bucket <= 3:
		return BandGood
	case bucket <= 5:
		return BandWarn
	case bucket <= 7:
		return BandBad
	default:
		return BandDanger
	}
}

// Affordability is the second-pass classification of a daily spend.
type Affordability struct {
	Bucket int
	Score  float64
	Band   Band
}

// Classify buckets a daily spend by its total.
func Classify(ds DailySpend) Affordability {
	b := Bucket(float64(ds.TotalUSD))
	return Affordability{Bucket: b, Score: Score(b), Band: BandFor(b)}
}
