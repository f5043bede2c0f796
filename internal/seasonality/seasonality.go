// Package seasonality rates how favorable a month is for visiting a country
// from a hand-curated calendar.
package seasonality

import (
	"slices"
	"time"
)

// Label is the verdict for a month.
type Label string

const (
	LabelBest     Label = "best"
	LabelGood     Label = "good"
	LabelShoulder Label = "shoulder"
	LabelPoor     Label = "poor"
)

// Scores for a month found in each list, and for a month in none of them.
const (
	ScoreBest     = 100
	ScoreShoulder = 80
	ScoreGood     = 40
	ScoreAvoid    = 0
	ScoreNeutral  = 50
)

// Definition is the curated calendar entry for one country. Months are 1-12;
// lists may overlap and are checked best, shoulder, good, avoid.
type Definition struct {
	Best     []int  `json:"best"`
	Good     []int  `json:"good,omitempty"`
	Shoulder []int  `json:"shoulder,omitempty"`
	Avoid    []int  `json:"avoid,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Result is the seasonality verdict for one country and month.
type Result struct {
	BestMonths  []int
	TodayScore  float64
	TodayLabel  Label
	Notes       string
	HasDualPeak bool
}

// LabelFromScore buckets a 0-100 score: >=80 best, >=70 good, >=40 shoulder,
// else poor. The neutral 50 therefore reads as shoulder.
func LabelFromScore(score float64) Label {
	switch {
	case score >= 80:
		return LabelBest
	case score >= 70:
		return LabelGood
	case score >= 40:
		return LabelShoulder
	default:
		return LabelPoor
	}
}

// Evaluate scores month against def. Months outside 1..12 in def are ignored.
func Evaluate(def Definition, month time.Month) Result {
	m := int(month)
	score, label := float64(ScoreNeutral), LabelFromScore(ScoreNeutral)
	switch {
	case slices.Contains(def.Best, m):
		score, label = ScoreBest, LabelBest
	case slices.Contains(def.Shoulder, m):
		score, label = ScoreShoulder, LabelShoulder
	case slices.Contains(def.Good, m):
		score, label = ScoreGood, LabelGood
	case slices.Contains(def.Avoid, m):
		score, label = ScoreAvoid, LabelPoor
	}

	best := normalizeMonths(def.Best)
	return Result{
		BestMonths:  best,
		TodayScore:  score,
		TodayLabel:  label,
		Notes:       def.Notes,
		HasDualPeak: len(Peaks(best)) >= 2,
	}
}

// Peaks groups months into runs of consecutive months, joining a run that
// ends in December with one that starts in January.
func Peaks(months []int) [][]int {
	sorted := normalizeMonths(months)
	if len(sorted) == 0 {
		return nil
	}

	var groups [][]int
	group := []int{sorted[0]}
	for _, m := range sorted[1:] {
		if m == group[len(group)-1]+1 {
			group = append(group, m)
			continue
		}
		groups = append(groups, group)
		group = []int{m}
	}
	groups = append(groups, group)

	if len(groups) > 1 {
		first, last := groups[0], groups[len(groups)-1]
		if first[0] == 1 && last[len(last)-1] == 12 {
			groups[0] = append(append([]int{}, last...), first...)
			groups = groups[:len(groups)-1]
		}
	}
	return groups
}

// normalizeMonths returns the sorted, de-duplicated valid months.
func normalizeMonths(months []int) []int {
	out := make([]int, 0, len(months))
	for _, m := range months {
		if m >= 1 && m <= 12 {
			out = append(out, m)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
