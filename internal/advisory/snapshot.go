package advisory

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

//go:embed snapshot.json
var snapshotJSON []byte

// snapshotRecord is one snapshot object with its values left undecoded.
type snapshotRecord map[string]json.RawMessage

type levelExtractor func(snapshotRecord) (int, bool)

// Tried in order; the first key holding a whole number or numeric string wins.
var levelExtractors = []levelExtractor{
	levelField("level"),
	levelField("advisory_level"),
	levelField("advisoryLevel"),
	levelField("levelNumber"),
}

func levelField(name string) levelExtractor {
	return func(r snapshotRecord) (int, bool) {
		raw, ok := r[name]
		if !ok {
			return 0, false
		}
		var n float64
		if err := json.Unmarshal(raw, &n); err == nil {
			if n != math.Trunc(n) {
				return 0, false
			}
			return int(n), true
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
				return v, true
			}
		}
		return 0, false
	}
}

func (r snapshotRecord) str(name string) string {
	raw, ok := r[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func (r snapshotRecord) level() int {
	for _, extract := range levelExtractors {
		if n, ok := extract(r); ok {
			return n
		}
	}
	return 0
}

// Snapshot returns the embedded baseline advisories.
func Snapshot() ([]RawEntry, error) {
	return ParseSnapshot(snapshotJSON)
}

// ParseSnapshot decodes a JSON array of advisory objects.
func ParseSnapshot(data []byte) ([]RawEntry, error) {
	var records []snapshotRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decoding advisory snapshot: %w", err)
	}

	out := make([]RawEntry, 0, len(records))
	for _, r := range records {
		e := RawEntry{
			Identifier: strings.ToUpper(strings.TrimSpace(r.str("iso2"))),
			Level:      r.level(),
			Summary:    r.str("summary"),
			URL:        r.str("url"),
		}
		for _, key := range []string{"updated", "updatedAt"} {
			if t, err := time.Parse(time.RFC3339, r.str(key)); err == nil {
				e.Updated = t.UTC()
				break
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// Overlay returns base with every entry of top replacing the base entry with
// the same identifier. Top entries without a valid level are dropped and
// leave the base entry in place.
func Overlay(base, top []RawEntry) []RawEntry {
	seen := make(map[string]int, len(base)+len(top))
	out := make([]RawEntry, 0, len(base)+len(top))
	keep := func(e RawEntry) {
		if i, ok := seen[e.Identifier]; ok {
			out[i] = e
			return
		}
		seen[e.Identifier] = len(out)
		out = append(out, e)
	}
	for _, e := range base {
		keep(e)
	}
	for _, e := range top {
		if ValidLevel(e.Level) {
			keep(e)
		}
	}
	return out
}
