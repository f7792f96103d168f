// Package playback resolves a live playback position into the currently
// spoken span of the timeline.
package playback

import "github.com/voxline/narravox/internal/timeline"

// NoActiveRecord is returned by FindActive when no record covers the query
// time: in a gap between records, before the first record, or at/after the
// last record's end.
const NoActiveRecord = -1

// FindActive returns the index of the unique record satisfying
// start_ms <= currentTimeMS < end_ms, or NoActiveRecord.
//
// Records must be sorted by StartMS. End times are exclusive, which resolves
// the boundary ambiguity at exact transition instants. The lookup is a
// binary search so it stays sub-millisecond on large documents.
func FindActive(records []timeline.Record, currentTimeMS int) int {
	lo, hi := 0, len(records)-1

	for lo <= hi {
		mid := (lo + hi) / 2
		r := records[mid]
		switch {
		case currentTimeMS < r.StartMS:
			hi = mid - 1
		case currentTimeMS >= r.EndMS:
			lo = mid + 1
		default:
			return mid
		}
	}

	return NoActiveRecord
}
