package timeline

import (
	"github.com/keiya/multi-layered-story-generator/internal/core/model"
)

// Aggregator folds per-chapter timeline deltas into the running
// per-character event ledger.
type Aggregator struct{}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Merge unions a chapter delta into the previous snapshot and returns the
// new one. Neither input is mutated. Previous entries always survive, so
// every snapshot contains its predecessor in full; a delta entry restating
// an already-known (character, datetime) fact is a no-op, the recorded text
// wins. New entries may land at any datetime since chapter order is not
// story chronology.
func (a *Aggregator) Merge(previous, delta model.Timeline) model.Timeline {
	merged := previous.Clone()

	for character, events := range delta {
		existing, ok := merged[character]
		if !ok {
			existing = make(map[string]string, len(events))
			merged[character] = existing
		}
		for dt, ev := range events {
			if _, seen := existing[dt]; seen {
				continue
			}
			existing[dt] = ev
		}
	}

	return merged
}
