package model

// Timeline maps character name -> datetime string ("YYYY-MM-DD HH:MM") ->
// event description. Chapters are not guaranteed chronological, so new
// entries may land anywhere in a character's date map.
type Timeline map[string]map[string]string

func (t Timeline) Clone() Timeline {
	out := make(Timeline, len(t))
	for character, events := range t {
		cp := make(map[string]string, len(events))
		for dt, ev := range events {
			cp[dt] = ev
		}
		out[character] = cp
	}
	return out
}

// Contains reports whether every (character, datetime, event) entry of other
// is present in t. Snapshot n must contain snapshot n-1 in full.
func (t Timeline) Contains(other Timeline) bool {
	for character, events := range other {
		mine, ok := t[character]
		if !ok {
			return false
		}
		for dt, ev := range events {
			if mine[dt] != ev {
				return false
			}
		}
	}
	return true
}
