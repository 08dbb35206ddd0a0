package resolve

import (
	"strings"

	"github.com/NikolovskiKristijan/ZikDomotica/internal/majordomo"
)

// Match is a resolved device together with the room it was found in.
type Match struct {
	Stanza string
	Device majordomo.Device
}

// Device resolves a free-form device name against a state snapshot.
//
// Resolution runs in three passes of decreasing confidence, each over the
// same candidate sequence:
//
//  1. exact: Normalize(query) equals the normalised device name.
//  2. containment: either normalised string contains the other.
//  3. token overlap: the candidate sharing the most tokens with the query
//     wins, provided it shares at least one.
//
// A pass only runs when the previous one found nothing, and within a pass
// the first hit in room order wins (ties in pass 3 keep the earliest
// candidate). The room argument is an advisory hint: when it names a known
// room only that room's devices are considered, otherwise it is ignored
// and the whole snapshot is searched.
//
// Parameters:
//   - name: free-form device name to resolve.
//   - room: optional room hint, may be empty.
//   - snap: state snapshot to search.
//
// Returns:
//   - Match: the winning device and its room.
//   - bool: false when nothing matched.
func Device(name, room string, snap *majordomo.Snapshot) (Match, bool) {
	if snap == nil {
		return Match{}, false
	}

	rooms := snap.Rooms
	if hint := Normalize(room); hint != "" {
		for _, r := range snap.Rooms {
			if Normalize(r.Nome) == hint {
				rooms = majordomo.RoomList{r}
				break
			}
		}
	}

	query := Normalize(name)
	if query == "" {
		return Match{}, false
	}

	// Pass 1: exact.
	for _, r := range rooms {
		for _, d := range r.Dispositivi {
			if Normalize(d.Nome) == query {
				return Match{Stanza: r.Nome, Device: d}, true
			}
		}
	}

	// Pass 2: containment, either direction.
	for _, r := range rooms {
		for _, d := range r.Dispositivi {
			candidate := Normalize(d.Nome)
			if candidate == "" {
				continue
			}
			if strings.Contains(candidate, query) || strings.Contains(query, candidate) {
				return Match{Stanza: r.Nome, Device: d}, true
			}
		}
	}

	// Pass 3: token overlap, best strictly-greater score wins.
	queryTokens := Tokens(name)
	var (
		best      Match
		bestScore int
	)
	for _, r := range rooms {
		for _, d := range r.Dispositivi {
			score := 0
			for t := range Tokens(d.Nome) {
				if _, ok := queryTokens[t]; ok {
					score++
				}
			}
			if score > bestScore {
				best = Match{Stanza: r.Nome, Device: d}
				bestScore = score
			}
		}
	}
	if bestScore > 0 {
		return best, true
	}
	return Match{}, false
}

// Scenario resolves a scenario by exact normalised name. Scenarios get no
// fuzzy fallback: triggering the wrong one is worse than triggering none.
func Scenario(name string, snap *majordomo.Snapshot) (majordomo.Scenario, bool) {
	if snap == nil {
		return majordomo.Scenario{}, false
	}
	query := Normalize(name)
	if query == "" {
		return majordomo.Scenario{}, false
	}
	for _, s := range snap.Scenarios {
		if Normalize(s.Nome) == query {
			return s, true
		}
	}
	return majordomo.Scenario{}, false
}
