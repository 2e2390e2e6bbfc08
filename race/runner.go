package race

import "sort"

// LatLng is one GPS coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Runner is the client-local projection of a room player: the shared record
// plus an ephemeral path history used for trail rendering. Never persisted.
type Runner struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Color       string   `json:"color"`
	Avatar      string   `json:"avatar"`
	Distance    float64  `json:"distance"` // km
	Speed       float64  `json:"speed"`    // km/h
	Time        int      `json:"time"`     // seconds
	Points      int      `json:"points"`
	Location    *LatLng  `json:"location,omitempty"`
	PathHistory []LatLng `json:"pathHistory"`
}

// Rank orders runners for the leaderboard: points descending, ties broken by
// distance descending. The same rule drives the live board and the final
// results, so every client agrees on the winner.
func Rank(runners []Runner) []Runner {
	ranked := make([]Runner, len(runners))
	copy(ranked, runners)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Points != ranked[j].Points {
			return ranked[i].Points > ranked[j].Points
		}
		return ranked[i].Distance > ranked[j].Distance
	})

	return ranked
}
