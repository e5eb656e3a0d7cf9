package domain

import "time"

// Route 노선 (routes + route_stops collections). Stops are in boarding order.
type Route struct {
	RouteID   string    `json:"route_id"`
	SchoolID  string    `json:"school_id"`
	Name      string    `json:"name"`
	Stops     []string  `json:"stops"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasStop reports whether name is one of the route's stops
func (r *Route) HasStop(name string) bool {
	for _, s := range r.Stops {
		if s == name {
			return true
		}
	}
	return false
}
