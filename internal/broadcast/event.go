package broadcast

import "context"

// Public is the audience of events every observer may see.
const Public = -1

// Event is one item of a table's stream. Seat limits the audience to one
// seat; Public events go to everyone.
type Event struct {
	EventID  string `json:"event_id"`
	Event    string `json:"event"`
	TableID  string `json:"table_id"`
	Seat     int    `json:"seat"`
	ServerTS int64  `json:"server_ts"`
	Data     any    `json:"data"`
}

// VisibleTo reports whether a viewer at seat may receive the event. A
// spectator is seat -1.
func (e Event) VisibleTo(seat int) bool {
	return e.Seat == Public || e.Seat == seat
}

// Publisher receives a table's events in order.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
