package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
)

// Event is one server push: "hello" on connect, then "build" and
// "sweep" as the builder makes progress.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Events is a live feed of build activity from the server.
type Events struct {
	conn *websocket.Conn
}

// DialEvents connects to the server's event stream.
func (c *Client) DialEvents(ctx context.Context) (*Events, error) {
	u := *c.base
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	u.RawQuery = ""

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.String(), err)
	}
	return &Events{conn: conn}, nil
}

// Next blocks until the server pushes the next event. Pings are
// answered under the hood; any read error means the feed is dead and
// the caller should redial.
func (e *Events) Next() (Event, error) {
	var ev Event
	if err := e.conn.ReadJSON(&ev); err != nil {
		return Event{}, fmt.Errorf("read event: %w", err)
	}
	return ev, nil
}

func (e *Events) Close() error {
	return e.conn.Close()
}
