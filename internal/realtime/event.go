package realtime

import (
	"context"
	"strconv"
)

const (
	EventSensorUpdate  = "sensor-update"
	EventSensorBatch   = "sensor-batch"
	EventDeviceUpdate  = "device-update"
	EventDeviceRemoved = "device-removed"
	EventSnapshot      = "snapshot"
	EventJoined        = "joined"
	EventError         = "error"

	// client-originated test events, echoed to the sender only
	EventSensorData    = "sensor-data"
	EventDeviceControl = "device-control"
)

// Event is the envelope pushed to socket clients. An empty Room reaches every client.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
	Room string `json:"room,omitempty"`
}

// Publisher delivers events at most once; implementations never block the caller on slow consumers.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

// UserRoom names the room scoped to a single user's sessions.
func UserRoom(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// Discard drops every event. It stands in where no socket layer is attached.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}
