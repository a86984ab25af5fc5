package mqtt

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/sweeney/dcf77-sensor/internal/logic"
	"github.com/sweeney/dcf77-sensor/internal/receiver"
)

// Sink publishes minute boundary outcomes. Ticks and tick errors are not
// published; they are available on the status page and metrics.
type Sink struct {
	receiver.NopSink
	pub Publisher
	now func() time.Time
}

// NewSink returns a receiver.Sink publishing through pub.
func NewSink(pub Publisher) *Sink {
	return &Sink{pub: pub, now: time.Now}
}

// OnSync publishes the decoded minute.
func (s *Sink) OnSync(ts logic.Timestamp) {
	s.publish(Event{Timestamp: s.now(), Type: EventSync, Decoded: &ts})
}

// OnBeaconError publishes the failed minute.
func (s *Sink) OnBeaconError(err error) {
	s.publish(Event{Timestamp: s.now(), Type: EventBeaconError, Err: err})
}

func (s *Sink) publish(ev Event) {
	if err := s.pub.Publish(ev); err != nil {
		// Don't crash on publish failure
		log.Errorf("mqtt: publish %s: %v", ev.Type, err)
	}
}
