package main

import (
	"github.com/charmbracelet/log"

	"github.com/sweeney/dcf77-sensor/internal/logic"
)

// logSink writes engine notifications to the log: bits at debug level, the
// outcome of every minute at info or warn.
type logSink struct{}

func (logSink) OnTick(bit int) {
	log.Debugf("bit %d", bit)
}

func (logSink) OnSync(ts logic.Timestamp) {
	log.Infof("sync: %s %s", ts, ts.Zone)
}

func (logSink) OnTickError(err error) {
	log.Debugf("tick error: %v", err)
}

func (logSink) OnBeaconError(err error) {
	log.Warnf("beacon error [%s]: %v", logic.KindOf(err), err)
}
