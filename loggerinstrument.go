package slotpool

import (
	"github.com/sirupsen/logrus"
)

type loggerInstrument struct{}

// NewLoggerInstrument reports pool events through logrus. Per-slot events log at debug level so
// they cost nothing unless verbose logging is on.
func NewLoggerInstrument() Instrument {
	return &loggerInstrument{}
}

func (self *loggerInstrument) NewInstance(id string) InstrumentInstance {
	return &loggerInstrumentInstance{log: logrus.WithField("pool", id)}
}

type loggerInstrumentInstance struct {
	log *logrus.Entry
}

func (self *loggerInstrumentInstance) Reserved(index int) {
	self.log.Debugf("reserved [#%d]", index)
}

func (self *loggerInstrumentInstance) BatchReserved(count, rounds int) {
	self.log.Debugf("reserved [%d] slots in [%d] rounds", count, rounds)
}

func (self *loggerInstrumentInstance) Contention(index int) {
	self.log.Debugf("contention at [#%d]", index)
}

func (self *loggerInstrumentInstance) Released(index int) {
	self.log.Debugf("released [#%d]", index)
}

func (self *loggerInstrumentInstance) DoubleRelease(index int) {
	self.log.Warnf("double release [#%d]", index)
}

func (self *loggerInstrumentInstance) CapacityIncreased(from, to int) {
	self.log.Infof("capacity increased [%d -> %d]", from, to)
}

func (self *loggerInstrumentInstance) CapacityExhausted(requested int) {
	self.log.Errorf("capacity exhausted, [%d] slots requested", requested)
}

func (self *loggerInstrumentInstance) Shutdown() {
	self.log.Infof("shutdown")
}
