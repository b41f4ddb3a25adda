package slotpool

import (
	"fmt"
	"github.com/openziti/slotpool/cf"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"sync"
)

type traceInstrument struct {
	config *traceInstrumentConfig
}

type traceInstrumentConfig struct {
	Reserve    bool `cf:"reserve"`
	Release    bool `cf:"release"`
	Contention bool `cf:"contention"`
	Capacity   bool `cf:"capacity"`
	Error      bool `cf:"error"`
}

type traceInstrumentInstance struct {
	id   string
	lock sync.Mutex
	i    *traceInstrument
}

func NewTraceInstrument(config map[string]interface{}) (Instrument, error) {
	i := &traceInstrument{
		config: &traceInstrumentConfig{Capacity: true, Error: true},
	}
	if err := cf.Load(config, i.config); err != nil {
		return nil, errors.Wrap(err, "unable to load config")
	}
	logrus.Info(cf.Dump("traceInstrumentConfig", i.config))
	return i, nil
}

func (self *traceInstrument) NewInstance(id string) InstrumentInstance {
	return &traceInstrumentInstance{
		id: id,
		i:  self,
	}
}

/*
 * reservation
 */

func (self *traceInstrumentInstance) Reserved(index int) {
	if self.i.config.Reserve {
		self.println(fmt.Sprintf("&& %-32s %-8s #%d", self.id, "RESERVE", index))
	}
}

func (self *traceInstrumentInstance) BatchReserved(count, rounds int) {
	if self.i.config.Reserve {
		self.println(fmt.Sprintf("&& %-32s %-8s %d in %d rounds", self.id, "BATCH", count, rounds))
	}
}

func (self *traceInstrumentInstance) Contention(index int) {
	if self.i.config.Contention {
		self.println(fmt.Sprintf("~~ %-32s %-8s #%d", self.id, "CONTEND", index))
	}
}

func (self *traceInstrumentInstance) Released(index int) {
	if self.i.config.Release {
		self.println(fmt.Sprintf("&& %-32s %-8s #%d", self.id, "RELEASE", index))
	}
}

func (self *traceInstrumentInstance) DoubleRelease(index int) {
	if self.i.config.Error {
		self.println(fmt.Sprintf("!! %-32s DOUBLE RELEASE: #%d", self.id, index))
	}
}

/*
 * capacity
 */

func (self *traceInstrumentInstance) CapacityIncreased(from, to int) {
	if self.i.config.Capacity {
		self.println(fmt.Sprintf("!! %-32s CAPACITY: %d -> %d", self.id, from, to))
	}
}

func (self *traceInstrumentInstance) CapacityExhausted(requested int) {
	if self.i.config.Error {
		self.println(fmt.Sprintf("!! %-32s CAPACITY EXHAUSTED: %d requested", self.id, requested))
	}
}

/*
 * instrument lifecycle
 */

func (self *traceInstrumentInstance) Shutdown() {
	self.println(fmt.Sprintf("@@ %-32s SHUTDOWN", self.id))
}

func (self *traceInstrumentInstance) println(line string) {
	self.lock.Lock()
	fmt.Println(line)
	self.lock.Unlock()
}
