package slotpool

import "github.com/pkg/errors"

type Instrument interface {
	NewInstance(id string) InstrumentInstance
}

// InstrumentInstance receives the events of a single pool. Implementations must be safe for
// concurrent use; events arrive from every goroutine touching the pool.
type InstrumentInstance interface {
	// reservation
	Reserved(index int)
	BatchReserved(count, rounds int)
	Contention(index int)
	Released(index int)
	DoubleRelease(index int)

	// capacity
	CapacityIncreased(from, to int)
	CapacityExhausted(requested int)

	// instrument lifecycle
	Shutdown()
}

func NewInstrument(name string, config map[string]interface{}) (i Instrument, err error) {
	switch name {
	case "logger":
		return NewLoggerInstrument(), nil
	case "metrics":
		return NewMetricsInstrument(config)
	case "nil":
		return NewNilInstrument(), nil
	case "trace":
		return NewTraceInstrument(config)
	default:
		return nil, errors.Errorf("unknown instrument '%s'", name)
	}
}
