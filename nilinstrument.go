package slotpool

type nilInstrument struct{}

func NewNilInstrument() Instrument {
	return &nilInstrument{}
}

func (self *nilInstrument) NewInstance(_ string) InstrumentInstance {
	return &NilInstrumentInstance{}
}

type NilInstrumentInstance struct{}

func (n NilInstrumentInstance) Reserved(int) {}

func (n NilInstrumentInstance) BatchReserved(int, int) {}

func (n NilInstrumentInstance) Contention(int) {}

func (n NilInstrumentInstance) Released(int) {}

func (n NilInstrumentInstance) DoubleRelease(int) {}

func (n NilInstrumentInstance) CapacityIncreased(int, int) {}

func (n NilInstrumentInstance) CapacityExhausted(int) {}

func (n NilInstrumentInstance) Shutdown() {}
