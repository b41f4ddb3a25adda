package stress

import (
	"github.com/openziti/slotpool"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func loadConfig() (*slotpool.Config, error) {
	cfg := slotpool.NewDefaultConfig()
	if path := configPath(); path != "" {
		var err error
		if cfg, err = slotpool.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	if cfg.Instrument == nil {
		cfg.Instrument = slotpool.NewLoggerInstrument()
	}
	if configDump() {
		logrus.Info(cfg.Dump())
	}
	if limit := cfg.MaxCapacity(); limit > 0 {
		logrus.Infof("pool capacity limited to [%d] slots", limit)
	} else {
		logrus.Infof("pool capacity unbounded")
	}
	return cfg, nil
}

func finish(cfg *slotpool.Config, stats slotpool.Stats) error {
	logrus.Infof("capacity [%d], blocks [%d], in use [%d], reservations [%d], releases [%d]",
		stats.Capacity, stats.Blocks, stats.InUse, stats.Reservations, stats.Releases)
	if stats.InUse != 0 {
		return errors.Errorf("[%d] slots still in use after all workers released", stats.InUse)
	}
	if writeMetrics {
		mi, ok := cfg.Instrument.(*slotpool.MetricsInstrument)
		if !ok {
			return errors.New("--write requires the 'metrics' instrument")
		}
		if err := mi.WriteAllSamples(); err != nil {
			return errors.Wrap(err, "error writing samples")
		}
	}
	return nil
}
