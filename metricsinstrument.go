package slotpool

import (
	"fmt"
	"github.com/openziti/slotpool/cf"
	"github.com/openziti/slotpool/util"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"io/ioutil"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type MetricsInstrument struct {
	lock      sync.Mutex
	Config    *MetricsInstrumentConfig
	instances []*metricsInstrumentInstance
}

type MetricsInstrumentConfig struct {
	Path       string `cf:"path"`
	SnapshotMs int    `cf:"snapshot_ms"`
	Enabled    int32  `cf:"-"`
	Ctrl       bool   `cf:"ctrl"`
}

func NewMetricsInstrument(config map[string]interface{}) (Instrument, error) {
	i := &MetricsInstrument{
		Config: &MetricsInstrumentConfig{
			Path:       os.TempDir(),
			SnapshotMs: 1000,
			Enabled:    1,
		},
	}
	if err := cf.Load(config, i.Config); err != nil {
		return nil, errors.Wrap(err, "unable to load config")
	}
	if v, found := config["enabled"]; found {
		enabled, ok := v.(bool)
		if !ok {
			return nil, errors.New("invalid 'enabled' value")
		}
		i.SetEnabled(enabled)
	}
	if i.Config.SnapshotMs < 1 {
		return nil, errors.Errorf("invalid 'snapshot_ms' value [%d]", i.Config.SnapshotMs)
	}
	if i.Config.Ctrl {
		if err := addCtrlListener(i); err != nil {
			return nil, err
		}
	}
	logrus.Info(cf.Dump("MetricsInstrumentConfig", i.Config))
	return i, nil
}

func addCtrlListener(i *MetricsInstrument) error {
	cl, err := util.GetCtrlListener(i.Config.Path, "slotpool")
	if err != nil {
		return errors.Wrap(err, "unable to get metrics ctrl listener")
	}
	cl.AddCallback("start", func(string) error {
		i.SetEnabled(true)
		return nil
	})
	cl.AddCallback("stop", func(string) error {
		i.SetEnabled(false)
		return nil
	})
	cl.AddCallback("write", func(string) error {
		err := i.WriteAllSamples()
		if err != nil {
			logrus.Errorf("error writing samples (%v)", err)
		}
		return err
	})
	cl.AddCallback("clean", func(string) error {
		i.clean()
		return nil
	})
	cl.Start()
	logrus.Infof("metrics ctrl listening at [%s]", cl.Addr())
	return nil
}

func (self *MetricsInstrument) SetEnabled(enabled bool) {
	if enabled {
		atomic.StoreInt32(&self.Config.Enabled, 1)
	} else {
		atomic.StoreInt32(&self.Config.Enabled, 0)
	}
}

func (self *MetricsInstrument) NewInstance(id string) InstrumentInstance {
	self.lock.Lock()
	defer self.lock.Unlock()
	ii := &metricsInstrumentInstance{
		id:     id,
		config: self.Config,
		close:  make(chan struct{}),
		done:   make(chan struct{}),
	}
	go ii.snapshotter(time.Duration(self.Config.SnapshotMs) * time.Millisecond)
	self.instances = append(self.instances, ii)
	return ii
}

// WriteAllSamples writes every instance's series into a fresh directory under Config.Path.
func (self *MetricsInstrument) WriteAllSamples() error {
	self.lock.Lock()
	defer self.lock.Unlock()

	if err := os.MkdirAll(self.Config.Path, 0755); err != nil {
		return err
	}
	for _, ii := range self.instances {
		poolName := strings.ReplaceAll(fmt.Sprintf("%s_", ii.id), ":", "-")
		outPath, err := ioutil.TempDir(self.Config.Path, poolName)
		if err != nil {
			return err
		}
		logrus.Infof("writing metrics to: %s", outPath)
		if err := ii.write(outPath); err != nil {
			return errors.Wrapf(err, "error writing samples for [%s]", ii.id)
		}
	}
	return nil
}

func (self *MetricsInstrument) clean() {
	self.lock.Lock()
	defer self.lock.Unlock()

	var open []*metricsInstrumentInstance
	for _, ii := range self.instances {
		if ii.isClosed() {
			logrus.Infof("removed metricsInstrumentInstance [%s]", ii.id)
		} else {
			open = append(open, ii)
		}
	}
	self.instances = open
}

type metricsInstrumentInstance struct {
	id        string
	config    *MetricsInstrumentConfig
	close     chan struct{}
	closeOnce sync.Once
	closed    int32
	done      chan struct{}

	reservedAccum      int64
	batchReservedAccum int64
	contentionAccum    int64
	releasedAccum      int64
	doubleReleaseAccum int64
	exhaustedAccum     int64
	capacityVal        int64
	inUseVal           int64

	lock          sync.Mutex
	reserved      []*util.Sample
	batchReserved []*util.Sample
	contention    []*util.Sample
	released      []*util.Sample
	doubleRelease []*util.Sample
	exhausted     []*util.Sample
	capacity      []*util.Sample
	inUse         []*util.Sample
}

func (self *metricsInstrumentInstance) enabled() bool {
	return atomic.LoadInt32(&self.config.Enabled) == 1
}

/*
 * reservation
 */
func (self *metricsInstrumentInstance) Reserved(int) {
	atomic.AddInt64(&self.inUseVal, 1)
	if self.enabled() {
		atomic.AddInt64(&self.reservedAccum, 1)
	}
}

func (self *metricsInstrumentInstance) BatchReserved(count, _ int) {
	atomic.AddInt64(&self.inUseVal, int64(count))
	if self.enabled() {
		atomic.AddInt64(&self.batchReservedAccum, int64(count))
	}
}

func (self *metricsInstrumentInstance) Contention(int) {
	if self.enabled() {
		atomic.AddInt64(&self.contentionAccum, 1)
	}
}

func (self *metricsInstrumentInstance) Released(int) {
	atomic.AddInt64(&self.inUseVal, -1)
	if self.enabled() {
		atomic.AddInt64(&self.releasedAccum, 1)
	}
}

func (self *metricsInstrumentInstance) DoubleRelease(int) {
	if self.enabled() {
		atomic.AddInt64(&self.doubleReleaseAccum, 1)
	}
}

/*
 * capacity
 */
func (self *metricsInstrumentInstance) CapacityIncreased(_, to int) {
	atomic.StoreInt64(&self.capacityVal, int64(to))
}

func (self *metricsInstrumentInstance) CapacityExhausted(int) {
	if self.enabled() {
		atomic.AddInt64(&self.exhaustedAccum, 1)
	}
}

/*
 * instrument lifecycle
 */
func (self *metricsInstrumentInstance) Shutdown() {
	self.closeOnce.Do(func() {
		atomic.StoreInt32(&self.closed, 1)
		close(self.close)
	})
	<-self.done
}

func (self *metricsInstrumentInstance) isClosed() bool {
	return atomic.LoadInt32(&self.closed) == 1
}

func (self *metricsInstrumentInstance) snapshotter(interval time.Duration) {
	logrus.Debugf("[%s] started", self.id)
	defer logrus.Debugf("[%s] exited", self.id)
	defer close(self.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if self.enabled() {
				self.snapshot()
			}
		case <-self.close:
			self.snapshot()
			return
		}
	}
}

func (self *metricsInstrumentInstance) snapshot() {
	now := time.Now()
	self.lock.Lock()
	defer self.lock.Unlock()
	self.reserved = append(self.reserved, &util.Sample{Ts: now, V: atomic.SwapInt64(&self.reservedAccum, 0)})
	self.batchReserved = append(self.batchReserved, &util.Sample{Ts: now, V: atomic.SwapInt64(&self.batchReservedAccum, 0)})
	self.contention = append(self.contention, &util.Sample{Ts: now, V: atomic.SwapInt64(&self.contentionAccum, 0)})
	self.released = append(self.released, &util.Sample{Ts: now, V: atomic.SwapInt64(&self.releasedAccum, 0)})
	self.doubleRelease = append(self.doubleRelease, &util.Sample{Ts: now, V: atomic.SwapInt64(&self.doubleReleaseAccum, 0)})
	self.exhausted = append(self.exhausted, &util.Sample{Ts: now, V: atomic.SwapInt64(&self.exhaustedAccum, 0)})
	self.capacity = append(self.capacity, &util.Sample{Ts: now, V: atomic.LoadInt64(&self.capacityVal)})
	self.inUse = append(self.inUse, &util.Sample{Ts: now, V: atomic.LoadInt64(&self.inUseVal)})
}

func (self *metricsInstrumentInstance) write(outPath string) error {
	self.lock.Lock()
	defer self.lock.Unlock()

	if err := util.WriteMetricsId(self.id, outPath, nil); err != nil {
		return err
	}
	series := map[string][]*util.Sample{
		"reserved":       self.reserved,
		"batch_reserved": self.batchReserved,
		"contention":     self.contention,
		"released":       self.released,
		"double_release": self.doubleRelease,
		"exhausted":      self.exhausted,
		"capacity":       self.capacity,
		"in_use":         self.inUse,
	}
	for _, name := range MetricsDatasets {
		if err := util.WriteSamples(name, outPath, series[name]); err != nil {
			return err
		}
	}
	return nil
}

// MetricsDatasets lists the series names written by the metrics instrument.
var MetricsDatasets = []string{
	"reserved",
	"batch_reserved",
	"contention",
	"released",
	"double_release",
	"exhausted",
	"capacity",
	"in_use",
}
