package stress

import (
	"github.com/openziti/slotpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"sync"
	"time"
)

func init() {
	reserveCmd.Flags().IntVarP(&batch, "batch", "b", 1, "Reserve in batches of this size (1 reserves singly)")
	stressCmd.AddCommand(reserveCmd)
}

var reserveCmd = &cobra.Command{
	Use:   "reserve",
	Short: "Reserve and release raw slots",
	Args:  cobra.NoArgs,
	Run:   stressReserve,
}
var batch int

func stressReserve(_ *cobra.Command, _ []string) {
	cfg, err := loadConfig()
	if err != nil {
		logrus.Fatalf("error loading config (%v)", err)
	}
	a, err := slotpool.NewAllocator(0, cfg)
	if err != nil {
		logrus.Fatalf("error creating allocator (%v)", err)
	}
	logrus.Infof("allocator [%s] starting with capacity [%d] in blocks of [%d]", a.Id(), a.Capacity(), a.BlockSz())

	l := newLedger()
	errs := make(chan error, workers)
	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			if err := reserveWorker(w, a, l); err != nil {
				errs <- err
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	elapsed := time.Since(start)

	for err := range errs {
		logrus.Errorf("worker failed (%v)", err)
	}
	a.Shutdown()
	logrus.Infof("[%d] workers completed [%d] iterations each in [%s], peak held [%d]", workers, iterations, elapsed, l.highWater())
	if err := finish(cfg, a.Stats()); err != nil {
		logrus.Fatalf("failed (%v)", err)
	}
}

func reserveWorker(w int, a *slotpool.Allocator[int], l *ledger) error {
	held := make([]int, 0, hold+batch)
	drain := func() error {
		if err := l.release(w, held...); err != nil {
			return err
		}
		for _, index := range held {
			if err := a.Release(index); err != nil {
				return err
			}
		}
		held = held[:0]
		return nil
	}

	for i := 0; i < iterations; i++ {
		var ids []int
		if batch > 1 {
			var err error
			if ids, err = a.ReserveMultiple(batch); err != nil {
				return err
			}
		} else {
			index, err := a.Reserve()
			if err != nil {
				return err
			}
			ids = []int{index}
		}
		if err := l.claim(w, ids...); err != nil {
			return err
		}
		for _, index := range ids {
			v, err := a.At(index)
			if err != nil {
				return err
			}
			*v = w
		}
		held = append(held, ids...)
		if len(held) >= hold {
			if err := drain(); err != nil {
				return err
			}
		}
	}
	return drain()
}
