package stress

import (
	"github.com/openziti/slotpool"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"sync"
	"sync/atomic"
	"time"
)

func init() {
	handlesCmd.Flags().IntVarP(&fanout, "fanout", "n", 4, "Clones handed to other goroutines per handle")
	stressCmd.AddCommand(handlesCmd)
}

var handlesCmd = &cobra.Command{
	Use:   "handles",
	Short: "Share auto-released handles across goroutines",
	Args:  cobra.NoArgs,
	Run:   stressHandles,
}
var fanout int

func stressHandles(_ *cobra.Command, _ []string) {
	cfg, err := loadConfig()
	if err != nil {
		logrus.Fatalf("error loading config (%v)", err)
	}
	p, err := slotpool.NewAutoPool(int64(-1), cfg)
	if err != nil {
		logrus.Fatalf("error creating pool (%v)", err)
	}

	l := newLedger()
	var mismatches int64
	errs := make(chan error, workers)
	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			if err := handlesWorker(w, p, l, &mismatches); err != nil {
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
	p.Shutdown()
	logrus.Infof("[%d] workers completed [%d] iterations each in [%s], peak held [%d]", workers, iterations, elapsed, l.highWater())
	if mismatches > 0 {
		logrus.Fatalf("[%d] clones observed a value written by another holder", mismatches)
	}
	if err := finish(cfg, p.Stats()); err != nil {
		logrus.Fatalf("failed (%v)", err)
	}
}

func handlesWorker(w int, p *slotpool.AutoPool[int64], l *ledger, mismatches *int64) error {
	for i := 0; i < iterations; i++ {
		h, err := p.MakeHandle()
		if err != nil {
			return err
		}
		if err := l.claim(w, h.Id()); err != nil {
			return err
		}
		v, err := h.Value()
		if err != nil {
			return err
		}
		token := int64(w)<<32 | int64(i)
		*v = token

		var wg sync.WaitGroup
		for j := 0; j < fanout; j++ {
			var c *slotpool.Handle[int64]
			if j%2 == 0 {
				c = h.Clone()
			} else {
				c = &slotpool.Handle[int64]{}
				c.Assign(h)
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer c.Release()
				cv, err := c.Value()
				if err != nil || *cv != token {
					atomic.AddInt64(mismatches, 1)
				}
			}()
		}
		wg.Wait()

		owner := h.Move()
		if h.Valid() {
			return errors.Errorf("handle for [%d] still valid after move", owner.Id())
		}
		if err := l.release(w, owner.Id()); err != nil {
			return err
		}
		owner.Release()
	}
	return nil
}
