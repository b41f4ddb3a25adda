package main

import (
	"github.com/michaelquigley/pfxlog"
	_ "github.com/openziti/slotpool/cmd/slotpool/ctrl"
	_ "github.com/openziti/slotpool/cmd/slotpool/influx"
	"github.com/openziti/slotpool/cmd/slotpool/slotpool"
	_ "github.com/openziti/slotpool/cmd/slotpool/stress"
	"github.com/sirupsen/logrus"
	"os"
	"os/signal"
	"runtime"
	"syscall"
)

func init() {
	pfxlog.Global(logrus.InfoLevel)
	pfxlog.SetPrefix("github.com/openziti/")
}

func main() {
	defer logrus.Debugf("finished")

	go dumpOnQuit()

	if err := slotpool.RootCmd.Execute(); err != nil {
		logrus.Fatalf("error (%v)", err)
	}
}

func dumpOnQuit() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGQUIT)
	buf := make([]byte, 1<<20)
	for range sigs {
		n := runtime.Stack(buf, true)
		logrus.Warnf("received SIGQUIT, goroutine dump:\n%s", buf[:n])
	}
}
