package slotpool

import (
	"github.com/pkg/errors"
	"github.com/pkg/profile"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"os"
	"path/filepath"
	"strings"
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	RootCmd.PersistentFlags().BoolVar(&profiles.cpu, "cpu", false, "Enable CPU profiling")
	RootCmd.PersistentFlags().BoolVar(&profiles.memory, "memory", false, "Enable memory profiling")
	RootCmd.PersistentFlags().BoolVar(&profiles.mutex, "mutex", false, "Enable mutex profiling")
	RootCmd.PersistentFlags().StringVarP(&ConfigPath, "config", "f", "", "Pool config file path")
	RootCmd.PersistentFlags().BoolVarP(&ConfigDump, "dump", "d", false, "Dump the processed config")
}

var RootCmd = &cobra.Command{
	Use:   strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0])),
	Short: "Slot pool exerciser",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
		return profiles.start()
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		profiles.stop()
	},
}

var (
	verbose    bool
	ConfigPath string
	ConfigDump bool
	profiles   profileFlags
)

type profileFlags struct {
	cpu     bool
	memory  bool
	mutex   bool
	running interface{ Stop() }
}

// selected returns the profile mode requested on the command line, or nil. profile.Start only
// supports one active profile per process.
func (self *profileFlags) selected() (func(*profile.Profile), error) {
	var modes []func(*profile.Profile)
	if self.cpu {
		modes = append(modes, profile.CPUProfile)
	}
	if self.memory {
		modes = append(modes, profile.MemProfile)
	}
	if self.mutex {
		modes = append(modes, profile.MutexProfile)
	}
	if len(modes) > 1 {
		return nil, errors.New("select at most one of --cpu, --memory or --mutex")
	}
	if len(modes) == 0 {
		return nil, nil
	}
	return modes[0], nil
}

func (self *profileFlags) start() error {
	mode, err := self.selected()
	if err != nil {
		return err
	}
	if mode != nil {
		self.running = profile.Start(mode)
	}
	return nil
}

func (self *profileFlags) stop() {
	if self.running != nil {
		self.running.Stop()
		self.running = nil
	}
}
