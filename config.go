package slotpool

import (
	"fmt"
	"github.com/openziti/slotpool/cf"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"io/ioutil"
	"reflect"
)

const (
	DefaultBlockSz         = 1000
	DefaultMaxBlocks       = 1000
	DefaultInitialCapacity = 1000
)

// Config holds the construction-time parameters of an Allocator or AutoPool.
type Config struct {
	// Id names the pool for instrumentation; generated when empty.
	Id string `cf:"id"`
	// BlockSz is the number of slots added by each growth step.
	BlockSz int `cf:"block_sz"`
	// MaxBlocks bounds capacity at BlockSz * MaxBlocks. Values <= 0 leave capacity unbounded.
	MaxBlocks int `cf:"max_blocks"`
	// InitialCapacity is rounded up to a multiple of BlockSz at construction.
	InitialCapacity int `cf:"initial_capacity"`

	Instrument Instrument `cf:"-"`
}

func NewDefaultConfig() *Config {
	return &Config{
		BlockSz:         DefaultBlockSz,
		MaxBlocks:       DefaultMaxBlocks,
		InitialCapacity: DefaultInitialCapacity,
	}
}

// LoadConfig reads a YAML file and applies it over the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read config file [%s]", path)
	}
	dataMap := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &dataMap); err != nil {
		return nil, errors.Wrapf(err, "unable to unmarshal config data [%s]", path)
	}
	cfg := NewDefaultConfig()
	if err := cfg.Load(dataMap); err != nil {
		return nil, errors.Wrapf(err, "unable to load config [%s]", path)
	}
	return cfg, nil
}

// Load binds data onto the config. An optional "instrument" map selects and configures the
// instrument by "name", passing its "config" map through to NewInstrument.
func (self *Config) Load(data map[string]interface{}) error {
	if err := cf.Load(data, self); err != nil {
		return err
	}
	if v, found := data["instrument"]; found {
		submap, ok := v.(map[string]interface{})
		if !ok {
			return errors.Errorf("invalid 'instrument' value [%v]", reflect.TypeOf(v))
		}
		var config map[string]interface{}
		if v, found := submap["config"]; found {
			if config, ok = v.(map[string]interface{}); !ok {
				return errors.New("invalid 'instrument/config' value")
			}
		}
		v, found := submap["name"]
		if !found {
			return errors.New("missing 'instrument/name'")
		}
		name, ok := v.(string)
		if !ok {
			return errors.New("invalid 'instrument/name' value")
		}
		i, err := NewInstrument(name, config)
		if err != nil {
			return errors.Wrap(err, "error creating instrument")
		}
		self.Instrument = i
	}
	return self.Validate()
}

func (self *Config) Validate() error {
	if self.BlockSz < 1 {
		return errors.Wrapf(ErrInvalidConfig, "block_sz must be positive, got [%d]", self.BlockSz)
	}
	if self.InitialCapacity < 0 {
		return errors.Wrapf(ErrInvalidConfig, "initial_capacity must not be negative, got [%d]", self.InitialCapacity)
	}
	return nil
}

// MaxCapacity returns the slot limit, or -1 when unbounded.
func (self *Config) MaxCapacity() int {
	if self.MaxBlocks < 1 {
		return -1
	}
	return self.BlockSz * self.MaxBlocks
}

func (self *Config) Dump() string {
	out := cf.Dump("slotpool.Config", self)
	return out[:len(out)-1] + fmt.Sprintf("\t%-16s %v\n}", "instrument", reflect.TypeOf(self.Instrument))
}
