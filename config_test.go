package slotpool

import (
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 1000*1000, cfg.MaxCapacity())

	cfg.MaxBlocks = 0
	assert.Equal(t, -1, cfg.MaxCapacity())
}

func TestConfigLoad(t *testing.T) {
	cfg := NewDefaultConfig()
	err := cfg.Load(map[string]interface{}{
		"id":         "loaded",
		"block_sz":   64,
		"max_blocks": 16,
		"instrument": map[string]interface{}{
			"name": "trace",
			"config": map[string]interface{}{
				"reserve": true,
			},
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, "loaded", cfg.Id)
	assert.Equal(t, 64, cfg.BlockSz)
	assert.Equal(t, 16, cfg.MaxBlocks)
	assert.Equal(t, DefaultInitialCapacity, cfg.InitialCapacity)
	ti, ok := cfg.Instrument.(*traceInstrument)
	assert.True(t, ok)
	assert.True(t, ti.config.Reserve)
	assert.True(t, ti.config.Capacity)
}

func TestConfigLoadInvalid(t *testing.T) {
	cfg := NewDefaultConfig()
	err := cfg.Load(map[string]interface{}{"block_sz": 0})
	assert.Equal(t, ErrInvalidConfig, errors.Cause(err))

	cfg = NewDefaultConfig()
	err = cfg.Load(map[string]interface{}{"block_sz": "large"})
	assert.Error(t, err)

	cfg = NewDefaultConfig()
	err = cfg.Load(map[string]interface{}{"instrument": "trace"})
	assert.Error(t, err)

	cfg = NewDefaultConfig()
	err = cfg.Load(map[string]interface{}{"instrument": map[string]interface{}{}})
	assert.Error(t, err)

	cfg = NewDefaultConfig()
	err = cfg.Load(map[string]interface{}{"instrument": map[string]interface{}{"name": "oscilloscope"}})
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	root, err := ioutil.TempDir("", "slotpool_config")
	assert.NoError(t, err)
	defer func() { _ = os.RemoveAll(root) }()

	path := filepath.Join(root, "pool.yml")
	data := "id: from-file\nblock_sz: 128\ninitial_capacity: 300\ninstrument:\n  name: logger\n"
	assert.NoError(t, ioutil.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Id)
	assert.Equal(t, 128, cfg.BlockSz)
	assert.Equal(t, DefaultMaxBlocks, cfg.MaxBlocks)
	assert.Equal(t, 300, cfg.InitialCapacity)
	_, ok := cfg.Instrument.(*loggerInstrument)
	assert.True(t, ok)

	a, err := NewAllocator(0, cfg)
	assert.NoError(t, err)
	assert.Equal(t, 384, a.Capacity())
	assert.Equal(t, "from-file", a.Id())

	_, err = LoadConfig(filepath.Join(root, "missing.yml"))
	assert.Error(t, err)
}

func TestConfigDump(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Instrument = NewNilInstrument()
	out := cfg.Dump()
	assert.True(t, strings.HasPrefix(out, "slotpool.Config {\n"))
	assert.True(t, strings.HasSuffix(out, "}"))
	assert.Contains(t, out, "block_sz")
	assert.Contains(t, out, "*slotpool.nilInstrument")
}
