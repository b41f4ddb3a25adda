package util

import (
	"github.com/stretchr/testify/assert"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteReadSamples(t *testing.T) {
	root, err := ioutil.TempDir("", "slotpool-samples")
	assert.NoError(t, err)
	defer func() { _ = os.RemoveAll(root) }()

	now := time.Now()
	samples := []*Sample{
		{Ts: now, V: 10},
		{Ts: now.Add(time.Second), V: 20},
		{Ts: now.Add(2 * time.Second), V: 0},
	}
	assert.NoError(t, WriteSamples("reserves", root, samples))

	data, err := ReadSamples(filepath.Join(root, "reserves.csv"))
	assert.NoError(t, err)
	assert.Equal(t, 3, len(data))
	assert.Equal(t, int64(10), data[now.UnixNano()])
	assert.Equal(t, int64(20), data[now.Add(time.Second).UnixNano()])
}

func TestReadSamplesMalformed(t *testing.T) {
	root, err := ioutil.TempDir("", "slotpool-samples")
	assert.NoError(t, err)
	defer func() { _ = os.RemoveAll(root) }()

	path := filepath.Join(root, "bad.csv")
	assert.NoError(t, ioutil.WriteFile(path, []byte("1,2,3\n"), 0644))
	_, err = ReadSamples(path)
	assert.Error(t, err)
}

func TestDiscoverMetrics(t *testing.T) {
	root, err := ioutil.TempDir("", "slotpool-metrics")
	assert.NoError(t, err)
	defer func() { _ = os.RemoveAll(root) }()

	a := filepath.Join(root, "a")
	b := filepath.Join(root, "nested", "b")
	assert.NoError(t, os.MkdirAll(a, 0755))
	assert.NoError(t, os.MkdirAll(b, 0755))
	assert.NoError(t, WriteMetricsId("pool-a", a, nil))
	assert.NoError(t, WriteMetricsId("pool-b", b, map[string]string{"block_sz": "1000"}))

	found, err := DiscoverMetrics(root)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(found))
	assert.Equal(t, "pool-a", found[a].Id)
	assert.Equal(t, "pool-b", found[b].Id)
	assert.Equal(t, "1000", found[b].Values["block_sz"])
}

func TestGenerateId(t *testing.T) {
	a := GenerateId()
	b := GenerateId()
	assert.Equal(t, 32, len(a))
	assert.NotEqual(t, a, b)
}
