package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskquest/domain/rules"
)

const wellnessOverride = `
thresholds:
  wellness:
    bands:
      - {lower_bound: 9, label: superb, color: green}
      - {lower_bound: 5, label: fine, color: blue}
    floor: {label: low, color: red}
burnout_weights:
  stress: 0.5
  energy: 0.5
`

func writeRules(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadRules_DefaultsWhenNoPath(t *testing.T) {
	set, err := LoadRules("")
	require.NoError(t, err)
	assert.Equal(t, rules.Default(), set)
}

func TestLoadRules_OverlaysDefaults(t *testing.T) {
	path := writeRules(t, t.TempDir(), wellnessOverride)

	set, err := LoadRules(path)
	require.NoError(t, err)

	wellness, err := set.Table(rules.TableWellness)
	require.NoError(t, err)
	require.Len(t, wellness.Bands, 2)
	assert.Equal(t, "superb", wellness.Bands[0].Label)

	// untouched tables keep their defaults
	productivity, err := set.Table(rules.TableProductivity)
	require.NoError(t, err)
	assert.Equal(t, "excellent", productivity.Bands[0].Label)
	assert.Len(t, set.Relationship, 4)

	assert.InDelta(t, 0.5, set.Burnout.Stress, 1e-9)
	assert.InDelta(t, 0.10, set.Burnout.Sleep, 1e-9)
}

func TestLoadRules_RejectsInvalidTable(t *testing.T) {
	path := writeRules(t, t.TempDir(), `
thresholds:
  wellness:
    bands:
      - {lower_bound: 2, label: a}
      - {lower_bound: 5, label: b}
    floor: {label: c}
`)
	_, err := LoadRules(path)
	require.Error(t, err)
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestRulesStore_ReloadKeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	path := writeRules(t, dir, wellnessOverride)

	store, err := NewRulesStore(path)
	require.NoError(t, err)
	before := store.Get()

	require.NoError(t, os.WriteFile(path, []byte("thresholds: [not, a, map"), 0o644))
	require.Error(t, store.Reload())
	assert.Same(t, before, store.Get())
}

func TestRulesStore_WatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeRules(t, dir, "")

	store, err := NewRulesStore(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, store.Watch(ctx))
	defer store.Close()

	require.NoError(t, os.WriteFile(path, []byte(wellnessOverride), 0o644))

	require.Eventually(t, func() bool {
		table, err := store.Get().Table(rules.TableWellness)
		return err == nil && table.Bands[0].Label == "superb"
	}, 3*time.Second, 50*time.Millisecond)
}
