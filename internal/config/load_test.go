package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/danielpatrickdp/cinematic-effects/go-controller/internal/errors"
)

const fullSafety = `
[governor]
complexity_threshold = 0.8
tier4_complexity_max = 0.7

[cooldown]
haptic = 1200
audio = 250
visual = 400
kinetic = 300
tier4 = 1500
jump_scare = 3000

[density]
ceiling = 0.03
min_spacing = 6
max_consecutive = 2

[tier4]
budget_cap = 3
`

func TestParseOverridesAndDefaults(t *testing.T) {
	cfg, err := Parse([]byte(fullSafety))
	require.NoError(t, err)

	assert.Equal(t, 1200, cfg.Cooldown.Haptic)
	assert.Equal(t, 6, cfg.Density.MinSpacing)
	assert.InDelta(t, 0.03, cfg.Density.Ceiling, 1e-9)
	// not set in the file
	assert.Equal(t, Default().Climax.Window, cfg.Climax.Window)
	assert.Equal(t, 5, cfg.Character.MinAttributed)
	assert.InDelta(t, 1.5, cfg.ChapterMultiplier("climax"), 1e-9)
}

func TestParseMissingSafetyKey(t *testing.T) {
	data := strings.Replace(fullSafety, "haptic = 1200\n", "", 1)

	_, err := Parse([]byte(data))
	require.Error(t, err)

	var e *ferrors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, ferrors.KindConfiguration, e.Kind)
	assert.Equal(t, ferrors.CodeMissingSetting, e.Code)
	assert.Equal(t, "cooldown.haptic", e.Rule)
}

func TestParseUnknownKey(t *testing.T) {
	_, err := Parse([]byte(fullSafety + "\n[quality]\nmax_effects = 4\n"))
	require.Error(t, err)
	assert.Equal(t, ferrors.CodeInvalidSetting, ferrors.CodeOf(err))
}

func TestParseRejectsOutOfRange(t *testing.T) {
	data := strings.Replace(fullSafety, "ceiling = 0.03", "ceiling = 1.5", 1)
	_, err := Parse([]byte(data))
	require.Error(t, err)

	var e *ferrors.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "density.ceiling", e.Rule)
}

func TestLoadFileUnreadable(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Equal(t, ferrors.CodeConfigUnreadable, ferrors.CodeOf(err))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "effects.toml")
	require.NoError(t, os.WriteFile(path, []byte(fullSafety), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Tier4.BudgetCap)
}

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestDigestStable(t *testing.T) {
	a, b := Default(), Default()
	assert.Equal(t, a.Digest(), b.Digest())

	b.Cooldown.Audio++
	assert.NotEqual(t, a.Digest(), b.Digest())
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("EFFECTS_DB", "/tmp/x.db")
	t.Setenv("EFFECTS_WORKERS", "8")

	e, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", e.DBPath)
	assert.Equal(t, 8, e.Workers)
	assert.Equal(t, "localhost:50061", e.AnalyzerAddr)
}

func TestLoadEnvBadInt(t *testing.T) {
	t.Setenv("EFFECTS_WORKERS", "many")
	_, err := LoadEnv()
	assert.Error(t, err)
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join("..", "..", "configs", "effects.toml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Digest() != Default().Digest() {
		t.Error("configs/effects.toml should restate the defaults")
	}
}
