package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
personas:
  dra_vega:
    name: "Dra. Elena Vega"
    short_title: "Profesora universitaria"
    default: true
    teaching_policy:
      max_attempts_per_point: 2
      remediation_style: both
      allow_advance_on_failure: true
      default_after_failure: advance
      max_followups_per_point: 1
  capitan_ortega:
    name: "Capitán Ortega"
    teaching_policy:
      max_attempts_per_point: 1
      allow_advance_on_failure: false
  sin_politica:
    name: "Sin política"
`

func TestParse(t *testing.T) {
	reg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	vega, err := reg.Get("dra_vega")
	require.NoError(t, err)
	assert.Equal(t, "dra_vega", vega.ID)
	assert.True(t, vega.Policy.DefaultsToAdvance())

	ortega, err := reg.Get("capitan_ortega")
	require.NoError(t, err)
	assert.Equal(t, 1, ortega.Policy.MaxAttemptsPerPoint)
	assert.False(t, ortega.Policy.AllowAdvanceOnFailure)
	assert.Equal(t, StyleBoth, ortega.Policy.RemediationStyle, "missing enum falls back to default")
	assert.Equal(t, AfterFailureStay, ortega.Policy.DefaultAfterFailure)

	plain, err := reg.Get("sin_politica")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), plain.Policy)

	assert.Equal(t, "dra_vega", reg.Default().ID)
	assert.Len(t, reg.List(), 3)
}

func TestParseRejectsInvalidPolicy(t *testing.T) {
	doc := `
personas:
  raro:
    name: "Raro"
    teaching_policy:
      remediation_style: poetry
`
	_, err := Parse([]byte(doc))
	assert.Error(t, err)

	doc = `
personas:
  negativo:
    name: "Negativo"
    teaching_policy:
      max_followups_per_point: -1
`
	_, err = Parse([]byte(doc))
	assert.Error(t, err)
}

func TestLoadMissingFileUsesBuiltin(t *testing.T) {
	reg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "dra_vega", reg.Default().ID)

	_, err = reg.Get("capitan_ortega")
	assert.NoError(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas_v1.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	reg, err := Load(path)
	require.NoError(t, err)
	_, err = reg.Get("sin_politica")
	assert.NoError(t, err)
}

func TestGetReturnsCopy(t *testing.T) {
	reg := Builtin()
	p, err := reg.Get("dra_vega")
	require.NoError(t, err)
	p.Policy.MaxAttemptsPerPoint = 99

	again, err := reg.Get("dra_vega")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Policy.MaxAttemptsPerPoint)
}

func TestResolve(t *testing.T) {
	reg := Builtin()
	p, err := reg.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "dra_vega", p.ID)

	_, err = reg.Resolve("ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
