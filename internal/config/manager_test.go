package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"controlcore/pkg/transmission"
	"controlcore/pkg/types"
)

const sampleDescription = `
name: rrbot
update_rate: 200
transmissions:
  - name: transmission1
    type: controlcore/SimpleTransmission
    joints:
      - name: joint1
        role: joint1
        parameters:
          mechanical_reduction: "325.949"
drives:
  - name: drive1
    joint: joint1
    protocol: sim
    transmission: transmission1
    command: effort
controllers:
  - name: pid1
    type: pid
    joint: joint1
    gains:
      p: 2.0
      i: 0.5
      d: 0.0
  - name: setpoint1
    type: setpoint
`

func TestParseFullDescription(t *testing.T) {
	d, err := Parse([]byte(sampleDescription))
	require.NoError(t, err)

	assert.Equal(t, "rrbot", d.Name)
	assert.Equal(t, 200, d.UpdateRate)

	require.Len(t, d.Transmissions, 1)
	info := d.Transmissions[0]
	assert.Equal(t, transmission.SimpleType, info.Type)
	require.Len(t, info.Joints, 1)
	assert.Equal(t, "joint1", info.Joints[0].Role)
	assert.Equal(t, "325.949", info.Joints[0].Parameters["mechanical_reduction"])

	require.Len(t, d.Drives, 1)
	assert.Equal(t, "transmission1", d.Drives[0].Transmission)

	require.Len(t, d.Controllers, 2)
	assert.Equal(t, 2.0, d.Controllers[0].Gains.P)
}

func TestParsedDescriptionFeedsLoader(t *testing.T) {
	d, err := Parse([]byte(sampleDescription))
	require.NoError(t, err)

	tr, err := transmission.Load(d.Transmissions[0])
	require.NoError(t, err)

	simple, ok := tr.(*transmission.Simple)
	require.True(t, ok)
	assert.InDelta(t, 325.949, simple.Reduction(), 1e-5)
}

func TestParseAppliesDefaultUpdateRate(t *testing.T) {
	d, err := Parse([]byte("name: bot\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultUpdateRate, d.UpdateRate)
}

func TestParseValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing name", "update_rate: 100\n"},
		{"negative rate", "name: bot\nupdate_rate: -1\n"},
		{"transmission without type", `
name: bot
transmissions:
  - name: t1
`},
		{"duplicate controllers", `
name: bot
controllers:
  - name: c1
    type: pid
  - name: c1
    type: pid
`},
		{"drive with unknown transmission", `
name: bot
drives:
  - name: d1
    joint: joint1
    transmission: nope
`},
		{"drive without joint", `
name: bot
drives:
  - name: d1
`},
		{"malformed yaml", "name: [unclosed\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestManagerLoadAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDescription), 0644))

	m := NewManager(path)
	require.NoError(t, m.Load())
	assert.Equal(t, "rrbot", m.Description().Name)

	var notified []string
	m.OnChange(func(d types.Description) {
		notified = append(notified, d.Name)
	})

	updated := []byte("name: rrbot-v2\n")
	require.NoError(t, os.WriteFile(path, updated, 0644))
	require.NoError(t, m.Reload())

	assert.Equal(t, "rrbot-v2", m.Description().Name)
	assert.Equal(t, []string{"rrbot-v2"}, notified)
}

func TestManagerLoadMissingFile(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, m.Load())
}
