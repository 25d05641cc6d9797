package checklist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benlarsendk/a320-checklist-companion/flight"
)

const testDocument = `{
  "aircraft": "A320",
  "phases": {
    "departure": [
      {
        "id": "cockpit_preparation",
        "title": "Cockpit Preparation",
        "trigger": "At gate",
        "items": [
          {"id": "gear_pins", "challenge": "GEAR PINS & COVERS", "response": "REMOVED"},
          {"id": "fuel", "challenge": "FUEL QUANTITY", "response": "___KG CHECKED"},
          {"id": "parking_brake", "challenge": "PARKING BRAKE", "response": "ON",
           "verify": {"var": "BRAKE_PARKING_POSITION", "condition": "eq", "value": 1}}
        ]
      },
      {
        "id": "before_start",
        "title": "Before Start",
        "trigger": "Clearance received",
        "items": [
          {"id": "beacon", "challenge": "BEACON", "response": "ON",
           "verify": {"var": "LIGHT_BEACON", "condition": "eq", "value": 1}}
        ]
      }
    ],
    "arrival": [
      {
        "id": "approach",
        "title": "Approach",
        "trigger": "10,000 ft",
        "items": [
          {"id": "baro_ref_ldg", "challenge": "BARO REF", "response": "___SET"}
        ]
      }
    ]
  }
}`

const testTrainingDocument = `{
  "aircraft": "A320",
  "phases": {
    "departure": [
      {
        "id": "cockpit_preparation",
        "title": "Cockpit Preparation (Training)",
        "trigger": "At gate",
        "items": [
          {"id": "gear_pins", "challenge": "GEAR PINS & COVERS", "response": "REMOVED"}
        ]
      }
    ]
  }
}`

func writeTestDocs(t *testing.T) (normal, training string) {
	t.Helper()
	dir := t.TempDir()
	normal = filepath.Join(dir, "normal.json")
	training = filepath.Join(dir, "training.json")
	require.NoError(t, os.WriteFile(normal, []byte(testDocument), 0o644))
	require.NoError(t, os.WriteFile(training, []byte(testTrainingDocument), 0o644))
	return normal, training
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	normal, training := writeTestDocs(t)
	m, err := NewManager(normal, training, false, nil)
	require.NoError(t, err)
	return m
}

func TestManager_Load(t *testing.T) {
	m := newTestManager(t)

	assert.Len(t, m.AllChecklists(), 3)
	assert.Equal(t, flight.PhaseCockpitPreparation, m.CurrentPhase())
	assert.Equal(t, PhaseModeAuto, m.Mode())

	cl := m.CurrentChecklist()
	require.NotNil(t, cl)
	assert.Equal(t, "Cockpit Preparation", cl.Title)
	assert.Len(t, cl.Items, 3)

	// Response templates captured at load time.
	assert.Equal(t, "___KG CHECKED", cl.Item("fuel").ResponseTemplate)
}

func TestManager_ItemOperations(t *testing.T) {
	m := newTestManager(t)

	assert.True(t, m.CheckItem("cockpit_preparation", "gear_pins"))
	assert.True(t, m.CurrentChecklist().Item("gear_pins").Checked)

	assert.True(t, m.UncheckItem("cockpit_preparation", "gear_pins"))
	assert.False(t, m.CurrentChecklist().Item("gear_pins").Checked)

	assert.True(t, m.ToggleItem("cockpit_preparation", "gear_pins"))
	assert.True(t, m.CurrentChecklist().Item("gear_pins").Checked)

	// Unknown ids are no-ops.
	assert.False(t, m.CheckItem("cockpit_preparation", "nope"))
	assert.False(t, m.CheckItem("nope", "gear_pins"))
}

func TestManager_PhaseNavigation(t *testing.T) {
	m := newTestManager(t)

	require.True(t, m.NextPhase())
	assert.Equal(t, flight.PhaseBeforeStart, m.CurrentPhase())
	assert.Equal(t, PhaseModeManual, m.Mode())
	assert.Equal(t, []string{"cockpit_preparation"}, m.Snapshot().PhaseHistory)

	require.True(t, m.PrevPhase())
	assert.Equal(t, flight.PhaseCockpitPreparation, m.CurrentPhase())
	// Prev does not record history.
	assert.Equal(t, []string{"cockpit_preparation"}, m.Snapshot().PhaseHistory)

	assert.False(t, m.PrevPhase())
}

func TestManager_SetPhaseHistory(t *testing.T) {
	m := newTestManager(t)

	m.SetPhase(flight.PhaseBeforeStart, true)
	m.SetPhase(flight.PhaseCockpitPreparation, true)
	m.SetPhase(flight.PhaseBeforeStart, true)

	// cockpit_preparation appears once despite two departures from it.
	assert.Equal(t, []string{"cockpit_preparation", "before_start"}, m.Snapshot().PhaseHistory)

	// Setting the same phase again changes nothing.
	m.SetPhase(flight.PhaseBeforeStart, true)
	assert.Equal(t, flight.PhaseBeforeStart, m.CurrentPhase())
}

func TestManager_ResetAll(t *testing.T) {
	m := newTestManager(t)

	m.CheckItem("cockpit_preparation", "gear_pins")
	m.NextPhase()
	m.ResetAll()

	assert.Equal(t, flight.PhaseCockpitPreparation, m.CurrentPhase())
	assert.Equal(t, PhaseModeAuto, m.Mode())
	assert.Empty(t, m.Snapshot().PhaseHistory)
	assert.False(t, m.CurrentChecklist().Item("gear_pins").Checked)
}

func TestManager_UpdateVerification(t *testing.T) {
	m := newTestManager(t)

	m.UpdateVerification("BRAKE_PARKING_POSITION", 1)
	item := m.CurrentChecklist().Item("parking_brake")
	require.NotNil(t, item.Verified)
	assert.True(t, *item.Verified)

	m.UpdateVerification("BRAKE_PARKING_POSITION", 0)
	require.NotNil(t, item.Verified)
	assert.False(t, *item.Verified)

	// Items without a verify block stay unverifiable.
	assert.Nil(t, m.CurrentChecklist().Item("gear_pins").Verified)
}

func TestManager_TrainingMode(t *testing.T) {
	m := newTestManager(t)

	m.CheckItem("cockpit_preparation", "gear_pins")
	m.NextPhase()

	require.NoError(t, m.SetTrainingMode(true))
	assert.True(t, m.TrainingMode())
	assert.Len(t, m.AllChecklists(), 1)
	assert.Equal(t, flight.PhaseCockpitPreparation, m.CurrentPhase())
	assert.Equal(t, PhaseModeAuto, m.Mode())
	assert.Equal(t, "Cockpit Preparation (Training)", m.CurrentChecklist().Title)

	// Same mode again is a no-op.
	require.NoError(t, m.SetTrainingMode(true))

	require.NoError(t, m.SetTrainingMode(false))
	assert.Len(t, m.AllChecklists(), 3)
}

func TestSnapshot_DetachedFromManager(t *testing.T) {
	m := newTestManager(t)

	snap := m.Snapshot()
	require.NotNil(t, snap.Checklist)

	// Later mutations do not reach the snapshot.
	m.CheckItem("cockpit_preparation", "gear_pins")
	m.UpdateVerification("BRAKE_PARKING_POSITION", 1)
	assert.False(t, snap.Checklist.Item("gear_pins").Checked)
	assert.Nil(t, snap.Checklist.Item("parking_brake").Verified)

	// Writes to the snapshot do not reach the manager.
	snap.Checklist.Item("fuel").Checked = true
	assert.False(t, m.CurrentChecklist().Item("fuel").Checked)
}

func TestAllChecklists_DetachedFromManager(t *testing.T) {
	m := newTestManager(t)

	lists := m.AllChecklists()
	lists["before_start"].Item("beacon").Checked = true
	assert.False(t, m.Checklist("before_start").Item("beacon").Checked)

	m.CheckItem("approach", "baro_ref_ldg")
	assert.False(t, lists["approach"].Item("baro_ref_ldg").Checked)
}

func TestChecklist_IsComplete(t *testing.T) {
	m := newTestManager(t)
	cl := m.Checklist("before_start")
	require.NotNil(t, cl)

	assert.False(t, cl.IsComplete())
	m.CheckItem("before_start", "beacon")
	assert.True(t, cl.IsComplete())
}

func TestLoadDocument_Errors(t *testing.T) {
	_, err := LoadDocument(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = LoadDocument(bad)
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"phases":{}}`), 0o644))
	_, err = LoadDocument(empty)
	assert.Error(t, err)
}
