package registry

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registryFile = "../../configs/activity-registry.json"

func TestLoadRegistry_ShippedRegistryIsClean(t *testing.T) {
	reg, err := LoadRegistry(registryFile)
	require.NoError(t, err)

	assert.Len(t, reg.Activities, 9)
	assert.Empty(t, reg.Check())

	for _, taskType := range []string{
		"generate-recommendations",
		"predict-admission",
		"predict-batch-admission",
		"explain-recommendation",
		"project-cost-trends",
		"analyze-costs",
		"search-universities",
		"resolve-student-profile",
		"send-recommendation-digest",
	} {
		_, ok := reg.ByTaskType(taskType)
		assert.True(t, ok, taskType)
	}
}

func TestValidateInput(t *testing.T) {
	reg, err := LoadRegistry(registryFile)
	require.NoError(t, err)

	tests := []struct {
		name     string
		taskType string
		vars     map[string]interface{}
		valid    bool
	}{
		{
			name:     "profile inline",
			taskType: "predict-admission",
			vars:     map[string]interface{}{"studentProfile": map[string]interface{}{"cgpa": 3.4}, "universityId": 3},
			valid:    true,
		},
		{
			name:     "user id instead of profile",
			taskType: "predict-admission",
			vars:     map[string]interface{}{"userId": "u-1", "universityId": 3},
			valid:    true,
		},
		{
			name:     "neither profile nor user",
			taskType: "predict-admission",
			vars:     map[string]interface{}{"universityId": 3},
			valid:    false,
		},
		{
			name:     "missing university",
			taskType: "predict-admission",
			vars:     map[string]interface{}{"userId": "u-1"},
			valid:    false,
		},
		{
			name:     "empty batch",
			taskType: "predict-batch-admission",
			vars:     map[string]interface{}{"userId": "u-1", "universityIds": []interface{}{}},
			valid:    false,
		},
		{
			name:     "search needs nothing",
			taskType: "search-universities",
			vars:     map[string]interface{}{},
			valid:    true,
		},
		{
			name:     "max results out of range",
			taskType: "generate-recommendations",
			vars:     map[string]interface{}{"userId": "u-1", "maxResults": 0},
			valid:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := reg.ValidateInput(tt.taskType, tt.vars)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, res.Valid, res.GetErrorMessages())
		})
	}

	_, err = reg.ValidateInput("unknown-task", nil)
	assert.True(t, errors.Is(err, ErrUnknownTaskType))
}

func TestAddUpdateSave(t *testing.T) {
	reg := &ActivityRegistry{Version: "1.0.0"}
	a := Activity{ID: "catalog.university.sync", TaskType: "sync-catalog", ImplementationStatus: StatusPlanned, Timeout: "10s"}

	require.NoError(t, reg.Add(a))
	assert.Error(t, reg.Add(a))

	require.NoError(t, reg.Update(a.ID, "status", StatusCompleted))
	require.NoError(t, reg.Update(a.ID, "retries", "2"))
	assert.Error(t, reg.Update(a.ID, "timeout", "soon"))
	assert.Error(t, reg.Update(a.ID, "colour", "red"))
	assert.Error(t, reg.Update("missing.activity.id", "status", StatusVerified))

	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, reg.Save(path))

	loaded, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, loaded.Activities, 1)
	assert.Equal(t, StatusCompleted, loaded.Activities[0].ImplementationStatus)
	assert.Equal(t, 2, loaded.Activities[0].Retries)
	assert.NotEmpty(t, loaded.LastUpdated)
}

func TestCheck_ReportsProblems(t *testing.T) {
	reg := &ActivityRegistry{Activities: []Activity{
		{ID: "bad-id", TaskType: "a", ImplementationStatus: StatusPlanned},
		{ID: "x.y.z", TaskType: "a", ImplementationStatus: "someday", Timeout: "forever"},
	}}
	assert.Len(t, reg.Check(), 4)
}

func TestTimeoutDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, Activity{Timeout: "30s"}.TimeoutDuration(time.Second))
	assert.Equal(t, time.Second, Activity{Timeout: ""}.TimeoutDuration(time.Second))
	assert.Equal(t, time.Second, Activity{Timeout: "nope"}.TimeoutDuration(time.Second))
}
