package controllers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/inventory-sync/models"
)

func TestScheduleCRUD(t *testing.T) {
	router := newTestServer(t)

	// 创建
	recorder, resp := perform(t, router, http.MethodPost, "/api/sync/schedules", map[string]interface{}{
		"name":             "每小时MAIN同步",
		"warehouse":        "MAIN",
		"frequency":        "hourly",
		"notifyOnLowStock": true,
	})
	require.Equal(t, http.StatusCreated, recorder.Code)

	var schedule models.SyncSchedule
	require.NoError(t, json.Unmarshal(resp.Data, &schedule))
	require.NotEmpty(t, schedule.ID)
	assert.True(t, schedule.Enabled)
	assert.NotNil(t, schedule.NextRun)

	// 列表
	recorder, resp = perform(t, router, http.MethodGet, "/api/sync/schedules", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	var schedules []models.SyncSchedule
	require.NoError(t, json.Unmarshal(resp.Data, &schedules))
	found := false
	for _, s := range schedules {
		if s.ID == schedule.ID {
			found = true
		}
	}
	assert.True(t, found)

	// 更新: 停用
	recorder, resp = perform(t, router, http.MethodPut, "/api/sync/schedules/"+schedule.ID, map[string]interface{}{
		"enabled": false,
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	var updated models.SyncSchedule
	require.NoError(t, json.Unmarshal(resp.Data, &updated))
	assert.False(t, updated.Enabled)
	assert.Nil(t, updated.NextRun)

	// 删除
	recorder, _ = perform(t, router, http.MethodDelete, "/api/sync/schedules/"+schedule.ID, nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder, resp = perform(t, router, http.MethodDelete, "/api/sync/schedules/"+schedule.ID, nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.False(t, resp.Success)
}

func TestCreateScheduleValidation(t *testing.T) {
	router := newTestServer(t)

	recorder, resp := perform(t, router, http.MethodPost, "/api/sync/schedules", map[string]interface{}{
		"name":      "坏计划",
		"frequency": "sometimes",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.False(t, resp.Success)

	recorder, resp = perform(t, router, http.MethodPost, "/api/sync/schedules", map[string]interface{}{
		"frequency": "daily",
	})
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.False(t, resp.Success)
}

func TestUpdateScheduleNotFound(t *testing.T) {
	router := newTestServer(t)

	recorder, resp := perform(t, router, http.MethodPut, "/api/sync/schedules/no-such-id", map[string]interface{}{
		"enabled": false,
	})
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "RESOURCE_NOT_FOUND", resp.Code)
}

func TestManualSync(t *testing.T) {
	router := newTestServer(t)

	recorder, resp := perform(t, router, http.MethodPost, "/api/sync/manual", map[string]interface{}{
		"warehouse": "VAN-07",
	})
	require.Equal(t, http.StatusOK, recorder.Code)
	require.True(t, resp.Success)

	var result models.SyncResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, "VAN-07", result.Scope)

	// 手动同步不影响任何计划的运行时间
	_, resp = perform(t, router, http.MethodGet, "/api/sync/schedules", nil)
	var schedules []models.SyncSchedule
	require.NoError(t, json.Unmarshal(resp.Data, &schedules))
	for _, s := range schedules {
		assert.Nil(t, s.LastRun)
	}
}

func TestUnknownRouteReturnsEnvelope(t *testing.T) {
	router := newTestServer(t)

	recorder, resp := perform(t, router, http.MethodGet, "/api/no-such-endpoint", nil)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestSyncStatus(t *testing.T) {
	router := newTestServer(t)

	perform(t, router, http.MethodPost, "/api/sync/manual", map[string]interface{}{})

	recorder, resp := perform(t, router, http.MethodGet, "/api/sync/status", nil)
	require.Equal(t, http.StatusOK, recorder.Code)

	var status models.SyncStatus
	require.NoError(t, json.Unmarshal(resp.Data, &status))
	assert.Empty(t, status.InFlightScopes)
	assert.Contains(t, status.LastResults, models.ScopeAll)
	assert.Zero(t, status.Clients)
}
