package test

import (
	"fmt"
	"net/http"
	"testing"

	"taskhub/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTask(t *testing.T) {
	app := CreateTestApp()

	token, userID, _ := SignupUser(t, app, "taskuser")
	groupID := CreateTestGroup(t, app, token, "Task Group")

	resp, result := DoJSON(t, app, "POST", "/api/tasks", token, map[string]interface{}{
		"title":       "Test Task",
		"description": "Task description",
		"link":        "https://example.com/spec",
		"tags":        []string{"backend", "urgent"},
		"group":       groupID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	data := result["data"].(map[string]interface{})
	assert.NotNil(t, data["id"])
	assert.Equal(t, "Test Task", data["title"])
	assert.Equal(t, userID, int(data["owner"].(float64)))
	// Default: visibility private, status di awal workflow, belum completed
	assert.Equal(t, "private", data["visibility"])
	assert.Equal(t, 1, int(data["status"].(float64)))
	assert.Equal(t, false, data["completed"])
	tags := data["tags"].([]interface{})
	assert.Len(t, tags, 2)
}

// Task tanpa group harus ditolak dan tidak ada row yang tersimpan.
func TestCreateTaskWithoutGroup(t *testing.T) {
	app := CreateTestApp()

	token, userID, _ := SignupUser(t, app, "nogroup")

	resp, result := DoJSON(t, app, "POST", "/api/tasks", token, map[string]interface{}{
		"title": "Orphan Task",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Group is required", result["message"])

	var count int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM tasks WHERE owner_id = $1", userID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

// List hanya boleh berisi task milik caller, task user lain tidak ikut.
func TestListTasksOwnerScoped(t *testing.T) {
	app := CreateTestApp()

	tokenA, _, _ := SignupUser(t, app, "lista")
	tokenB, _, _ := SignupUser(t, app, "listb")

	groupA := CreateTestGroup(t, app, tokenA, "Group A")
	groupB := CreateTestGroup(t, app, tokenB, "Group B")
	CreateTestTask(t, app, tokenA, groupA, "Task of A")
	CreateTestTask(t, app, tokenB, groupB, "Task of B")

	resp, result := DoJSON(t, app, "GET", "/api/tasks", tokenA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tasks := result["data"].([]interface{})
	require.Len(t, tasks, 1)
	task := tasks[0].(map[string]interface{})
	assert.Equal(t, "Task of A", task["title"])
}

// Flag completed boleh dikirim sendirian dan hanya menggeser status.
func TestUpdateTaskPartialCompleted(t *testing.T) {
	app := CreateTestApp()

	token, _, _ := SignupUser(t, app, "partial")
	groupID := CreateTestGroup(t, app, token, "Partial Group")
	taskID := CreateTestTask(t, app, token, groupID, "Partial Task")

	resp, result := DoJSON(t, app, "PUT", fmt.Sprintf("/api/tasks/%d", taskID), token,
		map[string]interface{}{"completed": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := result["data"].(map[string]interface{})
	assert.Equal(t, true, data["completed"])
	assert.Equal(t, 6, int(data["status"].(float64)))
	// Field lain tidak boleh ikut berubah
	assert.Equal(t, "Partial Task", data["title"])

	resp, result = DoJSON(t, app, "PUT", fmt.Sprintf("/api/tasks/%d", taskID), token,
		map[string]interface{}{"completed": false})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data = result["data"].(map[string]interface{})
	assert.Equal(t, false, data["completed"])
	assert.Equal(t, 1, int(data["status"].(float64)))
}

func TestUpdateTaskInvalidStatus(t *testing.T) {
	app := CreateTestApp()

	token, _, _ := SignupUser(t, app, "badstatus")
	groupID := CreateTestGroup(t, app, token, "Status Group")
	taskID := CreateTestTask(t, app, token, groupID, "Status Task")

	resp, _ := DoJSON(t, app, "PUT", fmt.Sprintf("/api/tasks/%d", taskID), token,
		map[string]interface{}{"status": 7})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// Task milik user lain harus dijawab 404, BUKAN 403: keberadaan task tidak
// boleh bisa dibedakan dari soal izin.
func TestUpdateTaskByNonOwnerNotFound(t *testing.T) {
	app := CreateTestApp()

	tokenA, _, _ := SignupUser(t, app, "ownera")
	tokenB, _, _ := SignupUser(t, app, "ownerb")
	groupID := CreateTestGroup(t, app, tokenA, "Owner Group")
	taskID := CreateTestTask(t, app, tokenA, groupID, "Owned Task")

	resp, result := DoJSON(t, app, "PUT", fmt.Sprintf("/api/tasks/%d", taskID), tokenB,
		map[string]interface{}{"title": "Hijacked"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Task not found", result["message"])

	// Task aslinya tidak berubah
	_, listResult := DoJSON(t, app, "GET", "/api/tasks", tokenA, nil)
	tasks := listResult["data"].([]interface{})
	require.Len(t, tasks, 1)
	assert.Equal(t, "Owned Task", tasks[0].(map[string]interface{})["title"])
}

func TestDeleteTaskByNonOwnerNotFound(t *testing.T) {
	app := CreateTestApp()

	tokenA, _, _ := SignupUser(t, app, "dela")
	tokenB, _, _ := SignupUser(t, app, "delb")
	groupID := CreateTestGroup(t, app, tokenA, "Delete Group")
	taskID := CreateTestTask(t, app, tokenA, groupID, "Task to Delete")

	resp, _ := DoJSON(t, app, "DELETE", fmt.Sprintf("/api/tasks/%d", taskID), tokenB, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Owner sendiri boleh menghapus
	resp, _ = DoJSON(t, app, "DELETE", fmt.Sprintf("/api/tasks/%d", taskID), tokenA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Hapus kedua kali: task sudah tidak ada
	resp, _ = DoJSON(t, app, "DELETE", fmt.Sprintf("/api/tasks/%d", taskID), tokenA, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetTask(t *testing.T) {
	app := CreateTestApp()

	tokenA, _, _ := SignupUser(t, app, "geta")
	tokenB, _, _ := SignupUser(t, app, "getb")
	groupID := CreateTestGroup(t, app, tokenA, "Get Group")
	taskID := CreateTestTask(t, app, tokenA, groupID, "Get Task")

	resp, result := DoJSON(t, app, "GET", fmt.Sprintf("/api/tasks/%d", taskID), tokenA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := result["data"].(map[string]interface{})
	assert.Equal(t, "Get Task", data["title"])

	// Request kedua dilayani dari cache, isinya harus sama
	resp, result = DoJSON(t, app, "GET", fmt.Sprintf("/api/tasks/%d", taskID), tokenA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data = result["data"].(map[string]interface{})
	assert.Equal(t, "Get Task", data["title"])

	// User lain mendapat 404, bukan 403, termasuk saat task ada di cache
	resp, _ = DoJSON(t, app, "GET", fmt.Sprintf("/api/tasks/%d", taskID), tokenB, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTaskRoutesRequireSession(t *testing.T) {
	app := CreateTestApp()

	resp, _ := DoJSON(t, app, "GET", "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = DoJSON(t, app, "POST", "/api/tasks", "", map[string]interface{}{
		"title": "No Session", "group": 1,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
