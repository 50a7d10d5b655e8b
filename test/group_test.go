package test

import (
	"fmt"
	"net/http"
	"testing"

	"taskhub/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGroup(t *testing.T) {
	app := CreateTestApp()

	token, userID, _ := SignupUser(t, app, "groupmaker")

	resp, result := DoJSON(t, app, "POST", "/api/groups", token, map[string]string{
		"name": "My Group",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	data := result["data"].(map[string]interface{})
	assert.Equal(t, "My Group", data["name"])
	// Pembuat menjadi owner sekaligus satu-satunya member awal
	assert.Equal(t, userID, int(data["owner"].(float64)))
	members := data["members"].([]interface{})
	require.Len(t, members, 1)
	assert.Equal(t, userID, int(members[0].(float64)))
}

// Group terlihat oleh owner dan member, tidak oleh orang luar.
func TestListGroupsMembership(t *testing.T) {
	app := CreateTestApp()

	tokenA, idA, _ := SignupUser(t, app, "mema")
	tokenB, idB, _ := SignupUser(t, app, "memb")
	tokenC, _, _ := SignupUser(t, app, "memc")

	groupID := CreateTestGroup(t, app, tokenA, "Shared Group")

	// A menambahkan B sebagai member
	resp, _ := DoJSON(t, app, "PUT", fmt.Sprintf("/api/groups/%d", groupID), tokenA,
		map[string]interface{}{
			"name":    "Shared Group",
			"members": []int{idA, idB},
		})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// B (member) melihat group-nya
	_, result := DoJSON(t, app, "GET", "/api/groups", tokenB, nil)
	groups := result["data"].([]interface{})
	require.Len(t, groups, 1)
	assert.Equal(t, "Shared Group", groups[0].(map[string]interface{})["name"])

	// C (bukan member) tidak melihat apa-apa
	_, result = DoJSON(t, app, "GET", "/api/groups", tokenC, nil)
	assert.Len(t, result["data"].([]interface{}), 0)
}

// Update group oleh non-owner harus 403, oleh owner harus tersimpan.
func TestUpdateGroupOwnerOnly(t *testing.T) {
	app := CreateTestApp()

	tokenA, idA, _ := SignupUser(t, app, "upa")
	tokenB, _, _ := SignupUser(t, app, "upb")
	groupID := CreateTestGroup(t, app, tokenA, "Before")

	resp, result := DoJSON(t, app, "PUT", fmt.Sprintf("/api/groups/%d", groupID), tokenB,
		map[string]interface{}{"name": "Hijacked"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Only the owner can update the group", result["message"])

	resp, result = DoJSON(t, app, "PUT", fmt.Sprintf("/api/groups/%d", groupID), tokenA,
		map[string]interface{}{
			"name":    "After",
			"members": []int{idA},
		})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "After", result["data"].(map[string]interface{})["name"])

	// Nama baru benar-benar tersimpan
	_, listResult := DoJSON(t, app, "GET", "/api/groups", tokenA, nil)
	groups := listResult["data"].([]interface{})
	require.Len(t, groups, 1)
	assert.Equal(t, "After", groups[0].(map[string]interface{})["name"])
}

func TestUpdateGroupNotFound(t *testing.T) {
	app := CreateTestApp()

	token, _, _ := SignupUser(t, app, "ghostgroup")
	resp, _ := DoJSON(t, app, "PUT", "/api/groups/999999", token,
		map[string]interface{}{"name": "Ghost"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// Ownership group bisa dipindahkan; sesudahnya owner lama kehilangan hak.
func TestGroupOwnershipTransfer(t *testing.T) {
	app := CreateTestApp()

	tokenA, idA, _ := SignupUser(t, app, "transfera")
	tokenB, idB, _ := SignupUser(t, app, "transferb")
	groupID := CreateTestGroup(t, app, tokenA, "Handover")

	resp, _ := DoJSON(t, app, "PUT", fmt.Sprintf("/api/groups/%d", groupID), tokenA,
		map[string]interface{}{
			"name":    "Handover",
			"members": []int{idA, idB},
			"owner":   idB,
		})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Owner lama sekarang ditolak
	resp, _ = DoJSON(t, app, "PUT", fmt.Sprintf("/api/groups/%d", groupID), tokenA,
		map[string]interface{}{"name": "Taking it back"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Owner baru boleh mengubah
	resp, _ = DoJSON(t, app, "PUT", fmt.Sprintf("/api/groups/%d", groupID), tokenB,
		map[string]interface{}{"name": "Mine now"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// Delete group: non-owner ditolak tanpa efek samping; owner menghapus
// group beserta seluruh task di dalamnya.
func TestGetGroupVisibility(t *testing.T) {
	app := CreateTestApp()

	tokenOwner, _, _ := SignupUser(t, app, "ggowner")
	tokenMember, memberID, _ := SignupUser(t, app, "ggmember")
	tokenOutsider, _, _ := SignupUser(t, app, "ggout")

	groupID := CreateTestGroup(t, app, tokenOwner, "Visible Group")

	// Tambahkan member lewat update
	resp, _ := DoJSON(t, app, "PUT", fmt.Sprintf("/api/groups/%d", groupID), tokenOwner, map[string]interface{}{
		"name":    "Visible Group",
		"members": []int{mustOwnerID(t, groupID), memberID},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Owner dan member boleh lihat
	resp, result := DoJSON(t, app, "GET", fmt.Sprintf("/api/groups/%d", groupID), tokenOwner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := result["data"].(map[string]interface{})
	assert.Equal(t, "Visible Group", data["name"])

	resp, _ = DoJSON(t, app, "GET", fmt.Sprintf("/api/groups/%d", groupID), tokenMember, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Bukan member: 403, bukan 404
	resp, _ = DoJSON(t, app, "GET", fmt.Sprintf("/api/groups/%d", groupID), tokenOutsider, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Group tidak ada: 404
	resp, _ = DoJSON(t, app, "GET", "/api/groups/999999", tokenOwner, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func mustOwnerID(t *testing.T, groupID int) int {
	t.Helper()
	var ownerID int
	err := config.DB.QueryRow("SELECT owner_id FROM groups WHERE id = $1", groupID).Scan(&ownerID)
	require.NoError(t, err)
	return ownerID
}

func TestDeleteGroupCascade(t *testing.T) {
	app := CreateTestApp()

	tokenA, _, _ := SignupUser(t, app, "casca")
	tokenB, _, _ := SignupUser(t, app, "cascb")

	groupID := CreateTestGroup(t, app, tokenA, "Doomed Group")
	CreateTestTask(t, app, tokenA, groupID, "Doomed Task 1")
	CreateTestTask(t, app, tokenA, groupID, "Doomed Task 2")

	// Non-owner: 403, group dan task tidak berubah
	resp, result := DoJSON(t, app, "DELETE", fmt.Sprintf("/api/groups/%d", groupID), tokenB, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Only the owner can delete the group", result["message"])

	var count int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM tasks WHERE group_id = $1", groupID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Owner: group terhapus dan task ikut terhapus
	resp, _ = DoJSON(t, app, "DELETE", fmt.Sprintf("/api/groups/%d", groupID), tokenA, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	err = config.DB.QueryRow("SELECT COUNT(*) FROM tasks WHERE group_id = $1", groupID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	err = config.DB.QueryRow("SELECT COUNT(*) FROM groups WHERE id = $1", groupID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestDeleteGroupNotFound(t *testing.T) {
	app := CreateTestApp()

	token, _, _ := SignupUser(t, app, "delghost")
	resp, _ := DoJSON(t, app, "DELETE", "/api/groups/999999", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
