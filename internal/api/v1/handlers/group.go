package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"taskhub/internal/config"
	"taskhub/internal/models"
	"taskhub/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Group handlers
//
// Berbeda dengan task, group membedakan 404 (tidak ada) dan 403 (bukan
// owner). Client menampilkan pesan "only the owner can ..." khusus untuk
// response 403 ini.

const groupColumns = "id, name, owner_id, members, created_at, updated_at"

func scanGroup(row interface {
	Scan(dest ...interface{}) error
}, group *models.Group) error {
	return row.Scan(&group.ID, &group.Name, &group.OwnerID, &group.Members,
		&group.CreatedAt, &group.UpdatedAt)
}

// cacheGroup menyimpan group ke Redis selama 1 jam.
func cacheGroup(group models.Group) {
	cacheKey := fmt.Sprintf("group:%d", group.ID)
	groupJSON, err := json.Marshal(group)
	if err == nil {
		config.RedisClient.SetEX(config.Ctx, cacheKey, groupJSON, time.Hour)
	}
}

// CreateGroup membuat group baru: pembuat menjadi owner sekaligus
// satu-satunya member awal.
func CreateGroup(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	type GroupRequest struct {
		Name string `json:"name" validate:"required"`
	}

	var req GroupRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in create group", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}
	if err := config.Validate.Struct(req); err != nil {
		logger.ErrorLogger.Error("Validation error in create group", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	group := models.Group{
		Name:    req.Name,
		OwnerID: userID,
		Members: pq.Int64Array{int64(userID)},
	}
	err := config.DB.QueryRow(`
        INSERT INTO groups (name, owner_id, members)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`,
		group.Name, group.OwnerID, group.Members,
	).Scan(&group.ID, &group.CreatedAt, &group.UpdatedAt)
	if err != nil {
		logger.ErrorLogger.Error("Error creating group", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error creating group",
			"success": false,
			"status":  500,
		})
	}
	cacheGroup(group)

	logger.AuditLogger.Info("Group created successfully", zap.Int("group_id", group.ID))
	return c.Status(201).JSON(fiber.Map{
		"message": "Group created successfully",
		"success": true,
		"status":  201,
		"data":    group,
	})
}

// ListGroups mengambil group di mana user adalah owner ATAU member.
func ListGroups(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	rows, err := config.DB.Query(
		"SELECT "+groupColumns+" FROM groups WHERE owner_id = $1 OR $1 = ANY(members) ORDER BY id",
		userID)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching groups", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching groups",
			"success": false,
			"status":  500,
		})
	}
	defer rows.Close()

	groups := []models.Group{}
	for rows.Next() {
		var group models.Group
		if err := scanGroup(rows, &group); err != nil {
			logger.ErrorLogger.Error("Error scanning groups", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error scanning groups",
				"success": false,
				"status":  500,
			})
		}
		groups = append(groups, group)
	}

	if err = rows.Err(); err != nil {
		logger.ErrorLogger.Error("Error iterating over groups", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error iterating over groups",
			"success": false,
			"status":  500,
		})
	}

	// Simpan tiap group ke Redis selama 1 jam
	for _, group := range groups {
		cacheGroup(group)
	}

	logger.AuditLogger.Info("Groups fetched successfully", zap.Int("user_id", userID))
	return c.JSON(fiber.Map{
		"message": "Groups fetched successfully",
		"success": true,
		"status":  200,
		"data":    groups,
	})
}

// GetGroup mengambil satu group; hanya owner atau member yang boleh.
// Group yang ada tapi bukan milik caller dijawab 403 (bukan 404).
func GetGroup(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	groupID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid group ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid group ID",
			"success": false,
			"status":  400,
		})
	}

	// Coba ambil dari cache Redis lebih dulu
	cacheKey := fmt.Sprintf("group:%d", groupID)
	if cached, err := config.RedisClient.Get(config.Ctx, cacheKey).Result(); err == nil {
		var group models.Group
		if err = json.Unmarshal([]byte(cached), &group); err == nil {
			if !groupVisibleTo(group, userID) {
				return c.Status(403).JSON(fiber.Map{
					"message": "Forbidden",
					"success": false,
					"status":  403,
				})
			}
			logger.AuditLogger.Info("Group found (from cache)", zap.Int("group_id", groupID))
			return c.JSON(fiber.Map{
				"message": "Group found (from cache)",
				"success": true,
				"status":  200,
				"data":    group,
			})
		}
	}

	var group models.Group
	err = scanGroup(config.DB.QueryRow(
		"SELECT "+groupColumns+" FROM groups WHERE id = $1", groupID), &group)
	if err == sql.ErrNoRows {
		return c.Status(404).JSON(fiber.Map{
			"message": "Group not found",
			"success": false,
			"status":  404,
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching group", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching group",
			"success": false,
			"status":  500,
		})
	}
	if !groupVisibleTo(group, userID) {
		logger.SecurityLogger.Warn("Non-member tried to read group",
			zap.Int("group_id", groupID), zap.Int("user_id", userID))
		return c.Status(403).JSON(fiber.Map{
			"message": "Forbidden",
			"success": false,
			"status":  403,
		})
	}

	cacheGroup(group)

	logger.AuditLogger.Info("Group found", zap.Int("group_id", groupID))
	return c.JSON(fiber.Map{
		"message": "Group found",
		"success": true,
		"status":  200,
		"data":    group,
	})
}

// groupVisibleTo: group terlihat oleh owner dan member-nya.
func groupVisibleTo(group models.Group, userID int) bool {
	if group.OwnerID == userID {
		return true
	}
	for _, m := range group.Members {
		if int(m) == userID {
			return true
		}
	}
	return false
}

// UpdateGroup mengganti name dan members secara keseluruhan; hanya owner
// yang boleh. Ownership group bisa dipindahkan lewat field owner.
func UpdateGroup(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	groupID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid group ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid group ID",
			"success": false,
			"status":  400,
		})
	}

	// Ambil owner dulu supaya 404 dan 403 bisa dibedakan
	var ownerID int
	err = config.DB.QueryRow("SELECT owner_id FROM groups WHERE id = $1", groupID).Scan(&ownerID)
	if err == sql.ErrNoRows {
		logger.AuditLogger.Warn("Group not found for update", zap.Int("group_id", groupID))
		return c.Status(404).JSON(fiber.Map{
			"message": "Group not found",
			"success": false,
			"status":  404,
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching group", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching group",
			"success": false,
			"status":  500,
		})
	}
	if ownerID != userID {
		logger.SecurityLogger.Warn("Non-owner tried to update group",
			zap.Int("group_id", groupID), zap.Int("user_id", userID))
		return c.Status(403).JSON(fiber.Map{
			"message": "Only the owner can update the group",
			"success": false,
			"status":  403,
		})
	}

	type UpdateGroupRequest struct {
		Name    string  `json:"name" validate:"required"`
		Members []int64 `json:"members"`
		Owner   *int    `json:"owner"`
	}

	var req UpdateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in update group", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}
	if err := config.Validate.Struct(req); err != nil {
		logger.ErrorLogger.Error("Validation error in update group", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	newOwner := ownerID
	if req.Owner != nil {
		newOwner = *req.Owner
	}
	var membersParam interface{}
	if req.Members != nil {
		membersParam = pq.Array(req.Members)
	}

	_, err = config.DB.Exec(`
        UPDATE groups
        SET name = $1,
            members = COALESCE($2, members),
            owner_id = $3,
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $4`,
		req.Name, membersParam, newOwner, groupID,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			logger.AuditLogger.Warn("Update group with unknown owner", zap.Error(err))
			return c.Status(400).JSON(fiber.Map{
				"message": "Owner does not exist",
				"success": false,
				"status":  400,
			})
		}
		logger.ErrorLogger.Error("Error updating group", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error updating group",
			"success": false,
			"status":  500,
		})
	}

	var updatedGroup models.Group
	err = scanGroup(config.DB.QueryRow(
		"SELECT "+groupColumns+" FROM groups WHERE id = $1", groupID), &updatedGroup)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching updated group", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching updated group",
			"success": false,
			"status":  500,
		})
	}

	// Perbarui cache Redis untuk group ini
	cacheKey := fmt.Sprintf("group:%d", groupID)
	config.RedisClient.Del(config.Ctx, cacheKey)
	cacheGroup(updatedGroup)

	logger.AuditLogger.Info("Group updated", zap.Int("group_id", groupID))
	return c.Status(200).JSON(fiber.Map{
		"message": "Group updated successfully",
		"success": true,
		"status":  200,
		"data":    updatedGroup,
	})
}

// DeleteGroup menghapus group beserta seluruh task di dalamnya.
// Task ikut terhapus dalam satu transaksi dengan group-nya.
func DeleteGroup(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	groupID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid group ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid group ID",
			"success": false,
			"status":  400,
		})
	}

	var ownerID int
	err = config.DB.QueryRow("SELECT owner_id FROM groups WHERE id = $1", groupID).Scan(&ownerID)
	if err == sql.ErrNoRows {
		logger.AuditLogger.Warn("Group not found for delete", zap.Int("group_id", groupID))
		return c.Status(404).JSON(fiber.Map{
			"message": "Group not found",
			"success": false,
			"status":  404,
		})
	}
	if err != nil {
		logger.ErrorLogger.Error("Error fetching group", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching group",
			"success": false,
			"status":  500,
		})
	}
	if ownerID != userID {
		logger.SecurityLogger.Warn("Non-owner tried to delete group",
			zap.Int("group_id", groupID), zap.Int("user_id", userID))
		return c.Status(403).JSON(fiber.Map{
			"message": "Only the owner can delete the group",
			"success": false,
			"status":  403,
		})
	}

	tx, err := config.DB.Begin()
	if err != nil {
		logger.ErrorLogger.Error("Error starting transaction", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error deleting group",
			"success": false,
			"status":  500,
		})
	}

	// Hapus task lebih dulu karena tasks.group_id mereferensikan groups.id
	var taskIDs []int
	rows, err := tx.Query("DELETE FROM tasks WHERE group_id = $1 RETURNING id", groupID)
	if err != nil {
		tx.Rollback()
		logger.ErrorLogger.Error("Error deleting group tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error deleting group",
			"success": false,
			"status":  500,
		})
	}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			tx.Rollback()
			logger.ErrorLogger.Error("Error scanning deleted tasks", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error deleting group",
				"success": false,
				"status":  500,
			})
		}
		taskIDs = append(taskIDs, id)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		tx.Rollback()
		logger.ErrorLogger.Error("Error iterating deleted tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error deleting group",
			"success": false,
			"status":  500,
		})
	}

	if _, err := tx.Exec("DELETE FROM groups WHERE id = $1", groupID); err != nil {
		tx.Rollback()
		logger.ErrorLogger.Error("Error deleting group", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error deleting group",
			"success": false,
			"status":  500,
		})
	}

	if err := tx.Commit(); err != nil {
		logger.ErrorLogger.Error("Error committing group delete", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error deleting group",
			"success": false,
			"status":  500,
		})
	}

	// Hapus cache Redis untuk group dan task-task yang ikut terhapus
	config.RedisClient.Del(config.Ctx, fmt.Sprintf("group:%d", groupID))
	for _, id := range taskIDs {
		config.RedisClient.Del(config.Ctx, fmt.Sprintf("task:%d", id))
	}

	logger.AuditLogger.Info("Group deleted", zap.Int("group_id", groupID),
		zap.Int("cascaded_tasks", len(taskIDs)))
	return c.Status(200).JSON(fiber.Map{
		"message": "Group deleted successfully",
		"success": true,
		"status":  200,
	})
}
