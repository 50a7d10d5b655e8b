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

// Task handlers

// validVisibility is a function to validate the visibility of a task
// it will return true if the visibility is one of the following:
// - private
// - group
// - public
// and false otherwise
func validVisibility(visibility string) bool {
	switch visibility {
	case "private", "group", "public":
		return true
	default:
		return false
	}
}

// validStatus memastikan status berada di dalam workflow 1..6.
func validStatus(status int) bool {
	return status >= 1 && status <= models.StatusDone
}

// deriveCompleted: task dianggap completed jika statusnya "Done" (6).
func deriveCompleted(task *models.Task) {
	task.Completed = task.Status == models.StatusDone
}

const taskColumns = "id, title, description, link, tags, visibility, status, group_id, owner_id, assigned_by, assigned_to, created_at, updated_at"

func scanTask(row interface {
	Scan(dest ...interface{}) error
}, task *models.Task) error {
	err := row.Scan(&task.ID, &task.Title, &task.Description, &task.Link,
		&task.Tags, &task.Visibility, &task.Status, &task.GroupID,
		&task.OwnerID, &task.AssignedBy, &task.AssignedTo,
		&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return err
	}
	deriveCompleted(task)
	return nil
}

// cacheTask menyimpan task ke Redis selama 1 jam.
func cacheTask(task models.Task) {
	cacheKey := fmt.Sprintf("task:%d", task.ID)
	taskJSON, err := json.Marshal(task)
	if err == nil {
		config.RedisClient.SetEX(config.Ctx, cacheKey, taskJSON, time.Hour)
	}
}

// CreateTask membuat task baru milik user yang sedang login.
func CreateTask(c *fiber.Ctx) error {
	// ambil user ID dari locals
	userID := c.Locals("userID").(int)

	// struct TaskRequest menerima inputan dari user
	type TaskRequest struct {
		Title       string   `json:"title" validate:"required"`
		Description string   `json:"description"`
		Link        string   `json:"link"`
		Tags        []string `json:"tags"`
		Visibility  string   `json:"visibility" validate:"omitempty,oneof=private group public"`
		Status      int      `json:"status" validate:"omitempty,min=1,max=6"`
		Group       int      `json:"group"`
		AssignedTo  *int     `json:"assigned_to"`
	}

	var req TaskRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in create task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	// Task tanpa group ditolak
	if req.Group == 0 {
		logger.AuditLogger.Warn("Create task without group", zap.Int("user_id", userID))
		return c.Status(400).JSON(fiber.Map{
			"message": "Group is required",
			"success": false,
			"status":  400,
		})
	}

	if err := config.Validate.Struct(req); err != nil {
		logger.ErrorLogger.Error("Validation error in create task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Validation error",
			"errors":  err.Error(),
			"success": false,
			"status":  400,
		})
	}

	// Default: visibility private, status di awal workflow
	if req.Visibility == "" {
		req.Visibility = "private"
	}
	if req.Status == 0 {
		req.Status = 1
	}
	if req.Tags == nil {
		req.Tags = []string{}
	}

	task := models.Task{
		Title:       req.Title,
		Description: req.Description,
		Link:        req.Link,
		Tags:        req.Tags,
		Visibility:  req.Visibility,
		Status:      req.Status,
		GroupID:     req.Group,
		OwnerID:     userID,
	}
	// assigned_by diisi oleh server, bukan dari request
	if req.AssignedTo != nil {
		task.AssignedTo = sql.NullInt64{Int64: int64(*req.AssignedTo), Valid: true}
		task.AssignedBy = sql.NullInt64{Int64: int64(userID), Valid: true}
	}

	err := config.DB.QueryRow(`
        INSERT INTO tasks (title, description, link, tags, visibility, status, group_id, owner_id, assigned_by, assigned_to)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, created_at, updated_at`,
		task.Title, task.Description, task.Link, task.Tags,
		task.Visibility, task.Status, task.GroupID, task.OwnerID,
		task.AssignedBy, task.AssignedTo,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			logger.AuditLogger.Warn("Create task with unknown reference", zap.Error(err))
			return c.Status(400).JSON(fiber.Map{
				"message": "Group does not exist",
				"success": false,
				"status":  400,
			})
		}
		logger.ErrorLogger.Error("Error creating task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error creating task",
			"success": false,
			"status":  500,
		})
	}
	deriveCompleted(&task)
	cacheTask(task)

	logger.AuditLogger.Info("Task created successfully", zap.Int("task_id", task.ID))
	return c.Status(201).JSON(fiber.Map{
		"message": "Task created successfully",
		"success": true,
		"status":  201,
		"data":    task,
	})
}

// ListTasks mengambil semua task milik user yang sedang login.
// Task milik user lain tidak pernah ikut terbaca, apa pun visibility-nya.
func ListTasks(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	rows, err := config.DB.Query(
		"SELECT "+taskColumns+" FROM tasks WHERE owner_id = $1 ORDER BY id", userID)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching tasks",
			"success": false,
			"status":  500,
		})
	}
	// .Close() digunakan untuk menutup koneksi setelah selesai digunakan
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var task models.Task
		if err := scanTask(rows, &task); err != nil {
			logger.ErrorLogger.Error("Error scanning tasks", zap.Error(err))
			return c.Status(500).JSON(fiber.Map{
				"message": "Error scanning tasks",
				"success": false,
				"status":  500,
			})
		}
		tasks = append(tasks, task)
	}

	if err = rows.Err(); err != nil {
		logger.ErrorLogger.Error("Error iterating over tasks", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error iterating over tasks",
			"success": false,
			"status":  500,
		})
	}

	// Simpan tiap task ke Redis selama 1 jam
	for _, task := range tasks {
		cacheTask(task)
	}

	logger.AuditLogger.Info("Tasks fetched successfully", zap.Int("user_id", userID))
	return c.JSON(fiber.Map{
		"message": "Tasks fetched successfully",
		"success": true,
		"status":  200,
		"data":    tasks,
	})
}

// GetTask mengambil satu task. Aturan kepemilikan sama dengan list:
// task user lain dijawab 404, bukan 403.
func GetTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid task ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid task ID",
			"success": false,
			"status":  400,
		})
	}

	// Coba ambil dari cache Redis lebih dulu
	cacheKey := fmt.Sprintf("task:%d", taskID)
	if cached, err := config.RedisClient.Get(config.Ctx, cacheKey).Result(); err == nil {
		var task models.Task
		if err = json.Unmarshal([]byte(cached), &task); err == nil {
			if task.OwnerID != userID {
				// Jawaban sama dengan task yang tidak ada
				return c.Status(404).JSON(fiber.Map{
					"message": "Task not found",
					"success": false,
					"status":  404,
				})
			}
			logger.AuditLogger.Info("Task found (from cache)", zap.Int("task_id", taskID))
			return c.JSON(fiber.Map{
				"message": "Task found (from cache)",
				"success": true,
				"status":  200,
				"data":    task,
			})
		}
	}

	var task models.Task
	err = scanTask(config.DB.QueryRow(
		"SELECT "+taskColumns+" FROM tasks WHERE id = $1 AND owner_id = $2",
		taskID, userID), &task)
	if err != nil {
		logger.AuditLogger.Warn("Task not found", zap.Int("task_id", taskID), zap.Int("user_id", userID))
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
			"success": false,
			"status":  404,
		})
	}

	cacheTask(task)

	logger.AuditLogger.Info("Task found", zap.Int("task_id", taskID))
	return c.JSON(fiber.Map{
		"message": "Task found",
		"success": true,
		"status":  200,
		"data":    task,
	})
}

// UpdateTask mengubah hanya field yang dikirim (partial update).
// Kepemilikan dicek langsung di klausa WHERE: task milik user lain dan
// task yang tidak ada sama-sama menghasilkan 404, tanpa bisa dibedakan.
func UpdateTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid task ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid task ID",
			"success": false,
			"status":  400,
		})
	}

	// pointer (*) untuk menandakan bahwa field bisa kosong
	type UpdateTaskRequest struct {
		Title       *string  `json:"title"`
		Description *string  `json:"description"`
		Link        *string  `json:"link"`
		Tags        []string `json:"tags"`
		Visibility  *string  `json:"visibility"`
		Status      *int     `json:"status"`
		Completed   *bool    `json:"completed"`
		Group       *int     `json:"group"`
		AssignedTo  *int     `json:"assigned_to"`
	}

	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		logger.ErrorLogger.Error("Bad request in update task", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Bad request",
			"success": false,
			"status":  400,
		})
	}

	if req.Visibility != nil && !validVisibility(*req.Visibility) {
		logger.ErrorLogger.Error("Invalid visibility in update task")
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid visibility",
			"success": false,
			"status":  400,
		})
	}
	if req.Status != nil && !validStatus(*req.Status) {
		logger.ErrorLogger.Error("Invalid status in update task")
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid status",
			"success": false,
			"status":  400,
		})
	}

	// Flag completed boleh dikirim sendirian: true memindahkan status ke
	// "Done", false mengembalikannya ke awal workflow. Status eksplisit menang.
	statusParam := req.Status
	if statusParam == nil && req.Completed != nil {
		s := 1
		if *req.Completed {
			s = models.StatusDone
		}
		statusParam = &s
	}

	var tagsParam interface{}
	if req.Tags != nil {
		tagsParam = pq.Array(req.Tags)
	}

	res, err := config.DB.Exec(`
        UPDATE tasks
        SET title = COALESCE($1, title),
            description = COALESCE($2, description),
            link = COALESCE($3, link),
            tags = COALESCE($4, tags),
            visibility = COALESCE($5, visibility),
            status = COALESCE($6, status),
            group_id = COALESCE($7, group_id),
            assigned_to = COALESCE($8, assigned_to),
            updated_at = CURRENT_TIMESTAMP
        WHERE id = $9 AND owner_id = $10`,
		req.Title, req.Description, req.Link, tagsParam,
		req.Visibility, statusParam, req.Group, req.AssignedTo,
		taskID, userID,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			logger.AuditLogger.Warn("Update task with unknown reference", zap.Error(err))
			return c.Status(400).JSON(fiber.Map{
				"message": "Group does not exist",
				"success": false,
				"status":  400,
			})
		}
		logger.ErrorLogger.Error("Error updating task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error updating task",
			"success": false,
			"status":  500,
		})
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil || rowsAffected == 0 {
		// Tidak ada row berarti task tidak ada ATAU bukan milik user ini.
		// Keduanya sengaja dijawab 404 yang sama.
		logger.SecurityLogger.Warn("Task not found for update", zap.Int("task_id", taskID), zap.Int("user_id", userID))
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
			"success": false,
			"status":  404,
		})
	}

	// Ambil data task terbaru dari database
	var updatedTask models.Task
	err = scanTask(config.DB.QueryRow(
		"SELECT "+taskColumns+" FROM tasks WHERE id = $1", taskID), &updatedTask)
	if err != nil {
		logger.ErrorLogger.Error("Error fetching updated task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error fetching updated task",
			"success": false,
			"status":  500,
		})
	}

	// Perbarui cache Redis untuk task ini
	cacheKey := fmt.Sprintf("task:%d", taskID)
	config.RedisClient.Del(config.Ctx, cacheKey)
	cacheTask(updatedTask)

	logger.AuditLogger.Info("Task updated", zap.Int("task_id", taskID))
	return c.Status(200).JSON(fiber.Map{
		"message": "Task updated successfully",
		"success": true,
		"status":  200,
		"data":    updatedTask,
	})
}

// DeleteTask menghapus task; aturan kepemilikan sama dengan UpdateTask.
func DeleteTask(c *fiber.Ctx) error {
	userID := c.Locals("userID").(int)

	taskID, err := c.ParamsInt("id")
	if err != nil {
		logger.ErrorLogger.Error("Invalid task ID", zap.Error(err))
		return c.Status(400).JSON(fiber.Map{
			"message": "Invalid task ID",
			"success": false,
			"status":  400,
		})
	}

	res, err := config.DB.Exec(
		"DELETE FROM tasks WHERE id = $1 AND owner_id = $2", taskID, userID)
	if err != nil {
		logger.ErrorLogger.Error("Error deleting task", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{
			"message": "Error deleting task",
			"success": false,
			"status":  500,
		})
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil || rowsAffected == 0 {
		logger.SecurityLogger.Warn("Task not found for delete", zap.Int("task_id", taskID), zap.Int("user_id", userID))
		return c.Status(404).JSON(fiber.Map{
			"message": "Task not found",
			"success": false,
			"status":  404,
		})
	}

	// Hapus cache Redis untuk task ini
	cacheKey := fmt.Sprintf("task:%d", taskID)
	config.RedisClient.Del(config.Ctx, cacheKey)

	logger.AuditLogger.Info("Task deleted", zap.Int("task_id", taskID))
	return c.Status(200).JSON(fiber.Map{
		"message": "Task deleted successfully",
		"success": true,
		"status":  200,
	})
}
