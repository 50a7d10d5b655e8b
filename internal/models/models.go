package models

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// StatusDone adalah nilai terakhir dari workflow status (kolom "Done").
// Task dianggap completed jika dan hanya jika statusnya bernilai ini.
const StatusDone = 6

type User struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Group struct {
	ID        int           `json:"id"`
	Name      string        `json:"name"`
	OwnerID   int           `json:"owner"`
	Members   pq.Int64Array `json:"members"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type Task struct {
	ID          int            `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Link        string         `json:"link"`
	Tags        pq.StringArray `json:"tags"`
	Visibility  string         `json:"visibility"`
	Status      int            `json:"status"`
	Completed   bool           `json:"completed"`
	GroupID     int            `json:"group"`
	OwnerID     int            `json:"owner"`
	AssignedBy  sql.NullInt64  `json:"assigned_by"`
	AssignedTo  sql.NullInt64  `json:"assigned_to"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
