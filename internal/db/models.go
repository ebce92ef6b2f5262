package db

import "time"

type RunStatus string

const (
	StatusDone    RunStatus = "done"
	StatusPartial RunStatus = "partial"
)

// AuditRun is one fresh audit of a tab, kept as history
type AuditRun struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"index" json:"user_id"`
	TabID       int       `gorm:"index" json:"tab_id"`
	Address     string    `gorm:"not null;size:768" json:"address"`
	Title       string    `json:"title"`
	Score       int       `json:"score"`
	HighCount   int       `json:"high_count"`
	MediumCount int       `json:"medium_count"`
	IssueCount  int       `json:"issue_count"`
	Status      RunStatus `gorm:"default:'done'" json:"status"`
	Error       string    `json:"error"`
	Result      string    `gorm:"type:longtext" json:"-"` // JSON: audit.Result
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	User        User      `gorm:"foreignKey:UserID" json:"-"`
}

// User represents an authenticated user
type User struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null;size:100" json:"username"`
	Password  string    `gorm:"not null;size:255" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
