package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sykell/metabear/internal/audit"
	"github.com/sykell/metabear/internal/db"
	"github.com/sykell/metabear/internal/tabs"
)

// allowedSorts are the accepted audit history orderings.
var allowedSorts = map[string]bool{
	"created_at desc": true,
	"created_at asc":  true,
	"score desc":      true,
	"score asc":       true,
	"status asc":      true,
	"status desc":     true,
}

// DefaultSort orders history newest first.
const DefaultSort = "created_at desc"

// ListParams filters and pages the audit history.
type ListParams struct {
	Page   int
	Size   int
	Sort   string
	Search string
	Status string
}

// Normalize clamps paging values and falls back to the default sort.
func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size < 1 || p.Size > 100 {
		p.Size = 10
	}
	if !allowedSorts[p.Sort] {
		p.Sort = DefaultSort
	}
	p.Search = strings.TrimSpace(p.Search)
	p.Status = strings.TrimSpace(p.Status)
}

// AuditRecorder stores every fresh audit of a tab as an AuditRun.
type AuditRecorder struct {
	db *gorm.DB
}

// NewAuditRecorder creates a recorder on dbConn
func NewAuditRecorder(dbConn *gorm.DB) *AuditRecorder {
	return &AuditRecorder{db: dbConn}
}

// RecordAudit persists result for the tab's owner
func (r *AuditRecorder) RecordAudit(ctx context.Context, session tabs.Session, result *audit.Result) error {
	run, err := NewAuditRun(session, result)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(run).Error
}

// NewAuditRun summarises result into a history row
func NewAuditRun(session tabs.Session, result *audit.Result) (*db.AuditRun, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audit result: %w", err)
	}

	high, medium := audit.Counts(result.Issues)
	run := &db.AuditRun{
		UserID:      session.UserID,
		TabID:       session.ID,
		Address:     session.URL,
		Score:       result.Score,
		HighCount:   high,
		MediumCount: medium,
		IssueCount:  len(result.Issues),
		Status:      db.StatusDone,
		Result:      string(payload),
	}
	if result.Metadata.Title != nil {
		run.Title = *result.Metadata.Title
	}
	if result.Partial() {
		run.Status = db.StatusPartial
		run.Error = result.Error
	}
	return run, nil
}

// ListAudits returns one page of the user's audit history and the total count
func ListAudits(dbConn *gorm.DB, userID uint, params ListParams) ([]db.AuditRun, int64, error) {
	params.Normalize()

	query := dbConn.Model(&db.AuditRun{}).Where("user_id = ?", userID)

	if params.Search != "" {
		query = query.Where("address LIKE ? OR title LIKE ?", "%"+params.Search+"%", "%"+params.Search+"%")
	}

	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audits: %w", err)
	}

	runs := make([]db.AuditRun, 0)
	offset := (params.Page - 1) * params.Size
	if err := query.Order(params.Sort).Limit(params.Size).Offset(offset).Find(&runs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audits: %w", err)
	}

	return runs, total, nil
}

// GetAuditByIDAndUser retrieves an audit run by ID for a specific user
func GetAuditByIDAndUser(dbConn *gorm.DB, id uint, userID uint) (*db.AuditRun, error) {
	var run db.AuditRun
	err := dbConn.Where("id = ? AND user_id = ?", id, userID).First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}
