package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sykell/metabear/internal/db"
	"github.com/sykell/metabear/internal/logger"
	"github.com/sykell/metabear/internal/service"
)

// PaginatedResponse represents a paginated response
type PaginatedResponse struct {
	Data  interface{} `json:"data"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
	Total int64       `json:"total"`
	Pages int         `json:"pages"`
}

// AuditRunDetail is an audit run with its stored result
type AuditRunDetail struct {
	db.AuditRun
	Result json.RawMessage `json:"result"`
}

// ListAuditsHandler handles audit history listing with pagination and search
func ListAuditsHandler(dbConn *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))

		params := service.ListParams{
			Page:   page,
			Size:   size,
			Sort:   c.DefaultQuery("sort", service.DefaultSort),
			Search: c.Query("q"),
			Status: c.Query("status"),
		}
		params.Normalize()

		runs, total, err := service.ListAudits(dbConn, user.UserID, params)
		if err != nil {
			logger.Log.Error("Failed to list audits", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.JSON(http.StatusOK, PaginatedResponse{
			Data:  runs,
			Page:  params.Page,
			Size:  params.Size,
			Total: total,
			Pages: int((total + int64(params.Size) - 1) / int64(params.Size)),
		})
	}
}

// GetAuditHandler handles retrieving a single audit run
func GetAuditHandler(dbConn *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid audit ID"})
			return
		}

		run, err := service.GetAuditByIDAndUser(dbConn, uint(id), user.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Audit not found"})
				return
			}
			logger.Log.Error("Failed to fetch audit", zap.Uint64("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		detail := AuditRunDetail{AuditRun: *run}
		if run.Result != "" && json.Valid([]byte(run.Result)) {
			detail.Result = json.RawMessage(run.Result)
		} else {
			detail.Result = json.RawMessage("null")
		}

		c.JSON(http.StatusOK, detail)
	}
}
