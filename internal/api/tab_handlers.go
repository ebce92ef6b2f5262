package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sykell/metabear/internal/export"
	"github.com/sykell/metabear/internal/logger"
	"github.com/sykell/metabear/internal/middleware"
	"github.com/sykell/metabear/internal/tabs"
)

// OpenTabRequest represents the tab creation request
type OpenTabRequest struct {
	URL string `json:"url" binding:"required"`
}

// BulkRequest represents a bulk operation request
type BulkRequest struct {
	Action string `json:"action" binding:"required,oneof=rerun close"`
	IDs    []int  `json:"ids" binding:"required,min=1,max=100"`
}

// OpenTabHandler registers a tab for the current user
func OpenTabHandler(m *tabs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		var req OpenTabRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid tab request",
				"details": err.Error(),
			})
			return
		}

		session := m.Open(user.UserID, strings.TrimSpace(req.URL))
		c.JSON(http.StatusCreated, session)
	}
}

// ListTabsHandler lists the current user's tabs
func ListTabsHandler(m *tabs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": m.List(user.UserID)})
	}
}

// GetTabHandler returns one tab
func GetTabHandler(m *tabs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := ownedTab(c, m)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, session)
	}
}

// CloseTabHandler closes a tab and drops its cached audit
func CloseTabHandler(m *tabs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := ownedTab(c, m)
		if !ok {
			return
		}

		if err := m.Close(session.ID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Tab not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// TabEventHandler applies a navigation or lifecycle event to a tab
func TabEventHandler(m *tabs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := ownedTab(c, m)
		if !ok {
			return
		}

		var event tabs.Event
		if err := c.ShouldBindJSON(&event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid tab event",
				"details": err.Error(),
			})
			return
		}

		if err := m.HandleEvent(session.ID, event); err != nil {
			writeTabError(c, err)
			return
		}

		if event.Type == tabs.EventRemoved {
			c.JSON(http.StatusOK, gin.H{"success": true})
			return
		}

		updated, _ := m.Get(session.ID)
		c.JSON(http.StatusOK, updated)
	}
}

// AuditTabHandler returns the tab's audit, from the cache when the tab has
// not navigated. fresh=true forces a new scan that replaces the cached one.
func AuditTabHandler(m *tabs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := ownedTab(c, m)
		if !ok {
			return
		}

		var resp tabs.Response
		if fresh, _ := strconv.ParseBool(c.Query("fresh")); fresh {
			resp = m.RunAudit(c.Request.Context(), session.ID)
		} else {
			resp = m.RunAuditForTab(c.Request.Context(), session.ID)
		}
		c.JSON(responseStatus(resp), resp)
	}
}

// MessageHandler dispatches a tagged message to a tab
func MessageHandler(m *tabs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := ownedTab(c, m)
		if !ok {
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read message"})
			return
		}

		msg, err := tabs.DecodeMessage(body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid message",
				"details": err.Error(),
			})
			return
		}

		reply, err := m.Dispatch(c.Request.Context(), session.ID, msg)
		if err != nil {
			writeTabError(c, err)
			return
		}

		if resp, ok := reply.(tabs.Response); ok {
			c.JSON(responseStatus(resp), resp)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": reply})
	}
}

// ExportHandler downloads the tab's audit as JSON with the selected sections
func ExportHandler(m *tabs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := ownedTab(c, m)
		if !ok {
			return
		}

		opts, err := export.ParseOptions(c.Query("fields"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if opts.Empty() {
			c.JSON(http.StatusBadRequest, gin.H{"error": export.ErrEmptySelection.Error()})
			return
		}

		resp := m.RunAuditForTab(c.Request.Context(), session.ID)
		if !resp.Success {
			c.JSON(responseStatus(resp), resp)
			return
		}

		payload, err := export.Build(resp.Data, opts, time.Now())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.Header("Content-Disposition", `attachment; filename="`+export.Filename(resp.Data.Metadata.PageURL)+`"`)
		c.IndentedJSON(http.StatusOK, payload)
	}
}

// BulkTabsHandler reruns or closes several tabs at once
func BulkTabsHandler(m *tabs.Manager, queue *tabs.Queue) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			return
		}

		var req BulkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid bulk request",
				"details": err.Error(),
			})
			return
		}

		affected := 0
		for _, id := range req.IDs {
			session, ok := m.Get(id)
			if !ok || session.UserID != user.UserID {
				continue
			}

			switch req.Action {
			case "rerun":
				if err := queue.Enqueue(id); err != nil {
					logger.Log.Warn("Failed to enqueue rerun", zap.Int("tab_id", id), zap.Error(err))
					continue
				}
			case "close":
				if err := m.Close(id); err != nil {
					continue
				}
			}
			affected++
		}

		logger.Log.Info("Bulk operation completed", zap.String("action", req.Action), zap.Int("affected", affected))
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"action":   req.Action,
			"affected": affected,
		})
	}
}

// currentUser returns the authenticated user or responds with 401.
func currentUser(c *gin.Context) (*middleware.UserContext, bool) {
	user, ok := middleware.GetUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	return user, true
}

// ownedTab resolves :id to a tab of the current user or responds with an
// error. Tabs of other users are reported as not found.
func ownedTab(c *gin.Context, m *tabs.Manager) (tabs.Session, bool) {
	user, ok := currentUser(c)
	if !ok {
		return tabs.Session{}, false
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tab ID"})
		return tabs.Session{}, false
	}

	session, ok := m.Get(id)
	if !ok || session.UserID != user.UserID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tab not found"})
		return tabs.Session{}, false
	}
	return session, true
}

// responseStatus maps an audit response to an HTTP status. Restricted pages
// are a normal outcome.
func responseStatus(resp tabs.Response) int {
	switch {
	case resp.Success, resp.Restricted:
		return http.StatusOK
	case resp.Error == tabs.ErrTabNotFound.Error():
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func writeTabError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, tabs.ErrTabNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Tab not found"})
	case errors.Is(err, tabs.ErrTabMismatch), errors.Is(err, tabs.ErrInvalidHeadingIndex), errors.Is(err, tabs.ErrUnknownMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Log.Error("Tab operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
