package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/nuobot/memory"
	"github.com/cppla/nuobot/store"
	"github.com/cppla/nuobot/utils"
)

// PointsController exposes the operator's view of the ledger: balances,
// manual adjustments and full account resets.
type PointsController struct {
	ledger   *store.Ledger
	checkins *store.Checkins
}

// NewPointsController creates a new controller instance.
func NewPointsController(ledger *store.Ledger, checkins *store.Checkins) *PointsController {
	return &PointsController{ledger: ledger, checkins: checkins}
}

func accountKey(ctx *gin.Context) (groupID, userID string, ok bool) {
	groupID = strings.TrimSpace(ctx.Query("group_id"))
	userID = strings.TrimSpace(ctx.Query("user_id"))
	if groupID == "" {
		groupID = memory.PrivateGroup
	}
	if userID == "" {
		utils.Error(ctx, http.StatusBadRequest, 40010, "user_id is required")
		return "", "", false
	}
	return groupID, userID, true
}

// GetBalance returns the balance and check-in history for an account.
func (p *PointsController) GetBalance(ctx *gin.Context) {
	groupID, userID, ok := accountKey(ctx)
	if !ok {
		return
	}

	balance, exists, err := p.ledger.GetBalance(ctx.Request.Context(), groupID, userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to read balance")
		return
	}

	data := gin.H{
		"group_id": groupID,
		"user_id":  userID,
		"exists":   exists,
		"points":   balance,
	}

	rec, err := p.checkins.Get(ctx.Request.Context(), groupID, userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to read checkin record")
		return
	}
	if rec != nil {
		data["total_days"] = rec.TotalDays
		data["streak_days"] = rec.StreakDays
		data["last_checkin_date"] = rec.LastCheckinDate.Format("2006-01-02")
	}

	utils.Success(ctx, data)
}

type adjustRequest struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id" binding:"required"`
	Delta   int    `json:"delta" binding:"required"`
}

// Adjust applies a relative points change, creating the account if needed.
func (p *PointsController) Adjust(ctx *gin.Context) {
	var req adjustRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40011, "user_id and a non-zero delta are required")
		return
	}
	groupID := strings.TrimSpace(req.GroupID)
	if groupID == "" {
		groupID = memory.PrivateGroup
	}

	affected, err := p.ledger.Adjust(ctx.Request.Context(), groupID, req.UserID, req.Delta)
	if err != nil || !affected {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to adjust balance")
		return
	}

	balance, _, err := p.ledger.GetBalance(ctx.Request.Context(), groupID, req.UserID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to read balance")
		return
	}
	utils.Success(ctx, gin.H{
		"group_id": groupID,
		"user_id":  req.UserID,
		"points":   balance,
	})
}

type setExactRequest struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id" binding:"required"`
	Points  *int   `json:"points" binding:"required"`
}

// SetExact overwrites an account's balance.
func (p *PointsController) SetExact(ctx *gin.Context) {
	var req setExactRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40012, "user_id and points are required")
		return
	}
	groupID := strings.TrimSpace(req.GroupID)
	if groupID == "" {
		groupID = memory.PrivateGroup
	}

	if err := p.ledger.SetExact(ctx.Request.Context(), groupID, req.UserID, *req.Points); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to set balance")
		return
	}
	utils.Success(ctx, gin.H{
		"group_id": groupID,
		"user_id":  req.UserID,
		"points":   *req.Points,
	})
}

// ResetAccount deletes an account's status, balance and check-in history.
func (p *PointsController) ResetAccount(ctx *gin.Context) {
	groupID, userID, ok := accountKey(ctx)
	if !ok {
		return
	}

	if err := p.ledger.ResetAccount(ctx.Request.Context(), groupID, userID); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to reset account")
		return
	}
	utils.Success(ctx, gin.H{
		"group_id": groupID,
		"user_id":  userID,
		"reset":    true,
	})
}
