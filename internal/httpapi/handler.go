package httpapi

import (
	"net/http"

	"engagement-controlplane/pkg/db/pagination"
	"engagement-controlplane/pkg/health"
	"engagement-controlplane/services/catalog"
	"engagement-controlplane/services/engine"
	"engagement-controlplane/services/member"
	"engagement-controlplane/services/notification"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

// Handler exposes the reward engine over JSON.
type Handler struct {
	engine        *engine.Service
	members       *member.Service
	notifications *notification.Handler
	catalog       *catalog.Provider
	health        health.HealthService
}

type HandlerParams struct {
	fx.In

	Engine        *engine.Service
	Members       *member.Service
	Notifications *notification.Handler
	Catalog       *catalog.Provider
	Health        health.HealthService
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		engine:        p.Engine,
		members:       p.Members,
		notifications: p.Notifications,
		catalog:       p.Catalog,
		health:        p.Health,
	}
}

func (h *Handler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health.Liveness)
	r.GET("/readyz", h.health.Readiness)

	v1 := r.Group("/v1")

	members := v1.Group("/members")
	members.POST("", h.createMember)
	members.GET("", h.listMembers)
	members.GET("/:member_id", h.getMember)

	m := members.Group("/:member_id")
	m.POST("/actions/:action_id", h.awardAction)
	m.GET("/rewards", h.getProfile)
	m.GET("/points/history", h.pointHistory)
	m.GET("/access", h.getTier)
	m.GET("/content", h.availableContent)
	m.GET("/content/:content_id/access", h.checkContentAccess)
	m.GET("/challenges", h.listChallenges)
	m.GET("/challenges/:challenge_id", h.challengeProgress)
	m.POST("/challenges/:challenge_id/complete", h.completeChallenge)
	m.GET("/notifications", h.listNotifications)
	m.POST("/notifications/:notification_id/read", h.markNotificationRead)

	cat := v1.Group("/catalog")
	cat.GET("/actions", h.catalogActions)
	cat.GET("/achievements", h.catalogAchievements)
	cat.GET("/tiers", h.catalogTiers)
	cat.GET("/challenges", h.catalogChallenges)
	cat.GET("/content", h.catalogContent)
}

func (h *Handler) createMember(c *gin.Context) {
	var req member.CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "bad_request", "message": err.Error()}})
		return
	}

	m, err := h.members.Create(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) listMembers(c *gin.Context) {
	var req member.ListMembersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "bad_request", "message": err.Error()}})
		return
	}

	members, err := h.members.List(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

func (h *Handler) getMember(c *gin.Context) {
	m, err := h.members.Get(c.Request.Context(), c.Param("member_id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, m)
}

type awardRequest struct {
	Description    string `json:"description"`
	OverridePoints *int64 `json:"override_points"`
}

func (h *Handler) awardAction(c *gin.Context) {
	var req awardRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "bad_request", "message": err.Error()}})
			return
		}
	}

	result, err := h.engine.AwardAction(c.Request.Context(), c.Param("member_id"), c.Param("action_id"), engine.AwardOptions{
		Description:    req.Description,
		OverridePoints: req.OverridePoints,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) getProfile(c *gin.Context) {
	view, err := h.engine.GetProfile(c.Request.Context(), c.Param("member_id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) pointHistory(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "bad_request", "message": err.Error()}})
		return
	}

	entries, info, err := h.engine.History(c.Request.Context(), c.Param("member_id"), page)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "page_info": info})
}

func (h *Handler) getTier(c *gin.Context) {
	tier, err := h.engine.GetTier(c.Request.Context(), c.Param("member_id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, tier)
}

func (h *Handler) availableContent(c *gin.Context) {
	items, err := h.engine.AvailableContent(c.Request.Context(), c.Param("member_id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": items})
}

func (h *Handler) checkContentAccess(c *gin.Context) {
	access, err := h.engine.CheckContentAccess(c.Request.Context(), c.Param("member_id"), c.Param("content_id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, access)
}

func (h *Handler) listChallenges(c *gin.Context) {
	views, err := h.engine.ListChallenges(c.Request.Context(), c.Param("member_id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"challenges": views})
}

func (h *Handler) challengeProgress(c *gin.Context) {
	view, err := h.engine.ChallengeProgress(c.Request.Context(), c.Param("member_id"), c.Param("challenge_id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) completeChallenge(c *gin.Context) {
	result, err := h.engine.CompleteChallenge(c.Request.Context(), c.Param("member_id"), c.Param("challenge_id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) listNotifications(c *gin.Context) {
	var req notification.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "bad_request", "message": err.Error()}})
		return
	}

	notifications, err := h.notifications.List(c.Request.Context(), c.Param("member_id"), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

func (h *Handler) markNotificationRead(c *gin.Context) {
	err := h.notifications.MarkRead(c.Request.Context(), c.Param("member_id"), c.Param("notification_id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) catalogActions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"actions": h.catalog.Snapshot().Actions})
}

func (h *Handler) catalogAchievements(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"achievements": h.catalog.Snapshot().Achievements})
}

func (h *Handler) catalogTiers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tiers": h.catalog.Snapshot().Tiers})
}

func (h *Handler) catalogChallenges(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"challenges": h.catalog.Snapshot().Challenges})
}

func (h *Handler) catalogContent(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"content": h.catalog.Snapshot().Content})
}
