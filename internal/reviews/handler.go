package reviews

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bitelogs/internal/apperr"
	"bitelogs/internal/auth"
	"bitelogs/internal/media"
	"bitelogs/pkg/models"
	"bitelogs/pkg/utils"
)

type Handler struct {
	Service     *Service
	MaxFileSize int64
}

func NewHandler(svc *Service, maxFileSize int64) *Handler {
	return &Handler{Service: svc, MaxFileSize: maxFileSize}
}

// RegisterRoutes mounts /reviews. submitLimit, when set, runs after
// authentication on review creation only.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth, submitLimit gin.HandlerFunc) {
	create := []gin.HandlerFunc{requireAuth}
	if submitLimit != nil {
		create = append(create, submitLimit)
	}
	rg.POST("", append(create, h.create)...)
	rg.GET("/:id", h.get)
	rg.POST("/:id/image", requireAuth, h.uploadImage)
	rg.DELETE("/:id", requireAuth, h.delete)
	rg.GET("/user/:userId", h.listByUser)
}

// RegisterMenuItemRoutes mounts the review listing under /menu-items.
func (h *Handler) RegisterMenuItemRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/reviews", h.listByMenuItem)
}

type createReq struct {
	MenuItemID int64  `json:"menuItemId"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.FromBind(err))
		return
	}

	review, err := h.Service.Submit(c.Request.Context(), auth.ActorFromContext(c), SubmitInput{
		MenuItemID: req.MenuItemID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	})
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"review": review})
}

func (h *Handler) get(c *gin.Context) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		apperr.Respond(c, apperr.BadRequest("Invalid review id"))
		return
	}

	review, err := h.Service.Get(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"review": review})
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		apperr.Respond(c, apperr.BadRequest("Invalid review id"))
		return
	}

	if err := h.Service.Delete(c.Request.Context(), auth.ActorFromContext(c), id); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) uploadImage(c *gin.Context) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		apperr.Respond(c, apperr.BadRequest("Invalid review id"))
		return
	}

	data, err := media.FormImage(c.Request, h.MaxFileSize)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	review, err := h.Service.AttachImage(c.Request.Context(), auth.ActorFromContext(c), id, data)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"review": review})
}

func (h *Handler) listByMenuItem(c *gin.Context) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		apperr.Respond(c, apperr.BadRequest("Invalid menu item id"))
		return
	}

	page, err := h.Service.ListForItem(c.Request.Context(), id,
		utils.ParseInt(c.Query("page"), 1),
		utils.ParseInt(c.Query("limit"), models.DefaultPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) listByUser(c *gin.Context) {
	id, ok := utils.ParseID(c.Param("userId"))
	if !ok {
		apperr.Respond(c, apperr.BadRequest("Invalid user id"))
		return
	}

	page, err := h.Service.ListForUser(c.Request.Context(), id,
		utils.ParseInt(c.Query("page"), 1),
		utils.ParseInt(c.Query("limit"), models.DefaultPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
