package menuitems

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"bitelogs/internal/access"
	"bitelogs/internal/apperr"
	"bitelogs/internal/auth"
	"bitelogs/internal/media"
	"bitelogs/pkg/models"
	"bitelogs/pkg/utils"
)

type Handler struct {
	Repo        *Repo
	Media       media.Store
	MaxFileSize int64
	Log         logrus.FieldLogger
}

func NewHandler(repo *Repo, store media.Store, maxFileSize int64, log logrus.FieldLogger) *Handler {
	return &Handler{Repo: repo, Media: store, MaxFileSize: maxFileSize, Log: log}
}

// RegisterRoutes mounts /menu-items.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.GET("/:id", h.get)
	rg.GET("/restaurant/:restaurantId", h.listByRestaurant)
	rg.POST("", requireAuth, h.create)
	rg.POST("/:id/image", requireAuth, h.uploadImage)
}

// RegisterRestaurantRoutes mounts the menu listing under /restaurants.
func (h *Handler) RegisterRestaurantRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/menu-items", h.listByRestaurant)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		apperr.Respond(c, apperr.BadRequest("Invalid menu item id"))
		return
	}

	m, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if m == nil {
		apperr.Respond(c, apperr.NotFound("Menu item"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"menuItem": m})
}

// listByRestaurant serves both /restaurants/:id/menu-items and
// /menu-items/restaurant/:restaurantId.
func (h *Handler) listByRestaurant(c *gin.Context) {
	raw := c.Param("restaurantId")
	if raw == "" {
		raw = c.Param("id")
	}
	id, ok := utils.ParseID(raw)
	if !ok {
		apperr.Respond(c, apperr.BadRequest("Invalid restaurant id"))
		return
	}

	page, err := h.Repo.ListByRestaurant(c.Request.Context(), id, c.Query("category"),
		utils.ParseInt(c.Query("page"), 1),
		utils.ParseInt(c.Query("limit"), models.DefaultPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// createReq has no rating fields: the aggregate is never client-settable.
type createReq struct {
	RestaurantID int64    `json:"restaurantId"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Price        *float64 `json:"price"`
	Category     string   `json:"category"`
}

func (h *Handler) create(c *gin.Context) {
	actor := auth.ActorFromContext(c)
	if err := access.Authorize(actor, access.CreateMenuItem, access.Resource{}); err != nil {
		apperr.Respond(c, err)
		return
	}

	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.FromBind(err))
		return
	}

	m := &models.MenuItem{
		RestaurantID: req.RestaurantID,
		Name:         utils.Sanitize(req.Name),
		Description:  utils.Sanitize(req.Description),
		Category:     utils.Sanitize(req.Category),
		CreatedByID:  actor.UserID,
	}
	if req.Price != nil {
		m.Price = *req.Price
	}

	var fe apperr.FieldErrors
	fe.Check(m.RestaurantID > 0, "restaurantId", "Restaurant ID is required")
	fe.Check(m.Name != "", "name", "Name is required")
	fe.Check(req.Price != nil && *req.Price >= 0, "price", "Valid price is required")
	fe.Check(m.Category != "", "category", "Category is required")
	if err := fe.Err(); err != nil {
		apperr.Respond(c, err)
		return
	}

	if err := h.Repo.Create(c.Request.Context(), m); err != nil {
		apperr.Respond(c, err)
		return
	}

	created, err := h.Repo.GetByID(c.Request.Context(), m.ID)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"menuItem": created})
}

func (h *Handler) uploadImage(c *gin.Context) {
	actor := auth.ActorFromContext(c)
	if err := access.Authorize(actor, access.AttachMenuItemImage, access.Resource{}); err != nil {
		apperr.Respond(c, err)
		return
	}

	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		apperr.Respond(c, apperr.BadRequest("Invalid menu item id"))
		return
	}
	exists, err := h.Repo.Exists(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if !exists {
		apperr.Respond(c, apperr.NotFound("Menu item"))
		return
	}

	data, err := media.FormImage(c.Request, h.MaxFileSize)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	ref, err := h.Media.Save(c.Request.Context(), media.KindMenuItem, data)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	old, err := h.Repo.UpdateImage(c.Request.Context(), id, ref)
	if err != nil {
		_ = h.Media.Remove(c.Request.Context(), ref)
		apperr.Respond(c, err)
		return
	}
	if err := h.Media.Remove(c.Request.Context(), old); err != nil && h.Log != nil {
		h.Log.WithError(err).WithField("menu_item_id", id).Warn("remove old menu item image")
	}

	updated, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"menuItem": updated})
}
