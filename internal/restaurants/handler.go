package restaurants

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

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.GET("", h.list)    // GET /restaurants
	rg.GET("/:id", h.get) // GET /restaurants/:id
	rg.POST("", requireAuth, h.create)
	rg.POST("/:id/image", requireAuth, h.uploadImage)
}

func (h *Handler) list(c *gin.Context) {
	q := ListQuery{
		City:    c.Query("city"),
		Cuisine: c.Query("cuisine"),
		Search:  c.Query("search"),
		Page:    utils.ParseInt(c.Query("page"), 1),
		Limit:   utils.ParseInt(c.Query("limit"), models.DefaultPageSize),
	}

	page, err := h.Repo.Page(c.Request.Context(), q)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) get(c *gin.Context) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		apperr.Respond(c, apperr.BadRequest("Invalid restaurant id"))
		return
	}

	m, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if m == nil {
		apperr.Respond(c, apperr.NotFound("Restaurant"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurant": m})
}

type createReq struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	ZipCode    string `json:"zipCode"`
	Phone      string `json:"phone"`
	Website    string `json:"website"`
	Cuisine    string `json:"cuisine"`
	PriceRange int    `json:"priceRange"`
}

func (req createReq) toModel() (*models.Restaurant, error) {
	m := &models.Restaurant{
		Name:       utils.Sanitize(req.Name),
		Address:    utils.Sanitize(req.Address),
		City:       utils.Sanitize(req.City),
		State:      utils.Sanitize(req.State),
		ZipCode:    utils.Sanitize(req.ZipCode),
		Phone:      utils.Sanitize(req.Phone),
		Website:    utils.Sanitize(req.Website),
		Cuisine:    utils.Sanitize(req.Cuisine),
		PriceRange: req.PriceRange,
	}

	var fe apperr.FieldErrors
	fe.Check(m.Name != "", "name", "Name is required")
	fe.Check(m.Address != "", "address", "Address is required")
	fe.Check(m.City != "", "city", "City is required")
	fe.Check(m.State != "", "state", "State is required")
	fe.Check(m.ZipCode != "", "zipCode", "Zip code is required")
	fe.Check(m.Cuisine != "", "cuisine", "Cuisine is required")
	fe.Check(m.PriceRange >= 1 && m.PriceRange <= 4, "priceRange", "Price range must be 1-4")
	return m, fe.Err()
}

func (h *Handler) create(c *gin.Context) {
	actor := auth.ActorFromContext(c)
	if err := access.Authorize(actor, access.CreateRestaurant, access.Resource{}); err != nil {
		apperr.Respond(c, err)
		return
	}

	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.FromBind(err))
		return
	}
	m, err := req.toModel()
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	m.CreatedByID = actor.UserID

	if err := h.Repo.Create(c.Request.Context(), m); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"restaurant": m})
}

func (h *Handler) uploadImage(c *gin.Context) {
	actor := auth.ActorFromContext(c)
	if err := access.Authorize(actor, access.AttachRestaurantImage, access.Resource{}); err != nil {
		apperr.Respond(c, err)
		return
	}

	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		apperr.Respond(c, apperr.BadRequest("Invalid restaurant id"))
		return
	}
	cur, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	if cur == nil {
		apperr.Respond(c, apperr.NotFound("Restaurant"))
		return
	}

	data, err := media.FormImage(c.Request, h.MaxFileSize)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	ref, err := h.Media.Save(c.Request.Context(), media.KindRestaurant, data)
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
		h.Log.WithError(err).WithField("restaurant_id", id).Warn("remove old restaurant image")
	}

	updated, err := h.Repo.GetByID(c.Request.Context(), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurant": updated})
}
