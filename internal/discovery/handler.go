package discovery

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bitelogs/internal/apperr"
	"bitelogs/pkg/utils"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/top-rated", h.topRated)
	rg.GET("/recent", h.recent)
	rg.GET("/photos", h.photos)
}

func (h *Handler) topRated(c *gin.Context) {
	items, err := h.Repo.TopRated(c.Request.Context(), utils.ParseInt(c.Query("limit"), DefaultTopRated))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) recent(c *gin.Context) {
	reviews, err := h.Repo.Recent(c.Request.Context(), utils.ParseInt(c.Query("limit"), DefaultRecent))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

func (h *Handler) photos(c *gin.Context) {
	photos, err := h.Repo.Photos(c.Request.Context(), utils.ParseInt(c.Query("limit"), DefaultPhotos))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photos": photos})
}
