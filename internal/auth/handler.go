package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"bitelogs/internal/access"
	"bitelogs/internal/apperr"
	"bitelogs/internal/media"
	"bitelogs/pkg/models"
	"bitelogs/pkg/utils"
)

// Limits are optional per-route guards, typically rate limiters.
type Limits struct {
	Login    gin.HandlerFunc
	Register gin.HandlerFunc
}

type Handler struct {
	Repo        *Repo
	Tokens      TokenService
	Media       media.Store
	MaxFileSize int64
	Log         logrus.FieldLogger
}

func NewHandler(repo *Repo, tokens TokenService, store media.Store, maxFileSize int64, log logrus.FieldLogger) *Handler {
	return &Handler{Repo: repo, Tokens: tokens, Media: store, MaxFileSize: maxFileSize, Log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, lim Limits) {
	required := AuthMiddleware(h.Tokens, h.Repo)

	rg.POST("/register", guarded(lim.Register, h.register)...)
	rg.POST("/login", guarded(lim.Login, h.login)...)
	rg.GET("/me", required, h.me)
	rg.POST("/me/avatar", required, h.uploadAvatar)
	rg.POST("/change-password", required, h.changePassword)
	rg.POST("/logout", required, h.logout)
}

func guarded(guard, next gin.HandlerFunc) []gin.HandlerFunc {
	if guard == nil {
		return []gin.HandlerFunc{next}
	}
	return []gin.HandlerFunc{guard, next}
}

type registerReq struct {
	Email       string `json:"email" binding:"required,email,max=255"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"displayName" binding:"required,max=100"`
}

type authResp struct {
	User      models.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expiresAt"`
}

func (h *Handler) issue(c *gin.Context, status int, u *User) {
	token, exp, err := h.Tokens.Sign(u)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(status, authResp{
		User:      u.Public(),
		Token:     token,
		ExpiresAt: exp.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.FromBind(err))
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	name := utils.Sanitize(req.DisplayName)

	var fe apperr.FieldErrors
	fe.Check(name != "", "displayName", "Display name is required")
	CheckPassword(&fe, "password", req.Password)
	if err := fe.Err(); err != nil {
		apperr.Respond(c, err)
		return
	}

	if u, err := h.Repo.GetByEmail(c.Request.Context(), email); err != nil {
		apperr.Respond(c, err)
		return
	} else if u != nil {
		apperr.Respond(c, apperr.Conflict("Email already registered"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		apperr.Respond(c, apperr.Internal("Failed to create account", err))
		return
	}

	u := &User{
		Email:        email,
		DisplayName:  name,
		PasswordHash: string(hash),
	}
	// the unique index still catches a concurrent registration
	if err := h.Repo.CreateUser(c.Request.Context(), u); err != nil {
		apperr.Respond(c, err)
		return
	}

	h.issue(c, http.StatusCreated, u)
}

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.FromBind(err))
		return
	}

	u, err := h.Repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	// don't reveal which part failed
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		apperr.Respond(c, apperr.Unauthenticated("Invalid email or password"))
		return
	}

	h.issue(c, http.StatusOK, u)
}

func (h *Handler) currentUser(c *gin.Context) (*User, bool) {
	claims := MustGetClaims(c)
	if claims == nil {
		apperr.Respond(c, apperr.Unauthenticated(""))
		return nil, false
	}
	u, err := h.Repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		apperr.Respond(c, err)
		return nil, false
	}
	if u == nil {
		apperr.Respond(c, apperr.NotFound("User"))
		return nil, false
	}
	return u, true
}

func (h *Handler) me(c *gin.Context) {
	u, ok := h.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u.Public()})
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.FromBind(err))
		return
	}

	var fe apperr.FieldErrors
	CheckPassword(&fe, "newPassword", req.NewPassword)
	if err := fe.Err(); err != nil {
		apperr.Respond(c, err)
		return
	}

	u, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		apperr.Respond(c, apperr.Unauthenticated("Current password is incorrect"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		apperr.Respond(c, apperr.Internal("Failed to update password", err))
		return
	}

	if err := h.Repo.UpdatePasswordAndBumpTokenVersion(c.Request.Context(), u.ID, string(hash)); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

func (h *Handler) logout(c *gin.Context) {
	claims := MustGetClaims(c)
	if claims == nil {
		apperr.Respond(c, apperr.Unauthenticated(""))
		return
	}

	if err := h.Repo.BumpTokenVersion(c.Request.Context(), claims.UserID); err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *Handler) uploadAvatar(c *gin.Context) {
	actor := ActorFromContext(c)
	var self int64
	if actor != nil {
		self = actor.UserID
	}
	if err := access.Authorize(actor, access.UpdateProfile, access.Owned(self)); err != nil {
		apperr.Respond(c, err)
		return
	}

	data, err := media.FormImage(c.Request, h.MaxFileSize)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	ref, err := h.Media.Save(c.Request.Context(), media.KindAvatar, data)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	old, err := h.Repo.UpdateAvatar(c.Request.Context(), actor.UserID, ref)
	if err != nil {
		_ = h.Media.Remove(c.Request.Context(), ref)
		apperr.Respond(c, err)
		return
	}
	if err := h.Media.Remove(c.Request.Context(), old); err != nil && h.Log != nil {
		h.Log.WithError(err).WithField("user_id", actor.UserID).Warn("remove old avatar")
	}

	u, ok := h.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u.Public()})
}
