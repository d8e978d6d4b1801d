package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/apperr"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/blobstore"
	"github.com/iamfaisalpk/WhatsApp-Backend/internal/service"
)

type UserHandler interface {
	Search(c *gin.Context)
	Get(c *gin.Context)
	Me(c *gin.Context)
	UpdateMe(c *gin.Context)
	Block(c *gin.Context)
	Unblock(c *gin.Context)
	Blocked(c *gin.Context)
}

type userHandler struct {
	users  service.UserService
	blobs  blobstore.Store
	logger *zap.Logger
}

func NewUserHandler(users service.UserService, blobs blobstore.Store, logger *zap.Logger) UserHandler {
	return &userHandler{users: users, blobs: blobs, logger: logger}
}

func (h *userHandler) Search(c *gin.Context) {
	query := c.Query("q")
	results, err := h.users.Search(c.Request.Context(), CurrentUser(c).ID.Hex(), query)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": results})
}

func (h *userHandler) Get(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), CurrentUser(c).ID.Hex(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Me returns the authenticated user's own profile. The middleware already
// loaded the fresh document.
func (h *userHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": CurrentUser(c)})
}

// UpdateMe changes the caller's name, about text, or avatar. Multipart so
// the avatar can travel with the fields.
func (h *userHandler) UpdateMe(c *gin.Context) {
	var update service.ProfileUpdate
	if v, ok := c.GetPostForm("name"); ok {
		update.Name = &v
	}
	if v, ok := c.GetPostForm("about"); ok {
		update.About = &v
	}

	if fileHeader, err := c.FormFile("avatar"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			fail(c, apperr.InvalidArgument("avatar file is unreadable").WithCause(err))
			return
		}
		defer file.Close()

		url, _, err := h.blobs.Store(c.Request.Context(), file, fileHeader.Header.Get("Content-Type"))
		if err != nil {
			h.logger.Error("avatar upload failed", zap.Error(err))
			fail(c, apperr.Internal("upload failed"))
			return
		}
		update.Avatar = &url
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), CurrentUser(c).ID.Hex(), update)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *userHandler) Block(c *gin.Context) {
	if err := h.users.Block(c.Request.Context(), CurrentUser(c).ID.Hex(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocked": true})
}

func (h *userHandler) Unblock(c *gin.Context) {
	if err := h.users.Unblock(c.Request.Context(), CurrentUser(c).ID.Hex(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"blocked": false})
}

func (h *userHandler) Blocked(c *gin.Context) {
	lists, err := h.users.BlockedLists(c.Request.Context(), CurrentUser(c).ID.Hex())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, lists)
}
