package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/iamfaisalpk/WhatsApp-Backend/internal/apperr"
)

// fail maps a service error onto the wire. Internal causes stay out of
// the response body.
func fail(c *gin.Context, err error) {
	c.JSON(apperr.HTTPStatus(err), gin.H{
		"error": gin.H{
			"code":    apperr.CodeOf(err),
			"message": apperr.MessageOf(err),
		},
	})
}
