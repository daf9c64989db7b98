package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func register(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body credentials
		if err := bindJSON(c, &body); err != nil {
			abortWithError(c, err)
			return
		}
		user, err := a.Register(c.Request.Context(), body.Username, body.Password)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

func issueToken(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body credentials
		if err := bindJSON(c, &body); err != nil {
			abortWithError(c, err)
			return
		}
		token, err := a.Login(c.Request.Context(), body.Username, body.Password)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, token)
	}
}
