package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/manufacture_backend/config"
	"github.com/mmdatafocus/manufacture_backend/utils"
	"github.com/sirupsen/logrus"
)

type loginRequest struct {
	User     string `json:"user" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type tokenPayload struct {
	Token string `json:"token"`
}

// login proxies the ERP authenticate call and issues a session JWT on
// success. The ERP is the only credential store; we never persist users.
func (a *API) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	uid, err := a.ERP.Login(c.Request.Context(), req.User, req.Password)
	if err != nil || uid == 0 {
		if err != nil {
			config.LogError(a.Logger, "routes/auth.go", "login", "erp authenticate", req.User, err)
		}
		c.JSON(http.StatusInternalServerError, TextPayload{Msg: "Login error. UID not found."})
		return
	}

	token, err := utils.JwtGenerate(req.User)
	if err != nil {
		config.LogError(a.Logger, "routes/auth.go", "login", "sign token", req.User, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}

	c.JSON(http.StatusOK, tokenPayload{Token: token})
}

func (a *API) logout(c *gin.Context) {
	if username, ok := utils.GetUsernameFromContext(c.Request.Context()); ok {
		a.Logger.WithFields(logrus.Fields{"user": username}).Info("session closed")
	}
	c.JSON(http.StatusOK, a.ERP.Logout())
}

func (a *API) version(c *gin.Context) {
	c.String(http.StatusOK, "Hello")
}
