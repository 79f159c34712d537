package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/manufacture_backend/erp"
	"github.com/mmdatafocus/manufacture_backend/middlewares"
	"github.com/mmdatafocus/manufacture_backend/queue"
	"github.com/sirupsen/logrus"
)

// API bundles the handler dependencies so tests can stand up the whole
// surface with stubs.
type API struct {
	Orders *queue.OrderQueue
	Cache  *queue.ProductionCache
	ERP    erp.Client
	Logger *logrus.Logger
}

func NewAPI(orders *queue.OrderQueue, cache *queue.ProductionCache, client erp.Client, logger *logrus.Logger) *API {
	return &API{Orders: orders, Cache: cache, ERP: client, Logger: logger}
}

// Mount attaches the request surface. The confirm/mark-done pair is
// deliberately outside the auth group: kitchen hardware posts those without
// a session, matching the deployed front-ends.
func (a *API) Mount(r *gin.Engine) {
	r.GET("/version", a.version)
	r.POST("/login", a.login)
	r.POST("/confirmProduction", a.confirmProduction)
	r.POST("/setDoneProduction", a.setDoneProduction)

	authorized := r.Group("/", middlewares.AuthMiddleware())
	authorized.POST("/logout", a.logout)
	authorized.GET("/order", a.getOrder)
	authorized.POST("/order", a.postOrder)
	authorized.POST("/setNextProduction", a.setNextProduction)
	authorized.GET("/popProductionQueue", a.popProductionQueue)
	authorized.GET("/getProductionQueue", a.getProductionQueue)
	authorized.GET("/getProductionCache", a.getProductionCache)
	authorized.GET("/syncDb", a.syncDb)
	authorized.GET("/getProducts", a.getProducts)

	// Scrap/unlink flows are acknowledged but not implemented yet; the POS
	// expects a 200 to close its dialog.
	authorized.POST("/MarkSingleScrap", a.acknowledge)
	authorized.POST("/UnlinkAll", a.acknowledge)
	authorized.POST("/UnlinkSingle", a.acknowledge)
	authorized.POST("/MarkCurrentOrderScrap", a.acknowledge)
}

// TextPayload is the generic message envelope the POS front-ends expect.
type TextPayload struct {
	Msg string `json:"msg"`
}

// IdPayload carries a custom_uid selector.
type IdPayload struct {
	ID string `json:"id" binding:"required"`
}

// UidPayload is the error envelope of the production endpoints.
type UidPayload struct {
	Uid         string  `json:"uid"`
	CStatusCode *string `json:"cstatuscode,omitempty"`
}
