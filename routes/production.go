package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/manufacture_backend/config"
	"github.com/mmdatafocus/manufacture_backend/models"
	"github.com/mmdatafocus/manufacture_backend/utils"
	"github.com/sirupsen/logrus"
)

// setNextProduction is called from every POS when finalizing a sale. The
// body lands in the pending-sync list (to reach the ERP on the next
// reconciliation run) and, as a cache item, at the head of its origin's
// list for the kitchen screens.
func (a *API) setNextProduction(c *gin.Context) {
	var body models.ProductionOrderBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if body.CustomUID == "" {
		// Old POS builds predate client-side ids; mint one so the record
		// can still be joined against the ERP later.
		body.CustomUID = uuid.NewString()
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		a.Logger.WithFields(logrus.Fields{
			"correlationId": cid,
			"customUid":     body.CustomUID,
		}).Debug("minted custom uid for legacy submission")
	}

	a.Cache.EnqueuePendingSync(body)
	item := a.Cache.CreateNewProductionItem(body)
	a.Cache.SetNext(body.Origin, item)

	c.JSON(http.StatusOK, item)
}

// popProductionQueue pops the admission queue and serves the origin's
// cached items. The cache entry is retained; only the queue slot is spent.
func (a *API) popProductionQueue(c *gin.Context) {
	items, err := a.Cache.GetNext()
	if err != nil || items == nil {
		c.JSON(http.StatusOK, []string{})
		return
	}
	c.JSON(http.StatusOK, items)
}

func (a *API) getProductionQueue(c *gin.Context) {
	c.JSON(http.StatusOK, a.Cache.GetQueue())
}

func (a *API) getProductionCache(c *gin.Context) {
	c.JSON(http.StatusOK, a.Cache.GetCache())
}

// syncDb triggers a reconciliation run on demand. The response mirrors the
// run's tri-state result: "true" when the cache changed, otherwise the last
// remote create result, otherwise "null".
func (a *API) syncDb(c *gin.Context) {
	res := a.Cache.SyncDB(c.Request.Context())
	switch {
	case res.Changed:
		c.String(http.StatusOK, "true")
	case res.Created > 0:
		c.String(http.StatusOK, res.LastCreate)
	default:
		c.String(http.StatusOK, "null")
	}
}

// confirmProduction flips a cached item to "progress". The ERP learns about
// the transition through the next reconciliation, not from this call.
func (a *API) confirmProduction(c *gin.Context) {
	var id IdPayload
	if err := c.ShouldBindJSON(&id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	item, err := a.Cache.GetProductionItemFromCache(id.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, "Production item not found in cache")
		return
	}
	item.State = models.StateProgress
	a.Cache.UpdateCache([]models.ProductionItem{item})

	c.JSON(http.StatusOK, item)
}

// setDoneProduction asks the ERP to finish the given item. Unlike the
// reconciliation path, a remote failure here surfaces to the caller.
func (a *API) setDoneProduction(c *gin.Context) {
	var id IdPayload
	if err := c.ShouldBindJSON(&id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := a.ERP.MarkAsDone(c.Request.Context(), id.ID); err != nil {
		config.LogError(a.Logger, "routes/production.go", "setDoneProduction", "mark as done", id.ID, err)
		c.JSON(http.StatusInternalServerError, UidPayload{Uid: "Exception occurred: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, id.ID)
}

func (a *API) getProducts(c *gin.Context) {
	products, err := a.ERP.QueryProducts(c.Request.Context())
	if err != nil {
		config.LogError(a.Logger, "routes/production.go", "getProducts", "query products", nil, err)
		c.JSON(http.StatusInternalServerError, UidPayload{Uid: "Exception occurred: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, products)
}

func (a *API) acknowledge(c *gin.Context) {
	c.JSON(http.StatusOK, "OKEI")
}
