package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/manufacture_backend/models"
)

// getOrder pops the next POS order. Consumption is single-shot; an order
// handed out here never comes back.
func (a *API) getOrder(c *gin.Context) {
	order, err := a.Orders.GetNext()
	if err != nil {
		c.JSON(http.StatusInternalServerError, TextPayload{Msg: "Orders empty"})
		return
	}
	c.JSON(http.StatusOK, order)
}

func (a *API) postOrder(c *gin.Context) {
	var order models.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if !a.Orders.AddLast(order) {
		c.JSON(http.StatusInternalServerError, TextPayload{Msg: "PoS order not stored"})
		return
	}
	c.JSON(http.StatusOK, TextPayload{Msg: "PoS order stored"})
}
