package queue

import (
	"sync"

	"github.com/mmdatafocus/manufacture_backend/models"
	"github.com/mmdatafocus/manufacture_backend/utils"
)

// OrderQueue is a plain FIFO of finalized POS orders. Consumption is
// single-shot: a popped order that is not persisted elsewhere is gone.
//
// There is deliberately no fallback structure behind this queue; the few
// cases that would need one all involve jumping the queue in real life.
type OrderQueue struct {
	mu     sync.Mutex
	orders []models.Order
}

func NewOrderQueue() *OrderQueue {
	return &OrderQueue{}
}

// AddLast appends the order to the tail of the queue.
func (q *OrderQueue) AddLast(order models.Order) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.orders = append(q.orders, order)
	return true
}

// GetNext pops the head order. Returns utils.ErrEmptyQueue when there is
// nothing to serve.
func (q *OrderQueue) GetNext() (models.Order, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.orders) == 0 {
		return models.Order{}, utils.ErrEmptyQueue
	}
	order := q.orders[0]
	q.orders = q.orders[1:]
	return order, nil
}

func (q *OrderQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.orders)
}
