package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/mmdatafocus/manufacture_backend/config"
	"github.com/mmdatafocus/manufacture_backend/models"
	"github.com/mmdatafocus/manufacture_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(client *stubClient, notifier Notifier) *ProductionCache {
	return NewProductionCache(client, notifier, config.GetLogger())
}

func testBody(origin string, customUid string) models.ProductionOrderBody {
	return models.ProductionOrderBody{
		DisplayName:      "Latte",
		Origin:           origin,
		OriginUniqueName: origin + "-pos1",
		CustomUID:        customUid,
		ProductID:        11,
		ProductQty:       1,
		State:            models.StateDraft,
		ProductTmplID:    5,
		ProductUomID:     1,
		BomID:            3,
		ExtraComponents: []models.Component{
			{ID: 21, DisplayName: "Oat milk", Qty: decimal.NewFromFloat(0.2)},
		},
	}
}

func remoteItem(origin string, customUid string, id int) models.ProductionItem {
	return models.ProductionItem{
		ID:               id,
		DisplayName:      "Latte",
		Origin:           origin,
		OriginUniqueName: origin + "-pos1",
		Priority:         "1",
		State:            models.StateDraft,
		Product:          models.ProductRef{ID: 11, DisplayName: "Latte"},
		Component: []models.Component{
			{ID: 21, DisplayName: "Oat milk", Qty: decimal.NewFromFloat(0.2)},
		},
		DBSync:    true,
		CustomUID: customUid,
		Timestamp: "2024-03-01 10:00:00",
	}
}

func TestSetNext_InsertsAtHeadInSubmissionOrder(t *testing.T) {
	c := newTestCache(&stubClient{}, nil)

	for i := 0; i < 4; i++ {
		item := c.CreateNewProductionItem(testBody("SO001", fmt.Sprintf("uid-%d", i)))
		c.SetNext("SO001", item)
	}

	items := c.GetCache()["SO001"]
	require.Len(t, items, 4)
	// Most recent submission sits at the head.
	for i := 0; i < 4; i++ {
		assert.Equal(t, fmt.Sprintf("uid-%d", 3-i), items[i].CustomUID)
	}
}

func TestSetNext_SetsPosSyncAtAdmission(t *testing.T) {
	c := newTestCache(&stubClient{}, nil)

	item := c.CreateNewProductionItem(testBody("SO001", "A1"))
	require.False(t, item.PosSync)
	c.SetNext("SO001", item)

	cached := c.GetCache()["SO001"]
	require.Len(t, cached, 1)
	assert.True(t, cached[0].PosSync)
	assert.False(t, cached[0].DBSync)
	assert.False(t, cached[0].KitchenSync)
}

func TestSetNext_DuplicateCustomUIDIsNoOp(t *testing.T) {
	notifier := &recordingNotifier{}
	c := newTestCache(&stubClient{}, notifier)

	first := c.CreateNewProductionItem(testBody("SO001", "A1"))
	queue := c.SetNext("SO001", first)
	require.Equal(t, []string{"SO001"}, queue)
	broadcasts := notifier.count()

	dup := c.CreateNewProductionItem(testBody("SO001", "A1"))
	queue = c.SetNext("SO001", dup)

	assert.Equal(t, []string{"SO001"}, queue)
	assert.Len(t, c.GetCache()["SO001"], 1)
	assert.Equal(t, broadcasts, notifier.count(), "duplicate admission must not broadcast")
}

func TestSetNext_BroadcastsOnAdmission(t *testing.T) {
	notifier := &recordingNotifier{}
	c := newTestCache(&stubClient{}, notifier)

	c.SetNext("SO001", c.CreateNewProductionItem(testBody("SO001", "A1")))

	assert.Equal(t, 1, notifier.count())
}

func TestGetNext_PopsQueueButKeepsCache(t *testing.T) {
	c := newTestCache(&stubClient{}, nil)
	c.SetNext("SO001", c.CreateNewProductionItem(testBody("SO001", "A1")))

	popped, err := c.GetNext()
	require.NoError(t, err)
	require.Len(t, popped, 1)
	assert.Equal(t, "A1", popped[0].CustomUID)

	// The queue slot is spent, the cache entry is not.
	assert.Empty(t, c.GetQueue())
	cached := c.GetCache()["SO001"]
	require.Len(t, cached, 1)
	assert.True(t, popped[0].Equal(cached[0]))
}

func TestGetNext_EmptyQueue(t *testing.T) {
	c := newTestCache(&stubClient{}, nil)

	_, err := c.GetNext()
	assert.ErrorIs(t, err, utils.ErrEmptyQueue)
}

func TestAdmissionQueue_TwoOriginsFIFO(t *testing.T) {
	c := newTestCache(&stubClient{}, nil)
	c.SetNext("SO001", c.CreateNewProductionItem(testBody("SO001", "A1")))
	c.SetNext("SO002", c.CreateNewProductionItem(testBody("SO002", "B1")))

	require.Equal(t, []string{"SO001", "SO002"}, c.GetQueue())

	items, err := c.GetNext()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A1", items[0].CustomUID)
	assert.Equal(t, []string{"SO002"}, c.GetQueue())
}

func TestUpdateCache_PreservesSyncFlags(t *testing.T) {
	c := newTestCache(&stubClient{}, nil)

	existing := remoteItem("SO001", "A1", 7)
	existing.DBSync = true
	existing.PosSync = true
	existing.KitchenSync = true
	c.UpdateCache([]models.ProductionItem{existing})

	incoming := remoteItem("SO001", "A1", 7)
	incoming.State = models.StateProgress
	incoming.DBSync = false
	incoming.PosSync = false
	incoming.KitchenSync = false
	c.UpdateCache([]models.ProductionItem{incoming})

	merged := c.GetCache()["SO001"]
	require.Len(t, merged, 1)
	assert.Equal(t, models.StateProgress, merged[0].State, "data fields come from the incoming record")
	assert.True(t, merged[0].DBSync)
	assert.True(t, merged[0].PosSync)
	assert.True(t, merged[0].KitchenSync)
}

func TestUpdateCache_AppendsWhenNoMatch(t *testing.T) {
	c := newTestCache(&stubClient{}, nil)
	c.SetNext("SO001", c.CreateNewProductionItem(testBody("SO001", "A1")))

	c.UpdateCache([]models.ProductionItem{remoteItem("SO001", "A2", 8)})

	items := c.GetCache()["SO001"]
	require.Len(t, items, 2)
	assert.Equal(t, "A1", items[0].CustomUID)
	assert.Equal(t, "A2", items[1].CustomUID, "merged updates append to the tail")
}

func TestUpdateCache_AlwaysBroadcasts(t *testing.T) {
	notifier := &recordingNotifier{}
	c := newTestCache(&stubClient{}, notifier)

	item := remoteItem("SO001", "A1", 7)
	c.UpdateCache([]models.ProductionItem{item})
	c.UpdateCache([]models.ProductionItem{item})

	// Second merge changed nothing but still signals.
	assert.Equal(t, 2, notifier.count())
}

func TestHasCacheChanged_ContainmentSemantics(t *testing.T) {
	base := map[string][]models.ProductionItem{
		"SO001": {remoteItem("SO001", "A1", 7), remoteItem("SO001", "A2", 8)},
	}
	same := map[string][]models.ProductionItem{
		"SO001": {remoteItem("SO001", "A2", 8), remoteItem("SO001", "A1", 7)},
	}
	// Order does not matter: old items are matched anywhere in the new list.
	assert.False(t, HasCacheChanged(base, same))
	assert.False(t, HasCacheChanged(base, base))

	added := map[string][]models.ProductionItem{
		"SO001": base["SO001"],
		"SO002": {remoteItem("SO002", "B1", 9)},
	}
	assert.True(t, HasCacheChanged(base, added), "origin count differs")
	assert.True(t, HasCacheChanged(added, base), "origin removed")

	grown := map[string][]models.ProductionItem{
		"SO001": {remoteItem("SO001", "A1", 7), remoteItem("SO001", "A2", 8), remoteItem("SO001", "A3", 10)},
	}
	assert.True(t, HasCacheChanged(base, grown), "list length differs")

	mutated := remoteItem("SO001", "A2", 8)
	mutated.State = models.StateProgress
	replaced := map[string][]models.ProductionItem{
		"SO001": {remoteItem("SO001", "A1", 7), mutated},
	}
	assert.True(t, HasCacheChanged(base, replaced), "old item no longer present by value")

	// One-directional: a new item is only noticed when an old one went away
	// or a size changed. new-vs-old is not the same question as old-vs-new.
	assert.True(t, HasCacheChanged(replaced, base))
}

func TestSyncDB_EndToEnd(t *testing.T) {
	client := &stubClient{
		queryBatches: [][]models.ProductionItem{{remoteItem("SO001", "A1", 7)}},
		createResult: "mrp.production(42,)",
	}
	c := newTestCache(client, nil)

	body := testBody("SO001", "A1")
	c.EnqueuePendingSync(body)
	c.SetNext("SO001", c.CreateNewProductionItem(body))
	require.Equal(t, []string{"SO001"}, c.GetQueue())
	require.Len(t, c.PendingSync(), 1)

	res := c.SyncDB(context.Background())

	assert.True(t, res.Changed)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, "mrp.production(42,)", res.LastCreate)
	assert.Empty(t, c.PendingSync(), "pending list drained")
	require.Equal(t, 1, client.createCount())

	items := c.GetCache()["SO001"]
	require.Len(t, items, 1)
	assert.True(t, items[0].DBSync)
	assert.True(t, items[0].PosSync, "local acknowledgement survives the merge")
	assert.Equal(t, 7, items[0].ID, "remote id replaces the local zero")
}

func TestSyncDB_CreateFieldsCarrySubmission(t *testing.T) {
	client := &stubClient{createResult: "ok"}
	c := newTestCache(client, nil)

	body := testBody("SO001", "A1")
	c.EnqueuePendingSync(body)
	c.SetNext("SO001", c.CreateNewProductionItem(body))

	c.SyncDB(context.Background())

	require.Equal(t, 1, client.createCount())
	fields := client.created[0]
	assert.Equal(t, "SO001", fields["pos_reference"])
	assert.Equal(t, "11", fields["product_id"])
	assert.Equal(t, "3", fields["bom_id"])
	assert.Equal(t, "A1", fields["custom_uid"])
	components, ok := fields["components"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, components, "21")
}

// A failed remote create still drops the pending entry. That is the
// deployed contract: delivery is at-least-once-attempt, and a create that
// errors loses the submission until the POS resends it.
func TestSyncDB_DropsPendingEntryEvenWhenCreateFails(t *testing.T) {
	client := &stubClient{createErr: errors.New("erp rpc error 500: boom")}
	c := newTestCache(client, nil)

	body := testBody("SO001", "A1")
	c.EnqueuePendingSync(body)
	c.SetNext("SO001", c.CreateNewProductionItem(body))

	res := c.SyncDB(context.Background())

	assert.Equal(t, 1, res.Created)
	assert.Empty(t, res.LastCreate)
	assert.Empty(t, c.PendingSync(), "entry dropped despite the failure")
	items := c.GetCache()["SO001"]
	require.Len(t, items, 1)
	assert.False(t, items[0].DBSync, "nothing confirmed the create")
}

func TestSyncDB_PendingWithoutCachedItemStaysPending(t *testing.T) {
	client := &stubClient{}
	c := newTestCache(client, nil)

	c.EnqueuePendingSync(testBody("SO009", "Z9"))

	res := c.SyncDB(context.Background())

	assert.False(t, res.Updated())
	assert.Zero(t, client.createCount())
	assert.Len(t, c.PendingSync(), 1, "ineligible entries wait for their cache item")
}

func TestSyncDB_QueryFailureIsNonFatal(t *testing.T) {
	client := &stubClient{queryErr: errors.New("dial tcp: connection refused")}
	c := newTestCache(client, nil)
	c.SetNext("SO001", c.CreateNewProductionItem(testBody("SO001", "A1")))

	res := c.SyncDB(context.Background())

	assert.False(t, res.Changed)
	assert.Zero(t, res.Created)
	items := c.GetCache()["SO001"]
	require.Len(t, items, 1, "cache untouched by the failed read")
}

func TestSetNext_ConcurrentDistinctSubmissions(t *testing.T) {
	c := newTestCache(&stubClient{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			item := c.CreateNewProductionItem(testBody("SO001", fmt.Sprintf("uid-%d", n)))
			c.SetNext("SO001", item)
		}(i)
	}
	wg.Wait()

	assert.Len(t, c.GetCache()["SO001"], 25, "no submission lost under race")
	assert.Equal(t, []string{"SO001"}, c.GetQueue(), "origin admitted exactly once")
}

func TestGetProductionItemFromCache(t *testing.T) {
	c := newTestCache(&stubClient{}, nil)
	c.SetNext("SO001", c.CreateNewProductionItem(testBody("SO001", "A1")))
	c.SetNext("SO002", c.CreateNewProductionItem(testBody("SO002", "B1")))

	item, err := c.GetProductionItemFromCache("B1")
	require.NoError(t, err)
	assert.Equal(t, "SO002", item.Origin)

	_, err = c.GetProductionItemFromCache("missing")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestCreateNewProductionItem_Defaults(t *testing.T) {
	c := newTestCache(&stubClient{}, nil)

	item := c.CreateNewProductionItem(testBody("SO001", "A1"))

	assert.Equal(t, 0, item.ID)
	assert.Equal(t, "high", item.Priority)
	assert.Equal(t, "0", item.Timestamp)
	assert.False(t, item.DBSync)
	assert.False(t, item.PosSync)
	assert.False(t, item.KitchenSync)
	assert.Equal(t, 11, item.Product.ID)
}
