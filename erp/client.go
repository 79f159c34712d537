package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mmdatafocus/manufacture_backend/config"
	"github.com/mmdatafocus/manufacture_backend/models"
	"github.com/mmdatafocus/manufacture_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// rpcClient talks JSON-RPC to the ERP's /jsonrpc endpoint. One instance is
// shared by the request handlers and the reconciliation scheduler, so the
// session fields are mutex-guarded.
type rpcClient struct {
	baseURL  string
	database string
	http     *http.Client
	limiter  <-chan time.Time
	logger   *logrus.Logger

	mu       sync.Mutex
	uid      int
	apiKey   string
	username string

	nextID int64
}

func NewClient(logger *logrus.Logger) (Client, error) {
	baseURL := utils.EnvString("ERP_HOST", "")
	if baseURL == "" {
		return nil, errors.New("ERP_HOST is empty")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}
	database := utils.EnvString("ERP_DATABASE", "")
	if database == "" {
		return nil, errors.New("ERP_DATABASE is empty")
	}
	rateLimitPerMin := utils.EnvInt64("ERP_RATE_LIMIT_PER_MIN", 120)
	interval := time.Minute / time.Duration(rateLimitPerMin)

	return &rpcClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		database: database,
		http:     &http.Client{Timeout: 30 * time.Second},
		limiter:  time.Tick(interval),
		logger:   logger,
	}, nil
}

type rpcRequest struct {
	Jsonrpc string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int64     `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *rpcClient) call(ctx context.Context, service string, method string, args []any) (json.RawMessage, error) {
	<-c.limiter

	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.mu.Unlock()

	payload, err := json.Marshal(rpcRequest{
		Jsonrpc: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      id,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jsonrpc", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("erp api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed rpcResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("erp rpc error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}
	return parsed.Result, nil
}

// executeKw runs a method on an ERP model through the object service with
// the stored session credentials.
func (c *rpcClient) executeKw(ctx context.Context, model string, method string, args []any, kwargs map[string]any) (json.RawMessage, error) {
	c.mu.Lock()
	uid, apiKey := c.uid, c.apiKey
	c.mu.Unlock()
	if uid == 0 {
		return nil, errors.New("erp session not established")
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	return c.call(ctx, "object", "execute_kw", []any{
		c.database, uid, apiKey, model, method, args, kwargs,
	})
}

func (c *rpcClient) Login(ctx context.Context, username string, apiKey string) (int, error) {
	res, err := c.call(ctx, "common", "authenticate", []any{c.database, username, apiKey, map[string]any{}})
	if err != nil {
		return 0, err
	}
	var uid int
	if err := json.Unmarshal(res, &uid); err != nil {
		return 0, fmt.Errorf("authenticate did not return a uid: %s", string(res))
	}
	if uid == 0 {
		return 0, errors.New("authentication rejected")
	}

	c.mu.Lock()
	c.uid = uid
	c.apiKey = apiKey
	c.username = username
	c.mu.Unlock()
	return uid, nil
}

func (c *rpcClient) Logout() bool {
	c.mu.Lock()
	c.uid = 0
	c.apiKey = ""
	c.username = ""
	c.mu.Unlock()
	return true
}

var productionFields = []string{
	"id", "date_deadline", "date_finished", "display_name", "origin",
	"custom_uid", "name", "priority", "product_qty", "state", "product_id",
	"move_raw_ids", "origin_unique_name", "create_date",
}

// QueryProduction pulls the open mrp.production rows and expands their raw
// component moves. A row that fails to decode is dropped; the rest of the
// batch is returned.
func (c *rpcClient) QueryProduction(ctx context.Context) ([]models.ProductionItem, error) {
	limit := utils.EnvInt64("ERP_RECORD_LIMIT", 100)
	res, err := c.executeKw(ctx, "mrp.production", "search_read",
		[]any{[]any{[]any{"state", "in", []string{models.StateProgress, models.StateDraft}}}},
		map[string]any{"fields": productionFields, "limit": limit},
	)
	if err != nil {
		return nil, err
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(res, &raws); err != nil {
		return nil, err
	}

	items := make([]models.ProductionItem, 0, len(raws))
	for _, raw := range raws {
		var rec productionRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			config.LogError(c.logger, "erp/client.go", "QueryProduction", "decode production record", string(raw), err)
			continue
		}

		components, err := c.queryStockMoves(ctx, rec.MoveRawIDs)
		if err != nil {
			config.LogError(c.logger, "erp/client.go", "QueryProduction", "expand stock moves", rec.ID, err)
			continue
		}

		items = append(items, models.ProductionItem{
			ID:               rec.ID,
			DisplayName:      rec.DisplayName,
			Origin:           rec.Origin.Or("no-display"),
			OriginUniqueName: rec.OriginUniqueName.Or(""),
			ProductionDelta:  0,
			Priority:         rec.Priority,
			State:            rec.State,
			Product:          models.ProductRef{ID: rec.ProductID.ID, DisplayName: rec.ProductID.Name},
			Component:        components,
			DBSync:           true,
			PosSync:          false,
			KitchenSync:      false,
			CustomUID:        rec.CustomUID.Or(""),
			Timestamp:        rec.CreateDate.Or(""),
		})
	}
	return items, nil
}

func (c *rpcClient) queryStockMoves(ctx context.Context, ids []int) ([]models.Component, error) {
	if len(ids) == 0 {
		return []models.Component{}, nil
	}
	res, err := c.executeKw(ctx, "stock.move", "read",
		[]any{ids},
		map[string]any{"fields": []string{"id", "product_id", "product_uom_qty"}},
	)
	if err != nil {
		return nil, err
	}

	var moves []stockMoveRecord
	if err := json.Unmarshal(res, &moves); err != nil {
		return nil, err
	}

	components := make([]models.Component, 0, len(moves))
	for _, move := range moves {
		components = append(components, models.Component{
			ID:          move.ProductID.ID,
			DisplayName: move.ProductID.Name,
			Qty:         decimal.NewFromFloat(move.ProductUomQty),
		})
	}
	return components, nil
}

func (c *rpcClient) CreateProduction(ctx context.Context, fields map[string]any) (string, error) {
	res, err := c.executeKw(ctx, "mrp.production", "create_single", []any{fields}, nil)
	if err != nil {
		return "", err
	}
	var out string
	if err := json.Unmarshal(res, &out); err != nil {
		return "", fmt.Errorf("create_single returned unexpected payload: %s", string(res))
	}
	return out, nil
}

func (c *rpcClient) ConfirmSingle(ctx context.Context, customUid string) (string, error) {
	res, err := c.executeKw(ctx, "mrp.production", "confirm_single",
		[]any{map[string]any{"custom_uid": customUid}}, nil)
	if err != nil {
		return "", err
	}
	var out string
	if err := json.Unmarshal(res, &out); err != nil {
		return "", fmt.Errorf("confirm_single returned unexpected payload: %s", string(res))
	}
	return out, nil
}

func (c *rpcClient) MarkAsDone(ctx context.Context, customUid string) error {
	_, err := c.executeKw(ctx, "mrp.production", "mark_as_done",
		[]any{map[string]any{"custom_uid": customUid}}, nil)
	return err
}

// QueryProducts reads the POS-visible product catalog. Unlike production
// rows, a malformed category tuple here fails the whole request: the
// front-end caches this list and a partial catalog is worse than an error.
func (c *rpcClient) QueryProducts(ctx context.Context) ([]models.ProductEntry, error) {
	limit := utils.EnvInt64("ERP_RECORD_LIMIT", 100)
	res, err := c.executeKw(ctx, "product.product", "search_read",
		[]any{[]any{[]any{"available_in_pos", "=", true}}},
		map[string]any{
			"fields": []string{"id", "display_name", "categ_id", "pos_categ_id"},
			"limit":  limit,
		},
	)
	if err != nil {
		return nil, err
	}

	var raws []productRecord
	if err := json.Unmarshal(res, &raws); err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, errors.New("product query returned no records")
	}

	entries := make([]models.ProductEntry, 0, len(raws))
	for _, rec := range raws {
		var categ, posCateg idName
		if err := json.Unmarshal(rec.CategID, &categ); err != nil {
			return nil, fmt.Errorf("product %d has no category: %w", rec.ID, err)
		}
		if err := json.Unmarshal(rec.PosCategID, &posCateg); err != nil {
			return nil, fmt.Errorf("product %d has no pos category: %w", rec.ID, err)
		}
		entries = append(entries, models.ProductEntry{
			ID:          rec.ID,
			DisplayName: rec.DisplayName,
			Category:    categ.Name,
			PosCategory: posCateg.Name,
		})
	}
	return entries, nil
}
