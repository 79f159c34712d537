package erp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mmdatafocus/manufacture_backend/models"
)

// Client is the surface the production cache and routes depend on. The
// reconciliation path treats QueryProduction as best-effort; the write
// operations fail loudly to direct callers.
type Client interface {
	Login(ctx context.Context, username string, apiKey string) (int, error)
	Logout() bool
	QueryProduction(ctx context.Context) ([]models.ProductionItem, error)
	CreateProduction(ctx context.Context, fields map[string]any) (string, error)
	ConfirmSingle(ctx context.Context, customUid string) (string, error)
	MarkAsDone(ctx context.Context, customUid string) error
	QueryProducts(ctx context.Context) ([]models.ProductEntry, error)
}

// idName decodes the ERP's [id, display_name] relation tuples.
type idName struct {
	ID   int
	Name string
}

func (p *idName) UnmarshalJSON(b []byte) error {
	var arr []json.RawMessage
	if err := json.Unmarshal(b, &arr); err != nil {
		return err
	}
	if len(arr) < 2 {
		return fmt.Errorf("expected [id, name] pair, got %s", string(b))
	}
	if err := json.Unmarshal(arr[0], &p.ID); err != nil {
		return err
	}
	return json.Unmarshal(arr[1], &p.Name)
}

// optString tolerates the ERP habit of serializing unset text fields as
// boolean false. Non-string values decode to nil.
type optString struct {
	Value *string
}

func (s *optString) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		s.Value = nil
		return nil
	}
	s.Value = &v
	return nil
}

func (s optString) Or(def string) string {
	if s.Value == nil {
		return def
	}
	return *s.Value
}

// productionRecord is the raw mrp.production row from search_read.
type productionRecord struct {
	ID               int       `json:"id"`
	DisplayName      string    `json:"display_name"`
	Origin           optString `json:"origin"`
	OriginUniqueName optString `json:"origin_unique_name"`
	CustomUID        optString `json:"custom_uid"`
	CreateDate       optString `json:"create_date"`
	Name             string    `json:"name"`
	Priority         string    `json:"priority"`
	ProductQty       float64   `json:"product_qty"`
	State            string    `json:"state"`
	ProductID        idName    `json:"product_id"`
	MoveRawIDs       []int     `json:"move_raw_ids"`
}

// stockMoveRecord is the raw stock.move row used for component expansion.
type stockMoveRecord struct {
	ID            int     `json:"id"`
	ProductID     idName  `json:"product_id"`
	ProductUomQty float64 `json:"product_uom_qty"`
}

// productRecord is the raw product.product row behind the catalog lookup.
type productRecord struct {
	ID          int             `json:"id"`
	DisplayName string          `json:"display_name"`
	CategID     json.RawMessage `json:"categ_id"`
	PosCategID  json.RawMessage `json:"pos_categ_id"`
}
