package models

// Observed production states. The cache treats state as an open string and
// never validates against this set; the ERP may grow new states without a
// deploy on our side.
const (
	StateDraft    = "draft"
	StateProgress = "progress"
	StateDone     = "done"
)

// ProductionOrderBody is the submission a POS sends when finalizing a sale.
// It is both the seed for the cached ProductionItem and the pending-sync
// record pushed to the ERP on the next reconciliation run.
type ProductionOrderBody struct {
	DisplayName      string      `json:"display_name" binding:"required"`
	Origin           string      `json:"origin" binding:"required"`
	OriginUniqueName string      `json:"origin_unique_name"`
	CustomUID        string      `json:"custom_uid"`
	ProductID        int         `json:"product_id" binding:"required"`
	ProductionDelta  int         `json:"production_delta"`
	ProductQty       int         `json:"product_qty"`
	State            string      `json:"state"`
	ProductTmplID    int         `json:"product_tmpl_id"`
	ProductUomID     int         `json:"product_uom_id"`
	BomID            int         `json:"bom_id"`
	ExtraComponents  []Component `json:"extra_components"`
}

type ProductRef struct {
	ID          int    `json:"id"`
	DisplayName string `json:"display_name"`
}

// ProductionItem is one unit of manufacturing work tied to an origin order.
//
// CustomUID is the join key between the local cache and the ERP: it is
// generated on our side and travels with the record through creation, so a
// remote row can always be matched back to its local counterpart.
//
// DBSync, PosSync and KitchenSync live only in this process; the ERP never
// stores them. Merge paths must carry them across data refreshes.
type ProductionItem struct {
	ID               int         `json:"id"`
	DisplayName      string      `json:"display_name"`
	Origin           string      `json:"origin"`
	OriginUniqueName string      `json:"origin_unique_name"`
	ProductionDelta  int         `json:"production_delta"`
	Priority         string      `json:"priority"`
	State            string      `json:"state"`
	Product          ProductRef  `json:"product"`
	Component        []Component `json:"component"`
	DBSync           bool        `json:"db_sync"`
	PosSync          bool        `json:"pos_sync"`
	KitchenSync      bool        `json:"kitchen_sync"`
	CustomUID        string      `json:"custom_uid"`
	Timestamp        string      `json:"timestamp"`
}

// Equal is value equality over every field, including the sync flags.
// Component quantities compare by decimal value, not representation.
func (p ProductionItem) Equal(o ProductionItem) bool {
	if p.ID != o.ID ||
		p.DisplayName != o.DisplayName ||
		p.Origin != o.Origin ||
		p.OriginUniqueName != o.OriginUniqueName ||
		p.ProductionDelta != o.ProductionDelta ||
		p.Priority != o.Priority ||
		p.State != o.State ||
		p.Product != o.Product ||
		p.DBSync != o.DBSync ||
		p.PosSync != o.PosSync ||
		p.KitchenSync != o.KitchenSync ||
		p.CustomUID != o.CustomUID ||
		p.Timestamp != o.Timestamp {
		return false
	}
	if len(p.Component) != len(o.Component) {
		return false
	}
	for i := range p.Component {
		if !p.Component[i].Equal(o.Component[i]) {
			return false
		}
	}
	return true
}

// ProductEntry is a catalog row served to front-ends for local caching.
type ProductEntry struct {
	ID          int    `json:"id"`
	DisplayName string `json:"display_name"`
	Category    string `json:"categ"`
	PosCategory string `json:"pos_categ"`
}
