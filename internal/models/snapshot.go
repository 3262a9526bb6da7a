package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// SnapshotSchemaVersion is written into every new snapshot. Bump it when
// the payload shape changes and handle older versions in DecodeSnapshot.
const SnapshotSchemaVersion = 1

// OrderSnapshot is the typed payload stored on a co-payment at creation
// time. It carries everything needed to materialize the order once all
// contributors have paid. Immutable after capture.
type OrderSnapshot struct {
	SchemaVersion   int            `json:"schema_version"`
	VendorID        string         `json:"vendor_id"`
	CustomerID      string         `json:"customer_id,omitempty"`
	Items           []SnapshotItem `json:"items"`
	DeliveryAddress string         `json:"delivery_address,omitempty"`
}

type SnapshotItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// EncodeSnapshot serializes a snapshot for storage, stamping the current
// schema version.
func EncodeSnapshot(s OrderSnapshot) ([]byte, error) {
	s.SchemaVersion = SnapshotSchemaVersion
	return json.Marshal(s)
}

// DecodeSnapshot parses a stored snapshot, rejecting versions this build
// does not understand.
func DecodeSnapshot(raw []byte) (*OrderSnapshot, error) {
	var s OrderSnapshot
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode order snapshot: %w", err)
	}
	if s.SchemaVersion > SnapshotSchemaVersion {
		return nil, fmt.Errorf("unsupported snapshot schema version %d", s.SchemaVersion)
	}
	return &s, nil
}
