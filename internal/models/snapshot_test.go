package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSnapshotRoundTrip(t *testing.T) {
	raw, err := EncodeSnapshot(OrderSnapshot{
		VendorID:        "vendor-1",
		CustomerID:      "cust-1",
		DeliveryAddress: "12 Nile St, Cairo",
		Items: []SnapshotItem{
			{ProductID: "cake-choc", Name: "Chocolate Cake", Quantity: 2, UnitPrice: decimal.NewFromInt(500)},
		},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeSnapshot(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.SchemaVersion != SnapshotSchemaVersion {
		t.Fatalf("schema version not stamped: %d", got.SchemaVersion)
	}
	if got.VendorID != "vendor-1" || len(got.Items) != 1 || got.Items[0].Quantity != 2 {
		t.Fatalf("snapshot mangled: %+v", got)
	}
}

func TestDecodeSnapshotRejectsNewerVersion(t *testing.T) {
	if _, err := DecodeSnapshot([]byte(`{"schema_version":99,"vendor_id":"v"}`)); err == nil {
		t.Fatalf("expected unsupported version error")
	}
}

func TestDecodeSnapshotRejectsGarbage(t *testing.T) {
	if _, err := DecodeSnapshot([]byte(`{`)); err == nil {
		t.Fatalf("expected decode error")
	}
}
