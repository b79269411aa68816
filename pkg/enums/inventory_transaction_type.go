package enums

import "fmt"

// InventoryTransactionType maps to the inventory_transaction_type enum in
// Postgres. Every ledger mutation appends exactly one transaction of one of
// these types.
type InventoryTransactionType string

const (
	TransactionReservation       InventoryTransactionType = "reservation"
	TransactionRelease           InventoryTransactionType = "release"
	TransactionDelivery          InventoryTransactionType = "delivery"
	TransactionReturn            InventoryTransactionType = "return"
	TransactionAdjustment        InventoryTransactionType = "adjustment"
	TransactionMaintenance       InventoryTransactionType = "maintenance"
	TransactionMaintenanceReturn InventoryTransactionType = "maintenance_return"
	TransactionDamage            InventoryTransactionType = "damage"
	TransactionWriteOff          InventoryTransactionType = "write_off"
	TransactionAudit             InventoryTransactionType = "audit"
)

var validInventoryTransactionTypes = []InventoryTransactionType{
	TransactionReservation,
	TransactionRelease,
	TransactionDelivery,
	TransactionReturn,
	TransactionAdjustment,
	TransactionMaintenance,
	TransactionMaintenanceReturn,
	TransactionDamage,
	TransactionWriteOff,
	TransactionAudit,
}

// IsValid reports whether the value matches the canonical enum.
func (t InventoryTransactionType) IsValid() bool {
	for _, candidate := range validInventoryTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseInventoryTransactionType converts raw input into the enum.
func ParseInventoryTransactionType(value string) (InventoryTransactionType, error) {
	for _, candidate := range validInventoryTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory transaction type %q", value)
}
