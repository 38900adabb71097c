package models

import "time"

// Transfer kinds
const (
	TransferKindDeposit = "deposit"
	TransferKindUnlock  = "unlock"
)

// VaultTransferRecord logs fund movements triggered through the service:
// deposits into the vault and timelock releases out of it.
type VaultTransferRecord struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	VaultConfigID uint      `gorm:"not null;index" json:"vault_config_id"`
	Kind          string    `gorm:"size:20;not null" json:"kind"`
	Lamports      uint64    `gorm:"default:0" json:"lamports"`
	TokenAmount   uint64    `gorm:"default:0" json:"token_amount"`
	Destination   string    `gorm:"size:100" json:"destination"`
	Signature     string    `gorm:"size:120" json:"signature"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (VaultTransferRecord) TableName() string {
	return "vault_transfer_record"
}
