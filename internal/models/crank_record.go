package models

import "time"

// Crank record statuses
const (
	CrankStatusSkipped   = "skipped"
	CrankStatusSubmitted = "submitted"
	CrankStatusConfirmed = "confirmed"
	CrankStatusFailed    = "failed"
)

// CrankRecord is the audit row for one crank attempt, successful or not.
// Confirmed rows carry the buyback split reported by the program.
type CrankRecord struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	VaultConfigID  uint      `gorm:"not null;index" json:"vault_config_id"`
	ProfitLamports uint64    `gorm:"default:0" json:"profit_lamports"`
	BurnAmount     uint64    `gorm:"default:0" json:"burn_amount"`
	LockAmount     uint64    `gorm:"default:0" json:"lock_amount"`
	Dust           uint64    `gorm:"default:0" json:"dust"`
	BurnAccount    string    `gorm:"size:100" json:"burn_account"`
	LockAccount    string    `gorm:"size:100" json:"lock_account"`
	Signature      string    `gorm:"size:120;index" json:"signature"`
	Status         string    `gorm:"size:20;not null" json:"status"`
	Reason         string    `gorm:"size:500" json:"reason"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (CrankRecord) TableName() string {
	return "crank_record"
}
