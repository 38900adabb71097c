package models

import "time"

// VaultConfig is the service-side record of one on-chain vault. The chain is
// the source of truth for timestamps and the baseline; this row caches them
// for scheduling and adds the operational knobs the worker needs.
type VaultConfig struct {
	ID                      uint      `gorm:"primarykey" json:"id"`
	Name                    string    `gorm:"size:50" json:"name"`
	Mint                    string    `gorm:"size:100;uniqueIndex;not null" json:"mint"`
	BurnAddress             string    `gorm:"size:100;not null" json:"burn_address"`
	StartingBalanceLamports uint64    `gorm:"not null" json:"starting_balance_lamports"`
	StateAddress            string    `gorm:"size:100" json:"state_address"`
	VaultAddress            string    `gorm:"size:100" json:"vault_address"`
	TimelockAuthority       string    `gorm:"size:100" json:"timelock_authority"`
	LastCrankTs             int64     `gorm:"default:0" json:"last_crank_ts"`
	TimelockUnlockTs        int64     `gorm:"default:0" json:"timelock_unlock_ts"`
	SlippageBps             int       `gorm:"default:100" json:"slippage_bps"`
	Enabled                 bool      `gorm:"default:false" json:"enabled"`
	Initialized             bool      `gorm:"default:false" json:"initialized"`
	CreatedAt               time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt               time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (VaultConfig) TableName() string {
	return "vault_config"
}
