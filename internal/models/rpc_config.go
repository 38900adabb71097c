package models

import (
	"time"

	"gorm.io/gorm"
)

// RpcConfig holds a Solana RPC endpoint pair; the worker and handlers use the
// active one.
type RpcConfig struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	Label      string         `json:"label" gorm:"size:50"`
	Endpoint   string         `json:"endpoint" gorm:"not null"`
	WsEndpoint string         `json:"ws_endpoint"`
	IsActive   bool           `json:"is_active" gorm:"default:true"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for RpcConfig
func (RpcConfig) TableName() string {
	return "rpc_configs"
}
