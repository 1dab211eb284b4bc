package notification

import (
	"time"

	"gorm.io/datatypes"
)

type Notification struct {
	ID        string         `gorm:"column:id;primaryKey" json:"id"`
	MemberID  string         `gorm:"column:member_id;index" json:"member_id"`
	Type      string         `gorm:"column:type" json:"type"`
	Title     string         `gorm:"column:title" json:"title"`
	Message   string         `gorm:"column:message" json:"message"`
	Data      datatypes.JSON `gorm:"column:data" json:"data,omitempty"`
	Read      bool           `gorm:"column:read" json:"read"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
