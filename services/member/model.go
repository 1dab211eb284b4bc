package member

import "time"

type MemberType string

var (
	Standard MemberType = "standard"
	Ally     MemberType = "ally"
	Staff    MemberType = "staff"
)

func (t MemberType) String() string {
	switch t {
	case Standard, Ally, Staff:
		return string(t)
	default:
		return ""
	}
}

type Member struct {
	ID        string     `gorm:"column:id;primaryKey" json:"id"`
	CreatedAt time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at" json:"updated_at"`
	Name      string     `gorm:"column:name" json:"name"`
	Email     string     `gorm:"column:email;uniqueIndex" json:"email"`
	Type      MemberType `gorm:"column:member_type" json:"member_type"`
}

func (Member) TableName() string {
	return "members"
}
