package models

import (
	"time"
)

type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Mobile    string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"mobile"`
	FullName  string    `gorm:"type:varchar(100);not null" json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
