package users

import "time"

// User is an account able to authenticate and hold event permissions.
// Usernames and emails are unique across the table.
type User struct {
	ID             uint      `gorm:"column:id;primaryKey"`
	Username       string    `gorm:"column:username;size:50;uniqueIndex;not null"`
	Email          string    `gorm:"column:email;size:100;uniqueIndex;not null"`
	HashedPassword string    `gorm:"column:hashed_password;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (User) TableName() string {
	return "users"
}
