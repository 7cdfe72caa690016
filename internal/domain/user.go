package domain

import "time"

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
	RoleUser  = "user"
)

type User struct {
	ID           int64     `gorm:"primaryKey" json:"id,string"`
	Email        string    `gorm:"uniqueIndex;size:191" json:"email" form:"email"`
	PasswordHash string    `gorm:"size:191" json:"-"`
	Role         string    `gorm:"index;size:32" json:"role"`
	FullName     string    `gorm:"size:128" json:"full_name" form:"full_name"`
	Phone        string    `gorm:"size:64" json:"phone" form:"phone"`
	Address      string    `gorm:"size:512" json:"address" form:"address"`
	LastLogin    time.Time `json:"last_login"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Role is reference data; the capability attached to a user is the
// plain role string above, checked once per request at the boundary.
type Role struct {
	ID        int64     `gorm:"primaryKey" json:"id,string"`
	Name      string    `gorm:"uniqueIndex;size:50" json:"name"`
	Remark    string    `gorm:"size:255" json:"remark"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
