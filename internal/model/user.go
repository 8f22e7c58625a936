package model

import "time"

// User is the identity record backing authentication. Business attributes
// (name, store ownership) are managed by the admin CRUD surface; the auth
// core reads them and only ever writes the password triple
// (hash, salt, password_changed_at).
type User struct {
	ID                int64     `json:"id"`
	Login             string    `json:"login"`
	Name              string    `json:"name"`
	HashedPassword    string    `json:"-"`
	Salt              string    `json:"-"`
	IsActive          bool      `json:"isActive"`
	PasswordChangedAt time.Time `json:"passwordChangedAt"`
	Roles             []string  `json:"roles"`
	StoreIDs          []int64   `json:"storeIds"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}
