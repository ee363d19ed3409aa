package entity

import "time"

// User is a row of the `users` table: the identity plus its credential record.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Name         string    `db:"name" json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// SlimUser is the authenticated identity. It never carries the password hash.
type SlimUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Slim drops the credential material from u.
func (u *User) Slim() SlimUser {
	return SlimUser{ID: u.ID, Email: u.Email, Name: u.Name}
}
