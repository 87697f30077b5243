package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
)

type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	Surname      string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
}
