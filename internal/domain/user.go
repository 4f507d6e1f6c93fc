package domain

import "time"

// User owns tickets through the assignee reference.
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}
