package contacts

import "time"

// Contact is an internal line whose calls are billed. Number is unique.
type Contact struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Number     string    `json:"number" db:"number"`
	Department *string   `json:"department,omitempty" db:"department"`
	Carrier    *string   `json:"carrier,omitempty" db:"carrier"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// CreateRequest is the input for Service.Create.
type CreateRequest struct {
	Name       string  `json:"name"`
	Number     string  `json:"number"`
	Department *string `json:"department,omitempty"`
	Carrier    *string `json:"carrier,omitempty"`
}
