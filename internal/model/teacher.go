package model

import "time"

type Teacher struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Instrument string    `json:"instrument"`
	Email      string    `json:"email"`
	CreatedAt  time.Time `json:"created_at"`
}
