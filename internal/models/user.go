package models

import "time"

// User is a person ingested from the upstream random-user generator.
type User struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Gender         string     `gorm:"type:varchar(50);not null" json:"gender"`
	Title          string     `gorm:"type:varchar(50)" json:"title"`
	FirstName      string     `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName       string     `gorm:"type:varchar(100);not null" json:"last_name"`
	StreetNumber   int        `json:"street_number"`
	StreetName     string     `gorm:"type:varchar(100)" json:"street_name"`
	City           string     `gorm:"type:varchar(100);index:ix_users_city" json:"city"`
	State          string     `gorm:"type:varchar(100)" json:"state"`
	Country        string     `gorm:"type:varchar(100);index:ix_users_country" json:"country"`
	Postcode       string     `gorm:"type:varchar(20)" json:"postcode"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	TimezoneOffset string     `gorm:"type:varchar(10)" json:"timezone_offset"`
	Phone          string     `gorm:"type:varchar(50)" json:"phone"`
	Cell           string     `gorm:"type:varchar(50)" json:"cell"`
	Email          string     `gorm:"type:varchar(100);not null;uniqueIndex:ix_users_email" json:"email"`
	ExternalID     string     `gorm:"type:varchar(100)" json:"external_id"`
	Username       string     `gorm:"type:varchar(100);index:ix_users_username" json:"username"`
	UUID           *string    `gorm:"column:uuid;type:varchar(100);uniqueIndex:ix_users_uuid" json:"uuid"`
	Picture        string     `gorm:"type:varchar(255)" json:"picture"`
	Dob            *time.Time `json:"dob"`
	RegisteredAt   *time.Time `json:"registered_at"`
	Nat            string     `gorm:"type:varchar(10)" json:"nat"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// UserCreate is the validated shape a new row is built from.
type UserCreate struct {
	Gender         string     `validate:"required,max=50"`
	Title          string     `validate:"max=50"`
	FirstName      string     `validate:"required,max=100"`
	LastName       string     `validate:"required,max=100"`
	StreetNumber   int
	StreetName     string     `validate:"max=100"`
	City           string     `validate:"max=100"`
	State          string     `validate:"max=100"`
	Country        string     `validate:"max=100"`
	Postcode       string     `validate:"max=20"`
	Latitude       float64    `validate:"gte=-90,lte=90"`
	Longitude      float64    `validate:"gte=-180,lte=180"`
	TimezoneOffset string     `validate:"max=10"`
	Phone          string     `validate:"max=50"`
	Cell           string     `validate:"max=50"`
	Email          string     `validate:"required,email,max=100"`
	ExternalID     string     `validate:"max=100"`
	Username       string     `validate:"max=100"`
	UUID           string     `validate:"max=100"`
	Picture        string     `validate:"omitempty,url,max=255"`
	Dob            *time.Time
	RegisteredAt   *time.Time
	Nat            string     `validate:"max=10"`
}

// ToUser builds the row to insert. An empty upstream uuid is stored as NULL so
// it does not collide with other records missing one.
func (c UserCreate) ToUser() User {
	u := User{
		Gender:         c.Gender,
		Title:          c.Title,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		StreetNumber:   c.StreetNumber,
		StreetName:     c.StreetName,
		City:           c.City,
		State:          c.State,
		Country:        c.Country,
		Postcode:       c.Postcode,
		Latitude:       c.Latitude,
		Longitude:      c.Longitude,
		TimezoneOffset: c.TimezoneOffset,
		Phone:          c.Phone,
		Cell:           c.Cell,
		Email:          c.Email,
		ExternalID:     c.ExternalID,
		Username:       c.Username,
		Picture:        c.Picture,
		Dob:            c.Dob,
		RegisteredAt:   c.RegisteredAt,
		Nat:            c.Nat,
	}
	if c.UUID != "" {
		id := c.UUID
		u.UUID = &id
	}
	return u
}
