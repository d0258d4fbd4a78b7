package models

import "time"

// UserUpdate is a sparse update: nil fields were not supplied and are left alone.
type UserUpdate struct {
	Gender         *string    `json:"gender" validate:"omitempty,min=1,max=50"`
	Title          *string    `json:"title" validate:"omitempty,max=50"`
	FirstName      *string    `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName       *string    `json:"last_name" validate:"omitempty,min=1,max=100"`
	StreetNumber   *int       `json:"street_number"`
	StreetName     *string    `json:"street_name" validate:"omitempty,max=100"`
	City           *string    `json:"city" validate:"omitempty,max=100"`
	State          *string    `json:"state" validate:"omitempty,max=100"`
	Country        *string    `json:"country" validate:"omitempty,max=100"`
	Postcode       *string    `json:"postcode" validate:"omitempty,max=20"`
	Latitude       *float64   `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude      *float64   `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	TimezoneOffset *string    `json:"timezone_offset" validate:"omitempty,max=10"`
	Phone          *string    `json:"phone" validate:"omitempty,max=50"`
	Cell           *string    `json:"cell" validate:"omitempty,max=50"`
	Email          *string    `json:"email" validate:"omitempty,email,max=100"`
	ExternalID     *string    `json:"external_id" validate:"omitempty,max=100"`
	Username       *string    `json:"username" validate:"omitempty,max=100"`
	UUID           *string    `json:"uuid" validate:"omitempty,max=100"`
	Picture        *string    `json:"picture" validate:"omitempty,max=255,url|len=0"`
	Dob            *time.Time `json:"dob"`
	RegisteredAt   *time.Time `json:"registered_at"`
	Nat            *string    `json:"nat" validate:"omitempty,max=10"`
}

// Merge applies upd onto existing and returns the resulting record together
// with the column names whose value actually changed. existing is not modified.
func Merge(existing User, upd UserUpdate) (User, []string) {
	out := existing
	var changed []string

	str := func(col string, dst *string, src *string) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = append(changed, col)
		}
	}
	num := func(col string, dst *float64, src *float64) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = append(changed, col)
		}
	}
	when := func(col string, dst **time.Time, src *time.Time) {
		if src == nil {
			return
		}
		if *dst != nil && (*dst).Equal(*src) {
			return
		}
		t := *src
		*dst = &t
		changed = append(changed, col)
	}

	str("gender", &out.Gender, upd.Gender)
	str("title", &out.Title, upd.Title)
	str("first_name", &out.FirstName, upd.FirstName)
	str("last_name", &out.LastName, upd.LastName)
	if upd.StreetNumber != nil && out.StreetNumber != *upd.StreetNumber {
		out.StreetNumber = *upd.StreetNumber
		changed = append(changed, "street_number")
	}
	str("street_name", &out.StreetName, upd.StreetName)
	str("city", &out.City, upd.City)
	str("state", &out.State, upd.State)
	str("country", &out.Country, upd.Country)
	str("postcode", &out.Postcode, upd.Postcode)
	num("latitude", &out.Latitude, upd.Latitude)
	num("longitude", &out.Longitude, upd.Longitude)
	str("timezone_offset", &out.TimezoneOffset, upd.TimezoneOffset)
	str("phone", &out.Phone, upd.Phone)
	str("cell", &out.Cell, upd.Cell)
	str("email", &out.Email, upd.Email)
	str("external_id", &out.ExternalID, upd.ExternalID)
	str("username", &out.Username, upd.Username)
	// An empty uuid is stored as NULL, as on create.
	if upd.UUID != nil {
		switch {
		case *upd.UUID == "":
			if out.UUID != nil {
				out.UUID = nil
				changed = append(changed, "uuid")
			}
		case out.UUID == nil || *out.UUID != *upd.UUID:
			id := *upd.UUID
			out.UUID = &id
			changed = append(changed, "uuid")
		}
	}
	str("picture", &out.Picture, upd.Picture)
	when("dob", &out.Dob, upd.Dob)
	when("registered_at", &out.RegisteredAt, upd.RegisteredAt)
	str("nat", &out.Nat, upd.Nat)

	return out, changed
}
