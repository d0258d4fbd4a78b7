package randomuser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/userhub/engine/internal/models"
)

// FlexString decodes from a JSON string or number.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// FlexFloat decodes from a JSON number or a numeric string.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
	if err != nil {
		return fmt.Errorf("flex float: %w", err)
	}
	*f = FlexFloat(v)
	return nil
}

// FlexInt decodes from a JSON number or a numeric string.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	var v FlexFloat
	if err := v.UnmarshalJSON(b); err != nil {
		return err
	}
	*f = FlexInt(int(v))
	return nil
}

// RawUser mirrors one element of the upstream "results" array.
type RawUser struct {
	Gender string `json:"gender"`
	Name   struct {
		Title string `json:"title"`
		First string `json:"first"`
		Last  string `json:"last"`
	} `json:"name"`
	Location struct {
		Street struct {
			Number FlexInt `json:"number"`
			Name   string  `json:"name"`
		} `json:"street"`
		City        string     `json:"city"`
		State       string     `json:"state"`
		Country     string     `json:"country"`
		Postcode    FlexString `json:"postcode"`
		Coordinates struct {
			Latitude  FlexFloat `json:"latitude"`
			Longitude FlexFloat `json:"longitude"`
		} `json:"coordinates"`
		Timezone struct {
			Offset string `json:"offset"`
		} `json:"timezone"`
	} `json:"location"`
	Email string `json:"email"`
	Login struct {
		UUID     string `json:"uuid"`
		Username string `json:"username"`
	} `json:"login"`
	Dob struct {
		Date string `json:"date"`
	} `json:"dob"`
	Registered struct {
		Date string `json:"date"`
	} `json:"registered"`
	Phone string `json:"phone"`
	Cell  string `json:"cell"`
	ID    struct {
		Name  string     `json:"name"`
		Value FlexString `json:"value"`
	} `json:"id"`
	Picture struct {
		Thumbnail string `json:"thumbnail"`
	} `json:"picture"`
	Nat string `json:"nat"`

	// Err is set when this element could not be decoded. The other
	// elements of the same response are unaffected.
	Err error `json:"-"`
}

type resultsEnvelope struct {
	Results []json.RawMessage `json:"results"`
}

// DecodeResults reads an upstream response body. Only a malformed envelope is
// an error; a bad element comes back with Err set.
func DecodeResults(r io.Reader) ([]RawUser, error) {
	var env resultsEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode upstream body: %w", err)
	}
	out := make([]RawUser, len(env.Results))
	for i, msg := range env.Results {
		if err := json.Unmarshal(msg, &out[i]); err != nil {
			out[i].Err = fmt.Errorf("decode record %d: %w", i, err)
		}
	}
	return out, nil
}

// ToCreate flattens the nested upstream record into the create schema.
func (r RawUser) ToCreate() models.UserCreate {
	return models.UserCreate{
		Gender:         r.Gender,
		Title:          r.Name.Title,
		FirstName:      r.Name.First,
		LastName:       r.Name.Last,
		StreetNumber:   int(r.Location.Street.Number),
		StreetName:     r.Location.Street.Name,
		City:           r.Location.City,
		State:          r.Location.State,
		Country:        r.Location.Country,
		Postcode:       string(r.Location.Postcode),
		Latitude:       float64(r.Location.Coordinates.Latitude),
		Longitude:      float64(r.Location.Coordinates.Longitude),
		TimezoneOffset: r.Location.Timezone.Offset,
		Phone:          r.Phone,
		Cell:           r.Cell,
		Email:          r.Email,
		ExternalID:     string(r.ID.Value),
		Username:       r.Login.Username,
		UUID:           r.Login.UUID,
		Picture:        r.Picture.Thumbnail,
		Dob:            parseDate(r.Dob.Date),
		RegisteredAt:   parseDate(r.Registered.Date),
		Nat:            r.Nat,
	}
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
