package models

import (
	"bytes"

	"github.com/goccy/go-json"
)

// TimestampLayout is the order timestamp format, second precision.
const TimestampLayout = "2006-01-02 15:04:05"

type Product struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       Price  `json:"price"` // free text, never validated
	Image       string `json:"image"` // URI
	Link        string `json:"link"`
}

type User struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"` // plaintext
	WhatsApp string `json:"whatsapp"`
}

type Order struct {
	Username  string  `json:"username"`
	WhatsApp  string  `json:"whatsapp"`
	Product   Product `json:"product"` // snapshot at order time
	Address   Address `json:"address"`
	Timestamp string  `json:"timestamp"`
}

// Price keeps whatever the admin typed. Collections written by hand may hold
// a bare JSON number, which is kept verbatim.
type Price string

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = Price(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*p = Price(n.String())
	return nil
}

func (p Price) String() string { return string(p) }

// Address is the submitted delivery form, one value per field. Records
// edited by hand may hold numbers, booleans or nested values; those are kept
// as their JSON text.
type Address map[string]string

func (a *Address) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		*a = nil
		return nil
	}
	out := make(Address, len(fields))
	for key, raw := range fields {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			out[key] = s
			continue
		}
		out[key] = string(bytes.TrimSpace(raw))
	}
	*a = out
	return nil
}

// Identity is who the current request is acting as. Both may be set.
type Identity struct {
	Customer *User
	Admin    bool
}
