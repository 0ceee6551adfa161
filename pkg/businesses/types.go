package businesses

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/platinummonkey/grinplace/pkg/apperrors"
)

// ServiceTag is an offering a business advertises.
type ServiceTag string

const (
	ServicePhoneSales       ServiceTag = "phone_sales"
	ServicePhoneRepair      ServiceTag = "phone_repair"
	ServiceAccessoriesSales ServiceTag = "accessories_sales"
)

var knownServices = map[ServiceTag]bool{
	ServicePhoneSales:       true,
	ServicePhoneRepair:      true,
	ServiceAccessoriesSales: true,
}

// Address of a business
type Address struct {
	Street  string `json:"street"`
	Number  string `json:"number,omitempty"`
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
}

// Contact details of a business
type Contact struct {
	Phone    string `json:"phone"`
	Email    string `json:"email,omitempty"`
	Whatsapp string `json:"whatsapp,omitempty"`
}

// Hours are opening and closing times in HH:MM. Both empty means closed.
type Hours struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

// Schedule is the weekly opening schedule
type Schedule struct {
	Monday    Hours `json:"monday"`
	Tuesday   Hours `json:"tuesday"`
	Wednesday Hours `json:"wednesday"`
	Thursday  Hours `json:"thursday"`
	Friday    Hours `json:"friday"`
	Saturday  Hours `json:"saturday"`
	Sunday    Hours `json:"sunday"`
}

func (s Schedule) days() []struct {
	name  string
	hours Hours
} {
	return []struct {
		name  string
		hours Hours
	}{
		{"monday", s.Monday},
		{"tuesday", s.Tuesday},
		{"wednesday", s.Wednesday},
		{"thursday", s.Thursday},
		{"friday", s.Friday},
		{"saturday", s.Saturday},
		{"sunday", s.Sunday},
	}
}

// Business is a tenant of the platform
type Business struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Logo        string       `json:"logo,omitempty"`
	Address     Address      `json:"address"`
	Contact     Contact      `json:"contact"`
	Services    []ServiceTag `json:"services"`
	Schedule    Schedule     `json:"schedule"`
	Active      bool         `json:"active"`
	OwnerID     string       `json:"ownerId,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

const (
	maxNameLength        = 100
	maxDescriptionLength = 500
)

var (
	phonePattern = regexp.MustCompile(`^\+?[\d\s-]+$`)
	timePattern  = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// Normalize trims free-text fields in place
func (b *Business) Normalize() {
	b.Name = strings.TrimSpace(b.Name)
	b.Description = strings.TrimSpace(b.Description)
	b.Address.Street = strings.TrimSpace(b.Address.Street)
	b.Address.City = strings.TrimSpace(b.Address.City)
	b.Contact.Phone = strings.TrimSpace(b.Contact.Phone)
	b.Contact.Email = strings.ToLower(strings.TrimSpace(b.Contact.Email))
	if b.Services == nil {
		b.Services = []ServiceTag{}
	}
}

// Validate checks every field and reports all problems at once
func (b *Business) Validate() error {
	var v apperrors.Validator

	v.Check(b.Name != "", "name", "name is required")
	v.Check(utf8.RuneCountInString(b.Name) <= maxNameLength, "name",
		fmt.Sprintf("name must be at most %d characters", maxNameLength))
	v.Check(utf8.RuneCountInString(b.Description) <= maxDescriptionLength, "description",
		fmt.Sprintf("description must be at most %d characters", maxDescriptionLength))

	v.Check(b.Address.Street != "", "address.street", "street is required")
	v.Check(b.Address.City != "", "address.city", "city is required")

	switch {
	case b.Contact.Phone == "":
		v.Add("contact.phone", "phone is required")
	case !phonePattern.MatchString(b.Contact.Phone):
		v.Add("contact.phone", "invalid phone format")
	}
	if b.Contact.Email != "" {
		addr, err := mail.ParseAddress(b.Contact.Email)
		v.Check(err == nil && addr.Address == b.Contact.Email, "contact.email", "invalid email")
	}
	if b.Contact.Whatsapp != "" {
		v.Check(phonePattern.MatchString(b.Contact.Whatsapp), "contact.whatsapp", "invalid phone format")
	}

	for _, tag := range b.Services {
		if !knownServices[tag] {
			v.Add("services", fmt.Sprintf("unknown service: %s", tag))
		}
	}

	for _, day := range b.Schedule.days() {
		validateHours(&v, "schedule."+day.name, day.hours)
	}

	return v.Err()
}

func validateHours(v *apperrors.Validator, field string, h Hours) {
	if h.Open == "" && h.Close == "" {
		return
	}
	if !timePattern.MatchString(h.Open) || !timePattern.MatchString(h.Close) {
		v.Add(field, "times must use HH:MM")
		return
	}
	// Zero-padded HH:MM strings order lexically.
	v.Check(h.Open < h.Close, field, "opening time must be before closing time")
}
