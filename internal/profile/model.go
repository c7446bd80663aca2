package profile

import "time"

// Profile is the vendor's business profile, one row per account.
type Profile struct {
	UserID         string    `json:"user_id"`
	FullName       string    `json:"full_name"`
	BusinessName   string    `json:"business_name"`
	BusinessType   string    `json:"business_type"`
	Description    string    `json:"description"`
	Location       string    `json:"location"`
	Phone          string    `json:"phone"`
	WhatsApp       string    `json:"whatsapp"`
	WorkingHours   string    `json:"working_hours"`
	PaymentMethods []string  `json:"payment_methods"`
	DeliveryAreas  []string  `json:"delivery_areas"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Fields is the writable part of a profile. Update replaces all of them.
type Fields struct {
	FullName       string
	BusinessName   string
	BusinessType   string
	Description    string
	Location       string
	Phone          string
	WhatsApp       string
	WorkingHours   string
	PaymentMethods []string
	DeliveryAreas  []string
}

func (f Fields) apply(p *Profile) {
	p.FullName = f.FullName
	p.BusinessName = f.BusinessName
	p.BusinessType = f.BusinessType
	p.Description = f.Description
	p.Location = f.Location
	p.Phone = f.Phone
	p.WhatsApp = f.WhatsApp
	p.WorkingHours = f.WorkingHours
	p.PaymentMethods = append([]string(nil), f.PaymentMethods...)
	p.DeliveryAreas = append([]string(nil), f.DeliveryAreas...)
}
