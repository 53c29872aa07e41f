package consent

import "errors"

// GrantAccessDTO is the payload a patient sends to authorize a professional.
type GrantAccessDTO struct {
	ProfessionalEmail string `json:"professional_email" validate:"required,email"`
	ExpirationDays    int    `json:"expiration_days" validate:"required,min=1"`
}

func (dto GrantAccessDTO) Validate() error {
	if dto.ProfessionalEmail == "" {
		return errors.New("professional_email is required")
	}
	if dto.ExpirationDays <= 0 {
		return errors.New("expiration_days must be greater than 0")
	}
	if dto.ExpirationDays > 365 {
		return errors.New("expiration_days must not exceed 365")
	}
	return nil
}
