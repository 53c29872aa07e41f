package user

import (
	"errors"
	"strings"
	"time"
)

// RegisterDTO is the shared payload for all three registration endpoints.
// The role is fixed by the endpoint, never taken from the client.
type RegisterDTO struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
	Name            string `json:"name" validate:"required,max=50"`
	ForeName        string `json:"forename" validate:"required,max=50"`
	Phone           string `json:"phone,omitempty"`
	DateOfBirth     string `json:"date_of_birth,omitempty"`
	Gender          string `json:"gender" validate:"required,oneof=M F"`
	Address         string `json:"address,omitempty"`
}

func (dto RegisterDTO) Validate() error {
	if dto.Email == "" || !strings.Contains(dto.Email, "@") {
		return errors.New("a valid email is required")
	}
	if len(dto.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if dto.Password != dto.ConfirmPassword {
		return errors.New("password and confirmation do not match")
	}
	if dto.Name == "" {
		return errors.New("name is required")
	}
	if dto.ForeName == "" {
		return errors.New("forename is required")
	}
	if dto.Gender != string(GenderMale) && dto.Gender != string(GenderFemale) {
		return errors.New("gender must be M or F")
	}
	if dto.DateOfBirth != "" {
		if _, err := time.Parse("2006-01-02", dto.DateOfBirth); err != nil {
			return errors.New("date_of_birth must be YYYY-MM-DD")
		}
	}
	return nil
}

func (dto RegisterDTO) BirthDate() *time.Time {
	if dto.DateOfBirth == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", dto.DateOfBirth)
	if err != nil {
		return nil
	}
	return &t
}

// RegisterPatientDTO adds the clinical baseline fields.
type RegisterPatientDTO struct {
	RegisterDTO
	Allergies  string `json:"allergies,omitempty"`
	Diseases   string `json:"diseases,omitempty"`
	Genotype   string `json:"genotype,omitempty"`
	BloodGroup string `json:"blood_group" validate:"required"`
}

func (dto RegisterPatientDTO) Validate() error {
	if err := dto.RegisterDTO.Validate(); err != nil {
		return err
	}
	if !validBloodGroups[dto.BloodGroup] {
		return errors.New("invalid blood group")
	}
	if dto.Genotype != "" && !validGenotypes[dto.Genotype] {
		return errors.New("invalid genotype")
	}
	return nil
}

type RegisterDoctorDTO struct {
	RegisterDTO
	Hospital string `json:"hospital,omitempty"`
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

func (dto ChangePasswordDTO) Validate() error {
	if dto.CurrentPassword == "" {
		return errors.New("current_password is required")
	}
	if len(dto.NewPassword) < 8 {
		return errors.New("new password must be at least 8 characters")
	}
	if dto.NewPassword != dto.ConfirmPassword {
		return errors.New("password and confirmation do not match")
	}
	return nil
}

// Sanitized is the user view safe to return in API responses.
type Sanitized struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	ForeName    string     `json:"forename"`
	Phone       string     `json:"phone,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Gender      Gender     `json:"gender"`
	Address     string     `json:"address,omitempty"`
	Role        Role       `json:"role"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (u *User) Sanitize() Sanitized {
	return Sanitized{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		ForeName:    u.ForeName,
		Phone:       u.Phone,
		DateOfBirth: u.DateOfBirth,
		Gender:      u.Gender,
		Address:     u.Address,
		Role:        u.Role,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
	}
}
