package user

import (
	"errors"
	"time"
)

// Role is the immutable role tag assigned at registration. Authorization
// decisions dispatch on it with explicit matching, never inheritance.
type Role string

const (
	RolePatient    Role = "patient"
	RoleDoctor     Role = "doctor"
	RoleLaboratory Role = "laboratory"
	RoleAdmin      Role = "admin"
)

func (r Role) IsProfessional() bool {
	return r == RoleDoctor || r == RoleLaboratory
}

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RolePatient, RoleDoctor, RoleLaboratory, RoleAdmin:
		return Role(s), true
	}
	return "", false
}

type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// User is the identity row. Professionals (doctor, laboratory) are created
// inactive and stay that way until an admin validates the account; patients
// are active on creation.
type User struct {
	ID           int64      `json:"id" gorm:"primaryKey"`
	Email        string     `json:"email" gorm:"column:email;uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"column:password_hash;not null"`
	Name         string     `json:"name" gorm:"column:name;not null"`
	ForeName     string     `json:"forename" gorm:"column:forename;not null"`
	Phone        string     `json:"phone,omitempty" gorm:"column:phone"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty" gorm:"column:date_of_birth;type:date"`
	Gender       Gender     `json:"gender" gorm:"column:gender;not null"`
	Address      string     `json:"address,omitempty" gorm:"column:address"`
	Role         Role       `json:"role" gorm:"column:role;not null"`
	IsActive     bool       `json:"is_active" gorm:"column:is_active;default:false"`
	CreatedAt    time.Time  `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

// PatientProfile holds the clinical baseline captured at patient
// registration.
type PatientProfile struct {
	ID         int64  `json:"id" gorm:"primaryKey"`
	UserID     int64  `json:"user_id" gorm:"column:user_id;not null;index"`
	Allergies  string `json:"allergies,omitempty" gorm:"column:allergies"`
	Diseases   string `json:"diseases,omitempty" gorm:"column:diseases"`
	Genotype   string `json:"genotype,omitempty" gorm:"column:genotype"`
	BloodGroup string `json:"blood_group" gorm:"column:blood_group;not null"`
}

func (PatientProfile) TableName() string {
	return "patient_profiles"
}

type DoctorProfile struct {
	ID       int64  `json:"id" gorm:"primaryKey"`
	UserID   int64  `json:"user_id" gorm:"column:user_id;not null;index"`
	Hospital string `json:"hospital" gorm:"column:hospital"`
}

func (DoctorProfile) TableName() string {
	return "doctor_profiles"
}

var validGenotypes = map[string]bool{
	"AA": true, "AS": true, "SS": true, "AC": true, "SC": true,
}

var validBloodGroups = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true,
	"AB+": true, "AB-": true, "O+": true, "O-": true,
}

// Domain errors
var (
	ErrNotFound      = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrNotAPro       = errors.New("user is not a health professional")
	ErrAlreadyActive = errors.New("account is already active")
	ErrWrongPassword = errors.New("current password does not match")
)
