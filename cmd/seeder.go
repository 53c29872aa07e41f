package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample accounts for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		db, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			for _, table := range []string{"audit_logs", "lab_tests", "prescriptions", "clinical_notes", "consent_grants", "doctor_profiles", "patient_profiles", "users"} {
				if err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
					log.Fatalf("failed to clear table %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		accounts := []struct {
			Email    string
			Name     string
			ForeName string
			Gender   string
			Role     string
			Active   bool
		}{
			{"admin@santerec.dev", "Admin", "System", "M", "admin", true},
			{"alice@santerec.dev", "Durand", "Alice", "F", "patient", true},
			{"mensah@santerec.dev", "Mensah", "Kofi", "M", "doctor", true},
			{"centralab@santerec.dev", "Central Lab", "Accra", "F", "laboratory", true},
			{"pending@santerec.dev", "Pending", "Doctor", "M", "doctor", false},
		}

		for _, a := range accounts {
			var exists int
			if err := db.Raw("SELECT 1 FROM users WHERE email = ?", a.Email).Row().Scan(&exists); err == nil {
				fmt.Println("user already exists, skipping:", a.Email)
				continue
			}

			if err := db.Exec(
				"INSERT INTO users (email, password_hash, name, forename, gender, role, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, now(), now())",
				a.Email, string(hash), a.Name, a.ForeName, a.Gender, a.Role, a.Active,
			).Error; err != nil {
				log.Fatalf("failed to insert user %s: %v", a.Email, err)
			}
			fmt.Println("Seeded user:", a.Email)
		}

		var patientID int64
		if err := db.Raw("SELECT id FROM users WHERE email = ?", "alice@santerec.dev").Row().Scan(&patientID); err != nil {
			log.Fatalf("failed to lookup patient id: %v", err)
		}

		var exists int
		if err := db.Raw("SELECT 1 FROM patient_profiles WHERE user_id = ?", patientID).Row().Scan(&exists); err != nil {
			if err := db.Exec(
				"INSERT INTO patient_profiles (user_id, allergies, diseases, genotype, blood_group) VALUES (?, ?, ?, ?, ?)",
				patientID, "penicillin", "", "AA", "O+",
			).Error; err != nil {
				log.Fatalf("failed to insert patient profile: %v", err)
			}
			fmt.Println("Seeded patient profile for alice@santerec.dev")
		}

		var doctorID int64
		if err := db.Raw("SELECT id FROM users WHERE email = ?", "mensah@santerec.dev").Row().Scan(&doctorID); err != nil {
			log.Fatalf("failed to lookup doctor id: %v", err)
		}

		if err := db.Raw("SELECT 1 FROM doctor_profiles WHERE user_id = ?", doctorID).Row().Scan(&exists); err != nil {
			if err := db.Exec(
				"INSERT INTO doctor_profiles (user_id, hospital) VALUES (?, ?)",
				doctorID, "Korle Bu Teaching Hospital",
			).Error; err != nil {
				log.Fatalf("failed to insert doctor profile: %v", err)
			}
			fmt.Println("Seeded doctor profile for mensah@santerec.dev")
		}

		fmt.Println("Database seeded successfully")
	},
}
