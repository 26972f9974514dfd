package main

import (
	"log"
	"os"
	"strings"

	"internhub/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var db *gorm.DB

func initDB() {
	var err error
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN is not set. This project requires a Postgres DSN in DB_DSN.")
	}
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect postgres database:", err)
	}
	// Control schema migrations with env DB_AUTO_MIGRATE (default true). Any permission errors will be logged and ignored.
	shouldMigrate := true
	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		lv := strings.ToLower(v)
		if lv == "false" || lv == "0" || lv == "no" {
			shouldMigrate = false
		}
	}
	if shouldMigrate {
		migrateAll(db)
		if err := createDatabaseObjects(); err != nil {
			log.Printf("warning: creating views/functions failed: %v", err)
		}
	}
	seedDB()
}

// migrateAll migrates models individually so a failure on one doesn't block
// others. Users go first so the membership tables can apply their FKs.
func migrateAll(d *gorm.DB) {
	if err := d.AutoMigrate(&models.User{}); err != nil {
		log.Printf("migration warning (users): %v", err)
	}
	if err := d.AutoMigrate(&models.Admin{}); err != nil {
		log.Printf("migration warning (admins): %v", err)
	}
	if err := d.AutoMigrate(&models.Student{}); err != nil {
		log.Printf("migration warning (students): %v", err)
	}
	if err := d.AutoMigrate(&models.Mentor{}); err != nil {
		log.Printf("migration warning (mentors): %v", err)
	}
	if err := d.AutoMigrate(&models.InternshipCoordinator{}); err != nil {
		log.Printf("migration warning (internship_coordinators): %v", err)
	}
	if err := d.AutoMigrate(&models.Internship{}); err != nil {
		log.Printf("migration warning (internships): %v", err)
	}
	if err := d.AutoMigrate(&models.Evaluation{}); err != nil {
		log.Printf("migration warning (evaluations): %v", err)
	}
}

// createDatabaseObjects creates the reporting views and the failing-students
// counting function. AutoMigrate cannot express these, so raw DDL it is.
func createDatabaseObjects() error {
	if err := db.Exec(`CREATE OR REPLACE VIEW admin_view AS
		SELECT u.ssn, u.name, u.email, u.address, u.date_of_birth,
		       CASE
		           WHEN a.ssn IS NOT NULL THEN 'Admin'
		           WHEN s.ssn IS NOT NULL THEN 'Student'
		           WHEN ic.ssn IS NOT NULL THEN 'InternshipCoordinator'
		           WHEN m.ssn IS NOT NULL THEN 'Mentor'
		       END AS role,
		       i.company_name, i.start_date, i.end_date
		FROM users u
		LEFT JOIN admins a ON a.ssn = u.ssn
		LEFT JOIN students s ON s.ssn = u.ssn
		LEFT JOIN internship_coordinators ic ON ic.ssn = u.ssn
		LEFT JOIN mentors m ON m.ssn = u.ssn
		LEFT JOIN internships i ON i.student_ssn = u.ssn`).Error; err != nil {
		return err
	}
	if err := db.Exec(`CREATE OR REPLACE VIEW coordinator_view AS
		SELECT s.ssn, u.name AS student_name, u.email,
		       i.company_name, i.start_date, i.end_date,
		       e.final_grade, e.performance_score
		FROM students s
		JOIN users u ON u.ssn = s.ssn
		LEFT JOIN internships i ON i.student_ssn = s.ssn
		LEFT JOIN evaluations e ON e.student_ssn = s.ssn`).Error; err != nil {
		return err
	}
	return db.Exec(`CREATE OR REPLACE FUNCTION count_failing_students() RETURNS integer AS $$
		SELECT count(*)::integer FROM evaluations WHERE final_grade IN ('D', 'F')
	$$ LANGUAGE sql STABLE`).Error
}

func seedDB() {
	// Seed a bootstrap admin so the API is reachable on a fresh database.
	ssn := os.Getenv("SEED_ADMIN_SSN")
	if ssn == "" {
		ssn = "000000000"
	}
	var count int64
	db.Model(&models.Admin{}).Where("ssn = ?", ssn).Count(&count)
	if count == 0 {
		admin := models.User{SSN: ssn, Name: "System Administrator", Email: "admin@internhub.local"}
		if err := db.Where("ssn = ?", ssn).FirstOrCreate(&admin).Error; err != nil {
			log.Printf("failed to seed admin user: %v", err)
			return
		}
		if err := db.Create(&models.Admin{SSN: ssn}).Error; err != nil {
			log.Printf("failed to seed admin membership: %v", err)
			return
		}
		log.Println("Seeded admin identity:", ssn)
	}
	// Ensure upload directory exists
	ensureUploadBase()
}

// ensureUploadBase creates the base uploads directory.
func ensureUploadBase() {
	base := uploadBaseDir()
	if err := os.MkdirAll(base, 0755); err != nil {
		log.Printf("failed to create upload base dir %s: %v", base, err)
	}
}

// uploadBaseDir returns the staging directory for uploads (configurable via UPLOAD_BASE env)
func uploadBaseDir() string {
	if v := os.Getenv("UPLOAD_BASE"); v != "" {
		return v
	}
	return "uploads"
}
