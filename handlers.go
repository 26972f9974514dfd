package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"internhub/models"
	"internhub/pkg/importer"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func setupRoutes(r *gin.Engine) {
	api := r.Group("/api")
	api.POST("/login", loginHandler)
	api.GET("/check_auth", checkAuthHandler)

	authGroup := api.Group("")
	authGroup.Use(sessionRequired())
	authGroup.POST("/logout", logoutHandler)

	authGroup.GET("/admin_dashboard_data", roleRequired(RoleAdmin), adminDashboardHandler)
	authGroup.GET("/student_dashboard_data", roleRequired(RoleStudent), studentDashboardHandler)
	authGroup.GET("/coordinator_dashboard_data", roleRequired(RoleCoordinator), coordinatorDashboardHandler)
	authGroup.GET("/mentor_dashboard_data", roleRequired(RoleMentor), mentorDashboardHandler)

	authGroup.GET("/users", roleRequired(RoleAdmin), listUsersHandler)
	authGroup.POST("/add_user", roleRequired(RoleAdmin), addUserHandler)
	authGroup.GET("/business_queries", roleRequired(RoleAdmin), businessQueriesHandler)
	authGroup.GET("/export_report/:report_name", roleRequired(RoleAdmin), exportReportHandler)
	authGroup.POST("/upload_data", roleRequired(RoleAdmin), uploadDataHandler)
	authGroup.GET("/failing_students_count", roleRequired(RoleAdmin), failingStudentsCountHandler)

	authGroup.POST("/apply_internship", roleRequired(RoleStudent), applyInternshipHandler)
	// The original design named an InternshipEvaluator role here, but login
	// can never produce it; mentors and coordinators do the evaluating.
	authGroup.POST("/submit_evaluation", roleRequired(RoleMentor, RoleCoordinator), submitEvaluationHandler)
}

func loginHandler(c *gin.Context) {
	var req struct {
		SSN string `json:"ssn" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	role, err := resolveRole(req.SSN)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error during login: " + err.Error()})
		return
	}
	if role == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid SSN or role not recognized"})
		return
	}
	token, err := mintSessionToken(req.SSN, role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to establish session"})
		return
	}
	// Max-Age 0 => browser-session cookie, cleared when the browser closes.
	c.SetCookie(sessionCookie, token, 0, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "ssn": req.SSN, "role": role})
}

func logoutHandler(c *gin.Context) {
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func checkAuthHandler(c *gin.Context) {
	cookie, err := c.Cookie(sessionCookie)
	if err == nil && cookie != "" {
		if ssn, role, perr := parseSessionToken(cookie); perr == nil {
			c.JSON(http.StatusOK, gin.H{"isAuthenticated": true, "ssn": ssn, "role": role})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"isAuthenticated": false})
}

// --- Role dashboards ---

func adminDashboardHandler(c *gin.Context) {
	var rows []map[string]interface{}
	if err := db.Table("admin_view").Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching admin data: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func studentDashboardHandler(c *gin.Context) {
	ssn := sessionIdentity(c)
	type row struct {
		SSN            string  `json:"ssn"`
		FullName       string  `json:"full_name"`
		Email          string  `json:"email"`
		Grade          *string `json:"grade"`
		CompanyName    *string `json:"company_name"`
		MentorPosition *string `json:"mentor_position"`
		MentorType     *string `json:"mentor_type"`
	}
	var rows []row
	err := db.Raw(`SELECT s.ssn, u.name AS full_name, u.email, e.final_grade AS grade,
			i.company_name, m.position AS mentor_position, m.type AS mentor_type
		FROM students s
		JOIN users u ON s.ssn = u.ssn
		LEFT JOIN internships i ON s.ssn = i.student_ssn
		LEFT JOIN mentors m ON s.mentor_ssn = m.ssn
		LEFT JOIN evaluations e ON s.ssn = e.student_ssn
		WHERE s.ssn = ?`, ssn).Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching student data: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func coordinatorDashboardHandler(c *gin.Context) {
	var rows []map[string]interface{}
	if err := db.Table("coordinator_view").Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching coordinator data: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, rows)
}

func mentorDashboardHandler(c *gin.Context) {
	ssn := sessionIdentity(c)
	type mentorInfo struct {
		MentorType    string `json:"mentor_type"`
		Position      string `json:"position"`
		MentorCompany string `json:"mentor_company"`
	}
	var info mentorInfo
	err := db.Raw(`SELECT m.type AS mentor_type, m.position, m.company_name AS mentor_company
		FROM mentors m WHERE m.ssn = ?`, ssn).Scan(&info).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching mentor data: " + err.Error()})
		return
	}
	type studentRow struct {
		SSN          string  `json:"ssn"`
		StudentName  string  `json:"student_name"`
		StudentEmail string  `json:"student_email"`
		CompanyName  *string `json:"company_name"`
		StartDate    *string `json:"start_date"`
		EndDate      *string `json:"end_date"`
		FinalGrade   *string `json:"final_grade"`
		Comments     *string `json:"comments"`
	}
	var students []studentRow
	err = db.Raw(`SELECT s.ssn, u.name AS student_name, u.email AS student_email,
			i.company_name, i.start_date, i.end_date,
			e.final_grade, e.comments
		FROM students s
		JOIN users u ON s.ssn = u.ssn
		LEFT JOIN internships i ON s.ssn = i.student_ssn
		LEFT JOIN evaluations e ON s.ssn = e.student_ssn
		WHERE s.mentor_ssn = ?`, ssn).Scan(&students).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching mentor data: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mentor_info": info, "students": students})
}

// --- User administration ---

func listUsersHandler(c *gin.Context) {
	var users []models.User
	if err := db.Order("ssn").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching users: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, users)
}

func addUserHandler(c *gin.Context) {
	var req struct {
		SSN         string `json:"ssn"`
		Name        string `json:"name"`
		Email       string `json:"email"`
		Address     string `json:"address"`
		DateOfBirth string `json:"date_of_birth"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	// Address is the one optional field, as in the upload schema.
	if req.SSN == "" || req.Name == "" || req.Email == "" || req.DateOfBirth == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "SSN, Name, Email, and Date of Birth are required."})
		return
	}
	u := models.User{SSN: req.SSN, Name: req.Name, Email: req.Email, Address: req.Address, DateOfBirth: req.DateOfBirth}
	if err := db.Create(&u).Error; err != nil {
		if importer.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"message": "Error: User with SSN '" + req.SSN + "' already exists or invalid data."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error adding user: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User added successfully!"})
}

// --- Internship and evaluation flows ---

func applyInternshipHandler(c *gin.Context) {
	ssn := sessionIdentity(c)
	var req struct {
		CompanyName    string  `json:"company_name" binding:"required"`
		StartDate      string  `json:"start_date" binding:"required"`
		EndDate        string  `json:"end_date" binding:"required"`
		MentorSSN      *string `json:"mentor_id"`
		CoordinatorSSN string  `json:"coordinator_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	var existing models.Internship
	if err := db.Where("student_ssn = ?", ssn).First(&existing).Error; err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Student already has an internship assigned"})
		return
	}
	in := models.Internship{
		StudentSSN:     ssn,
		CompanyName:    req.CompanyName,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		MentorSSN:      req.MentorSSN,
		CoordinatorSSN: req.CoordinatorSSN,
	}
	if err := db.Create(&in).Error; err != nil {
		if importer.IsUniqueViolation(err) {
			c.JSON(http.StatusConflict, gin.H{"message": "Student already has an internship assigned"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Internship application submitted successfully"})
}

func submitEvaluationHandler(c *gin.Context) {
	evaluator := sessionIdentity(c)
	var req struct {
		StudentSSN       string `json:"student_id" binding:"required"`
		FinalGrade       string `json:"final_grade" binding:"required"`
		Comments         string `json:"comments"`
		PerformanceScore int    `json:"performance_score"`
		CoordinatorSSN   string `json:"coordinator_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	var internship models.Internship
	if err := db.Where("student_ssn = ?", req.StudentSSN).First(&internship).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "Student not found or no internship assigned"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error: " + err.Error()})
		return
	}
	ev := models.Evaluation{
		StudentSSN:       req.StudentSSN,
		FinalGrade:       req.FinalGrade,
		Comments:         req.Comments,
		PerformanceScore: req.PerformanceScore,
		EvaluatorSSN:     evaluator,
		CoordinatorSSN:   req.CoordinatorSSN,
	}
	// One evaluation per student; resubmission overwrites it.
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_ssn"}},
		UpdateAll: true,
	}).Create(&ev).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Evaluation submitted successfully"})
}

// --- Bulk upload ---

// uploadDataHandler is the HTTP intake for the import pipeline: gate the
// multipart part and its extension, stage the file under the upload base dir,
// run the pipeline, and always remove the staged file on the way out.
func uploadDataHandler(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No file part"})
		return
	}
	if file.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "No selected file"})
		return
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(file.Filename), "."))
	if ext != "csv" && ext != "xlsx" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Allowed file types are CSV, XLSX"})
		return
	}

	base := uploadBaseDir()
	if err := os.MkdirAll(base, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "upload staging failed"})
		return
	}
	dst := filepath.Join(base, filepath.Base(file.Filename))
	defer os.Remove(dst) // staged copy never outlives the request
	if err := c.SaveUploadedFile(file, dst); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "upload staging failed"})
		return
	}

	written, err := importer.Run(db, dst, file.Filename)
	if err != nil {
		status, msg := importErrorResponse(err)
		c.JSON(status, gin.H{"message": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("File uploaded and %d rows processed successfully for 'User' table!", written)})
}

// importErrorResponse maps pipeline errors onto the status taxonomy:
// validation problems 400, duplicates 409, store faults 500.
func importErrorResponse(err error) (int, string) {
	var (
		unreadable *importer.UnreadableError
		schemaErr  *importer.SchemaError
		rowErr     *importer.RowError
		conflict   *importer.ConflictError
		storeErr   *importer.StoreError
	)
	switch {
	case errors.Is(err, importer.ErrEmptyFile):
		return http.StatusBadRequest, "File is empty."
	case errors.Is(err, importer.ErrMalformedFile):
		return http.StatusBadRequest, "Could not parse file. Please ensure it is correctly formatted."
	case errors.As(err, &unreadable):
		return http.StatusBadRequest, unreadable.Error()
	case errors.As(err, &schemaErr):
		return http.StatusBadRequest, schemaErr.Error()
	case errors.As(err, &rowErr):
		return http.StatusBadRequest, rowErr.Error()
	case errors.As(err, &conflict):
		return http.StatusConflict, "Database error: Duplicate entry found. Data rolled back."
	case errors.As(err, &storeErr):
		return http.StatusInternalServerError, storeErr.Error() + ". Data rolled back."
	default:
		return http.StatusInternalServerError, "An unexpected error occurred during file processing: " + err.Error()
	}
}
