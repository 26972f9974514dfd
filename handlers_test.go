package main

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"internhub/models"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestRouter points the package globals at a throwaway sqlite store and
// returns a router with the full route table mounted.
func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwtSecret = []byte("test-secret")
	var err error
	db, err = gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "api.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	migrateAll(db)
	t.Setenv("UPLOAD_BASE", t.TempDir())
	r := gin.New()
	setupRoutes(r)
	return r
}

// performRequest sends a request through the router, attaching the session
// cookie when one is given.
func performRequest(r http.Handler, method, path string, body io.Reader, cookie *http.Cookie, contentType string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func seedIdentity(t *testing.T, ssn, name, email string) {
	t.Helper()
	if err := db.Create(&models.User{SSN: ssn, Name: name, Email: email, DateOfBirth: "1990-01-01"}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

// loginAs seeds the membership row for the wanted role, logs in over the API
// and returns the session cookie.
func loginAs(t *testing.T, r http.Handler, ssn string, role Role) *http.Cookie {
	t.Helper()
	seedIdentity(t, ssn, "Person "+ssn, ssn+"@internhub.local")
	var err error
	switch role {
	case RoleAdmin:
		err = db.Create(&models.Admin{SSN: ssn}).Error
	case RoleStudent:
		err = db.Create(&models.Student{SSN: ssn}).Error
	case RoleCoordinator:
		err = db.Create(&models.InternshipCoordinator{SSN: ssn}).Error
	case RoleMentor:
		err = db.Create(&models.Mentor{SSN: ssn}).Error
	}
	if err != nil {
		t.Fatalf("seed membership: %v", err)
	}
	body, _ := json.Marshal(map[string]string{"ssn": ssn})
	resp := performRequest(r, http.MethodPost, "/api/login", bytes.NewBuffer(body), nil, "application/json")
	if resp.Code != http.StatusOK {
		t.Fatalf("login failed status=%d body=%s", resp.Code, resp.Body.String())
	}
	for _, ck := range resp.Result().Cookies() {
		if ck.Name == sessionCookie {
			return ck
		}
	}
	t.Fatalf("login response carried no session cookie")
	return nil
}

func multipartFile(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	if field != "" {
		w, err := mw.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		if _, err := w.Write(content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	_ = mw.Close()
	return buf, mw.FormDataContentType()
}

func stagedUploads(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(uploadBaseDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read upload dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestLoginUnknownIdentity(t *testing.T) {
	r := setupTestRouter(t)
	body, _ := json.Marshal(map[string]string{"ssn": "nobody"})
	resp := performRequest(r, http.MethodPost, "/api/login", bytes.NewBuffer(body), nil, "application/json")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d body=%s", resp.Code, resp.Body.String())
	}
	// no session may be established on a failed login
	check := performRequest(r, http.MethodGet, "/api/check_auth", nil, nil, "")
	var auth map[string]any
	_ = json.Unmarshal(check.Body.Bytes(), &auth)
	if auth["isAuthenticated"] != false {
		t.Fatalf("expected unauthenticated check_auth, got %v", auth)
	}
}

func TestSessionLifecycle(t *testing.T) {
	r := setupTestRouter(t)
	cookie := loginAs(t, r, "111", RoleAdmin)

	resp := performRequest(r, http.MethodGet, "/api/check_auth", nil, cookie, "")
	var auth map[string]any
	_ = json.Unmarshal(resp.Body.Bytes(), &auth)
	if auth["isAuthenticated"] != true || auth["role"] != "Admin" || auth["ssn"] != "111" {
		t.Fatalf("check_auth wrong: %v", auth)
	}

	resp = performRequest(r, http.MethodPost, "/api/logout", nil, cookie, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("logout failed status=%d", resp.Code)
	}
	// logout without a session is a 401
	resp = performRequest(r, http.MethodPost, "/api/logout", nil, nil, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRoleGating(t *testing.T) {
	r := setupTestRouter(t)
	// no session at all
	resp := performRequest(r, http.MethodGet, "/api/users", nil, nil, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	// student session on an admin endpoint
	cookie := loginAs(t, r, "222", RoleStudent)
	resp = performRequest(r, http.MethodGet, "/api/users", nil, cookie, "")
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d body=%s", resp.Code, resp.Body.String())
	}
}

func TestAddUserStatuses(t *testing.T) {
	r := setupTestRouter(t)
	cookie := loginAs(t, r, "333", RoleAdmin)

	user := map[string]string{"ssn": "500", "name": "New", "email": "new@x.com", "address": "addr", "date_of_birth": "2001-02-03"}
	body, _ := json.Marshal(user)
	resp := performRequest(r, http.MethodPost, "/api/add_user", bytes.NewBuffer(body), cookie, "application/json")
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", resp.Code, resp.Body.String())
	}

	// same key again is a conflict, not an update
	body, _ = json.Marshal(user)
	resp = performRequest(r, http.MethodPost, "/api/add_user", bytes.NewBuffer(body), cookie, "application/json")
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d body=%s", resp.Code, resp.Body.String())
	}

	// missing required field
	body, _ = json.Marshal(map[string]string{"ssn": "501", "name": "NoEmail", "date_of_birth": "2001-02-03"})
	resp = performRequest(r, http.MethodPost, "/api/add_user", bytes.NewBuffer(body), cookie, "application/json")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", resp.Code, resp.Body.String())
	}
}

func TestUploadDataIntake(t *testing.T) {
	r := setupTestRouter(t)
	cookie := loginAs(t, r, "444", RoleAdmin)

	// no file part
	buf, ct := multipartFile(t, "", "", nil)
	resp := performRequest(r, http.MethodPost, "/api/upload_data", buf, cookie, ct)
	if resp.Code != http.StatusBadRequest || !strings.Contains(resp.Body.String(), "No file part") {
		t.Fatalf("expected 400 no-file got %d body=%s", resp.Code, resp.Body.String())
	}

	// unsupported extension, rejected before staging
	buf, ct = multipartFile(t, "file", "users.txt", []byte("ssn,name\n"))
	resp = performRequest(r, http.MethodPost, "/api/upload_data", buf, cookie, ct)
	if resp.Code != http.StatusBadRequest || !strings.Contains(resp.Body.String(), "Allowed file types") {
		t.Fatalf("expected 400 bad-extension got %d body=%s", resp.Code, resp.Body.String())
	}
	if left := stagedUploads(t); len(left) != 0 {
		t.Fatalf("rejected upload left staged files: %v", left)
	}
}

func TestUploadDataSchemaMismatch(t *testing.T) {
	r := setupTestRouter(t)
	cookie := loginAs(t, r, "555", RoleAdmin)

	buf, ct := multipartFile(t, "file", "users.csv", []byte("ssn,name\n1,Alice\n"))
	resp := performRequest(r, http.MethodPost, "/api/upload_data", buf, cookie, ct)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d body=%s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "Missing columns: address, date_of_birth, email") {
		t.Fatalf("missing set not named/sorted: %s", resp.Body.String())
	}
	var n int64
	db.Model(&models.User{}).Where("ssn = ?", "1").Count(&n)
	if n != 0 {
		t.Fatalf("schema mismatch must not write")
	}
	if left := stagedUploads(t); len(left) != 0 {
		t.Fatalf("failed upload left staged files: %v", left)
	}
}

func TestUploadDataUpsertTwice(t *testing.T) {
	r := setupTestRouter(t)
	cookie := loginAs(t, r, "666", RoleAdmin)

	csvBody := []byte("ssn,name,email,address,date_of_birth\n999,\"A\",\"a@x.com\",\"addr\",\"2000-01-01\"\n")
	for i := 0; i < 2; i++ {
		buf, ct := multipartFile(t, "file", "users.csv", csvBody)
		resp := performRequest(r, http.MethodPost, "/api/upload_data", buf, cookie, ct)
		if resp.Code != http.StatusOK {
			t.Fatalf("upload %d failed status=%d body=%s", i+1, resp.Code, resp.Body.String())
		}
		if !strings.Contains(resp.Body.String(), "1 rows processed") {
			t.Fatalf("upload %d wrong count message: %s", i+1, resp.Body.String())
		}
	}
	var n int64
	db.Model(&models.User{}).Where("ssn = ?", "999").Count(&n)
	if n != 1 {
		t.Fatalf("expected exactly one row for ssn=999, got %d", n)
	}
	if left := stagedUploads(t); len(left) != 0 {
		t.Fatalf("successful upload left staged files: %v", left)
	}
}

func TestUploadDataEmptyFile(t *testing.T) {
	r := setupTestRouter(t)
	cookie := loginAs(t, r, "777", RoleAdmin)

	buf, ct := multipartFile(t, "file", "users.csv", nil)
	resp := performRequest(r, http.MethodPost, "/api/upload_data", buf, cookie, ct)
	if resp.Code != http.StatusBadRequest || !strings.Contains(resp.Body.String(), "File is empty.") {
		t.Fatalf("expected 400 empty-file got %d body=%s", resp.Code, resp.Body.String())
	}
}

func TestExportReport(t *testing.T) {
	r := setupTestRouter(t)
	cookie := loginAs(t, r, "888", RoleAdmin)

	resp := performRequest(r, http.MethodGet, "/api/export_report/bogus", nil, cookie, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown report got %d", resp.Code)
	}

	resp = performRequest(r, http.MethodGet, "/api/export_report/low_grade_students", nil, cookie, "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for empty report got %d body=%s", resp.Code, resp.Body.String())
	}

	// seed one failing student
	seedIdentity(t, "900", "Failing Student", "fail@x.com")
	if err := db.Create(&models.Student{SSN: "900"}).Error; err != nil {
		t.Fatalf("seed student: %v", err)
	}
	if err := db.Create(&models.Evaluation{StudentSSN: "900", FinalGrade: "F", EvaluatorSSN: "888"}).Error; err != nil {
		t.Fatalf("seed evaluation: %v", err)
	}
	resp = performRequest(r, http.MethodGet, "/api/export_report/low_grade_students", nil, cookie, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", resp.Code, resp.Body.String())
	}
	if cd := resp.Header().Get("Content-Disposition"); !strings.Contains(cd, "low_grade_students.csv") {
		t.Fatalf("wrong content disposition: %q", cd)
	}
	if body := resp.Body.String(); !strings.Contains(body, "900,Failing Student,F") {
		t.Fatalf("csv body missing row: %s", body)
	}
}

func TestApplyInternshipOncePerStudent(t *testing.T) {
	r := setupTestRouter(t)
	cookie := loginAs(t, r, "123", RoleStudent)

	app := map[string]any{"company_name": "Acme", "start_date": "2026-01-01", "end_date": "2026-06-30", "coordinator_id": "777"}
	body, _ := json.Marshal(app)
	resp := performRequest(r, http.MethodPost, "/api/apply_internship", bytes.NewBuffer(body), cookie, "application/json")
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", resp.Code, resp.Body.String())
	}

	body, _ = json.Marshal(app)
	resp = performRequest(r, http.MethodPost, "/api/apply_internship", bytes.NewBuffer(body), cookie, "application/json")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for second application got %d body=%s", resp.Code, resp.Body.String())
	}
}

func TestSubmitEvaluationUpserts(t *testing.T) {
	r := setupTestRouter(t)
	cookie := loginAs(t, r, "321", RoleMentor)

	// unknown student
	body, _ := json.Marshal(map[string]any{"student_id": "nope", "final_grade": "B"})
	resp := performRequest(r, http.MethodPost, "/api/submit_evaluation", bytes.NewBuffer(body), cookie, "application/json")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d body=%s", resp.Code, resp.Body.String())
	}

	// student with an internship
	seedIdentity(t, "654", "Eval Student", "eval@x.com")
	if err := db.Create(&models.Student{SSN: "654"}).Error; err != nil {
		t.Fatalf("seed student: %v", err)
	}
	if err := db.Create(&models.Internship{StudentSSN: "654", CompanyName: "Acme", CoordinatorSSN: "777"}).Error; err != nil {
		t.Fatalf("seed internship: %v", err)
	}
	body, _ = json.Marshal(map[string]any{"student_id": "654", "final_grade": "C", "comments": "ok"})
	resp = performRequest(r, http.MethodPost, "/api/submit_evaluation", bytes.NewBuffer(body), cookie, "application/json")
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", resp.Code, resp.Body.String())
	}

	// resubmission overwrites rather than duplicating
	body, _ = json.Marshal(map[string]any{"student_id": "654", "final_grade": "A", "comments": "improved"})
	resp = performRequest(r, http.MethodPost, "/api/submit_evaluation", bytes.NewBuffer(body), cookie, "application/json")
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", resp.Code, resp.Body.String())
	}
	var evs []models.Evaluation
	if err := db.Where("student_ssn = ?", "654").Find(&evs).Error; err != nil {
		t.Fatalf("load evaluations: %v", err)
	}
	if len(evs) != 1 || evs[0].FinalGrade != "A" || evs[0].EvaluatorSSN != "321" {
		t.Fatalf("evaluation not upserted: %+v", evs)
	}
}
