package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type lowGradeRow struct {
	SSN        string `json:"ssn"`
	Name       string `json:"name"`
	FinalGrade string `json:"final_grade"`
}

const lowGradeStudentsSQL = `SELECT s.ssn, u.name, e.final_grade
	FROM students s
	JOIN evaluations e ON s.ssn = e.student_ssn
	JOIN users u ON s.ssn = u.ssn
	WHERE e.final_grade IN ('D', 'F')`

// businessQueriesHandler bundles the six fixed aggregate reports into one
// response, keyed as the original dashboard expects.
func businessQueriesHandler(c *gin.Context) {
	results := gin.H{}

	// 1. Internship with highest grade
	type highestGrade struct {
		CompanyName  string `json:"company_name"`
		HighestGrade string `json:"highest_grade"`
	}
	var hg highestGrade
	res := db.Raw(`SELECT i.company_name, MAX(e.final_grade) AS highest_grade
		FROM evaluations e JOIN internships i ON e.student_ssn = i.student_ssn
		GROUP BY i.company_name ORDER BY highest_grade DESC LIMIT 1`).Scan(&hg)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error running business queries: " + res.Error.Error()})
		return
	}
	if res.RowsAffected > 0 {
		results["highest_grade_internship"] = hg
	} else {
		results["highest_grade_internship"] = nil
	}

	// 2. Most selected mentor positions among A/A+ students
	type mentorCount struct {
		Position string `json:"position"`
		Count    int    `json:"count"`
	}
	var mc []mentorCount
	if err := db.Raw(`SELECT m.position, COUNT(*) AS count
		FROM mentors m
		JOIN students s ON m.ssn = s.mentor_ssn
		JOIN evaluations e ON s.ssn = e.student_ssn
		WHERE e.final_grade IN ('A', 'A+')
		GROUP BY m.position ORDER BY count DESC`).Scan(&mc).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error running business queries: " + err.Error()})
		return
	}
	results["most_selected_mentor"] = mc

	// 3. Number of students per internship coordinator
	type coordinatorCount struct {
		CoordinatorName string `json:"coordinator_name"`
		TotalStudents   int    `json:"total_students"`
	}
	var cc []coordinatorCount
	if err := db.Raw(`SELECT u.name AS coordinator_name, COUNT(DISTINCT i.student_ssn) AS total_students
		FROM internship_coordinators ic
		JOIN users u ON u.ssn = ic.ssn
		JOIN internships i ON i.coordinator_ssn = ic.ssn
		GROUP BY u.name`).Scan(&cc).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error running business queries: " + err.Error()})
		return
	}
	results["students_per_coordinator"] = cc

	// 4. External evaluations and internal mentor guidance
	type evaluationGuidance struct {
		SSN            string `json:"ssn"`
		Evaluation     string `json:"evaluation"`
		MentorPosition string `json:"mentor_position"`
	}
	var eg []evaluationGuidance
	if err := db.Raw(`SELECT s.ssn, e.comments AS evaluation, m.position AS mentor_position
		FROM students s
		JOIN evaluations e ON s.ssn = e.student_ssn
		JOIN mentors m ON s.mentor_ssn = m.ssn`).Scan(&eg).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error running business queries: " + err.Error()})
		return
	}
	results["evaluations_mentor_guidance"] = eg

	// 5. Internship duration and report count per company
	type durationReport struct {
		CompanyName string `json:"company_name"`
		Duration    int    `json:"duration"`
		Reports     int    `json:"reports"`
	}
	var dr []durationReport
	if err := db.Raw(`SELECT i.company_name,
			MAX(i.end_date::date - i.start_date::date) AS duration,
			COUNT(e.final_grade) AS reports
		FROM internships i JOIN evaluations e ON i.student_ssn = e.student_ssn
		GROUP BY i.company_name`).Scan(&dr).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error running business queries: " + err.Error()})
		return
	}
	results["internship_duration_reports"] = dr

	// 6. Students with low grades to be warned
	var lg []lowGradeRow
	if err := db.Raw(lowGradeStudentsSQL).Scan(&lg).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error running business queries: " + err.Error()})
		return
	}
	results["low_grade_students"] = lg

	c.JSON(http.StatusOK, results)
}

// exportReportHandler streams a named report as a CSV attachment, or 404s
// when the report has no rows.
func exportReportHandler(c *gin.Context) {
	name := c.Param("report_name")
	if name != "low_grade_students" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid report name for export"})
		return
	}
	var rows []lowGradeRow
	if err := db.Raw(lowGradeStudentsSQL).Scan(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error exporting report: " + err.Error()})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": fmt.Sprintf("No data to export for %s.", name)})
		return
	}
	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"ssn", "name", "final_grade"})
	for _, r := range rows {
		_ = w.Write([]string{r.SSN, r.Name, r.FinalGrade})
	}
	w.Flush()
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", name))
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

// failingStudentsCountHandler wraps the count_failing_students() function.
func failingStudentsCountHandler(c *gin.Context) {
	var count int
	if err := db.Raw(`SELECT count_failing_students()`).Scan(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error calling stored procedure: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"failing_students_count": count})
}
