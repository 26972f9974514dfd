package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Role is the single access level an identity holds.
type Role string

const (
	RoleAdmin       Role = "Admin"
	RoleStudent     Role = "Student"
	RoleCoordinator Role = "InternshipCoordinator"
	RoleMentor      Role = "Mentor"
)

// sessionCookie carries the signed session token for the browser session.
const sessionCookie = "internhub_session"

// resolveRole maps an identity to its role with a single ranked query over
// the four membership tables. Precedence is Admin > Student >
// InternshipCoordinator > Mentor; the lowest rank wins. An identity with no
// membership resolves to the empty role.
func resolveRole(ssn string) (Role, error) {
	type match struct {
		Role string
		Prio int
	}
	var m match
	res := db.Raw(`SELECT role, prio FROM (
			SELECT 'Admin' AS role, 1 AS prio FROM admins WHERE ssn = ?
			UNION ALL SELECT 'Student', 2 FROM students WHERE ssn = ?
			UNION ALL SELECT 'InternshipCoordinator', 3 FROM internship_coordinators WHERE ssn = ?
			UNION ALL SELECT 'Mentor', 4 FROM mentors WHERE ssn = ?
		) AS memberships ORDER BY prio LIMIT 1`, ssn, ssn, ssn, ssn).Scan(&m)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", nil
	}
	return Role(m.Role), nil
}

// mintSessionToken signs an HS256 token binding the identity to its role for
// the lifetime of the browser session.
func mintSessionToken(ssn string, role Role) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"ssn":  ssn,
		"role": string(role),
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	})
	return token.SignedString(jwtSecret)
}

// parseSessionToken verifies a session token and returns its identity and role.
func parseSessionToken(tokenString string) (string, Role, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrInvalidKeyType
		}
		return jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", "", fmt.Errorf("invalid session token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("invalid claims")
	}
	ssn, _ := claims["ssn"].(string)
	role, _ := claims["role"].(string)
	if ssn == "" || role == "" {
		return "", "", fmt.Errorf("incomplete session claims")
	}
	return ssn, Role(role), nil
}

// sessionRequired fails closed with 401 when no valid session cookie is
// present; on success it stores ssn and role in the request context.
func sessionRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(sessionCookie)
		if err != nil || cookie == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized: Login required"})
			c.Abort()
			return
		}
		ssn, role, err := parseSessionToken(cookie)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized: Login required"})
			c.Abort()
			return
		}
		c.Set("ssn", ssn)
		c.Set("role", role)
		c.Next()
	}
}

// roleRequired fails closed with 403 unless the session role is one of the
// allowed roles. Must run after sessionRequired.
func roleRequired(allowed ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, _ := c.Get("role")
		role, _ := roleVal.(Role)
		for _, a := range allowed {
			if role == a {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{"message": "Forbidden: Insufficient permissions"})
		c.Abort()
	}
}

// sessionIdentity returns the authenticated identity set by sessionRequired.
func sessionIdentity(c *gin.Context) string {
	v, _ := c.Get("ssn")
	ssn, _ := v.(string)
	return ssn
}
