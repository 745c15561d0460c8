// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package lmsapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lectern-lms/lectern/lib/secret"
)

// Role is a user's role on the platform.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleInstructor, RoleStudent:
		return true
	}
	return false
}

// Theme is a display theme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme validates a theme name.
func ParseTheme(value string) (Theme, error) {
	switch theme := Theme(strings.ToLower(strings.TrimSpace(value))); theme {
	case ThemeLight, ThemeDark:
		return theme, nil
	}
	return "", fmt.Errorf("lmsapi: invalid theme %q (want %q or %q)", value, ThemeLight, ThemeDark)
}

// ThemeFor maps a dark-mode flag to its theme.
func ThemeFor(dark bool) Theme {
	if dark {
		return ThemeDark
	}
	return ThemeLight
}

// IsDark reports whether t is the dark theme.
func (t Theme) IsDark() bool { return t == ThemeDark }

// User is an account record as returned by /auth/profile/ and the
// login and register endpoints. Read-only server fields are carried
// through so that a profile PUT echoes the record unchanged.
type User struct {
	ID             int64   `json:"id"`
	Email          string  `json:"email"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Role           Role    `json:"role"`
	Theme          Theme   `json:"theme,omitempty"`
	Bio            string  `json:"bio,omitempty"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
	IsActive       bool    `json:"is_active"`
	IsStaff        bool    `json:"is_staff"`
	IsSuperuser    bool    `json:"is_superuser"`
	DateJoined     string  `json:"date_joined,omitempty"`
}

// EffectiveRole is the role used for authorization: superusers are
// admins regardless of their stored role.
func (u *User) EffectiveRole() Role {
	if u.IsSuperuser {
		return RoleAdmin
	}
	return u.Role
}

// CanManageCourses reports whether the user may create, edit, or
// delete courses.
func (u *User) CanManageCourses() bool {
	role := u.EffectiveRole()
	return role == RoleAdmin || role == RoleInstructor
}

// FullName joins the first and last names, falling back to the email.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	clone := *u
	if u.ProfilePicture != nil {
		picture := *u.ProfilePicture
		clone.ProfilePicture = &picture
	}
	return &clone
}

// LoginRequest holds login credentials. The password buffer is read
// but not closed; the caller retains ownership.
type LoginRequest struct {
	Email    string
	Password *secret.Buffer
}

// RegisterRequest holds the account registration form.
type RegisterRequest struct {
	Email     string
	Password  *secret.Buffer
	FirstName string
	LastName  string
	Role      Role
	Theme     Theme
}

// AuthResponse is the body returned by login and register.
type AuthResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    User   `json:"user"`
}

// Category groups courses in the catalog.
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CategoryRef is a course's category reference. The server sends
// either the bare category ID or a nested category object; both decode
// to the ID.
type CategoryRef int64

// UnmarshalJSON implements json.Unmarshaler.
func (c *CategoryRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		var nested struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(data, &nested); err != nil {
			return fmt.Errorf("lmsapi: decoding category: %w", err)
		}
		*c = CategoryRef(nested.ID)
		return nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("lmsapi: decoding category: %w", err)
	}
	*c = CategoryRef(id)
	return nil
}

// Course is a catalog entry.
type Course struct {
	ID              int64       `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Category        CategoryRef `json:"category"`
	CategoryName    string      `json:"category_name,omitempty"`
	Instructor      int64       `json:"instructor"`
	InstructorName  string      `json:"instructor_name,omitempty"`
	Thumbnail       *string     `json:"thumbnail,omitempty"`
	DurationHours   int         `json:"duration_hours"`
	IsPublished     bool        `json:"is_published"`
	EnrollmentCount int         `json:"enrollment_count"`
	CreatedAt       string      `json:"created_at,omitempty"`
	UpdatedAt       string      `json:"updated_at,omitempty"`
}

// CourseInput is the writable subset of a course used by create and
// update.
type CourseInput struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Category      int64  `json:"category"`
	DurationHours int    `json:"duration_hours"`
	IsPublished   bool   `json:"is_published"`
}

// Input returns the writable fields of c, for read-modify-write updates.
func (c *Course) Input() CourseInput {
	return CourseInput{
		Title:         c.Title,
		Description:   c.Description,
		Category:      int64(c.Category),
		DurationHours: c.DurationHours,
		IsPublished:   c.IsPublished,
	}
}

// CourseQuery filters the course list. Zero fields are omitted.
type CourseQuery struct {
	Search   string
	Category int64
	Ordering string
}

// Percent is a progress value. The server may encode decimals as JSON
// strings.
type Percent float64

// UnmarshalJSON implements json.Unmarshaler.
func (p *Percent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*p = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		value, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return fmt.Errorf("lmsapi: decoding progress %q: %w", text, err)
		}
		*p = Percent(value)
		return nil
	}
	var value float64
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("lmsapi: decoding progress: %w", err)
	}
	*p = Percent(value)
	return nil
}

// Enrollment links a student to a course.
type Enrollment struct {
	ID          int64   `json:"id"`
	Student     int64   `json:"student"`
	StudentName string  `json:"student_name,omitempty"`
	Course      int64   `json:"course"`
	CourseTitle string  `json:"course_title,omitempty"`
	EnrolledAt  string  `json:"enrolled_at,omitempty"`
	Progress    Percent `json:"progress"`
	Completed   bool    `json:"completed"`
}

// DashboardStats holds the role-dependent counters from
// /lms/dashboard/stats/. Only the fields for the caller's effective
// role are populated by the server.
type DashboardStats struct {
	// Admin.
	TotalUsers      int `json:"total_users,omitempty"`
	TotalCourses    int `json:"total_courses,omitempty"`
	AdminCount      int `json:"admin_count,omitempty"`
	InstructorCount int `json:"instructor_count,omitempty"`
	StudentCount    int `json:"student_count,omitempty"`

	// Admin and instructor.
	TotalEnrollments int `json:"total_enrollments,omitempty"`

	// Instructor.
	MyCourses     int `json:"my_courses,omitempty"`
	TotalStudents int `json:"total_students,omitempty"`

	// Student.
	EnrolledCourses  int `json:"enrolled_courses,omitempty"`
	CompletedCourses int `json:"completed_courses,omitempty"`
	InProgress       int `json:"in_progress,omitempty"`
}

// messageResponse is the body of the password endpoints.
type messageResponse struct {
	Message string `json:"message"`
}
