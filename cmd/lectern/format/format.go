// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

// Package format renders LMS records as terminal text for the lectern
// commands. Every function styles through a [tui.Document], so output
// follows the active light/dark theme and is plain when the output is
// not a color terminal. User-supplied titles are sanitized and course
// descriptions and bios are rendered as Markdown.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lectern-lms/lectern/lib/lmsapi"
	"github.com/lectern-lms/lectern/lib/markdown"
	"github.com/lectern-lms/lectern/lib/tui"
)

// Column caps for course tables.
const (
	titleWidth      = 40
	categoryWidth   = 20
	instructorWidth = 20
)

// Date formats an API timestamp as a calendar date. Unparseable values
// are returned unchanged.
func Date(value string) string {
	if value == "" {
		return "-"
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.Format("2006-01-02")
		}
	}
	return value
}

// orDash substitutes "-" for an empty cell.
func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

// field writes one "Label:  value" line with the label padded to width.
func field(builder *strings.Builder, document *tui.Document, label, value string, width int) {
	padded := fmt.Sprintf("%-*s", width, label+":")
	builder.WriteString(document.Faint(padded) + " " + value + "\n")
}

// Profile renders a user's account record.
func Profile(document *tui.Document, user *lmsapi.User, width int) string {
	var builder strings.Builder
	builder.WriteString(document.Heading(user.FullName()) + "  " + document.Role(user.EffectiveRole()) + "\n")
	field(&builder, document, "Email", user.Email, 7)
	field(&builder, document, "Theme", orDash(string(user.Theme)), 7)
	field(&builder, document, "Joined", Date(user.DateJoined), 7)
	if bio := markdown.Render(user.Bio, document, width); bio != "" {
		builder.WriteString("\n" + bio + "\n")
	}
	return builder.String()
}

// CourseTable renders a course list.
func CourseTable(document *tui.Document, courses []lmsapi.Course) string {
	table := tui.Table{
		Headers:   []string{"ID", "TITLE", "CATEGORY", "INSTRUCTOR", "HOURS", "STATUS", "STUDENTS"},
		MaxWidths: []int{0, titleWidth, categoryWidth, instructorWidth},
	}
	for _, course := range courses {
		table.AddRow(
			strconv.FormatInt(course.ID, 10),
			orDash(markdown.Sanitize(course.Title)),
			orDash(course.CategoryName),
			orDash(course.InstructorName),
			strconv.Itoa(course.DurationHours),
			document.Status(course.IsPublished),
			strconv.Itoa(course.EnrollmentCount),
		)
	}
	return table.Render(document)
}

// CourseDetail renders one course with its description.
func CourseDetail(document *tui.Document, course *lmsapi.Course, width int) string {
	var builder strings.Builder
	builder.WriteString(document.Heading(orDash(markdown.Sanitize(course.Title))) + "\n")
	const labelWidth = 11
	field(&builder, document, "Category", orDash(course.CategoryName), labelWidth)
	field(&builder, document, "Instructor", orDash(course.InstructorName), labelWidth)
	field(&builder, document, "Duration", fmt.Sprintf("%d hours", course.DurationHours), labelWidth)
	field(&builder, document, "Status", document.Status(course.IsPublished), labelWidth)
	field(&builder, document, "Students", strconv.Itoa(course.EnrollmentCount), labelWidth)
	field(&builder, document, "Updated", Date(course.UpdatedAt), labelWidth)
	if description := markdown.Render(course.Description, document, width); description != "" {
		builder.WriteString("\n" + description + "\n")
	}
	return builder.String()
}

// CategoryTable renders the category list.
func CategoryTable(document *tui.Document, categories []lmsapi.Category) string {
	table := tui.Table{
		Headers:   []string{"ID", "NAME", "DESCRIPTION"},
		MaxWidths: []int{0, categoryWidth, titleWidth},
	}
	for _, category := range categories {
		table.AddRow(
			strconv.FormatInt(category.ID, 10),
			category.Name,
			orDash(markdown.Sanitize(category.Description)),
		)
	}
	return table.Render(document)
}

// EnrollmentTable renders a student's enrollments with progress bars.
func EnrollmentTable(document *tui.Document, enrollments []lmsapi.Enrollment) string {
	table := tui.Table{
		Headers:   []string{"COURSE", "TITLE", "ENROLLED", "PROGRESS"},
		MaxWidths: []int{0, titleWidth},
	}
	for _, enrollment := range enrollments {
		table.AddRow(
			strconv.FormatInt(enrollment.Course, 10),
			orDash(markdown.Sanitize(enrollment.CourseTitle)),
			Date(enrollment.EnrolledAt),
			document.Progress(float64(enrollment.Progress), enrollment.Completed),
		)
	}
	return table.Render(document)
}

// Dashboard renders the role-dependent counters for user.
func Dashboard(document *tui.Document, user *lmsapi.User, stats *lmsapi.DashboardStats) string {
	var builder strings.Builder
	builder.WriteString(document.Heading("Welcome, "+user.FullName()) + "  " + document.Role(user.EffectiveRole()) + "\n\n")

	type counter struct {
		label string
		value int
	}
	var counters []counter
	switch user.EffectiveRole() {
	case lmsapi.RoleAdmin:
		counters = []counter{
			{"Users", stats.TotalUsers},
			{"Courses", stats.TotalCourses},
			{"Enrollments", stats.TotalEnrollments},
			{"Admins", stats.AdminCount},
			{"Instructors", stats.InstructorCount},
			{"Students", stats.StudentCount},
		}
	case lmsapi.RoleInstructor:
		counters = []counter{
			{"My courses", stats.MyCourses},
			{"Students", stats.TotalStudents},
			{"Enrollments", stats.TotalEnrollments},
		}
	default:
		counters = []counter{
			{"Enrolled", stats.EnrolledCourses},
			{"Completed", stats.CompletedCourses},
			{"In progress", stats.InProgress},
		}
	}
	for _, counter := range counters {
		field(&builder, document, counter.label, strconv.Itoa(counter.value), 12)
	}
	return builder.String()
}
