// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package course

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/lectern-lms/lectern/cmd/lectern/cli"
	"github.com/lectern-lms/lectern/cmd/lectern/clitest"
	"github.com/lectern-lms/lectern/lib/lmsapi"
)

// catalog seeds an instructor with one published and one draft course
// in a "Programming" category.
func catalog(t *testing.T, env *clitest.Env) (instructor lmsapi.User, published, draft lmsapi.Course) {
	t.Helper()
	instructor = env.AddUser(t, lmsapi.User{Email: "grace@example.com", FirstName: "Grace", LastName: "Hopper", Role: lmsapi.RoleInstructor}, "secret")
	category := env.Server.AddCategory("Programming")
	published = env.Server.AddCourse(instructor.ID, lmsapi.CourseInput{
		Title: "Intro to Go", Description: "Learn **Go**.", Category: category, DurationHours: 12, IsPublished: true,
	})
	systems := env.Server.AddCategory("Systems")
	draft = env.Server.AddCourse(instructor.ID, lmsapi.CourseInput{Title: "Compilers", Category: systems, DurationHours: 40})
	return instructor, published, draft
}

func id(course lmsapi.Course) string {
	return strconv.FormatInt(course.ID, 10)
}

func TestListRequiresLogin(t *testing.T) {
	env := clitest.New(t)

	_, err := env.Run(t, Command(), "list")
	clitest.RequireCategory(t, err, cli.CategoryForbidden)
	if count := env.Server.Count(http.MethodGet, "/lms/courses/"); count != 0 {
		t.Errorf("course requests = %d while logged out", count)
	}
}

func TestListStudentSeesPublished(t *testing.T) {
	env := clitest.New(t)
	catalog(t, env)
	env.Login(t, lmsapi.User{Email: "ada@example.com"})

	output := env.MustRun(t, Command(), "list")
	if !strings.Contains(output, "Intro to Go") || !strings.Contains(output, "Programming") || !strings.Contains(output, "Grace Hopper") {
		t.Errorf("published course missing:\n%s", output)
	}
	if strings.Contains(output, "Compilers") {
		t.Errorf("draft visible to a student:\n%s", output)
	}

	output = env.MustRun(t, Command(), "list", "--search", "nothing-matches")
	if output != "" || !strings.Contains(env.Stderr(), "No courses found") {
		t.Errorf("stdout = %q, stderr = %q", output, env.Stderr())
	}

	output = env.MustRun(t, Command(), "list", "--search", "nothing-matches", "--json")
	if strings.TrimSpace(output) != "[]" {
		t.Errorf("empty JSON list = %q, want []", output)
	}
}

func TestListFilter(t *testing.T) {
	env := clitest.New(t)
	instructor, _, _ := catalog(t, env)
	env.Server.AddCourse(instructor.ID, lmsapi.CourseInput{Title: "Databases", IsPublished: true})
	env.Login(t, lmsapi.User{Email: "ada@example.com"})

	output := env.MustRun(t, Command(), "list", "--filter", "dbase", "--json")
	var courses []lmsapi.Course
	if err := json.Unmarshal([]byte(output), &courses); err != nil {
		t.Fatalf("decoding %q: %v", output, err)
	}
	if len(courses) != 1 || courses[0].Title != "Databases" {
		t.Errorf("filtered courses = %+v", courses)
	}
}

func TestListCategoryQuery(t *testing.T) {
	env := clitest.New(t)
	_, published, _ := catalog(t, env)
	env.Login(t, lmsapi.User{Email: "ada@example.com"})

	output := env.MustRun(t, Command(), "list", "--category", strconv.FormatInt(int64(published.Category), 10), "--json")
	var courses []lmsapi.Course
	json.Unmarshal([]byte(output), &courses)
	if len(courses) != 1 || courses[0].ID != published.ID {
		t.Errorf("courses = %+v", courses)
	}

	_, err := env.Run(t, Command(), "list", "--category", "-3")
	clitest.RequireCategory(t, err, cli.CategoryValidation)
}

func TestShow(t *testing.T) {
	env := clitest.New(t)
	_, published, _ := catalog(t, env)
	env.Login(t, lmsapi.User{Email: "ada@example.com"})

	output := env.MustRun(t, Command(), "show", id(published))
	for _, want := range []string{"Intro to Go\n", "Instructor: Grace Hopper", "Duration:   12 hours", "Learn Go."} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}

	_, err := env.Run(t, Command(), "show", "9999")
	clitest.RequireCategory(t, err, cli.CategoryNotFound)

	for _, args := range [][]string{{"show"}, {"show", "abc"}, {"show", "0"}, {"show", "1", "2"}} {
		_, err := env.Run(t, Command(), args...)
		clitest.RequireCategory(t, err, cli.CategoryValidation)
	}
}

func TestMine(t *testing.T) {
	env := clitest.New(t)
	instructor, published, draft := catalog(t, env)
	env.Login(t, lmsapi.User{Email: "other@example.com", Role: lmsapi.RoleInstructor})

	if output := env.MustRun(t, Command(), "mine"); output != "" {
		t.Errorf("another instructor's courses listed:\n%s", output)
	}

	env.LoginExisting(t, instructor)
	output := env.MustRun(t, Command(), "mine")
	if !strings.Contains(output, published.Title) || !strings.Contains(output, draft.Title) {
		t.Errorf("own courses missing:\n%s", output)
	}
}

func TestCategories(t *testing.T) {
	env := clitest.New(t)
	catalog(t, env)
	env.Login(t, lmsapi.User{Email: "ada@example.com"})

	output := env.MustRun(t, Command(), "categories")
	if !strings.HasPrefix(output, "ID  NAME") || !strings.Contains(output, "Programming") {
		t.Errorf("output = %q", output)
	}
}

func TestCreateRequiresManager(t *testing.T) {
	env := clitest.New(t)
	env.Login(t, lmsapi.User{Email: "ada@example.com"})

	_, err := env.Run(t, Command(), "create", "--title", "Sneaky", "--category", "1")
	clitest.RequireCategory(t, err, cli.CategoryForbidden)
	if !strings.Contains(err.Error(), "instructor or admin") {
		t.Errorf("error = %v", err)
	}
	if count := env.Server.Count(http.MethodPost, "/lms/courses/"); count != 0 {
		t.Errorf("create requests = %d, want none", count)
	}
}

func TestCreate(t *testing.T) {
	env := clitest.New(t)
	user := env.Login(t, lmsapi.User{Email: "grace@example.com", Role: lmsapi.RoleInstructor})
	category := strconv.FormatInt(env.Server.AddCategory("Programming"), 10)

	_, err := env.Run(t, Command(), "create", "--title", "   ", "--category", category)
	clitest.RequireCategory(t, err, cli.CategoryValidation)

	output := env.MustRun(t, Command(), "create", "--title", "Intro to Go", "--category", category, "--hours", "12", "--publish", "--json")
	var course lmsapi.Course
	if err := json.Unmarshal([]byte(output), &course); err != nil {
		t.Fatalf("decoding %q: %v", output, err)
	}
	if course.Title != "Intro to Go" || course.Instructor != user.ID || !course.IsPublished || course.DurationHours != 12 {
		t.Errorf("course = %+v", course)
	}
	if strconv.FormatInt(int64(course.Category), 10) != category || course.CategoryName != "Programming" {
		t.Errorf("course category = %v (%q), want %s", course.Category, course.CategoryName, category)
	}

	env.MustRun(t, Command(), "create", "--title", "Drafty", "--category", category)
	if !strings.Contains(env.Stderr(), "Created course") || !strings.Contains(env.Stderr(), "draft") {
		t.Errorf("stderr = %q", env.Stderr())
	}
}

func TestCreateFieldErrors(t *testing.T) {
	env := clitest.New(t)
	env.Login(t, lmsapi.User{Email: "grace@example.com", Role: lmsapi.RoleInstructor})
	env.Server.FailNext(http.MethodPost, "/lms/courses/", http.StatusBadRequest, `{"category":["Invalid pk \"77\" - object does not exist."]}`)

	_, err := env.Run(t, Command(), "create", "--title", "Intro", "--category", "77")
	clitest.RequireCategory(t, err, cli.CategoryValidation)
	if !strings.Contains(err.Error(), "\n  category: Invalid pk") {
		t.Errorf("error = %v", err)
	}
}

func TestCreateRequiresCategory(t *testing.T) {
	env := clitest.New(t)
	env.Login(t, lmsapi.User{Email: "grace@example.com", Role: lmsapi.RoleInstructor})

	for _, args := range [][]string{
		{"create", "--title", "Intro"},
		{"create", "--title", "Intro", "--category", "0"},
		{"create", "--title", "Intro", "--category", "-2"},
	} {
		_, err := env.Run(t, Command(), args...)
		clitest.RequireCategory(t, err, cli.CategoryValidation)
		if !strings.Contains(err.Error(), "--category is required") {
			t.Errorf("%v: error = %v", args, err)
		}
	}
	if count := env.Server.Count(http.MethodPost, "/lms/courses/"); count != 0 {
		t.Errorf("create requests = %d, want none", count)
	}
}

func TestCreateUnknownCategory(t *testing.T) {
	env := clitest.New(t)
	env.Login(t, lmsapi.User{Email: "grace@example.com", Role: lmsapi.RoleInstructor})

	_, err := env.Run(t, Command(), "create", "--title", "Intro", "--category", "9999")
	clitest.RequireCategory(t, err, cli.CategoryValidation)
	if !strings.Contains(err.Error(), "\n  category: Invalid pk \"9999\"") {
		t.Errorf("error = %v", err)
	}
}

func TestUpdateCategory(t *testing.T) {
	env := clitest.New(t)
	instructor, published, draft := catalog(t, env)
	env.LoginExisting(t, instructor)

	for _, value := range []string{"0", "-4"} {
		_, err := env.Run(t, Command(), "update", id(draft), "--category", value)
		clitest.RequireCategory(t, err, cli.CategoryValidation)
	}
	if count := env.Server.Count(http.MethodPut, "/lms/courses/"+id(draft)+"/"); count != 0 {
		t.Errorf("update requests = %d, want none", count)
	}

	_, err := env.Run(t, Command(), "update", id(draft), "--category", "9999")
	clitest.RequireCategory(t, err, cli.CategoryValidation)
	if !strings.Contains(err.Error(), "category: Invalid pk") {
		t.Errorf("error = %v", err)
	}

	moved := strconv.FormatInt(int64(published.Category), 10)
	output := env.MustRun(t, Command(), "update", id(draft), "--category", moved, "--json")
	var course lmsapi.Course
	json.Unmarshal([]byte(output), &course)
	if course.Category != published.Category || course.CategoryName != "Programming" {
		t.Errorf("course = %+v", course)
	}
}

func TestUpdateReadModifyWrite(t *testing.T) {
	env := clitest.New(t)
	instructor, _, draft := catalog(t, env)
	env.LoginExisting(t, instructor)

	output := env.MustRun(t, Command(), "update", id(draft), "--publish", "--json")
	var course lmsapi.Course
	json.Unmarshal([]byte(output), &course)
	if !course.IsPublished || course.Title != "Compilers" || course.DurationHours != 40 {
		t.Errorf("course = %+v", course)
	}

	bodies := env.Server.Bodies(http.MethodPut, "/lms/courses/"+id(draft)+"/")
	if len(bodies) != 1 {
		t.Fatalf("update requests = %d, want 1", len(bodies))
	}
	var input lmsapi.CourseInput
	json.Unmarshal(bodies[0], &input)
	if input != (lmsapi.CourseInput{Title: "Compilers", Category: int64(draft.Category), DurationHours: 40, IsPublished: true}) {
		t.Errorf("update body = %+v", input)
	}

	env.MustRun(t, Command(), "update", id(draft), "--hours", "0", "--unpublish")
	json.Unmarshal(env.Server.Bodies(http.MethodPut, "/lms/courses/"+id(draft)+"/")[1], &input)
	if input.DurationHours != 0 || input.IsPublished {
		t.Errorf("second update body = %+v", input)
	}
}

func TestUpdateValidation(t *testing.T) {
	env := clitest.New(t)
	env.Login(t, lmsapi.User{Email: "grace@example.com", Role: lmsapi.RoleInstructor})

	for _, args := range [][]string{
		{"update", "5"},
		{"update", "5", "--publish", "--unpublish"},
		{"update", "--title", "x"},
	} {
		_, err := env.Run(t, Command(), args...)
		clitest.RequireCategory(t, err, cli.CategoryValidation)
	}
}

func TestUpdateOthersCourseForbiddenByServer(t *testing.T) {
	env := clitest.New(t)
	_, published, _ := catalog(t, env)
	env.Login(t, lmsapi.User{Email: "other@example.com", Role: lmsapi.RoleInstructor})

	_, err := env.Run(t, Command(), "update", id(published), "--title", "Mine now")
	clitest.RequireCategory(t, err, cli.CategoryForbidden)
}

func TestDelete(t *testing.T) {
	env := clitest.New(t)
	_, published, _ := catalog(t, env)
	env.Login(t, lmsapi.User{Email: "root@example.com", IsSuperuser: true})

	env.MustRun(t, Command(), "delete", id(published))
	if !strings.Contains(env.Stderr(), "Deleted course "+id(published)) {
		t.Errorf("stderr = %q", env.Stderr())
	}
	_, err := env.Run(t, Command(), "show", id(published))
	clitest.RequireCategory(t, err, cli.CategoryNotFound)
}

func TestEnroll(t *testing.T) {
	env := clitest.New(t)
	_, published, _ := catalog(t, env)
	env.Login(t, lmsapi.User{Email: "ada@example.com"})

	env.MustRun(t, Command(), "enroll", id(published))
	if !strings.Contains(env.Stderr(), "Enrolled in Intro to Go") {
		t.Errorf("stderr = %q", env.Stderr())
	}
	bodies := env.Server.Bodies(http.MethodPost, "/lms/enrollments/")
	if len(bodies) != 1 || strings.ReplaceAll(string(bodies[0]), " ", "") != `{"course":`+id(published)+`}` {
		t.Errorf("enroll bodies = %s", bodies)
	}

	_, err := env.Run(t, Command(), "enroll", id(published))
	clitest.RequireCategory(t, err, cli.CategoryValidation)
	if !strings.Contains(err.Error(), "Already enrolled in this course") {
		t.Errorf("error = %v", err)
	}

	output := env.MustRun(t, Command(), "enrollments")
	if !strings.Contains(output, "Intro to Go") || !strings.Contains(output, "0%") {
		t.Errorf("enrollments:\n%s", output)
	}
}

func TestEnrollRequiresStudent(t *testing.T) {
	env := clitest.New(t)
	_, published, _ := catalog(t, env)
	env.Login(t, lmsapi.User{Email: "root@example.com", Role: lmsapi.RoleStudent, IsSuperuser: true})

	_, err := env.Run(t, Command(), "enroll", id(published))
	clitest.RequireCategory(t, err, cli.CategoryForbidden)
	if count := env.Server.Count(http.MethodPost, "/lms/enrollments/"); count != 0 {
		t.Errorf("enroll requests = %d, want none", count)
	}
}

func TestEnrollmentsProgress(t *testing.T) {
	env := clitest.New(t)
	_, published, _ := catalog(t, env)
	student := env.Login(t, lmsapi.User{Email: "ada@example.com"})
	env.Server.AddEnrollment(student.ID, published.ID, 75, false)

	output := env.MustRun(t, Command(), "enrollments")
	if !strings.Contains(output, strings.Repeat("█", 15)+strings.Repeat("░", 5)+"  75%") {
		t.Errorf("progress bar missing:\n%s", output)
	}

	env = clitest.New(t)
	env.Login(t, lmsapi.User{Email: "new@example.com"})
	if output := env.MustRun(t, Command(), "enrollments"); output != "" || !strings.Contains(env.Stderr(), "No enrollments") {
		t.Errorf("stdout = %q, stderr = %q", output, env.Stderr())
	}
}
