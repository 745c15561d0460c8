// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

// Package lmstest provides an in-memory LMS API server for tests.
//
// [Server] implements the subset of the REST API that Lectern calls:
// registration and login, token refresh, the profile, courses,
// categories, enrollments, and dashboard statistics. Access tokens are
// HS256 JWTs with a configurable lifetime so expiry paths can be
// exercised. Tests steer it with [Server.FailNext] (inject an error
// response), [Server.Block] (hold a route until released), and
// [Server.RevokeTokens], and inspect it with [Server.Count] and
// [Server.User].
package lmstest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/lectern-lms/lectern/lib/lmsapi"
)

var signingKey = []byte("lmstest-signing-key")

// Server is a fake LMS API.
type Server struct {
	httpServer *httptest.Server

	mu          sync.Mutex
	accessTTL   time.Duration
	nextID      int64
	users       map[int64]*lmsapi.User
	passwords   map[string][]byte // bcrypt hashes by email
	access      map[string]bool
	refresh     map[string]int64
	courses     map[int64]*lmsapi.Course
	categories  []lmsapi.Category
	enrollments []lmsapi.Enrollment
	failures    map[string][]failure
	blocks      map[string]chan struct{}
	counts      map[string]int
	bodies      map[string][]json.RawMessage
}

type failure struct {
	status int
	body   string
}

// New starts a Server that is shut down when the test completes.
func New(t testing.TB) *Server {
	t.Helper()
	server := &Server{
		accessTTL: time.Hour,
		nextID:    1,
		users:     make(map[int64]*lmsapi.User),
		passwords: make(map[string][]byte),
		access:    make(map[string]bool),
		refresh:   make(map[string]int64),
		courses:   make(map[int64]*lmsapi.Course),
		failures:  make(map[string][]failure),
		blocks:    make(map[string]chan struct{}),
		counts:    make(map[string]int),
		bodies:    make(map[string][]json.RawMessage),
	}
	server.httpServer = httptest.NewServer(gzhttp.GzipHandler(server.router()))
	t.Cleanup(server.httpServer.Close)
	return server
}

// URL returns the API base URL.
func (s *Server) URL() string {
	return s.httpServer.URL
}

// NewClient returns an lmsapi.Client pointed at the server.
func (s *Server) NewClient(t testing.TB) *lmsapi.Client {
	t.Helper()
	client, err := lmsapi.NewClient(lmsapi.ClientConfig{BaseURL: s.URL()})
	if err != nil {
		t.Fatalf("lmstest: creating client: %v", err)
	}
	return client
}

// SetAccessTTL changes the lifetime of subsequently issued access tokens.
func (s *Server) SetAccessTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessTTL = ttl
}

// AddUser stores an account and returns it with its assigned ID.
func (s *Server) AddUser(user lmsapi.User, password string) lmsapi.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = s.allocateID()
	user.IsActive = true
	if user.Role == "" {
		user.Role = lmsapi.RoleStudent
	}
	if user.Theme == "" {
		user.Theme = lmsapi.ThemeLight
	}
	stored := user
	s.users[user.ID] = &stored
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("lmstest: hashing password for %s: %v", user.Email, err))
	}
	s.passwords[user.Email] = hash
	return user
}

// User returns the server's copy of a user.
func (s *Server) User(id int64) lmsapi.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[id]; ok {
		return *user
	}
	return lmsapi.User{}
}

// IssueTokens mints an access and refresh token pair for a user, as
// if they had logged in.
func (s *Server) IssueTokens(userID int64) (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueTokens(userID)
}

// RevokeTokens invalidates every outstanding access and refresh token.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = make(map[string]bool)
	s.refresh = make(map[string]int64)
}

// AddCategory stores a category and returns its ID.
func (s *Server) AddCategory(name string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	category := lmsapi.Category{ID: s.allocateID(), Name: name}
	s.categories = append(s.categories, category)
	return category.ID
}

// AddCourse stores a course owned by instructorID and returns it.
func (s *Server) AddCourse(instructorID int64, input lmsapi.CourseInput) lmsapi.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	course := s.storeCourse(instructorID, input)
	return *course
}

// AddEnrollment enrolls a student in a course.
func (s *Server) AddEnrollment(studentID, courseID int64, progress float64, completed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrollments = append(s.enrollments, lmsapi.Enrollment{
		ID:        s.allocateID(),
		Student:   studentID,
		Course:    courseID,
		Progress:  lmsapi.Percent(progress),
		Completed: completed,
	})
}

// FailNext makes the next request to method and path return status
// with body instead of being handled. Calls queue.
func (s *Server) FailNext(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.failures[key] = append(s.failures[key], failure{status: status, body: body})
}

// Block holds every request to method and path until the returned
// release function is called. Release is idempotent.
func (s *Server) Block(method, path string) (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.blocks[method+" "+path] = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.blocks[method+" "+path] == gate {
				delete(s.blocks, method+" "+path)
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Count returns how many requests reached method and path, including
// injected failures.
func (s *Server) Count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[method+" "+path]
}

// Bodies returns the JSON request bodies received for method and path,
// in arrival order.
func (s *Server) Bodies(method, path string) []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]json.RawMessage(nil), s.bodies[method+" "+path]...)
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.intercept)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register/", s.handleRegister)
		r.Post("/login/", s.handleLogin)
		r.Post("/token/refresh/", s.handleRefresh)
		r.Post("/forgot-password/", s.handleForgotPassword)
		r.Post("/reset-password/", s.handleResetPassword)
		r.With(s.authenticate).Get("/profile/", s.handleGetProfile)
		r.With(s.authenticate).Put("/profile/", s.handlePutProfile)
	})

	r.Route("/lms", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/categories/", s.handleCategories)
		r.Route("/courses", func(r chi.Router) {
			r.Get("/", s.handleListCourses)
			r.Post("/", s.handleCreateCourse)
			r.Get("/my_courses/", s.handleMyCourses)
			r.Get("/{id}/", s.handleGetCourse)
			r.Put("/{id}/", s.handleUpdateCourse)
			r.Delete("/{id}/", s.handleDeleteCourse)
		})
		r.Post("/enrollments/", s.handleEnroll)
		r.Get("/enrollments/my_enrollments/", s.handleMyEnrollments)
		r.Get("/dashboard/stats/", s.handleStats)
	})
	return r
}

// intercept records the request, then applies any block or injected
// failure for its route.
func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		key := request.Method + " " + request.URL.Path

		var body json.RawMessage
		if request.Body != nil && request.Method != http.MethodGet {
			json.NewDecoder(request.Body).Decode(&body)
		}

		s.mu.Lock()
		s.counts[key]++
		if body != nil {
			s.bodies[key] = append(s.bodies[key], body)
		}
		gate := s.blocks[key]
		s.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-request.Context().Done():
				return
			}
		}

		s.mu.Lock()
		var injected *failure
		if queue := s.failures[key]; len(queue) > 0 {
			injected = &queue[0]
			s.failures[key] = queue[1:]
		}
		s.mu.Unlock()

		if injected != nil {
			writer.Header().Set("Content-Type", "application/json")
			writer.WriteHeader(injected.status)
			writer.Write([]byte(injected.body))
			return
		}

		request = request.WithContext(withBody(request.Context(), body))
		next.ServeHTTP(writer, request)
	})
}

func (s *Server) allocateID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Server) issueTokens(userID int64) (access, refresh string) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(fmt.Sprintf("lmstest: signing token: %v", err))
	}
	s.access[claims.ID] = true
	refresh = uuid.NewString()
	s.refresh[refresh] = userID
	return signed, refresh
}

func (s *Server) storeCourse(instructorID int64, input lmsapi.CourseInput) *lmsapi.Course {
	course := &lmsapi.Course{
		ID:         s.allocateID(),
		Instructor: instructorID,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
		UpdatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	applyCourseInput(course, input)
	if instructor, ok := s.users[instructorID]; ok {
		course.InstructorName = instructor.FullName()
	}
	s.courses[course.ID] = course
	s.refreshCourseLocked(course)
	return course
}

func applyCourseInput(course *lmsapi.Course, input lmsapi.CourseInput) {
	course.Title = input.Title
	course.Description = input.Description
	course.Category = lmsapi.CategoryRef(input.Category)
	course.DurationHours = input.DurationHours
	course.IsPublished = input.IsPublished
}

// refreshCourseLocked recomputes a course's derived fields.
func (s *Server) refreshCourseLocked(course *lmsapi.Course) {
	course.CategoryName = ""
	for _, category := range s.categories {
		if category.ID == int64(course.Category) {
			course.CategoryName = category.Name
		}
	}
	count := 0
	for _, enrollment := range s.enrollments {
		if enrollment.Course == course.ID {
			count++
		}
	}
	course.EnrollmentCount = count
}

// visibleCoursesLocked returns the courses user may see, sorted by ID.
func (s *Server) visibleCoursesLocked(user *lmsapi.User) []lmsapi.Course {
	var courses []lmsapi.Course
	for _, course := range s.courses {
		switch user.EffectiveRole() {
		case lmsapi.RoleAdmin:
		case lmsapi.RoleInstructor:
			if course.Instructor != user.ID && !course.IsPublished {
				continue
			}
		default:
			if !course.IsPublished {
				continue
			}
		}
		s.refreshCourseLocked(course)
		courses = append(courses, *course)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses
}

func matchesSearch(course lmsapi.Course, search string) bool {
	search = strings.ToLower(search)
	return strings.Contains(strings.ToLower(course.Title), search) ||
		strings.Contains(strings.ToLower(course.Description), search) ||
		strings.Contains(strings.ToLower(course.CategoryName), search)
}
