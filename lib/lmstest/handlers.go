// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package lmstest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/lectern-lms/lectern/lib/lmsapi"
)

type contextKey int

const (
	bodyKey contextKey = iota
	userKey
)

func withBody(ctx context.Context, body json.RawMessage) context.Context {
	return context.WithValue(ctx, bodyKey, body)
}

func decodeBody(request *http.Request, target any) bool {
	body, _ := request.Context().Value(bodyKey).(json.RawMessage)
	if body == nil {
		return false
	}
	return json.Unmarshal(body, target) == nil
}

func writeJSON(writer http.ResponseWriter, status int, value any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(value)
}

func writeDetail(writer http.ResponseWriter, status int, detail string) {
	writeJSON(writer, status, map[string]string{"detail": detail})
}

// authenticate resolves the bearer token to a user. Unknown, expired
// and revoked tokens get 401.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		header := request.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeDetail(writer, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}

		claims := &jwt.RegisteredClaims{}
		_, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims, func(*jwt.Token) (any, error) {
			return signingKey, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeDetail(writer, http.StatusUnauthorized, "Given token not valid for any token type")
			return
		}

		userID, _ := strconv.ParseInt(claims.Subject, 10, 64)
		s.mu.Lock()
		valid := s.access[claims.ID]
		user, exists := s.users[userID]
		s.mu.Unlock()
		if !valid || !exists {
			writeDetail(writer, http.StatusUnauthorized, "Given token not valid for any token type")
			return
		}

		next.ServeHTTP(writer, request.WithContext(context.WithValue(request.Context(), userKey, user.ID)))
	})
}

// callerLocked returns the authenticated user's record. Caller
// holds s.mu.
func (s *Server) callerLocked(request *http.Request) *lmsapi.User {
	id, _ := request.Context().Value(userKey).(int64)
	return s.users[id]
}

func (s *Server) handleRegister(writer http.ResponseWriter, request *http.Request) {
	var form struct {
		Email     string       `json:"email"`
		Password  string       `json:"password"`
		FirstName string       `json:"first_name"`
		LastName  string       `json:"last_name"`
		Role      lmsapi.Role  `json:"role"`
		Theme     lmsapi.Theme `json:"theme"`
	}
	if !decodeBody(request, &form) {
		writeDetail(writer, http.StatusBadRequest, "JSON parse error")
		return
	}

	fieldErrors := map[string][]string{}
	if form.Email == "" {
		fieldErrors["email"] = []string{"This field is required."}
	}
	hash, hashErr := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.MinCost)
	switch {
	case len(form.Password) < 8:
		fieldErrors["password"] = []string{"Ensure this field has at least 8 characters."}
	case hashErr != nil:
		fieldErrors["password"] = []string{"Ensure this field has no more than 72 characters."}
	}
	if form.Role == lmsapi.RoleAdmin {
		fieldErrors["role"] = []string{"Cannot register as admin"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.passwords[form.Email]; taken && form.Email != "" {
		fieldErrors["email"] = append(fieldErrors["email"], "user with this email already exists.")
	}
	if len(fieldErrors) > 0 {
		writeJSON(writer, http.StatusBadRequest, fieldErrors)
		return
	}

	user := &lmsapi.User{
		ID:        s.allocateID(),
		Email:     form.Email,
		FirstName: form.FirstName,
		LastName:  form.LastName,
		Role:      form.Role,
		Theme:     form.Theme,
		IsActive:  true,
	}
	if user.Role == "" {
		user.Role = lmsapi.RoleStudent
	}
	if user.Theme == "" {
		user.Theme = lmsapi.ThemeLight
	}
	s.users[user.ID] = user
	s.passwords[user.Email] = hash

	access, refresh := s.issueTokens(user.ID)
	writeJSON(writer, http.StatusCreated, lmsapi.AuthResponse{Access: access, Refresh: refresh, User: *user})
}

func (s *Server) handleLogin(writer http.ResponseWriter, request *http.Request) {
	var form struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	decodeBody(request, &form)

	s.mu.Lock()
	defer s.mu.Unlock()
	hash, known := s.passwords[form.Email]
	if !known || bcrypt.CompareHashAndPassword(hash, []byte(form.Password)) != nil {
		writeJSON(writer, http.StatusBadRequest, map[string][]string{
			lmsapi.NonFieldErrors: {"Invalid credentials"},
		})
		return
	}
	for _, user := range s.users {
		if user.Email == form.Email {
			access, refresh := s.issueTokens(user.ID)
			writeJSON(writer, http.StatusOK, lmsapi.AuthResponse{Access: access, Refresh: refresh, User: *user})
			return
		}
	}
	writeDetail(writer, http.StatusInternalServerError, "user record missing")
}

func (s *Server) handleRefresh(writer http.ResponseWriter, request *http.Request) {
	var form struct {
		Refresh string `json:"refresh"`
	}
	decodeBody(request, &form)

	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.refresh[form.Refresh]
	if !ok {
		writeJSON(writer, http.StatusUnauthorized, map[string]string{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
		return
	}
	access, _ := s.issueTokens(userID)
	writeJSON(writer, http.StatusOK, map[string]string{"access": access})
}

func (s *Server) handleForgotPassword(writer http.ResponseWriter, request *http.Request) {
	var form struct {
		Email string `json:"email"`
	}
	decodeBody(request, &form)

	s.mu.Lock()
	_, known := s.passwords[form.Email]
	s.mu.Unlock()
	if !known {
		writeJSON(writer, http.StatusBadRequest, map[string][]string{"email": {"User not found"}})
		return
	}
	writeJSON(writer, http.StatusOK, map[string]string{"message": "Reset link sent to email"})
}

func (s *Server) handleResetPassword(writer http.ResponseWriter, request *http.Request) {
	var form struct {
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	decodeBody(request, &form)
	if form.Token != "valid-reset-token" {
		writeJSON(writer, http.StatusBadRequest, map[string][]string{lmsapi.NonFieldErrors: {"Invalid token"}})
		return
	}
	writeJSON(writer, http.StatusOK, map[string]string{"message": "Password reset successfully"})
}

func (s *Server) handleGetProfile(writer http.ResponseWriter, request *http.Request) {
	s.mu.Lock()
	user := *s.callerLocked(request)
	s.mu.Unlock()
	writeJSON(writer, http.StatusOK, user)
}

func (s *Server) handlePutProfile(writer http.ResponseWriter, request *http.Request) {
	var update lmsapi.User
	if !decodeBody(request, &update) {
		writeDetail(writer, http.StatusBadRequest, "JSON parse error")
		return
	}
	if update.Theme != "" && update.Theme != lmsapi.ThemeLight && update.Theme != lmsapi.ThemeDark {
		writeJSON(writer, http.StatusBadRequest, map[string][]string{
			"theme": {`"` + string(update.Theme) + `" is not a valid choice.`},
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.callerLocked(request)
	// Read-only fields in the body are ignored.
	user.Email = update.Email
	user.FirstName = update.FirstName
	user.LastName = update.LastName
	user.Bio = update.Bio
	if update.Theme != "" {
		user.Theme = update.Theme
	}
	if update.Role != "" && update.Role != lmsapi.RoleAdmin {
		user.Role = update.Role
	}
	writeJSON(writer, http.StatusOK, *user)
}

func (s *Server) handleCategories(writer http.ResponseWriter, request *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(writer, http.StatusOK, map[string]any{
		"count":   len(s.categories),
		"results": append([]lmsapi.Category{}, s.categories...),
	})
}

func (s *Server) handleListCourses(writer http.ResponseWriter, request *http.Request) {
	search := request.URL.Query().Get("search")
	category, _ := strconv.ParseInt(request.URL.Query().Get("category"), 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()
	courses := []lmsapi.Course{}
	for _, course := range s.visibleCoursesLocked(s.callerLocked(request)) {
		if search != "" && !matchesSearch(course, search) {
			continue
		}
		if category != 0 && int64(course.Category) != category {
			continue
		}
		courses = append(courses, course)
	}
	writeJSON(writer, http.StatusOK, map[string]any{"count": len(courses), "results": courses})
}

func (s *Server) handleMyCourses(writer http.ResponseWriter, request *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.callerLocked(request)

	courses := []lmsapi.Course{}
	switch user.EffectiveRole() {
	case lmsapi.RoleAdmin:
		courses = append(courses, s.visibleCoursesLocked(user)...)
	case lmsapi.RoleInstructor:
		for _, course := range s.visibleCoursesLocked(user) {
			if course.Instructor == user.ID {
				courses = append(courses, course)
			}
		}
	default:
		for _, enrollment := range s.enrollments {
			if enrollment.Student != user.ID {
				continue
			}
			if course, ok := s.courses[enrollment.Course]; ok {
				s.refreshCourseLocked(course)
				courses = append(courses, *course)
			}
		}
	}
	// my_courses is not paginated.
	writeJSON(writer, http.StatusOK, courses)
}

func (s *Server) courseFromPath(request *http.Request) (*lmsapi.Course, bool) {
	id, err := strconv.ParseInt(chi.URLParam(request, "id"), 10, 64)
	if err != nil {
		return nil, false
	}
	course, ok := s.courses[id]
	return course, ok
}

func (s *Server) handleGetCourse(writer http.ResponseWriter, request *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	course, ok := s.courseFromPath(request)
	if !ok {
		writeDetail(writer, http.StatusNotFound, "No Course matches the given query.")
		return
	}
	s.refreshCourseLocked(course)
	writeJSON(writer, http.StatusOK, *course)
}

func (s *Server) handleCreateCourse(writer http.ResponseWriter, request *http.Request) {
	var input lmsapi.CourseInput
	if !decodeBody(request, &input) {
		writeDetail(writer, http.StatusBadRequest, "JSON parse error")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.callerLocked(request)
	if !user.CanManageCourses() {
		writeDetail(writer, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}
	if strings.TrimSpace(input.Title) == "" {
		writeJSON(writer, http.StatusBadRequest, map[string][]string{"title": {"This field may not be blank."}})
		return
	}
	if !s.rejectUnknownCategoryLocked(writer, input.Category) {
		return
	}
	writeJSON(writer, http.StatusCreated, *s.storeCourse(user.ID, input))
}

func (s *Server) handleUpdateCourse(writer http.ResponseWriter, request *http.Request) {
	var input lmsapi.CourseInput
	if !decodeBody(request, &input) {
		writeDetail(writer, http.StatusBadRequest, "JSON parse error")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	course, ok := s.courseFromPath(request)
	if !ok {
		writeDetail(writer, http.StatusNotFound, "No Course matches the given query.")
		return
	}
	if !s.mayEditLocked(s.callerLocked(request), course) {
		writeDetail(writer, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}
	if !s.rejectUnknownCategoryLocked(writer, input.Category) {
		return
	}
	applyCourseInput(course, input)
	s.refreshCourseLocked(course)
	writeJSON(writer, http.StatusOK, *course)
}

// rejectUnknownCategoryLocked writes a field error and returns false
// unless id names a stored category.
func (s *Server) rejectUnknownCategoryLocked(writer http.ResponseWriter, id int64) bool {
	for _, category := range s.categories {
		if category.ID == id {
			return true
		}
	}
	message := fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id)
	if id == 0 {
		message = "This field may not be null."
	}
	writeJSON(writer, http.StatusBadRequest, map[string][]string{"category": {message}})
	return false
}

func (s *Server) handleDeleteCourse(writer http.ResponseWriter, request *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	course, ok := s.courseFromPath(request)
	if !ok {
		writeDetail(writer, http.StatusNotFound, "No Course matches the given query.")
		return
	}
	if !s.mayEditLocked(s.callerLocked(request), course) {
		writeDetail(writer, http.StatusForbidden, "You do not have permission to perform this action.")
		return
	}
	delete(s.courses, course.ID)
	writer.WriteHeader(http.StatusNoContent)
}

func (s *Server) mayEditLocked(user *lmsapi.User, course *lmsapi.Course) bool {
	switch user.EffectiveRole() {
	case lmsapi.RoleAdmin:
		return true
	case lmsapi.RoleInstructor:
		return course.Instructor == user.ID
	}
	return false
}

func (s *Server) handleEnroll(writer http.ResponseWriter, request *http.Request) {
	var form struct {
		Course int64 `json:"course"`
	}
	decodeBody(request, &form)

	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.callerLocked(request)
	course, ok := s.courses[form.Course]
	if !ok {
		writeJSON(writer, http.StatusBadRequest, map[string][]string{
			"course": {`Invalid pk "` + strconv.FormatInt(form.Course, 10) + `" - object does not exist.`},
		})
		return
	}
	for _, enrollment := range s.enrollments {
		if enrollment.Student == user.ID && enrollment.Course == course.ID {
			writeJSON(writer, http.StatusBadRequest, map[string][]string{
				lmsapi.NonFieldErrors: {"Already enrolled in this course"},
			})
			return
		}
	}
	enrollment := lmsapi.Enrollment{
		ID:          s.allocateID(),
		Student:     user.ID,
		StudentName: user.FullName(),
		Course:      course.ID,
		CourseTitle: course.Title,
	}
	s.enrollments = append(s.enrollments, enrollment)
	writeJSON(writer, http.StatusCreated, enrollment)
}

func (s *Server) handleMyEnrollments(writer http.ResponseWriter, request *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.callerLocked(request)
	enrollments := []lmsapi.Enrollment{}
	for _, enrollment := range s.enrollments {
		if enrollment.Student != user.ID {
			continue
		}
		if course, ok := s.courses[enrollment.Course]; ok {
			enrollment.CourseTitle = course.Title
		}
		enrollments = append(enrollments, enrollment)
	}
	writeJSON(writer, http.StatusOK, enrollments)
}

func (s *Server) handleStats(writer http.ResponseWriter, request *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.callerLocked(request)

	switch user.EffectiveRole() {
	case lmsapi.RoleAdmin:
		stats := map[string]int{
			"total_users":       len(s.users),
			"total_courses":     len(s.courses),
			"total_enrollments": len(s.enrollments),
		}
		for _, account := range s.users {
			switch account.EffectiveRole() {
			case lmsapi.RoleAdmin:
				stats["admin_count"]++
			case lmsapi.RoleInstructor:
				stats["instructor_count"]++
			default:
				stats["student_count"]++
			}
		}
		writeJSON(writer, http.StatusOK, stats)

	case lmsapi.RoleInstructor:
		owned := map[int64]bool{}
		for _, course := range s.courses {
			if course.Instructor == user.ID {
				owned[course.ID] = true
			}
		}
		students := map[int64]bool{}
		enrollments := 0
		for _, enrollment := range s.enrollments {
			if owned[enrollment.Course] {
				students[enrollment.Student] = true
				enrollments++
			}
		}
		writeJSON(writer, http.StatusOK, map[string]int{
			"my_courses":        len(owned),
			"total_students":    len(students),
			"total_enrollments": enrollments,
		})

	default:
		stats := map[string]int{"enrolled_courses": 0, "completed_courses": 0, "in_progress": 0}
		for _, enrollment := range s.enrollments {
			if enrollment.Student != user.ID {
				continue
			}
			stats["enrolled_courses"]++
			if enrollment.Completed {
				stats["completed_courses"]++
			} else {
				stats["in_progress"]++
			}
		}
		writeJSON(writer, http.StatusOK, stats)
	}
}
