// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package lmsapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Profile fetches the authenticated user's record.
func (s *Session) Profile(ctx context.Context) (*User, error) {
	var user User
	if err := s.Get(ctx, "/auth/profile/", nil, &user); err != nil {
		return nil, fmt.Errorf("lmsapi: fetching profile: %w", err)
	}
	return &user, nil
}

// UpdateProfile replaces the authenticated user's writable fields with
// those of user and returns the server's record.
func (s *Session) UpdateProfile(ctx context.Context, user User) (*User, error) {
	var updated User
	if err := s.Put(ctx, "/auth/profile/", user, &updated); err != nil {
		return nil, fmt.Errorf("lmsapi: updating profile: %w", err)
	}
	return &updated, nil
}

// Courses lists the courses visible to the caller.
func (s *Session) Courses(ctx context.Context, query CourseQuery) ([]Course, error) {
	values := url.Values{}
	if query.Search != "" {
		values.Set("search", query.Search)
	}
	if query.Category != 0 {
		values.Set("category", strconv.FormatInt(query.Category, 10))
	}
	if query.Ordering != "" {
		values.Set("ordering", query.Ordering)
	}
	return listOf[Course](ctx, s, "/lms/courses/", values)
}

// Course fetches one course.
func (s *Session) Course(ctx context.Context, id int64) (*Course, error) {
	var course Course
	if err := s.Get(ctx, coursePath(id), nil, &course); err != nil {
		return nil, fmt.Errorf("lmsapi: fetching course %d: %w", id, err)
	}
	return &course, nil
}

// CreateCourse creates a course owned by the caller.
func (s *Session) CreateCourse(ctx context.Context, input CourseInput) (*Course, error) {
	var course Course
	if err := s.Post(ctx, "/lms/courses/", input, &course); err != nil {
		return nil, fmt.Errorf("lmsapi: creating course: %w", err)
	}
	return &course, nil
}

// UpdateCourse replaces a course's writable fields.
func (s *Session) UpdateCourse(ctx context.Context, id int64, input CourseInput) (*Course, error) {
	var course Course
	if err := s.Put(ctx, coursePath(id), input, &course); err != nil {
		return nil, fmt.Errorf("lmsapi: updating course %d: %w", id, err)
	}
	return &course, nil
}

// DeleteCourse deletes a course.
func (s *Session) DeleteCourse(ctx context.Context, id int64) error {
	if err := s.Delete(ctx, coursePath(id)); err != nil {
		return fmt.Errorf("lmsapi: deleting course %d: %w", id, err)
	}
	return nil
}

// MyCourses lists the caller's courses: everything for admins, owned
// courses for instructors, enrolled courses for students.
func (s *Session) MyCourses(ctx context.Context) ([]Course, error) {
	return listOf[Course](ctx, s, "/lms/courses/my_courses/", nil)
}

// Categories lists course categories.
func (s *Session) Categories(ctx context.Context) ([]Category, error) {
	return listOf[Category](ctx, s, "/lms/categories/", nil)
}

// Enroll enrolls the caller in a course.
func (s *Session) Enroll(ctx context.Context, courseID int64) (*Enrollment, error) {
	var enrollment Enrollment
	if err := s.Post(ctx, "/lms/enrollments/", map[string]int64{"course": courseID}, &enrollment); err != nil {
		return nil, fmt.Errorf("lmsapi: enrolling in course %d: %w", courseID, err)
	}
	return &enrollment, nil
}

// MyEnrollments lists the caller's enrollments.
func (s *Session) MyEnrollments(ctx context.Context) ([]Enrollment, error) {
	return listOf[Enrollment](ctx, s, "/lms/enrollments/my_enrollments/", nil)
}

// DashboardStats fetches the role-dependent dashboard counters.
func (s *Session) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var stats DashboardStats
	if err := s.Get(ctx, "/lms/dashboard/stats/", nil, &stats); err != nil {
		return nil, fmt.Errorf("lmsapi: fetching dashboard stats: %w", err)
	}
	return &stats, nil
}

func coursePath(id int64) string {
	return "/lms/courses/" + strconv.FormatInt(id, 10) + "/"
}

func listOf[T any](ctx context.Context, s *Session, path string, query url.Values) ([]T, error) {
	body, err := s.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, fmt.Errorf("lmsapi: listing %s: %w", path, err)
	}
	items, err := decodeList[T](body)
	if err != nil {
		return nil, fmt.Errorf("lmsapi: failed to parse %s response: %w", path, err)
	}
	return items, nil
}
