// Copyright 2026 The Lectern Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lectern-lms/lectern/lib/lmsapi"
	"github.com/lectern-lms/lectern/lib/lmstest"
	"github.com/lectern-lms/lectern/lib/secret"
	"github.com/lectern-lms/lectern/lib/storage"
	"github.com/lectern-lms/lectern/lib/testutil"
)

const testTimeout = 5 * time.Second

func testBuffer(t *testing.T, value string) *secret.Buffer {
	t.Helper()
	buffer, err := secret.NewFromString(value)
	if err != nil {
		t.Fatalf("creating test buffer: %v", err)
	}
	t.Cleanup(func() { buffer.Close() })
	return buffer
}

func newStore(t *testing.T, client *lmsapi.Client, persisted storage.Store) *Store {
	t.Helper()
	store, err := New(Config{Client: client, Storage: persisted})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

// persistSession writes a session the way a previous process would have.
func persistSession(t *testing.T, persisted storage.Store, user lmsapi.User, access, refresh string) {
	t.Helper()
	encoded, err := json.Marshal(user)
	if err != nil {
		t.Fatal(err)
	}
	persisted.Set(storage.KeyUser, string(encoded))
	persisted.Set(storage.KeyAccessToken, access)
	persisted.Set(storage.KeyRefreshToken, refresh)
}

func requireEmptyStorage(t *testing.T, persisted *storage.Memory) {
	t.Helper()
	if keys := persisted.Keys(); len(keys) != 0 {
		t.Errorf("storage keys = %v, want none", keys)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Config{Storage: storage.NewMemory()}); err == nil {
		t.Error("New without Client succeeded")
	}
	server := lmstest.New(t)
	if _, err := New(Config{Client: server.NewClient(t)}); err == nil {
		t.Error("New without Storage succeeded")
	}
}

func TestLoginThenLogoutLeavesNothing(t *testing.T) {
	server := lmstest.New(t)
	server.AddUser(lmsapi.User{Email: "ada@example.com", FirstName: "Ada"}, "password1")
	persisted := storage.NewMemory()
	store := newStore(t, server.NewClient(t), persisted)

	user, err := store.Login(context.Background(), lmsapi.LoginRequest{
		Email:    "ada@example.com",
		Password: testBuffer(t, "password1"),
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.FirstName != "Ada" || !store.Authenticated() {
		t.Fatalf("after login: user=%+v authenticated=%v", user, store.Authenticated())
	}
	for _, key := range []string{storage.KeyAccessToken, storage.KeyRefreshToken, storage.KeyUser} {
		if value, ok := persisted.Get(key); !ok || value == "" {
			t.Errorf("storage[%s] missing after login", key)
		}
	}

	if err := store.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if store.User() != nil || store.AccessToken() != "" || store.RefreshToken() != "" {
		t.Error("memory not cleared by logout")
	}
	requireEmptyStorage(t, persisted)

	// Idempotent.
	if err := store.Logout(); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
	requireEmptyStorage(t, persisted)
	if server.Count(http.MethodPost, "/auth/logout/") != 0 {
		t.Error("logout called the server")
	}
}

func TestLoginFailureKeepsPreviousSession(t *testing.T) {
	server := lmstest.New(t)
	server.AddUser(lmsapi.User{Email: "ada@example.com"}, "password1")
	persisted := storage.NewMemory()
	store := newStore(t, server.NewClient(t), persisted)
	ctx := context.Background()

	if _, err := store.Login(ctx, lmsapi.LoginRequest{Email: "ada@example.com", Password: testBuffer(t, "password1")}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	before := store.AccessToken()

	_, err := store.Login(ctx, lmsapi.LoginRequest{Email: "ada@example.com", Password: testBuffer(t, "wrong")})
	var apiErr *lmsapi.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected *APIError 400, got %v", err)
	}
	if lmsapi.Message(err, "Login failed") != "Invalid credentials" {
		t.Errorf("Message = %q", lmsapi.Message(err, "Login failed"))
	}
	if store.AccessToken() != before || store.User() == nil {
		t.Error("failed login changed the existing session")
	}
}

var errDiskFull = errors.New("disk full")

// failingStorage fails writes to failKey and, when failRemove is set,
// every Remove.
type failingStorage struct {
	*storage.Memory
	mu         sync.Mutex
	failKey    string
	failRemove bool
}

func (f *failingStorage) fail(key string, remove bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failKey = key
	f.failRemove = remove
}

func (f *failingStorage) Set(key, value string) error {
	f.mu.Lock()
	failing := key == f.failKey
	f.mu.Unlock()
	if failing {
		return errDiskFull
	}
	return f.Memory.Set(key, value)
}

func (f *failingStorage) Remove(keys ...string) error {
	f.mu.Lock()
	failing := f.failRemove
	f.mu.Unlock()
	if failing {
		return errDiskFull
	}
	return f.Memory.Remove(keys...)
}

func TestLoginPersistFailureRestoresPreviousSession(t *testing.T) {
	for _, key := range []string{storage.KeyRefreshToken, storage.KeyUser} {
		t.Run(key, func(t *testing.T) {
			server := lmstest.New(t)
			server.AddUser(lmsapi.User{Email: "ada@example.com"}, "password1")
			server.AddUser(lmsapi.User{Email: "grace@example.com"}, "password2")
			persisted := &failingStorage{Memory: storage.NewMemory()}
			store := newStore(t, server.NewClient(t), persisted)
			ctx := context.Background()

			ada, err := store.Login(ctx, lmsapi.LoginRequest{Email: "ada@example.com", Password: testBuffer(t, "password1")})
			if err != nil {
				t.Fatalf("Login: %v", err)
			}
			saved := make(map[string]string)
			for _, key := range persisted.Keys() {
				saved[key], _ = persisted.Get(key)
			}

			persisted.fail(key, false)
			_, err = store.Login(ctx, lmsapi.LoginRequest{Email: "grace@example.com", Password: testBuffer(t, "password2")})
			if !errors.Is(err, errDiskFull) {
				t.Fatalf("Login error = %v, want disk full", err)
			}
			for key, want := range saved {
				if got, _ := persisted.Get(key); got != want {
					t.Errorf("%s = %q after failed login, want %q", key, got, want)
				}
			}
			if user := store.User(); user == nil || user.ID != ada.ID {
				t.Errorf("User() = %+v, want the previous session", user)
			}
		})
	}
}

func TestLoginPersistFailureReportsRestoreFailure(t *testing.T) {
	server := lmstest.New(t)
	server.AddUser(lmsapi.User{Email: "ada@example.com"}, "password1")
	persisted := &failingStorage{Memory: storage.NewMemory()}
	persisted.fail(storage.KeyUser, true)
	store := newStore(t, server.NewClient(t), persisted)

	_, err := store.Login(context.Background(), lmsapi.LoginRequest{Email: "ada@example.com", Password: testBuffer(t, "password1")})
	if err == nil {
		t.Fatal("Login succeeded with failing storage")
	}
	for _, want := range []string{"persisting user", "restoring " + storage.KeyAccessToken} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
	if store.User() != nil {
		t.Error("failed login published a user")
	}
}

func TestBootstrapWithoutPersistedUser(t *testing.T) {
	server := lmstest.New(t)
	persisted := storage.NewMemory()
	persisted.Set(storage.KeyAccessToken, "orphan")
	persisted.Set(storage.KeyTheme, "dark")
	store := newStore(t, server.NewClient(t), persisted)

	if !store.Loading() {
		t.Fatal("Loading() false before bootstrap")
	}
	var transitions []bool
	store.Subscribe(func(*lmsapi.User) { transitions = append(transitions, store.Loading()) })

	store.Bootstrap(context.Background())
	testutil.RequireClosed(t, store.Ready(), testTimeout, "bootstrap ready")

	if store.Loading() {
		t.Error("Loading() true after Ready")
	}
	if store.User() != nil {
		t.Error("user present without persisted record")
	}
	if len(transitions) != 0 {
		t.Errorf("listeners called %d times, want 0", len(transitions))
	}
	if _, ok := persisted.Get(storage.KeyAccessToken); ok {
		t.Error("orphaned access token not cleared")
	}
	if value, _ := persisted.Get(storage.KeyTheme); value != "dark" {
		t.Error("bootstrap touched the theme key")
	}
	if server.Count(http.MethodGet, "/auth/profile/") != 0 {
		t.Error("bootstrap without a user fetched the profile")
	}
}

func TestBootstrapRefreshesUser(t *testing.T) {
	server := lmstest.New(t)
	user := server.AddUser(lmsapi.User{Email: "ada@example.com", FirstName: "Ada", Theme: lmsapi.ThemeDark}, "password1")
	access, refresh := server.IssueTokens(user.ID)

	cached := user
	cached.FirstName = "Old"
	persisted := storage.NewMemory()
	persistSession(t, persisted, cached, access, refresh)

	store := newStore(t, server.NewClient(t), persisted)
	store.Bootstrap(context.Background())

	// The cached user is published synchronously.
	if got := store.User(); got == nil || got.ID != user.ID {
		t.Fatalf("User() right after Bootstrap = %+v", got)
	}

	testutil.RequireClosed(t, store.Ready(), testTimeout, "bootstrap ready")
	if got := store.User(); got.FirstName != "Ada" {
		t.Errorf("FirstName = %q, want refreshed value Ada", got.FirstName)
	}
	if store.Stale() {
		t.Error("Stale() after successful refresh")
	}
	encoded, _ := persisted.Get(storage.KeyUser)
	var stored lmsapi.User
	json.Unmarshal([]byte(encoded), &stored)
	if stored.FirstName != "Ada" {
		t.Errorf("persisted FirstName = %q, want Ada", stored.FirstName)
	}
}

func TestBootstrapUnauthorizedLogsOut(t *testing.T) {
	server := lmstest.New(t)
	user := server.AddUser(lmsapi.User{Email: "ada@example.com"}, "password1")
	access, refresh := server.IssueTokens(user.ID)
	server.RevokeTokens()

	persisted := storage.NewMemory()
	persistSession(t, persisted, user, access, refresh)
	store := newStore(t, server.NewClient(t), persisted)

	var published []*lmsapi.User
	var mu sync.Mutex
	store.Subscribe(func(user *lmsapi.User) {
		mu.Lock()
		published = append(published, user)
		mu.Unlock()
	})

	store.Bootstrap(context.Background())
	testutil.RequireClosed(t, store.Ready(), testTimeout, "bootstrap ready")

	if store.User() != nil {
		t.Error("user present after 401")
	}
	requireEmptyStorage(t, persisted)
	if server.Count(http.MethodPost, "/auth/token/refresh/") != 1 {
		t.Errorf("refresh attempts = %d, want 1", server.Count(http.MethodPost, "/auth/token/refresh/"))
	}

	mu.Lock()
	defer mu.Unlock()
	if len(published) != 2 || published[0] == nil || published[1] != nil {
		t.Errorf("published = %v, want [user, nil]", published)
	}
}

func TestBootstrapServerErrorKeepsCachedUser(t *testing.T) {
	server := lmstest.New(t)
	user := server.AddUser(lmsapi.User{Email: "ada@example.com", FirstName: "Ada"}, "password1")
	access, refresh := server.IssueTokens(user.ID)
	server.FailNext(http.MethodGet, "/auth/profile/", http.StatusInternalServerError, `{"detail":"boom"}`)

	persisted := storage.NewMemory()
	persistSession(t, persisted, user, access, refresh)
	store := newStore(t, server.NewClient(t), persisted)

	store.Bootstrap(context.Background())
	testutil.RequireClosed(t, store.Ready(), testTimeout, "bootstrap ready")

	if got := store.User(); got == nil || got.FirstName != "Ada" {
		t.Fatalf("User() = %+v, want cached user", got)
	}
	if !store.Stale() {
		t.Error("Stale() false after failed refresh")
	}
	if store.AccessToken() != access {
		t.Error("tokens changed after failed refresh")
	}
}

func TestBootstrapTransportErrorKeepsCachedUser(t *testing.T) {
	unreachable := httptest.NewServer(http.NotFoundHandler())
	unreachable.Close()
	client, err := lmsapi.NewClient(lmsapi.ClientConfig{BaseURL: unreachable.URL})
	if err != nil {
		t.Fatal(err)
	}

	persisted := storage.NewMemory()
	persistSession(t, persisted, lmsapi.User{ID: 3, Email: "ada@example.com"}, "access", "refresh")
	store := newStore(t, client, persisted)

	store.Bootstrap(context.Background())
	testutil.RequireClosed(t, store.Ready(), testTimeout, "bootstrap ready")
	if got := store.User(); got == nil || got.ID != 3 {
		t.Fatalf("User() = %+v, want cached user", got)
	}
	if !store.Stale() {
		t.Error("Stale() false after transport failure")
	}
}

func TestBootstrapCorruptUserIsAbsent(t *testing.T) {
	server := lmstest.New(t)
	persisted := storage.NewMemory()
	persisted.Set(storage.KeyUser, "{not json")
	persisted.Set(storage.KeyAccessToken, "access")
	store := newStore(t, server.NewClient(t), persisted)

	store.Bootstrap(context.Background())
	testutil.RequireClosed(t, store.Ready(), testTimeout, "bootstrap ready")
	if store.User() != nil {
		t.Error("corrupt record produced a user")
	}
	requireEmptyStorage(t, persisted)
}

func TestBootstrapIsIdempotent(t *testing.T) {
	server := lmstest.New(t)
	user := server.AddUser(lmsapi.User{Email: "ada@example.com"}, "password1")
	access, refresh := server.IssueTokens(user.ID)
	persisted := storage.NewMemory()
	persistSession(t, persisted, user, access, refresh)
	store := newStore(t, server.NewClient(t), persisted)

	store.Bootstrap(context.Background())
	store.Bootstrap(context.Background())
	testutil.RequireClosed(t, store.Ready(), testTimeout, "bootstrap ready")
	if got := server.Count(http.MethodGet, "/auth/profile/"); got != 1 {
		t.Errorf("profile fetches = %d, want 1", got)
	}
}

func TestBootstrapRefreshSupersededByLogin(t *testing.T) {
	server := lmstest.New(t)
	cachedUser := server.AddUser(lmsapi.User{Email: "old@example.com", FirstName: "Old"}, "password1")
	server.AddUser(lmsapi.User{Email: "new@example.com", FirstName: "New"}, "password2")
	access, refresh := server.IssueTokens(cachedUser.ID)

	persisted := storage.NewMemory()
	persistSession(t, persisted, cachedUser, access, refresh)
	store := newStore(t, server.NewClient(t), persisted)

	release := server.Block(http.MethodGet, "/auth/profile/")
	defer release()
	store.Bootstrap(context.Background())

	testutil.RequireEventually(t, testTimeout, func() bool {
		return server.Count(http.MethodGet, "/auth/profile/") == 1
	}, "profile refresh in flight")

	if _, err := store.Login(context.Background(), lmsapi.LoginRequest{
		Email:    "new@example.com",
		Password: testBuffer(t, "password2"),
	}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	release()
	testutil.RequireClosed(t, store.Ready(), testTimeout, "bootstrap ready")

	if got := store.User(); got == nil || got.FirstName != "New" {
		t.Errorf("User() = %+v, want the newly logged-in user", got)
	}
}

func TestRegisterValidationFailure(t *testing.T) {
	server := lmstest.New(t)
	server.AddUser(lmsapi.User{Email: "ada@example.com"}, "password1")
	persisted := storage.NewMemory()
	store := newStore(t, server.NewClient(t), persisted)

	_, err := store.Register(context.Background(), lmsapi.RegisterRequest{
		Email:    "ada@example.com",
		Password: testBuffer(t, "long-enough"),
		Role:     lmsapi.RoleStudent,
	})
	var formErr *FormError
	if !errors.As(err, &formErr) {
		t.Fatalf("expected *FormError, got %v", err)
	}
	if formErr.Message != MessageCheckForm {
		t.Errorf("Message = %q, want %q", formErr.Message, MessageCheckForm)
	}
	if got := formErr.Fields["email"]; len(got) != 1 {
		t.Errorf("email errors = %v", got)
	}
	if !lmsapi.IsValidation(err) {
		t.Error("FormError does not unwrap to the API error")
	}
	requireEmptyStorage(t, persisted)
	if store.Authenticated() {
		t.Error("failed registration authenticated the store")
	}
}

func TestRegisterDetailAndTransportMessages(t *testing.T) {
	t.Run("detail", func(t *testing.T) {
		server := lmstest.New(t)
		server.FailNext(http.MethodPost, "/auth/register/", http.StatusServiceUnavailable, `{"detail": "Registration is closed."}`)
		store := newStore(t, server.NewClient(t), storage.NewMemory())

		_, err := store.Register(context.Background(), lmsapi.RegisterRequest{Email: "x@example.com", Password: testBuffer(t, "long-enough")})
		var formErr *FormError
		if !errors.As(err, &formErr) || formErr.Message != "Registration is closed." {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("no response", func(t *testing.T) {
		unreachable := httptest.NewServer(http.NotFoundHandler())
		unreachable.Close()
		client, _ := lmsapi.NewClient(lmsapi.ClientConfig{BaseURL: unreachable.URL})
		store := newStore(t, client, storage.NewMemory())

		_, err := store.Register(context.Background(), lmsapi.RegisterRequest{Email: "x@example.com", Password: testBuffer(t, "long-enough")})
		var formErr *FormError
		if !errors.As(err, &formErr) || formErr.Message != MessageRegistrationFailed {
			t.Fatalf("got %v", err)
		}
		if len(formErr.Fields) != 0 {
			t.Errorf("Fields = %v, want none", formErr.Fields)
		}
	})
}

func TestRegisterSuccess(t *testing.T) {
	server := lmstest.New(t)
	persisted := storage.NewMemory()
	store := newStore(t, server.NewClient(t), persisted)

	user, err := store.Register(context.Background(), lmsapi.RegisterRequest{
		Email:     "grace@example.com",
		Password:  testBuffer(t, "long-enough"),
		FirstName: "Grace",
		Role:      lmsapi.RoleInstructor,
		Theme:     lmsapi.ThemeDark,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != lmsapi.RoleInstructor || user.Theme != lmsapi.ThemeDark {
		t.Errorf("user = %+v", user)
	}
	if _, ok := persisted.Get(storage.KeyRefreshToken); !ok {
		t.Error("refresh token not persisted")
	}
}

func TestUpdateUserAndSubscribe(t *testing.T) {
	server := lmstest.New(t)
	server.AddUser(lmsapi.User{Email: "ada@example.com"}, "password1")
	persisted := storage.NewMemory()
	store := newStore(t, server.NewClient(t), persisted)

	if err := store.UpdateUser(lmsapi.User{ID: 1}); !IsNotAuthenticated(err) {
		t.Fatalf("UpdateUser while logged out = %v, want ErrNotAuthenticated", err)
	}

	var themes []lmsapi.Theme
	cancel := store.Subscribe(func(user *lmsapi.User) {
		if user == nil {
			themes = append(themes, "")
			return
		}
		themes = append(themes, user.Theme)
	})

	user, err := store.Login(context.Background(), lmsapi.LoginRequest{Email: "ada@example.com", Password: testBuffer(t, "password1")})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	updated := *user
	updated.Theme = lmsapi.ThemeDark
	if err := store.UpdateUser(updated); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if store.User().Theme != lmsapi.ThemeDark {
		t.Error("UpdateUser not applied in memory")
	}
	encoded, _ := persisted.Get(storage.KeyUser)
	var stored lmsapi.User
	json.Unmarshal([]byte(encoded), &stored)
	if stored.Theme != lmsapi.ThemeDark {
		t.Error("UpdateUser not persisted")
	}

	cancel()
	store.Logout()

	want := []lmsapi.Theme{lmsapi.ThemeLight, lmsapi.ThemeDark}
	if len(themes) != len(want) {
		t.Fatalf("notifications = %v, want %v", themes, want)
	}
	for index := range want {
		if themes[index] != want[index] {
			t.Errorf("notification %d = %q, want %q", index, themes[index], want[index])
		}
	}
}

func TestNotificationsAreSerialized(t *testing.T) {
	server := lmstest.New(t)
	server.AddUser(lmsapi.User{Email: "ada@example.com"}, "password1")
	store := newStore(t, server.NewClient(t), storage.NewMemory())
	user, err := store.Login(context.Background(), lmsapi.LoginRequest{Email: "ada@example.com", Password: testBuffer(t, "password1")})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	deliveries := make(chan *lmsapi.User)
	release := make(chan struct{})
	cancel := store.Subscribe(func(user *lmsapi.User) {
		deliveries <- user
		<-release
	})
	defer cancel()

	rename := func(name string) {
		updated := *user
		updated.FirstName = name
		if err := store.UpdateUser(updated); err != nil {
			t.Errorf("UpdateUser(%s): %v", name, err)
		}
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rename("first")
	}()
	if got := testutil.RequireReceive(t, deliveries, testTimeout, "first delivery"); got.FirstName != "first" {
		t.Fatalf("first delivery = %q", got.FirstName)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		rename("second")
	}()
	testutil.RequireEventually(t, testTimeout, func() bool {
		return store.User().FirstName == "second"
	}, "second update applied")
	select {
	case got := <-deliveries:
		t.Fatalf("delivery %q overlapped the one still running", got.FirstName)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if got := testutil.RequireReceive(t, deliveries, testTimeout, "second delivery"); got.FirstName != "second" {
		t.Errorf("second delivery = %q", got.FirstName)
	}
	wg.Wait()
}

func TestUserReturnsCopy(t *testing.T) {
	server := lmstest.New(t)
	server.AddUser(lmsapi.User{Email: "ada@example.com", FirstName: "Ada"}, "password1")
	store := newStore(t, server.NewClient(t), storage.NewMemory())
	if _, err := store.Login(context.Background(), lmsapi.LoginRequest{Email: "ada@example.com", Password: testBuffer(t, "password1")}); err != nil {
		t.Fatal(err)
	}

	user := store.User()
	user.FirstName = "Mutated"
	if store.User().FirstName != "Ada" {
		t.Error("mutating the returned user changed the store")
	}
}

func TestSetAccessTokenAfterLogoutIsDropped(t *testing.T) {
	server := lmstest.New(t)
	persisted := storage.NewMemory()
	store := newStore(t, server.NewClient(t), persisted)

	if err := store.SetAccessToken("late"); !IsNotAuthenticated(err) {
		t.Fatalf("SetAccessToken = %v, want ErrNotAuthenticated", err)
	}
	requireEmptyStorage(t, persisted)
}

func TestAPIUsesStoreCredentials(t *testing.T) {
	server := lmstest.New(t)
	server.AddUser(lmsapi.User{Email: "ada@example.com"}, "password1")
	store := newStore(t, server.NewClient(t), storage.NewMemory())
	ctx := context.Background()

	if _, err := store.API().Profile(ctx); !lmsapi.IsUnauthorized(err) {
		t.Fatalf("Profile before login = %v, want 401", err)
	}
	if _, err := store.Login(ctx, lmsapi.LoginRequest{Email: "ada@example.com", Password: testBuffer(t, "password1")}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.API().Profile(ctx); err != nil {
		t.Fatalf("Profile after login: %v", err)
	}
}
