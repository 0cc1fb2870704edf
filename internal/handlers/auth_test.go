package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/dailyoj/apiserver/internal/services"
	"github.com/dailyoj/apiserver/internal/store"
	"github.com/dailyoj/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type fakeUserRepo struct {
	mu     sync.Mutex
	byID   map[int]types.User
	byName map[string]types.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:   make(map[int]types.User),
		byName: make(map[string]types.User),
		nextID: 1,
	}
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byID[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byName[username]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.byName[user.Username]; exists {
		return types.User{}, store.ErrConflict
	}
	user.ID = f.nextID
	f.nextID++
	f.byID[user.ID] = user
	f.byName[user.Username] = user
	return user, nil
}

func authTestRouter() *chi.Mux {
	userService := services.NewUserService(newFakeUserRepo())
	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, userService, testSecret)
	})
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRegisterLoginMe(t *testing.T) {
	router := authTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/auth/register", `{"username":"alice","password":"hunter22"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"token"`)
	assert.NotContains(t, rec.Body.String(), "hunter22", "password material must not leak")

	rec = doJSON(t, router, http.MethodPost, "/auth/login", `{"username":"alice","password":"hunter22"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var login AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)

	rec = doJSON(t, router, http.MethodGet, "/auth/me", "", login.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"alice"`)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	router := authTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/auth/register", `{"username":"bob","password":"pw"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/auth/register", `{"username":"bob","password":"pw"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	router := authTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/auth/register", `{"username":"carol","password":"right"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/auth/login", `{"username":"carol","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/auth/login", `{"username":"nobody","password":"x"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeRequiresToken(t *testing.T) {
	router := authTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/auth/me", "", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := issueToken(17, []byte(testSecret), time.Minute)
	require.NoError(t, err)

	subject, err := parseTokenSubject(token, []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, "17", subject)

	_, err = parseTokenSubject(token, []byte("other-secret"))
	assert.Error(t, err)
}

func TestTokenExpiry(t *testing.T) {
	token, err := issueToken(1, []byte(testSecret), -time.Minute)
	require.NoError(t, err)

	_, err = parseTokenSubject(token, []byte(testSecret))
	assert.Error(t, err)
}

func TestUserIDFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), contextSubjectKey, "42")
	id, err := userIDFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	_, err = userIDFromContext(context.Background())
	assert.Error(t, err)

	_, err = userIDFromContext(context.WithValue(context.Background(), contextSubjectKey, "zero"))
	assert.Error(t, err)
}
