package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/userhub/engine/internal/models"
	"github.com/userhub/engine/internal/services"
	appErr "github.com/userhub/engine/pkg/errors"
	"github.com/userhub/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "json", ""); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) FetchAndSave(ctx context.Context, count int) (*services.BatchReport, error) {
	args := m.Called(ctx, count)
	if v := args.Get(0); v != nil {
		return v.(*services.BatchReport), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserService) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	args := m.Called(ctx, limit, offset)
	if v := args.Get(0); v != nil {
		return v.([]models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserService) Update(ctx context.Context, id uint, upd models.UserUpdate) (*models.User, error) {
	args := m.Called(ctx, id, upd)
	if v := args.Get(0); v != nil {
		return v.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserService) Delete(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserService) GetRandom(ctx context.Context) (*models.User, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueueFetch(ctx context.Context, count int) (string, error) {
	args := m.Called(ctx, count)
	return args.String(0), args.Error(1)
}

func serve(h *UsersHandler, method, target, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.Routes(r)
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func detail(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body["detail"]
}

func TestFetchSync(t *testing.T) {
	svc := &mockUserService{}
	report := &services.BatchReport{
		Requested: 3,
		Created:   []models.User{{ID: 1, Email: "a@example.com"}, {ID: 2, Email: "b@example.com"}},
		Items:     make([]services.ItemResult, 3),
	}
	svc.On("FetchAndSave", mock.Anything, 3).Return(report, nil).Once()

	rr := serve(NewUsersHandler(svc, nil, 5000), http.MethodPost, "/users/fetch?count=3", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("X-Skipped-Count"))

	var users []models.User
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&users))
	assert.Len(t, users, 2)
	svc.AssertExpectations(t)
}

func TestFetchErrors(t *testing.T) {
	svc := &mockUserService{}
	svc.On("FetchAndSave", mock.Anything, 6000).
		Return(nil, appErr.New(appErr.CodeInvalid, "Too many users requested, max - 5000")).Once()
	svc.On("FetchAndSave", mock.Anything, 10).
		Return(nil, appErr.New(appErr.CodeUnavailable, "random user service unavailable")).Once()
	h := NewUsersHandler(svc, nil, 5000)

	rr := serve(h, http.MethodPost, "/users/fetch?count=6000", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Too many users requested, max - 5000", detail(t, rr))

	rr = serve(h, http.MethodPost, "/users/fetch?count=10", "")
	require.Equal(t, http.StatusBadGateway, rr.Code)

	rr = serve(h, http.MethodPost, "/users/fetch?count=abc", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(h, http.MethodPost, "/users/fetch?count=0", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(h, http.MethodPost, "/users/fetch?count=5&async=true", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertExpectations(t)
}

func TestFetchAsync(t *testing.T) {
	svc := &mockUserService{}
	enq := &mockEnqueuer{}
	enq.On("EnqueueFetch", mock.Anything, 500).Return("task-42", nil).Once()
	h := NewUsersHandler(svc, enq, 5000)

	rr := serve(h, http.MethodPost, "/users/fetch?count=500&async=true", "")
	require.Equal(t, http.StatusAccepted, rr.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "task-42", body["task_id"])

	rr = serve(h, http.MethodPost, "/users/fetch?count=5001&async=true", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	enq.AssertExpectations(t)
	svc.AssertNotCalled(t, "FetchAndSave", mock.Anything, mock.Anything)
}

func TestListParams(t *testing.T) {
	svc := &mockUserService{}
	svc.On("List", mock.Anything, 10, 0).Return([]models.User{}, nil).Once()
	svc.On("List", mock.Anything, 5, 10).Return([]models.User{{ID: 11}}, nil).Once()
	h := NewUsersHandler(svc, nil, 5000)

	rr := serve(h, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())

	rr = serve(h, http.MethodGet, "/users?limit=5&offset=10", "")
	require.Equal(t, http.StatusOK, rr.Code)

	for _, q := range []string{"limit=0", "limit=1001", "offset=-1", "limit=x"} {
		rr = serve(h, http.MethodGet, "/users?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
	svc.AssertExpectations(t)
}

func TestGetUser(t *testing.T) {
	svc := &mockUserService{}
	svc.On("GetByID", mock.Anything, uint(7)).Return(&models.User{ID: 7, Email: "x@example.com"}, nil).Once()
	svc.On("GetByID", mock.Anything, uint(8)).Return(nil, appErr.New(appErr.CodeNotFound, "User not found")).Once()
	h := NewUsersHandler(svc, nil, 5000)

	rr := serve(h, http.MethodGet, "/users/7", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(h, http.MethodGet, "/users/8", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "User not found", detail(t, rr))

	rr = serve(h, http.MethodGet, "/users/abc", "")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertExpectations(t)
}

func TestUpdateUser(t *testing.T) {
	svc := &mockUserService{}
	svc.On("Update", mock.Anything, uint(3), mock.MatchedBy(func(u models.UserUpdate) bool {
		return u.FirstName != nil && *u.FirstName == "Updated" && u.LastName == nil
	})).Return(&models.User{ID: 3, FirstName: "Updated"}, nil).Once()
	svc.On("Update", mock.Anything, uint(4), mock.Anything).
		Return(nil, appErr.New(appErr.CodeConflict, "duplicate email")).Once()
	h := NewUsersHandler(svc, nil, 5000)

	rr := serve(h, http.MethodPut, "/users/3", `{"first_name":"Updated"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(h, http.MethodPut, "/users/4", `{"email":"taken@example.com"}`)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = serve(h, http.MethodPut, "/users/3", `{"first_name":`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertExpectations(t)
}

func TestDeleteUser(t *testing.T) {
	svc := &mockUserService{}
	svc.On("Delete", mock.Anything, uint(1)).Return(nil).Once()
	svc.On("Delete", mock.Anything, uint(2)).Return(appErr.New(appErr.CodeNotFound, "User not found")).Once()
	h := NewUsersHandler(svc, nil, 5000)

	rr := serve(h, http.MethodDelete, "/users/1", "")
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())

	rr = serve(h, http.MethodDelete, "/users/2", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	svc.AssertExpectations(t)
}

func TestRandomUser(t *testing.T) {
	svc := &mockUserService{}
	svc.On("GetRandom", mock.Anything).Return(nil, appErr.New(appErr.CodeNotFound, "User not found")).Once()

	rr := serve(NewUsersHandler(svc, nil, 5000), http.MethodGet, "/random", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"detail":"User not found"}`, rr.Body.String())
}
