package category_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domaincategory "github.com/alanyang/promptkit/internal/domain/category"
	"github.com/alanyang/promptkit/internal/mocks"
	categorysvc "github.com/alanyang/promptkit/internal/service/category"
	transportcategory "github.com/alanyang/promptkit/internal/transport/category"
)

func init() { gin.SetMode(gin.TestMode) }

func newRouter(svc *categorysvc.Service) *gin.Engine {
	r := gin.New()
	transportcategory.Register(r.Group("/categories"), svc)
	return r
}

func newCategorySvc(t *testing.T) (*categorysvc.Service, *mocks.MockCategoryRepository, *mocks.MockEventBus) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockCategoryRepository(ctrl)
	bus := mocks.NewMockEventBus(ctrl)
	return categorysvc.NewService(repo, bus), repo, bus
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body) //nolint:errcheck
	}
	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

// ── POST / ────────────────────────────────────────────────────────────────────

func TestCreateCategory(t *testing.T) {
	tests := []struct {
		name       string
		body       map[string]string
		setup      func(repo *mocks.MockCategoryRepository, bus *mocks.MockEventBus)
		wantStatus int
	}{
		{
			name: "created",
			body: map[string]string{"name": "writing", "description": "Prose prompts"},
			setup: func(repo *mocks.MockCategoryRepository, bus *mocks.MockEventBus) {
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, c domaincategory.Category) (domaincategory.Category, error) {
						return c, nil
					})
				bus.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing name",
			body:       map[string]string{"description": "x"},
			setup:      func(*mocks.MockCategoryRepository, *mocks.MockEventBus) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "blank name",
			body:       map[string]string{"name": "   "},
			setup:      func(*mocks.MockCategoryRepository, *mocks.MockEventBus) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "name taken",
			body: map[string]string{"name": "writing"},
			setup: func(repo *mocks.MockCategoryRepository, _ *mocks.MockEventBus) {
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(domaincategory.Category{}, domaincategory.ErrNameTaken)
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "repository failure",
			body: map[string]string{"name": "writing"},
			setup: func(repo *mocks.MockCategoryRepository, _ *mocks.MockEventBus) {
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(domaincategory.Category{}, errors.New("db down"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, bus := newCategorySvc(t)
			tt.setup(repo, bus)

			w := do(newRouter(svc), http.MethodPost, "/categories/", tt.body)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus == http.StatusCreated {
				var got domaincategory.Category
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Equal(t, "writing", got.Name)
				assert.Equal(t, "Prose prompts", got.Description)
				assert.NotEqual(t, uuid.Nil, got.ID)
			}
		})
	}
}

// ── GET / ─────────────────────────────────────────────────────────────────────

func TestListCategories(t *testing.T) {
	svc, repo, _ := newCategorySvc(t)
	repo.EXPECT().List(gomock.Any()).Return([]domaincategory.Category{
		domaincategory.New("a", ""),
		domaincategory.New("b", ""),
	}, nil)

	w := do(newRouter(svc), http.MethodGet, "/categories/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got []domaincategory.Category
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 2)
}

func TestListCategories_EmptyIsArray(t *testing.T) {
	svc, repo, _ := newCategorySvc(t)
	repo.EXPECT().List(gomock.Any()).Return(nil, nil)

	w := do(newRouter(svc), http.MethodGet, "/categories/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

// ── GET /:id ──────────────────────────────────────────────────────────────────

func TestGetCategory(t *testing.T) {
	svc, repo, _ := newCategorySvc(t)
	cat := domaincategory.New("coding", "")
	repo.EXPECT().GetByID(gomock.Any(), cat.ID).Return(cat, nil)

	w := do(newRouter(svc), http.MethodGet, fmt.Sprintf("/categories/%s", cat.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got domaincategory.Category
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, cat.ID, got.ID)
}

func TestGetCategory_Errors(t *testing.T) {
	svc, repo, _ := newCategorySvc(t)
	r := newRouter(svc)

	w := do(r, http.MethodGet, "/categories/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	missing := uuid.New()
	repo.EXPECT().GetByID(gomock.Any(), missing).Return(domaincategory.Category{}, domaincategory.ErrNotFound)
	w = do(r, http.MethodGet, "/categories/"+missing.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	broken := uuid.New()
	repo.EXPECT().GetByID(gomock.Any(), broken).Return(domaincategory.Category{}, errors.New("db down"))
	w = do(r, http.MethodGet, "/categories/"+broken.String(), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
