package recyclebin

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(repo *memoryRepo) chi.Router {
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	h := NewHandler(logger, NewService(repo, nil, nil))
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func TestPurgeReferencedRecordAnswersConflict(t *testing.T) {
	repo := newMemoryRepo()
	repo.add("stock_exits", "e1", "SAI-2025/001", ptr(time.Now()))
	repo.purgeErr = ErrReferenced

	req := httptest.NewRequest(http.MethodDelete, "/recycle-bin/stock_exits/e1", nil)
	rec := httptest.NewRecorder()
	newTestRouter(repo).ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "referenced")
}

func TestPurgeUnknownTableAnswersBadRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/recycle-bin/users/u1", nil)
	rec := httptest.NewRecorder()
	newTestRouter(newMemoryRepo()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
