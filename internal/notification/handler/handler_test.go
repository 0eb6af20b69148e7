package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"custodia/internal/notification"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/requestcontext"
	"custodia/pkg/testutil"
)

func newRouter(service Service) http.Handler {
	r := chi.NewRouter()
	New(service, testutil.DiscardLogger()).Register(r)
	return r
}

// asUser injects the authenticated user the middleware chain normally sets.
func asUser(req *http.Request, userID id.UserID) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}

func TestHandleList(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	router := newRouter(service)

	t.Run("returns the user's notifications", func(t *testing.T) {
		now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
		service.EXPECT().List(gomock.Any(), id.UserID(7)).Return([]*notification.Notification{
			{ID: 1, EvidenceID: 10, UserID: 7, Content: "New comment on Invoice", CreatedAt: now, UpdatedAt: now},
		}, nil)

		req := asUser(httptest.NewRequest(http.MethodGet, "/notification/", nil), 7)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var body []struct {
			Content string `json:"content"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(body) != 1 || body[0].Content != "New comment on Invoice" {
			t.Fatalf("unexpected body: %+v", body)
		}
	})

	t.Run("missing user is unauthorized", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/notification/", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 without a user in context, got %d", rec.Code)
		}
	})

	t.Run("service failure maps to 500", func(t *testing.T) {
		service.EXPECT().List(gomock.Any(), id.UserID(7)).
			Return(nil, dErrors.New(dErrors.CodeInternal, "boom"))

		req := asUser(httptest.NewRequest(http.MethodGet, "/notification/", nil), 7)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})
}

func TestHandleMarkOpened(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	router := newRouter(service)

	t.Run("marks and returns the notification", func(t *testing.T) {
		service.EXPECT().MarkOpened(gomock.Any(), id.NotificationID(5)).
			Return(&notification.Notification{ID: 5, UserID: 7, Opened: true}, nil)

		req := asUser(httptest.NewRequest(http.MethodPost, "/notification/5/open", nil), 7)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var body struct {
			Opened bool `json:"opened"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if !body.Opened {
			t.Fatalf("expected opened notification in response")
		}
	})

	t.Run("malformed id is a bad request", func(t *testing.T) {
		req := asUser(httptest.NewRequest(http.MethodPost, "/notification/abc/open", nil), 7)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for malformed id, got %d", rec.Code)
		}
	})

	t.Run("unknown notification maps to 404", func(t *testing.T) {
		service.EXPECT().MarkOpened(gomock.Any(), id.NotificationID(99)).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "notification not found"))

		req := asUser(httptest.NewRequest(http.MethodPost, "/notification/99/open", nil), 7)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
