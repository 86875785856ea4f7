package city

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/FACorreiaa/go-city-crud/internal/types"
)

// MockService is a mock implementation of the Service interface
type MockService struct {
	mock.Mock
}

func (m *MockService) GetAllCities(ctx context.Context) ([]types.City, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.City), args.Error(1)
}

func (m *MockService) GetCity(ctx context.Context, id int64) (*types.City, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.City), args.Error(1)
}

func (m *MockService) CreateCity(ctx context.Context, req types.CreateCityRequest) (*types.City, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.City), args.Error(1)
}

func (m *MockService) UpdateCity(ctx context.Context, id int64, req types.UpdateCityRequest) (*types.City, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.City), args.Error(1)
}

func (m *MockService) DeleteCity(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// newHandlerRouter mounts the handler the same way the application router does
// so {id} is resolved by chi.
func newHandlerRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/cities", h.GetAllCities)
	r.Post("/cities", h.CreateCity)
	r.Get("/cities/{id}", h.GetCity)
	r.Put("/cities/{id}", h.UpdateCity)
	r.Delete("/cities/{id}", h.DeleteCity)
	return r
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) types.ErrorBody {
	t.Helper()
	var body types.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestNewCityHandler_NilLoggerPanics(t *testing.T) {
	assert.Panics(t, func() { NewCityHandler(new(MockService), nil) })
}

func TestHandler_GetAllCities(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockService)
		router := newHandlerRouter(NewCityHandler(mockService, newTestLogger()))
		cities := []types.City{{ID: 1, Name: "Tokyo", Country: "Japan"}, {ID: 2, Name: "Paris", Country: "France"}}
		mockService.On("GetAllCities", mock.Anything).Return(cities, nil).Once()

		w := doRequest(t, router, http.MethodGet, "/cities", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		var got []types.City
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, cities, got)
		mockService.AssertExpectations(t)
	})

	t.Run("Empty list is an array", func(t *testing.T) {
		mockService := new(MockService)
		router := newHandlerRouter(NewCityHandler(mockService, newTestLogger()))
		mockService.On("GetAllCities", mock.Anything).Return([]types.City{}, nil).Once()

		w := doRequest(t, router, http.MethodGet, "/cities", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	t.Run("Internal error is hidden", func(t *testing.T) {
		mockService := new(MockService)
		router := newHandlerRouter(NewCityHandler(mockService, newTestLogger()))
		mockService.On("GetAllCities", mock.Anything).Return(nil, errors.New("pq: password authentication failed")).Once()

		w := doRequest(t, router, http.MethodGet, "/cities", "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		body := decodeErrorBody(t, w)
		assert.Equal(t, "Internal Server Error", body.Error)
		assert.Equal(t, "Something went wrong on the server.", body.Message)
		assert.NotContains(t, w.Body.String(), "password")
	})
}

func TestHandler_GetCity(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockService)
		router := newHandlerRouter(NewCityHandler(mockService, newTestLogger()))
		mockService.On("GetCity", mock.Anything, int64(3)).
			Return(&types.City{ID: 3, Name: "Paris", Country: "France"}, nil).Once()

		w := doRequest(t, router, http.MethodGet, "/cities/3", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":3,"name":"Paris","country":"France"}`, w.Body.String())
		mockService.AssertExpectations(t)
	})

	t.Run("Not found", func(t *testing.T) {
		mockService := new(MockService)
		router := newHandlerRouter(NewCityHandler(mockService, newTestLogger()))
		mockService.On("GetCity", mock.Anything, int64(999)).Return(nil, types.ErrNotFound).Once()

		w := doRequest(t, router, http.MethodGet, "/cities/999", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		body := decodeErrorBody(t, w)
		assert.Equal(t, "Resource Not Found", body.Error)
		assert.Equal(t, "City with ID 999 does not exist.", body.Message)
	})

	t.Run("Non numeric id never reaches the service", func(t *testing.T) {
		mockService := new(MockService)
		router := newHandlerRouter(NewCityHandler(mockService, newTestLogger()))

		w := doRequest(t, router, http.MethodGet, "/cities/abc", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "City with ID abc does not exist.", decodeErrorBody(t, w).Message)
		mockService.AssertNotCalled(t, "GetCity", mock.Anything, mock.Anything)
	})
}

func TestHandler_CreateCity(t *testing.T) {
	t.Run("Created", func(t *testing.T) {
		mockService := new(MockService)
		router := newHandlerRouter(NewCityHandler(mockService, newTestLogger()))
		req := types.CreateCityRequest{Name: "Rome", Country: "Italy"}
		mockService.On("CreateCity", mock.Anything, req).
			Return(&types.City{ID: 4, Name: "Rome", Country: "Italy"}, nil).Once()

		w := doRequest(t, router, http.MethodPost, "/cities", `{"id":12345,"name":"Rome","country":"Italy"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.JSONEq(t, `{"id":4,"name":"Rome","country":"Italy"}`, w.Body.String())
		mockService.AssertExpectations(t)
	})

	t.Run("Validation error", func(t *testing.T) {
		mockService := new(MockService)
		router := newHandlerRouter(NewCityHandler(mockService, newTestLogger()))
		mockService.On("CreateCity", mock.Anything, types.CreateCityRequest{Name: "", Country: "Italy"}).
			Return(nil, types.NewValidationError("name", `Field "name" is required and must be a string.`)).Once()

		w := doRequest(t, router, http.MethodPost, "/cities", `{"name":"","country":"Italy"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeErrorBody(t, w)
		assert.Equal(t, "Validation Error", body.Error)
		assert.Equal(t, `Field "name" is required and must be a string.`, body.Message)
	})

	t.Run("Wrong JSON type", func(t *testing.T) {
		mockService := new(MockService)
		router := newHandlerRouter(NewCityHandler(mockService, newTestLogger()))

		w := doRequest(t, router, http.MethodPost, "/cities", `{"name":42,"country":"Italy"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, `Field "name" is required and must be a string.`, decodeErrorBody(t, w).Message)
		mockService.AssertNotCalled(t, "CreateCity", mock.Anything, mock.Anything)
	})

	t.Run("Malformed JSON", func(t *testing.T) {
		mockService := new(MockService)
		router := newHandlerRouter(NewCityHandler(mockService, newTestLogger()))

		w := doRequest(t, router, http.MethodPost, "/cities", `{"name":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Validation Error", decodeErrorBody(t, w).Error)
	})
}

func TestHandler_UpdateCity(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockService)
		router := newHandlerRouter(NewCityHandler(mockService, newTestLogger()))
		name := "Roma"
		mockService.On("UpdateCity", mock.Anything, int64(4), types.UpdateCityRequest{Name: &name}).
			Return(&types.City{ID: 4, Name: "Roma", Country: "Italy"}, nil).Once()

		w := doRequest(t, router, http.MethodPut, "/cities/4", `{"name":"Roma"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":4,"name":"Roma","country":"Italy"}`, w.Body.String())
		mockService.AssertExpectations(t)
	})

	t.Run("Not found", func(t *testing.T) {
		mockService := new(MockService)
		router := newHandlerRouter(NewCityHandler(mockService, newTestLogger()))
		mockService.On("UpdateCity", mock.Anything, int64(9), mock.Anything).
			Return(nil, types.ErrNotFound).Once()

		w := doRequest(t, router, http.MethodPut, "/cities/9", `{"country":"Spain"}`)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "City not found.", decodeErrorBody(t, w).Message)
	})

	t.Run("Non numeric id", func(t *testing.T) {
		mockService := new(MockService)
		router := newHandlerRouter(NewCityHandler(mockService, newTestLogger()))

		w := doRequest(t, router, http.MethodPut, "/cities/x1", `{"name":"Roma"}`)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "City not found.", decodeErrorBody(t, w).Message)
		mockService.AssertNotCalled(t, "UpdateCity", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHandler_DeleteCity(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockService := new(MockService)
		router := newHandlerRouter(NewCityHandler(mockService, newTestLogger()))
		mockService.On("DeleteCity", mock.Anything, int64(2)).Return(nil).Once()

		w := doRequest(t, router, http.MethodDelete, "/cities/2", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"message":"City deleted successfully","id":2}`, w.Body.String())
		mockService.AssertExpectations(t)
	})

	t.Run("Not found", func(t *testing.T) {
		mockService := new(MockService)
		router := newHandlerRouter(NewCityHandler(mockService, newTestLogger()))
		mockService.On("DeleteCity", mock.Anything, int64(2)).Return(types.ErrNotFound).Once()

		w := doRequest(t, router, http.MethodDelete, "/cities/2", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		body := decodeErrorBody(t, w)
		assert.Equal(t, "Resource Not Found", body.Error)
		assert.Equal(t, "City not found.", body.Message)
	})
}

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return recorder
}

func TestHandler_ServiceErrorsAreRecordedOnSpan(t *testing.T) {
	failure := errors.New("connection reset")
	cases := []struct {
		name   string
		span   string
		method string
		target string
		body   string
		setup  func(m *MockService)
	}{
		{"list", "GetAllCities", http.MethodGet, "/cities", "", func(m *MockService) {
			m.On("GetAllCities", mock.Anything).Return(nil, failure).Once()
		}},
		{"get", "GetCity", http.MethodGet, "/cities/1", "", func(m *MockService) {
			m.On("GetCity", mock.Anything, int64(1)).Return(nil, failure).Once()
		}},
		{"create", "CreateCity", http.MethodPost, "/cities", `{"name":"Rome","country":"Italy"}`, func(m *MockService) {
			m.On("CreateCity", mock.Anything, mock.Anything).Return(nil, failure).Once()
		}},
		{"update", "UpdateCity", http.MethodPut, "/cities/1", `{"name":"Roma"}`, func(m *MockService) {
			m.On("UpdateCity", mock.Anything, int64(1), mock.Anything).Return(nil, failure).Once()
		}},
		{"delete", "DeleteCity", http.MethodDelete, "/cities/1", "", func(m *MockService) {
			m.On("DeleteCity", mock.Anything, int64(1)).Return(failure).Once()
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := recordSpans(t)
			mockService := new(MockService)
			tc.setup(mockService)
			router := newHandlerRouter(NewCityHandler(mockService, newTestLogger()))

			w := doRequest(t, router, tc.method, tc.target, tc.body)
			assert.Equal(t, http.StatusInternalServerError, w.Code)

			spans := recorder.Ended()
			require.Len(t, spans, 1)
			span := spans[0]
			assert.Equal(t, tc.span, span.Name())
			assert.Equal(t, codes.Error, span.Status().Code)

			var exception bool
			for _, ev := range span.Events() {
				if ev.Name == "exception" {
					exception = true
				}
			}
			assert.True(t, exception, "span should carry the service error as an exception event")
			mockService.AssertExpectations(t)
		})
	}
}
