package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/creditx/hold-service/internal/api_gateway/middleware"
	"github.com/creditx/hold-service/internal/domain/hold"
)

type MockHoldService struct {
	mock.Mock
}

func (m *MockHoldService) CreateHold(ctx context.Context, req *hold.CreateRequest) (*hold.CreateResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*hold.CreateResult), args.Error(1)
}

func (m *MockHoldService) GetHold(ctx context.Context, id int64) (*hold.Hold, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*hold.Hold), args.Error(1)
}

func newRouter(mockService *MockHoldService) *gin.Engine {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	h := NewHoldHandler(logger, mockService)

	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.POST("/holds", h.Create)
	router.GET("/holds/:id", h.GetByID)
	return router
}

func postHold(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodPost, "/holds", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "'data' field should be a map")
	assert.NotEmpty(t, response["correlation_id"])
	return data
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	errField, ok := response["error"].(map[string]interface{})
	require.True(t, ok, "'error' field should be a map")
	return errField
}

const validBody = `{"transactionId":100,"issuerAccountId":1,"merchantAccountId":2,"amount":"250.00","currency":"USD"}`

func TestHoldHandler_Create(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Created", func(t *testing.T) {
		mockService := new(MockHoldService)
		mockService.On("CreateHold", mock.Anything, mock.MatchedBy(func(req *hold.CreateRequest) bool {
			return req.TransactionID == 100 &&
				req.IssuerAccountID == 1 &&
				req.MerchantAccountID == 2 &&
				req.Amount.Equal(decimal.RequireFromString("250")) &&
				req.Currency == "USD"
		})).Return(&hold.CreateResult{HoldID: 5, Status: hold.StatusAuthorized}, nil)

		rr := postHold(newRouter(mockService), validBody)

		assert.Equal(t, http.StatusCreated, rr.Code)
		data := decodeData(t, rr)
		assert.Equal(t, float64(5), data["holdId"])
		assert.Equal(t, "AUTHORIZED", data["status"])
		mockService.AssertExpectations(t)
	})

	t.Run("NumericAmountIsAccepted", func(t *testing.T) {
		mockService := new(MockHoldService)
		mockService.On("CreateHold", mock.Anything, mock.MatchedBy(func(req *hold.CreateRequest) bool {
			return req.Amount.Equal(decimal.RequireFromString("12.5"))
		})).Return(&hold.CreateResult{HoldID: 6, Status: hold.StatusAuthorized}, nil)

		rr := postHold(newRouter(mockService),
			`{"transactionId":101,"issuerAccountId":1,"merchantAccountId":2,"amount":12.5}`)

		assert.Equal(t, http.StatusCreated, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("ReplayReturnsOK", func(t *testing.T) {
		mockService := new(MockHoldService)
		mockService.On("CreateHold", mock.Anything, mock.Anything).
			Return(&hold.CreateResult{HoldID: 5, Status: hold.StatusCaptured, Replayed: true}, nil)

		rr := postHold(newRouter(mockService), validBody)

		assert.Equal(t, http.StatusOK, rr.Code)
		data := decodeData(t, rr)
		assert.Equal(t, float64(5), data["holdId"])
		assert.Equal(t, "CAPTURED", data["status"])
	})

	t.Run("MalformedBody", func(t *testing.T) {
		mockService := new(MockHoldService)
		rr := postHold(newRouter(mockService), `{"invalid`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "BAD_REQUEST", decodeError(t, rr)["code"])
		mockService.AssertNotCalled(t, "CreateHold", mock.Anything, mock.Anything)
	})

	t.Run("MissingTransactionID", func(t *testing.T) {
		mockService := new(MockHoldService)
		rr := postHold(newRouter(mockService), `{"issuerAccountId":1,"merchantAccountId":2,"amount":"1.00"}`)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "CreateHold", mock.Anything, mock.Anything)
	})

	t.Run("ValidationErrorMapsToBadRequest", func(t *testing.T) {
		mockService := new(MockHoldService)
		mockService.On("CreateHold", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: amount must be greater than 0", hold.ErrInvalidRequest))

		rr := postHold(newRouter(mockService), validBody)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decodeError(t, rr)["message"], "amount must be greater than 0")
	})

	t.Run("ValidationProblemsAreListed", func(t *testing.T) {
		mockService := new(MockHoldService)
		mockService.On("CreateHold", mock.Anything, mock.Anything).
			Return(nil, &hold.ValidationError{Problems: []string{"amount must be greater than 0", "currency must be a 3-letter code"}})

		rr := postHold(newRouter(mockService), validBody)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		errField := decodeError(t, rr)
		assert.Equal(t, "BAD_REQUEST", errField["code"])
		assert.Equal(t, []interface{}{"amount must be greater than 0", "currency must be a 3-letter code"}, errField["details"])
	})

	t.Run("FraudRejectionMapsToBadRequest", func(t *testing.T) {
		mockService := new(MockHoldService)
		mockService.On("CreateHold", mock.Anything, mock.Anything).Return(nil, hold.ErrFraudLimitExceeded)

		rr := postHold(newRouter(mockService), validBody)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("StorageFailureMapsToInternalError", func(t *testing.T) {
		mockService := new(MockHoldService)
		mockService.On("CreateHold", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

		rr := postHold(newRouter(mockService), validBody)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		errField := decodeError(t, rr)
		assert.Equal(t, "INTERNAL_SERVER_ERROR", errField["code"])
		assert.NotContains(t, errField["message"], "connection refused")
	})
}

func TestHoldHandler_GetByID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	get := func(router *gin.Engine, id string) *httptest.ResponseRecorder {
		req, _ := http.NewRequest(http.MethodGet, "/holds/"+id, nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	t.Run("Found", func(t *testing.T) {
		now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
		mockService := new(MockHoldService)
		mockService.On("GetHold", mock.Anything, int64(5)).Return(&hold.Hold{
			ID:            5,
			TransactionID: 100,
			AccountID:     1,
			Amount:        decimal.RequireFromString("250"),
			Status:        hold.StatusAuthorized,
			CreatedAt:     now,
			UpdatedAt:     now,
			ExpiresAt:     now.Add(7 * 24 * time.Hour),
		}, nil)

		rr := get(newRouter(mockService), "5")

		assert.Equal(t, http.StatusOK, rr.Code)
		data := decodeData(t, rr)
		assert.Equal(t, float64(5), data["holdId"])
		assert.Equal(t, "250.00", data["amount"])
		assert.Equal(t, "AUTHORIZED", data["status"])
		assert.Equal(t, "2025-03-17T12:00:00Z", data["expiresAt"])
	})

	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockHoldService)
		mockService.On("GetHold", mock.Anything, int64(6)).Return(nil, hold.ErrHoldNotFound{HoldID: 6})

		rr := get(newRouter(mockService), "6")

		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "NOT_FOUND", decodeError(t, rr)["code"])
	})

	t.Run("InvalidID", func(t *testing.T) {
		mockService := new(MockHoldService)
		for _, id := range []string{"abc", "0", "-3"} {
			rr := get(newRouter(mockService), id)
			assert.Equal(t, http.StatusBadRequest, rr.Code, id)
		}
		mockService.AssertNotCalled(t, "GetHold", mock.Anything, mock.Anything)
	})

	t.Run("ServiceError", func(t *testing.T) {
		mockService := new(MockHoldService)
		mockService.On("GetHold", mock.Anything, int64(7)).Return(nil, errors.New("db down"))

		rr := get(newRouter(mockService), "7")

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
