package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cointracker/internal/adapter/http/dto"
	"cointracker/internal/core/domain"
	"cointracker/internal/core/ports"
	"cointracker/internal/core/ports/mocks"
	"cointracker/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testAddress = "3E8ociqZa9mZUSwGdSmAEMAoAxBK3FNDcd"

func init() {
	gin.SetMode(gin.TestMode)
}

func testRouter(walletSvc ports.WalletService, scheduler ports.SyncScheduler) *gin.Engine {
	return SetupRouter(RouterDeps{
		WalletSvc: walletSvc,
		Scheduler: scheduler,
	})
}

func serve(r *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "missing data envelope: %s", w.Body.String())
	return data
}

// --- Wallet Handler Tests ---

func TestCreateWallet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	walletSvc := mocks.NewMockWalletService(ctrl)
	wallet := &domain.Wallet{
		ID:         uuid.New(),
		Address:    testAddress,
		SyncStatus: domain.SyncStatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	walletSvc.EXPECT().Create(gomock.Any(), testAddress).Return(wallet, nil)

	body, _ := json.Marshal(dto.CreateWalletRequest{Address: testAddress})
	w := serve(testRouter(walletSvc, nil), http.MethodPost, "/api/v1/wallets", body)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, testAddress, data["address"])
	assert.Equal(t, "pending", data["sync_status"])
}

func TestCreateWallet_InvalidAddress(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	walletSvc := mocks.NewMockWalletService(ctrl)

	// Fails binding, the service is never called
	body, _ := json.Marshal(dto.CreateWalletRequest{Address: "nonsense"})
	w := serve(testRouter(walletSvc, nil), http.MethodPost, "/api/v1/wallets", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "WAL_003")
}

func TestCreateWallet_Duplicate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	walletSvc := mocks.NewMockWalletService(ctrl)
	walletSvc.EXPECT().Create(gomock.Any(), testAddress).Return(nil, apperror.ErrDuplicateWallet())

	body, _ := json.Marshal(dto.CreateWalletRequest{Address: testAddress})
	w := serve(testRouter(walletSvc, nil), http.MethodPost, "/api/v1/wallets", body)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "WAL_002")
}

func TestGetWallet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	walletSvc := mocks.NewMockWalletService(ctrl)
	walletSvc.EXPECT().Get(gomock.Any(), testAddress).Return(nil, apperror.ErrWalletNotFound())

	w := serve(testRouter(walletSvc, nil), http.MethodGet, "/api/v1/wallets/"+testAddress, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "WAL_001")
}

func TestListWallets(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	walletSvc := mocks.NewMockWalletService(ctrl)
	walletSvc.EXPECT().List(gomock.Any()).Return([]ports.WalletDetail{
		{Wallet: domain.Wallet{ID: uuid.New(), Address: testAddress, Balance: 100}, TransactionCount: 2},
	}, nil)

	w := serve(testRouter(walletSvc, nil), http.MethodGet, "/api/v1/wallets", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	items := resp["data"].([]interface{})
	require.Len(t, items, 1)
	first := items[0].(map[string]interface{})
	assert.Equal(t, float64(2), first["transaction_count"])
}

func TestDeleteWallet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	walletSvc := mocks.NewMockWalletService(ctrl)
	walletSvc.EXPECT().Delete(gomock.Any(), testAddress).Return(nil)

	w := serve(testRouter(walletSvc, nil), http.MethodDelete, "/api/v1/wallets/"+testAddress, nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetBalance_Live(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	walletSvc := mocks.NewMockWalletService(ctrl)
	walletSvc.EXPECT().GetBalance(gomock.Any(), testAddress, true).Return(&ports.BalanceInfo{
		Address:    testAddress,
		Balance:    42_000,
		SyncStatus: domain.SyncStatusCompleted,
		Live:       true,
	}, nil)

	w := serve(testRouter(walletSvc, nil), http.MethodGet, "/api/v1/wallets/"+testAddress+"/balance?live=true", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(42_000), data["balance"])
	assert.Equal(t, true, data["live"])
}

func TestListTransactions_PassesPagination(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	walletSvc := mocks.NewMockWalletService(ctrl)
	walletSvc.EXPECT().ListTransactions(gomock.Any(), testAddress, 10, 20).Return(&ports.TransactionPage{
		Transactions: []domain.Transaction{{TxID: "aa11", Value: -500, Direction: domain.DirectionSent}},
		Total:        60,
		Limit:        10,
		Offset:       20,
	}, nil)

	w := serve(testRouter(walletSvc, nil), http.MethodGet,
		"/api/v1/wallets/"+testAddress+"/transactions?limit=10&offset=20", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(60), data["total"])
	items := data["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "sent", items[0].(map[string]interface{})["direction"])
}

// --- Sync Handler Tests ---

func TestStartSync_Accepted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	scheduler := mocks.NewMockSyncScheduler(ctrl)
	jobID := uuid.New()
	scheduler.EXPECT().Enqueue(gomock.Any(), testAddress).Return(jobID, nil)

	w := serve(testRouter(nil, scheduler), http.MethodPost, "/api/v1/wallets/"+testAddress+"/sync", nil)

	assert.Equal(t, http.StatusAccepted, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, jobID.String(), data["job_id"])
}

func TestStartSync_AlreadyInProgress(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	scheduler := mocks.NewMockSyncScheduler(ctrl)
	existing := uuid.New()
	scheduler.EXPECT().Enqueue(gomock.Any(), testAddress).
		Return(uuid.Nil, apperror.ErrSyncInProgress(existing.String()))

	w := serve(testRouter(nil, scheduler), http.MethodPost, "/api/v1/wallets/"+testAddress+"/sync", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "SYNC_001")
	// The conflict carries the job id already running
	assert.Contains(t, w.Body.String(), existing.String())
}

func TestStartSync_QueueFull(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	scheduler := mocks.NewMockSyncScheduler(ctrl)
	scheduler.EXPECT().Enqueue(gomock.Any(), testAddress).Return(uuid.Nil, apperror.ErrQueueFull())

	w := serve(testRouter(nil, scheduler), http.MethodPost, "/api/v1/wallets/"+testAddress+"/sync", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "SYNC_003")
}

func TestGetJob_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	scheduler := mocks.NewMockSyncScheduler(ctrl)
	detail := "provider unavailable"
	job := &domain.SyncJob{
		ID:          uuid.New(),
		WalletID:    uuid.New(),
		Status:      domain.JobStatusFailed,
		ErrorDetail: &detail,
		CreatedAt:   time.Now().UTC(),
	}
	scheduler.EXPECT().GetJob(gomock.Any(), job.ID).Return(job, nil)

	w := serve(testRouter(nil, scheduler), http.MethodGet, "/api/v1/jobs/"+job.ID.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "failed", data["status"])
	assert.Equal(t, detail, data["error_detail"])
}

func TestGetJob_BadID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	scheduler := mocks.NewMockSyncScheduler(ctrl)

	w := serve(testRouter(nil, scheduler), http.MethodGet, "/api/v1/jobs/not-a-uuid", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "SYNC_002")
}

// --- Health Tests ---

type fakeChecker struct {
	name string
	err  error
}

func (f fakeChecker) Ping(_ context.Context) error { return f.err }
func (f fakeChecker) Name() string                 { return f.name }

func TestHealthCheck(t *testing.T) {
	r := SetupRouter(RouterDeps{
		HealthCheckers: []ports.HealthChecker{
			fakeChecker{name: "postgresql"},
			fakeChecker{name: "redis", err: errors.New("connection refused")},
		},
	})

	w := serve(r, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"degraded"`)
	assert.Contains(t, w.Body.String(), "connection refused")
}
