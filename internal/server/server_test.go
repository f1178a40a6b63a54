package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/mergematrix/internal/config"
	generationdomain "github.com/smallbiznis/mergematrix/internal/generation/domain"
	mergerecorddomain "github.com/smallbiznis/mergematrix/internal/mergerecord/domain"
	"github.com/smallbiznis/mergematrix/internal/ratelimit"
	"github.com/smallbiznis/mergematrix/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestServer(t *testing.T, cfg config.Config) (*gin.Engine, *generationServiceMock, *mergeRecordServiceMock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	if cfg.APIBasePath == "" {
		cfg.APIBasePath = "/api"
	}

	generations := new(generationServiceMock)
	records := new(mergeRecordServiceMock)

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	NewServer(ServerParams{
		Gin:            router,
		Cfg:            cfg,
		GenerationSvc:  generations,
		MergeRecordSvc: records,
	})
	return router, generations, records
}

func doRequest(router http.Handler, method, target string, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	return payload
}

func TestGetGenerationsReturnsStatus(t *testing.T) {
	router, generations, _ := newTestServer(t, config.Config{})
	generations.On("GetStatus", mock.Anything, "alice@example.com").
		Return(generationdomain.Status{Generations: 2, IsPremium: false}, nil)

	resp := doRequest(router, http.MethodGet, "/api/generations", "", map[string]string{"x-user-email": "alice@example.com"})

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"generations":2,"isPremium":false}`, resp.Body.String())
	generations.AssertExpectations(t)
}

func TestGenerationsWithoutEmailReturns401(t *testing.T) {
	router, generations, _ := newTestServer(t, config.Config{})
	generations.On("GetStatus", mock.Anything, "").
		Return(generationdomain.Status{}, generationdomain.ErrInvalidIdentity)
	generations.On("RecordConsumption", mock.Anything, "").
		Return(generationdomain.Status{}, generationdomain.ErrInvalidIdentity)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		resp := doRequest(router, method, "/api/generations", "", nil)
		require.Equal(t, http.StatusUnauthorized, resp.Code, method)
		assert.JSONEq(t, `{"error":"Email is required"}`, resp.Body.String(), method)
	}
}

func TestRecordGenerationQuotaReachedReturns403(t *testing.T) {
	router, generations, _ := newTestServer(t, config.Config{})
	status := generationdomain.Status{Generations: 3, IsPremium: false}
	generations.On("RecordConsumption", mock.Anything, "alice@example.com").
		Return(status, &generationdomain.QuotaExceededError{Status: status})

	resp := doRequest(router, http.MethodPost, "/api/generations", "", map[string]string{"x-user-email": "alice@example.com"})

	require.Equal(t, http.StatusForbidden, resp.Code)
	assert.JSONEq(t, `{"error":"Generation limit reached","generations":3,"isPremium":false}`, resp.Body.String())
}

func TestRecordGenerationStorageFailureReturns500(t *testing.T) {
	router, generations, _ := newTestServer(t, config.Config{})
	generations.On("RecordConsumption", mock.Anything, "alice@example.com").
		Return(generationdomain.Status{}, storage.Wrap(context.DeadlineExceeded))

	resp := doRequest(router, http.MethodPost, "/api/generations", "", map[string]string{"x-user-email": "alice@example.com"})

	require.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, resp.Body.String())
}

func TestCreateMergeRecord(t *testing.T) {
	router, _, records := newTestServer(t, config.Config{})
	size := int64(2048)
	created := &mergerecorddomain.MergeRecord{
		ID:        42,
		UserID:    "u-1",
		UserEmail: "alice@example.com",
		FileName:  "merged.pdf",
		FileSize:  size,
		MergedFiles: []mergerecorddomain.SourceFile{
			{Name: "a.pdf", Size: 1024},
			{Name: "b.pdf", Size: 1024},
		},
		CreatedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	records.On("Append", mock.Anything, mock.MatchedBy(func(req mergerecorddomain.CreateRequest) bool {
		return req.UserID == "u-1" && req.FileSize != nil && *req.FileSize == size && len(req.MergedFiles) == 2 &&
			req.Settings.Quality == "high"
	})).Return(created, nil)

	body := `{"userId":"u-1","userEmail":"alice@example.com","fileName":"merged.pdf","fileSize":2048,
		"mergedFiles":[{"name":"a.pdf","size":1024},{"name":"b.pdf","size":1024}],
		"settings":{"quality":"high","orientation":"portrait","compression":"none"}}`
	resp := doRequest(router, http.MethodPost, "/api/pdfs", body, nil)

	require.Equal(t, http.StatusOK, resp.Code)
	payload := decodeBody(t, resp)
	assert.Equal(t, true, payload["success"])
	pdf, ok := payload["pdf"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "merged.pdf", pdf["fileName"])
	assert.Equal(t, "alice@example.com", pdf["userEmail"])
	records.AssertExpectations(t)
}

func TestCreateMergeRecordMissingFieldReturns400(t *testing.T) {
	router, _, records := newTestServer(t, config.Config{})
	records.On("Append", mock.Anything, mock.Anything).
		Return(nil, &mergerecorddomain.MissingFieldError{Field: "fileName"})

	resp := doRequest(router, http.MethodPost, "/api/pdfs", `{"userId":"u-1","userEmail":"alice@example.com"}`, nil)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.JSONEq(t, `{"error":"Missing required fields","field":"fileName"}`, resp.Body.String())
}

func TestCreateMergeRecordMalformedBodyReturns400(t *testing.T) {
	router, _, records := newTestServer(t, config.Config{})

	resp := doRequest(router, http.MethodPost, "/api/pdfs", `{"userId":`, nil)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Missing required fields", decodeBody(t, resp)["error"])
	records.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestListMergeRecords(t *testing.T) {
	router, _, records := newTestServer(t, config.Config{})
	records.On("ListByOwner", mock.Anything, mergerecorddomain.OwnerQuery{UserEmail: "alice@example.com"}).
		Return([]mergerecorddomain.MergeRecord{{ID: 1, FileName: "one.pdf"}}, nil)

	resp := doRequest(router, http.MethodGet, "/api/pdfs?userEmail=alice@example.com", "", nil)

	require.Equal(t, http.StatusOK, resp.Code)
	payload := decodeBody(t, resp)
	assert.Equal(t, true, payload["success"])
	pdfs, ok := payload["pdfs"].([]any)
	require.True(t, ok)
	assert.Len(t, pdfs, 1)
}

func TestListMergeRecordsEmptyIsArray(t *testing.T) {
	router, _, records := newTestServer(t, config.Config{})
	records.On("ListByOwner", mock.Anything, mergerecorddomain.OwnerQuery{UserID: "u-9"}).
		Return([]mergerecorddomain.MergeRecord{}, nil)

	resp := doRequest(router, http.MethodGet, "/api/pdfs?userId=u-9", "", nil)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"success":true,"pdfs":[]}`, resp.Body.String())
}

func TestListMergeRecordsWithoutOwnerReturns400(t *testing.T) {
	router, _, records := newTestServer(t, config.Config{})
	records.On("ListByOwner", mock.Anything, mergerecorddomain.OwnerQuery{}).
		Return(nil, mergerecorddomain.ErrInvalidQuery)

	resp := doRequest(router, http.MethodGet, "/api/pdfs", "", nil)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.JSONEq(t, `{"error":"Either User ID or Email is required"}`, resp.Body.String())
}

func TestExportMergeRecordsServesAttachment(t *testing.T) {
	router, _, records := newTestServer(t, config.Config{})
	records.On("ExportHistory", mock.Anything, mergerecorddomain.OwnerQuery{UserID: "u-1"}).
		Return(&mergerecorddomain.HistoryExport{
			FileName: "merge-history-u-1.pdf",
			Content:  strings.NewReader("%PDF-1.4"),
		}, nil)

	resp := doRequest(router, http.MethodGet, "/api/pdfs/export?userId=u-1", "", nil)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/pdf", resp.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="merge-history-u-1.pdf"`, resp.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.4", resp.Body.String())
}

func TestAdminRoutesHiddenWithoutToken(t *testing.T) {
	router, generations, _ := newTestServer(t, config.Config{})

	resp := doRequest(router, http.MethodPut, "/admin/accounts/tier", `{"email":"a@example.com","isPremium":true}`, nil)

	require.Equal(t, http.StatusNotFound, resp.Code)
	generations.AssertNotCalled(t, "SetPremium", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminRoutesRejectWrongToken(t *testing.T) {
	router, _, _ := newTestServer(t, config.Config{AdminToken: "secret"})

	resp := doRequest(router, http.MethodPut, "/admin/accounts/tier", `{"email":"a@example.com","isPremium":true}`,
		map[string]string{"x-admin-token": "nope"})

	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAdminSetTier(t *testing.T) {
	router, generations, _ := newTestServer(t, config.Config{AdminToken: "secret"})
	generations.On("SetPremium", mock.Anything, "a@example.com", true).
		Return(generationdomain.Status{Generations: 3, IsPremium: true}, nil)

	resp := doRequest(router, http.MethodPut, "/admin/accounts/tier", `{"email":"a@example.com","isPremium":true}`,
		map[string]string{"x-admin-token": "secret"})

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"generations":3,"isPremium":true}`, resp.Body.String())
	generations.AssertExpectations(t)
}

func TestAdminSetTierRequiresFlag(t *testing.T) {
	router, _, _ := newTestServer(t, config.Config{AdminToken: "secret"})

	resp := doRequest(router, http.MethodPut, "/admin/accounts/tier", `{"email":"a@example.com"}`,
		map[string]string{"x-admin-token": "secret"})

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCustomBasePath(t *testing.T) {
	router, generations, _ := newTestServer(t, config.Config{APIBasePath: "/v1"})
	generations.On("GetStatus", mock.Anything, "alice@example.com").
		Return(generationdomain.Status{}, nil)

	resp := doRequest(router, http.MethodGet, "/v1/generations", "", map[string]string{"x-user-email": "alice@example.com"})
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = doRequest(router, http.MethodGet, "/api/generations", "", map[string]string{"x-user-email": "alice@example.com"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	srv := &Server{db: db}
	router := gin.New()
	router.GET("/health", srv.Health)

	resp := doRequest(router, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"ok"}`, resp.Body.String())

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	resp = doRequest(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestMapErrorStatuses(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{generationdomain.ErrInvalidIdentity, http.StatusUnauthorized},
		{generationdomain.ErrQuotaExceeded, http.StatusForbidden},
		{mergerecorddomain.ErrMissingField, http.StatusBadRequest},
		{mergerecorddomain.ErrInvalidFileSize, http.StatusBadRequest},
		{mergerecorddomain.ErrInvalidQuery, http.StatusBadRequest},
		{ErrInvalidRequest, http.StatusBadRequest},
		{ratelimit.ErrRateLimited, http.StatusTooManyRequests},
		{storage.Wrap(errors.New("boom")), http.StatusInternalServerError},
		{errors.New("unknown"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, _ := mapError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
	}
}

func TestClassifyErrorForLog(t *testing.T) {
	errorType, code := classifyErrorForLog(&generationdomain.QuotaExceededError{})
	assert.Equal(t, "forbidden", errorType)
	assert.Equal(t, "quota_exceeded", code)

	errorType, code = classifyErrorForLog(storage.Wrap(errors.New("boom")))
	assert.Equal(t, "storage_error", errorType)
	assert.Equal(t, "storage_unavailable", code)
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, "1", retryAfterSeconds(nil))
	assert.Equal(t, "1", retryAfterSeconds(&ratelimit.RateLimitResult{}))
	assert.Equal(t, "3", retryAfterSeconds(&ratelimit.RateLimitResult{RetryAfter: 2100 * time.Millisecond}))
}

type generationServiceMock struct {
	mock.Mock
}

func (m *generationServiceMock) GetStatus(ctx context.Context, identity string) (generationdomain.Status, error) {
	args := m.Called(ctx, identity)
	return args.Get(0).(generationdomain.Status), args.Error(1)
}

func (m *generationServiceMock) RecordConsumption(ctx context.Context, identity string) (generationdomain.Status, error) {
	args := m.Called(ctx, identity)
	return args.Get(0).(generationdomain.Status), args.Error(1)
}

func (m *generationServiceMock) SetPremium(ctx context.Context, identity string, premium bool) (generationdomain.Status, error) {
	args := m.Called(ctx, identity, premium)
	return args.Get(0).(generationdomain.Status), args.Error(1)
}

type mergeRecordServiceMock struct {
	mock.Mock
}

func (m *mergeRecordServiceMock) Append(ctx context.Context, req mergerecorddomain.CreateRequest) (*mergerecorddomain.MergeRecord, error) {
	args := m.Called(ctx, req)
	record, _ := args.Get(0).(*mergerecorddomain.MergeRecord)
	return record, args.Error(1)
}

func (m *mergeRecordServiceMock) ListByOwner(ctx context.Context, query mergerecorddomain.OwnerQuery) ([]mergerecorddomain.MergeRecord, error) {
	args := m.Called(ctx, query)
	records, _ := args.Get(0).([]mergerecorddomain.MergeRecord)
	return records, args.Error(1)
}

func (m *mergeRecordServiceMock) ExportHistory(ctx context.Context, query mergerecorddomain.OwnerQuery) (*mergerecorddomain.HistoryExport, error) {
	args := m.Called(ctx, query)
	export, _ := args.Get(0).(*mergerecorddomain.HistoryExport)
	return export, args.Error(1)
}
