package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storevision-service/internal/clients"
	"storevision-service/internal/middleware"
	"storevision-service/internal/models"
	"storevision-service/internal/repository"
	"storevision-service/internal/services"
)

type stubImageStore struct {
	err error
}

func (s *stubImageStore) Upload(ctx context.Context, image []byte, fileName string) (*clients.ImageUpload, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &clients.ImageUpload{URL: "https://images.example.com/" + fileName + ".jpg", StorageID: "img-" + fileName}, nil
}

func (s *stubImageStore) Delete(ctx context.Context, storageID string) error {
	return nil
}

type stubDetector struct {
	detections []clients.Detection
	err        error
}

func (s *stubDetector) Detect(ctx context.Context, image []byte, prompts []string) (*clients.DetectionOutcome, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &clients.DetectionOutcome{Results: s.detections, ProcessingMs: 640}, nil
}

func setupScanRouter(t *testing.T, images services.ImageStore, detector services.Detector) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := setupTestDB(t)
	scanRepo := repository.NewScanRepository(db)
	service := services.NewScanService(scanRepo, images, detector, nil, nil)
	handler := NewScanHandler(service, nil)

	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(middleware.DevelopmentAuthMiddleware())
	api.Use(middleware.StoreMiddleware())

	scans := api.Group("/scans")
	{
		scans.POST("", handler.CreateScanEvent)
		scans.GET("", handler.ListScanEvents)
		scans.GET("/queued", handler.ListQueuedScans)
		scans.GET("/processing", handler.ListProcessingScans)
		scans.GET("/:id", handler.GetScanEvent)
		scans.DELETE("/:id", handler.CancelScan)
		scans.POST("/:id/upload", handler.Upload)
		scans.POST("/:id/complete", handler.CompleteScan)
	}

	return router
}

func createScanViaAPI(t *testing.T, router *gin.Engine) *models.ScanEvent {
	t.Helper()

	w := doJSON(t, router, http.MethodPost, "/api/v1/scans", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.ScanEventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data)
	return resp.Data
}

func uploadBody(prompts ...string) gin.H {
	body := gin.H{
		"image": base64.StdEncoding.EncodeToString([]byte("fake-jpeg-bytes")),
	}
	if len(prompts) > 0 {
		body["prompts"] = prompts
	}
	return body
}

// ===========================================
// Scan Lifecycle Tests
// ===========================================

func TestScanLifecycle_UploadCompletes(t *testing.T) {
	detector := &stubDetector{detections: []clients.Detection{
		{Name: "bottle", Confidence: 0.91, Bbox: []float64{10, 20, 110, 220}},
		{Name: "box", Confidence: 0.55, Bbox: []float64{30, 40, 130, 240}},
	}}
	router := setupScanRouter(t, &stubImageStore{}, detector)

	scan := createScanViaAPI(t, router)
	assert.Equal(t, models.ScanStatusQueued, scan.Status)

	w := doJSON(t, router, http.MethodPost, "/api/v1/scans/"+scan.ID.String()+"/upload", uploadBody())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.ScanEventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.ScanStatusCompleted, resp.Data.Status)
	require.NotNil(t, resp.Data.ImageURL)
	require.NotNil(t, resp.Data.ProcessingMs)
	assert.Equal(t, int64(640), *resp.Data.ProcessingMs)
	require.Len(t, resp.Data.Results, 2)
	assert.Equal(t, "bottle", resp.Data.Results[0].ProductName)
	assert.Equal(t, 1, resp.Data.Results[0].EstimatedCount)
}

func TestScanLifecycle_SecondUploadConflicts(t *testing.T) {
	detector := &stubDetector{detections: []clients.Detection{
		{Name: "bottle", Confidence: 0.91, Bbox: []float64{10, 20, 110, 220}},
	}}
	router := setupScanRouter(t, &stubImageStore{}, detector)

	scan := createScanViaAPI(t, router)
	path := "/api/v1/scans/" + scan.ID.String() + "/upload"

	w := doJSON(t, router, http.MethodPost, path, uploadBody())
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, path, uploadBody())
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_STATE", errorCode(t, w))
}

func TestScanLifecycle_NoDetectionsFails(t *testing.T) {
	router := setupScanRouter(t, &stubImageStore{}, &stubDetector{})

	scan := createScanViaAPI(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/scans/"+scan.ID.String()+"/upload", uploadBody())
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "DETECTION_FAILED", errorCode(t, w))

	// The scan landed in failed, visible on refetch
	w = doJSON(t, router, http.MethodGet, "/api/v1/scans/"+scan.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ScanEventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.ScanStatusFailed, resp.Data.Status)
	assert.Empty(t, resp.Data.Results)
}

func TestScanLifecycle_UploadProviderDown(t *testing.T) {
	detector := &stubDetector{detections: []clients.Detection{
		{Name: "bottle", Confidence: 0.91, Bbox: []float64{10, 20, 110, 220}},
	}}
	router := setupScanRouter(t, &stubImageStore{err: errors.New("image host down")}, detector)

	scan := createScanViaAPI(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/scans/"+scan.ID.String()+"/upload", uploadBody())
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "UPLOAD_FAILED", errorCode(t, w))
}

func TestScanLifecycle_NoProvidersConfigured(t *testing.T) {
	router := setupScanRouter(t, nil, nil)

	scan := createScanViaAPI(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/scans/"+scan.ID.String()+"/upload", uploadBody())
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", errorCode(t, w))
}

func TestUpload_BadBase64(t *testing.T) {
	router := setupScanRouter(t, &stubImageStore{}, &stubDetector{})

	scan := createScanViaAPI(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/scans/"+scan.ID.String()+"/upload", gin.H{
		"image": "not-valid-base64!!!",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
}

func TestUpload_DataURIAccepted(t *testing.T) {
	detector := &stubDetector{detections: []clients.Detection{
		{Name: "bottle", Confidence: 0.91, Bbox: []float64{10, 20, 110, 220}},
	}}
	router := setupScanRouter(t, &stubImageStore{}, detector)

	scan := createScanViaAPI(t, router)

	encoded := base64.StdEncoding.EncodeToString([]byte("fake-jpeg-bytes"))
	w := doJSON(t, router, http.MethodPost, "/api/v1/scans/"+scan.ID.String()+"/upload", gin.H{
		"image": "data:image/jpeg;base64," + encoded,
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

// ===========================================
// Cancel and Listing Tests
// ===========================================

func TestCancelScan_API(t *testing.T) {
	router := setupScanRouter(t, nil, nil)

	scan := createScanViaAPI(t, router)

	w := doJSON(t, router, http.MethodDelete, "/api/v1/scans/"+scan.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/scans/"+scan.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListQueuedScans_API(t *testing.T) {
	router := setupScanRouter(t, nil, nil)

	createScanViaAPI(t, router)
	createScanViaAPI(t, router)

	w := doJSON(t, router, http.MethodGet, "/api/v1/scans/queued", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ScanEventListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
}

func TestCompleteScan_API(t *testing.T) {
	router := setupScanRouter(t, nil, nil)

	scan := createScanViaAPI(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/v1/scans/"+scan.ID.String()+"/complete", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.ScanEventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.ScanStatusCompleted, resp.Data.Status)
}
