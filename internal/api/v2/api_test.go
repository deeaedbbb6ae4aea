package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regenpgc/trialbase/internal/blob"
	"github.com/regenpgc/trialbase/internal/conf"
	"github.com/regenpgc/trialbase/internal/datastore/entities"
	"github.com/regenpgc/trialbase/internal/datastore/repository"
	"github.com/regenpgc/trialbase/internal/datastore/testutil"
	"github.com/regenpgc/trialbase/internal/fieldtrial"
	"github.com/regenpgc/trialbase/internal/imaging"
	"github.com/regenpgc/trialbase/internal/logger"
	"github.com/regenpgc/trialbase/internal/observability"
)

type testEnv struct {
	echo       *echo.Echo
	controller *Controller
	fixture    *testutil.Fixture
	store      *blob.MemoryStore
	metrics    *observability.Metrics
}

// setupTestEnvironment builds a controller over an in-memory sqlite
// database and a memory blob store.
func setupTestEnvironment(t *testing.T, settings conf.WebServerSettings) *testEnv {
	t.Helper()
	db := testutil.OpenSQLite(t)
	log := logger.NewDiscardLogger()

	metrics, err := observability.NewMetrics()
	require.NoError(t, err)

	store := blob.NewMemoryStore()
	trials := fieldtrial.NewService(db, fieldtrial.WithLogger(log))
	images := imaging.NewService(db, store, imaging.WithLogger(log))

	e := echo.New()
	c := New(e, trials, images, WithLogger(log), WithMetrics(metrics), WithSettings(settings))
	t.Cleanup(c.Shutdown)

	return &testEnv{echo: e, controller: c, fixture: testutil.NewFixture(t, db), store: store, metrics: metrics}
}

func (env *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, req)
	return rec
}

// decoded is an envelope whose data is decoded into T.
type decoded[T any] struct {
	Metadata Metadata `json:"metadata"`
	Result   struct {
		Data T `json:"data"`
	} `json:"result"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) decoded[T] {
	t.Helper()
	var out decoded[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, code int, field string) Status {
	t.Helper()
	require.Equal(t, code, rec.Code, rec.Body.String())
	env := decode[any](t, rec)
	require.Len(t, env.Metadata.Status, 1)
	assert.Equal(t, MessageError, env.Metadata.Status[0].MessageType)
	assert.Equal(t, field, env.Metadata.Status[0].Field)
	assert.Nil(t, env.Result.Data)
	return env.Metadata.Status[0]
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t, conf.WebServerSettings{})

	rec := env.do(t, http.MethodGet, "/api/v2/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, echo.MIMEApplicationJSON, rec.Header().Get(echo.HeaderContentType))

	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "healthy", resp.Result.Data.Status)
	assert.Equal(t, "connected", resp.Result.Data.DatabaseStatus)
	assert.Positive(t, resp.Result.Data.System.NumCPU)
	assert.GreaterOrEqual(t, resp.Result.Data.System.MemoryUsedPercent, float64(0))
}

func TestPeople(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t, conf.WebServerSettings{})
	org := env.fixture.Organization()

	t.Run("create", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v2/people", map[string]any{
			"firstName": "Ada", "lastName": "Lovelace", "affiliationId": org.ID, "orcid": "0000-0002-1825-0097",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		p := decode[entities.Person](t, rec).Result.Data
		assert.NotEmpty(t, p.ID)

		rec = env.do(t, http.MethodGet, "/api/v2/people/"+p.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Lovelace", decode[entities.Person](t, rec).Result.Data.LastName)
	})

	t.Run("invalid orcid", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v2/people", map[string]any{
			"firstName": "Ada", "lastName": "Lovelace", "affiliationId": org.ID, "orcid": "12-34",
		})
		requireError(t, rec, http.StatusBadRequest, "orcid")
	})

	t.Run("unknown affiliation", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v2/people", map[string]any{
			"firstName": "Ada", "lastName": "Lovelace", "affiliationId": "org_missing",
		})
		requireError(t, rec, http.StatusBadRequest, "affiliationId")
	})

	t.Run("missing", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v2/people/per_missing", nil)
		status := requireError(t, rec, http.StatusNotFound, "")
		assert.NotEmpty(t, status.CorrelationID)
	})

	t.Run("update and delete", func(t *testing.T) {
		p := env.fixture.Person()
		rec := env.do(t, http.MethodPut, "/api/v2/people/"+p.ID, map[string]any{
			"firstName": "Grace", "lastName": "Hopper", "affiliationId": p.AffiliationID,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "Grace", decode[entities.Person](t, rec).Result.Data.FirstName)

		rec = env.do(t, http.MethodDelete, "/api/v2/people/"+p.ID, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = env.do(t, http.MethodGet, "/api/v2/people/"+p.ID, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("pagination", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v2/people?page=0&pageSize=1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[[]entities.Person](t, rec)
		assert.Len(t, resp.Result.Data, 1)
		assert.Equal(t, 1, resp.Metadata.Pagination.PageSize)
		assert.Equal(t, int(resp.Metadata.Pagination.TotalCount), resp.Metadata.Pagination.TotalPages)
		assert.Equal(t, MessageInfo, resp.Metadata.Status[0].MessageType)

		rec = env.do(t, http.MethodGet, "/api/v2/people?pageSize=ten", nil)
		requireError(t, rec, http.StatusBadRequest, "pageSize")
	})
}

func TestPlots(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t, conf.WebServerSettings{})
	trial := env.fixture.Trial(2024)
	main := env.fixture.Plot(trial, "M1", entities.PlotTypeMain, nil)
	split := env.fixture.Plot(trial, "M1-S1", entities.PlotTypeSplit, main)

	rec := env.do(t, http.MethodGet, "/api/v2/plots?trialId="+trial.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	plots := decode[[]fieldtrial.PlotNode](t, rec).Result.Data
	require.Len(t, plots, 2)
	children := make(map[string][]string)
	for _, p := range plots {
		children[p.ID] = p.Children
	}
	assert.Equal(t, []string{split.ID}, children[main.ID])
	assert.Empty(t, children[split.ID])

	// Served from the cache until a write.
	rec = env.do(t, http.MethodGet, "/api/v2/plots?trialId="+trial.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, scrape(t, env), `http_cache_lookups_total{result="hit"} 1`)

	rec = env.do(t, http.MethodPost, "/api/v2/plots", map[string]any{
		"label": "M1-S2", "type": "split plot", "widthM": 6.096, "lengthM": 60.96,
		"trialId": trial.ID, "parentPlotId": main.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/v2/plots/"+main.ID+"/children", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entities.Plot](t, rec).Result.Data, 2)

	rec = env.do(t, http.MethodGet, "/api/v2/plots?trialId="+trial.ID, nil)
	assert.Len(t, decode[[]fieldtrial.PlotNode](t, rec).Result.Data, 3, "cache is invalidated by writes")

	t.Run("duplicate label", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v2/plots", map[string]any{
			"label": "M1", "type": "main plot", "widthM": 1, "lengthM": 1, "trialId": trial.ID,
		})
		assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	})

	t.Run("same type as parent", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v2/plots", map[string]any{
			"label": "M1-S1-A", "type": "split plot", "widthM": 1, "lengthM": 1,
			"trialId": trial.ID, "parentPlotId": split.ID,
		})
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("parent in another trial", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v2/plots", map[string]any{
			"label": "X1", "type": "split plot", "widthM": 1, "lengthM": 1,
			"trialId": env.fixture.Trial(2024).ID, "parentPlotId": split.ID,
		})
		requireError(t, rec, http.StatusBadRequest, "parentPlotId")
	})

	t.Run("missing", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v2/plots/plt_missing/children", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDeletePlot_PurgesImages(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t, conf.WebServerSettings{})
	fx := env.fixture
	trial := fx.Trial(2024)
	main := fx.Plot(trial, "M1", entities.PlotTypeMain, nil)
	crop := fx.PlotCrop(main, fx.Germplasm(), 2024)
	obs := fx.Observation(crop, fx.Variable(nil, nil), "12")

	img, err := env.controller.Images.Upload(t.Context(), imaging.UploadRequest{
		Filename: "canopy.jpg", Height: 10, Width: 10, ObservationID: &obs.ID, Body: strings.NewReader("jpeg"),
	})
	require.NoError(t, err)
	require.Equal(t, 1, env.store.Len())

	rec := env.do(t, http.MethodDelete, "/api/v2/plots/"+main.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[repository.CascadeReport](t, rec).Result.Data
	assert.Equal(t, int64(1), report.Plots)
	assert.Equal(t, int64(1), report.Observations)
	assert.Equal(t, int64(1), report.Images)
	assert.Zero(t, env.store.Len(), "blob of %s purged", img.ID)
}

func TestDeletePerson_PurgesImages(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t, conf.WebServerSettings{})
	fx := env.fixture
	trial := fx.Trial(2024)
	split := fx.Plot(trial, "M1-A", entities.PlotTypeSplit, fx.Plot(trial, "M1", entities.PlotTypeMain, nil))
	obs := fx.Observation(fx.PlotCrop(split, fx.Germplasm(), 2024), fx.Variable(nil, nil), "12")

	_, err := env.controller.Images.Upload(t.Context(), imaging.UploadRequest{
		Filename: "canopy.jpg", Height: 10, Width: 10, ObservationID: &obs.ID, Body: strings.NewReader("jpeg"),
	})
	require.NoError(t, err)
	require.Equal(t, 1, env.store.Len())

	rec := env.do(t, http.MethodDelete, "/api/v2/people/"+trial.ManagerID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.Zero(t, env.store.Len())

	var images int64
	require.NoError(t, env.controller.Trials.DB().Model(&entities.Image{}).Count(&images).Error)
	assert.Zero(t, images)

	rec = env.do(t, http.MethodGet, "/api/v2/plots?trialId="+trial.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]json.RawMessage](t, rec).Result.Data)
}

func TestTrialYears(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t, conf.WebServerSettings{})
	trial := env.fixture.Trial(2024)
	path := fmt.Sprintf("/api/v2/trials/%s/years", trial.ID)

	rec := env.do(t, http.MethodPost, path, TrialYearRequest{Year: 2025})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, path, TrialYearRequest{Year: 2023})
	requireError(t, rec, http.StatusBadRequest, "year")

	rec = env.do(t, http.MethodPost, path, TrialYearRequest{Year: 2025})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v2/trials", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entities.Trial](t, rec).Result.Data, 1)
}

func TestRecordObservation(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t, conf.WebServerSettings{})
	fx := env.fixture
	trial := fx.Trial(2024)
	crop := fx.PlotCrop(fx.Plot(trial, "M1", entities.PlotTypeMain, nil), fx.Germplasm(), 2024)
	v := fx.Variable(testutil.Float(0), testutil.Float(100))
	observer := fx.Person()

	body := map[string]any{"variable": v.Label, "plotCropId": crop.ID, "observerId": observer.ID, "value": " 42.5 "}
	rec := env.do(t, http.MethodPost, "/api/v2/observations", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "42.5", decode[entities.Observation](t, rec).Result.Data.Value)

	body["value"] = "101"
	rec = env.do(t, http.MethodPost, "/api/v2/observations", body)
	requireError(t, rec, http.StatusBadRequest, "value")

	rec = env.do(t, http.MethodGet, "/api/v2/observations?plotCropId="+crop.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entities.Observation](t, rec).Result.Data, 1)

	rec = env.do(t, http.MethodGet, "/api/v2/observations?from=yesterday", nil)
	requireError(t, rec, http.StatusBadRequest, "from")
}

func uploadRequest(t *testing.T, filename, height, width string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("height", height))
	require.NoError(t, w.WriteField("width", width))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v2/images", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestImages(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t, conf.WebServerSettings{})
	content := []byte("\x89PNG fake image bytes")

	rec := httptest.NewRecorder()
	env.echo.ServeHTTP(rec, uploadRequest(t, "quadrat.png", "480", "640", content))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	img := decode[entities.Image](t, rec).Result.Data
	assert.Equal(t, 640, img.Width)

	rec = env.do(t, http.MethodGet, "/api/v2/images/"+img.ID+"/content", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, content, rec.Body.Bytes())
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))

	rec = env.do(t, http.MethodGet, "/api/v2/images/"+img.ID+"/url", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)

	t.Run("invalid dimensions", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.echo.ServeHTTP(rec, uploadRequest(t, "quadrat.png", "0", "640", content))
		requireError(t, rec, http.StatusBadRequest, "height")
	})

	t.Run("unsupported extension", func(t *testing.T) {
		rec := httptest.NewRecorder()
		env.echo.ServeHTTP(rec, uploadRequest(t, "notes.txt", "10", "10", content))
		requireError(t, rec, http.StatusBadRequest, "filename")
	})

	t.Run("operations", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v2/models", map[string]any{"name": "canopy-cover", "version": "1"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		model := decode[entities.AwsModel](t, rec).Result.Data

		rec = env.do(t, http.MethodPost, "/api/v2/images/"+img.ID+"/operations", OperationRequest{ModelID: model.ID})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		op := decode[entities.ImageOperation](t, rec).Result.Data
		assert.Equal(t, entities.StatusInProgress, op.Status)

		rec = env.do(t, http.MethodPut, "/api/v2/operations/"+op.ID, OperationRequest{Status: "success"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = env.do(t, http.MethodPut, "/api/v2/operations/"+op.ID, OperationRequest{Status: "failure"})
		assert.Equal(t, http.StatusConflict, rec.Code)

		rec = env.do(t, http.MethodGet, "/api/v2/images/"+img.ID+"/operations", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		ops := decode[[]entities.ImageOperation](t, rec).Result.Data
		require.Len(t, ops, 1)
		assert.Equal(t, entities.StatusSuccess, ops[0].Status)
	})
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t, conf.WebServerSettings{})

	rec := env.do(t, http.MethodGet, "/api/v2/harvests", nil)
	status := requireError(t, rec, http.StatusNotFound, "")
	assert.Equal(t, "Not Found", status.Message)
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t, conf.WebServerSettings{RateLimit: 0.001})

	codes := make(map[int]int)
	for range 5 {
		codes[env.do(t, http.MethodGet, "/api/v2/trials", nil).Code]++
	}
	assert.Equal(t, 1, codes[http.StatusOK], "burst of one")
	assert.Equal(t, 4, codes[http.StatusTooManyRequests])
	assert.Contains(t, scrape(t, env), "http_rate_limited_total 4")
}

func TestMetricsRoute(t *testing.T) {
	t.Parallel()
	env := setupTestEnvironment(t, conf.WebServerSettings{})
	env.do(t, http.MethodGet, "/api/v2/people", nil)

	rec := env.do(t, http.MethodGet, "/api/v2/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `http_requests_total{method="GET",route="/api/v2/people",status_code="200"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

// scrape reads the registry directly so rate limited clients can still be
// inspected.
func scrape(t *testing.T, env *testEnv) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()
	env.metrics.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}
