package server_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/modelhub/modelhub/pkg/adapter/formats"
	"github.com/modelhub/modelhub/pkg/adapter/linear"
	"github.com/modelhub/modelhub/pkg/analyzer"
	"github.com/modelhub/modelhub/pkg/artifact"
	"github.com/modelhub/modelhub/pkg/config"
	"github.com/modelhub/modelhub/pkg/entities"
	"github.com/modelhub/modelhub/pkg/metrics"
	"github.com/modelhub/modelhub/pkg/server"
	"github.com/modelhub/modelhub/pkg/service"
	"github.com/modelhub/modelhub/pkg/store/sql"
)

const secret = "test-secret"

type client struct {
	t     *testing.T
	app   *fiber.App
	token string
}

func newApp(t *testing.T) *fiber.App {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	dir := t.TempDir()

	store, err := sql.NewSQLStore(log, "sqlite://"+filepath.Join(dir, "modelhub.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })

	artifacts, err := artifact.NewFileStore(filepath.Join(dir, "artifacts"))
	require.NoError(t, err)

	registry, err := formats.NewDefaultRegistry()
	require.NoError(t, err)

	m, err := metrics.New()
	require.NoError(t, err)

	models := service.NewModels(store, artifacts, log)
	signatures := service.NewSignatures(store, m, log)
	predictions := service.NewPredictions(store, m, log)

	cfg := &config.Config{
		AuthSecret:       secret,
		BodyLimit:        4 * 1024 * 1024,
		InferenceTimeout: config.Duration{Duration: 5 * time.Second},
		Version:          "test",
	}

	app, err := server.NewApp(cfg, log, m, server.NewModelhubService(server.Services{
		Analyzer: analyzer.New(analyzer.Dependencies{
			Registry:    registry,
			Store:       store,
			Models:      models,
			Signatures:  signatures,
			Predictions: predictions,
			Metrics:     m,
			Logger:      log,
		}),
		Models:      models,
		Signatures:  signatures,
		Predictions: predictions,
		Targets:     service.NewTargets(store, log),
	}))
	require.NoError(t, err)

	return app
}

func as(t *testing.T, app *fiber.App, account entities.Account) *client {
	t.Helper()

	token, err := server.NewToken([]byte(secret), account, time.Hour)
	require.NoError(t, err)

	return &client{t: t, app: app, token: token}
}

func (c *client) do(req *http.Request) (int, gjson.Result) {
	c.t.Helper()

	if c.token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}

	resp, err := c.app.Test(req, -1)
	require.NoError(c.t, err)

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)

	return resp.StatusCode, gjson.ParseBytes(body)
}

func (c *client) json(method, path, body string) (int, gjson.Result) {
	c.t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	return c.do(req)
}

func (c *client) multipart(path string, fields map[string]string, files map[string][]byte) (int, gjson.Result) {
	c.t.Helper()

	var body bytes.Buffer

	writer := multipart.NewWriter(&body)

	for name, value := range fields {
		require.NoError(c.t, writer.WriteField(name, value))
	}

	for name, data := range files {
		part, err := writer.CreateFormFile(name, name+".json")
		require.NoError(c.t, err)

		_, err = part.Write(data)
		require.NoError(c.t, err)
	}

	require.NoError(c.t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set(fiber.HeaderContentType, writer.FormDataContentType())

	return c.do(req)
}

func houseModel(t *testing.T) []byte {
	t.Helper()

	data, err := linear.EncodeJSON(&linear.Model{
		Task:         linear.TaskRegression,
		Features:     []string{"rooms", "area"},
		Coefficients: []float64{10, 0.5},
		Intercept:    3,
	})
	require.NoError(t, err)

	return data
}

func upload(t *testing.T, c *client) gjson.Result {
	t.Helper()

	status, body := c.multipart("/api/v1/models",
		map[string]string{"name": "house", "type": "linear", "specific_type": "json"},
		map[string][]byte{"file": houseModel(t)},
	)
	require.Equal(t, http.StatusCreated, status, body.Raw)

	return body
}

func TestHealthChecksNeedNoToken(t *testing.T) {
	app := newApp(t)
	anonymous := &client{t: t, app: app}

	status, _ := anonymous.json(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = anonymous.json(http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, status)

	status, body := anonymous.json(http.MethodGet, "/api/v1/models", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHENTICATED", body.Get("error_code").String())

	forged := &client{t: t, app: app, token: "not.a.token"}
	status, _ = forged.json(http.MethodGet, "/api/v1/models", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestUploadAndPredict(t *testing.T) {
	app := newApp(t)
	alice := as(t, app, entities.Account{ID: "alice", Name: "Alice"})

	uploaded := upload(t, alice)
	modelID := uploaded.Get("model.id").Int()
	assert.Equal(t, "1.0.0", uploaded.Get("signature_from_model.name").String())

	status, body := alice.json(http.MethodPost, "/api/v1/predict",
		fmt.Sprintf(`{"model_id": %d, "name": "first", "data": [{"rooms": 2, "area": 100}]}`, modelID))
	require.Equal(t, http.StatusOK, status, body.Raw)
	assert.Equal(t, "COMPLETED", body.Get("status").String())
	assert.Equal(t, 73.0, body.Get("output.0").Float())

	status, body = alice.json(http.MethodPost, "/api/v1/predict",
		fmt.Sprintf(`{"model_id": %d, "data": [{"rooms": 2}]}`, modelID))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INPUT_SCHEMA_MISMATCH", body.Get("reason").String())

	signatureID := uploaded.Get("signature_from_model.id").Int()

	status, body = alice.json(http.MethodGet,
		fmt.Sprintf("/api/v1/signatures/%d/predictions?filter=%s", signatureID, "status%20%3D%20%27COMPLETED%27"), "")
	require.Equal(t, http.StatusOK, status, body.Raw)
	assert.Len(t, body.Get("predictions").Array(), 1)

	status, body = alice.json(http.MethodGet, "/api/v1/models", "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body.Get("models").Array(), 1)
}

func TestForeignEntitiesLookMissing(t *testing.T) {
	app := newApp(t)
	alice := as(t, app, entities.Account{ID: "alice"})
	bob := as(t, app, entities.Account{ID: "bob"})

	uploaded := upload(t, alice)

	status, body := bob.json(http.MethodGet, fmt.Sprintf("/api/v1/models/%d", uploaded.Get("model.id").Int()), "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body.Get("error_code").String())
	assert.Equal(t, "MODEL_NOT_FOUND", body.Get("reason").String())

	status, body = bob.json(http.MethodGet, "/api/v1/models/999", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "MODEL_NOT_FOUND", body.Get("reason").String())

	status, _ = bob.json(http.MethodGet, "/api/v1/models/abc", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSignatureAndTargetRoutes(t *testing.T) {
	app := newApp(t)
	alice := as(t, app, entities.Account{ID: "alice"})

	uploaded := upload(t, alice)
	modelID := uploaded.Get("model.id").Int()
	rootID := uploaded.Get("signature_from_model.id").Int()

	status, body := alice.json(http.MethodPost, fmt.Sprintf("/api/v1/models/%d/signatures", modelID),
		`{"name": "v2", "schema": {"fields": [{"name": "rooms", "type": "double"}]}}`)
	assert.Equal(t, http.StatusBadRequest, status, body.Raw)

	status, body = alice.json(http.MethodPost, fmt.Sprintf("/api/v1/models/%d/signatures", modelID),
		fmt.Sprintf(`{"name": "2.0.0", "origin_id": %d, "schema": {"fields": [{"name": "rooms", "type": "double"}]}}`, rootID))
	require.Equal(t, http.StatusCreated, status, body.Raw)
	assert.Equal(t, int64(2), body.Get("version.major").Int())

	status, body = alice.json(http.MethodGet, fmt.Sprintf("/api/v1/signatures/%d/lineage", body.Get("id").Int()), "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body.Get("signatures").Array(), 2)

	status, body = alice.json(http.MethodPost, "/api/v1/predict",
		fmt.Sprintf(`{"model_id": %d, "signature_id": %d, "data": [{"rooms": 2, "area": 100}, {"rooms": 1, "area": 10}]}`,
			modelID, rootID))
	require.Equal(t, http.StatusOK, status, body.Raw)
	predictionID := body.Get("id").Int()

	status, body = alice.json(http.MethodPost, fmt.Sprintf("/api/v1/predictions/%d/targets", predictionID),
		`{"order": 0, "value": 70}`)
	require.Equal(t, http.StatusCreated, status, body.Raw)
	targetID := body.Get("id").Int()

	status, _ = alice.json(http.MethodPost, fmt.Sprintf("/api/v1/predictions/%d/targets", predictionID),
		`{"order": 0, "value": 1}`)
	assert.Equal(t, http.StatusConflict, status)

	status, body = alice.json(http.MethodPatch, fmt.Sprintf("/api/v1/targets/%d", targetID), `{"value": 75}`)
	require.Equal(t, http.StatusOK, status, body.Raw)

	status, body = alice.json(http.MethodGet, fmt.Sprintf("/api/v1/signatures/%d/evaluation", rootID), "")
	require.Equal(t, http.StatusOK, status, body.Raw)
	assert.Equal(t, int64(1), body.Get("numeric_pairs").Int())
	assert.InDelta(t, 2.0, body.Get("mae").Float(), 1e-9)

	status, body = alice.json(http.MethodPatch, fmt.Sprintf("/api/v1/predictions/%d", predictionID),
		`{"status": "FAILED"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INVALID_STATUS_TRANSITION", body.Get("error_code").String())
}

func TestPredictBlob(t *testing.T) {
	app := newApp(t)
	alice := as(t, app, entities.Account{ID: "alice"})

	status, body := alice.multipart("/api/v1/predict/blob",
		map[string]string{"type": "linear", "specific_type": "json", "data": `{"rooms": 1, "area": 10}`},
		map[string][]byte{"file": houseModel(t)},
	)
	require.Equal(t, http.StatusOK, status, body.Raw)
	assert.Equal(t, int64(0), body.Get("id").Int())
	assert.Equal(t, 18.0, body.Get("output.0").Float())

	status, body = alice.multipart("/api/v1/predict/blob",
		map[string]string{"type": "onnx", "specific_type": "protobuf", "data": `{"rooms": 1}`},
		map[string][]byte{"file": []byte("x")},
	)
	assert.Equal(t, http.StatusUnsupportedMediaType, status)
	assert.Equal(t, "UNSUPPORTED_MODEL_FORMAT", body.Get("reason").String())
}

func TestVerifyToken(t *testing.T) {
	t.Parallel()

	token, err := server.NewToken([]byte(secret), entities.Account{ID: "alice", Name: "Alice"}, time.Hour)
	require.NoError(t, err)

	account, err := server.VerifyToken([]byte(secret), token)
	require.NoError(t, err)
	assert.Equal(t, entities.Account{ID: "alice", Name: "Alice"}, account)

	_, err = server.VerifyToken([]byte("other"), token)
	require.Error(t, err)

	expired, err := server.NewToken([]byte(secret), entities.Account{ID: "alice"}, -time.Minute)
	require.NoError(t, err)

	_, err = server.VerifyToken([]byte(secret), expired)
	assert.ErrorContains(t, err, "expired")
}
