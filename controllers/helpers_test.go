package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/carrental/car-rental-api/models"
	"github.com/carrental/car-rental-api/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// apiResponse is the envelope every handler writes
type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

func (r apiResponse) code() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Code
}

// setupControllerTest wires services against a fresh in-memory database
func setupControllerTest(t *testing.T, now func() time.Time) (*gorm.DB, *testutil.Services) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testutil.TestConfig()
	db := testutil.NewTestDB(t)
	return db, testutil.SetupServices(t, db, cfg, now)
}

// newRouter returns a router whose requests are authenticated as user, or
// anonymous when user is nil
func newRouter(user *models.User) *gin.Engine {
	router := gin.New()
	if user != nil {
		router.Use(testutil.MockAuth(*user))
	}
	return router
}

func performRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, v interface{}) apiResponse {
	t.Helper()
	resp := decodeResponse(t, w)
	require.NoError(t, json.Unmarshal(resp.Data, v))
	return resp
}

// fixedClock pins the service clock to 10:00 UTC on the given day
func fixedClock(day string) func() time.Time {
	d := models.MustParseDate(day)
	at := d.Time.Add(10 * time.Hour)
	return func() time.Time { return at }
}
