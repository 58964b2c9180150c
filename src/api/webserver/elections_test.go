package webserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openballot/election-api/src/api/election"
	"github.com/openballot/election-api/src/api/types"
)

func newHandlerRouter(t *testing.T) *gin.Engine {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&types.Election{}, &types.Question{}, &types.Answer{},
		&types.RewardConfig{}, &types.MediaAttachment{}, &types.Setting{},
	))

	svc := election.NewService(db, nil, nil, zap.NewNop())
	h := NewElections(svc, zap.NewNop())

	gin.SetMode(gin.TestMode)
	g := gin.New()
	v1 := g.Group("/v1", func(c *gin.Context) { c.Set("creator", "user-1"); c.Next() })
	v1.GET("/elections", h.List)
	v1.GET("/elections/:id", h.Get)
	v1.POST("/elections", h.Create)
	v1.PUT("/elections/:id", h.Update)
	v1.DELETE("/elections/:id", h.Delete)
	return g
}

func createPayload() map[string]interface{} {
	return map[string]interface{}{
		"title":     "City budget vote",
		"startDate": "2026-09-01",
		"endDate":   map[string]string{"date": "2026-09-15", "time": "20:00"},
		"questions": []map[string]interface{}{
			{
				"text": "Which project should be funded?",
				"answers": []map[string]string{
					{"text": "Library"},
					{"text": "Bike lanes"},
				},
			},
		},
	}
}

func postJSON(t *testing.T, g *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func TestCreateElectionJSON(t *testing.T) {
	g := newHandlerRouter(t)

	w := postJSON(t, g, "/v1/elections", createPayload())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Success bool                  `json:"success"`
		Data    election.ElectionView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "user-1", resp.Data.CreatorID)
	assert.Equal(t, "09:00", resp.Data.StartDate.Time)
	assert.Equal(t, "20:00", resp.Data.EndDate.Time)
	require.Len(t, resp.Data.Questions, 1)
	assert.Len(t, resp.Data.Questions[0].Answers, 2)
}

func TestCreateElectionValidation(t *testing.T) {
	g := newHandlerRouter(t)

	payload := createPayload()
	payload["title"] = ""
	w := postJSON(t, g, "/v1/elections", payload)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "title")
}

func TestCreateElectionMultipart(t *testing.T) {
	g := newHandlerRouter(t)

	payload, err := json.Marshal(createPayload())
	require.NoError(t, err)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("payload", string(payload)))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/elections", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestCreateElectionMultipartMissingPayload(t *testing.T) {
	g := newHandlerRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/elections", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "payload")
}

func TestGetElectionNotFound(t *testing.T) {
	g := newHandlerRouter(t)

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/elections/9999", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/elections/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateAndDeleteElection(t *testing.T) {
	g := newHandlerRouter(t)

	created := postJSON(t, g, "/v1/elections", createPayload())
	require.Equal(t, http.StatusCreated, created.Code)

	var resp struct {
		Data election.ElectionView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &resp))
	path := fmt.Sprintf("/v1/elections/%d", resp.Data.ID)

	body := strings.NewReader(`{"title":"Renamed vote","isPublished":true}`)
	req := httptest.NewRequest(http.MethodPut, path, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Renamed vote")

	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, path, nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListElectionsFilters(t *testing.T) {
	g := newHandlerRouter(t)

	for i := 0; i < 3; i++ {
		p := createPayload()
		p["title"] = fmt.Sprintf("Vote %d", i)
		if i == 0 {
			p["isPublished"] = true
			p["isDraft"] = false
		}
		require.Equal(t, http.StatusCreated, postJSON(t, g, "/v1/elections", p).Code)
	}

	w := httptest.NewRecorder()
	g.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/elections?published=true", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data  []election.ElectionSummary `json:"data"`
		Total int64                      `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 1, resp.Total)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Vote 0", resp.Data[0].Title)
}
