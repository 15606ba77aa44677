package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufrn-horarios/horarios-api/internal/models"
	"github.com/ufrn-horarios/horarios-api/internal/service"
	appErrors "github.com/ufrn-horarios/horarios-api/pkg/errors"
)

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error *struct {
		Code    string      `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details"`
	} `json:"error"`
}

type listEnvelope struct {
	Data       []map[string]interface{} `json:"data"`
	Pagination map[string]interface{}   `json:"pagination"`
	Meta       map[string]interface{}   `json:"meta"`
}

func newTestContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	c.Request = req
	return c, rec
}

type fakeComponentSrv struct {
	lastFilter models.ComponentFilter
	lastCreate service.CreateComponentRequest
	lastCode   string
	component  *models.CurricularComponent
	err        error
}

func (f *fakeComponentSrv) List(_ context.Context, filter models.ComponentFilter) ([]models.CurricularComponent, *models.Pagination, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, nil, f.err
	}
	return []models.CurricularComponent{*f.component}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (f *fakeComponentSrv) Get(_ context.Context, code string) (*models.CurricularComponent, error) {
	f.lastCode = code
	return f.component, f.err
}

func (f *fakeComponentSrv) Create(_ context.Context, req service.CreateComponentRequest) (*models.CurricularComponent, error) {
	f.lastCreate = req
	return f.component, f.err
}

func (f *fakeComponentSrv) Update(_ context.Context, code string, _ service.UpdateComponentRequest) (*models.CurricularComponent, error) {
	f.lastCode = code
	return f.component, f.err
}

func (f *fakeComponentSrv) Delete(_ context.Context, code string) error {
	f.lastCode = code
	return f.err
}

func TestComponentHandlerListParsesFilters(t *testing.T) {
	srv := &fakeComponentSrv{component: &models.CurricularComponent{Code: "DIM0120"}}
	handler := NewComponentHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/componentes?semester=2&department=dimap&mandatory=true&page=2&limit=5", "")
	handler.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, srv.lastFilter.Semester)
	assert.Equal(t, 2, *srv.lastFilter.Semester)
	assert.Equal(t, "DIMAP", srv.lastFilter.Department)
	require.NotNil(t, srv.lastFilter.Mandatory)
	assert.True(t, *srv.lastFilter.Mandatory)
	assert.Equal(t, 2, srv.lastFilter.Page)
	assert.Equal(t, 5, srv.lastFilter.PageSize)

	var envelope listEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "DIM0120", envelope.Data[0]["code"])
	assert.EqualValues(t, 1, envelope.Pagination["total_count"])
}

func TestComponentHandlerListRejectsBadSemester(t *testing.T) {
	handler := NewComponentHandler(&fakeComponentSrv{})

	c, rec := newTestContext(http.MethodGet, "/componentes?semester=abc", "")
	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComponentHandlerCreate(t *testing.T) {
	srv := &fakeComponentSrv{component: &models.CurricularComponent{Code: "DIM0120", Name: "CALCULO"}}
	handler := NewComponentHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/componentes", `{"code":"DIM0120","name":"Calculo","semester":1,"weekly_load":60,"department":"DIMAP","mandatory":true}`)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "DIM0120", srv.lastCreate.Code)
	assert.Equal(t, 60, srv.lastCreate.WeeklyLoad)
}

func TestComponentHandlerCreateInvalidJSON(t *testing.T) {
	handler := NewComponentHandler(&fakeComponentSrv{})

	c, rec := newTestContext(http.MethodPost, "/componentes", `{"code":`)
	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComponentHandlerGetNotFound(t *testing.T) {
	handler := NewComponentHandler(&fakeComponentSrv{err: appErrors.Clone(appErrors.ErrNotFound, "component not found")})

	c, rec := newTestContext(http.MethodGet, "/componentes/DIM9999", "")
	c.Params = gin.Params{{Key: "code", Value: "DIM9999"}}
	handler.Get(c)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrNotFound.Code, envelope.Error.Code)
}

func TestComponentHandlerDelete(t *testing.T) {
	srv := &fakeComponentSrv{}
	handler := NewComponentHandler(srv)

	c, _ := newTestContext(http.MethodDelete, "/componentes/DIM0120", "")
	c.Params = gin.Params{{Key: "code", Value: "DIM0120"}}
	handler.Delete(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "DIM0120", srv.lastCode)
}
