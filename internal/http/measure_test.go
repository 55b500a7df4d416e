package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

type fakeCreator struct {
	nextID  int64
	err     error
	childID int64
	height  float64
	force   bool
}

func (f *fakeCreator) Create(_ context.Context, childID int64, height float64, forceFailure bool) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.childID = childID
	f.height = height
	f.force = forceFailure
	return f.nextID, nil
}

func postMeasure(t *testing.T, svc MeasurementCreator, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/measure", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, measureHandler(svc)(c))
	return rec
}

func TestMeasureHandlerCreated(t *testing.T) {
	svc := &fakeCreator{nextID: 7}
	rec := postMeasure(t, svc, `{"child_id":1,"height":120.0,"force_failure":false}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"created"`)
	require.Contains(t, rec.Body.String(), `"measurement_id":7`)
	require.Equal(t, int64(1), svc.childID)
	require.Equal(t, 120.0, svc.height)
	require.False(t, svc.force)
}

func TestMeasureHandlerPassesForceFailureThrough(t *testing.T) {
	svc := &fakeCreator{nextID: 8}
	rec := postMeasure(t, svc, `{"child_id":1,"height":999.0,"force_failure":true}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.True(t, svc.force)
}

func TestMeasureHandlerValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing child_id", body: `{"height":120.0}`},
		{name: "missing height", body: `{"child_id":1}`},
		{name: "negative height", body: `{"child_id":1,"height":-5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postMeasure(t, &fakeCreator{nextID: 1}, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestMeasureHandlerServiceError(t *testing.T) {
	svc := &fakeCreator{err: errors.New("tx failed")}
	rec := postMeasure(t, svc, `{"child_id":1,"height":120.0}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"error"`)
}
