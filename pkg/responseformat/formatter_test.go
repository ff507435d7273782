package responseformat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

type sample struct {
	Name  string  `json:"name"`
	Speed float64 `json:"speed"`
}

func TestWriteResponseJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	require.NoError(t, NewFormatter(false).WriteResponse(rec, req, http.StatusCreated, sample{Name: "a", Speed: 1.5}))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.JSONEq(t, `{"name":"a","speed":1.5}`, rec.Body.String())
}

func TestWriteResponseMsgPack(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x?format=msgpack", nil)

	require.NoError(t, NewFormatter(true).WriteResponse(rec, req, http.StatusOK, sample{Name: "a", Speed: 1.5}))

	assert.Equal(t, "application/x-msgpack", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var got map[string]any
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "a", got["name"])
	assert.Equal(t, 1.5, got["speed"])
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	require.NoError(t, NewFormatter(false).WriteError(rec, req, http.StatusNotFound, "no analysis available"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "no analysis available", body.Error)
}
