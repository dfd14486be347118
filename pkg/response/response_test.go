package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	apperrors "github.com/taskflowhq/taskflow/pkg/errors"
)

func record(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", handler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestSuccessEnvelope(t *testing.T) {
	w := record(func(c *gin.Context) {
		Success(c, http.StatusCreated, gin.H{"id": "t-1"})
	})

	require.Equal(t, http.StatusCreated, w.Code)

	var payload Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.True(t, payload.Success)
	require.Nil(t, payload.Error)
	require.Equal(t, "t-1", payload.Data.(map[string]any)["id"])
}

func TestErrorEnvelopeFromAppError(t *testing.T) {
	w := record(func(c *gin.Context) {
		Error(c, apperrors.ErrNotTeamMember)
	})

	require.Equal(t, http.StatusForbidden, w.Code)

	var payload Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.False(t, payload.Success)
	require.Equal(t, apperrors.ErrNotTeamMember.Code, payload.Error.Code)
}

func TestErrorEnvelopeWrapsUnknownErrors(t *testing.T) {
	w := record(func(c *gin.Context) {
		Error(c, assertAnError())
	})

	require.Equal(t, http.StatusInternalServerError, w.Code)

	var payload Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, apperrors.ErrInternalServer.Code, payload.Error.Code)
}

func TestErrorEnvelopeNilDefaultsTo500(t *testing.T) {
	w := record(func(c *gin.Context) {
		Error(c, nil)
	})

	require.Equal(t, http.StatusInternalServerError, w.Code)
}

type plainError struct{}

func (plainError) Error() string { return "boom" }

func assertAnError() error { return plainError{} }
