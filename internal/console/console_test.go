package console

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashenfad/tic-go/internal/eval"
	"github.com/ashenfad/tic-go/internal/kv"
	"github.com/ashenfad/tic-go/internal/lang"
	"github.com/ashenfad/tic-go/internal/state"
	"github.com/ashenfad/tic-go/pkg/tic"
)

func newCommittedStore(t *testing.T) *state.Versioned {
	t.Helper()
	st := tic.NewVersioned(kv.NewMemory(), "", nil, nil)
	ag := tic.NewAgent(nil, nil)

	mod, err := lang.Parse(`x = 1`)
	require.NoError(t, err)
	_, runErr := eval.EvaluateProgram(ag, st, "x = 1", mod.Body, 0, nil)
	require.NoError(t, runErr)
	st.Snapshot()
	return st
}

func TestConsoleRejectsMissingToken(t *testing.T) {
	st := newCommittedStore(t)
	srv := New(Config{Addr: ":0", HMACSecret: []byte("secret")}, st, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/view?focus=full", nil)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestConsoleRejectsWrongSecret(t *testing.T) {
	st := newCommittedStore(t)
	srv := New(Config{Addr: ":0", HMACSecret: []byte("secret")}, st, nil)

	token, err := IssueToken([]byte("wrong-secret"), "tester", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/view?focus=full", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestConsoleServesViewWithValidToken(t *testing.T) {
	st := newCommittedStore(t)
	secret := []byte("secret")
	srv := New(Config{Addr: ":0", HMACSecret: secret}, st, nil)

	token, err := IssueToken(secret, "tester", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/view?focus=full", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "\"x\"")
}
