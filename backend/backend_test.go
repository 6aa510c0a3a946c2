package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wansing/buzz/auth"
	"github.com/wansing/buzz/core"
	"github.com/wansing/buzz/memdb"
	"go.uber.org/zap"
)

// fakeAuth knows the tokens "employee" and "manager" and is unreachable for "down".
type fakeAuth struct{}

func (fakeAuth) Authenticate(ctx context.Context, token string) (*auth.Credential, error) {
	switch token {
	case "":
		return nil, &auth.Failure{Reason: auth.MissingToken}
	case "employee":
		return &auth.Credential{ID: "e-1", Title: auth.Employee}, nil
	case "manager":
		return &auth.Credential{ID: "m-1", Title: auth.Manager}, nil
	case "down":
		return nil, &auth.Failure{Reason: auth.Unreachable}
	default:
		return nil, &auth.Failure{Reason: auth.Rejected}
	}
}

func newServer(t *testing.T) *httptest.Server {
	var b = &Backend{
		Catalog: core.NewCatalog(memdb.New(), auth.DefaultPolicies(), zap.NewNop()),
		Auth:    fakeAuth{},
		Log:     zap.NewNop(),
	}
	var srv = httptest.NewServer(NewRouter(b))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, token, body string) (int, response) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var r response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&r))
	return resp.StatusCode, r
}

func dataID(t *testing.T, r response) string {
	t.Helper()
	data, ok := r.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", r.Data)
	id, ok := data["id"].(string)
	require.True(t, ok)
	return id
}

const triviaBody = `{"question": "What is 6 times 7?", "answer": "42", "language": "en"}`

func TestWorkflow(t *testing.T) {
	var srv = newServer(t)

	status, r := do(t, srv, http.MethodPost, "/trivia", "employee", triviaBody)
	assert.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, "success", r.Status)
	assert.Equal(t, "PendingSuccess", r.CodeTag)
	var pendingID = dataID(t, r)

	status, _ = do(t, srv, http.MethodGet, "/trivia/pending", "employee", "")
	assert.Equal(t, http.StatusForbidden, status)

	status, r = do(t, srv, http.MethodGet, "/trivia/pending", "manager", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, r.Data, 1)

	status, r = do(t, srv, http.MethodPost, "/trivia/pending/"+pendingID+"/approve", "manager", "")
	assert.Equal(t, http.StatusOK, status)
	var id = dataID(t, r)

	status, _ = do(t, srv, http.MethodPost, "/trivia/pending/"+pendingID+"/approve", "manager", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, r = do(t, srv, http.MethodGet, "/trivia/record/"+id, "employee", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "42", r.Data.(map[string]interface{})["answer"])

	status, r = do(t, srv, http.MethodGet, "/trivia?language=en", "employee", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, r.Data, 1)

	status, r = do(t, srv, http.MethodGet, "/trivia/random?n=3", "employee", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, r.Data, 1)
	assert.Len(t, r.Warnings, 1)

	status, _ = do(t, srv, http.MethodDelete, "/trivia/record/"+id, "employee", "")
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = do(t, srv, http.MethodDelete, "/trivia/record/"+id, "manager", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestManagerCreates(t *testing.T) {
	var srv = newServer(t)

	status, r := do(t, srv, http.MethodPost, "/trivia", "manager", triviaBody)
	assert.Equal(t, http.StatusCreated, status)
	var id = dataID(t, r)

	status, _ = do(t, srv, http.MethodPut, "/trivia/record/"+id, "manager", `{"question": "Q?", "answer": "A", "language": "en"}`)
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, srv, http.MethodPut, "/trivia/record/"+id, "employee", `{"question": "Q2?", "answer": "A", "language": "en"}`)
	assert.Equal(t, http.StatusAccepted, status)

	status, r = do(t, srv, http.MethodGet, "/trivia/count?language=en", "employee", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), r.Data)
}

func TestAuthenticationFailures(t *testing.T) {
	var srv = newServer(t)

	tests := []struct {
		token  string
		status int
		tag    string
	}{
		{"", http.StatusUnauthorized, "MissingToken"},
		{"nobody", http.StatusUnauthorized, "UnauthorizedToken"},
		{"down", http.StatusServiceUnavailable, "ServerConnectionError"},
	}
	for _, tt := range tests {
		status, r := do(t, srv, http.MethodGet, "/jokes", tt.token, "")
		assert.Equal(t, tt.status, status, tt.token)
		assert.Equal(t, "failure", r.Status)
		assert.Equal(t, tt.tag, r.CodeTag)
	}
}

func TestBadRequests(t *testing.T) {
	var srv = newServer(t)

	tests := []struct {
		method string
		path   string
		body   string
		status int
		tag    string
	}{
		{http.MethodPost, "/trivia", "not json", http.StatusBadRequest, "MalformedContent"},
		{http.MethodPost, "/trivia", `{"question": "Q?"}`, http.StatusBadRequest, "InvalidRecord"},
		{http.MethodGet, "/trivia?limit=x", "", http.StatusBadRequest, "MalformedContent"},
		{http.MethodGet, "/trivia/short?max=x", "", http.StatusBadRequest, "MalformedContent"},
		{http.MethodGet, "/trivia?id=nothex", "", http.StatusBadRequest, "InvalidFilter"},
		{http.MethodGet, "/trivia/record/nothex", "", http.StatusBadRequest, "MalformedContent"},
		{http.MethodDelete, "/trivia?language=en&answer=42", "", http.StatusBadRequest, "MalformedContent"},
		{http.MethodGet, "/poems", "", http.StatusNotFound, "NotFound"},
		{http.MethodGet, "/quotes/daily", "", http.StatusNotFound, "NotFound"},
	}
	for _, tt := range tests {
		status, r := do(t, srv, tt.method, tt.path, "manager", tt.body)
		assert.Equal(t, tt.status, status, "%s %s", tt.method, tt.path)
		assert.Equal(t, tt.tag, r.CodeTag, "%s %s", tt.method, tt.path)
	}
}

func TestBearerToken(t *testing.T) {
	var req = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", bearerToken(req))

	req.Header.Set("Bearer", " abc ")
	assert.Equal(t, "abc", bearerToken(req))

	req.Header.Set("Authorization", "bearer xyz")
	assert.Equal(t, "xyz", bearerToken(req))

	req.Header.Set("Authorization", "Basic xyz")
	assert.Equal(t, "", bearerToken(req))
}

func TestParseFilter(t *testing.T) {
	var query = map[string][]string{
		"language": {"en"},
		"level":    {"2"},
		"is_edit":  {"false"},
		"limit":    {"10"},
	}
	assert.Equal(t, core.Filter{"language": "en", "level": int64(2), "is_edit": false}, parseFilter(query, "limit"))
}

func TestRequestID(t *testing.T) {
	var srv = newServer(t)
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/jokes", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer employee")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Len(t, resp.Header.Get("X-Request-ID"), 36)
}

func TestHealthz(t *testing.T) {
	var srv = newServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
