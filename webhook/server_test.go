package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentumhq/momentum/coach"
	"github.com/momentumhq/momentum/messaging"
	"github.com/momentumhq/momentum/model"
	"github.com/momentumhq/momentum/session"
	"github.com/momentumhq/momentum/store"
)

const testAddress = "whatsapp:+4915112345678"

type fixture struct {
	llm    *model.ScriptedModel
	store  *store.MemoryStore
	sender *messaging.MemorySender
	server *Server
}

func newFixture(t *testing.T, optFns ...func(o *Options)) *fixture {
	t.Helper()
	f := &fixture{
		llm:    model.NewScriptedModel("scripted"),
		store:  store.NewMemoryStore(),
		sender: messaging.NewMemorySender(),
	}
	c := coach.New(f.llm, f.store, session.NewInMemoryStore(), f.sender)
	f.server = NewServer(c, f.sender, f.store, optFns...)
	return f
}

func postForm(t *testing.T, handler http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWebhookDeliversReply(t *testing.T) {
	f := newFixture(t)
	f.llm.EnqueueReply("Welcome. What's your name?")

	rec := postForm(t, f.server.Router(), "/whatsapp/webhook",
		url.Values{"From": {testAddress}, "Body": {"Hi"}})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])

	sent := f.sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, testAddress, sent[0].Address)
	assert.Equal(t, "Welcome. What's your name?", sent[0].Body)
}

func TestWebhookIncompletePayloadNoRetry(t *testing.T) {
	f := newFixture(t)

	// Twilio retries non-2xx responses, so an unusable payload is reported
	// as an error body on a 200, same as a failed turn.
	rec := postForm(t, f.server.Router(), "/whatsapp/webhook", url.Values{"Body": {"Hi"}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "error", decodeBody(t, rec)["status"])

	rec = postForm(t, f.server.Router(), "/whatsapp/webhook", url.Values{"From": {testAddress}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "error", decodeBody(t, rec)["status"])

	assert.Empty(t, f.sender.Sent())
}

func TestWebhookReportsTurnFailure(t *testing.T) {
	f := newFixture(t) // empty model script forces a turn failure

	rec := postForm(t, f.server.Router(), "/whatsapp/webhook",
		url.Values{"From": {testAddress}, "Body": {"Hi"}})

	// Twilio must not retry the message, so the failure is a 200 with an
	// error status in the body.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "error", decodeBody(t, rec)["status"])
	assert.Empty(t, f.sender.Sent())
}

func TestProofRequestEndpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, err := f.store.EnsureAccount(ctx, testAddress)
	require.NoError(t, err)
	acct, err := f.store.UpdateAccountName(ctx, testAddress, "Alex")
	require.NoError(t, err)
	_, err = f.store.CreateCommitment(ctx, &store.Commitment{
		AccountID: acct.ID, GoalDescription: "Run 5k", TaskDescription: "Run 5k",
		StartDate: "2026-09-01", EndDate: "2026-09-30",
		StakeAmount: 50, StakeType: store.StakeOneTimeOnFailure,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/whatsapp/proof-request",
		strings.NewReader(`{"address":"whatsapp:+4915112345678","flow_id":"flow-1"}`))
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["message_id"])

	sent := f.sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "flow-1", sent[0].FlowID)
}

func TestProofRequestRequiresAddress(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/whatsapp/proof-request", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	f.server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "momentum", body["service"])
	assert.NotEmpty(t, body["timestamp"])
}

type readyBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func getReady(t *testing.T, handler http.Handler) (int, readyBody) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	var body readyBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestReadyEndpoint(t *testing.T) {
	f := newFixture(t)

	code, body := getReady(t, f.server.Router())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, "healthy", body.Checks["database"])
	assert.Equal(t, "healthy", body.Checks["config"])
}

func TestReadyEndpointStoreDown(t *testing.T) {
	records, err := store.OpenSQLite(":memory:")
	require.NoError(t, err)
	llm := model.NewScriptedModel("scripted")
	sender := messaging.NewMemorySender()
	c := coach.New(llm, records, session.NewInMemoryStore(), sender)
	server := NewServer(c, sender, records)

	// A closed database must pull the instance out of rotation.
	require.NoError(t, records.Close())

	code, body := getReady(t, server.Router())
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not_ready", body.Status)
	assert.Contains(t, body.Checks["database"], "unhealthy")
}

func TestReadyEndpointConfigFailure(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.ConfigCheck = func() error { return errors.New("twilio credentials missing") }
	})

	code, body := getReady(t, f.server.Router())
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "healthy", body.Checks["database"])
	assert.Contains(t, body.Checks["config"], "twilio credentials missing")
}
