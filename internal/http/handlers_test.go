package http

import (
	"bytes"
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bluetech/invoice-desk/internal/application"
	"github.com/bluetech/invoice-desk/internal/export"
	"github.com/bluetech/invoice-desk/internal/persistence"
	"github.com/bluetech/invoice-desk/internal/testfixtures"
)

type testAPI struct {
	t       *testing.T
	handler nethttp.Handler
	desk    *testfixtures.Desk
	store   *persistence.MemoryStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store := persistence.NewMemoryStore()
	factory := testfixtures.NewServiceFactory(testfixtures.WithStore(store))
	desk := factory.NewDesk(context.Background())
	t.Cleanup(desk.Close)

	logger := testfixtures.DiscardLogger()
	router := NewRouter(RouterConfig{
		Auth:        NewAuthHandler(desk.Auth, logger),
		Draft:       NewDraftHandler(desk.Form, logger),
		Submissions: NewSubmissionHandler(desk.Submissions, logger),
		Users:       NewUserHandler(desk.Users, logger),
		Admin:       NewAdminHandler(desk.Admin, logger),
		Sessions:    desk.Auth,
		Logger:      logger,
	})
	return &testAPI{t: t, handler: router, desk: desk, store: store}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) login(username, password string) string {
	a.t.Helper()
	rec := a.do(nethttp.MethodPost, "/sessions", "", map[string]string{"username": username, "password": password})
	require.Equal(a.t, nethttp.StatusCreated, rec.Code, rec.Body.String())
	return rec.Header().Get("X-Session-Token")
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	rec := api.do(nethttp.MethodGet, "/healthz", "", nil)
	assert.Equal(t, nethttp.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestAuthHandlers(t *testing.T) {
	t.Parallel()

	t.Run("login issues session token via cookie and header", func(t *testing.T) {
		t.Parallel()

		api := newTestAPI(t)
		rec := api.do(nethttp.MethodPost, "/sessions", "", map[string]string{"username": "admin", "password": "admin"})
		require.Equal(t, nethttp.StatusCreated, rec.Code)

		resp := decodeBody[loginResponse](t, rec)
		assert.Equal(t, "token-1", resp.Token)
		assert.Equal(t, "token-1", rec.Header().Get("X-Session-Token"))
		assert.Equal(t, userDTO{ID: "admin-1", Username: "admin", DisplayName: "System Admin", Role: "Admin", IsDefault: true}, resp.User)
		assert.NotContains(t, rec.Body.String(), "password")

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, sessionCookieName, cookies[0].Name)
		assert.Equal(t, "token-1", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("invalid credentials return 401", func(t *testing.T) {
		t.Parallel()

		api := newTestAPI(t)
		rec := api.do(nethttp.MethodPost, "/sessions", "", map[string]string{"username": "admin", "password": "nope"})
		assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)
		assert.Equal(t, codeInvalidCredentials, decodeBody[errorResponse](t, rec).ErrorCode)
		assert.Empty(t, api.desk.Workspace.Snapshot().Audit)
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		t.Parallel()

		api := newTestAPI(t)
		rec := api.do(nethttp.MethodPost, "/sessions", "", "{")
		assert.Equal(t, nethttp.StatusBadRequest, rec.Code)
	})

	t.Run("logout ends the session", func(t *testing.T) {
		t.Parallel()

		api := newTestAPI(t)
		token := api.login("admin", "admin")

		rec := api.do(nethttp.MethodDelete, "/sessions/current", token, nil)
		assert.Equal(t, nethttp.StatusNoContent, rec.Code)

		rec = api.do(nethttp.MethodGet, "/draft", token, nil)
		assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)

		audit := api.desk.Workspace.Snapshot().Audit
		require.Len(t, audit, 2)
		assert.Equal(t, application.ActionLogout, audit[0].Action)
	})

	t.Run("a new login replaces the previous session", func(t *testing.T) {
		t.Parallel()

		api := newTestAPI(t)
		first := api.login("admin", "admin")
		second := api.login("admin", "admin")

		assert.Equal(t, nethttp.StatusUnauthorized, api.do(nethttp.MethodGet, "/draft", first, nil).Code)
		assert.Equal(t, nethttp.StatusOK, api.do(nethttp.MethodGet, "/draft", second, nil).Code)
	})
}

func TestDraftHandlers(t *testing.T) {
	t.Parallel()

	t.Run("catalog lists service types and menu options", func(t *testing.T) {
		t.Parallel()

		api := newTestAPI(t)
		token := api.login("admin", "admin")

		rec := api.do(nethttp.MethodGet, "/catalog", token, nil)
		require.Equal(t, nethttp.StatusOK, rec.Code)
		resp := decodeBody[catalogResponse](t, rec)
		require.Len(t, resp.ServiceTypes, 4)
		assert.Equal(t, 295.0, resp.ServiceTypes[0].Value)
		assert.Equal(t, []string{"ACTIVITY LOG", "TIME SUMMARY"}, resp.MenuOptions)
	})

	t.Run("field and line item edits return recalculated totals", func(t *testing.T) {
		t.Parallel()

		api := newTestAPI(t)
		token := api.login("admin", "admin")

		rec := api.do(nethttp.MethodPatch, "/draft/fields", token, map[string]any{"name": "gstInput", "value": 14.75, "type": "number"})
		require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())

		rec = api.do(nethttp.MethodPatch, "/draft/items/0", token, map[string]any{"field": "qty", "value": 2})
		require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())
		rec = api.do(nethttp.MethodPatch, "/draft/items/0", token, map[string]any{"field": "unitValue", "value": "59"})
		require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())

		view := decodeBody[application.DraftView](t, rec)
		assert.Equal(t, 118.0, view.Calculated.Subtotal)
		assert.Equal(t, 132.75, view.Calculated.Total)

		rec = api.do(nethttp.MethodGet, "/draft", token, nil)
		assert.Equal(t, view, decodeBody[application.DraftView](t, rec))
	})

	t.Run("rejects unknown fields and bad indices", func(t *testing.T) {
		t.Parallel()

		api := newTestAPI(t)
		token := api.login("admin", "admin")

		rec := api.do(nethttp.MethodPatch, "/draft/fields", token, map[string]any{"name": "bogus", "value": "x"})
		assert.Equal(t, nethttp.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeBody[errorResponse](t, rec).Errors, "name")

		rec = api.do(nethttp.MethodPatch, "/draft/fields", token, map[string]any{"value": "x"})
		assert.Equal(t, nethttp.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "is required", decodeBody[errorResponse](t, rec).Errors["name"])

		rec = api.do(nethttp.MethodPatch, "/draft/items/9", token, map[string]any{"field": "qty", "value": 1})
		assert.Equal(t, nethttp.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeBody[errorResponse](t, rec).Errors, "index")

		rec = api.do(nethttp.MethodPatch, "/draft/items/first", token, map[string]any{"field": "qty", "value": 1})
		assert.Equal(t, nethttp.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("requires a session", func(t *testing.T) {
		t.Parallel()

		api := newTestAPI(t)
		rec := api.do(nethttp.MethodGet, "/draft", "", nil)
		assert.Equal(t, nethttp.StatusUnauthorized, rec.Code)
		assert.Equal(t, codeSessionRequired, decodeBody[errorResponse](t, rec).ErrorCode)
	})
}

func TestSubmissionHandlers(t *testing.T) {
	t.Parallel()

	t.Run("missing webhook returns 422", func(t *testing.T) {
		t.Parallel()

		api := newTestAPI(t)
		token := api.login("admin", "admin")

		rec := api.do(nethttp.MethodPost, "/submissions", token, nil)
		assert.Equal(t, nethttp.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, codeWebhookMissing, decodeBody[errorResponse](t, rec).ErrorCode)
	})

	t.Run("successful submission returns 201 with the history entry", func(t *testing.T) {
		t.Parallel()

		receiver := testfixtures.NewWebhookServer(t, nethttp.StatusOK)
		api := newTestAPI(t)
		token := api.login("admin", "admin")
		testfixtures.FillDraft(t, api.desk, receiver.URL)

		rec := api.do(nethttp.MethodPost, "/submissions", token, nil)
		require.Equal(t, nethttp.StatusCreated, rec.Code, rec.Body.String())
		resp := decodeBody[submissionResponse](t, rec)
		assert.Equal(t, "INV-1791970200000", resp.History.ID)
		assert.Equal(t, 309.75, resp.History.Total)
		assert.Equal(t, 1, receiver.Calls())

		rec = api.do(nethttp.MethodGet, "/submissions/status", token, nil)
		assert.Equal(t, statusResponse{Status: application.StatusSuccess}, decodeBody[statusResponse](t, rec))
	})

	t.Run("webhook failure returns 502", func(t *testing.T) {
		t.Parallel()

		receiver := testfixtures.NewWebhookServer(t, nethttp.StatusInternalServerError)
		api := newTestAPI(t)
		token := api.login("admin", "admin")
		testfixtures.FillDraft(t, api.desk, receiver.URL)

		rec := api.do(nethttp.MethodPost, "/submissions", token, nil)
		assert.Equal(t, nethttp.StatusBadGateway, rec.Code)
		assert.Equal(t, codeSubmissionFailed, decodeBody[errorResponse](t, rec).ErrorCode)
		assert.Empty(t, api.desk.Workspace.Snapshot().History)
	})
}

func TestUserHandlers(t *testing.T) {
	t.Parallel()

	t.Run("require administrator authorization", func(t *testing.T) {
		t.Parallel()

		api := newTestAPI(t)
		admin := api.login("admin", "admin")
		rec := api.do(nethttp.MethodPost, "/admin/users", admin, map[string]string{
			"username": "sam", "password": "pw", "displayName": "Sam", "role": "Viewer",
		})
		require.Equal(t, nethttp.StatusCreated, rec.Code, rec.Body.String())

		viewer := api.login("sam", "pw")
		for _, path := range []string{"/admin/users", "/admin/history", "/admin/audit", "/admin/history/export", "/admin/webhook"} {
			rec := api.do(nethttp.MethodGet, path, viewer, nil)
			assert.Equal(t, nethttp.StatusForbidden, rec.Code, path)
			assert.Equal(t, codeForbidden, decodeBody[errorResponse](t, rec).ErrorCode)
		}
		assert.Equal(t, nethttp.StatusForbidden, api.do(nethttp.MethodPost, "/admin/reset?confirm=true", viewer, nil).Code)

		hook := map[string]string{"webhookUrl": "https://attacker.example/hook"}
		assert.Equal(t, nethttp.StatusForbidden, api.do(nethttp.MethodPut, "/admin/webhook", viewer, hook).Code)
		rec = api.do(nethttp.MethodPatch, "/draft/fields", viewer, map[string]string{"name": "webhookUrl", "value": hook["webhookUrl"]})
		assert.Equal(t, nethttp.StatusUnprocessableEntity, rec.Code)
		assert.Empty(t, api.desk.Workspace.Snapshot().Draft.WebhookURL)
	})

	t.Run("create validates, rejects duplicates and hides passwords", func(t *testing.T) {
		t.Parallel()

		api := newTestAPI(t)
		token := api.login("admin", "admin")

		rec := api.do(nethttp.MethodPost, "/admin/users", token, map[string]string{"username": "sam"})
		assert.Equal(t, nethttp.StatusUnprocessableEntity, rec.Code)
		errs := decodeBody[errorResponse](t, rec).Errors
		assert.Equal(t, "is required", errs["password"])
		assert.Equal(t, "is required", errs["displayName"])

		rec = api.do(nethttp.MethodPost, "/admin/users", token, map[string]string{
			"username": "admin", "password": "pw", "displayName": "Again",
		})
		assert.Equal(t, nethttp.StatusConflict, rec.Code)
		assert.Equal(t, codeDuplicateUsername, decodeBody[errorResponse](t, rec).ErrorCode)

		rec = api.do(nethttp.MethodPost, "/admin/users", token, map[string]string{
			"username": "sam", "password": "secret", "displayName": "Sam",
		})
		require.Equal(t, nethttp.StatusCreated, rec.Code)
		assert.Equal(t, "Viewer", decodeBody[userResponse](t, rec).User.Role)

		rec = api.do(nethttp.MethodGet, "/admin/users", token, nil)
		require.Equal(t, nethttp.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "secret")
		assert.Len(t, decodeBody[listUsersResponse](t, rec).Users, 2)
	})

	t.Run("delete honours the confirm flag and protects the seeded admin", func(t *testing.T) {
		t.Parallel()

		api := newTestAPI(t)
		token := api.login("admin", "admin")
		rec := api.do(nethttp.MethodPost, "/admin/users", token, map[string]string{
			"username": "sam", "password": "pw", "displayName": "Sam",
		})
		require.Equal(t, nethttp.StatusCreated, rec.Code)
		id := decodeBody[userResponse](t, rec).User.ID

		assert.Equal(t, nethttp.StatusNoContent, api.do(nethttp.MethodDelete, "/admin/users/"+id, token, nil).Code)
		assert.Len(t, api.desk.Workspace.Snapshot().Users, 2)

		assert.Equal(t, nethttp.StatusNoContent, api.do(nethttp.MethodDelete, "/admin/users/admin-1?confirm=true", token, nil).Code)
		assert.Len(t, api.desk.Workspace.Snapshot().Users, 2)

		assert.Equal(t, nethttp.StatusNoContent, api.do(nethttp.MethodDelete, "/admin/users/"+id+"?confirm=true", token, nil).Code)
		assert.Len(t, api.desk.Workspace.Snapshot().Users, 1)
	})
}

func TestAdminHandlers(t *testing.T) {
	t.Parallel()

	t.Run("history, audit and export", func(t *testing.T) {
		t.Parallel()

		receiver := testfixtures.NewWebhookServer(t, nethttp.StatusOK)
		api := newTestAPI(t)
		token := api.login("admin", "admin")
		testfixtures.FillDraft(t, api.desk, receiver.URL)
		require.Equal(t, nethttp.StatusCreated, api.do(nethttp.MethodPost, "/submissions", token, nil).Code)

		rec := api.do(nethttp.MethodGet, "/admin/history", token, nil)
		require.Equal(t, nethttp.StatusOK, rec.Code)
		history := decodeBody[historyResponse](t, rec).History
		require.Len(t, history, 1)
		assert.Equal(t, "Dana Reyes", history[0].ClientName)

		rec = api.do(nethttp.MethodGet, "/admin/audit?limit=1", token, nil)
		require.Equal(t, nethttp.StatusOK, rec.Code)
		entries := decodeBody[auditResponse](t, rec).Entries
		require.Len(t, entries, 1)
		assert.Equal(t, "Invoice Sent: INV-1791970200000", entries[0].Action)

		rec = api.do(nethttp.MethodGet, "/admin/audit?limit=-2", token, nil)
		assert.Equal(t, nethttp.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "must be at least 0", decodeBody[errorResponse](t, rec).Errors["limit"])
		rec = api.do(nethttp.MethodGet, "/admin/audit?limit=few", token, nil)
		assert.Equal(t, nethttp.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "must be an integer", decodeBody[errorResponse](t, rec).Errors["limit"])

		rec = api.do(nethttp.MethodGet, "/admin/history/export?format=json", token, nil)
		require.Equal(t, nethttp.StatusOK, rec.Code)
		assert.Equal(t, export.FormatJSON.ContentType(), rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "invoice-history.json")

		rec = api.do(nethttp.MethodGet, "/admin/history/export?format=xlsx", token, nil)
		require.Equal(t, nethttp.StatusOK, rec.Code)
		f, err := excelize.OpenReader(rec.Body)
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows(export.SheetName)
		require.NoError(t, err)
		assert.Len(t, rows, 2)

		assert.Equal(t, nethttp.StatusUnprocessableEntity, api.do(nethttp.MethodGet, "/admin/history/export?format=pdf", token, nil).Code)
	})

	t.Run("webhook url is read and replaced by administrators", func(t *testing.T) {
		t.Parallel()

		api := newTestAPI(t)
		token := api.login("admin", "admin")

		rec := api.do(nethttp.MethodGet, "/admin/webhook", token, nil)
		require.Equal(t, nethttp.StatusOK, rec.Code)
		assert.Equal(t, webhookPayload{}, decodeBody[webhookPayload](t, rec))

		rec = api.do(nethttp.MethodPut, "/admin/webhook", token, map[string]string{"webhookUrl": "https://hooks.example.com/invoice"})
		require.Equal(t, nethttp.StatusOK, rec.Code, rec.Body.String())

		rec = api.do(nethttp.MethodGet, "/admin/webhook", token, nil)
		assert.Equal(t, webhookPayload{WebhookURL: "https://hooks.example.com/invoice"}, decodeBody[webhookPayload](t, rec))
		assert.Equal(t, "https://hooks.example.com/invoice", api.desk.Workspace.Snapshot().Draft.WebhookURL)

		assert.Equal(t, nethttp.StatusBadRequest, api.do(nethttp.MethodPut, "/admin/webhook", token, "{").Code)
	})

	t.Run("reset requires confirmation and ends the session", func(t *testing.T) {
		t.Parallel()

		api := newTestAPI(t)
		token := api.login("admin", "admin")

		assert.Equal(t, nethttp.StatusNoContent, api.do(nethttp.MethodPost, "/admin/reset", token, nil).Code)
		assert.NotEmpty(t, api.store.Keys())
		assert.Equal(t, nethttp.StatusOK, api.do(nethttp.MethodGet, "/draft", token, nil).Code)

		assert.Equal(t, nethttp.StatusNoContent, api.do(nethttp.MethodPost, "/admin/reset?confirm=true", token, nil).Code)
		assert.Empty(t, api.store.Keys())
		assert.Equal(t, nethttp.StatusUnauthorized, api.do(nethttp.MethodGet, "/draft", token, nil).Code)
	})
}

func TestRouterFallbacks(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	rec := api.do(nethttp.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, nethttp.StatusNotFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))

	rec = api.do(nethttp.MethodPut, "/healthz", "", nil)
	assert.Equal(t, nethttp.StatusMethodNotAllowed, rec.Code)
}
