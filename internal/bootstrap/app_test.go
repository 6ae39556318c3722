package bootstrap

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"photoreq-backend/internal/linkcodec"
	"photoreq-backend/internal/llm"
	"photoreq-backend/internal/notify"
	"photoreq-backend/internal/requests"
	"photoreq-backend/internal/shared/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Env:             "dev",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		AppOrigin:       "http://localhost:5173",
		AgentAccessCode: "letmein",
		AgentEmail:      "Save@BillLayneInsurance.com",
		JWTSecret:       "test-secret",
		LLMProvider:     "none",
		ObjectStoreType: "local",
		LocalStoreDir:   filepath.Join(dir, "data"),
		IntakeEnabled:   true,
		SubmissionStore: "csv",
		SheetPath:       filepath.Join(dir, "data", "submissions.csv"),
		ReceiverURL:     "local",
		NotifyTo:        "Save@BillLayneInsurance.com",
		PreviewDir:      t.TempDir(),
	}
}

func do(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestBuildDefaults(t *testing.T) {
	cfg := testConfig(t)
	cfg.SMTPAddr = ""
	app, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()

	if _, ok := app.AI.(llm.Disabled); !ok {
		t.Fatalf("expected disabled AI, got %T", app.AI)
	}
	if _, ok := app.Notifier.(notify.LogNotifier); !ok {
		t.Fatalf("expected log notifier, got %T", app.Notifier)
	}
	if !app.Receiver.Configured() || app.Intake == nil || app.Queue != nil {
		t.Fatalf("unexpected wiring %+v", app)
	}
}

func TestBuildRejectsLocalReceiverWithoutIntake(t *testing.T) {
	cfg := testConfig(t)
	cfg.IntakeEnabled = false
	if _, err := Build(cfg); err == nil {
		t.Fatalf("expected error")
	}
}

func TestBuildSMTPNotifier(t *testing.T) {
	cfg := testConfig(t)
	cfg.SMTPAddr = "smtp.example.com:587"
	if _, ok := BuildNotifier(cfg).(*notify.SMTPNotifier); !ok {
		t.Fatalf("expected SMTP notifier")
	}
}

// An agent signs in, creates a link, the client opens it, captures one photo
// and submits to the in-process intake.
func TestEndToEnd(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app, err := Build(testConfig(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()
	r := app.Router

	rec := do(t, r, http.MethodPost, "/api/v1/agent/login", "", map[string]string{"code": "letmein"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &login)

	if rec := do(t, r, http.MethodGet, "/api/v1/agent/me", login.Token, nil); rec.Code != http.StatusOK {
		t.Fatalf("me: %d", rec.Code)
	}
	if rec := do(t, r, http.MethodGet, "/api/v1/agent/me", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("me without token: %d", rec.Code)
	}

	rec = do(t, r, http.MethodPost, "/api/v1/agent/links", login.Token, map[string]any{
		"clientName": "Jane Doe",
		"address":    "1 Main St",
		"requirements": []requests.PhotoRequirement{
			{ID: "1", Label: "Front of House", IsMandatory: true},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create link: %d %s", rec.Code, rec.Body.String())
	}
	var link struct {
		Link string `json:"link"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &link)
	if !strings.HasPrefix(link.Link, "http://localhost:5173/#/upload?data=") {
		t.Fatalf("unexpected link %q", link.Link)
	}
	token, _ := linkcodec.ExtractToken(link.Link)
	if _, err := linkcodec.Decode(token); err != nil {
		t.Fatalf("link does not decode: %v", err)
	}

	rec = do(t, r, http.MethodPost, "/api/v1/sessions", "", map[string]string{"link": link.Link})
	if rec.Code != http.StatusCreated && rec.Code != http.StatusOK {
		t.Fatalf("open session: %d %s", rec.Code, rec.Body.String())
	}
	var session struct {
		SessionID string `json:"sessionId"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &session)

	png, _ := base64.StdEncoding.DecodeString("iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg==")
	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	fw, err := mw.CreateFormFile("file", "front.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	fw.Write(png)
	mw.Close()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/sessions/"+session.SessionID+"/photos/1", &form)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	capture := httptest.NewRecorder()
	r.ServeHTTP(capture, req)
	if capture.Code != http.StatusAccepted {
		t.Fatalf("capture: %d %s", capture.Code, capture.Body.String())
	}
	orch, err := app.Sessions.Get(session.SessionID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	orch.Wait()

	rec = do(t, r, http.MethodPost, "/api/v1/sessions/"+session.SessionID+"/submit", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodGet, "/api/v1/agent/submissions", login.Token, nil)
	var list struct {
		Submissions []struct {
			ClientName string `json:"clientName"`
			PhotoCount int    `json:"photoCount"`
		} `json:"submissions"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list.Submissions) != 1 || list.Submissions[0].PhotoCount != 1 || !strings.HasPrefix(list.Submissions[0].ClientName, "Jane Doe (Ref: ") {
		t.Fatalf("unexpected submissions %s", rec.Body.String())
	}
}
