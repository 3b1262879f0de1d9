package api

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/procdrain/internal/attach"
	"github.com/smazurov/procdrain/internal/drain"
	"github.com/smazurov/procdrain/internal/events"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, username, password string) (*Server, *httptest.Server) {
	t.Helper()

	bus := events.New()
	handler, err := drain.New(drain.Config{
		BufferCapacity: 64,
		PollInterval:   time.Millisecond,
	}, drain.WithEventBus(bus))
	if err != nil {
		t.Fatalf("drain.New: %v", err)
	}
	t.Cleanup(handler.Close)

	registry := attach.NewRegistry(bus, testLogger())
	t.Cleanup(registry.Close)

	server := NewServer(&Options{
		AuthUsername: username,
		AuthPassword: password,
		Handler:      handler,
		Registry:     registry,
	})
	ts := httptest.NewServer(server.GetMux())
	t.Cleanup(ts.Close)
	return server, ts
}

func basicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

func doRequest(t *testing.T, method, url, auth, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := newTestServer(t, "", "")

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/health", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
}

func TestVersionEndpoint(t *testing.T) {
	_, ts := newTestServer(t, "", "")

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/version", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAuthGuardsAttachments(t *testing.T) {
	_, ts := newTestServer(t, "admin", "secret")

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/attachments", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/attachments", basicAuth("admin", "wrong"), "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d, want 401", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/attachments", basicAuth("admin", "secret"), "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authenticated status = %d, want 200", resp.StatusCode)
	}
}

func TestAuthSkipsHealth(t *testing.T) {
	_, ts := newTestServer(t, "admin", "secret")

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/health", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d, want 200 without credentials", resp.StatusCode)
	}
}

func TestCreateAttachmentRequiresAPath(t *testing.T) {
	_, ts := newTestServer(t, "", "")

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/attachments", "",
		`{"pid": `+strconv.Itoa(os.Getpid())+`}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateAttachmentUnknownSource(t *testing.T) {
	_, ts := newTestServer(t, "", "")

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/attachments", "",
		`{"pid": `+strconv.Itoa(os.Getpid())+`, "stdout_path": "/does/not/exist"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateAndListAttachments(t *testing.T) {
	_, ts := newTestServer(t, "", "")

	source := filepath.Join(t.TempDir(), "stdout.log")
	if err := os.WriteFile(source, []byte("some output\n"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	pid := strconv.Itoa(os.Getpid())
	resp := doRequest(t, http.MethodPost, ts.URL+"/api/attachments", "",
		`{"pid": `+pid+`, "stdout_path": "`+source+`"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}

	var created struct {
		Pid     string            `json:"pid"`
		Results map[string]string `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Results["stdout"] != string(drain.Handling) {
		t.Errorf("stdout result = %q, want %q", created.Results["stdout"], drain.Handling)
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/attachments", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want 200", resp.StatusCode)
	}
	var listed struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if listed.Count != 1 {
		t.Errorf("count = %d, want 1", listed.Count)
	}

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/attachments/"+pid+"/stdout", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d, want 200", resp.StatusCode)
	}
}

// deadPid returns the pid of a process that has already exited.
func deadPid(t *testing.T) int {
	t.Helper()
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Fatalf("run true: %v", err)
	}
	return cmd.Process.Pid
}

func openFDs(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Fatalf("read /proc/self/fd: %v", err)
	}
	return len(entries)
}

func TestCreateAttachmentFailureClosesSources(t *testing.T) {
	_, ts := newTestServer(t, "", "")

	source := filepath.Join(t.TempDir(), "stdout.log")
	if err := os.WriteFile(source, []byte("output\n"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	pid := strconv.Itoa(os.Getpid())

	// Responses must be drained so the client reuses one keep-alive
	// connection; fresh connections would move the descriptor count on
	// their own.
	post := func(body string, wantStatus int) {
		t.Helper()
		resp := doRequest(t, http.MethodPost, ts.URL+"/api/attachments", "", body)
		io.Copy(io.Discard, resp.Body)
		if resp.StatusCode != wantStatus {
			t.Fatalf("status = %d, want %d", resp.StatusCode, wantStatus)
		}
	}

	// Warm up the keep-alive connection so its descriptor is counted in
	// the baseline.
	post(`{"pid": `+pid+`, "stdout_path": "`+source+`", "stderr_path": "/does/not/exist"}`,
		http.StatusBadRequest)

	before := openFDs(t)

	// stderr open fails after stdout was already opened.
	for range 5 {
		post(`{"pid": `+pid+`, "stdout_path": "`+source+`", "stderr_path": "/does/not/exist"}`,
			http.StatusBadRequest)
	}

	// Attach fails after both sources were opened.
	dead := strconv.Itoa(deadPid(t))
	for range 5 {
		post(`{"pid": `+dead+`, "stdout_path": "`+source+`", "stderr_path": "`+source+`"}`,
			http.StatusNotFound)
	}

	if after := openFDs(t); after != before {
		t.Errorf("open descriptors = %d, want %d (rejected attachments leaked sources)", after, before)
	}
}

func TestCreateAttachmentRefusedDrainTerminates(t *testing.T) {
	bus := events.New()
	handler, err := drain.New(drain.Config{
		BufferCapacity: 64,
		PollInterval:   time.Millisecond,
	}, drain.WithEventBus(bus))
	if err != nil {
		t.Fatalf("drain.New: %v", err)
	}
	handler.Close()

	registry := attach.NewRegistry(bus, testLogger())
	t.Cleanup(registry.Close)
	server := NewServer(&Options{Handler: handler, Registry: registry})
	ts := httptest.NewServer(server.GetMux())
	t.Cleanup(ts.Close)

	source := filepath.Join(t.TempDir(), "stdout.log")
	if err := os.WriteFile(source, []byte("output\n"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	pid := strconv.Itoa(os.Getpid())

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/attachments", "",
		`{"pid": `+pid+`, "stdout_path": "`+source+`"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	var created struct {
		Results map[string]string `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Results["stdout"] != string(drain.IgnoreDeadProcess) {
		t.Fatalf("stdout result = %q, want %q", created.Results["stdout"], drain.IgnoreDeadProcess)
	}

	// A refused drain never publishes events, so the attachment must not
	// be left draining forever.
	a, ok := registry.Get(pid + "/stdout")
	if !ok {
		t.Fatal("attachment not tracked")
	}
	if a.State != attach.StateTerminated {
		t.Errorf("state = %v, want %v", a.State, attach.StateTerminated)
	}
	if a.Reason != string(drain.IgnoreDeadProcess) {
		t.Errorf("reason = %q, want %q", a.Reason, drain.IgnoreDeadProcess)
	}
}

func TestGetAttachmentNotFound(t *testing.T) {
	_, ts := newTestServer(t, "", "")

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/attachments/99999/stdout", "", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestStatsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, "", "")

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/stats", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Streams map[string]any `json:"streams"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestLogsEndpoint(t *testing.T) {
	_, ts := newTestServer(t, "", "")

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/logs", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
