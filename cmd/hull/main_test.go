package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hull-run/hull/pkg/bundle"
	"github.com/hull-run/hull/pkg/capability/db"
	"github.com/hull-run/hull/pkg/dispatch"
	"github.com/hull-run/hull/pkg/httpserver/stdhttp"
	"github.com/hull-run/hull/pkg/runtime"
)

func runtimeConfigForTest() runtime.Config {
	return runtime.Config{HeapCapBytes: 1 << 20, StackCapBytes: 1 << 18, ApplicationDir: "."}
}

// TestRunDevServesBuiltinExampleApp drives the same wiring serveWith uses for
// `hull dev` (dispatcher + stdhttp) against the built-in example app, without
// blocking on ListenAndServe.
func TestRunDevServesBuiltinExampleApp(t *testing.T) {
	logger := defaultLogger("error")
	rt := newExampleDevRuntime()

	if err := rt.Init(context.Background(), runtimeConfigForTest()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := rt.LoadApp(context.Background(), ""); err != nil {
		t.Fatalf("LoadApp: %v", err)
	}
	table, err := rt.WireRoutes(context.Background())
	if err != nil {
		t.Fatalf("WireRoutes: %v", err)
	}
	if len(table.Routes) == 0 {
		t.Fatal("expected the built-in example app to register routes")
	}

	dbPath := filepath.Join(t.TempDir(), "dev.db")
	dbCap, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	defer dbCap.Close()

	d := dispatch.New(rt, dbCap, logger, 0)
	server := stdhttp.New(logger)
	d.Register(server, table)

	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/hello/world")
	if err != nil {
		t.Fatalf("GET /hello/world: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	resp2, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp2.StatusCode)
	}
}

func TestRunUnknownCommandReturnsExitCode2(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"hull", "bogus-command"}, &stdout, &stderr)
	if code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "bogus-command") {
		t.Fatalf("stderr = %q, expected it to name the unknown command", stderr.String())
	}
}

func TestRunExternalCollaboratorStubsReturnExitCode2(t *testing.T) {
	for _, name := range []string{"build", "test", "new", "eject", "inspect"} {
		var stdout, stderr bytes.Buffer
		code := Run([]string{"hull", name}, &stdout, &stderr)
		if code != 2 {
			t.Errorf("command %q: exit code = %d, want 2", name, code)
		}
		if !strings.Contains(stderr.String(), name) {
			t.Errorf("command %q: stderr = %q, expected it to name the command", name, stderr.String())
		}
	}
}

func TestRunHelpPrintsUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"hull", "help"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.Contains(stdout.String(), "usage: hull") {
		t.Fatalf("stdout = %q, expected usage text", stdout.String())
	}
}

func TestRunKeygenWritesHexKeysToFiles(t *testing.T) {
	dir := t.TempDir()
	pubPath := filepath.Join(dir, "pub.hex")
	privPath := filepath.Join(dir, "priv.hex")

	var stdout, stderr bytes.Buffer
	code := Run([]string{"hull", "keygen", "-pub", pubPath, "-priv", privPath}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr.String())
	}

	pubHex, err := os.ReadFile(pubPath)
	if err != nil {
		t.Fatalf("reading pub file: %v", err)
	}
	privHex, err := os.ReadFile(privPath)
	if err != nil {
		t.Fatalf("reading priv file: %v", err)
	}
	if _, err := hex.DecodeString(string(pubHex)); err != nil {
		t.Fatalf("pub key not valid hex: %v", err)
	}
	if _, err := hex.DecodeString(string(privHex)); err != nil {
		t.Fatalf("priv key not valid hex: %v", err)
	}
}

func TestRunKeygenWritesToStdoutWhenPathsOmitted(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"hull", "keygen"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "public:") || !strings.Contains(stdout.String(), "private:") {
		t.Fatalf("stdout = %q, expected both key lines", stdout.String())
	}
}

func TestRunManifestParsesAndPrintsCanonicalForm(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "manifest.json")
	doc := `{"fs":{"read":["/data"],"write":[]},"env":["API_KEY"],"hosts":["api.example.com"]}`
	if err := os.WriteFile(manifestPath, []byte(doc), 0o644); err != nil {
		t.Fatalf("writing manifest fixture: %v", err)
	}

	var stdout, stderr bytes.Buffer
	code := Run([]string{"hull", "manifest", "-file", manifestPath}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "api.example.com") {
		t.Fatalf("stdout = %q, expected canonical manifest to mention the declared host", stdout.String())
	}
}

func TestRunManifestRequiresFileFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"hull", "manifest"}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestSignPlatformThenVerifyRoundTrips(t *testing.T) {
	dir := t.TempDir()

	var keygenOut, keygenErr bytes.Buffer
	pubPath := filepath.Join(dir, "pub.hex")
	privPath := filepath.Join(dir, "priv.hex")
	if code := Run([]string{"hull", "keygen", "-pub", pubPath, "-priv", privPath}, &keygenOut, &keygenErr); code != 0 {
		t.Fatalf("keygen failed: %s", keygenErr.String())
	}
	pubHex, err := os.ReadFile(pubPath)
	if err != nil {
		t.Fatalf("reading pub key: %v", err)
	}

	appDir := filepath.Join(dir, "app")
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		t.Fatalf("mkdir app dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(appDir, "app.lua"), []byte("-- entrypoint\n"), 0o644); err != nil {
		t.Fatalf("writing app fixture: %v", err)
	}

	manifestPath := filepath.Join(dir, "manifest.json")
	doc := `{"fs":{"read":[],"write":[]},"env":[],"hosts":[]}`
	if err := os.WriteFile(manifestPath, []byte(doc), 0o644); err != nil {
		t.Fatalf("writing manifest fixture: %v", err)
	}

	var signOut, signErr bytes.Buffer
	code := Run([]string{
		"hull", "sign-platform",
		"-app", appDir,
		"-manifest", manifestPath,
		"-priv", privPath,
		"-platform-hash", strings.Repeat("a", 64),
		"-binary-hash", strings.Repeat("b", 64),
		"-trampoline-hash", strings.Repeat("c", 64),
	}, &signOut, &signErr)
	if code != 0 {
		t.Fatalf("sign-platform failed: %s", signErr.String())
	}
	if _, err := os.Stat(filepath.Join(appDir, bundle.SignatureFileName)); err != nil {
		t.Fatalf("expected signature file to be written: %v", err)
	}

	var verifyOut, verifyErr bytes.Buffer
	code = Run([]string{"hull", "verify", "-app", appDir, "-pub", string(pubHex)}, &verifyOut, &verifyErr)
	if code != 0 {
		t.Fatalf("verify failed: %s", verifyErr.String())
	}
}

func TestVerifyRejectsWrongPublicKey(t *testing.T) {
	dir := t.TempDir()

	var keygenOut, keygenErr bytes.Buffer
	privPath := filepath.Join(dir, "priv.hex")
	Run([]string{"hull", "keygen", "-priv", privPath, "-pub", filepath.Join(dir, "pub.hex")}, &keygenOut, &keygenErr)

	appDir := filepath.Join(dir, "app")
	os.MkdirAll(appDir, 0o755)
	os.WriteFile(filepath.Join(appDir, "app.lua"), []byte("-- entrypoint\n"), 0o644)

	manifestPath := filepath.Join(dir, "manifest.json")
	os.WriteFile(manifestPath, []byte(`{"fs":{"read":[],"write":[]},"env":[],"hosts":[]}`), 0o644)

	var signOut, signErr bytes.Buffer
	code := Run([]string{
		"hull", "sign-platform",
		"-app", appDir, "-manifest", manifestPath, "-priv", privPath,
		"-platform-hash", strings.Repeat("a", 64),
		"-binary-hash", strings.Repeat("b", 64),
		"-trampoline-hash", strings.Repeat("c", 64),
	}, &signOut, &signErr)
	if code != 0 {
		t.Fatalf("sign-platform failed: %s", signErr.String())
	}

	otherPub, err := generateUnrelatedKey()
	if err != nil {
		t.Fatalf("generating unrelated key: %v", err)
	}

	var verifyOut, verifyErr bytes.Buffer
	code = Run([]string{"hull", "verify", "-app", appDir, "-pub", otherPub}, &verifyOut, &verifyErr)
	if code == 0 {
		t.Fatal("expected verify to fail against a mismatched public key")
	}
}

func generateUnrelatedKey() (pubHex string, err error) {
	var stdout, stderr bytes.Buffer
	dir, err := os.MkdirTemp("", "hull-unrelated-key")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)
	pubPath := filepath.Join(dir, "pub.hex")
	if code := Run([]string{"hull", "keygen", "-pub", pubPath}, &stdout, &stderr); code != 0 {
		return "", fmt.Errorf("keygen exited %d: %s", code, stderr.String())
	}
	data, err := os.ReadFile(pubPath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
