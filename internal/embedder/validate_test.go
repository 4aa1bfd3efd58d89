package embedder

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func Test_Validate_OllamaPassesSilently(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "ollama")
	t.Setenv("EMBEDDING_MODEL", "nomic-embed-text")

	log, buf := captureLogger()
	if err := Validate(log); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("unexpected log output: %s", buf.String())
	}
}

func Test_Validate_OpenAIRequiresKey(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "openai")
	t.Setenv("EMBEDDING_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	log, _ := captureLogger()
	if err := Validate(log); err == nil {
		t.Error("expected error for openai embedder without API key")
	}
}

func Test_Validate_AzureRequiresEndpoint(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "azure")
	t.Setenv("EMBEDDING_API_KEY", "test-key")
	t.Setenv("AZURE_OPENAI_API_KEY", "")
	t.Setenv("EMBEDDING_ENDPOINT", "")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "")

	log, _ := captureLogger()
	if err := Validate(log); err == nil {
		t.Error("expected error for azure embedder without endpoint")
	}
}

func Test_Validate_WarnsOnInheritedBackend(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "")
	t.Setenv("MODEL_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("EMBEDDING_MODEL", "")

	log, buf := captureLogger()
	if err := Validate(log); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !strings.Contains(buf.String(), "EMBEDDING_PROVIDER is not set") {
		t.Errorf("expected inherited-backend warning, got: %s", buf.String())
	}
}

func Test_Validate_WarnsOnChatModel(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "ollama")
	t.Setenv("EMBEDDING_MODEL", "llama3")

	log, buf := captureLogger()
	if err := Validate(log); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !strings.Contains(buf.String(), "looks like a chat model") {
		t.Errorf("expected chat-model warning, got: %s", buf.String())
	}
}
