package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/leofalp/polychat/providers/ai"
	"github.com/leofalp/polychat/providers/registry"
)

const testConfig = `
default_profile: main
profiles:
  main:
    provider: anthropic
    model: claude-test
    api_key: key
    temperature: 0.4
  offline:
    provider: local
    model: tiny
local:
  runner: runner-bin
  args: "--threads,2"
`

func createTestHome(t *testing.T, body string) string {
	t.Helper()
	home := filepath.Join(t.TempDir(), ".polychat")
	require.NoError(t, os.MkdirAll(home, 0o755))
	t.Setenv("POLYCHAT_HOME", home)
	if body != "" {
		require.NoError(t, os.WriteFile(filepath.Join(home, "config.yaml"), []byte(body), 0o644))
	}
	return home
}

type fakeService struct {
	mu       sync.Mutex
	requests []ai.ChatRequest
	chunks   []string
	err      error
	models   []ai.ModelID
}

func (f *fakeService) record(request ai.ChatRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, request)
}

func (f *fakeService) Requests() []ai.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ai.ChatRequest(nil), f.requests...)
}

func (f *fakeService) FetchModels(context.Context) ([]ai.ModelID, error) {
	return f.models, f.err
}

func (f *fakeService) SendMessage(_ context.Context, request ai.ChatRequest) (*ai.Reply, error) {
	f.record(request)
	if f.err != nil {
		return nil, f.err
	}
	return &ai.Reply{Text: strings.Join(f.chunks, ""), Role: ai.RoleAssistant}, nil
}

func (f *fakeService) SendMessageStream(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	f.record(request)
	if f.err != nil {
		return nil, f.err
	}
	chunks := f.chunks
	return ai.NewChatStream(ctx, func(_ context.Context, emit ai.Emit) {
		for _, chunk := range chunks {
			if !emit(ai.TextEvent(chunk)) {
				return
			}
		}
		emit(ai.FinishedEvent("stop"))
	}), nil
}

type factoryCall struct {
	kind    string
	config  ai.ProviderConfig
	options registry.Options
}

// useFakeService swaps the service factory for the duration of the test.
func useFakeService(t *testing.T, service *fakeService) *[]factoryCall {
	t.Helper()
	var calls []factoryCall
	original := serviceFactory
	serviceFactory = func(kind string, config ai.ProviderConfig, options registry.Options) (ai.Service, error) {
		calls = append(calls, factoryCall{kind: kind, config: config, options: options})
		return service, nil
	}
	t.Cleanup(func() { serviceFactory = original })
	return &calls
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}
