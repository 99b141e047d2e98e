package llm_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/randalmurphal/graphchat/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) llm.InitOption {
	return llm.WithGetenv(func(k string) string { return vars[k] })
}

func TestParseModelSpec(t *testing.T) {
	tests := []struct {
		spec     string
		provider string
		model    string
	}{
		{"openai:gpt-4o-mini", "openai", "gpt-4o-mini"},
		{" OpenAI : gpt-4o ", "openai", "gpt-4o"},
		{"google_genai:gemini-2.0-flash", "google_genai", "gemini-2.0-flash"},
		{"claude-cli:sonnet", "claude-cli", "sonnet"},
		{"mock:Hello: world", "mock", "Hello: world"},
		{"gpt-4o-mini", "openai", "gpt-4o-mini"},
		{"o3-mini", "openai", "o3-mini"},
		{"gemini-2.5-pro", "google_genai", "gemini-2.5-pro"},
		{"claude-sonnet-4", "claude-cli", "claude-sonnet-4"},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			provider, model, err := llm.ParseModelSpec(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.provider, provider)
			assert.Equal(t, tt.model, model)
		})
	}
}

func TestParseModelSpec_Errors(t *testing.T) {
	_, _, err := llm.ParseModelSpec("   ")
	assert.ErrorIs(t, err, llm.ErrModelNotConfigured)

	for _, spec := range []string{"llama3", "openai:", ":gpt-4o"} {
		_, _, err := llm.ParseModelSpec(spec)
		assert.ErrorIs(t, err, llm.ErrUnknownProvider, spec)
	}
}

func TestInitChatModel_Empty(t *testing.T) {
	_, err := llm.InitChatModel("")
	assert.ErrorIs(t, err, llm.ErrModelNotConfigured)
}

func TestInitChatModel_UnknownProvider(t *testing.T) {
	_, err := llm.InitChatModel("nonesuch:model")
	assert.ErrorIs(t, err, llm.ErrUnknownProvider)
	assert.Contains(t, err.Error(), "openai")
}

func TestInitChatModel_MissingKeys(t *testing.T) {
	_, err := llm.InitChatModel("openai:gpt-4o-mini", env(nil))
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)

	_, err = llm.InitChatModel("gemini:gemini-2.0-flash", env(nil))
	assert.ErrorIs(t, err, llm.ErrMissingAPIKey)
}

func TestInitChatModel_Mock(t *testing.T) {
	model, err := llm.InitChatModel("mock:Hello from mock")
	require.NoError(t, err)
	assert.Equal(t, "mock:Hello from mock", model.Name())

	reply, err := model.Invoke(context.Background(), []llm.Message{llm.UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "Hello from mock", reply.Content)
}

func TestInitChatModel_OpenAIFromEnv(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-env", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"from env"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	model, err := llm.InitChatModel("gpt-4o-mini",
		env(map[string]string{"OPENAI_API_KEY": "sk-env", "OPENAI_BASE_URL": srv.URL}),
		llm.WithSystem("be helpful"),
	)
	require.NoError(t, err)
	assert.Equal(t, "openai:gpt-4o-mini", model.Name())

	reply, err := model.Invoke(context.Background(), []llm.Message{llm.UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "from env", reply.Content)
}

func TestInitChatModel_GeminiAlias(t *testing.T) {
	model, err := llm.InitChatModel("gemini:gemini-2.0-flash", env(map[string]string{"GEMINI_API_KEY": "k"}))
	require.NoError(t, err)
	assert.Equal(t, "gemini:gemini-2.0-flash", model.Name())
}

func TestRegisterProvider(t *testing.T) {
	llm.RegisterProvider("scripted", func(_ context.Context, cfg llm.ProviderConfig) (llm.Client, error) {
		return llm.NewMockClient("scripted " + cfg.Model), nil
	}, "script")

	assert.Contains(t, llm.Providers(), "scripted")
	assert.NotContains(t, llm.Providers(), "script")

	model, err := llm.InitChatModel("script:v1")
	require.NoError(t, err)

	reply, err := model.Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "scripted v1", reply.Content)
}
