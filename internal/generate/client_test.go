package generate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDoer struct {
	resp    *http.Response
	err     error
	lastReq *http.Request
	body    []byte
}

func (d *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	d.lastReq = req
	if req.Body != nil {
		d.body, _ = io.ReadAll(req.Body)
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.resp, nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func completionBody(content string) string {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func TestGenerateSuccess(t *testing.T) {
	doer := &fakeDoer{resp: jsonResponse(http.StatusOK, completionBody("\nresult := data.to_upper()\n"))}
	client := NewClient(ClientConfig{
		BaseURL:    "https://api.example.com/",
		APIKey:     "sk-test",
		Model:      "gpt-4o-mini",
		HTTPClient: doer,
	})

	candidate, err := client.Generate(context.Background(), Request{
		Prompt:      "# uppercase:",
		Temperature: 0.25,
		MaxTokens:   512,
	})
	require.NoError(t, err)

	assert.Equal(t, "result := data.to_upper()", candidate.Script, "surrounding whitespace trimmed, nothing else")
	assert.Equal(t, 0.25, candidate.Temperature)
	assert.Equal(t, 512, candidate.MaxTokens)

	require.NotNil(t, doer.lastReq)
	assert.Equal(t, http.MethodPost, doer.lastReq.Method)
	assert.Equal(t, "https://api.example.com/v1/chat/completions", doer.lastReq.URL.String())
	assert.Equal(t, "Bearer sk-test", doer.lastReq.Header.Get("Authorization"))
	assert.Equal(t, "application/json", doer.lastReq.Header.Get("Content-Type"))

	var sent map[string]any
	require.NoError(t, json.Unmarshal(doer.body, &sent))
	assert.Equal(t, "gpt-4o-mini", sent["model"])
	assert.Equal(t, 0.25, sent["temperature"])
	assert.Equal(t, float64(512), sent["max_tokens"])
}

func TestGenerateNoAuthHeaderWithoutKey(t *testing.T) {
	doer := &fakeDoer{resp: jsonResponse(http.StatusOK, completionBody("result := 1"))}
	client := NewClient(ClientConfig{BaseURL: "http://localhost:8080", HTTPClient: doer})

	_, err := client.Generate(context.Background(), Request{Prompt: "p", Temperature: 0.25, MaxTokens: 16})
	require.NoError(t, err)
	assert.Empty(t, doer.lastReq.Header.Get("Authorization"))
}

func TestGenerateErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		doer     *fakeDoer
		wantKind ErrorKind
	}{
		{
			name:     "transport failure",
			doer:     &fakeDoer{err: errors.New("dial tcp: connection refused")},
			wantKind: KindTransport,
		},
		{
			name:     "unauthorized",
			doer:     &fakeDoer{resp: jsonResponse(http.StatusUnauthorized, `{"error": "invalid key"}`)},
			wantKind: KindAuth,
		},
		{
			name:     "forbidden",
			doer:     &fakeDoer{resp: jsonResponse(http.StatusForbidden, "")},
			wantKind: KindAuth,
		},
		{
			name:     "server error",
			doer:     &fakeDoer{resp: jsonResponse(http.StatusInternalServerError, "overloaded")},
			wantKind: KindBackend,
		},
		{
			name:     "malformed body",
			doer:     &fakeDoer{resp: jsonResponse(http.StatusOK, "not json")},
			wantKind: KindMalformed,
		},
		{
			name:     "no choices",
			doer:     &fakeDoer{resp: jsonResponse(http.StatusOK, `{"choices": []}`)},
			wantKind: KindEmpty,
		},
		{
			name:     "blank completion",
			doer:     &fakeDoer{resp: jsonResponse(http.StatusOK, completionBody("   \n"))},
			wantKind: KindEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(ClientConfig{BaseURL: "http://localhost", HTTPClient: tt.doer})
			_, err := client.Generate(context.Background(), Request{Prompt: "p", Temperature: 0.25, MaxTokens: 16})
			require.Error(t, err)

			var genErr *Error
			require.ErrorAs(t, err, &genErr)
			assert.Equal(t, tt.wantKind, genErr.Kind)
		})
	}
}

func TestGenerateBackendErrorCarriesBodySnippet(t *testing.T) {
	doer := &fakeDoer{resp: jsonResponse(http.StatusServiceUnavailable, "model is warming up")}
	client := NewClient(ClientConfig{BaseURL: "http://localhost", HTTPClient: doer})

	_, err := client.Generate(context.Background(), Request{Prompt: "p", Temperature: 0.25, MaxTokens: 16})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model is warming up")
}

func TestGenerateEmptyPromptRejected(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "http://localhost", HTTPClient: &fakeDoer{}})
	_, err := client.Generate(context.Background(), Request{Prompt: "  \n", Temperature: 0.25, MaxTokens: 16})
	assert.Error(t, err)
}

func TestErrorIsMatchesAnyClientError(t *testing.T) {
	err := newError(KindAuth, "backend returned 401", nil)
	assert.ErrorIs(t, err, &Error{})
}

func TestValidateTemperature(t *testing.T) {
	tests := []struct {
		name        string
		temperature float64
		wantErr     bool
	}{
		{name: "lower bound", temperature: MinTemperature},
		{name: "upper bound", temperature: MaxTemperature},
		{name: "default", temperature: 0.25},
		{name: "below range", temperature: 0.01, wantErr: true},
		{name: "above range", temperature: 1.5, wantErr: true},
		{name: "zero", temperature: 0, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTemperature(tt.temperature)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateMaxTokens(t *testing.T) {
	assert.NoError(t, ValidateMaxTokens(1))
	assert.NoError(t, ValidateMaxTokens(512))
	assert.Error(t, ValidateMaxTokens(0))
	assert.Error(t, ValidateMaxTokens(-5))
}
