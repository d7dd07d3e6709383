package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajujo/teaching-system/internal/store"
)

type recorder struct {
	reqs []store.LLMRequest
	err  error
}

func (r *recorder) AppendLLMRequest(_ context.Context, req store.LLMRequest) error {
	r.reqs = append(r.reqs, req)
	return r.err
}

func TestLoggingProvider_Journals(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: []byte(`{"understood":true,"feedback":"ok"}`), Usage: Usage{InputTokens: 12, OutputTokens: 4}},
		MockResponse{Err: &ErrRateLimit{Err: errors.New("429")}},
	)
	rec := &recorder{}
	p := WithLogging(mock, ProviderMock, rec, nil)

	ctx := WithSession(WithPurpose(context.Background(), PurposeCheck), "s1")
	req := Request{System: "Eres una tutora.", Messages: []Message{{Role: RoleUser, Content: "respuesta"}}, Schema: verdictSchema()}
	_, err := p.Generate(ctx, req)
	require.NoError(t, err)
	_, err = p.Generate(ctx, UserPrompt("", "otra", 10))
	require.Error(t, err)

	require.Len(t, rec.reqs, 2)
	ok := rec.reqs[0]
	assert.Equal(t, "s1", ok.SessionID)
	assert.Equal(t, PurposeCheck, ok.Purpose)
	assert.Equal(t, "mock", ok.Provider)
	assert.True(t, ok.Success)
	assert.Equal(t, 12, ok.InputTokens)
	assert.True(t, strings.Contains(ok.RequestBody, "[system]\nEres una tutora."))
	assert.True(t, strings.Contains(ok.RequestBody, "[schema: test-verdict]"))
	assert.JSONEq(t, `{"understood":true,"feedback":"ok"}`, ok.ResponseBody)

	failed := rec.reqs[1]
	assert.False(t, failed.Success)
	assert.Contains(t, failed.ErrorMessage, "rate limited")
}

func TestLoggingProvider_JournalFailureIgnored(t *testing.T) {
	p := WithLogging(NewMockProvider(Text("hola")), ProviderMock, &recorder{err: errors.New("disk full")}, nil)
	resp, err := p.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "hola", resp.Text())
}
