package adapters

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoOpSTTReturnsEmptyText(t *testing.T) {
	stt := NewNoOpSTT()
	assert.Equal(t, NoneSTTKey, stt.Key())

	text, err := stt.Transcribe(context.Background(), "call-1", []byte("audio"), 16000, Options{})
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestNoOpLLMReturnsEmptyText(t *testing.T) {
	llm := NewNoOpLLM()
	assert.Equal(t, NoneLLMKey, llm.Key())

	text, err := llm.Generate(context.Background(), "call-1", "hello", NewConversation(""), Options{})
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestNoOpLifecycleIsInert(t *testing.T) {
	ctx := context.Background()
	for _, a := range []Adapter{NewNoOpSTT(), NewNoOpLLM()} {
		require.NoError(t, a.Start(ctx))
		require.NoError(t, a.OpenCall(ctx, "call-1", Options{}))
		require.NoError(t, a.CloseCall(ctx, "call-1"))
		require.NoError(t, a.Stop())

		status := a.ValidateConnectivity(ctx, Options{})
		assert.True(t, status.OK)
	}
}
