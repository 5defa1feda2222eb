package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetSessionID(ctx))
	assert.Empty(t, GetDocument(ctx))

	ctx = WithSessionID(ctx, "sess-1")
	ctx = WithDocument(ctx, "examples/fib.pyh")

	assert.Equal(t, "sess-1", GetSessionID(ctx))
	assert.Equal(t, "examples/fib.pyh", GetDocument(ctx))
}
