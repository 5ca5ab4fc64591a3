package seqerror_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/pg-sharding/seqmgr/pkg/models/seqerror"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	assert := assert.New(t)

	err := seqerror.Newf(seqerror.SEQ_NOT_FOUND, "sequence %q does not exist", "s1")
	assert.Equal(`SequenceNotFound: sequence "s1" does not exist`, err.Error())

	err = seqerror.New("XXXXX", "boom")
	assert.Equal("Unexpected error: boom", err.Error())
}

func TestCodeMatching(t *testing.T) {
	assert := assert.New(t)

	base := seqerror.New(seqerror.SEQ_EXHAUSTED, "sequence s reached maximum value 10")
	wrapped := fmt.Errorf("nextval: %w", base)

	assert.True(errors.Is(wrapped, seqerror.New(seqerror.SEQ_EXHAUSTED, "")))
	assert.False(errors.Is(wrapped, seqerror.New(seqerror.SEQ_NOT_FOUND, "")))
	assert.True(seqerror.HasCode(wrapped, seqerror.SEQ_EXHAUSTED))
	assert.Equal(seqerror.SEQ_EXHAUSTED, seqerror.Code(wrapped))

	assert.Equal("", seqerror.Code(nil))
	assert.Equal(seqerror.SEQ_UNEXPECTED, seqerror.Code(errors.New("plain")))
	assert.False(seqerror.HasCode(errors.New("plain"), seqerror.SEQ_EXHAUSTED))
}

func TestIsTransient(t *testing.T) {
	assert := assert.New(t)

	assert.True(seqerror.IsTransient(seqerror.New(seqerror.SEQ_CONTENTION, "too many retries")))
	assert.False(seqerror.IsTransient(seqerror.New(seqerror.SEQ_DUPLICATE_NAME, "dup")))
	assert.False(seqerror.IsTransient(nil))
}
