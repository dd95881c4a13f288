package api

import (
	"testing"

	"github.com/stretchr/testify/assert"

	curatorerrors "github.com/nodecurio/curator/internal/errors"
)

func TestValidateBody_RequiredFieldMissing(t *testing.T) {
	err := validateBody(importRequest{})
	assert.Error(t, err)
	assert.Equal(t, curatorerrors.KindInvalidInput, curatorerrors.KindOf(err))
}

func TestValidateBody_ValidPasses(t *testing.T) {
	err := validateBody(importRequest{URL: "https://example.com"})
	assert.NoError(t, err)
}

func TestValidateBody_BatchOverMaxRejected(t *testing.T) {
	urls := make([]string, maxBatchSize+1)
	for i := range urls {
		urls[i] = "https://example.com"
	}
	err := validateBody(batchImportRequest{URLs: urls})
	assert.Error(t, err)
}
