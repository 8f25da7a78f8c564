package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewEmbeddingError(cause)

	assert.Equal(t, ErrCodeEmbeddingFailed, err.Code)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrCodeExtractionFailed, CodeOf(NewExtractionError(nil)))
	assert.Equal(t, ErrCodeStoreFailed, CodeOf(fmt.Errorf("wrapped: %w", NewStoreError(nil))))
	assert.Equal(t, ErrCodeInternalServer, CodeOf(errors.New("plain")))
}

func TestHTTPCodeOf(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPCodeOf(NewExtractionError(nil)))
	assert.Equal(t, http.StatusBadGateway, HTTPCodeOf(NewSynthesisError(nil)))
	assert.Equal(t, http.StatusInternalServerError, HTTPCodeOf(errors.New("plain")))
}
