package objects

import (
	"errors"
	"net/http"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"

	"github.com/aanand-mishra/records-api/internal/storage"
)

func TestImageKey(t *testing.T) {
	assert.Equal(t, "registrations/42/image", ImageKey(42))
}

func TestTranslateNotFound(t *testing.T) {
	missing := minio.ErrorResponse{Code: "NoSuchKey", StatusCode: http.StatusNotFound, Message: "The specified key does not exist."}

	err := translate("registrations/1/image", missing)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = translate("registrations/1/image", errors.New("dial tcp: connection refused"))
	assert.NotErrorIs(t, err, storage.ErrNotFound)
	assert.Contains(t, err.Error(), "registrations/1/image")
}
