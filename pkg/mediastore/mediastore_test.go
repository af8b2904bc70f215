package mediastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-service/pkg/config"
)

func TestDisabledStoreFailsCleanly(t *testing.T) {
	store, err := New(context.Background(), &config.MediaConfig{})
	require.NoError(t, err)
	assert.False(t, store.Enabled())

	_, err = store.UploadBase64Image(context.Background(), "data:image/png;base64,aGVsbG8=", "patients/photos")
	assert.Error(t, err)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".jpg", extensionFor("image/jpeg"))
	assert.Equal(t, ".jpg", extensionFor("image/jpg"))
	assert.Equal(t, ".webp", extensionFor("image/webp"))
	assert.Equal(t, "", extensionFor("garbage"))
}
