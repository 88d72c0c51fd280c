package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCropImageKindAndImageRequest(t *testing.T) {
	assert.True(t, CropImage.Valid())
	assert.Contains(t, Kinds, CropImage)

	v := DeviceVerdict{
		DeviceID:    "cam-1",
		LatestImage: &ImageRequest{ImageURL: "https://img/1.jpg", DeviceID: "cam-1"},
	}
	data, err := json.Marshal(v)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	img, ok := out["latest_image"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "https://img/1.jpg", img["image_url"])
}
