package web

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/monthlify/internal/models"
	"github.com/desertthunder/monthlify/internal/services"
	"github.com/desertthunder/monthlify/internal/shared"
)

// EncodePreview packs a preview into the confirm form's hidden field.
func EncodePreview(src models.SourceIdentifier, partitions []models.PartitionPreview) (string, error) {
	data, err := json.Marshal(services.MaterializeRequest{Playlists: partitions, SourceIdentifier: src})
	if err != nil {
		return "", fmt.Errorf("failed to encode preview: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodePreview unpacks the confirm form's hidden field.
func DecodePreview(payload string) (models.SourceIdentifier, []models.PartitionPreview, error) {
	data, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return models.SourceIdentifier{}, nil, fmt.Errorf("%w: malformed preview payload", shared.ErrInvalidInput)
	}

	var req services.MaterializeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return models.SourceIdentifier{}, nil, fmt.Errorf("%w: malformed preview payload", shared.ErrInvalidInput)
	}
	if err := req.Validate(); err != nil {
		return models.SourceIdentifier{}, nil, err
	}
	return req.SourceIdentifier, req.Playlists, nil
}
