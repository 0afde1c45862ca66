package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// PlantIdentifier submits an image to the plant identification provider
type PlantIdentifier interface {
	Identify(ctx context.Context, upload *ImageUpload) (*Identification, error)
}

// TextGenerator produces free text for a prompt from a generative model
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// DiseaseAnalyzer returns enrichment details for a disease name.
// Implementations never fail; degraded output is returned instead.
type DiseaseAnalyzer interface {
	GetDiseaseAnalysis(ctx context.Context, diseaseName string, confidence float64) DiseaseDetails
}

// RateLimitStore counts requests per key inside fixed windows.
// Increment returns the count after this request and the time left in the window.
type RateLimitStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// StoredObject describes a blob written to storage
type StoredObject struct {
	Key         string    `json:"fileKey"`
	Name        string    `json:"fileName"`
	URL         string    `json:"fileUrl"`
	ContentType string    `json:"fileType"`
	Size        int64     `json:"fileSize"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// BlobStore persists uploaded images outside the analysis critical path
type BlobStore interface {
	Put(ctx context.Context, name, contentType string, data []byte) (*StoredObject, error)
	URL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
