package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/leafguard/backend/internal/domain"
)

// MockCacheRepository is a mock implementation of domain.CacheRepository
type MockCacheRepository struct {
	mu        sync.Mutex
	data      map[string]interface{}
	getError  error
	setError  error
	getCalled bool
	setCalled bool
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		data: make(map[string]interface{}),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalled = true
	if m.getError != nil {
		return nil, m.getError
	}
	if value, ok := m.data[key]; ok {
		return value, nil
	}
	return nil, domain.ErrCacheMiss
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalled = true
	if m.setError != nil {
		return m.setError
	}
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

// MockPlantIdentifier returns a canned identification and counts calls
type MockPlantIdentifier struct {
	result *domain.Identification
	err    error
	calls  int
	last   *domain.ImageUpload
}

func (m *MockPlantIdentifier) Identify(ctx context.Context, upload *domain.ImageUpload) (*domain.Identification, error) {
	m.calls++
	m.last = upload
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// MockDiseaseAnalyzer records requested names and returns details per name
type MockDiseaseAnalyzer struct {
	mu      sync.Mutex
	details map[string]domain.DiseaseDetails
	names   []string
}

func (m *MockDiseaseAnalyzer) GetDiseaseAnalysis(ctx context.Context, diseaseName string, confidence float64) domain.DiseaseDetails {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, diseaseName)
	if d, ok := m.details[diseaseName]; ok {
		return d
	}
	return StubAnalysis(diseaseName, confidence)
}
