package catalog

import "context"

// MockClient serves products from a fixed map. Used for local development
// and service tests.
type MockClient struct {
	Products map[string]*Product
}

func NewMockClient(products map[string]*Product) *MockClient {
	if products == nil {
		products = map[string]*Product{}
	}
	return &MockClient{Products: products}
}

func (m *MockClient) GetProduct(_ context.Context, id string) (*Product, error) {
	p, ok := m.Products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return p, nil
}
