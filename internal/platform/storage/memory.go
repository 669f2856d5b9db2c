package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// MemoryProvider keeps objects in process memory. It backs mock deployments
// and tests; it honors the same visibility split as the real backends.
type MemoryProvider struct {
	mu            sync.RWMutex
	private       map[string][]byte
	public        map[string][]byte
	contentTypes  map[string]string
	publicBaseURL string
}

func NewMemoryProvider(cfg Config) *MemoryProvider {
	base := strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if base == "" {
		base = "https://public.docstream.local"
	}
	return &MemoryProvider{
		private:       map[string][]byte{},
		public:        map[string][]byte{},
		contentTypes:  map[string]string{},
		publicBaseURL: base,
	}
}

func (p *MemoryProvider) EnsureBuckets(ctx context.Context) error { return nil }

func (p *MemoryProvider) PutPrivate(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", newError(OpWrite, key, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.private[key] = data
	p.contentTypes[key] = effectiveContentType(key, contentType)
	return "mem://private/" + key, nil
}

func (p *MemoryProvider) PutPublic(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", newError(OpWrite, key, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.public[key] = data
	p.contentTypes[key] = effectiveContentType(key, contentType)
	return fmt.Sprintf("%s/%s", p.publicBaseURL, encodeKeyPath(key)), nil
}

func (p *MemoryProvider) GetPrivate(ctx context.Context, key string) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	data, ok := p.private[key]
	if !ok {
		return nil, newError(OpRead, key, ErrObjectNotFound)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (p *MemoryProvider) DeletePrefix(ctx context.Context, prefix string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k := range p.private {
		if strings.HasPrefix(k, prefix) {
			delete(p.private, k)
			delete(p.contentTypes, k)
		}
	}
	return nil
}

// GetPublic exposes public objects for assertions; the real backends serve
// these over HTTP instead.
func (p *MemoryProvider) GetPublic(key string) ([]byte, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	data, ok := p.public[key]
	return data, ok
}

// PrivateKeys lists stored private keys, for cleanup assertions.
func (p *MemoryProvider) PrivateKeys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.private))
	for k := range p.private {
		keys = append(keys, k)
	}
	return keys
}
