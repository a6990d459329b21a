package discovery

import (
	"fmt"

	"github.com/sells-group/leadflow/internal/apperr"
	"github.com/sells-group/leadflow/internal/model"
	"github.com/sells-group/leadflow/pkg/pdl"
)

// ClientFactory builds a discovery client from a decrypted API key.
type ClientFactory func(apiKey string) (pdl.Client, error)

// Registry resolves a discovery client implementation from a connector's
// type and provider key.
type Registry struct {
	factories map[string]ClientFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]ClientFactory{}}
}

// Register installs a factory for a (type, providerKey) pair.
func (r *Registry) Register(connType model.ConnectorType, providerKey string, factory ClientFactory) {
	r.factories[registryKey(connType, providerKey)] = factory
}

// Resolve returns the factory for a connector. An unregistered combination
// is a fatal configuration error for the run.
func (r *Registry) Resolve(conn *model.SourceConnector) (ClientFactory, error) {
	factory, ok := r.factories[registryKey(conn.Type, conn.ProviderKey)]
	if !ok {
		return nil, apperr.Configuration("unsupported connector: type=%s provider=%s", conn.Type, conn.ProviderKey)
	}
	return factory, nil
}

func registryKey(connType model.ConnectorType, providerKey string) string {
	return fmt.Sprintf("%s/%s", connType, providerKey)
}

// DefaultRegistry returns the registry with the supported providers. Only
// the licensed PDL provider is wired today.
func DefaultRegistry(opts ...pdl.Option) *Registry {
	r := NewRegistry()
	r.Register(model.ConnectorLicensedProvider, "pdl", func(apiKey string) (pdl.Client, error) {
		return pdl.NewClient(apiKey, opts...)
	})
	return r
}
