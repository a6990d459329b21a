package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadflow/internal/apperr"
	"github.com/sells-group/leadflow/internal/model"
	"github.com/sells-group/leadflow/pkg/pdl"
)

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()
	r.Register(model.ConnectorLicensedProvider, "pdl", func(apiKey string) (pdl.Client, error) {
		return &mockClient{}, nil
	})

	factory, err := r.Resolve(&model.SourceConnector{
		Type:        model.ConnectorLicensedProvider,
		ProviderKey: "pdl",
	})
	require.NoError(t, err)
	assert.NotNil(t, factory)
}

func TestRegistry_Resolve_Unregistered(t *testing.T) {
	tests := []struct {
		name string
		conn model.SourceConnector
	}{
		{"unknown provider", model.SourceConnector{Type: model.ConnectorLicensedProvider, ProviderKey: "other"}},
		{"crm connector", model.SourceConnector{Type: model.ConnectorCRM, ProviderKey: "pdl"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DefaultRegistry().Resolve(&tt.conn)
			require.Error(t, err)
			assert.True(t, apperr.IsConfiguration(err))
			assert.Contains(t, err.Error(), "unsupported connector")
		})
	}
}

func TestDefaultRegistry_ResolvesPDL(t *testing.T) {
	factory, err := DefaultRegistry().Resolve(&model.SourceConnector{
		Type:        model.ConnectorLicensedProvider,
		ProviderKey: "pdl",
	})
	require.NoError(t, err)

	client, err := factory("test-key")
	require.NoError(t, err)
	assert.NotNil(t, client)
}
