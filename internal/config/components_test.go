package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalComponent(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{name: "canonical id", input: "orchestrator", want: ComponentOrchestrator, ok: true},
		{name: "alias orc8r", input: "orc8r", want: ComponentOrchestrator, ok: true},
		{name: "alias agw", input: "agw", want: ComponentAccessGateway, ok: true},
		{name: "alias fgw", input: "fgw", want: ComponentFederatedGateway, ok: true},
		{name: "alias nms", input: "nms", want: ComponentNMS, ok: true},
		{name: "case insensitive", input: "AccessGateway", want: ComponentAccessGateway, ok: true},
		{name: "whitespace trimmed", input: " nms ", want: ComponentNMS, ok: true},
		{name: "unknown", input: "database", ok: false},
		{name: "empty", input: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CanonicalComponent(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseComponents(t *testing.T) {
	t.Run("canonical order regardless of input order", func(t *testing.T) {
		ids, err := ParseComponents("nms,orchestrator")
		require.NoError(t, err)
		assert.Equal(t, []string{ComponentOrchestrator, ComponentNMS}, ids)
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		ids, err := ParseComponents("agw,accessGateway,agw")
		require.NoError(t, err)
		assert.Equal(t, []string{ComponentAccessGateway}, ids)
	})

	t.Run("full stack via aliases", func(t *testing.T) {
		ids, err := ParseComponents("fgw, nms, agw, orc8r")
		require.NoError(t, err)
		assert.Equal(t, Components(), ids)
	})

	t.Run("unknown component fails", func(t *testing.T) {
		_, err := ParseComponents("orchestrator,database")
		require.Error(t, err)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "components", verr.Field)
		assert.Contains(t, verr.Reason, "database")
	})

	t.Run("empty list fails", func(t *testing.T) {
		_, err := ParseComponents(" , ,")
		require.Error(t, err)
	})
}

func TestComponentsReturnsCopy(t *testing.T) {
	first := Components()
	first[0] = "mutated"
	assert.Equal(t, ComponentOrchestrator, Components()[0])
}
