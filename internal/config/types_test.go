package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRecord returns a fully-populated valid record used across tests.
func testRecord() *Record {
	return &Record{
		Domain:             "test.local",
		AdminEmail:         "admin@test.local",
		ExternalIP:         "10.0.0.5",
		SelectedComponents: Components(),
		Orchestrator: &OrchestratorConfig{
			Namespace:    "magma",
			StorageClass: "standard",
			DBHost:       "postgresql",
			DBPort:       "5432",
			DBUser:       "magma",
			DBPassword:   "s3cret",
			DBName:       "magma",
			TLSCertPath:  "/opt/magma/certs/tls.crt",
			TLSKeyPath:   "/opt/magma/certs/tls.key",
		},
		AccessGateway: &AccessGatewayConfig{
			Interface: "eth0",
			IP:        "10.0.0.5",
			MCC:       "001",
			MNC:       "01",
			TAC:       "1",
			S1APIP:    "10.0.0.5",
			S1APPort:  "36412",
		},
		FederatedGateway: &FederatedGatewayConfig{
			FederationID:   "fgw01",
			ServedNetworks: []string{"network1", "network2"},
			DiameterHost:   "fgw.test.local",
			DiameterRealm:  "test.local",
			DiameterPort:   "3868",
		},
	}
}

func TestRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Record)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid full record",
			mutate:  func(r *Record) {},
			wantErr: false,
		},
		{
			name: "valid orchestrator only",
			mutate: func(r *Record) {
				r.SelectedComponents = []string{ComponentOrchestrator}
				r.AccessGateway = nil
				r.FederatedGateway = nil
			},
			wantErr: false,
		},
		{
			name:    "missing domain",
			mutate:  func(r *Record) { r.Domain = "" },
			wantErr: true,
			errMsg:  "invalid domain",
		},
		{
			name:    "bad admin email",
			mutate:  func(r *Record) { r.AdminEmail = "bad-email" },
			wantErr: true,
			errMsg:  "not a valid email",
		},
		{
			name:    "bad external ip",
			mutate:  func(r *Record) { r.ExternalIP = "999.1.1.1" },
			wantErr: true,
			errMsg:  "not a valid IPv4",
		},
		{
			name:    "no components selected",
			mutate:  func(r *Record) { r.SelectedComponents = nil },
			wantErr: true,
			errMsg:  "at least one component",
		},
		{
			name: "unknown component id",
			mutate: func(r *Record) {
				r.SelectedComponents = []string{"database"}
			},
			wantErr: true,
			errMsg:  "unknown component",
		},
		{
			name: "alias not accepted in record",
			mutate: func(r *Record) {
				r.SelectedComponents = []string{"orc8r"}
			},
			wantErr: true,
			errMsg:  "unknown component",
		},
		{
			name: "component selected twice",
			mutate: func(r *Record) {
				r.SelectedComponents = append(r.SelectedComponents, ComponentOrchestrator)
			},
			wantErr: true,
			errMsg:  "selected twice",
		},
		{
			name: "nms requires orchestrator",
			mutate: func(r *Record) {
				r.SelectedComponents = []string{ComponentNMS}
				r.Orchestrator = nil
				r.AccessGateway = nil
				r.FederatedGateway = nil
			},
			wantErr: true,
			errMsg:  "requires orchestrator",
		},
		{
			name: "selected component missing section",
			mutate: func(r *Record) {
				r.Orchestrator = nil
			},
			wantErr: true,
			errMsg:  "selected but not configured",
		},
		{
			name: "section present for unselected component",
			mutate: func(r *Record) {
				r.SelectedComponents = []string{ComponentOrchestrator, ComponentNMS}
				r.AccessGateway = nil
			},
			wantErr: true,
			errMsg:  "configured but not selected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testRecord()
			tt.mutate(rec)
			err := rec.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestOrchestratorConfig_Validate(t *testing.T) {
	cfg := testRecord().Orchestrator
	require.NoError(t, cfg.Validate())

	cfg.DBPort = "70000"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orchestrator.dbPort")

	cfg = testRecord().Orchestrator
	cfg.DBPassword = ""
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orchestrator.dbPassword")
}

func TestAccessGatewayConfig_Validate(t *testing.T) {
	cfg := testRecord().AccessGateway
	require.NoError(t, cfg.Validate())

	cfg.MCC = "12"
	require.Error(t, cfg.Validate())

	cfg = testRecord().AccessGateway
	cfg.S1APIP = "not-an-ip"
	require.Error(t, cfg.Validate())
}

func TestFederatedGatewayConfig_Validate(t *testing.T) {
	cfg := testRecord().FederatedGateway
	require.NoError(t, cfg.Validate())

	cfg.ServedNetworks = nil
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one network")

	cfg = testRecord().FederatedGateway
	cfg.DiameterPort = "diameter"
	require.Error(t, cfg.Validate())
}

func TestRecord_WithComponents(t *testing.T) {
	t.Run("narrow to orchestrator and nms", func(t *testing.T) {
		rec := testRecord()
		narrowed, err := rec.WithComponents([]string{"nms", "orc8r"})
		require.NoError(t, err)

		assert.Equal(t, []string{ComponentOrchestrator, ComponentNMS}, narrowed.SelectedComponents)
		assert.NotNil(t, narrowed.Orchestrator)
		assert.Nil(t, narrowed.AccessGateway)
		assert.Nil(t, narrowed.FederatedGateway)

		// The original record is untouched.
		assert.Equal(t, Components(), rec.SelectedComponents)
		assert.NotNil(t, rec.AccessGateway)
	})

	t.Run("nms alone is rejected", func(t *testing.T) {
		_, err := testRecord().WithComponents([]string{"nms"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requires orchestrator")
	})

	t.Run("component not in record is rejected", func(t *testing.T) {
		rec := testRecord()
		rec.SelectedComponents = []string{ComponentOrchestrator}
		rec.AccessGateway = nil
		rec.FederatedGateway = nil

		_, err := rec.WithComponents([]string{"agw"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not configured")
	})

	t.Run("unknown name is rejected", func(t *testing.T) {
		_, err := testRecord().WithComponents([]string{"database"})
		require.Error(t, err)
	})

	t.Run("empty selection is rejected", func(t *testing.T) {
		_, err := testRecord().WithComponents(nil)
		require.Error(t, err)
	})
}

func TestRecord_HasComponent(t *testing.T) {
	rec := testRecord()
	assert.True(t, rec.HasComponent(ComponentNMS))

	rec.SelectedComponents = []string{ComponentOrchestrator}
	assert.False(t, rec.HasComponent(ComponentNMS))
}
