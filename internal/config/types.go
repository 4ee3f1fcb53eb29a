package config

import (
	"fmt"
	"strings"
)

// Defaults offered during interactive collection. They mirror the
// values a single-host evaluation deployment expects.
const (
	DefaultDomain       = "magma.local"
	DefaultNamespace    = "magma"
	DefaultStorageClass = "standard"
	DefaultDBHost       = "postgresql"
	DefaultDBPort       = "5432"
	DefaultDBUser       = "magma"
	DefaultDBName       = "magma"
	DefaultTLSCertPath  = "/opt/magma/certs/tls.crt"
	DefaultTLSKeyPath   = "/opt/magma/certs/tls.key"

	DefaultInterface = "eth0"
	DefaultMCC       = "001"
	DefaultMNC       = "01"
	DefaultTAC       = "1"
	DefaultS1APPort  = "36412"

	DefaultFederationID   = "fgw01"
	DefaultServedNetworks = "network1,network2"
	DefaultDiameterHost   = "fgw.magma.local"
	DefaultDiameterRealm  = "magma.local"
	DefaultDiameterPort   = "3868"
)

// Record is a validated deployment configuration. A Record is treated
// as immutable once built: narrowing the component selection goes
// through WithComponents, which returns a fresh validated copy.
type Record struct {
	// Domain is the base DNS domain for the deployment.
	Domain string
	// AdminEmail receives administrative notifications and seeds the
	// NMS admin account.
	AdminEmail string
	// ExternalIP is the address external clients use to reach the host.
	ExternalIP string
	// SelectedComponents holds canonical component identifiers in
	// canonical order.
	SelectedComponents []string

	// Per-component sections. A section is present exactly when its
	// component is selected.
	Orchestrator     *OrchestratorConfig
	AccessGateway    *AccessGatewayConfig
	FederatedGateway *FederatedGatewayConfig
}

// OrchestratorConfig holds settings for the orchestrator control plane
// and its PostgreSQL backing store.
type OrchestratorConfig struct {
	Namespace    string
	StorageClass string
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string
	TLSCertPath  string
	TLSKeyPath   string
}

// AccessGatewayConfig holds LTE access gateway settings.
type AccessGatewayConfig struct {
	Interface string
	IP        string
	MCC       string
	MNC       string
	TAC       string
	S1APIP    string
	S1APPort  string
}

// FederatedGatewayConfig holds federation gateway settings.
type FederatedGatewayConfig struct {
	FederationID   string
	ServedNetworks []string
	DiameterHost   string
	DiameterRealm  string
	DiameterPort   string
}

// HasComponent reports whether the given canonical component identifier
// is part of the selection.
func (r *Record) HasComponent(id string) bool {
	for _, c := range r.SelectedComponents {
		if c == id {
			return true
		}
	}
	return false
}

// Validate checks the whole record: global fields, selection rules,
// and every per-component section. The first problem found is returned
// as a *ValidationError.
func (r *Record) Validate() error {
	if err := ValidateDomain("domain", r.Domain); err != nil {
		return err
	}
	if err := ValidateEmail("adminEmail", r.AdminEmail); err != nil {
		return err
	}
	if err := ValidateIPv4("externalIP", r.ExternalIP); err != nil {
		return err
	}

	if len(r.SelectedComponents) == 0 {
		return &ValidationError{Field: "components", Reason: "at least one component must be selected"}
	}
	seen := make(map[string]bool)
	for _, id := range r.SelectedComponents {
		canonical, ok := CanonicalComponent(id)
		if !ok || canonical != id {
			return &ValidationError{Field: "components", Reason: fmt.Sprintf("unknown component %q", id)}
		}
		if seen[id] {
			return &ValidationError{Field: "components", Reason: fmt.Sprintf("component %q selected twice", id)}
		}
		seen[id] = true
	}
	if seen[ComponentNMS] && !seen[ComponentOrchestrator] {
		return &ValidationError{
			Field:  "components",
			Reason: "networkManagementSystem requires orchestrator in the same deployment",
		}
	}

	if err := r.validateSection(ComponentOrchestrator, r.Orchestrator != nil, seen); err != nil {
		return err
	}
	if err := r.validateSection(ComponentAccessGateway, r.AccessGateway != nil, seen); err != nil {
		return err
	}
	if err := r.validateSection(ComponentFederatedGateway, r.FederatedGateway != nil, seen); err != nil {
		return err
	}

	if r.Orchestrator != nil {
		if err := r.Orchestrator.Validate(); err != nil {
			return err
		}
	}
	if r.AccessGateway != nil {
		if err := r.AccessGateway.Validate(); err != nil {
			return err
		}
	}
	if r.FederatedGateway != nil {
		if err := r.FederatedGateway.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// validateSection enforces that a component section exists exactly when
// its component is selected. The NMS reuses the orchestrator section and
// global fields, so it has no section of its own.
func (r *Record) validateSection(id string, present bool, selected map[string]bool) error {
	if selected[id] && !present {
		return &ValidationError{Field: id, Reason: "component selected but not configured"}
	}
	if !selected[id] && present {
		return &ValidationError{Field: id, Reason: "component configured but not selected"}
	}
	return nil
}

// WithComponents returns a copy of the record narrowed to the given
// component identifiers (names or aliases). Sections for components
// that fall out of the selection are dropped so the copy validates.
func (r *Record) WithComponents(ids []string) (*Record, error) {
	set := make(map[string]bool)
	for _, raw := range ids {
		id, ok := CanonicalComponent(raw)
		if !ok {
			return nil, &ValidationError{Field: "components", Reason: fmt.Sprintf("unknown component %q", raw)}
		}
		if !r.HasComponent(id) {
			return nil, &ValidationError{
				Field:  "components",
				Reason: fmt.Sprintf("component %q is not configured in this deployment", id),
			}
		}
		set[id] = true
	}
	if len(set) == 0 {
		return nil, &ValidationError{Field: "components", Reason: "at least one component must be selected"}
	}

	out := *r
	out.SelectedComponents = canonicalSubset(set)
	if !set[ComponentOrchestrator] {
		out.Orchestrator = nil
	}
	if !set[ComponentAccessGateway] {
		out.AccessGateway = nil
	}
	if !set[ComponentFederatedGateway] {
		out.FederatedGateway = nil
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// Validate checks the orchestrator section.
func (o *OrchestratorConfig) Validate() error {
	if err := ValidateRequired("orchestrator.namespace", o.Namespace); err != nil {
		return err
	}
	if err := ValidateRequired("orchestrator.storageClass", o.StorageClass); err != nil {
		return err
	}
	if err := ValidateRequired("orchestrator.dbHost", o.DBHost); err != nil {
		return err
	}
	if err := ValidatePort("orchestrator.dbPort", o.DBPort); err != nil {
		return err
	}
	if err := ValidateRequired("orchestrator.dbUser", o.DBUser); err != nil {
		return err
	}
	if err := ValidateRequired("orchestrator.dbPassword", o.DBPassword); err != nil {
		return err
	}
	if err := ValidateRequired("orchestrator.dbName", o.DBName); err != nil {
		return err
	}
	if err := ValidateRequired("orchestrator.tlsCertPath", o.TLSCertPath); err != nil {
		return err
	}
	return ValidateRequired("orchestrator.tlsKeyPath", o.TLSKeyPath)
}

// Validate checks the access gateway section.
func (a *AccessGatewayConfig) Validate() error {
	if err := ValidateRequired("accessGateway.interface", a.Interface); err != nil {
		return err
	}
	if err := ValidateIPv4("accessGateway.ip", a.IP); err != nil {
		return err
	}
	if err := ValidateDigits("accessGateway.mcc", a.MCC, 3, 3); err != nil {
		return err
	}
	if err := ValidateDigits("accessGateway.mnc", a.MNC, 2, 3); err != nil {
		return err
	}
	if err := ValidateDigits("accessGateway.tac", a.TAC, 1, 5); err != nil {
		return err
	}
	if err := ValidateIPv4("accessGateway.s1apIP", a.S1APIP); err != nil {
		return err
	}
	return ValidatePort("accessGateway.s1apPort", a.S1APPort)
}

// Validate checks the federated gateway section.
func (f *FederatedGatewayConfig) Validate() error {
	if err := ValidateRequired("federatedGateway.federationID", f.FederationID); err != nil {
		return err
	}
	if len(f.ServedNetworks) == 0 {
		return &ValidationError{Field: "federatedGateway.servedNetworks", Reason: "at least one network is required"}
	}
	for _, n := range f.ServedNetworks {
		if strings.TrimSpace(n) == "" {
			return &ValidationError{Field: "federatedGateway.servedNetworks", Reason: "network names must not be empty"}
		}
	}
	if err := ValidateDomain("federatedGateway.diameterHost", f.DiameterHost); err != nil {
		return err
	}
	if err := ValidateDomain("federatedGateway.diameterRealm", f.DiameterRealm); err != nil {
		return err
	}
	return ValidatePort("federatedGateway.diameterPort", f.DiameterPort)
}
