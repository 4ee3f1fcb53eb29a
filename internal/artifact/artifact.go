// Package artifact renders per-component deployment files from a
// validated record. Rendering is pure: the same record always produces
// byte-identical output, and nothing is read from the environment.
// Secrets never appear in artifacts; values files carry the secret
// store reference and adapters overlay the real value at install time.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/catalystcommunity/lattice/internal/config"
)

// Error reports a failed render or write for one component.
type Error struct {
	Component string
	Reason    string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("artifact for %s: %s: %v", e.Component, e.Reason, e.Err)
	}
	return fmt.Sprintf("artifact for %s: %s", e.Component, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// filenames maps component identifiers to their artifact file names.
var filenames = map[string]string{
	config.ComponentOrchestrator:     "orc8r-values.yaml",
	config.ComponentAccessGateway:    "gateway.mconfig",
	config.ComponentFederatedGateway: "feg_gateway.mconfig",
	config.ComponentNMS:              "nms-values.yaml",
}

// Filename returns the artifact file name for a component.
func Filename(componentID string) (string, error) {
	name, ok := filenames[componentID]
	if !ok {
		return "", &Error{Component: componentID, Reason: "unknown component"}
	}
	return name, nil
}

// Render produces the artifact bytes for one component of the record.
func Render(rec *config.Record, componentID string) ([]byte, error) {
	switch componentID {
	case config.ComponentOrchestrator:
		if rec.Orchestrator == nil {
			return nil, &Error{Component: componentID, Reason: "component not configured"}
		}
		return renderOrchestratorValues(rec)
	case config.ComponentAccessGateway:
		if rec.AccessGateway == nil {
			return nil, &Error{Component: componentID, Reason: "component not configured"}
		}
		return renderGatewayMconfig(rec.AccessGateway)
	case config.ComponentFederatedGateway:
		if rec.FederatedGateway == nil {
			return nil, &Error{Component: componentID, Reason: "component not configured"}
		}
		return renderFederationMconfig(rec.FederatedGateway)
	case config.ComponentNMS:
		return renderNMSValues(rec)
	default:
		return nil, &Error{Component: componentID, Reason: "unknown component"}
	}
}

// Write renders the component artifact and writes it under
// dir/<componentID>/<filename>, atomically. It returns the final path.
func Write(rec *config.Record, componentID, dir string) (string, error) {
	data, err := Render(rec, componentID)
	if err != nil {
		return "", err
	}
	name, err := Filename(componentID)
	if err != nil {
		return "", err
	}

	componentDir := filepath.Join(dir, componentID)
	if err := os.MkdirAll(componentDir, 0755); err != nil {
		return "", &Error{Component: componentID, Reason: "failed to create artifact directory", Err: err}
	}

	path := filepath.Join(componentDir, name)
	if err := writeFileAtomic(path, data, 0644); err != nil {
		return "", &Error{Component: componentID, Reason: "failed to write artifact", Err: err}
	}
	return path, nil
}

// renderOrchestratorValues produces the orc8r chart values. The TLS
// entries are paths; the adapter substitutes file contents when it
// installs the chart. The database password stays a reference.
func renderOrchestratorValues(rec *config.Record) ([]byte, error) {
	o := rec.Orchestrator
	port, err := decimal(config.ComponentOrchestrator, "dbPort", o.DBPort)
	if err != nil {
		return nil, err
	}
	values := fmt.Sprintf(`global:
  domain: %s
postgresql:
  host: %s
  port: %d
  user: %s
  password: %s
  database: %s
tls:
  crtPath: %s
  keyPath: %s
`,
		quote(rec.Domain),
		quote(o.DBHost),
		port,
		quote(o.DBUser),
		quote(config.SecretRef(config.DBPasswordSecret)),
		quote(o.DBName),
		quote(o.TLSCertPath),
		quote(o.TLSKeyPath),
	)
	return []byte(values), nil
}

// renderNMSValues produces the nms chart values. The NMS serves the
// portal on the deployment domain at port 8080.
func renderNMSValues(rec *config.Record) ([]byte, error) {
	values := fmt.Sprintf(`global:
  domain: %s
nms:
  admin:
    email: %s
  host: %s
  port: 8080
`,
		quote(rec.Domain),
		quote(rec.AdminEmail),
		quote(rec.Domain),
	)
	return []byte(values), nil
}

// renderGatewayMconfig produces /etc/magma/gateway.mconfig for the
// access gateway.
func renderGatewayMconfig(a *config.AccessGatewayConfig) ([]byte, error) {
	tac, err := decimal(config.ComponentAccessGateway, "tac", a.TAC)
	if err != nil {
		return nil, err
	}
	s1apPort, err := decimal(config.ComponentAccessGateway, "s1apPort", a.S1APPort)
	if err != nil {
		return nil, err
	}

	mconfig := fmt.Sprintf(`---
magmad_config:
  checkin_interval: 60
  checkin_timeout: 30
  autoupgrade_enabled: false
  autoupgrade_poll_interval: 300
  package_version: "0.0.0-0"
  images: []
  tier: "default"
  feature_flags: {}
  dynamic_services: []

mconfig:
  mobility_config:
    ip_pool: "192.168.128.0/24"
    static_ip_enabled: false
    multi_apn_ip_alloc: false
    nat_enabled: true
    enable_static_ip_assignments: false

  mme_config:
    mcc: %s
    mnc: %s
    tac: %d
    mme_code: 1
    mme_gid: 1
    enable_dns_caching: false
    non_eps_service_control: 0
    csfb_mcc: %s
    csfb_mnc: %s
    lac: 1
    s1ap_ip: %s
    s1ap_port: %d

  spgw_config:
    enable_nat: true
    gtpu_endpoint: %s

  enodebd_config:
    earfcndl: 44490
    subframe_assignment: 2
    special_subframe_pattern: 7
    pci: 260
    plmn_ids:
      - mcc: %s
        mnc: %s
`,
		quote(a.MCC),
		quote(a.MNC),
		tac,
		quote(a.MCC),
		quote(a.MNC),
		quote(a.S1APIP),
		s1apPort,
		quote(a.IP),
		quote(a.MCC),
		quote(a.MNC),
	)
	return []byte(mconfig), nil
}

// renderFederationMconfig produces /etc/magma/feg_gateway.mconfig for
// the federated gateway.
func renderFederationMconfig(f *config.FederatedGatewayConfig) ([]byte, error) {
	port, err := decimal(config.ComponentFederatedGateway, "diameterPort", f.DiameterPort)
	if err != nil {
		return nil, err
	}

	mconfig := fmt.Sprintf(`---
magmad_config:
  checkin_interval: 60
  checkin_timeout: 30
  autoupgrade_enabled: false
  autoupgrade_poll_interval: 300
  package_version: "0.0.0-0"
  images: []
  tier: "default"
  feature_flags: {}
  dynamic_services: []

mconfig:
  federation_config:
    federation_id: %s
    served_network_ids: %s

  diameter_config:
    host: %s
    realm: %s
    port: %d

  health_config:
    health_service_enabled: true
    update_interval_secs: 10
    cloud_disable_period_secs: 10
    local_disable_period_secs: 1

  session_proxy_config:
    request_timeout: 30
    endpoint_timeout: 30
`,
		quote(f.FederationID),
		quoteList(f.ServedNetworks),
		quote(f.DiameterHost),
		quote(f.DiameterRealm),
		port,
	)
	return []byte(mconfig), nil
}

// quote renders a string as a double-quoted YAML scalar. Go quoting is
// JSON-compatible, which every YAML parser accepts, so arbitrary user
// input cannot break document structure.
func quote(s string) string {
	return strconv.Quote(s)
}

// quoteList renders a flow sequence of quoted strings.
func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = quote(item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// decimal parses a validated digit string into its canonical decimal
// form so values like "01" cannot be misread as octal.
func decimal(component, field, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &Error{Component: component, Reason: fmt.Sprintf("field %s is not numeric", field), Err: err}
	}
	return n, nil
}

// writeFileAtomic writes via a temp file and rename so a crashed run
// never leaves a half-written artifact behind.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
