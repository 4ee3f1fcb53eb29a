package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/catalystcommunity/lattice/internal/network"
)

// Prompter gathers interactive input. The deploy command uses
// StdPrompter; tests substitute a scripted implementation.
type Prompter interface {
	// Input prompts for a value, offering a default when non-empty.
	Input(label, defaultValue string) (string, error)
	// Password prompts for a value without echoing it.
	Password(label string) (string, error)
	// Confirm asks a yes/no question that defaults to no.
	Confirm(question string) (bool, error)
}

// StdPrompter reads from stdin and writes prompts to stdout.
type StdPrompter struct {
	reader *bufio.Reader
	out    io.Writer
	stdin  *os.File
}

// NewStdPrompter returns a prompter bound to the process stdin/stdout.
func NewStdPrompter() *StdPrompter {
	return &StdPrompter{
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		stdin:  os.Stdin,
	}
}

// Input prompts for a value. An empty answer takes the default.
func (p *StdPrompter) Input(label, defaultValue string) (string, error) {
	if defaultValue != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, defaultValue)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	line, err := p.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return defaultValue, nil
	}
	return line, nil
}

// Password prompts without echo when stdin is a terminal. When input is
// piped (tests, automation) it falls back to a plain line read.
func (p *StdPrompter) Password(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	if term.IsTerminal(int(p.stdin.Fd())) {
		secret, err := term.ReadPassword(int(p.stdin.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", err
		}
		return string(secret), nil
	}
	line, err := p.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks a yes/no question. Anything other than y/yes (any case)
// counts as no.
func (p *StdPrompter) Confirm(question string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N]: ", question)
	line, err := p.reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Collect walks the operator through a full deployment configuration:
// component selection, global settings, then one section per selected
// component. Invalid answers re-prompt until a valid value is given.
func Collect(p Prompter) (*Record, error) {
	selected, err := collectSelection(p)
	if err != nil {
		return nil, err
	}
	return collectWith(p, selected)
}

// CollectWithSelection collects a configuration for a fixed component
// selection, skipping the menu. Used when the selection comes from the
// --components flag; an invalid selection fails instead of re-prompting.
func CollectWithSelection(p Prompter, selected []string) (*Record, error) {
	if len(selected) == 0 {
		return nil, &ValidationError{Field: "components", Reason: "at least one component must be selected"}
	}
	if containsComponent(selected, ComponentNMS) && !containsComponent(selected, ComponentOrchestrator) {
		return nil, &ValidationError{
			Field:  "components",
			Reason: "networkManagementSystem requires orchestrator in the same deployment",
		}
	}
	return collectWith(p, selected)
}

// detectPrimary probes the host for prompt defaults; tests pin it.
var detectPrimary = network.DetectPrimary

func collectWith(p Prompter, selected []string) (*Record, error) {
	externalDefault := ""
	ifaceDefault := DefaultInterface
	if info, err := detectPrimary(); err == nil {
		externalDefault = info.IP
		ifaceDefault = info.Name
	}

	fmt.Println("\nGlobal settings")
	domain, err := promptValidated(p, "Domain name", DefaultDomain, "domain", ValidateDomain)
	if err != nil {
		return nil, err
	}
	adminEmail, err := promptValidated(p, "Admin email address", "admin@"+domain, "adminEmail", ValidateEmail)
	if err != nil {
		return nil, err
	}
	externalIP, err := promptValidated(p, "External IP address", externalDefault, "externalIP", ValidateIPv4)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		Domain:             domain,
		AdminEmail:         adminEmail,
		ExternalIP:         externalIP,
		SelectedComponents: selected,
	}

	for _, id := range selected {
		switch id {
		case ComponentOrchestrator:
			fmt.Println("\nOrchestrator settings")
			rec.Orchestrator, err = collectOrchestrator(p)
		case ComponentAccessGateway:
			fmt.Println("\nAccess gateway settings")
			rec.AccessGateway, err = collectAccessGateway(p, externalIP, ifaceDefault)
		case ComponentFederatedGateway:
			fmt.Println("\nFederated gateway settings")
			rec.FederatedGateway, err = collectFederatedGateway(p, domain)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// collectSelection shows the component menu and returns canonical
// identifiers. Selections that violate dependency rules re-prompt.
func collectSelection(p Prompter) ([]string, error) {
	for {
		fmt.Println("\nWhich components would you like to deploy?")
		fmt.Println("  1. Full stack (Orchestrator + AGW + FGW + NMS)")
		fmt.Println("  2. Orchestrator only")
		fmt.Println("  3. Access Gateway (AGW) only")
		fmt.Println("  4. Federated Gateway (FGW) only")
		fmt.Println("  5. Custom selection")

		choice, err := p.Input("Select an option", "1")
		if err != nil {
			return nil, err
		}

		var selected []string
		switch strings.TrimSpace(choice) {
		case "1":
			selected = Components()
		case "2":
			selected = []string{ComponentOrchestrator}
		case "3":
			selected = []string{ComponentAccessGateway}
		case "4":
			selected = []string{ComponentFederatedGateway}
		case "5":
			selected, err = collectCustomSelection(p)
			if err != nil {
				return nil, err
			}
		default:
			fmt.Println("Please select an option between 1 and 5.")
			continue
		}

		if len(selected) == 0 {
			fmt.Println("At least one component must be selected.")
			continue
		}
		if containsComponent(selected, ComponentNMS) && !containsComponent(selected, ComponentOrchestrator) {
			fmt.Println("The NMS requires the orchestrator; select both or neither.")
			continue
		}
		return selected, nil
	}
}

func collectCustomSelection(p Prompter) ([]string, error) {
	var selected []string
	for _, id := range Components() {
		yes, err := p.Confirm(fmt.Sprintf("Deploy %s?", ComponentDisplayName(id)))
		if err != nil {
			return nil, err
		}
		if yes {
			selected = append(selected, id)
		}
	}
	return selected, nil
}

func containsComponent(ids []string, id string) bool {
	for _, c := range ids {
		if c == id {
			return true
		}
	}
	return false
}

func collectOrchestrator(p Prompter) (*OrchestratorConfig, error) {
	cfg := &OrchestratorConfig{}
	var err error
	if cfg.Namespace, err = promptValidated(p, "Kubernetes namespace", DefaultNamespace, "orchestrator.namespace", ValidateRequired); err != nil {
		return nil, err
	}
	if cfg.StorageClass, err = promptValidated(p, "Storage class", DefaultStorageClass, "orchestrator.storageClass", ValidateRequired); err != nil {
		return nil, err
	}
	if cfg.DBHost, err = promptValidated(p, "Database host", DefaultDBHost, "orchestrator.dbHost", ValidateRequired); err != nil {
		return nil, err
	}
	if cfg.DBPort, err = promptValidated(p, "Database port", DefaultDBPort, "orchestrator.dbPort", ValidatePort); err != nil {
		return nil, err
	}
	if cfg.DBUser, err = promptValidated(p, "Database user", DefaultDBUser, "orchestrator.dbUser", ValidateRequired); err != nil {
		return nil, err
	}
	for {
		cfg.DBPassword, err = p.Password("Database password")
		if err != nil {
			return nil, err
		}
		if verr := ValidateRequired("orchestrator.dbPassword", cfg.DBPassword); verr != nil {
			fmt.Println(verr)
			continue
		}
		break
	}
	if cfg.DBName, err = promptValidated(p, "Database name", DefaultDBName, "orchestrator.dbName", ValidateRequired); err != nil {
		return nil, err
	}
	if cfg.TLSCertPath, err = promptValidated(p, "TLS certificate path", DefaultTLSCertPath, "orchestrator.tlsCertPath", ValidateRequired); err != nil {
		return nil, err
	}
	if cfg.TLSKeyPath, err = promptValidated(p, "TLS key path", DefaultTLSKeyPath, "orchestrator.tlsKeyPath", ValidateRequired); err != nil {
		return nil, err
	}
	return cfg, nil
}

func collectAccessGateway(p Prompter, externalIP, ifaceDefault string) (*AccessGatewayConfig, error) {
	cfg := &AccessGatewayConfig{}
	var err error
	if cfg.Interface, err = promptValidated(p, "Network interface", ifaceDefault, "accessGateway.interface", ValidateRequired); err != nil {
		return nil, err
	}
	if cfg.IP, err = promptValidated(p, "Gateway IP address", externalIP, "accessGateway.ip", ValidateIPv4); err != nil {
		return nil, err
	}
	if cfg.MCC, err = promptValidated(p, "Mobile country code (MCC)", DefaultMCC, "accessGateway.mcc", func(f, v string) error {
		return ValidateDigits(f, v, 3, 3)
	}); err != nil {
		return nil, err
	}
	if cfg.MNC, err = promptValidated(p, "Mobile network code (MNC)", DefaultMNC, "accessGateway.mnc", func(f, v string) error {
		return ValidateDigits(f, v, 2, 3)
	}); err != nil {
		return nil, err
	}
	if cfg.TAC, err = promptValidated(p, "Tracking area code (TAC)", DefaultTAC, "accessGateway.tac", func(f, v string) error {
		return ValidateDigits(f, v, 1, 5)
	}); err != nil {
		return nil, err
	}
	if cfg.S1APIP, err = promptValidated(p, "S1AP IP address", cfg.IP, "accessGateway.s1apIP", ValidateIPv4); err != nil {
		return nil, err
	}
	if cfg.S1APPort, err = promptValidated(p, "S1AP port", DefaultS1APPort, "accessGateway.s1apPort", ValidatePort); err != nil {
		return nil, err
	}
	return cfg, nil
}

func collectFederatedGateway(p Prompter, domain string) (*FederatedGatewayConfig, error) {
	cfg := &FederatedGatewayConfig{}
	var err error
	if cfg.FederationID, err = promptValidated(p, "Federation ID", DefaultFederationID, "federatedGateway.federationID", ValidateRequired); err != nil {
		return nil, err
	}
	for {
		raw, err := p.Input("Served networks (comma-separated)", DefaultServedNetworks)
		if err != nil {
			return nil, err
		}
		var networks []string
		for _, n := range strings.Split(raw, ",") {
			if n = strings.TrimSpace(n); n != "" {
				networks = append(networks, n)
			}
		}
		if len(networks) == 0 {
			fmt.Println("At least one network is required.")
			continue
		}
		cfg.ServedNetworks = networks
		break
	}
	if cfg.DiameterHost, err = promptValidated(p, "Diameter host", "fgw."+domain, "federatedGateway.diameterHost", ValidateDomain); err != nil {
		return nil, err
	}
	if cfg.DiameterRealm, err = promptValidated(p, "Diameter realm", domain, "federatedGateway.diameterRealm", ValidateDomain); err != nil {
		return nil, err
	}
	if cfg.DiameterPort, err = promptValidated(p, "Diameter port", DefaultDiameterPort, "federatedGateway.diameterPort", ValidatePort); err != nil {
		return nil, err
	}
	return cfg, nil
}

// promptValidated re-prompts until the validator accepts the answer.
func promptValidated(p Prompter, label, defaultValue, field string, validate func(field, value string) error) (string, error) {
	for {
		value, err := p.Input(label, defaultValue)
		if err != nil {
			return "", err
		}
		if verr := validate(field, value); verr != nil {
			fmt.Println(verr)
			continue
		}
		return value, nil
	}
}
