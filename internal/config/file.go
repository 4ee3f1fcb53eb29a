package config

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// The deployment record is stored as flat key="value" lines. Values are
// Go-quoted so arbitrary user input round-trips safely. Blank lines and
// lines starting with # are ignored.

const (
	// secretRefPrefix marks a value that lives in the secret store
	// instead of the record file.
	secretRefPrefix = "keyring:"

	// DBPasswordSecret is the secret store entry for the orchestrator
	// database password. The record file only ever carries a reference.
	DBPasswordSecret = "orchestrator.dbPassword"
)

// SecretResolver resolves secret references found in a record file.
type SecretResolver interface {
	Resolve(name string) (string, error)
}

// SecretRef formats a reference to a named secret store entry.
func SecretRef(name string) string {
	return secretRefPrefix + name
}

// recordKeys is the full set of recognized record file keys, in the
// order Encode writes them. Decode rejects anything outside this set.
var recordKeys = []string{
	"domain",
	"adminEmail",
	"externalIP",
	"components",
	"orchestrator.namespace",
	"orchestrator.storageClass",
	"orchestrator.dbHost",
	"orchestrator.dbPort",
	"orchestrator.dbUser",
	"orchestrator.dbPassword",
	"orchestrator.dbName",
	"orchestrator.tlsCertPath",
	"orchestrator.tlsKeyPath",
	"accessGateway.interface",
	"accessGateway.ip",
	"accessGateway.mcc",
	"accessGateway.mnc",
	"accessGateway.tac",
	"accessGateway.s1apIP",
	"accessGateway.s1apPort",
	"federatedGateway.federationID",
	"federatedGateway.servedNetworks",
	"federatedGateway.diameterHost",
	"federatedGateway.diameterRealm",
	"federatedGateway.diameterPort",
}

// Encode serializes a record to its file form. The orchestrator
// database password is always written as a secret reference, never as
// cleartext. Output is deterministic for a given record.
func Encode(rec *Record) []byte {
	values := map[string]string{
		"domain":     rec.Domain,
		"adminEmail": rec.AdminEmail,
		"externalIP": rec.ExternalIP,
		"components": strings.Join(rec.SelectedComponents, ","),
	}
	if o := rec.Orchestrator; o != nil {
		values["orchestrator.namespace"] = o.Namespace
		values["orchestrator.storageClass"] = o.StorageClass
		values["orchestrator.dbHost"] = o.DBHost
		values["orchestrator.dbPort"] = o.DBPort
		values["orchestrator.dbUser"] = o.DBUser
		values["orchestrator.dbPassword"] = SecretRef(DBPasswordSecret)
		values["orchestrator.dbName"] = o.DBName
		values["orchestrator.tlsCertPath"] = o.TLSCertPath
		values["orchestrator.tlsKeyPath"] = o.TLSKeyPath
	}
	if a := rec.AccessGateway; a != nil {
		values["accessGateway.interface"] = a.Interface
		values["accessGateway.ip"] = a.IP
		values["accessGateway.mcc"] = a.MCC
		values["accessGateway.mnc"] = a.MNC
		values["accessGateway.tac"] = a.TAC
		values["accessGateway.s1apIP"] = a.S1APIP
		values["accessGateway.s1apPort"] = a.S1APPort
	}
	if f := rec.FederatedGateway; f != nil {
		values["federatedGateway.federationID"] = f.FederationID
		values["federatedGateway.servedNetworks"] = strings.Join(f.ServedNetworks, ",")
		values["federatedGateway.diameterHost"] = f.DiameterHost
		values["federatedGateway.diameterRealm"] = f.DiameterRealm
		values["federatedGateway.diameterPort"] = f.DiameterPort
	}

	var buf bytes.Buffer
	buf.WriteString("# lattice deployment record\n")
	for _, key := range recordKeys {
		v, ok := values[key]
		if !ok {
			continue
		}
		fmt.Fprintf(&buf, "%s=%s\n", key, strconv.Quote(v))
	}
	return buf.Bytes()
}

// Decode parses record file content. Unknown keys, duplicate keys, and
// malformed lines are rejected.
func Decode(data []byte) (*Record, error) {
	known := make(map[string]bool, len(recordKeys))
	for _, k := range recordKeys {
		known[k] = true
	}

	values := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.Index(line, "=")
		if eq < 0 {
			return nil, &ValidationError{Field: "config", Reason: fmt.Sprintf("line %d: expected key=\"value\"", lineNo)}
		}
		key := strings.TrimSpace(line[:eq])
		if !known[key] {
			return nil, &ValidationError{Field: "config", Reason: fmt.Sprintf("line %d: unknown key %q", lineNo, key)}
		}
		if _, dup := values[key]; dup {
			return nil, &ValidationError{Field: "config", Reason: fmt.Sprintf("line %d: duplicate key %q", lineNo, key)}
		}
		value, err := strconv.Unquote(strings.TrimSpace(line[eq+1:]))
		if err != nil {
			return nil, &ValidationError{Field: key, Reason: fmt.Sprintf("line %d: value must be a quoted string", lineNo)}
		}
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	rec := &Record{
		Domain:     values["domain"],
		AdminEmail: values["adminEmail"],
		ExternalIP: values["externalIP"],
	}
	if raw := values["components"]; raw != "" {
		ids, err := ParseComponents(raw)
		if err != nil {
			return nil, err
		}
		rec.SelectedComponents = ids
	}
	if hasSection(values, "orchestrator.") {
		rec.Orchestrator = &OrchestratorConfig{
			Namespace:    values["orchestrator.namespace"],
			StorageClass: values["orchestrator.storageClass"],
			DBHost:       values["orchestrator.dbHost"],
			DBPort:       values["orchestrator.dbPort"],
			DBUser:       values["orchestrator.dbUser"],
			DBPassword:   values["orchestrator.dbPassword"],
			DBName:       values["orchestrator.dbName"],
			TLSCertPath:  values["orchestrator.tlsCertPath"],
			TLSKeyPath:   values["orchestrator.tlsKeyPath"],
		}
	}
	if hasSection(values, "accessGateway.") {
		rec.AccessGateway = &AccessGatewayConfig{
			Interface: values["accessGateway.interface"],
			IP:        values["accessGateway.ip"],
			MCC:       values["accessGateway.mcc"],
			MNC:       values["accessGateway.mnc"],
			TAC:       values["accessGateway.tac"],
			S1APIP:    values["accessGateway.s1apIP"],
			S1APPort:  values["accessGateway.s1apPort"],
		}
	}
	if hasSection(values, "federatedGateway.") {
		fgw := &FederatedGatewayConfig{
			FederationID:  values["federatedGateway.federationID"],
			DiameterHost:  values["federatedGateway.diameterHost"],
			DiameterRealm: values["federatedGateway.diameterRealm"],
			DiameterPort:  values["federatedGateway.diameterPort"],
		}
		for _, n := range strings.Split(values["federatedGateway.servedNetworks"], ",") {
			if n = strings.TrimSpace(n); n != "" {
				fgw.ServedNetworks = append(fgw.ServedNetworks, n)
			}
		}
		rec.FederatedGateway = fgw
	}
	return rec, nil
}

func hasSection(values map[string]string, prefix string) bool {
	for k := range values {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

// Save validates the record and writes it atomically with 0600
// permissions. Persisting an invalid record is never allowed.
func Save(rec *Record, path string) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := writeFileAtomic(path, Encode(rec), 0600); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// Load reads and validates a record file. Secret references are
// resolved through the given resolver; a missing secret fails the load.
// Literal values are accepted in place of references so a hand-edited
// file still works.
func Load(path string, resolver SecretResolver) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	rec, err := Decode(data)
	if err != nil {
		return nil, err
	}

	if o := rec.Orchestrator; o != nil && strings.HasPrefix(o.DBPassword, secretRefPrefix) {
		name := strings.TrimPrefix(o.DBPassword, secretRefPrefix)
		if resolver == nil {
			return nil, fmt.Errorf("config references secret %q but no secret store is available", name)
		}
		value, err := resolver.Resolve(name)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve secret %q: %w", name, err)
		}
		o.DBPassword = value
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// writeFileAtomic writes data to a temp file in the target directory
// and renames it into place, so readers never observe partial content.
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
