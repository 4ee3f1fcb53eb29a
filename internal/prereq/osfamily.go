package prereq

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// OSFamily selects the package-manager strategy for installing tools.
type OSFamily string

const (
	// FamilyDebian covers apt-based distributions (Debian, Ubuntu).
	FamilyDebian OSFamily = "debian"
	// FamilyRHEL covers yum-based distributions (RHEL, CentOS, Fedora).
	FamilyRHEL OSFamily = "rhel"
)

// UnsupportedPlatformError is returned when the host distribution has
// no install strategy. Callers print manual install instructions.
type UnsupportedPlatformError struct {
	// ID is what /etc/os-release reported, empty when undetectable.
	ID string
}

func (e *UnsupportedPlatformError) Error() string {
	if e.ID == "" {
		return "could not detect the host distribution"
	}
	return fmt.Sprintf("unsupported distribution %q: automatic installation supports debian and rhel families only", e.ID)
}

const osReleasePath = "/etc/os-release"

// DetectOSFamily classifies the host via /etc/os-release.
func DetectOSFamily() (OSFamily, error) {
	file, err := os.Open(osReleasePath)
	if err != nil {
		return "", &UnsupportedPlatformError{}
	}
	defer file.Close()
	return detectOSFamilyFrom(file)
}

// detectOSFamilyFrom parses os-release content. The ID field decides;
// ID_LIKE breaks ties for derivatives (e.g. Linux Mint declares
// ID_LIKE="ubuntu debian").
func detectOSFamilyFrom(r io.Reader) (OSFamily, error) {
	var id string
	var idLike []string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		value = strings.Trim(value, `"'`)
		switch key {
		case "ID":
			id = strings.ToLower(value)
		case "ID_LIKE":
			idLike = strings.Fields(strings.ToLower(value))
		}
	}
	if err := scanner.Err(); err != nil {
		return "", &UnsupportedPlatformError{}
	}

	for _, candidate := range append([]string{id}, idLike...) {
		if family, ok := classify(candidate); ok {
			return family, nil
		}
	}
	return "", &UnsupportedPlatformError{ID: id}
}

func classify(id string) (OSFamily, bool) {
	switch id {
	case "debian", "ubuntu":
		return FamilyDebian, true
	case "rhel", "centos", "fedora", "rocky", "almalinux":
		return FamilyRHEL, true
	default:
		return "", false
	}
}
