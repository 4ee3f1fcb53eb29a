package prereq

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/catalystcommunity/lattice/internal/localexec"
)

// InstallError reports a failed installation step.
type InstallError struct {
	Tool    string
	Command string
	Output  string
	Err     error
}

func (e *InstallError) Error() string {
	msg := fmt.Sprintf("failed to install %s", e.Tool)
	if e.Command != "" {
		msg += fmt.Sprintf(" (command %q)", e.Command)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Output != "" {
		return fmt.Sprintf("%s: %s", msg, strings.TrimSpace(e.Output))
	}
	return msg
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

// Step is the command sequence that installs one tool.
type Step struct {
	Tool     string
	Commands []string
}

// InstallPlan builds the install steps for the missing tools on the
// given OS family. Tools install in the order given so docker is in
// place before anything that depends on it.
func InstallPlan(family OSFamily, missing []Tool) ([]Step, error) {
	if family != FamilyDebian && family != FamilyRHEL {
		return nil, &UnsupportedPlatformError{ID: string(family)}
	}

	var steps []Step
	for _, tool := range missing {
		var commands []string
		switch tool.Name {
		case "docker":
			commands = dockerCommands(family)
		case "docker-compose":
			commands = []string{
				`sudo curl -L "https://github.com/docker/compose/releases/download/1.29.2/docker-compose-$(uname -s)-$(uname -m)" -o /usr/local/bin/docker-compose`,
				"sudo chmod +x /usr/local/bin/docker-compose",
			}
		case "kubectl":
			commands = []string{
				`curl -LO "https://dl.k8s.io/release/$(curl -L -s https://dl.k8s.io/release/stable.txt)/bin/linux/amd64/kubectl"`,
				"sudo install -o root -g root -m 0755 kubectl /usr/local/bin/kubectl",
				"rm -f kubectl",
			}
		case "helm":
			commands = []string{
				"curl https://raw.githubusercontent.com/helm/helm/main/scripts/get-helm-3 | bash",
			}
		case "git":
			if family == FamilyDebian {
				commands = []string{"sudo apt-get update && sudo apt-get install -y git"}
			} else {
				commands = []string{"sudo yum install -y git"}
			}
		default:
			return nil, fmt.Errorf("no install strategy for tool %q", tool.Name)
		}
		steps = append(steps, Step{Tool: tool.Name, Commands: commands})
	}
	return steps, nil
}

func dockerCommands(family OSFamily) []string {
	var commands []string
	if family == FamilyDebian {
		commands = []string{
			"sudo apt-get update",
			"sudo apt-get install -y apt-transport-https ca-certificates curl gnupg lsb-release",
			"curl -fsSL https://download.docker.com/linux/ubuntu/gpg | sudo gpg --dearmor -o /usr/share/keyrings/docker-archive-keyring.gpg",
			`echo "deb [arch=amd64 signed-by=/usr/share/keyrings/docker-archive-keyring.gpg] https://download.docker.com/linux/ubuntu $(lsb_release -cs) stable" | sudo tee /etc/apt/sources.list.d/docker.list > /dev/null`,
			"sudo apt-get update",
			"sudo apt-get install -y docker-ce docker-ce-cli containerd.io",
		}
	} else {
		commands = []string{
			"sudo yum install -y yum-utils",
			"sudo yum-config-manager --add-repo https://download.docker.com/linux/centos/docker-ce.repo",
			"sudo yum install -y docker-ce docker-ce-cli containerd.io",
		}
	}
	return append(commands,
		"sudo systemctl start docker",
		"sudo systemctl enable docker",
		`sudo usermod -aG docker "$(whoami)"`,
	)
}

// Shell runs installation commands. localexec.Runner satisfies it.
type Shell interface {
	RunShell(ctx context.Context, script string) (*localexec.Result, error)
}

// Installer executes install plans.
type Installer struct {
	runner   Shell
	logger   *slog.Logger
	lookPath func(string) (string, error)
}

// NewInstaller returns an Installer that runs commands through the
// given shell.
func NewInstaller(runner Shell, logger *slog.Logger) *Installer {
	return &Installer{
		runner:   runner,
		logger:   logger,
		lookPath: exec.LookPath,
	}
}

// Install runs each step and verifies the tool actually appeared on
// PATH afterwards. A tool that showed up in the meantime (for example
// installed by an earlier step) is skipped. Execution stops at the
// first failure; the returned slice names the tools installed before
// it.
func (i *Installer) Install(ctx context.Context, steps []Step) ([]string, error) {
	var installed []string
	for _, step := range steps {
		if _, err := i.lookPath(step.Tool); err == nil {
			i.logInfo("tool already present, skipping", "tool", step.Tool)
			continue
		}

		for _, command := range step.Commands {
			if err := ctx.Err(); err != nil {
				return installed, err
			}
			i.logInfo("running install command", "tool", step.Tool, "command", command)
			result, err := i.runner.RunShell(ctx, command)
			if err != nil {
				return installed, &InstallError{Tool: step.Tool, Command: command, Err: err}
			}
			if result.ExitCode != 0 {
				return installed, &InstallError{Tool: step.Tool, Command: command, Output: result.Stderr}
			}
		}

		if _, err := i.lookPath(step.Tool); err != nil {
			return installed, &InstallError{Tool: step.Tool, Output: "tool still missing after installation"}
		}
		installed = append(installed, step.Tool)
	}
	return installed, nil
}

func (i *Installer) logInfo(msg string, args ...any) {
	if i.logger != nil {
		i.logger.Info(msg, args...)
	}
}
