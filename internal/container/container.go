package container

import (
	"context"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
)

// DeploymentLabel marks Docker resources that belong to a lattice
// deployment. The label value is the deployment domain.
const DeploymentLabel = "io.lattice.deployment"

// dockerAPI is the slice of the Docker Engine API the engine uses
type dockerAPI interface {
	Ping(ctx context.Context) (types.Ping, error)
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	NetworkList(ctx context.Context, options network.ListOptions) ([]network.Summary, error)
	NetworkRemove(ctx context.Context, networkID string) error
	VolumeList(ctx context.Context, options volume.ListOptions) (volume.ListResponse, error)
	VolumeRemove(ctx context.Context, volumeID string, force bool) error
}

// Container describes a deployment-labelled container
type Container struct {
	ID    string
	Name  string
	Image string
	State string
}

// Network describes a deployment-labelled network
type Network struct {
	ID   string
	Name string
}

// Volume describes a deployment-labelled volume
type Volume struct {
	Name string
}

// Client talks to the local Docker daemon
type Client struct {
	api dockerAPI
}

// NewClient creates a Docker client from the ambient environment
// (DOCKER_HOST et al), the same configuration the docker CLI uses.
func NewClient() (*Client, error) {
	api, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Client{api: api}, nil
}

// IsAvailable reports whether the Docker daemon answers a ping
func (c *Client) IsAvailable(ctx context.Context) bool {
	_, err := c.api.Ping(ctx)
	return err == nil
}

// deploymentFilter matches resources carrying the deployment label.
// An empty deployment matches any lattice deployment.
func deploymentFilter(deployment string) filters.Args {
	label := DeploymentLabel
	if deployment != "" {
		label = DeploymentLabel + "=" + deployment
	}
	return filters.NewArgs(filters.Arg("label", label))
}

// ListContainers returns containers labelled for the deployment,
// including stopped ones.
func (c *Client) ListContainers(ctx context.Context, deployment string) ([]Container, error) {
	summaries, err := c.api.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: deploymentFilter(deployment),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	containers := make([]Container, 0, len(summaries))
	for _, summary := range summaries {
		name := summary.ID
		if len(summary.Names) > 0 {
			name = strings.TrimPrefix(summary.Names[0], "/")
		}
		containers = append(containers, Container{
			ID:    summary.ID,
			Name:  name,
			Image: summary.Image,
			State: summary.State,
		})
	}

	return containers, nil
}

// RemoveContainers force-removes the given containers
func (c *Client) RemoveContainers(ctx context.Context, containers []Container) error {
	for _, cont := range containers {
		err := c.api.ContainerRemove(ctx, cont.ID, container.RemoveOptions{Force: true})
		if err != nil {
			return fmt.Errorf("failed to remove container %s: %w", cont.Name, err)
		}
	}
	return nil
}

// ListNetworks returns networks labelled for the deployment
func (c *Client) ListNetworks(ctx context.Context, deployment string) ([]Network, error) {
	summaries, err := c.api.NetworkList(ctx, network.ListOptions{
		Filters: deploymentFilter(deployment),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list networks: %w", err)
	}

	networks := make([]Network, 0, len(summaries))
	for _, summary := range summaries {
		networks = append(networks, Network{
			ID:   summary.ID,
			Name: summary.Name,
		})
	}

	return networks, nil
}

// RemoveNetworks removes the given networks
func (c *Client) RemoveNetworks(ctx context.Context, networks []Network) error {
	for _, net := range networks {
		if err := c.api.NetworkRemove(ctx, net.ID); err != nil {
			return fmt.Errorf("failed to remove network %s: %w", net.Name, err)
		}
	}
	return nil
}

// ListVolumes returns volumes labelled for the deployment
func (c *Client) ListVolumes(ctx context.Context, deployment string) ([]Volume, error) {
	response, err := c.api.VolumeList(ctx, volume.ListOptions{
		Filters: deploymentFilter(deployment),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list volumes: %w", err)
	}

	volumes := make([]Volume, 0, len(response.Volumes))
	for _, vol := range response.Volumes {
		if vol == nil {
			continue
		}
		volumes = append(volumes, Volume{Name: vol.Name})
	}

	return volumes, nil
}

// RemoveVolumes force-removes the given volumes
func (c *Client) RemoveVolumes(ctx context.Context, volumes []Volume) error {
	for _, vol := range volumes {
		if err := c.api.VolumeRemove(ctx, vol.Name, true); err != nil {
			return fmt.Errorf("failed to remove volume %s: %w", vol.Name, err)
		}
	}
	return nil
}
