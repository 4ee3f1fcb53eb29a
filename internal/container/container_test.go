package container

import (
	"context"
	"fmt"
	"testing"

	"github.com/docker/docker/api/types"
	containertypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDockerAPI implements dockerAPI for testing
type fakeDockerAPI struct {
	pingErr    error
	containers []containertypes.Summary
	networks   []network.Summary
	volumes    []*volume.Volume
	listFilter filters.Args

	removedContainers []string
	removedNetworks   []string
	removedVolumes    []string
	removeErr         error
}

func (f *fakeDockerAPI) Ping(ctx context.Context) (types.Ping, error) {
	if f.pingErr != nil {
		return types.Ping{}, f.pingErr
	}
	return types.Ping{APIVersion: "1.47"}, nil
}

func (f *fakeDockerAPI) ContainerList(ctx context.Context, options containertypes.ListOptions) ([]containertypes.Summary, error) {
	f.listFilter = options.Filters
	if !options.All {
		return nil, fmt.Errorf("expected All to be set")
	}
	return f.containers, nil
}

func (f *fakeDockerAPI) ContainerRemove(ctx context.Context, containerID string, options containertypes.RemoveOptions) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	if !options.Force {
		return fmt.Errorf("expected Force to be set")
	}
	f.removedContainers = append(f.removedContainers, containerID)
	return nil
}

func (f *fakeDockerAPI) NetworkList(ctx context.Context, options network.ListOptions) ([]network.Summary, error) {
	f.listFilter = options.Filters
	return f.networks, nil
}

func (f *fakeDockerAPI) NetworkRemove(ctx context.Context, networkID string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removedNetworks = append(f.removedNetworks, networkID)
	return nil
}

func (f *fakeDockerAPI) VolumeList(ctx context.Context, options volume.ListOptions) (volume.ListResponse, error) {
	f.listFilter = options.Filters
	return volume.ListResponse{Volumes: f.volumes}, nil
}

func (f *fakeDockerAPI) VolumeRemove(ctx context.Context, volumeID string, force bool) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	if !force {
		return fmt.Errorf("expected force to be set")
	}
	f.removedVolumes = append(f.removedVolumes, volumeID)
	return nil
}

func TestIsAvailable(t *testing.T) {
	client := &Client{api: &fakeDockerAPI{}}
	assert.True(t, client.IsAvailable(context.Background()))

	client = &Client{api: &fakeDockerAPI{pingErr: fmt.Errorf("daemon not running")}}
	assert.False(t, client.IsAvailable(context.Background()))
}

func TestDeploymentFilter(t *testing.T) {
	scoped := deploymentFilter("magma.local")
	assert.Equal(t, []string{DeploymentLabel + "=magma.local"}, scoped.Get("label"))

	any := deploymentFilter("")
	assert.Equal(t, []string{DeploymentLabel}, any.Get("label"))
}

func TestListContainers(t *testing.T) {
	api := &fakeDockerAPI{
		containers: []containertypes.Summary{
			{ID: "abc123", Names: []string{"/lattice-db"}, Image: "postgres:14", State: "running"},
			{ID: "def456", Names: nil, Image: "nginx:latest", State: "exited"},
		},
	}
	client := &Client{api: api}

	containers, err := client.ListContainers(context.Background(), "magma.local")
	require.NoError(t, err)
	require.Len(t, containers, 2)

	assert.Equal(t, "lattice-db", containers[0].Name)
	assert.Equal(t, "abc123", containers[0].ID)
	assert.Equal(t, "postgres:14", containers[0].Image)
	assert.Equal(t, "running", containers[0].State)

	// Containers without names fall back to the ID
	assert.Equal(t, "def456", containers[1].Name)

	assert.Equal(t, []string{DeploymentLabel + "=magma.local"}, api.listFilter.Get("label"))
}

func TestRemoveContainers(t *testing.T) {
	api := &fakeDockerAPI{}
	client := &Client{api: api}

	err := client.RemoveContainers(context.Background(), []Container{
		{ID: "abc123", Name: "lattice-db"},
		{ID: "def456", Name: "lattice-proxy"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"abc123", "def456"}, api.removedContainers)
}

func TestRemoveContainersError(t *testing.T) {
	removeErr := fmt.Errorf("container is locked")
	api := &fakeDockerAPI{removeErr: removeErr}
	client := &Client{api: api}

	err := client.RemoveContainers(context.Background(), []Container{{ID: "abc123", Name: "lattice-db"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, removeErr)
	assert.Contains(t, err.Error(), "lattice-db")
}

func TestListNetworks(t *testing.T) {
	api := &fakeDockerAPI{
		networks: []network.Summary{
			{ID: "net1", Name: "lattice-bridge"},
		},
	}
	client := &Client{api: api}

	networks, err := client.ListNetworks(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, networks, 1)
	assert.Equal(t, "lattice-bridge", networks[0].Name)
	assert.Equal(t, []string{DeploymentLabel}, api.listFilter.Get("label"))
}

func TestRemoveNetworks(t *testing.T) {
	api := &fakeDockerAPI{}
	client := &Client{api: api}

	err := client.RemoveNetworks(context.Background(), []Network{{ID: "net1", Name: "lattice-bridge"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"net1"}, api.removedNetworks)
}

func TestListVolumes(t *testing.T) {
	api := &fakeDockerAPI{
		volumes: []*volume.Volume{
			{Name: "lattice-data"},
			nil,
			{Name: "lattice-certs"},
		},
	}
	client := &Client{api: api}

	volumes, err := client.ListVolumes(context.Background(), "magma.local")
	require.NoError(t, err)
	require.Len(t, volumes, 2)
	assert.Equal(t, "lattice-data", volumes[0].Name)
	assert.Equal(t, "lattice-certs", volumes[1].Name)
}

func TestRemoveVolumes(t *testing.T) {
	api := &fakeDockerAPI{}
	client := &Client{api: api}

	err := client.RemoveVolumes(context.Background(), []Volume{{Name: "lattice-data"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"lattice-data"}, api.removedVolumes)
}

func TestNewClient(t *testing.T) {
	// Client construction does not require a reachable daemon
	client, err := NewClient()
	require.NoError(t, err)
	assert.NotNil(t, client)
}
