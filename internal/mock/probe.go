package mock

import (
	"context"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"

	"github.com/layer97/pulse/internal/client"
)

// Location labels where the backend is running.
const (
	LocationGCPVM          = "GCP_VM"
	LocationLocalContainer = "LOCAL_CONTAINER"
	LocationCloudContainer = "CLOUD_CONTAINER"
	LocationLocalMac       = "LOCAL_MAC"
)

// HostStatus is the result of probing the local host.
type HostStatus struct {
	Hostname string
	Location string
	Uptime   uint64
	Load1    float64
}

// Node returns the node this host plays in the pair.
func (h HostStatus) Node() client.Node {
	if h.Location == LocationGCPVM || h.Location == LocationCloudContainer {
		return client.NodeGCPVM
	}
	return client.NodeMacbook
}

// Prober reports on the local host.
type Prober interface {
	Probe(ctx context.Context) (HostStatus, error)
}

// HostProber probes with gopsutil.
type HostProber struct{}

func (HostProber) Probe(ctx context.Context) (HostStatus, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return HostStatus{}, err
	}
	st := HostStatus{
		Hostname: info.Hostname,
		Uptime:   info.Uptime,
		Location: DetectLocation(info.Hostname, info.VirtualizationSystem, info.VirtualizationRole, fileExists),
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		st.Load1 = avg.Load1
	}
	return st, nil
}

// DetectLocation classifies the host from its name and virtualization
// details. exists reports whether a marker file is present.
func DetectLocation(hostname, virtSystem, virtRole string, exists func(string) bool) string {
	if exists("/etc/google_compute_engine") {
		return LocationGCPVM
	}
	container := exists("/.dockerenv") || exists("/run/.containerenv")
	if virtRole == "guest" {
		switch virtSystem {
		case "docker", "podman", "lxc", "containerd":
			container = true
		}
	}
	if container {
		name := strings.ToLower(hostname)
		if strings.Contains(name, "97layer") || strings.Contains(name, "layer97") {
			return LocationLocalContainer
		}
		return LocationCloudContainer
	}
	return LocationLocalMac
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
