package discovery

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"

	"github.com/grandcat/zeroconf"
)

// Instance is a dropsort server seen on the network.
type Instance struct {
	InstanceID    string   `json:"instance_id" yaml:"instance_id"`
	Name          string   `json:"name" yaml:"name"`
	Version       int      `json:"version" yaml:"version"`
	ServerVersion string   `json:"server_version,omitempty" yaml:"server_version,omitempty"`
	BasePath      string   `json:"base_path" yaml:"base_path"`
	HostName      string   `json:"host" yaml:"host"`
	Port          int      `json:"port" yaml:"port"`
	Addresses     []string `json:"addresses" yaml:"addresses"`
}

// URL returns the base URL of the instance, preferring its first address.
func (i Instance) URL() string {
	host := strings.TrimSuffix(i.HostName, ".")
	if len(i.Addresses) > 0 {
		host = i.Addresses[0]
	}
	if host == "" {
		return ""
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(i.Port)) + strings.TrimSuffix(i.BasePath, "/")
}

// Browse listens for one scan window and returns the instances seen, sorted
// by name. The caller's own instance ID is skipped.
func Browse(ctx context.Context, config Config) ([]Instance, error) {
	cfg := config.withDefaults()

	browse := cfg.browseFn
	if browse == nil {
		resolver, err := zeroconf.NewResolver(nil)
		if err != nil {
			return nil, fmt.Errorf("create mDNS resolver: %w", err)
		}
		browse = resolver.Browse
	}

	scanCtx, cancel := context.WithTimeout(ctx, cfg.ScanTimeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 32)
	found := make(map[string]Instance)
	collectorDone := make(chan struct{})

	go func() {
		defer close(collectorDone)
		for {
			select {
			case <-scanCtx.Done():
				return
			case entry, ok := <-entries:
				if !ok {
					return
				}
				if entry == nil {
					continue
				}
				instance, ok := parseEntry(entry, cfg.InstanceID)
				if !ok {
					continue
				}
				found[instance.InstanceID] = instance
			}
		}
	}()

	if err := browse(scanCtx, cfg.Service, cfg.Domain, entries); err != nil {
		cancel()
		<-collectorDone
		return nil, fmt.Errorf("browse mDNS: %w", err)
	}

	<-scanCtx.Done()
	<-collectorDone
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]Instance, 0, len(found))
	for _, instance := range found {
		out = append(out, instance)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].InstanceID < out[j].InstanceID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func parseEntry(entry *zeroconf.ServiceEntry, selfInstanceID string) (Instance, bool) {
	txt := txtToMap(entry.Text)

	instanceID := txt[keyInstanceID]
	if instanceID == "" || instanceID == selfInstanceID {
		return Instance{}, false
	}

	version, _ := strconv.Atoi(txt[keyVersion])
	basePath := txt[keyBasePath]
	if !validBasePath(basePath) {
		basePath = DefaultBasePath
	}

	seen := make(map[string]struct{})
	addresses := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, group := range [][]net.IP{entry.AddrIPv4, entry.AddrIPv6} {
		for _, ip := range group {
			if ip == nil {
				continue
			}
			raw := ip.String()
			if _, dup := seen[raw]; dup {
				continue
			}
			seen[raw] = struct{}{}
			addresses = append(addresses, raw)
		}
	}

	name := strings.TrimSpace(entry.Instance)
	if name == "" {
		name = instanceID
	}

	return Instance{
		InstanceID:    instanceID,
		Name:          name,
		Version:       version,
		ServerVersion: txt[keyServerVersion],
		BasePath:      basePath,
		HostName:      entry.HostName,
		Port:          entry.Port,
		Addresses:     addresses,
	}, true
}

func txtToMap(text []string) map[string]string {
	out := make(map[string]string, len(text))
	for _, record := range text {
		key, value, ok := strings.Cut(record, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			continue
		}
		out[key] = strings.TrimSpace(value)
	}
	return out
}
