// Package discovery advertises running dropsort servers over mDNS and finds
// other instances on the local network.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/grandcat/zeroconf"
)

const (
	// DefaultService is the mDNS service name without domain suffix.
	DefaultService = "_dropsort._tcp"
	// DefaultDomain is the mDNS domain.
	DefaultDomain = "local."
	// DefaultVersion is the TXT record protocol version.
	DefaultVersion = 1
	// DefaultScanTimeout bounds one browse window.
	DefaultScanTimeout = 3 * time.Second
	// DefaultBasePath is advertised when the server is mounted at the root.
	DefaultBasePath = "/"
)

// TXT keys. server_version is omitted when unknown.
const (
	keyInstanceID    = "instance_id"
	keyVersion       = "version"
	keyBasePath      = "base_path"
	keyServerVersion = "server_version"
)

const (
	maxTXTRecord     = 255
	maxInstanceLabel = 63
)

var errInvalidBasePath = errors.New("base path must be an absolute URL path")

type registerFunc func(instance, service, domain string, port int, text []string, ifaces []net.Interface) (*zeroconf.Server, error)
type browseFunc func(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error

// Config controls advertisement and browsing. BasePath is the path prefix
// download links are served under; ServerVersion is the build reported by the
// health endpoint.
type Config struct {
	Service     string
	Domain      string
	Version     int
	ScanTimeout time.Duration

	InstanceID    string
	InstanceName  string
	Port          int
	BasePath      string
	ServerVersion string

	registerFn registerFunc
	browseFn   browseFunc
}

func (c Config) withDefaults() Config {
	out := c
	if out.Service == "" {
		out.Service = DefaultService
	}
	if out.Domain == "" {
		out.Domain = DefaultDomain
	}
	if out.Version == 0 {
		out.Version = DefaultVersion
	}
	if out.ScanTimeout <= 0 {
		out.ScanTimeout = DefaultScanTimeout
	}
	if out.BasePath == "" {
		out.BasePath = DefaultBasePath
	}
	if out.registerFn == nil {
		out.registerFn = zeroconf.Register
	}
	return out
}

// BasePathFromURL derives the advertised base path from a public base URL.
// An empty URL or one without a path maps to DefaultBasePath.
func BasePathFromURL(publicBaseURL string) (string, error) {
	raw := strings.TrimSpace(publicBaseURL)
	if raw == "" {
		return DefaultBasePath, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse public base URL: %w", err)
	}
	if u.Path == "" || u.Path == "/" {
		return DefaultBasePath, nil
	}
	return path.Clean("/" + u.Path), nil
}

func validBasePath(p string) bool {
	if !strings.HasPrefix(p, "/") || strings.ContainsAny(p, " \t\r\n?#") {
		return false
	}
	for _, segment := range strings.Split(p, "/") {
		if segment == ".." {
			return false
		}
	}
	return true
}

// instanceLabel trims name to a single DNS-SD instance label.
func instanceLabel(name string) string {
	name = strings.TrimSpace(name)
	if len(name) <= maxInstanceLabel {
		return name
	}
	cut := maxInstanceLabel
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return strings.TrimSpace(name[:cut])
}

func (c Config) txtRecords() ([]string, error) {
	if strings.TrimSpace(c.InstanceID) == "" {
		return nil, errors.New("instance ID is required")
	}
	if !validBasePath(c.BasePath) {
		return nil, fmt.Errorf("%w: %q", errInvalidBasePath, c.BasePath)
	}

	records := []string{
		keyInstanceID + "=" + c.InstanceID,
		keyVersion + "=" + strconv.Itoa(c.Version),
		keyBasePath + "=" + c.BasePath,
	}
	if v := strings.TrimSpace(c.ServerVersion); v != "" {
		records = append(records, keyServerVersion+"="+v)
	}
	for _, record := range records {
		if len(record) > maxTXTRecord {
			key, _, _ := strings.Cut(record, "=")
			return nil, fmt.Errorf("TXT record %s exceeds %d bytes", key, maxTXTRecord)
		}
	}
	return records, nil
}

// Advertiser keeps a dropsort server registered on mDNS.
type Advertiser struct {
	server  *zeroconf.Server
	records []string
}

// Advertise registers the server described by config. Names longer than one
// DNS label are shortened; an invalid base path or oversized TXT record is an
// error and nothing is registered.
func Advertise(config Config) (*Advertiser, error) {
	cfg := config.withDefaults()

	name := instanceLabel(cfg.InstanceName)
	if name == "" {
		return nil, errors.New("instance name is required")
	}
	if cfg.Port <= 0 {
		return nil, errors.New("port must be > 0")
	}
	records, err := cfg.txtRecords()
	if err != nil {
		return nil, err
	}

	server, err := cfg.registerFn(name, cfg.Service, cfg.Domain, cfg.Port, records, nil)
	if err != nil {
		return nil, fmt.Errorf("register mDNS service: %w", err)
	}
	return &Advertiser{server: server, records: records}, nil
}

// Records returns the TXT records being advertised.
func (a *Advertiser) Records() []string {
	if a == nil {
		return nil
	}
	return append([]string(nil), a.records...)
}

// Stop withdraws the advertisement.
func (a *Advertiser) Stop() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
}
