package deploy

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// Flag Syntax Parsing
// =============================================================================

// ParsePortMapping parses docker CLI publish syntax: "HOST:CONTAINER" with an
// optional "/PROTOCOL" suffix. The protocol defaults to "tcp".
//
// Example:
//
//	ParsePortMapping("8080:80")     // {HostPort: 8080, ContainerPort: 80, Protocol: "tcp"}
//	ParsePortMapping("53:53/udp")   // {HostPort: 53, ContainerPort: 53, Protocol: "udp"}
func ParsePortMapping(s string) (PortMapping, error) {
	spec := s
	proto := "tcp"
	if slash := strings.IndexByte(spec, '/'); slash >= 0 {
		proto = spec[slash+1:]
		spec = spec[:slash]
		if proto != "tcp" && proto != "udp" && proto != "sctp" {
			return PortMapping{}, fmt.Errorf("port mapping %q: unsupported protocol %q", s, proto)
		}
	}
	host, cont, ok := strings.Cut(spec, ":")
	if !ok {
		return PortMapping{}, fmt.Errorf("port mapping %q: expected HOST:CONTAINER", s)
	}
	hostPort, err := strconv.Atoi(host)
	if err != nil {
		return PortMapping{}, fmt.Errorf("port mapping %q: host port: %w", s, err)
	}
	containerPort, err := strconv.Atoi(cont)
	if err != nil {
		return PortMapping{}, fmt.Errorf("port mapping %q: container port: %w", s, err)
	}
	return PortMapping{HostPort: hostPort, ContainerPort: containerPort, Protocol: proto}, nil
}

// ParseVolumeMapping parses docker CLI volume syntax: "SOURCE:TARGET" with an
// optional ":ro" suffix. Sources starting with "/" or "./" are bind mounts;
// anything else names a volume.
func ParseVolumeMapping(s string) (VolumeMapping, error) {
	parts := strings.Split(s, ":")
	switch len(parts) {
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return VolumeMapping{}, fmt.Errorf("volume mapping %q: expected SOURCE:TARGET", s)
		}
		return VolumeMapping{Source: parts[0], Target: parts[1]}, nil
	case 3:
		if parts[2] != "ro" && parts[2] != "rw" {
			return VolumeMapping{}, fmt.Errorf("volume mapping %q: unsupported mode %q", s, parts[2])
		}
		if parts[0] == "" || parts[1] == "" {
			return VolumeMapping{}, fmt.Errorf("volume mapping %q: expected SOURCE:TARGET", s)
		}
		return VolumeMapping{Source: parts[0], Target: parts[1], ReadOnly: parts[2] == "ro"}, nil
	default:
		return VolumeMapping{}, fmt.Errorf("volume mapping %q: expected SOURCE:TARGET[:ro]", s)
	}
}

// ParseEnvVar parses "KEY=VALUE". The value may be empty; the key may not.
func ParseEnvVar(s string) (EnvVar, error) {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return EnvVar{}, fmt.Errorf("environment variable %q: expected KEY=VALUE", s)
	}
	return EnvVar{Key: key, Value: value}, nil
}

// =============================================================================
// Flag Syntax Rendering
// =============================================================================

// String renders the mapping in docker CLI publish syntax. The default
// protocol "tcp" is omitted.
func (p PortMapping) String() string {
	s := strconv.Itoa(p.HostPort) + ":" + strconv.Itoa(p.ContainerPort)
	if p.Protocol != "" && p.Protocol != "tcp" {
		s += "/" + p.Protocol
	}
	return s
}

// String renders the mapping in docker CLI volume syntax.
func (v VolumeMapping) String() string {
	s := v.Source + ":" + v.Target
	if v.ReadOnly {
		s += ":ro"
	}
	return s
}

// String renders the variable as "KEY=VALUE".
func (e EnvVar) String() string {
	return e.Key + "=" + e.Value
}
