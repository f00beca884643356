// Package config parses the XPN_CONF partition configuration file
// (§6) and resolves the XPN_* environment variables. The parser is a
// small hand-rolled line scanner in the style of an ini file, matching
// the weight of the rest of the ambient stack rather than pulling in a
// general-purpose ini library for a four-key grammar.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ServerURL is one parsed `server_url` line: protocol://host[:port]/path.
type ServerURL struct {
	Protocol string
	Host     string
	Port     int
	Path     string
	Raw      string
}

// String reconstructs the original-shaped URL, mostly for logging.
func (s ServerURL) String() string {
	if s.Port != 0 {
		return fmt.Sprintf("%s://%s:%d%s", s.Protocol, s.Host, s.Port, s.Path)
	}
	return fmt.Sprintf("%s://%s%s", s.Protocol, s.Host, s.Path)
}

// Partition holds the static, immutable-at-init configuration for one
// partition (§3).
type Partition struct {
	Name             string
	ControllerURL    string
	BlockSize        int64
	ReplicationLevel int
	Servers          []ServerURL
}

// acceptedProtocols is the set named in §6.
var acceptedProtocols = map[string]bool{
	"mpi_server":    true,
	"sck_server":    true,
	"fabric_server": true,
	"file":          true,
}

// Load reads and parses a partition config file from path.
func Load(path string) (*Partition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening config %q", path)
	}
	defer f.Close()
	return Parse(f)
}

// LoadFromEnv reads the file named by XPN_CONF.
func LoadFromEnv() (*Partition, error) {
	path := os.Getenv("XPN_CONF")
	if path == "" {
		return nil, errors.New("XPN_CONF not set")
	}
	return Load(path)
}

// Parse parses a partition config file from r.
func Parse(r io.Reader) (*Partition, error) {
	p := &Partition{BlockSize: 1 << 20} // default 1MiB, overridden by bsize=
	scanner := bufio.NewScanner(r)
	inPartition := false
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			inPartition = strings.EqualFold(line, "[partition]")
			continue
		}
		if !inPartition {
			continue
		}
		key, val, ok := splitKV(line)
		if !ok {
			return nil, errors.Errorf("config line %d: expected key = value, got %q", lineNo, line)
		}
		switch key {
		case "partition_name":
			p.Name = val
		case "controller_url":
			p.ControllerURL = val
		case "bsize":
			size, err := ParseSize(val)
			if err != nil {
				return nil, errors.Wrapf(err, "config line %d", lineNo)
			}
			p.BlockSize = size
		case "replication_level":
			r, err := strconv.Atoi(val)
			if err != nil {
				return nil, errors.Wrapf(err, "config line %d: replication_level", lineNo)
			}
			p.ReplicationLevel = r
		case "server_url":
			su, err := parseServerURL(val)
			if err != nil {
				return nil, errors.Wrapf(err, "config line %d", lineNo)
			}
			p.Servers = append(p.Servers, su)
		default:
			// unknown keys are ignored, matching the teacher's lenient
			// config parsing for forward compatibility
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	if len(p.Servers) == 0 {
		return nil, errors.New("config: no server_url entries found")
	}
	if p.ReplicationLevel >= len(p.Servers) {
		return nil, errors.Errorf("replication_level %d must be less than the number of servers (%d)", p.ReplicationLevel, len(p.Servers))
	}
	return p, nil
}

func splitKV(line string) (key, val string, ok bool) {
	i := strings.Index(line, "=")
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
}

func parseServerURL(raw string) (ServerURL, error) {
	i := strings.Index(raw, "://")
	if i < 0 {
		return ServerURL{}, errors.Errorf("server_url %q missing protocol", raw)
	}
	proto := raw[:i]
	if !acceptedProtocols[proto] {
		return ServerURL{}, errors.Errorf("server_url %q has unknown protocol %q", raw, proto)
	}
	rest := raw[i+3:]
	hostPort := rest
	path := "/"
	if j := strings.Index(rest, "/"); j >= 0 {
		hostPort = rest[:j]
		path = rest[j:]
	}
	host := hostPort
	port := 0
	if k := strings.LastIndex(hostPort, ":"); k >= 0 {
		host = hostPort[:k]
		p, err := strconv.Atoi(hostPort[k+1:])
		if err != nil {
			return ServerURL{}, errors.Errorf("server_url %q has invalid port", raw)
		}
		port = p
	}
	return ServerURL{Protocol: proto, Host: host, Port: port, Path: path, Raw: raw}, nil
}
