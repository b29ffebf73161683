// Package vectorutils builds vector drivers from configuration.
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/papercomputeco/physrag/pkg/vector"
	"github.com/papercomputeco/physrag/pkg/vector/chroma"
	"github.com/papercomputeco/physrag/pkg/vector/inmemory"
	"github.com/papercomputeco/physrag/pkg/vector/qdrant"
	"github.com/papercomputeco/physrag/pkg/vector/sqlitevec"
)

// NewVectorDriverOpts selects and configures a vector store provider.
type NewVectorDriverOpts struct {
	ProviderType string

	// TargetURL is a URL for chroma, host:port for qdrant and a file path for sqlite.
	TargetURL  string
	Collection string
	Dimensions uint
	APIKey     string
	Logger     *slog.Logger
}

// NewVectorDriver builds the driver for o.ProviderType.
func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "sqlite", "sqlite-vec":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     o.TargetURL,
			Dimensions: o.Dimensions,
		}, o.Logger)
	case "chroma":
		return chroma.NewDriver(chroma.Config{
			URL:            o.TargetURL,
			CollectionName: o.Collection,
		}, o.Logger)
	case "qdrant":
		host, port, tls, err := ParseQdrantTarget(o.TargetURL)
		if err != nil {
			return nil, err
		}
		return qdrant.NewDriver(ctx, qdrant.Config{
			Host:       host,
			Port:       port,
			UseTLS:     tls,
			APIKey:     o.APIKey,
			Collection: o.Collection,
			Dimensions: uint64(o.Dimensions),
		}, o.Logger)
	case "memory":
		return inmemory.NewDriver(), nil
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}

// ParseQdrantTarget splits "host", "host:port" or "https://host:port" into
// its parts. An https scheme enables TLS.
func ParseQdrantTarget(target string) (host string, port int, useTLS bool, err error) {
	switch {
	case strings.HasPrefix(target, "https://"):
		useTLS = true
		target = strings.TrimPrefix(target, "https://")
	case strings.HasPrefix(target, "http://"):
		target = strings.TrimPrefix(target, "http://")
	}
	target = strings.TrimSuffix(target, "/")

	if target == "" {
		return "", 0, false, fmt.Errorf("qdrant target is required")
	}

	if !strings.Contains(target, ":") {
		return target, qdrant.DefaultPort, useTLS, nil
	}

	h, p, err := net.SplitHostPort(target)
	if err != nil {
		return "", 0, false, fmt.Errorf("parsing qdrant target %q: %w", target, err)
	}
	port, err = strconv.Atoi(p)
	if err != nil {
		return "", 0, false, fmt.Errorf("parsing qdrant port %q: %w", p, err)
	}
	return h, port, useTLS, nil
}
