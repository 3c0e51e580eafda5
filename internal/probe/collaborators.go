package probe

import (
	"context"
	"net"
	"slices"

	"github.com/nao1215/httpdoom/internal/model"
)

// Resolver looks up the addresses of a host.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Detector detects technologies on a probe result.
// *fingerprint.Matcher implements it.
type Detector interface {
	Detect(ctx context.Context, result *model.ProbeResult) ([]model.Technology, error)
}

// Screenshotter renders a URL to an image file and returns its path.
// *screenshot.Capturer implements it.
type Screenshotter interface {
	Capture(ctx context.Context, target model.Target, url string) (string, error)
}

// resolveHost returns host itself for IP literals and the sorted addresses
// from r otherwise.
func resolveHost(ctx context.Context, r Resolver, host string) ([]string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []string{ip.String()}, nil
	}
	addrs, err := r.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}
	addrs = slices.Clone(addrs)
	slices.Sort(addrs)
	return slices.Compact(addrs), nil
}
