package target

import (
	"github.com/nao1215/httpdoom/internal/model"
)

// Well-known ports that map to a single scheme.
const (
	portHTTP  = 80
	portHTTPS = 443
)

// Expand returns every target implied by the cross product of domains and ports.
// It never fails; empty input yields an empty result.
func Expand(domains []string, ports []int) []model.Target {
	targets := make([]model.Target, 0, len(domains)*len(ports)*2)
	seen := make(map[model.Target]struct{}, cap(targets))

	add := func(t model.Target) {
		if _, ok := seen[t]; ok {
			return
		}
		seen[t] = struct{}{}
		targets = append(targets, t)
	}

	for _, domain := range domains {
		if domain == "" {
			continue
		}
		for _, port := range ports {
			switch port {
			case portHTTP:
				add(model.NewTarget(model.SchemeHTTP, domain, 0))
			case portHTTPS:
				add(model.NewTarget(model.SchemeHTTPS, domain, 0))
			default:
				add(model.NewTarget(model.SchemeHTTP, domain, port))
				add(model.NewTarget(model.SchemeHTTPS, domain, port))
			}
		}
	}

	return targets
}

// URLs renders targets as URL strings, preserving order.
func URLs(targets []model.Target) []string {
	urls := make([]string, len(targets))
	for i, t := range targets {
		urls[i] = t.URL()
	}
	return urls
}
