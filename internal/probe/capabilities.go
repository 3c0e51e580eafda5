package probe

// Capabilities selects the optional behaviour of a Prober.
type Capabilities struct {
	// FollowRedirects follows redirects up to the configured cap.
	FollowRedirects bool

	// UseProxy routes requests through the configured proxy.
	UseProxy bool

	// DetectTechnology runs the technology detector on the result.
	DetectTechnology bool

	// CaptureScreenshot renders the final URL in a headless browser.
	CaptureScreenshot bool

	// ResolveDNS records the target host's addresses.
	ResolveDNS bool
}

// ScanCapabilities are used for a plain scan: no redirects, DNS resolution on.
func ScanCapabilities() Capabilities {
	return Capabilities{ResolveDNS: true}
}

// InspectCapabilities are used for a deep inspection of a single target.
func InspectCapabilities() Capabilities {
	return Capabilities{
		FollowRedirects:   true,
		DetectTechnology:  true,
		CaptureScreenshot: true,
		ResolveDNS:        true,
	}
}
