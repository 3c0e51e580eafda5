package model

// Category is a technology category such as "CMS" or "Web servers".
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Technology is one detected technology on a probed target.
type Technology struct {
	// Name is the vendor name as it appears in the rule document.
	Name string `json:"name"`

	// Categories are the resolved categories of the vendor.
	Categories []Category `json:"categories,omitempty"`

	// Version is extracted from a version directive, if one matched.
	Version string `json:"version,omitempty"`

	// Confidence is the highest confidence among matching patterns (0-100).
	Confidence int `json:"confidence"`

	// Website is the vendor homepage.
	Website string `json:"website,omitempty"`

	// OpenSource mirrors the rule document's oss flag.
	OpenSource bool `json:"open_source,omitempty"`

	// Implied is true when the technology was only reached through
	// another technology's implies list.
	Implied bool `json:"implied,omitempty"`
}
