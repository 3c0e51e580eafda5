// Package config provides the configuration of a httpdoom run.
// It defines the operator controls for probing, the optional .httpdoom
// defaults file and the XDG locations used for cached rule documents.
package config
