// Package main provides the entry point for the HttpDoom CLI.
//
// HttpDoom probes every host of a word list on a set of ports over HTTP and
// HTTPS, records how each one answers and writes the alive hosts to an
// output directory.
//
// Usage:
//
//	httpdoom scan -w hosts.txt
//	httpdoom inspect example.com
//
// See --help for all available options.
package main

// main is the entry point for HttpDoom.
func main() {
	Execute()
}
