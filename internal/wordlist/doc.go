// Package wordlist loads the list of hosts to probe.
//
// A word list is a text file with one host per line, read from disk or
// downloaded over HTTP(S). Lines may carry a scheme, port or path; those are
// stripped so only the host remains. Hosts are converted to their ASCII form
// and must be an IP literal or a name under a known public suffix.
package wordlist
