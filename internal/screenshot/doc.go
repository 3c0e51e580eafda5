// Package screenshot renders pages in headless Chrome via chromedp.
//
// Screenshots are best effort. Any failure (no browser installed, page
// timeout, navigation error) is returned to the caller, which records it as
// a warning on the probe result. Certificate errors are ignored so that the
// browser sees the same page the prober fetched.
package screenshot
