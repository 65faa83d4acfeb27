// Package clientip resolves the caller address recorded with each verification
// attempt. Proxy headers are trusted only when configured.
package clientip
