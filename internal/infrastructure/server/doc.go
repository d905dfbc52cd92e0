// Package server assembles the bundlehost HTTP server: configuration,
// logging, metrics, the component registry and the REST API.
//
// NewServer wires everything, Bootstrap registers built-in components and
// performs the startup scan, and Run serves until Close is called. Bootstrap
// must complete before Run so that the first request sees every component.
package server
