// Package transfer moves bundles in and out of the host.
//
// Uploads are persisted under <root>/uploaded-<unix-millis>/<file name>, one
// fresh namespace per upload, and then scanned into the registry. Downloads
// stream back the exact bundle a registered topology was loaded from.
package transfer
