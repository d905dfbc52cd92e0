// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// BundleBytes builds an in-memory bundle from a file name to content map.
func BundleBytes(t testing.TB, files map[string]string) []byte {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	slices.Sort(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// WriteBundle writes a bundle into dir and returns its path.
func WriteBundle(t testing.TB, dir, name string, files map[string]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, BundleBytes(t, files), 0o644))
	return path
}

// TopologyBundle returns the files of a bundle exporting one topology
// provider class with the given name and version.
func TopologyBundle(class, version string) map[string]string {
	return map[string]string{
		"index.js": `
class ` + class + ` {
  topology() { return "` + class + `@` + version + `"; }
}
` + class + `.version = "` + version + `";
exports.` + class + ` = ` + class + `;
`,
	}
}

// PlainBundle returns the files of a bundle exporting one class without a
// topology method.
func PlainBundle(class, version string) map[string]string {
	return map[string]string{
		"index.js": `
class ` + class + ` {
  greet(who) { return "hello " + who; }
}
` + class + `.version = "` + version + `";
exports.` + class + ` = ` + class + `;
`,
	}
}
