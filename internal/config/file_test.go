package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileDecodesHostsAndDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "afd.json")
	doc := `{
		"hosts": [
			{"alias": "mirror1", "real_hostname_1": "ftp.example.com", "allowed_transfers": 2, "scheme": 0}
		],
		"directories": [
			{"id": 1, "path": "/in/a", "max_copied_files": 10, "recipients": [{"host_alias": "mirror1", "target_path": "/incoming"}]}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	fc, err := LoadFile(path)
	require.NoError(t, err)

	require.Len(t, fc.Hosts, 1)
	assert.Equal(t, "mirror1", fc.Hosts[0].Alias)
	assert.Equal(t, 2, fc.Hosts[0].AllowedTransfers)

	require.Len(t, fc.Directories, 1)
	assert.Equal(t, "/in/a", fc.Directories[0].Path)
	require.Len(t, fc.Directories[0].Recipients, 1)
	assert.Equal(t, "mirror1", fc.Directories[0].Recipients[0].HostAlias)
}

func TestLoadFileRejectsInvalidHost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "afd.json")
	doc := `{"hosts": [{"alias": "", "allowed_transfers": 1}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}
