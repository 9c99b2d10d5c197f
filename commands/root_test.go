package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_RegistersSubcommands(t *testing.T) {
	root := NewRootCmd()

	names := make(map[string]bool)
	for _, sub := range root.Commands() {
		names[sub.Name()] = true
	}

	for _, want := range []string{"scan", "detect", "discover", "run", "serve", "newsletter", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestVersionCmd_Output(t *testing.T) {
	root := NewRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "centinela version")
}

func TestNewsletterCmd_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "email.html")
	html := `<html><body><a href="https://t.example.com/sale">Hasta 40% OFF en toda la tienda</a></body></html>`
	require.NoError(t, os.WriteFile(path, []byte(html), 0o644))

	root := NewRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetArgs([]string{"newsletter", path, "--subject", "12 cuotas sin interés"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "CTA_LINK")
	assert.Contains(t, out.String(), "SUBJECT_LINE")
}

func TestScanCmd_RequiresURL(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"scan"})

	assert.Error(t, root.Execute())
}
