package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd_Executes(t *testing.T) {
	original := version
	SetVersion("1.2.3")
	defer func() { version = original }()

	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mnemo version 1.2.3")
}

func TestVersionCmd_SkipsWiring(t *testing.T) {
	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mnemo version")
	assert.False(t, servicesReady)
}

func TestSetVersion_IgnoresEmpty(t *testing.T) {
	original := version
	defer func() { version = original }()

	SetVersion("")
	assert.Equal(t, original, version)
}
