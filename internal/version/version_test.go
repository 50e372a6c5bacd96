package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion(t *testing.T) {
	orig := version
	t.Cleanup(func() { version = orig })

	version = ""
	assert.Equal(t, "0.1.0", Version(), "embedded VERSION file")

	version = "1.2.3"
	assert.Equal(t, "1.2.3", Version(), "ldflags override")
}
