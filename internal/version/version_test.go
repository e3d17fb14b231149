package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserAgent(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })

	Version = "1.4.0"
	assert.Equal(t, "zepup/1.4.0", UserAgent())
}
