package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShort(t *testing.T) {
	defer func(v, c string) { Version, Commit = v, c }(Version, Commit)

	assert.Equal(t, "dev", Short())
	Commit = "abc123"
	assert.Equal(t, "abc123", Short())
	Version = "v1.2.0"
	assert.Equal(t, "v1.2.0", Short())
	assert.Equal(t, "minikern v1.2.0 (commit abc123, built unknown)", String())
}
