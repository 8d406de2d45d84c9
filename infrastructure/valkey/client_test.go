package valkey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	c := &Client{keyPrefix: normalizePrefix("azcrm")}
	assert.Equal(t, "azcrm:lock:followup:tick", c.Key("lock", "followup", "tick"))
	assert.Equal(t, "azcrm", c.Key())

	bare := &Client{}
	assert.Equal(t, "lock", bare.Key("lock"))
	assert.Equal(t, "azcrm:", normalizePrefix("azcrm:"))
}
