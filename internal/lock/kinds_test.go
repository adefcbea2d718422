package lock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/srg/blelock/internal/lock"
)

// TestKindForUUID verifies the UUID to kind mapping across input forms
func TestKindForUUID(t *testing.T) {
	tests := []struct {
		uuid     string
		expected lock.Kind
	}{
		{"F002", lock.KindUnlock},
		{"f002", lock.KindUnlock},
		{"0000f003-0000-1000-8000-00805f9b34fb", lock.KindStatus},
		{"F004", lock.KindLog},
		{"F001", lock.KindUnknown}, // the service itself is not a characteristic
		{"2a19", lock.KindUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, lock.KindForUUID(tt.uuid), "uuid %s", tt.uuid)
	}
}

func TestKindRoundTrip(t *testing.T) {
	for _, k := range []lock.Kind{lock.KindUnlock, lock.KindStatus, lock.KindLog} {
		assert.Equal(t, k, lock.KindForUUID(k.UUID()))
		assert.NotEmpty(t, k.String())
	}
	assert.Empty(t, lock.KindUnknown.UUID())
}

func TestIsKnownUUID(t *testing.T) {
	assert.True(t, lock.IsKnownUUID("F001"), "the service UUID is part of the profile")
	assert.True(t, lock.IsKnownUUID("f003"))
	assert.False(t, lock.IsKnownUUID("180f"))
}
