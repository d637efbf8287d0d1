package command

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/integration-hub/student-hub/internal/application/apptest"
	"github.com/integration-hub/student-hub/internal/domain/profile"
)

const userID = "7c1d3e2a-7c1d-4e2a-9c1d-7c1d3e2a9c1d"

const (
	convA = "3f6e1b2c-4d5a-4b6c-8d7e-9f0a1b2c3d4e"
	convB = "a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d"
)

func boolPtr(b bool) *bool { return &b }

// seed stores a profile for userID after applying mutate.
func seed(t *testing.T, store *apptest.Store, mutate func(p *profile.Profile)) *profile.Profile {
	t.Helper()
	p, err := profile.New(userID)
	require.NoError(t, err)
	if mutate != nil {
		mutate(p)
	}
	store.Put(p)
	return p
}

func reader(store *apptest.Store) *profile.Reader {
	return profile.NewReader(store, nil, 0)
}
