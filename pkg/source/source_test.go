// SPDX-License-Identifier: Apache-2.0

package source

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover_ClassifiesByConvention(t *testing.T) {
	fsys := fstest.MapFS{
		"Migrations/20200101-000000-a.sql":     {Data: []byte("CREATE TABLE t(id int);")},
		"Migrations/20200102-000000-b.sql":     {Data: []byte("ALTER TABLE t ADD x int;")},
		"bootstrap.pre.deploy.sql":             {Data: []byte("INSERT INTO bootstrap VALUES (1);")},
		"cleanup.post.deploy.sql":              {Data: []byte("UPDATE bootstrap SET done=1;")},
		"seed.post.database.create.sql":        {Data: []byte("INSERT INTO dbex_seed VALUES (1);")},
		"Schema/dbo/views/ActiveUsers.sql":      {Data: []byte("CREATE VIEW dbo.ActiveUsers AS SELECT 1;")},
		"Data/Ref.yaml":                         {Data: []byte("Ref: []")},
		"README.md":                             {Data: []byte("not a script")},
	}

	src := New(fsys)
	refs, err := src.Discover()
	require.NoError(t, err)

	byKind := map[Kind][]string{}
	for _, r := range refs {
		byKind[r.Kind] = append(byKind[r.Kind], r.Name)
	}

	assert.Equal(t, []string{"20200101-000000-a.sql", "20200102-000000-b.sql"}, byKind[KindMigrate])
	assert.Equal(t, []string{"bootstrap.pre.deploy.sql"}, byKind[KindPreDeploy])
	assert.Equal(t, []string{"cleanup.post.deploy.sql"}, byKind[KindPostDeploy])
	assert.Equal(t, []string{"seed.post.database.create.sql"}, byKind[KindPostDatabaseCreate])
	assert.Equal(t, []string{"Schema/dbo/views/ActiveUsers.sql"}, byKind[KindSchema])
	assert.Equal(t, []string{"Ref.yaml"}, byKind[KindData])
	assert.NotContains(t, byKind, KindReset)
}

func TestDiscover_FirstRootWins(t *testing.T) {
	primary := fstest.MapFS{
		"Migrations/a.sql": {Data: []byte("-- primary")},
	}
	fallback := fstest.MapFS{
		"Migrations/a.sql": {Data: []byte("-- fallback")},
	}

	src := New(primary, fallback)
	refs, err := src.Discover()
	require.NoError(t, err)
	require.Len(t, refs, 1)

	f, err := refs[0].Open()
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, 64)
	n, _ := f.Read(buf)
	assert.Contains(t, string(buf[:n]), "primary")
}
