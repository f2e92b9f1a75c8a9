// pkg/registry/registry_test.go
package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRegistry_Valid(t *testing.T) {
	data := []byte(`{
	  "version": "1.0.0",
	  "elementHierarchy": ["personInfo", "jobInfo"],
	  "categories": [
	    {"id": "personal", "displayName": "Personal", "pathPatterns": ["(?i)person"]}
	  ],
	  "keyModel": {
	    "jobInfo": {"foreignKeys": {"employmentInfo": "user-id"}}
	  },
	  "injectedFields": {"jobInfo": "event-date"}
	}`)

	reg, err := ParseRegistry(data)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", reg.Version)
	assert.Len(t, reg.Categories, 1)

	keys, ok := reg.KeysFor("jobInfo")
	require.True(t, ok)
	assert.Equal(t, "user-id", keys.ForeignKeys["employmentInfo"])

	field, ok := reg.InjectedFieldFor("jobInfo")
	require.True(t, ok)
	assert.Equal(t, "event-date", field)
}

func TestParseRegistry_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "missing version", data: `{"categories": [], "elementHierarchy": []}`},
		{name: "category without id", data: `{"version": "1", "elementHierarchy": [], "categories": [{"displayName": "X"}]}`},
		{name: "not json", data: `hierarchy:`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRegistry([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestHierarchyRank(t *testing.T) {
	reg := Default()

	assert.Less(t, reg.HierarchyRank("personInfo"), reg.HierarchyRank("jobInfo"))
	assert.Less(t, reg.HierarchyRank("jobInfo"), reg.HierarchyRank("homeAddress"))
	// Country-prefixed ids inherit the base element's rank.
	assert.Equal(t, reg.HierarchyRank("homeAddress"), reg.HierarchyRank("MX_homeAddress"))
	// Unlisted elements sort after everything canonical.
	assert.Equal(t, len(reg.ElementHierarchy), reg.HierarchyRank("customElement"))
}

func TestKeysFor_CountryPrefix(t *testing.T) {
	reg := Default()

	keys, ok := reg.KeysFor("MX_homeAddress")
	require.True(t, ok)
	assert.Equal(t, "person-id-external", keys.ForeignKeys["personInfo"])
}
