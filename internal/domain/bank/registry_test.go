package bank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Lookup(t *testing.T) {
	registry := NewDefaultRegistry()

	t.Run("KnownCode", func(t *testing.T) {
		def, err := registry.Lookup("RJHI")
		require.NoError(t, err)
		require.NotNil(t, def)

		assert.Equal(t, "Al Rajhi Bank", def.Name)
		assert.Equal(t, "80", def.IBANPrefix)
		assert.True(t, def.SupportsBulk)
		assert.Equal(t, FileFormatCSV, def.FileFormat)
	})

	t.Run("UnknownCode", func(t *testing.T) {
		def, err := registry.Lookup("NOPE")
		assert.Nil(t, def)
		assert.ErrorIs(t, err, ErrBankNotFound)
	})
}

func TestRegistry_LookupByPrefix(t *testing.T) {
	registry := NewDefaultRegistry()

	t.Run("KnownPrefix", func(t *testing.T) {
		def, err := registry.LookupByPrefix("10")
		require.NoError(t, err)
		assert.Equal(t, "SNB", def.Code)
	})

	t.Run("UnknownPrefix", func(t *testing.T) {
		def, err := registry.LookupByPrefix("99")
		assert.Nil(t, def)
		assert.ErrorIs(t, err, ErrBankNotFound)
	})
}

func TestRegistry_All(t *testing.T) {
	registry := NewDefaultRegistry()

	all := registry.All()
	require.NotEmpty(t, all)
	assert.Len(t, registry.Prefixes(), len(all))

	// every bank must be reachable by both keys
	for _, def := range all {
		byCode, err := registry.Lookup(def.Code)
		require.NoError(t, err)
		assert.Equal(t, def, byCode)

		byPrefix, err := registry.LookupByPrefix(def.IBANPrefix)
		require.NoError(t, err)
		assert.Equal(t, def, byPrefix)
	}
}

func TestFileFormat_Extension(t *testing.T) {
	assert.Equal(t, "csv", FileFormatCSV.Extension())
	assert.Equal(t, "xlsx", FileFormatExcel.Extension())
	assert.Equal(t, "xml", FileFormatXML.Extension())
	assert.Equal(t, "dat", FileFormat("UNKNOWN").Extension())
}

func TestDefinition_AcceptsAccountNumberLength(t *testing.T) {
	def := &Definition{AccountNumberLengths: []int{18, 20}}
	assert.True(t, def.AcceptsAccountNumberLength(18))
	assert.True(t, def.AcceptsAccountNumberLength(20))
	assert.False(t, def.AcceptsAccountNumberLength(16))
}
