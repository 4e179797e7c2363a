package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestT(t *testing.T) {
	require.NoError(t, Init())
	data := map[string]interface{}{"SKU": "TEE-1", "Quantity": 2, "Threshold": 5}

	assert.Equal(t, "TEE-1 is running low: 2 left (threshold 5).", T("en", "StockLowMessage", data))
	assert.Equal(t, "Stok TEE-1 habis.", T("id", "StockOutMessage", data))
	assert.Equal(t, "Out of stock alert: TEE-1", T("fr", "StockOutSubject", data))
	assert.Equal(t, "Unknown", T("en", "Unknown", nil))
}
