package importer

import (
	"encoding/json"
	"testing"

	"crm-web/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitPaymentOffering(t *testing.T) {
	assert.Equal(t, []string{"UPI Payments", "Online Payments"}, SplitPaymentOffering("UPI Payments, Online Payments"))
	assert.Equal(t, []string{"Cards"}, SplitPaymentOffering(" , Cards,,"))
	assert.Empty(t, SplitPaymentOffering(""))
}

func TestBuildClientPayload(t *testing.T) {
	result, err := ParseRows([][]string{TemplateHeaders(), acmeRow()})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	payload, err := BuildClientPayload(result.Rows[0])
	require.NoError(t, err)

	assert.Equal(t, "Acme Co", payload.Name)
	assert.Empty(t, payload.Website)
	assert.Empty(t, payload.Country)

	var notes models.ClientNotes
	require.NoError(t, json.Unmarshal([]byte(payload.Notes), &notes))
	assert.Equal(t, []string{"UPI Payments", "Online Payments"}, notes.PaymentOffering)
	assert.Equal(t, "LinkedIn-Inbound", notes.Source)
	assert.Equal(t, "enterprise", notes.ClientType)
	assert.Equal(t, "Domestic", notes.ClientGeography)
	assert.Equal(t, "0.5", notes.TxnVolume)
	assert.Equal(t, "tag1", notes.ProductTagInfo)
	assert.Empty(t, notes.Contacts)
}

func TestBuildClientPayload_TopLevelAndContact(t *testing.T) {
	website := "https://acme.example"
	city := "Pune"
	row := models.ImportClientRow{
		Row:        2,
		ClientName: "Acme Co",
		Website:    &website,
		City:       &city,
		Contact:    &models.Contact{Name: "Jane", Email: "jane@acme.example"},
	}

	payload, err := BuildClientPayload(row)
	require.NoError(t, err)
	assert.Equal(t, website, payload.Website)
	assert.Equal(t, city, payload.City)

	var notes models.ClientNotes
	require.NoError(t, json.Unmarshal([]byte(payload.Notes), &notes))
	require.Len(t, notes.Contacts, 1)
	assert.Equal(t, "Jane", notes.Contacts[0].Name)
}
