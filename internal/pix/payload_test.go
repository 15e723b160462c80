package pix

import (
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAccount = Account{
	Key:          "igorwagner@gmail.com",
	MerchantName: "IGOR WAGNER",
	MerchantCity: "BRASIL",
}

func TestEncode_GoldenPayloads(t *testing.T) {
	tests := []struct {
		name    string
		account Account
		amount  string
		want    string
	}{
		{
			"default account 30.00",
			testAccount,
			"30.00",
			"00020126420014br.gov.bcb.pix0120igorwagner@gmail.com520400005303986540530.005802BR5911IGOR WAGNER6006BRASIL62070503***630458BB",
		},
		{
			"default account 100.00",
			testAccount,
			"100.00",
			"00020126420014br.gov.bcb.pix0120igorwagner@gmail.com5204000053039865406100.005802BR5911IGOR WAGNER6006BRASIL62070503***630418FC",
		},
		{
			"phone key other merchant",
			Account{Key: "+5547999990000", MerchantName: "Açaí do João", MerchantCity: "Joinville"},
			"45.90",
			"00020126360014br.gov.bcb.pix0114+5547999990000520400005303986540545.905802BR5912ACAI DO JOAO6009JOINVILLE62070503***6304FDA3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.account, decimal.RequireFromString(tt.amount))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode_Deterministic(t *testing.T) {
	amount := decimal.RequireFromString("12.34")
	first, err := Encode(testAccount, amount)
	require.NoError(t, err)
	second, err := Encode(testAccount, amount)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEncode_RejectsBadInput(t *testing.T) {
	_, err := Encode(testAccount, decimal.Zero)
	assert.Error(t, err)

	_, err = Encode(testAccount, decimal.RequireFromString("-1"))
	assert.Error(t, err)

	_, err = Encode(Account{MerchantName: "X", MerchantCity: "Y"}, decimal.RequireFromString("10"))
	assert.Error(t, err)
}

func TestEncode_AmountRoundTrip(t *testing.T) {
	for _, raw := range []string{"0.90", "45.00", "137.70", "9999.99"} {
		payload, err := Encode(testAccount, decimal.RequireFromString(raw))
		require.NoError(t, err)

		fields := decodeTLV(t, payload)
		assert.Equal(t, raw, fields["54"])
		assert.Equal(t, "01", fields["00"])
		assert.Equal(t, "BR", fields["58"])
		assert.Equal(t, "IGOR WAGNER", fields["59"])
		assert.Equal(t, "BRASIL", fields["60"])
	}
}

// decodeTLV walks the top-level tag/length/value sequence of a payload.
func decodeTLV(t *testing.T, payload string) map[string]string {
	t.Helper()
	fields := make(map[string]string)
	for i := 0; i < len(payload); {
		require.GreaterOrEqual(t, len(payload)-i, 4, "truncated TLV at %d", i)
		tag := payload[i : i+2]
		length, err := strconv.Atoi(payload[i+2 : i+4])
		require.NoError(t, err)
		require.LessOrEqual(t, i+4+length, len(payload))
		fields[tag] = payload[i+4 : i+4+length]
		i += 4 + length
	}
	return fields
}

func TestSanitizeMerchantField(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"diacritics stripped", "São Paulo", 15, "SAO PAULO"},
		{"punctuation dropped", "Igor-Wagner & Cia.", 25, "IGORWAGNER  CIA"},
		{"truncated to limit", "UM NOME DE LOJA MUITO COMPRIDO MESMO", 25, "UM NOME DE LOJA MUITO COM"},
		{"digits kept", "Loja 21", 15, "LOJA 21"},
		{"empty", "", 15, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeMerchantField(tt.in, tt.limit)
			assert.Equal(t, tt.want, got)
			// sanitizing a sanitized value is a no-op
			assert.Equal(t, got, SanitizeMerchantField(got, tt.limit))
		})
	}
}
