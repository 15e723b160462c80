package pix

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/igorwgn/vitrine/pkg/errorbank"
)

// EMV tags of the merchant-presented BR Code, in the order the arrangement
// requires them to appear.
const (
	tagPayloadFormat      = "00"
	tagMerchantAccount    = "26"
	tagAmount             = "54"
	tagMerchantName       = "59"
	tagMerchantCity       = "60"
	tagAdditionalData     = "62"
	tagCRC                = "63"
	subTagGUI             = "00"
	subTagKey             = "01"
	subTagReference       = "05"
	pixGUI                = "br.gov.bcb.pix"
	staticReference       = "***"
	payloadFormatValue    = "01"
	merchantCategoryNone  = "52040000"
	currencyBRL           = "5303986"
	countryBR             = "5802BR"
	maxMerchantNameLength = 25
	maxMerchantCityLength = 15
)

// Account identifies the fixed receiving side of every generated code.
type Account struct {
	Key          string
	MerchantName string
	MerchantCity string
}

// Encode builds a static merchant-presented PIX payload for the given amount.
// The output is the exact byte sequence a banking app scans: deviating from
// the tag order or length framing makes the code unreadable even when every
// value is correct.
func Encode(account Account, amount decimal.Decimal) (string, error) {
	if amount.Sign() <= 0 {
		return "", errorbank.BadRequest("pix amount must be positive")
	}
	if account.Key == "" {
		return "", errorbank.BadRequest("pix key is required")
	}

	name := SanitizeMerchantField(account.MerchantName, maxMerchantNameLength)
	city := SanitizeMerchantField(account.MerchantCity, maxMerchantCityLength)

	merchantAccount := tlv(tagMerchantAccount,
		tlv(subTagGUI, pixGUI)+tlv(subTagKey, account.Key))
	additionalData := tlv(tagAdditionalData, tlv(subTagReference, staticReference))

	var b strings.Builder
	b.WriteString(tlv(tagPayloadFormat, payloadFormatValue))
	b.WriteString(merchantAccount)
	b.WriteString(merchantCategoryNone)
	b.WriteString(currencyBRL)
	b.WriteString(tlv(tagAmount, amount.StringFixed(2)))
	b.WriteString(countryBR)
	b.WriteString(tlv(tagMerchantName, name))
	b.WriteString(tlv(tagMerchantCity, city))
	b.WriteString(additionalData)
	b.WriteString(tagCRC + "04")

	payload := b.String()
	return payload + Checksum(payload), nil
}

// tlv frames a value as 2-digit tag, 2-digit zero-padded length, value.
func tlv(tag, value string) string {
	return fmt.Sprintf("%s%02d%s", tag, len(value), value)
}

var stripDiacritics = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// SanitizeMerchantField normalizes a merchant name or city for the payload:
// diacritics removed, anything outside [A-Za-z0-9 ] dropped, uppercased and
// truncated to the field limit. Sanitizing twice yields the same result.
func SanitizeMerchantField(value string, limit int) string {
	plain, _, err := transform.String(stripDiacritics, value)
	if err != nil {
		plain = value
	}

	var b strings.Builder
	for _, r := range plain {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(unicode.ToUpper(r))
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		}
	}

	out := b.String()
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
