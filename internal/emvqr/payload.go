package emvqr

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Top-level tags.
const (
	TagPayloadFormat    = "00"
	TagInitiationMethod = "01"
	TagMerchantAccount  = "26"
	TagCategoryCode     = "52"
	TagCurrency         = "53"
	TagAmount           = "54"
	TagCountry          = "58"
	TagMerchantName     = "59"
	TagMerchantCity     = "60"
	TagAdditionalData   = "62"
	TagCRC              = "63"
)

// Sub-tags of the merchant account template (26).
const (
	TagSchemeID    = "00"
	TagMerchantID  = "01"
	TagAccountName = "02"
)

// Sub-tags of the additional data template (62).
const (
	TagBillNumber     = "01"
	TagReferenceLabel = "05"
)

const (
	PayloadFormatVersion = "01"
	InitiationDynamic    = "12"
	SchemeQRPH           = "PH.QR.01"
	CategoryRetail       = "5999"
	CountryPH            = "PH"

	MaxNameLen       = 25
	MaxReferenceLen  = 25
	MaxCityLen       = 15
	MaxMerchantIDLen = 50
	MaxBillNumberLen = 25
	MaxAmountLen     = 13
)

var ErrFieldTooLong = errors.New("emvqr: field too long")

const (
	defaultMerchantID   = "MERCHANT001"
	defaultMerchantName = "Your Business Name"
	defaultMerchantCity = "Manila"
	defaultCurrency     = "608"
)

var numericCurrencies = map[string]string{
	"PHP": "608",
}

// NumericCurrency maps an alphabetic ISO 4217 code to its numeric form.
// Unsupported codes fall back to PHP.
func NumericCurrency(code string) string {
	if n, ok := numericCurrencies[code]; ok {
		return n
	}
	return defaultCurrency
}

// Supported reports whether code can be carried in tag 53.
func Supported(code string) bool {
	_, ok := numericCurrencies[code]
	return ok
}

type Merchant struct {
	ID   string
	Name string
	City string
}

func (m Merchant) withDefaults() Merchant {
	if m.ID == "" {
		m.ID = defaultMerchantID
	}
	if m.Name == "" {
		m.Name = defaultMerchantName
	}
	if m.City == "" {
		m.City = defaultMerchantCity
	}
	return m
}

// Descriptor is the payment a payload describes. Fields does not validate
// it; use Check first.
type Descriptor struct {
	TransactionID string
	Amount        decimal.Decimal
	Currency      string
	Merchant      Merchant
	Description   string
}

// Fields lays out the descriptor as ordered EMV fields, without the checksum.
func Fields(d Descriptor) []Field {
	m := d.Merchant.withDefaults()
	name := truncate(m.Name, MaxNameLen)

	return []Field{
		{Tag: TagPayloadFormat, Value: PayloadFormatVersion},
		{Tag: TagInitiationMethod, Value: InitiationDynamic},
		{Tag: TagMerchantAccount, Sub: []Field{
			{Tag: TagSchemeID, Value: SchemeQRPH},
			{Tag: TagMerchantID, Value: truncate(m.ID, MaxMerchantIDLen)},
			{Tag: TagAccountName, Value: name},
		}},
		{Tag: TagCategoryCode, Value: CategoryRetail},
		{Tag: TagCurrency, Value: NumericCurrency(d.Currency)},
		{Tag: TagAmount, Value: d.Amount.StringFixed(2)},
		{Tag: TagCountry, Value: CountryPH},
		{Tag: TagMerchantName, Value: name},
		{Tag: TagMerchantCity, Value: truncate(m.City, MaxCityLen)},
		{Tag: TagAdditionalData, Sub: []Field{
			{Tag: TagBillNumber, Value: truncate(d.TransactionID, MaxBillNumberLen)},
			{Tag: TagReferenceLabel, Value: truncate(d.Description, MaxReferenceLen)},
		}},
	}
}

// Check reports descriptor values that Fields would have to cut short: a
// merchant id or bill number over its limit, or an amount wider than tag 54.
func Check(d Descriptor) error {
	if n := utf8.RuneCountInString(d.Merchant.ID); n > MaxMerchantIDLen {
		return fmt.Errorf("%w: merchant id has %d characters, max %d", ErrFieldTooLong, n, MaxMerchantIDLen)
	}
	if n := utf8.RuneCountInString(d.TransactionID); n > MaxBillNumberLen {
		return fmt.Errorf("%w: transaction id has %d characters, max %d", ErrFieldTooLong, n, MaxBillNumberLen)
	}
	if a := d.Amount.StringFixed(2); len(a) > MaxAmountLen {
		return fmt.Errorf("%w: amount %s exceeds %d characters", ErrFieldTooLong, a, MaxAmountLen)
	}
	return nil
}

// Generate returns the scannable payload string for d.
func Generate(d Descriptor) string {
	return Encode(Fields(d))
}
