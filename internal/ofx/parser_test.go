package ofx

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20250715120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20250601120000[0:GMT]
<DTEND>20250630120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20250615120000[0:GMT]
<TRNAMT>-25.50
<FITID>2025061501
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20250620120000[0:GMT]
<TRNAMT>-125.00
<FITID>2025062001
<NAME>Whole Foods Market
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20250625120000[0:GMT]
<TRNAMT>60.00
<FITID>2025062501
<NAME>REFUND AMAZON.COM
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20250630120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20250715120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>USD
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20250601120000[0:GMT]
<DTEND>20250630120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20250610120000[0:GMT]
<TRNAMT>-45.99
<FITID>CC2025061001
<NAME>AMAZON.COM*RT4Y7HG2
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20250615120000[0:GMT]
<TRNAMT>-15.00
<FITID>CC2025061501
<NAME>NETFLIX.COM
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500.00
<DTASOF>20250630120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParseFile(t *testing.T) {
	tests := []struct {
		name          string
		ofxData       string
		expectedCount int
		expectedError bool
	}{
		{
			name:          "valid bank statement",
			ofxData:       sampleBankOFX,
			expectedCount: 3,
			expectedError: false,
		},
		{
			name:          "valid credit card statement",
			ofxData:       sampleCreditCardOFX,
			expectedCount: 2,
			expectedError: false,
		},
		{
			name:          "invalid OFX data",
			ofxData:       "not valid OFX",
			expectedCount: 0,
			expectedError: true,
		},
		{
			name:          "empty OFX",
			ofxData:       "",
			expectedCount: 0,
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser()
			reader := strings.NewReader(tt.ofxData)

			transactions, err := parser.ParseFile(context.Background(), reader)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Len(t, transactions, tt.expectedCount)
			}
		})
	}
}

func TestParseBankTransactions(t *testing.T) {
	parser := NewParser()
	reader := strings.NewReader(sampleBankOFX)

	transactions, err := parser.ParseFile(context.Background(), reader)
	require.NoError(t, err)
	require.Len(t, transactions, 3)

	// OFX reports debits negative; ledger records are purchases positive
	tx1 := transactions[0]
	assert.Equal(t, "2025061501", tx1.ID)
	assert.Equal(t, "STARBUCKS STORE #1234", tx1.Merchant)
	assert.InDelta(t, 25.50, tx1.Amount, 0.0001)
	assert.Equal(t, "1234567890", tx1.AccountID)
	assert.Equal(t, 2025, tx1.Date.Year())
	assert.Equal(t, time.June, tx1.Date.Month())
	assert.Equal(t, 15, tx1.Date.Day())

	tx2 := transactions[1]
	assert.Equal(t, "2025062001", tx2.ID)
	assert.Equal(t, "Whole Foods Market", tx2.Merchant)
	assert.InDelta(t, 125.00, tx2.Amount, 0.0001)

	// credits flip the other way: a refund comes out negative
	tx3 := transactions[2]
	assert.Equal(t, "2025062501", tx3.ID)
	assert.InDelta(t, -60.00, tx3.Amount, 0.0001)
}

func TestParseCreditCardTransactions(t *testing.T) {
	parser := NewParser()
	reader := strings.NewReader(sampleCreditCardOFX)

	transactions, err := parser.ParseFile(context.Background(), reader)
	require.NoError(t, err)
	require.Len(t, transactions, 2)

	tx1 := transactions[0]
	assert.Equal(t, "CC2025061001", tx1.ID)
	assert.Equal(t, "AMAZON.COM*RT4Y7HG2", tx1.Merchant)
	assert.InDelta(t, 45.99, tx1.Amount, 0.0001)
	assert.Equal(t, "4111111111111111", tx1.AccountID)

	tx2 := transactions[1]
	assert.Equal(t, "CC2025061501", tx2.ID)
	assert.Equal(t, "NETFLIX.COM", tx2.Merchant)
	assert.InDelta(t, 15.00, tx2.Amount, 0.0001)
}

func TestExtractMerchantName(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name     string
		input    string
		memo     string
		expected string
	}{
		{
			name:     "remove POS prefix",
			input:    "POS PURCHASE STARBUCKS",
			expected: "STARBUCKS",
		},
		{
			name:     "remove DEBIT CARD prefix",
			input:    "DEBIT CARD PURCHASE WHOLE FOODS",
			expected: "WHOLE FOODS",
		},
		{
			name:     "keep clean name",
			input:    "NETFLIX.COM",
			expected: "NETFLIX.COM",
		},
		{
			name:     "trim whitespace",
			input:    "  AMAZON.COM  ",
			expected: "AMAZON.COM",
		},
		{
			name:     "strip leading date",
			input:    "01/15 TRADER JOES",
			expected: "TRADER JOES",
		},
		{
			name:     "memo replaces generic name",
			input:    "DEBIT",
			memo:     "SQ *BLUE BOTTLE COFFEE",
			expected: "SQ *BLUE BOTTLE COFFEE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := ofxgo.Transaction{
				Name: ofxgo.String(tt.input),
				Memo: ofxgo.String(tt.memo),
			}
			result := parser.extractMerchantName(tx)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestConvertTransactionFallbackID(t *testing.T) {
	parser := NewParser()

	tx := ofxgo.Transaction{Name: ofxgo.String("STARBUCKS STORE 441")}

	got := parser.convertTransaction(tx, "acct-1")
	require.NotEmpty(t, got.ID)
	assert.Equal(t, got.GenerateHash(), got.ID)

	// Same content yields the same identifier across parses.
	again := parser.convertTransaction(tx, "acct-1")
	assert.Equal(t, got.ID, again.ID)

	// Different account yields a different identifier.
	other := parser.convertTransaction(tx, "acct-2")
	assert.NotEqual(t, got.ID, other.ID)

	// A provided FITID always wins.
	tx.FiTID = ofxgo.String("2025062801")
	withID := parser.convertTransaction(tx, "acct-1")
	assert.Equal(t, "2025062801", withID.ID)
}

func TestFileSourceFiltersDateRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statement.qfx")
	require.NoError(t, os.WriteFile(path, []byte(sampleBankOFX), 0600))

	source := NewFileSource(path)

	start := time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC)

	transactions, err := source.GetTransactions(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, transactions, 2)
	assert.Equal(t, "2025061501", transactions[0].ID)
	assert.Equal(t, "2025062001", transactions[1].ID)
}

func TestFileSourceMissingFile(t *testing.T) {
	source := NewFileSource(filepath.Join(t.TempDir(), "nope.qfx"))

	_, err := source.GetTransactions(context.Background(), time.Time{}, time.Now())
	assert.Error(t, err)
}
