// Package ofx parses OFX/QFX statement files into ledger transaction
// records, as an offline alternative to the Plaid source.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"

	"github.com/Veraticus/tally/internal/model"
	"github.com/Veraticus/tally/internal/service"
)

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// Fix mixed-case SEVERITY values (should be INFO, WARN, or ERROR)
	severityRegex := regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	content = severityRegex.ReplaceAllStringFunc(content, func(match string) string {
		return strings.ToUpper(match)
	})

	// Fix missing closing angle brackets in SGML-style OFX files
	tagFixRegex := regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	content = tagFixRegex.ReplaceAllString(content, "$1>")

	return content
}

// ParseFile parses an OFX/QFX file and returns transaction records.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]model.TransactionRecord, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	processedContent := p.preprocessOFX(string(content))

	resp, err := ofxgo.ParseResponse(strings.NewReader(processedContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var transactions []model.TransactionRecord
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			if stmt.BankTranList == nil {
				continue
			}
			accountID := string(stmt.BankAcctFrom.AcctID)
			for _, ofxTx := range stmt.BankTranList.Transactions {
				transactions = append(transactions, p.convertTransaction(ofxTx, accountID))
			}
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			if stmt.BankTranList == nil {
				continue
			}
			accountID := string(stmt.CCAcctFrom.AcctID)
			for _, ofxTx := range stmt.BankTranList.Transactions {
				transactions = append(transactions, p.convertTransaction(ofxTx, accountID))
			}
		}
	}

	slog.Info("Parsed OFX file",
		"total_transactions", len(transactions),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return transactions, nil
}

// convertTransaction converts an OFX transaction to a ledger record.
// OFX reports debits as negative amounts; the sign convention for
// ledger records is purchases positive, so the sign is flipped.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, accountID string) model.TransactionRecord {
	amount, _ := ofxTx.TrnAmt.Float64()

	tx := model.TransactionRecord{
		ID:        string(ofxTx.FiTID),
		Date:      ofxTx.DtPosted.Time,
		Merchant:  p.extractMerchantName(ofxTx),
		Amount:    -amount,
		AccountID: accountID,
	}

	// Some institutions omit FITID; fall back to a content hash so the
	// record still carries a stable identifier.
	if tx.ID == "" {
		tx.ID = tx.GenerateHash()
	}

	return tx
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	// Prefer PAYEE if available (cleaner merchant name)
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := string(tx.Name)

	// Use MEMO field if NAME is generic
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}

	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	}

	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Clean up date patterns like "MM/DD" at the beginning
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

// isGenericDescription checks if a transaction name is too generic.
func isGenericDescription(name string) bool {
	generic := []string{
		"DEBIT",
		"CREDIT",
		"PURCHASE",
		"PAYMENT",
		"POS TRANSACTION",
		"CARD PURCHASE",
	}

	upperName := strings.ToUpper(name)
	for _, g := range generic {
		if upperName == g {
			return true
		}
	}
	return false
}

// FileSource adapts a statement file on disk to the LedgerSource
// interface, filtering parsed transactions to the requested range.
type FileSource struct {
	parser *Parser
	path   string
}

// NewFileSource creates a ledger source reading from an OFX/QFX file.
func NewFileSource(path string) *FileSource {
	return &FileSource{parser: NewParser(), path: path}
}

// GetTransactions parses the statement file and returns transactions
// posted within the date range (inclusive).
func (s *FileSource) GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]model.TransactionRecord, error) {
	f, err := os.Open(s.path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to open statement file: %w", err)
	}
	defer func() { _ = f.Close() }()

	all, err := s.parser.ParseFile(ctx, f)
	if err != nil {
		return nil, err
	}

	filtered := make([]model.TransactionRecord, 0, len(all))
	for _, tx := range all {
		if tx.Date.Before(startDate) || tx.Date.After(endDate) {
			continue
		}
		filtered = append(filtered, tx)
	}

	return filtered, nil
}

var _ service.LedgerSource = (*FileSource)(nil)
