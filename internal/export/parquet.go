// Package export flattens decoded 835 records into Parquet tables for
// analytics: one row per claim, per service line and per provider-level
// adjustment group.
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/Rkibbe123/app-datafabric/internal/x12/decode"
	"github.com/Rkibbe123/app-datafabric/internal/x12/remit835"
)

// File names written under the output directory
const (
	ClaimsFile              = "claims.parquet"
	ClaimLinesFile          = "claim_lines.parquet"
	ProviderAdjustmentsFile = "provider_adjustments.parquet"
)

const flushInterval = 50_000

// ClaimRow is one CLP loop
type ClaimRow struct {
	RecordID                    string `parquet:"record_id"`
	InterchangeControlNumber    string `parquet:"interchange_control_number"`
	TransactionControlNumber    string `parquet:"transaction_control_number"`
	Sequence                    int32  `parquet:"sequence"`
	PayerName                   string `parquet:"payer_name"`
	PayerIdentifier             string `parquet:"payer_identifier"`
	PayeeName                   string `parquet:"payee_name"`
	PayeeIdentifier             string `parquet:"payee_identifier"`
	TraceNumber                 string `parquet:"check_or_eft_trace_number"`
	TotalPaymentAmt             string `parquet:"total_actual_provider_payment_amt"`
	CheckIssueOrEFTDate         string `parquet:"check_issue_or_eft_effective_date"`
	PatientControlNumber        string `parquet:"patient_control_number"`
	ClaimStatusCode             string `parquet:"claim_status_code"`
	TotalClaimChargeAmount      string `parquet:"total_claim_charge_amount"`
	ClaimPaymentAmount          string `parquet:"claim_payment_amount"`
	PatientResponsibilityAmount string `parquet:"patient_responsibility_amount"`
	PayerClaimControlNumber     string `parquet:"payer_claim_control_number"`
	PatientLastName             string `parquet:"patient_last_name"`
	PatientFirstName            string `parquet:"patient_first_name"`
	AssignedNum                 string `parquet:"assigned_num"`
	LineCount                   int32  `parquet:"line_count"`
	AdjustmentCount             int32  `parquet:"adjustment_count"`
}

// ClaimLineRow is one SVC loop
type ClaimLineRow struct {
	RecordID             string   `parquet:"record_id"`
	PatientControlNumber string   `parquet:"patient_control_number"`
	LineNumber           int32    `parquet:"line_number"`
	ProcedureCode        string   `parquet:"prcdr_cd"`
	ChargeAmt            string   `parquet:"chrg_amt"`
	PaidAmt              string   `parquet:"paid_amt"`
	RevenueCode          string   `parquet:"rev_cd"`
	Units                string   `parquet:"units"`
	ServiceDate          string   `parquet:"service_date"`
	RemarkCodes          []string `parquet:"remark_codes,list"`
	AdjustmentReasons    []string `parquet:"adjustment_reasons,list"`
}

// ProviderAdjustmentRow is one reason/amount group of a PLB segment
type ProviderAdjustmentRow struct {
	InterchangeControlNumber string  `parquet:"interchange_control_number"`
	TransactionControlNumber string  `parquet:"transaction_control_number"`
	ProviderIdentifier       string  `parquet:"provider_identifier"`
	FiscalPeriodDate         string  `parquet:"fiscal_period_date"`
	Slot                     int32   `parquet:"slot"`
	ReasonCode               string  `parquet:"reason_cd"`
	ReferenceID              *string `parquet:"reference_id,optional"`
	Amount                   *string `parquet:"amt,optional"`
}

type table[T any] struct {
	file   *os.File
	writer *parquet.GenericWriter[T]
	count  int
}

func openTable[T any](path string) (*table[T], error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet file: %w", err)
	}
	return &table[T]{
		file: file,
		writer: parquet.NewGenericWriter[T](file,
			parquet.Compression(&parquet.Snappy),
			parquet.CreatedBy("x12-decode", "0.1.0", ""),
		),
	}, nil
}

func (t *table[T]) write(rows ...T) error {
	if len(rows) == 0 {
		return nil
	}
	if _, err := t.writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	before := t.count
	t.count += len(rows)
	// bound memory by closing a row group every flushInterval rows
	if t.count/flushInterval != before/flushInterval {
		if err := t.writer.Flush(); err != nil {
			return fmt.Errorf("failed to flush parquet row group: %w", err)
		}
	}
	return nil
}

func (t *table[T]) close() error {
	if err := t.writer.Close(); err != nil {
		t.file.Close()
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return t.file.Close()
}

// Writer writes the three remittance tables into one directory. It is not
// safe for concurrent use.
type Writer struct {
	claims      *table[ClaimRow]
	lines       *table[ClaimLineRow]
	adjustments *table[ProviderAdjustmentRow]
}

// NewWriter creates dir if needed and opens the three table files in it.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create parquet dir: %w", err)
	}
	w := &Writer{}
	var err error
	if w.claims, err = openTable[ClaimRow](filepath.Join(dir, ClaimsFile)); err != nil {
		return nil, err
	}
	if w.lines, err = openTable[ClaimLineRow](filepath.Join(dir, ClaimLinesFile)); err != nil {
		w.claims.close()
		return nil, err
	}
	if w.adjustments, err = openTable[ProviderAdjustmentRow](filepath.Join(dir, ProviderAdjustmentsFile)); err != nil {
		w.claims.close()
		w.lines.close()
		return nil, err
	}
	return w, nil
}

// WriteRecord flattens rec when it is a remittance and ignores it otherwise.
// Provider adjustments belong to the transaction, so they are written once,
// from the record with sequence 0.
func (w *Writer) WriteRecord(rec decode.Record) error {
	rem, ok := rec.Document.(decode.Remittance)
	if !ok {
		return nil
	}
	doc := rem.Document()

	if err := w.claims.write(claimRow(rec, doc)); err != nil {
		return err
	}
	if err := w.lines.write(lineRows(rec.ID, doc.Claim)...); err != nil {
		return err
	}
	if rec.Sequence == 0 {
		return w.adjustments.write(adjustmentRows(rec, doc.ProviderAdjustments)...)
	}
	return nil
}

// Counts returns rows written to the claims, claim lines and provider
// adjustments tables.
func (w *Writer) Counts() (claims, lines, adjustments int) {
	return w.claims.count, w.lines.count, w.adjustments.count
}

// Close flushes and closes every table.
func (w *Writer) Close() error {
	var first error
	for _, closeFn := range []func() error{w.claims.close, w.lines.close, w.adjustments.close} {
		if err := closeFn(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func claimRow(rec decode.Record, doc remit835.Document) ClaimRow {
	c := doc.Claim
	return ClaimRow{
		RecordID:                    rec.ID,
		InterchangeControlNumber:    rec.InterchangeControl,
		TransactionControlNumber:    rec.TransactionControl,
		Sequence:                    int32(rec.Sequence),
		PayerName:                   doc.Payer.PayerName,
		PayerIdentifier:             doc.Payer.PayerIdentifier,
		PayeeName:                   doc.Payee.PayeeName,
		PayeeIdentifier:             doc.Payee.PayeeIdentifier,
		TraceNumber:                 doc.Payment.TRN.CheckOrEFTTraceNumber,
		TotalPaymentAmt:             doc.Payment.BPR.TotalActualProviderPaymentAmt,
		CheckIssueOrEFTDate:         doc.Payment.BPR.CheckIssueOrEFTEffectiveDate,
		PatientControlNumber:        c.CLP.PatientControlNumber,
		ClaimStatusCode:             c.CLP.ClaimStatusCode,
		TotalClaimChargeAmount:      c.CLP.TotalClaimChargeAmount,
		ClaimPaymentAmount:          c.CLP.ClaimPaymentAmount,
		PatientResponsibilityAmount: c.CLP.PatientResponsibilityAmount,
		PayerClaimControlNumber:     c.CLP.PayerClaimControlNumber,
		PatientLastName:             c.FirstNM1Patient.LastNameOrOrganization,
		PatientFirstName:            c.FirstNM1Patient.FirstName,
		AssignedNum:                 doc.HeaderInfo.AssignedNum,
		LineCount:                   int32(len(c.Lines)),
		AdjustmentCount:             int32(len(c.Adjustments)),
	}
}

func lineRows(recordID string, c remit835.Claim) []ClaimLineRow {
	rows := make([]ClaimLineRow, 0, len(c.Lines))
	for i, l := range c.Lines {
		row := ClaimLineRow{
			RecordID:             recordID,
			PatientControlNumber: c.CLP.PatientControlNumber,
			LineNumber:           int32(i + 1),
			ProcedureCode:        l.Details.PrcdrCd,
			ChargeAmt:            l.Details.ChrgAmt,
			PaidAmt:              l.Details.PaidAmt,
			RevenueCode:          l.Details.RevCd,
			Units:                l.Details.Units,
			ServiceDate:          l.Dates.Date,
			RemarkCodes:          []string{},
			AdjustmentReasons:    []string{},
		}
		for _, r := range l.Remarks {
			row.RemarkCodes = append(row.RemarkCodes, r.RemarkCd)
		}
		for _, a := range l.Adjustments {
			for _, reason := range []string{a.ReasonCd1, a.ReasonCd2, a.ReasonCd3, a.ReasonCd4, a.ReasonCd5, a.ReasonCd6} {
				if reason != "" {
					row.AdjustmentReasons = append(row.AdjustmentReasons, a.GroupCode+"-"+reason)
				}
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func adjustmentRows(rec decode.Record, plbs []remit835.ProviderAdjustment) []ProviderAdjustmentRow {
	var rows []ProviderAdjustmentRow
	for _, p := range plbs {
		groups := [][3]*string{
			{p.ReasonCd1, p.ID1, p.Amt1},
			{p.ReasonCd2, p.ID2, p.Amt2},
			{p.ReasonCd3, p.ID3, p.Amt3},
			{p.ReasonCd4, p.ID4, p.Amt4},
			{p.ReasonCd5, p.ID5, p.Amt5},
			{p.ReasonCd6, p.ID6, p.Amt6},
		}
		for i, g := range groups {
			if g[0] == nil {
				continue
			}
			rows = append(rows, ProviderAdjustmentRow{
				InterchangeControlNumber: rec.InterchangeControl,
				TransactionControlNumber: rec.TransactionControl,
				ProviderIdentifier:       p.ProviderIdentifier,
				FiscalPeriodDate:         p.FiscalPeriodDate,
				Slot:                     int32(i + 1),
				ReasonCode:               *g[0],
				ReferenceID:              g[1],
				Amount:                   g[2],
			})
		}
	}
	return rows
}
