package x12

import (
	"errors"
	"strings"
	"testing"
)

func frameRaw(t *testing.T, body ...string) *Interchange {
	t.Helper()
	segs, _, err := TokenizeDetect(isaHeader + strings.Join(body, "~") + "~")
	if err != nil {
		t.Fatalf("TokenizeDetect: %v", err)
	}
	return Frame(segs)
}

func TestFrameWellFormed(t *testing.T) {
	ic := frameRaw(t,
		"GS*HP*SUBMITTER*RECEIVER*20231016*1200*1*X*005010X221A1",
		"ST*835*0001*005010X221A1", "BPR*I*100", "SE*3*0001",
		"ST*835*0002*005010X221A1", "BPR*I*200", "SE*3*0002",
		"GE*2*1",
		"IEA*1*000000001",
	)

	if len(ic.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", ic.Errors)
	}
	if ic.Header.SenderID != "SUBMITTER" || ic.Header.ReceiverID != "RECEIVER" {
		t.Errorf("ISA ids = %q / %q", ic.Header.SenderID, ic.Header.ReceiverID)
	}
	if ic.Header.ControlNumber != "000000001" || ic.Header.UsageIndicator != "P" {
		t.Errorf("ISA header = %+v", ic.Header)
	}
	if len(ic.Groups) != 1 {
		t.Fatalf("got %d groups", len(ic.Groups))
	}
	g := ic.Groups[0]
	if g.Header.FunctionalID != "HP" || g.Header.Version != "005010X221A1" || g.Implicit {
		t.Errorf("group header = %+v", g.Header)
	}

	txs := ic.Transactions()
	if len(txs) != 2 {
		t.Fatalf("got %d transactions", len(txs))
	}
	ts := txs[1]
	if ts.Code != "835" || ts.ControlNumber != "0002" || ts.ConventionReference != "005010X221A1" {
		t.Errorf("transaction header = %q %q %q", ts.Code, ts.ControlNumber, ts.ConventionReference)
	}
	if ts.Segments[0].ID() != "ST" || ts.Segments[len(ts.Segments)-1].ID() != "SE" {
		t.Errorf("transaction range = %s", ids(ts.Segments))
	}
	if ts.Start != 5 {
		t.Errorf("Start = %d, want 5", ts.Start)
	}
}

func TestFrameMissingSEKeepsSiblings(t *testing.T) {
	ic := frameRaw(t,
		"GS*HP*S*R*20231016*1200*7*X*005010X221A1",
		"ST*835*0001", "BPR*I*100",
		"ST*835*0002", "BPR*I*200", "SE*3*0002",
		"GE*2*7",
		"IEA*1*000000001",
	)

	if len(ic.Errors) != 1 {
		t.Fatalf("got %d errors: %v", len(ic.Errors), ic.Errors)
	}
	e := ic.Errors[0]
	if e.Unit != UnitTransactionSet || e.ControlNumber != "0001" || e.Expected != "SE" || e.Found != "ST" || e.Index != 4 {
		t.Errorf("error = %+v", e)
	}

	txs := ic.Transactions()
	if len(txs) != 1 || txs[0].ControlNumber != "0002" {
		t.Fatalf("transactions = %+v", txs)
	}
}

func TestFrameMissingGEAndIEA(t *testing.T) {
	ic := frameRaw(t,
		"GS*HP*S*R*20231016*1200*1*X*005010X221A1",
		"ST*835*0001", "SE*2*0001",
		"GS*HC*S*R*20231016*1200*2*X*005010X222A1",
		"ST*837*0002", "SE*2*0002",
		"GE*1*2",
	)

	var units []string
	for _, e := range ic.Errors {
		units = append(units, e.Unit+":"+e.Expected)
	}
	want := []string{UnitFunctionalGroup + ":GE", UnitInterchange + ":IEA"}
	if strings.Join(units, ",") != strings.Join(want, ",") {
		t.Fatalf("errors = %v, want %v", units, want)
	}
	if ic.Errors[0].ControlNumber != "1" {
		t.Errorf("group error control number = %q", ic.Errors[0].ControlNumber)
	}
	if got := ic.Errors[1].Error(); !strings.Contains(got, "end of interchange") {
		t.Errorf("IEA error text = %q", got)
	}
	if len(ic.Transactions()) != 2 {
		t.Errorf("got %d transactions, want 2", len(ic.Transactions()))
	}
}

func TestFrameImplicitGroup(t *testing.T) {
	segs := Tokenize("ST*835*0001~BPR*I*1~SE*3*0001~", DefaultDelimiters())
	ic := Frame(segs)

	if len(ic.Errors) != 1 || ic.Errors[0].Expected != "ISA" {
		t.Fatalf("errors = %v", ic.Errors)
	}
	if len(ic.Groups) != 1 || !ic.Groups[0].Implicit {
		t.Fatalf("groups = %+v", ic.Groups)
	}
	if len(ic.Groups[0].Transactions) != 1 {
		t.Errorf("implicit group holds %d transactions", len(ic.Groups[0].Transactions))
	}
}

func TestFrameStraySE(t *testing.T) {
	ic := frameRaw(t, "GS*HP*S*R*D*T*1*X*V", "SE*2*0009", "GE*0*1", "IEA*1*000000001")
	if len(ic.Errors) != 1 {
		t.Fatalf("errors = %v", ic.Errors)
	}
	if e := ic.Errors[0]; e.Expected != "ST" || e.ControlNumber != "0009" {
		t.Errorf("error = %+v", e)
	}
}

func TestNewTransactionSetContract(t *testing.T) {
	segs := Tokenize("BPR*I*1~SE*2*0001~", DefaultDelimiters())
	_, err := NewTransactionSet(segs, 0)

	var ce *ContractError
	if !errors.As(err, &ce) {
		t.Fatalf("got %v, want ContractError", err)
	}
	if !errors.Is(err, ErrNotTransactionSet) {
		t.Errorf("ContractError does not wrap ErrNotTransactionSet")
	}
	if (TransactionSet{}).Validate() == nil {
		t.Error("zero TransactionSet should not validate")
	}
}

func TestFrameIdempotent(t *testing.T) {
	body := []string{"GS*HP*S*R*D*T*1*X*V", "ST*835*0001", "CLP*A*1", "SE*3*0001", "GE*1*1", "IEA*1*000000001"}
	a, b := frameRaw(t, body...), frameRaw(t, body...)
	if len(a.Transactions()) != len(b.Transactions()) {
		t.Fatal("framing differs between runs")
	}
	for i := range a.Transactions() {
		if ids(a.Transactions()[i].Segments) != ids(b.Transactions()[i].Segments) {
			t.Errorf("transaction %d differs", i)
		}
	}
}

func TestReadInterchangeHeader(t *testing.T) {
	h, err := ReadInterchangeHeader("\r\n" + isaHeader + "GS*HP~")
	if err != nil {
		t.Fatalf("ReadInterchangeHeader: %v", err)
	}
	if h.SenderID != "SUBMITTER" || h.ReceiverID != "RECEIVER" || h.ControlNumber != "000000001" {
		t.Errorf("header = %+v", h)
	}
	if _, err := ReadInterchangeHeader("GS*HP~"); !errors.Is(err, ErrMissingISA) {
		t.Errorf("expected ErrMissingISA, got %v", err)
	}
}
