package remit835

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/Rkibbe123/app-datafabric/internal/x12"
)

var isa = fmt.Sprintf("ISA*00*%-10s*00*%-10s*ZZ*%-15s*ZZ*%-15s*231016*1200*^*00501*000000905*0*T*:~",
	"", "", "PAYERSENDER", "PROVIDERRCV")

const sample835 = `GS*HP*PAYERSENDER*PROVIDERRCV*20231016*1200*905*X*005010X221A1~
ST*835*35681~
BPR*I*810.8*C*CHK************20231016~
TRN*1*12345*1512345678~
DTM*405*20231015~
N1*PR*ACME HEALTH PLAN~
N3*100 PAYER WAY~
N4*ANYTOWN*TX*75001~
PER*BL*CLAIMS DEPT*TE*8005551212~
REF*2U*999~
N1*PE*GOOD CLINIC*XX*1234567893~
N3*1 CLINIC ST*SUITE 2~
N4*SOMEWHERE*TX*75002~
REF*TJ*123456789~
RDM*EM*BILLING*billing@example.test~
LX*1~
TS3*1234567893*11*20231231*2*1500~
CLP*PCN001*1*1000*810.8*50*12*PAYERCN1*11*1~
CAS*PR*1*50~
NM1*QC*1*DOE*JANE****MI*W123~
NM1*82*1*SMITH*ANNA****XX*1111111112~
MOA***MA01~
REF*F8*ORIGREF~
AMT*AU*1000~
DTM*232*20231001~
DTM*233*20231002~
SVC*HC:99213*600*480**1~
DTM*472*20231001~
CAS*CO*45*100*1*253*20~
AMT*B6*500~
QTY*ZK*1~
LQ*HE*N130~
REF*6R*LINE1~
SVC*HC:85025*400*330.8**1~
DTM*472*20231002~
CAS*CO*45*69.2~
REF*6R*LINE2~
CLP*PCN002*4*200*0*0*12*PAYERCN2*11*1~
NM1*QC*1*ROE*RICHARD~
PLB*1234567893*20231231*WO:INV99*-25.5*L6*12.75~
SE*40*35681~
GE*1*905~
IEA*1*000000905~`

func buildSample(t *testing.T, raw string) []*Remittance {
	t.Helper()
	segs, _, err := x12.TokenizeDetect(isa + raw)
	if err != nil {
		t.Fatalf("TokenizeDetect: %v", err)
	}
	ic := x12.Frame(segs)
	if len(ic.Errors) != 0 {
		t.Fatalf("framing errors: %v", ic.Errors)
	}
	txs := ic.Transactions()
	if len(txs) != 1 {
		t.Fatalf("got %d transactions", len(txs))
	}
	rs, err := Build(txs[0])
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return rs
}

func TestBuildOneRecordPerClaim(t *testing.T) {
	rs := buildSample(t, sample835)
	if len(rs) != 2 {
		t.Fatalf("got %d remittances, want 2", len(rs))
	}

	first := rs[0].Document()
	if first.Claim.CLP.PatientControlNumber != "PCN001" || first.Claim.CLP.ClaimPaymentAmount != "810.8" {
		t.Errorf("CLP = %+v", first.Claim.CLP)
	}
	if got := rs[1].Document().Claim.CLP.PatientControlNumber; got != "PCN002" {
		t.Errorf("second claim = %q", got)
	}

	// Payment, parties and provider adjustments are shared by every claim.
	for i, r := range rs {
		d := r.Document()
		if d.Payment.BPR.TotalActualProviderPaymentAmt != "810.8" || d.Payment.BPR.CheckIssueOrEFTEffectiveDate != "20231016" {
			t.Errorf("record %d BPR = %+v", i, d.Payment.BPR)
		}
		if d.Payment.TRN.CheckOrEFTTraceNumber != "12345" || d.Payment.DTM.DateCode != "405" {
			t.Errorf("record %d TRN/DTM = %+v %+v", i, d.Payment.TRN, d.Payment.DTM)
		}
		if d.Payer.PayerName != "ACME HEALTH PLAN" || d.Payee.PayeeName != "GOOD CLINIC" {
			t.Errorf("record %d parties = %q / %q", i, d.Payer.PayerName, d.Payee.PayeeName)
		}
		if d.HeaderInfo.AssignedNum != "1" || d.HeaderInfo.TS3.TotalClaimChangeAmount != "1500" {
			t.Errorf("record %d header info = %+v", i, d.HeaderInfo)
		}
		if len(d.ProviderAdjustments) != 1 {
			t.Errorf("record %d has %d provider adjustments", i, len(d.ProviderAdjustments))
		}
	}
}

func TestClaimLines(t *testing.T) {
	c := buildSample(t, sample835)[0].Document().Claim

	if len(c.Lines) != 2 {
		t.Fatalf("got %d claim lines, want 2", len(c.Lines))
	}
	l1, l2 := c.Lines[0], c.Lines[1]
	if l1.Details.PrcdrCd != "HC:99213" || l2.Details.PrcdrCd != "HC:85025" {
		t.Errorf("line order = %q, %q", l1.Details.PrcdrCd, l2.Details.PrcdrCd)
	}
	if l1.Dates.Date != "20231001" || l2.Dates.Date != "20231002" {
		t.Errorf("line dates = %+v, %+v", l1.Dates, l2.Dates)
	}
	if len(l1.Adjustments) != 1 || l1.Adjustments[0].ReasonCd2 != "253" {
		t.Errorf("line 1 adjustments = %+v", l1.Adjustments)
	}
	if len(l2.Adjustments) != 1 || l2.Adjustments[0].Amount1 != "69.2" {
		t.Errorf("line 2 adjustments = %+v", l2.Adjustments)
	}
	if len(l1.SupplementalAmount) != 1 || len(l1.SupplementalQuantity) != 1 || l1.SupplementalQuantity[0].QuantityQualifier != "ZK" {
		t.Errorf("line 1 AMT/QTY = %+v %+v", l1.SupplementalAmount, l1.SupplementalQuantity)
	}
	if len(l1.Remarks) != 1 || l1.Remarks[0].RemarkCd != "N130" {
		t.Errorf("line 1 remarks = %+v", l1.Remarks)
	}
	if len(l2.RelatedIdentifications) != 1 || l2.RelatedIdentifications[0].ID != "LINE2" {
		t.Errorf("line 2 refs = %+v", l2.RelatedIdentifications)
	}
	if len(l2.Remarks) != 0 || len(l2.SupplementalAmount) != 0 {
		t.Errorf("line 2 picked up line 1 segments")
	}
}

func TestClaimPreServiceRange(t *testing.T) {
	c := buildSample(t, sample835)[0].Document().Claim

	if c.FirstNM1Patient.LastNameOrOrganization != "DOE" || c.FirstNM1Patient.Identifier != "W123" {
		t.Errorf("patient = %+v", c.FirstNM1Patient)
	}
	if len(c.ClaimNames) != 2 {
		t.Errorf("claim names = %d, want 2", len(c.ClaimNames))
	}
	if len(c.RelatedIdentifications) != 1 || c.RelatedIdentifications[0].ID != "ORIGREF" {
		t.Errorf("claim refs = %+v", c.RelatedIdentifications)
	}
	if len(c.SupplementalAmount) != 1 || c.SupplementalAmount[0].AmountQualifierCode != "AU" {
		t.Errorf("claim AMT = %+v", c.SupplementalAmount)
	}
	if len(c.SupplementalQuantity) != 0 {
		t.Errorf("claim QTY picked up line quantity: %+v", c.SupplementalQuantity)
	}
	// claim dates span the whole claim loop, service line dates included
	var codes []string
	for _, d := range c.Dates {
		codes = append(codes, d.DateCode+"/"+d.Date)
	}
	if got := strings.Join(codes, ","); got != "232/20231001,233/20231002,472/20231001,472/20231002" {
		t.Errorf("claim dates = %s", got)
	}
	if len(c.Adjustments) != 1 || c.Adjustments[0].GroupCode != "PR" || c.Adjustments[0].Amount1 != "50" {
		t.Errorf("claim adjustments = %+v", c.Adjustments)
	}
	if c.MOA.OutpatientClaimPaymentRemarkCode1 != "MA01" {
		t.Errorf("MOA = %+v", c.MOA)
	}
}

func TestToJSONTopLevelKeys(t *testing.T) {
	rs := buildSample(t, sample835)
	want := []string{"claim", "header_info", "payee", "payer", "payment", "provider_adjustments"}

	sparse := New(Loops{})
	for _, r := range append(rs, sparse) {
		b, err := r.ToJSON()
		if err != nil {
			t.Fatalf("ToJSON: %v", err)
		}
		var m map[string]json.RawMessage
		if err := json.Unmarshal(b, &m); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		var keys []string
		for k := range m {
			keys = append(keys, k)
		}
		if len(keys) != len(want) {
			t.Errorf("got keys %v", keys)
		}
		for _, k := range want {
			if _, ok := m[k]; !ok {
				t.Errorf("missing key %q", k)
			}
		}
	}

	b, _ := sparse.ToJSON()
	for _, frag := range []string{`"claim_lines":[]`, `"provider_adjustments":[]`, `"payer_contact_info":[]`, `"payer_name":""`} {
		if !strings.Contains(string(b), frag) {
			t.Errorf("sparse document lacks %s", frag)
		}
	}
}

func TestBuildWithoutClaims(t *testing.T) {
	raw := "GS*HP*S*R*20231016*1200*1*X*005010X221A1~ST*835*0001~BPR*H*0*C*NON~TRN*1*0*1~N1*PR*PAYER~N1*PE*PAYEE~SE*6*0001~GE*1*1~IEA*1*000000905~"
	rs := buildSample(t, raw)
	if len(rs) != 1 {
		t.Fatalf("got %d remittances, want 1", len(rs))
	}
	d := rs[0].Document()
	if d.Claim.CLP != (CLP{}) || len(d.Claim.Lines) != 0 {
		t.Errorf("claim should be defaulted: %+v", d.Claim)
	}
	if d.Payer.PayerName != "PAYER" || d.Payee.PayeeName != "PAYEE" {
		t.Errorf("parties = %q / %q", d.Payer.PayerName, d.Payee.PayeeName)
	}
}

func TestBuildProviderAdjustmentsOnly(t *testing.T) {
	cases := []struct {
		name, body string
		payee      string
	}{
		{"after parties", "BPR*H*0*C*NON~TRN*1*0*1~N1*PR*PAYER~N1*PE*CLINIC~", "CLINIC"},
		{"no parties", "BPR*H*0*C*NON~TRN*1*0*1~", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := "GS*HP*S*R*20231016*1200*1*X*005010X221A1~ST*835*0001~" + tc.body +
				"PLB*1234567893*20231231*WO:INV99*-25.5~SE*7*0001~GE*1*1~IEA*1*000000905~"
			rs := buildSample(t, raw)
			if len(rs) != 1 {
				t.Fatalf("got %d remittances, want 1", len(rs))
			}
			d := rs[0].Document()
			if len(d.ProviderAdjustments) != 1 {
				t.Fatalf("got %d provider adjustments, want 1", len(d.ProviderAdjustments))
			}
			pa := d.ProviderAdjustments[0]
			if pa.ProviderIdentifier != "1234567893" || pa.ReasonCd1 == nil || *pa.ReasonCd1 != "WO" || pa.Amt1 == nil || *pa.Amt1 != "-25.5" {
				t.Errorf("provider adjustment = %+v", pa)
			}
			if pa.ReasonCd2 != nil {
				t.Errorf("second group should be absent, got %q", *pa.ReasonCd2)
			}
			if d.Payee.PayeeName != tc.payee {
				t.Errorf("payee = %q, want %q", d.Payee.PayeeName, tc.payee)
			}

			segs, _, err := x12.TokenizeDetect(isa + raw)
			if err != nil {
				t.Fatalf("TokenizeDetect: %v", err)
			}
			loops := Layout(x12.Frame(segs).Transactions()[0])
			for _, l := range loops {
				if l.Payee.Count("PLB") != 0 || l.Header.Count("PLB") != 0 {
					t.Error("PLB leaked out of the summary range")
				}
				if l.Summary.Count("PLB") != 1 {
					t.Errorf("summary holds %d PLB, want 1", l.Summary.Count("PLB"))
				}
			}
		})
	}
}

func TestLayoutMultipleHeaderNumbers(t *testing.T) {
	raw := "GS*HP*S*R*D*T*1*X*V~ST*835*0001~BPR*I*1~N1*PE*PAYEE~N1*PR*PAYER~" +
		"LX*1~TS3*A~CLP*C1~SVC*HC:1*1~LX*2~TS3*B~CLP*C2~CLP*C3~SE*13*0001~GE*1*1~IEA*1*000000905~"
	rs := buildSample(t, raw)
	if len(rs) != 3 {
		t.Fatalf("got %d remittances, want 3", len(rs))
	}
	want := []struct{ claim, lx, ts3 string }{{"C1", "1", "A"}, {"C2", "2", "B"}, {"C3", "2", "B"}}
	for i, w := range want {
		d := rs[i].Document()
		if d.Claim.CLP.PatientControlNumber != w.claim || d.HeaderInfo.AssignedNum != w.lx || d.HeaderInfo.TS3.ProviderIdentifier != w.ts3 {
			t.Errorf("record %d = %s/%s/%s, want %+v", i, d.Claim.CLP.PatientControlNumber,
				d.HeaderInfo.AssignedNum, d.HeaderInfo.TS3.ProviderIdentifier, w)
		}
		// N1 loops are chosen by entity code, not order.
		if d.Payer.PayerName != "PAYER" {
			t.Errorf("record %d payer = %q", i, d.Payer.PayerName)
		}
	}
	if len(rs[0].Document().Claim.Lines) != 1 || len(rs[1].Document().Claim.Lines) != 0 {
		t.Error("service lines leaked across claims")
	}
}

func TestBuildIdempotent(t *testing.T) {
	a, b := buildSample(t, sample835), buildSample(t, sample835)
	for i := range a {
		if !reflect.DeepEqual(a[i].Document(), b[i].Document()) {
			t.Errorf("record %d differs between decodes", i)
		}
	}
}

func TestBuildRejectsForeignTransaction(t *testing.T) {
	segs := x12.Tokenize("ST*837*0001~BHT*0019~SE*3*0001~", x12.DefaultDelimiters())
	ts, err := x12.NewTransactionSet(segs, 0)
	if err != nil {
		t.Fatalf("NewTransactionSet: %v", err)
	}
	_, err = Build(ts)
	var ce *x12.ContractError
	if !errors.As(err, &ce) {
		t.Fatalf("got %v, want ContractError", err)
	}

	if _, err := Build(x12.TransactionSet{}); !errors.Is(err, x12.ErrNotTransactionSet) {
		t.Errorf("zero TransactionSet: got %v", err)
	}
}
