package claim837

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/Rkibbe123/app-datafabric/internal/x12"
)

const sample837 = `ST*837*0021*005010X222A1~
BHT*0019*00*REF47517*20231016*1023*CH~
NM1*41*2*CLEARINGHOUSE*****46*CH123~
PER*IC*EDI DESK*TE*5555551234~
NM1*40*2*ACME HEALTH PLAN*****46*PAYER01~
HL*1**20*1~
NM1*85*2*GOOD CLINIC*****XX*1234567893~
N3*1 CLINIC ST~
N4*SOMEWHERE*TX*75002~
REF*EI*123456789~
HL*2*1*22*1~
SBR*P*18*GRP01******CI~
NM1*IL*1*DOE*JANE****MI*W123~
N3*5 HOME RD~
N4*SOMEWHERE*TX*75002~
DMG*D8*19800101*F~
NM1*PR*2*ACME HEALTH PLAN*****PI*PAYER01~
CLM*PCN001*180***11:B:1*Y*A*Y*Y~
DTP*431*D8*20231001~
REF*D9*TRACE01~
HI*ABK:J449*ABF:E119~
LX*1~
SV1*HC:99213:25*100*UN*1*11**1:2~
DTP*472*D8*20231001~
LX*2~
SV1*HC:85025*80*UN*1***1~
DTP*472*D8*20231001~
REF*6R*LINE2~
HL*3*2*23*0~
PAT*19~
NM1*QC*1*DOE*JIMMY~
DMG*D8*20100101*M~
CLM*PCN002*500***13:A:1*Y*A*Y*Y~
LX*1~
SV2*0450*HC:99284*500*UN*1~
SE*35*0021~`

func buildSample(t *testing.T) []*Claim {
	t.Helper()
	segs := x12.Tokenize(sample837, x12.DefaultDelimiters())
	ts, err := x12.NewTransactionSet(segs, 0)
	if err != nil {
		t.Fatalf("NewTransactionSet: %v", err)
	}
	claims, err := Build(ts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return claims
}

func TestBuildProfessionalClaim(t *testing.T) {
	claims := buildSample(t)
	if len(claims) != 2 {
		t.Fatalf("got %d claims, want 2", len(claims))
	}
	d := claims[0].Document()

	if d.Header.BHT.ReferenceIdentification != "REF47517" || d.Header.BHT.TransactionTypeCode != "CH" {
		t.Errorf("BHT = %+v", d.Header.BHT)
	}
	if d.Submitter.LastNameOrOrganization != "CLEARINGHOUSE" || len(d.Submitter.Contacts) != 1 {
		t.Errorf("submitter = %+v", d.Submitter)
	}
	if d.Receiver.Identifier != "PAYER01" {
		t.Errorf("receiver = %+v", d.Receiver)
	}
	if d.BillingProvider.Identifier != "1234567893" || d.BillingProvider.CityName != "SOMEWHERE" {
		t.Errorf("billing provider = %+v", d.BillingProvider)
	}
	if len(d.BillingProvider.Identifications) != 1 || d.BillingProvider.Identifications[0].IDQualifierCode != "EI" {
		t.Errorf("billing provider refs = %+v", d.BillingProvider.Identifications)
	}
	if d.Subscriber.SBR.ClaimFilingIndicatorCode != "CI" || d.Subscriber.Name.FirstName != "JANE" {
		t.Errorf("subscriber = %+v", d.Subscriber)
	}
	if d.Subscriber.Demographics.BirthDate != "19800101" {
		t.Errorf("subscriber DMG = %+v", d.Subscriber.Demographics)
	}
	if d.Payer.IDCodeQualifier != "PI" {
		t.Errorf("payer = %+v", d.Payer)
	}
	if d.Patient.Name.LastNameOrOrganization != "" {
		t.Errorf("patient should be empty for subscriber claim: %+v", d.Patient)
	}

	c := d.Claim
	if c.CLM.FacilityCode != "11" || c.CLM.FacilityCodeQualifier != "B" || c.CLM.ClaimFrequencyCode != "1" {
		t.Errorf("CLM05 = %+v", c.CLM)
	}
	if len(c.Diagnoses) != 2 || c.Diagnoses[1].Code != "E119" {
		t.Errorf("diagnoses = %+v", c.Diagnoses)
	}
	if len(c.Dates) != 1 || len(c.RelatedIdentifications) != 1 {
		t.Errorf("claim dates/refs = %+v %+v", c.Dates, c.RelatedIdentifications)
	}
	if len(c.Lines) != 2 {
		t.Fatalf("got %d lines", len(c.Lines))
	}
	l1 := c.Lines[0]
	if l1.ServiceType != ServiceProfessional || l1.ProcedureCode != "99213" || l1.Modifier1 != "25" || l1.DiagnosisCodePointers != "1:2" {
		t.Errorf("line 1 = %+v", l1)
	}
	if len(c.Lines[1].RelatedIdentifications) != 1 || len(l1.RelatedIdentifications) != 0 {
		t.Error("line references leaked across lines")
	}
}

func TestBuildPatientClaim(t *testing.T) {
	d := buildSample(t)[1].Document()

	if d.Patient.IndividualRelationshipCode != "19" || d.Patient.Name.FirstName != "JIMMY" {
		t.Errorf("patient = %+v", d.Patient)
	}
	// The subscriber and billing provider are inherited from the parent levels.
	if d.Subscriber.Name.FirstName != "JANE" || d.BillingProvider.LastNameOrOrganization != "GOOD CLINIC" {
		t.Errorf("inherited levels = %q / %q", d.Subscriber.Name.FirstName, d.BillingProvider.LastNameOrOrganization)
	}
	if len(d.Claim.Lines) != 1 {
		t.Fatalf("got %d lines", len(d.Claim.Lines))
	}
	l := d.Claim.Lines[0]
	if l.ServiceType != ServiceInstitutional || l.RevenueCode != "0450" || l.ProcedureCode != "99284" || l.LineChargeAmount != "500" {
		t.Errorf("institutional line = %+v", l)
	}
}

func TestSparseClaimJSON(t *testing.T) {
	b, err := New(Loops{}).ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, k := range []string{"header", "submitter", "receiver", "billing_provider", "subscriber", "payer", "patient", "claim"} {
		if _, ok := m[k]; !ok {
			t.Errorf("missing key %q", k)
		}
	}
	if !strings.Contains(string(m["claim"]), `"claim_lines":[]`) {
		t.Errorf("claim = %s", m["claim"])
	}
}
