package claim837

import (
	"encoding/json"
	"fmt"

	"github.com/Rkibbe123/app-datafabric/internal/x12"
)

// Loops are the role ranges one claim document is projected from.
type Loops struct {
	Header          x12.Stream // ST up to the first HL
	BillingProvider x12.Stream // HL*20 loop
	Subscriber      x12.Stream // HL*22 loop up to its first CLM
	Patient         x12.Stream // HL*23 loop up to its first CLM
	Claim           x12.Stream // one CLM loop, service lines included
}

// Claim is one decoded 837 claim.
type Claim struct {
	doc Document
}

// Layout walks the HL hierarchy of an 837 transaction set and returns one
// Loops per CLM, each paired with the billing provider, subscriber and
// patient levels above it.
func Layout(ts x12.TransactionSet) []Loops {
	segs := ts.Segments
	last := len(segs)
	if last > 0 && segs[last-1].ID() == "SE" {
		last--
	}
	firstHL := segs.IndexOf("HL", 0)
	if firstHL > last {
		firstHL = last
	}

	cur := Loops{
		Header:          segs.Slice(0, firstHL),
		BillingProvider: x12.Stream{},
		Subscriber:      x12.Stream{},
		Patient:         x12.Stream{},
		Claim:           x12.Stream{},
	}
	var out []Loops
	for _, hl := range segs.Slice(firstHL, last).Loops("HL") {
		switch hl.Marker().Element(3) {
		case LevelBillingProvider:
			cur.BillingProvider = hl.Segments
			cur.Subscriber, cur.Patient = x12.Stream{}, x12.Stream{}
		case LevelSubscriber:
			cur.Subscriber = hl.Segments.Before("CLM")
			cur.Patient = x12.Stream{}
		case LevelPatient:
			cur.Patient = hl.Segments.Before("CLM")
		}
		for _, clm := range hl.Segments.Loops("CLM") {
			l := cur
			l.Claim = clm.Segments
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		out = append(out, cur)
	}
	return out
}

// New projects role ranges into a claim.
func New(l Loops) *Claim {
	sub := l.Subscriber
	subscriber := entityLoop(sub, EntitySubscriber)
	patient := entityLoop(l.Patient, EntityPatient)
	return &Claim{doc: Document{
		Header:          Header{BHT: bht(l.Header.First("BHT").Segment)},
		Submitter:       party(entityLoop(l.Header, EntitySubmitter)),
		Receiver:        party(entityLoop(l.Header, EntityReceiver)),
		BillingProvider: party(entityLoop(l.BillingProvider, EntityBillingProvider)),
		Subscriber: Subscriber{
			SBR:          sbr(sub.First("SBR").Segment),
			Name:         party(subscriber),
			Demographics: demographics(subscriber.First("DMG").Segment),
		},
		Payer: party(entityLoop(sub, EntityPayer)),
		Patient: Patient{
			IndividualRelationshipCode: l.Patient.First("PAT").Element(1),
			Name:                       party(patient),
			Demographics:               demographics(patient.First("DMG").Segment),
		},
		Claim: claimInfo(l.Claim),
	}}
}

// Build decodes an 837 transaction set into one claim per CLM loop.
func Build(ts x12.TransactionSet) ([]*Claim, error) {
	if err := ts.Validate(); err != nil {
		return nil, err
	}
	if ts.Code != TransactionCode {
		return nil, &x12.ContractError{
			Op:  "claim837.Build",
			Err: fmt.Errorf("%w: ST01 is %q", x12.ErrNotTransactionSet, ts.Code),
		}
	}
	layouts := Layout(ts)
	out := make([]*Claim, 0, len(layouts))
	for _, l := range layouts {
		out = append(out, New(l))
	}
	return out, nil
}

// Document returns the decoded record.
func (c *Claim) Document() Document { return c.doc }

// ToJSON marshals the document.
func (c *Claim) ToJSON() ([]byte, error) {
	return json.Marshal(c.doc)
}

// entityLoop returns the first NM1 loop in region whose NM101 is code.
func entityLoop(region x12.Stream, code string) x12.Stream {
	for _, l := range region.Loops("NM1") {
		if l.Marker().Element(1) == code {
			return l.Segments
		}
	}
	return x12.Stream{}
}

func bht(s x12.Segment) BHT {
	return BHT{
		HierarchicalStructureCode: s.Element(1),
		TransactionSetPurposeCode: s.Element(2),
		ReferenceIdentification:   s.Element(3),
		Date:                      s.Element(4),
		Time:                      s.Element(5),
		TransactionTypeCode:       s.Element(6),
	}
}

func party(l x12.Stream) Party {
	nm1, n3, n4 := l.First("NM1"), l.First("N3"), l.First("N4")
	p := Party{
		EntityIdentifierCode:   nm1.Element(1),
		EntityTypeQualifier:    nm1.Element(2),
		LastNameOrOrganization: nm1.Element(3),
		FirstName:              nm1.Element(4),
		MiddleName:             nm1.Element(5),
		NamePrefix:             nm1.Element(6),
		NameSuffix:             nm1.Element(7),
		IDCodeQualifier:        nm1.Element(8),
		Identifier:             nm1.Element(9),
		AddressLine1:           n3.Element(1),
		AddressLine2:           n3.Element(2),
		CityName:               n4.Element(1),
		StateCode:              n4.Element(2),
		PostalCode:             n4.Element(3),
		Contacts:               []Contact{},
		Identifications:        identifications(l),
	}
	for _, per := range l.All("PER") {
		p.Contacts = append(p.Contacts, Contact{
			ContactFunctionCd:             per.Element(1),
			ContactName:                   per.Element(2),
			CommunicationNumberQualifier1: per.Element(3),
			ContactCommunication1:         per.Element(4),
			CommunicationNumberQualifier2: per.Element(5),
			ContactCommunication2:         per.Element(6),
		})
	}
	return p
}

func sbr(s x12.Segment) SBR {
	return SBR{
		PayerResponsibilityCode:  s.Element(1),
		IndividualRelationship:   s.Element(2),
		GroupNumber:              s.Element(3),
		GroupName:                s.Element(4),
		InsuranceTypeCode:        s.Element(5),
		ClaimFilingIndicatorCode: s.Element(9),
	}
}

func demographics(s x12.Segment) Demographics {
	return Demographics{DateFormatQualifier: s.Element(1), BirthDate: s.Element(2), GenderCode: s.Element(3)}
}

func claimInfo(c x12.Stream) ClaimInfo {
	pre := c.Before("LX")
	clm := c.First("CLM")
	info := ClaimInfo{
		CLM: CLM{
			PatientControlNumber:        clm.Element(1),
			TotalClaimChargeAmount:      clm.Element(2),
			FacilityCode:                clm.Component(5, 0),
			FacilityCodeQualifier:       clm.Component(5, 1),
			ClaimFrequencyCode:          clm.Component(5, 2),
			ProviderSignatureIndicator:  clm.Element(6),
			AssignmentParticipationCode: clm.Element(7),
			BenefitsAssignmentIndicator: clm.Element(8),
			ReleaseOfInformationCode:    clm.Element(9),
			PatientSignatureSourceCode:  clm.Element(10),
			RelatedCausesCode:           clm.Element(11),
			SpecialProgramCode:          clm.Element(12),
			DelayReasonCode:             clm.Element(20),
		},
		Dates:                  dates(pre),
		Diagnoses:              []Diagnosis{},
		RelatedIdentifications: identifications(pre),
		SupplementalAmount:     []Amount{},
		Lines:                  []ServiceLine{},
	}
	// Each HI element is a qualifier:code composite; empty slots are skipped.
	for _, hi := range pre.All("HI") {
		for i := 1; i <= hi.Len(); i++ {
			if hi.Element(i) == "" {
				continue
			}
			info.Diagnoses = append(info.Diagnoses, Diagnosis{
				CodeListQualifier: hi.Component(i, 0),
				Code:              hi.Component(i, 1),
			})
		}
	}
	for _, amt := range pre.All("AMT") {
		info.SupplementalAmount = append(info.SupplementalAmount, Amount{AmountQualifierCode: amt.Element(1), Amt: amt.Element(2)})
	}
	for _, lx := range c.Loops("LX") {
		info.Lines = append(info.Lines, serviceLine(lx.Segments))
	}
	return info
}

func serviceLine(l x12.Stream) ServiceLine {
	line := ServiceLine{
		AssignedNumber:         l.First("LX").Element(1),
		Dates:                  dates(l),
		RelatedIdentifications: identifications(l),
	}
	if sv1 := l.First("SV1"); sv1.OK {
		line.ServiceType = ServiceProfessional
		procedure(&line, sv1.Segment, 1)
		line.LineChargeAmount = sv1.Element(2)
		line.UnitBasisCode = sv1.Element(3)
		line.Units = sv1.Element(4)
		line.PlaceOfServiceCode = sv1.Element(5)
		line.DiagnosisCodePointers = sv1.Element(7)
	} else if sv2 := l.First("SV2"); sv2.OK {
		line.ServiceType = ServiceInstitutional
		line.RevenueCode = sv2.Element(1)
		procedure(&line, sv2.Segment, 2)
		line.LineChargeAmount = sv2.Element(3)
		line.UnitBasisCode = sv2.Element(4)
		line.Units = sv2.Element(5)
	}
	return line
}

// procedure reads the qualifier:code:modifier... composite at element i.
func procedure(line *ServiceLine, s x12.Segment, i int) {
	line.ProductServiceIDQualifier = s.Component(i, 0)
	line.ProcedureCode = s.Component(i, 1)
	line.Modifier1 = s.Component(i, 2)
	line.Modifier2 = s.Component(i, 3)
	line.Modifier3 = s.Component(i, 4)
	line.Modifier4 = s.Component(i, 5)
}

func dates(segs x12.Stream) []Date {
	out := []Date{}
	for _, dtp := range segs.All("DTP") {
		out = append(out, Date{DateQualifier: dtp.Element(1), FormatQualifier: dtp.Element(2), Date: dtp.Element(3)})
	}
	return out
}

func identifications(segs x12.Stream) []Identification {
	out := []Identification{}
	for _, ref := range segs.All("REF") {
		out = append(out, Identification{IDQualifierCode: ref.Element(1), ID: ref.Element(2)})
	}
	return out
}
