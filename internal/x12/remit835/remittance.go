package remit835

import (
	"encoding/json"
	"fmt"

	"github.com/Rkibbe123/app-datafabric/internal/x12"
)

// Remittance is one decoded claim payment. It is built once and read-only
// afterwards.
type Remittance struct {
	doc Document
}

// New projects pre-partitioned role ranges into a remittance.
func New(l Loops) *Remittance {
	return &Remittance{doc: Document{
		Payment:             payment(l.Header),
		Payer:               payer(l.Payer),
		Payee:               payee(l.Payee),
		Claim:               claim(l.Claim),
		ProviderAdjustments: providerAdjustments(l.Summary),
		HeaderInfo:          headerInfo(l.HeaderNumber),
	}}
}

// Build decodes an 835 transaction set into one remittance per CLP loop.
func Build(ts x12.TransactionSet) ([]*Remittance, error) {
	if err := ts.Validate(); err != nil {
		return nil, err
	}
	if ts.Code != TransactionCode {
		return nil, &x12.ContractError{
			Op:  "remit835.Build",
			Err: fmt.Errorf("%w: ST01 is %q", x12.ErrNotTransactionSet, ts.Code),
		}
	}
	layouts := Layout(ts)
	out := make([]*Remittance, 0, len(layouts))
	for _, l := range layouts {
		out = append(out, New(l))
	}
	return out, nil
}

// Document returns the decoded record.
func (r *Remittance) Document() Document { return r.doc }

// ToJSON marshals the document. Keys are always present; repeatable groups
// marshal as [] when absent.
func (r *Remittance) ToJSON() ([]byte, error) {
	return json.Marshal(r.doc)
}

func payment(h x12.Stream) Payment {
	bpr, trn := h.First("BPR"), h.First("TRN")
	return Payment{
		DTM: dateTime(h.First("DTM").Segment),
		BPR: BPR{
			TransactionHandlingCode:            bpr.Element(1),
			TotalActualProviderPaymentAmt:      bpr.Element(2),
			CreditorDebitFlagCode:              bpr.Element(3),
			PaymentMethodCode:                  bpr.Element(4),
			PaymentFormatCode:                  bpr.Element(5),
			SenderDFIIDNumberQualifier:         bpr.Element(6),
			SenderDFIIdentifier:                bpr.Element(7),
			SenderAccountNumberQualifier:       bpr.Element(8),
			SenderBankAcctNumber:               bpr.Element(9),
			PayerIdentifier:                    bpr.Element(10),
			PayerOriginatingCoSupplementalCode: bpr.Element(11),
			ReceiverDFIIDNumberQualifier:       bpr.Element(12),
			ReceiverOrProviderBankIDNumber:     bpr.Element(13),
			ReceiverAcctNumberQualifier:        bpr.Element(14),
			ReceiverOrProviderAccountNumber:    bpr.Element(15),
			CheckIssueOrEFTEffectiveDate:       bpr.Element(16),
			BusinessFunctionCode:               bpr.Element(17),
		},
		TRN: TRN{
			TraceTypeCode:                        trn.Element(1),
			CheckOrEFTTraceNumber:                trn.Element(2),
			TracePayerIdentifier:                 trn.Element(3),
			TracePayerOriginatingCoSupplementary: trn.Element(4),
		},
	}
}

func payer(p x12.Stream) Payer {
	n1, n3, n4 := p.First("N1"), p.First("N3"), p.First("N4")
	return Payer{
		EntityIdentifierCode:     n1.Element(1),
		PayerName:                n1.Element(2),
		IDCodeQualifier:          n1.Element(3),
		PayerIdentifier:          n1.Element(4),
		EntityRelationshipCode:   n1.Element(5),
		AddressLine1:             n3.Element(1),
		AddressLine2:             n3.Element(2),
		CityName:                 n4.Element(1),
		StateCode:                n4.Element(2),
		PostalZoneOrZipCode:      n4.Element(3),
		CountryCode:              n4.Element(4),
		LocationQualifier:        n4.Element(5),
		CountrySubdivisionCode:   n4.Element(7),
		ContactInfo:              contacts(p),
		AdditionalIdentification: identifications(p),
	}
}

func payee(p x12.Stream) Payee {
	n1, n3, n4, rdm := p.First("N1"), p.First("N3"), p.First("N4"), p.First("RDM")
	return Payee{
		EntityIdentifierCode:           n1.Element(1),
		PayeeName:                      n1.Element(2),
		IDCodeQualifier:                n1.Element(3),
		PayeeIdentifier:                n1.Element(4),
		EntityRelationshipCode:         n1.Element(5),
		AddressLine1:                   n3.Element(1),
		AddressLine2:                   n3.Element(2),
		CityName:                       n4.Element(1),
		StateCode:                      n4.Element(2),
		PostalZoneOrZipCode:            n4.Element(3),
		CountryCode:                    n4.Element(4),
		LocationQualifier:              n4.Element(5),
		CountrySubdivisionCode:         n4.Element(7),
		AdditionalIdentification:       identifications(p),
		DeliveryReportTransmissionCode: rdm.Element(1),
		DeliveryName:                   rdm.Element(2),
		DeliveryCommunicationNumber:    rdm.Element(3),
		DeliveryReferenceIdentifier:    rdm.Element(4),
	}
}

func headerInfo(h x12.Stream) HeaderInfo {
	ts3, ts2 := h.First("TS3"), h.First("TS2")
	return HeaderInfo{
		AssignedNum: h.First("LX").Element(1),
		TS3: TS3{
			ProviderIdentifier:                ts3.Element(1),
			FacilityCodeValue:                 ts3.Element(2),
			FiscalPeriodDate:                  ts3.Element(3),
			TotalClaimCount:                   ts3.Element(4),
			TotalClaimChangeAmount:            ts3.Element(5),
			TotalCoveredChargeAmount:          ts3.Element(6),
			TotalNoncoveredChargeAmount:       ts3.Element(7),
			TotalDeniedChargeAmount:           ts3.Element(8),
			TotalProviderAmount:               ts3.Element(9),
			TotalInterestAmount:               ts3.Element(10),
			TotalContractualAdjustmentAmount:  ts3.Element(11),
			TotalGrammRudmanReductionAmount:   ts3.Element(12),
			TotalMSPPayerAmount:               ts3.Element(13),
			TotalBloodDeductibleAmount:        ts3.Element(14),
			TotalNonLabChargeAmount:           ts3.Element(15),
			TotalCoinsuranceAmount:            ts3.Element(16),
			TotalHCPCSReportedChargeAmount:    ts3.Element(17),
			TotalHCPCSPayableAmount:           ts3.Element(18),
			TotalDeductibleAmount:             ts3.Element(19),
			TotalProfessionalComponentAmount:  ts3.Element(20),
			TotalMSPPatientLiabilityMetAmount: ts3.Element(21),
			TotalPatientReimbursementAmount:   ts3.Element(22),
			TotalPIPClaimCount:                ts3.Element(23),
			TotalPIPAdjustmentAmount:          ts3.Element(24),
		},
		TS2: TS2{
			TotalDRGAmount:                   ts2.Element(1),
			TotalFederalSpecificAmount:       ts2.Element(2),
			TotalHospitalSpecificAmount:      ts2.Element(3),
			TotalDisproportionateAmount:      ts2.Element(4),
			TotalCapitalAmount:               ts2.Element(5),
			TotalIndirectMedicalEducationAmt: ts2.Element(6),
			TotalOutlierDayCount:             ts2.Element(7),
			TotalDayOutlierAmount:            ts2.Element(8),
			TotalCostOutlierAmount:           ts2.Element(9),
			AverageDRGLengthOfStay:           ts2.Element(10),
			TotalDischargeCount:              ts2.Element(11),
			TotalCostReportDayCount:          ts2.Element(12),
			TotalCoveredDayCount:             ts2.Element(13),
			TotalNoncoveredDayCount:          ts2.Element(14),
			TotalMSPPassThroughAmount:        ts2.Element(15),
			AverageDRGWeight:                 ts2.Element(16),
			TotalPPSCapitalFSPDRGAmount:      ts2.Element(17),
			TotalPSPCapitalHSPDRGAmount:      ts2.Element(18),
			TotalPPSDSHDRGAmount:             ts2.Element(19),
		},
	}
}

func dateTime(dtm x12.Segment) DateTime {
	return DateTime{DateCode: dtm.Element(1), Date: dtm.Element(2), Time: dtm.Element(3)}
}

func contacts(segs x12.Stream) []Contact {
	out := []Contact{}
	for _, c := range segs.All("PER") {
		out = append(out, Contact{
			ContactFunctionCd:             c.Element(1),
			ContactName:                   c.Element(2),
			CommunicationNumberQualifier1: c.Element(3),
			ContactCommunication1:         c.Element(4),
			CommunicationNumberQualifier2: c.Element(5),
			ContactCommunication2:         c.Element(6),
			CommunicationNumberQualifier3: c.Element(7),
			ContactCommunication3:         c.Element(8),
			ContactInquiryReference:       c.Element(9),
		})
	}
	return out
}

func identifications(segs x12.Stream) []Identification {
	out := []Identification{}
	for _, r := range segs.All("REF") {
		out = append(out, Identification{IDQualifierCode: r.Element(1), ID: r.Element(2), Description: r.Element(3)})
	}
	return out
}
