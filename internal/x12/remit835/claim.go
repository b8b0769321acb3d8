package remit835

import "github.com/Rkibbe123/app-datafabric/internal/x12"

// claim projects one CLP loop. Names, contacts, references, amounts,
// quantities and dates are read from the claim segments before the first
// SVC; claim adjustments from the segments after CLP and before the first
// SVC. Each SVC opens a service line that runs to the next SVC.
func claim(c x12.Stream) Claim {
	pre := c.Before("SVC")
	clp := c.First("CLP")

	lines := []ClaimLine{}
	for _, l := range c.Loops("SVC") {
		lines = append(lines, claimLine(l.Segments))
	}

	return Claim{
		CLP: CLP{
			PatientControlNumber:         clp.Element(1),
			ClaimStatusCode:              clp.Element(2),
			TotalClaimChargeAmount:       clp.Element(3),
			ClaimPaymentAmount:           clp.Element(4),
			PatientResponsibilityAmount:  clp.Element(5),
			ClaimFilingIndicatorCode:     clp.Element(6),
			PayerClaimControlNumber:      clp.Element(7),
			FacilityCodeValue:            clp.Element(8),
			ClaimFrequencyCode:           clp.Element(9),
			PatientStatusCode:            clp.Element(10),
			DRGCode:                      clp.Element(11),
			DRGWeight:                    clp.Element(12),
			DischargeFraction:            clp.Element(13),
			YesNoConditionOrResponseCode: clp.Element(14),
		},
		FirstNM1Patient:        name(c.First("NM1").Segment),
		ClaimNames:             names(pre),
		ClaimContacts:          contacts(pre),
		MIA:                    mia(c.First("MIA").Segment),
		MOA:                    moa(c.First("MOA").Segment),
		RelatedIdentifications: identifications(pre),
		SupplementalAmount:     supplementalAmounts(pre),
		SupplementalQuantity:   supplementalQuantities(pre),
		Adjustments:            adjustments(pre.Slice(1, len(pre))),
		Lines:                  lines,
		Dates:                  dates(c),
	}
}

func claimLine(l x12.Stream) ClaimLine {
	svc := l.First("SVC")
	line := ClaimLine{
		Details: LineDetails{
			PrcdrCd:                     svc.Element(1),
			ChrgAmt:                     svc.Element(2),
			PaidAmt:                     svc.Element(3),
			RevCd:                       svc.Element(4),
			Units:                       svc.Element(5),
			OriginalPrcdrCd:             svc.Element(6),
			OriginalUnitsOfServiceCount: svc.Element(7),
		},
		Dates:                  dateTime(l.First("DTM").Segment),
		SupplementalAmount:     []LineAmount{},
		SupplementalQuantity:   []LineQuantity{},
		Remarks:                []Remark{},
		Adjustments:            adjustments(l),
		RelatedIdentifications: []LineIdentification{},
	}
	for _, a := range l.All("AMT") {
		line.SupplementalAmount = append(line.SupplementalAmount, LineAmount{
			AmtQualifierCd:      a.Element(1),
			Amt:                 a.Element(2),
			CreditDebitFlagCode: a.Element(3),
		})
	}
	for _, q := range l.All("QTY") {
		line.SupplementalQuantity = append(line.SupplementalQuantity, LineQuantity{
			QuantityQualifier:      q.Element(1),
			Qty:                    q.Element(2),
			CompositeUnitOfMeasure: q.Element(3),
		})
	}
	for _, lq := range l.All("LQ") {
		line.Remarks = append(line.Remarks, Remark{QualifierCd: lq.Element(1), RemarkCd: lq.Element(2)})
	}
	for _, r := range l.All("REF") {
		line.RelatedIdentifications = append(line.RelatedIdentifications, LineIdentification{
			IDCodeQualifier: r.Element(1),
			ID:              r.Element(2),
			Description:     r.Element(3),
		})
	}
	return line
}

func name(nm1 x12.Segment) Name {
	return Name{
		EntityIdentifierCode:   nm1.Element(1),
		EntityTypeQualifier:    nm1.Element(2),
		LastNameOrOrganization: nm1.Element(3),
		FirstName:              nm1.Element(4),
		MiddleName:             nm1.Element(5),
		NamePrefix:             nm1.Element(6),
		NameSuffix:             nm1.Element(7),
		IDCodeQualifier:        nm1.Element(8),
		Identifier:             nm1.Element(9),
		EntityRelationshipCode: nm1.Element(10),
	}
}

func names(segs x12.Stream) []Name {
	out := []Name{}
	for _, nm1 := range segs.All("NM1") {
		out = append(out, name(nm1))
	}
	return out
}

func dates(segs x12.Stream) []DateTime {
	out := []DateTime{}
	for _, dtm := range segs.All("DTM") {
		out = append(out, dateTime(dtm))
	}
	return out
}

func supplementalAmounts(segs x12.Stream) []SupplementalAmount {
	out := []SupplementalAmount{}
	for _, a := range segs.All("AMT") {
		out = append(out, SupplementalAmount{
			AmountQualifierCode: a.Element(1),
			Amt:                 a.Element(2),
			CreditDebitFlagCode: a.Element(3),
		})
	}
	return out
}

func supplementalQuantities(segs x12.Stream) []SupplementalQuantity {
	out := []SupplementalQuantity{}
	for _, q := range segs.All("QTY") {
		out = append(out, SupplementalQuantity{
			QuantityQualifierCode:  q.Element(1),
			Qty:                    q.Element(2),
			CompositeUnitOfMeasure: q.Element(3),
		})
	}
	return out
}

func mia(s x12.Segment) MIA {
	return MIA{
		CoveredDaysOrVisitsCount:         s.Element(1),
		PPSOperationOutlierAmount:        s.Element(2),
		LifetimePsychiatricDaysCount:     s.Element(3),
		ClaimDRGAmount:                   s.Element(4),
		ClaimPaymentRemarkCode:           s.Element(5),
		ClaimDSHAmount:                   s.Element(6),
		ClaimMSPPassThruAmount:           s.Element(7),
		ClaimPPSCapitalAmount:            s.Element(8),
		PPSCapitalFSPDRGAmount:           s.Element(9),
		PPSCapitalHSPDRGAmount:           s.Element(10),
		PPSCapitalDSHDRGAmount:           s.Element(11),
		OldCapitalAmount:                 s.Element(12),
		PPSCapitalIMEAmount:              s.Element(13),
		PPSOperHSPSpecDRGAmount:          s.Element(14),
		CostReportDayCount:               s.Element(15),
		PPSOperFSPSpecDRGAmount:          s.Element(16),
		ClaimPPSOutlierAmount:            s.Element(17),
		ClaimIndirectTeaching:            s.Element(18),
		NonPayProfCompAmount:             s.Element(19),
		InpatientClaimPaymentRemarkCode1: s.Element(20),
		InpatientClaimPaymentRemarkCode2: s.Element(21),
		InpatientClaimPaymentRemarkCode3: s.Element(22),
		InpatientClaimPaymentRemarkCode4: s.Element(23),
		PPSCapitalExceptionAmount:        s.Element(24),
	}
}

func moa(s x12.Segment) MOA {
	return MOA{
		ReimbursementRate:                 s.Element(1),
		ClaimHCPCSPayableAmount:           s.Element(2),
		OutpatientClaimPaymentRemarkCode1: s.Element(3),
		OutpatientClaimPaymentRemarkCode2: s.Element(4),
		OutpatientClaimPaymentRemarkCode3: s.Element(5),
		OutpatientClaimPaymentRemarkCode4: s.Element(6),
		OutpatientClaimPaymentRemarkCode5: s.Element(7),
		ClaimESRDPaymentAmount:            s.Element(8),
		NonPayableProfessionalCompAmount:  s.Element(9),
	}
}
