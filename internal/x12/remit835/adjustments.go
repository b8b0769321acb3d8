package remit835

import "github.com/Rkibbe123/app-datafabric/internal/x12"

const (
	adjustmentSlots = 6
	// CAS01 is the group code; reason/amount/quantity triples follow.
	casFirstTriple = 2
	// PLB01 and PLB02 are the provider and fiscal period; composite
	// reason:reference elements alternate with amounts from PLB03.
	plbFirstGroup = 3
)

// UnpackCAS reads all six adjustment triples of a CAS segment. Triples past
// the end of the segment are returned with "" fields.
func UnpackCAS(cas x12.Segment) Adjustment {
	t := cas.Triples(casFirstTriple, adjustmentSlots)
	return Adjustment{
		GroupCode: cas.Element(1),
		ReasonCd1: t[0].A, Amount1: t[0].B, Quantity1: t[0].C,
		ReasonCd2: t[1].A, Amount2: t[1].B, Quantity2: t[1].C,
		ReasonCd3: t[2].A, Amount3: t[2].B, Quantity3: t[2].C,
		ReasonCd4: t[3].A, Amount4: t[3].B, Quantity4: t[3].C,
		ReasonCd5: t[4].A, Amount5: t[4].B, Quantity5: t[4].C,
		ReasonCd6: t[5].A, Amount6: t[5].B, Quantity6: t[5].C,
	}
}

// plbGroup is one reason/reference/amount slot of a PLB segment.
type plbGroup struct {
	reason, id, amount *string
}

// UnpackPLB reads a PLB segment. A group's reason and reference are present
// when the segment reaches its composite element, and its amount when the
// segment reaches the element after it; otherwise they stay nil.
func UnpackPLB(plb x12.Segment) ProviderAdjustment {
	var g [adjustmentSlots]plbGroup
	for n := range g {
		p := plbFirstGroup + 2*n
		g[n] = plbGroup{
			reason: plb.PresentComponent(p, 0),
			id:     plb.PresentComponent(p, 1),
			amount: plb.Present(p + 1),
		}
	}
	return ProviderAdjustment{
		ProviderIdentifier: plb.Element(1),
		FiscalPeriodDate:   plb.Element(2),
		ReasonCd1: g[0].reason, ID1: g[0].id, Amt1: g[0].amount,
		ReasonCd2: g[1].reason, ID2: g[1].id, Amt2: g[1].amount,
		ReasonCd3: g[2].reason, ID3: g[2].id, Amt3: g[2].amount,
		ReasonCd4: g[3].reason, ID4: g[3].id, Amt4: g[3].amount,
		ReasonCd5: g[4].reason, ID5: g[4].id, Amt5: g[4].amount,
		ReasonCd6: g[5].reason, ID6: g[5].id, Amt6: g[5].amount,
	}
}

func adjustments(segs x12.Stream) []Adjustment {
	out := []Adjustment{}
	for _, cas := range segs.All("CAS") {
		out = append(out, UnpackCAS(cas))
	}
	return out
}

func providerAdjustments(segs x12.Stream) []ProviderAdjustment {
	out := []ProviderAdjustment{}
	for _, plb := range segs.All("PLB") {
		out = append(out, UnpackPLB(plb))
	}
	return out
}
