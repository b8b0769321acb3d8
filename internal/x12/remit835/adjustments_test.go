package remit835

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/Rkibbe123/app-datafabric/internal/x12"
)

func TestUnpackCASSingleTriple(t *testing.T) {
	adj := UnpackCAS(x12.ParseSegment("CAS*CO*45*20.00", x12.DefaultDelimiters()))

	if adj.GroupCode != "CO" || adj.ReasonCd1 != "45" || adj.Amount1 != "20.00" || adj.Quantity1 != "" {
		t.Errorf("triple 1 = %+v", adj)
	}
	rest := []string{
		adj.ReasonCd2, adj.Amount2, adj.Quantity2,
		adj.ReasonCd3, adj.Amount3, adj.Quantity3,
		adj.ReasonCd4, adj.Amount4, adj.Quantity4,
		adj.ReasonCd5, adj.Amount5, adj.Quantity5,
		adj.ReasonCd6, adj.Amount6, adj.Quantity6,
	}
	for i, v := range rest {
		if v != "" {
			t.Errorf("field %d of triples 2-6 = %q", i, v)
		}
	}

	b, err := json.Marshal(adj)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(b), `"adjustment_quantity_6":""`) || strings.Contains(string(b), "null") {
		t.Errorf("CAS JSON = %s", b)
	}
}

func TestUnpackCASFull(t *testing.T) {
	seg := x12.ParseSegment("CAS*OA*1*1*1*2*2*2*3*3*3*4*4*4*5*5*5*6*6*6", x12.DefaultDelimiters())
	adj := UnpackCAS(seg)
	if adj.ReasonCd6 != "6" || adj.Amount6 != "6" || adj.Quantity6 != "6" || adj.Quantity3 != "3" {
		t.Errorf("full CAS = %+v", adj)
	}
}

func TestUnpackPLBTwoGroups(t *testing.T) {
	plb := UnpackPLB(x12.ParseSegment("PLB*123*20231231*WO:INV99*-25.5*L6*12.75", x12.DefaultDelimiters()))

	if plb.ProviderIdentifier != "123" || plb.FiscalPeriodDate != "20231231" {
		t.Errorf("PLB header = %+v", plb)
	}
	check := func(name string, got *string, want string) {
		t.Helper()
		if got == nil || *got != want {
			t.Errorf("%s = %v, want %q", name, got, want)
		}
	}
	check("ReasonCd1", plb.ReasonCd1, "WO")
	check("ID1", plb.ID1, "INV99")
	check("Amt1", plb.Amt1, "-25.5")
	check("ReasonCd2", plb.ReasonCd2, "L6")
	check("ID2", plb.ID2, "")
	check("Amt2", plb.Amt2, "12.75")

	absent := []*string{
		plb.ReasonCd3, plb.ID3, plb.Amt3,
		plb.ReasonCd4, plb.ID4, plb.Amt4,
		plb.ReasonCd5, plb.ID5, plb.Amt5,
		plb.ReasonCd6, plb.ID6, plb.Amt6,
	}
	for i, p := range absent {
		if p != nil {
			t.Errorf("group %d field %d = %q, want nil", 3+i/3, i%3, *p)
		}
	}

	b, err := json.Marshal(plb)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(b), `"provider_adjustment_reason_cd_3":null`) {
		t.Errorf("PLB JSON = %s", b)
	}
}

func TestUnpackPLBAmountMissing(t *testing.T) {
	// The segment stops at the composite of group 1.
	plb := UnpackPLB(x12.ParseSegment("PLB*123*20231231*FB:X1", x12.DefaultDelimiters()))
	if plb.ReasonCd1 == nil || *plb.ReasonCd1 != "FB" {
		t.Errorf("ReasonCd1 = %v", plb.ReasonCd1)
	}
	if plb.Amt1 != nil {
		t.Errorf("Amt1 = %q, want nil", *plb.Amt1)
	}
}
