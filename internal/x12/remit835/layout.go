package remit835

import "github.com/Rkibbe123/app-datafabric/internal/x12"

// Loops are the six role ranges one remittance document is projected from.
// Every range is a view into the transaction's segments and may be empty.
type Loops struct {
	Header       x12.Stream // ST up to the payer N1: BPR, TRN, DTM
	Payer        x12.Stream // N1*PR loop
	Payee        x12.Stream // N1*PE loop
	Claim        x12.Stream // one CLP loop, service lines included
	Summary      x12.Stream // first PLB through SE
	HeaderNumber x12.Stream // LX loop owning the claim, up to its first CLP
}

// Layout splits an 835 transaction set into role ranges, one Loops per CLP.
// A transaction without any CLP still yields one Loops with an empty Claim.
func Layout(ts x12.TransactionSet) []Loops {
	segs := ts.Segments
	last := len(segs)
	if last > 0 && segs[last-1].ID() == "SE" {
		last--
	}

	// The first PLB opens the summary, with or without claims before it.
	summaryStart := segs.IndexOfAny(0, "PLB", "SE")
	if summaryStart > last {
		summaryStart = last
	}
	detailStart := segs.IndexOfAny(0, "LX", "CLP")
	if detailStart > summaryStart {
		detailStart = summaryStart
	}

	partyStart := segs.IndexOf("N1", 0)
	if partyStart > detailStart {
		partyStart = detailStart
	}
	payer, payee := parties(segs.Slice(partyStart, detailStart))

	shared := Loops{
		Header:  segs.Slice(0, partyStart),
		Payer:   payer,
		Payee:   payee,
		Summary: segs.Slice(summaryStart, len(segs)),
	}

	detail := segs.Slice(detailStart, summaryStart)
	var out []Loops
	add := func(headerNumber, region x12.Stream) {
		for _, clp := range region.Loops("CLP") {
			l := shared
			l.HeaderNumber = headerNumber
			l.Claim = clp.Segments
			out = append(out, l)
		}
	}

	// Claims that precede any LX have no header number loop.
	add(x12.Stream{}, detail.Before("LX"))
	lxLoops := detail.Loops("LX")
	for _, lx := range lxLoops {
		add(lx.Segments.Before("CLP"), lx.Segments)
	}

	if len(out) == 0 {
		l := shared
		l.Claim = x12.Stream{}
		l.HeaderNumber = x12.Stream{}
		if len(lxLoops) > 0 {
			l.HeaderNumber = lxLoops[0].Segments.Before("CLP")
		}
		out = append(out, l)
	}
	return out
}

// parties picks the payer and payee N1 loops by entity code, falling back to
// the first and second N1 loop when a code is missing.
func parties(region x12.Stream) (payer, payee x12.Stream) {
	loops := region.Loops("N1")
	payer, payee = x12.Stream{}, x12.Stream{}
	payerFound, payeeFound := false, false
	for _, l := range loops {
		switch l.Marker().Element(1) {
		case EntityPayer:
			if !payerFound {
				payer, payerFound = l.Segments, true
			}
		case EntityPayee:
			if !payeeFound {
				payee, payeeFound = l.Segments, true
			}
		}
	}
	if !payerFound && len(loops) > 0 {
		payer = loops[0].Segments
	}
	if !payeeFound && len(loops) > 1 {
		payee = loops[1].Segments
	}
	return payer, payee
}
