package x12

import "strings"

// InterchangeHeader carries the ISA fields.
type InterchangeHeader struct {
	AuthorizationQualifier string `json:"authorization_qualifier"`
	AuthorizationInfo      string `json:"authorization_info"`
	SecurityQualifier      string `json:"security_qualifier"`
	SecurityInfo           string `json:"security_info"`
	SenderQualifier        string `json:"sender_qualifier"`
	SenderID               string `json:"sender_id"`
	ReceiverQualifier      string `json:"receiver_qualifier"`
	ReceiverID             string `json:"receiver_id"`
	Date                   string `json:"date"`
	Time                   string `json:"time"`
	RepetitionSeparator    string `json:"repetition_separator"`
	Version                string `json:"version"`
	ControlNumber          string `json:"control_number"`
	AckRequested           string `json:"ack_requested"`
	UsageIndicator         string `json:"usage_indicator"`
}

// GroupHeader carries the GS fields. It is zero for the implicit group that
// collects transaction sets found outside any GS.
type GroupHeader struct {
	FunctionalID  string `json:"functional_id"`
	SenderCode    string `json:"sender_code"`
	ReceiverCode  string `json:"receiver_code"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	ControlNumber string `json:"control_number"`
	Agency        string `json:"agency"`
	Version       string `json:"version"`
}

// TransactionSet is one complete ST...SE unit.
type TransactionSet struct {
	Code                string
	ControlNumber       string
	ConventionReference string
	// Start is the position of ST in the interchange stream.
	Start    int
	Segments Stream
}

// Group is one functional group and the transaction sets framed inside it.
type Group struct {
	Header       GroupHeader
	Implicit     bool
	Start        int
	Transactions []TransactionSet
}

// Interchange is the framed form of one ISA...IEA envelope. Errors lists the
// units that could not be closed; everything else was framed normally.
type Interchange struct {
	Header InterchangeHeader
	Groups []Group
	Errors []*StructuralError
}

// Transactions returns every framed transaction set in document order.
func (ic *Interchange) Transactions() []TransactionSet {
	var out []TransactionSet
	for _, g := range ic.Groups {
		out = append(out, g.Transactions...)
	}
	return out
}

// NewTransactionSet wraps an ST...SE range. It returns a ContractError when
// the range does not open with ST and close with SE.
func NewTransactionSet(segs Stream, start int) (TransactionSet, error) {
	if len(segs) < 2 || segs[0].ID() != "ST" || segs[len(segs)-1].ID() != "SE" {
		return TransactionSet{}, &ContractError{Op: "x12.NewTransactionSet", Err: ErrNotTransactionSet}
	}
	st := segs[0]
	return TransactionSet{
		Code:                st.Element(1),
		ControlNumber:       st.Element(2),
		ConventionReference: st.Element(3),
		Start:               start,
		Segments:            segs,
	}, nil
}

// Validate reports whether t still looks like something the framer built.
func (t TransactionSet) Validate() error {
	_, err := NewTransactionSet(t.Segments, t.Start)
	return err
}

func parseInterchangeHeader(s Segment) InterchangeHeader {
	return InterchangeHeader{
		AuthorizationQualifier: s.Element(1),
		AuthorizationInfo:      s.Element(2),
		SecurityQualifier:      s.Element(3),
		SecurityInfo:           s.Element(4),
		SenderQualifier:        s.Element(5),
		SenderID:               trimPadding(s.Element(6)),
		ReceiverQualifier:      s.Element(7),
		ReceiverID:             trimPadding(s.Element(8)),
		Date:                   s.Element(9),
		Time:                   s.Element(10),
		RepetitionSeparator:    s.Element(11),
		Version:                s.Element(12),
		ControlNumber:          s.Element(13),
		AckRequested:           s.Element(14),
		UsageIndicator:         s.Element(15),
	}
}

func parseGroupHeader(s Segment) GroupHeader {
	return GroupHeader{
		FunctionalID:  s.Element(1),
		SenderCode:    s.Element(2),
		ReceiverCode:  s.Element(3),
		Date:          s.Element(4),
		Time:          s.Element(5),
		ControlNumber: s.Element(6),
		Agency:        s.Element(7),
		Version:       s.Element(8),
	}
}

// ISA ids are space padded to fixed width.
func trimPadding(v string) string {
	end := len(v)
	for end > 0 && v[end-1] == ' ' {
		end--
	}
	return v[:end]
}

// framer holds the open units while Frame walks the stream.
type framer struct {
	segs Stream
	ic   *Interchange

	group   *Group
	stStart int
	stOpen  bool
}

// Frame splits an interchange into functional groups and transaction sets.
// An ST without SE, a GS without GE or an ISA without IEA is recorded in
// Errors and framing resumes at the next unit; the unclosed transaction set
// is dropped while its well-framed siblings are kept.
func Frame(segs Stream) *Interchange {
	f := &framer{segs: segs, ic: &Interchange{}}
	isaOpen := false
	if len(segs) > 0 && segs[0].ID() == "ISA" {
		f.ic.Header = parseInterchangeHeader(segs[0])
		isaOpen = true
	} else {
		f.ic.Errors = append(f.ic.Errors, &StructuralError{
			Unit:     UnitInterchange,
			Index:    0,
			Expected: "ISA",
			Found:    firstID(segs),
		})
	}

	for i, seg := range segs {
		switch seg.ID() {
		case "GS":
			f.abandonTransaction(i, "GS")
			f.closeGroup(i, "GS", false)
			f.group = &Group{Header: parseGroupHeader(seg), Start: i}
		case "ST":
			f.abandonTransaction(i, "ST")
			if f.group == nil {
				f.group = &Group{Implicit: true, Start: i}
			}
			f.stStart, f.stOpen = i, true
		case "SE":
			if !f.stOpen {
				f.ic.Errors = append(f.ic.Errors, &StructuralError{
					Unit:          UnitTransactionSet,
					ControlNumber: seg.Element(2),
					Index:         i,
					Expected:      "ST",
					Found:         "SE",
				})
				continue
			}
			ts, _ := NewTransactionSet(segs[f.stStart:i+1:i+1], f.stStart)
			f.group.Transactions = append(f.group.Transactions, ts)
			f.stOpen = false
		case "GE":
			f.abandonTransaction(i, "GE")
			if f.group == nil || f.group.Implicit {
				f.ic.Errors = append(f.ic.Errors, &StructuralError{
					Unit:          UnitFunctionalGroup,
					ControlNumber: seg.Element(2),
					Index:         i,
					Expected:      "GS",
					Found:         "GE",
				})
			}
			f.closeGroup(i, "GE", true)
		case "IEA":
			f.abandonTransaction(i, "IEA")
			f.closeGroup(i, "IEA", false)
			isaOpen = false
		}
	}

	end := len(segs)
	f.abandonTransaction(end, "")
	f.closeGroup(end, "", false)
	if isaOpen {
		f.ic.Errors = append(f.ic.Errors, &StructuralError{
			Unit:          UnitInterchange,
			ControlNumber: f.ic.Header.ControlNumber,
			Index:         end,
			Expected:      "IEA",
		})
	}
	return f.ic
}

// abandonTransaction reports an open ST that was interrupted by found.
func (f *framer) abandonTransaction(i int, found string) {
	if !f.stOpen {
		return
	}
	f.ic.Errors = append(f.ic.Errors, &StructuralError{
		Unit:          UnitTransactionSet,
		ControlNumber: f.segs[f.stStart].Element(2),
		Index:         i,
		Expected:      "SE",
		Found:         found,
	})
	f.stOpen = false
}

// closeGroup files the open group. closed is true when a GE ended it; an
// explicit group ended any other way is reported as missing its GE.
func (f *framer) closeGroup(i int, found string, closed bool) {
	if f.group == nil {
		return
	}
	if !closed && !f.group.Implicit {
		f.ic.Errors = append(f.ic.Errors, &StructuralError{
			Unit:          UnitFunctionalGroup,
			ControlNumber: f.group.Header.ControlNumber,
			Index:         i,
			Expected:      "GE",
			Found:         found,
		})
	}
	if !f.group.Implicit || len(f.group.Transactions) > 0 {
		f.ic.Groups = append(f.ic.Groups, *f.group)
	}
	f.group = nil
}

func firstID(segs Stream) string {
	if len(segs) == 0 {
		return ""
	}
	return segs[0].ID()
}

// ReadInterchangeHeader parses only the ISA segment of raw, for callers that
// need the envelope identity before decoding the whole interchange.
func ReadInterchangeHeader(raw string) (InterchangeHeader, error) {
	d, err := DetectDelimiters(raw)
	if err != nil {
		return InterchangeHeader{}, err
	}
	raw = strings.TrimLeft(raw, " \t\r\n")
	if end := strings.IndexByte(raw, d.Segment); end >= 0 {
		raw = raw[:end]
	}
	return parseInterchangeHeader(ParseSegment(raw, d)), nil
}
