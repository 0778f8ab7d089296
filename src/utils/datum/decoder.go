package datum

import (
	"encoding/json"
	"strconv"

	"github.com/warp-contracts/ambassador-syncer/src/utils/model"
	"github.com/warp-contracts/ambassador-syncer/src/utils/monitoring"
)

// Metadata of membership intents, members and ambassador profiles
type MemberMetadata struct {
	WalletAddress string `json:"walletAddress"`
	FullName      string `json:"fullName"`
	DisplayName   string `json:"displayName"`
	EmailAddress  string `json:"emailAddress"`
	Bio           string `json:"bio"`

	// Only set for members and profiles
	TotalPoints *int64 `json:"totalPoints,omitempty"`
}

// Metadata of proposals, proposal intents and signs of approval
type ProposalMetadata struct {
	ProjectDetails        string `json:"projectDetails"`
	FundsRequested        int64  `json:"fundsRequested"`
	ReceiverWalletAddress string `json:"receiverWalletAddress"`
	SubmittedBy           string `json:"submittedBy"`
}

// Typed record extracted from a datum
type Record struct {
	Category model.Category    `json:"category"`
	Version  int64             `json:"version"`
	Member   *MemberMetadata   `json:"member,omitempty"`
	Proposal *ProposalMetadata `json:"proposal,omitempty"`
}

// Pre-parsed metadata blob stored next to the raw datum
func (self *Record) JSON() (string, error) {
	var v any
	if self.Member != nil {
		v = self.Member
	} else {
		v = self.Proposal
	}
	buf, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

type layout func(metadata *PlutusData) (*Record, bool)

var layouts = map[model.Category]layout{
	model.CategoryMembershipIntent:  memberLayout(false),
	model.CategoryMember:            memberLayout(true),
	model.CategoryAmbassadorProfile: memberLayout(true),
	model.CategoryProposal:          proposalLayout,
	model.CategoryProposalIntent:    proposalLayout,
	model.CategorySignOfApproval:    proposalLayout,
}

// Maps a datum to a typed record. Returns nil if the datum doesn't have the layout of the category.
func Decode(category model.Category, raw *PlutusData) (out *Record) {
	defer func() {
		// Shape checks are explicit, this only guards against malformed trees built by hand
		if r := recover(); r != nil {
			out = nil
		}
	}()

	f, ok := layouts[category]
	if !ok {
		return nil
	}

	// Constr 0 [metadata, version]
	fields, ok := raw.ConstrFields(0, 2)
	if !ok {
		return nil
	}

	version, ok := fields[1].Int64()
	if !ok {
		return nil
	}

	out, ok = f(fields[0])
	if !ok {
		return nil
	}
	out.Category = category
	out.Version = version
	return
}

// Decode of a hex encoded CBOR datum. Unparsable input is a mismatch.
func DecodeHex(category model.Category, cborHex string) *Record {
	raw, err := ParsePlutusData(cborHex)
	if err != nil {
		return nil
	}
	return Decode(category, raw)
}

func memberLayout(withPoints bool) layout {
	n := 5
	if withPoints {
		n = 6
	}

	return func(metadata *PlutusData) (*Record, bool) {
		fields, ok := metadata.ConstrFields(0, n)
		if !ok {
			return nil, false
		}

		texts, ok := texts(fields[:5])
		if !ok {
			return nil, false
		}

		out := &MemberMetadata{
			WalletAddress: texts[0],
			FullName:      texts[1],
			DisplayName:   texts[2],
			EmailAddress:  texts[3],
			Bio:           texts[4],
		}

		if withPoints {
			points, ok := decimal(fields[5])
			if !ok {
				return nil, false
			}
			out.TotalPoints = &points
		}

		return &Record{Member: out}, true
	}
}

func proposalLayout(metadata *PlutusData) (*Record, bool) {
	fields, ok := metadata.ConstrFields(0, 4)
	if !ok {
		return nil, false
	}

	texts, ok := texts([]*PlutusData{fields[0], fields[2], fields[3]})
	if !ok {
		return nil, false
	}

	funds, ok := decimal(fields[1])
	if !ok {
		return nil, false
	}

	return &Record{Proposal: &ProposalMetadata{
		ProjectDetails:        texts[0],
		FundsRequested:        funds,
		ReceiverWalletAddress: texts[1],
		SubmittedBy:           texts[2],
	}}, true
}

func texts(fields []*PlutusData) (out []string, ok bool) {
	out = make([]string, len(fields))
	for i, field := range fields {
		out[i], ok = field.Text()
		if !ok {
			return nil, false
		}
	}
	return out, true
}

// Numbers are stored as decimal text
func decimal(field *PlutusData) (int64, bool) {
	text, ok := field.Text()
	if !ok || text == "" {
		return 0, false
	}
	for _, c := range text {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Counts decoded and rejected datums
type Decoder struct {
	monitor monitoring.Monitor
}

func NewDecoder() *Decoder {
	return new(Decoder)
}

func (self *Decoder) WithMonitor(monitor monitoring.Monitor) *Decoder {
	self.monitor = monitor
	return self
}

func (self *Decoder) Decode(category model.Category, raw *PlutusData) (out *Record) {
	out = Decode(category, raw)
	self.count(out)
	return
}

func (self *Decoder) DecodeHex(category model.Category, cborHex string) (out *Record) {
	out = DecodeHex(category, cborHex)
	self.count(out)
	return
}

func (self *Decoder) count(record *Record) {
	if self.monitor == nil {
		return
	}
	if record == nil {
		self.monitor.GetReport().Decoder.Errors.ShapeMismatches.Inc()
	} else {
		self.monitor.GetReport().Decoder.State.Decoded.Inc()
	}
}
