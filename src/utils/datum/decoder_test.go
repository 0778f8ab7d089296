package datum

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/warp-contracts/ambassador-syncer/src/utils/model"
	monitor_syncer "github.com/warp-contracts/ambassador-syncer/src/utils/monitoring/syncer"
)

func TestDecoderTestSuite(t *testing.T) {
	suite.Run(t, new(DecoderTestSuite))
}

type DecoderTestSuite struct {
	suite.Suite
}

func memberDatum(fields ...*PlutusData) *PlutusData {
	return NewConstr(0, NewConstr(0, fields...), NewInt(1))
}

func (s *DecoderTestSuite) hex(d *PlutusData) string {
	out, err := d.Hex()
	require.Nil(s.T(), err)
	return out
}

func (s *DecoderTestSuite) TestMembershipIntent() {
	raw := memberDatum(
		NewText("addr_test1qz"),
		NewText("Jane Doe"),
		NewText("jane"),
		NewText("jane@example.com"),
		NewText("Builder"),
	)

	record := DecodeHex(model.CategoryMembershipIntent, s.hex(raw))
	require.NotNil(s.T(), record)
	require.Equal(s.T(), model.CategoryMembershipIntent, record.Category)
	require.Equal(s.T(), int64(1), record.Version)
	require.Nil(s.T(), record.Proposal)
	require.Equal(s.T(), "addr_test1qz", record.Member.WalletAddress)
	require.Equal(s.T(), "Jane Doe", record.Member.FullName)
	require.Equal(s.T(), "jane", record.Member.DisplayName)
	require.Equal(s.T(), "jane@example.com", record.Member.EmailAddress)
	require.Equal(s.T(), "Builder", record.Member.Bio)
	require.Nil(s.T(), record.Member.TotalPoints)

	blob, err := record.JSON()
	require.Nil(s.T(), err)
	require.JSONEq(s.T(), `{"walletAddress":"addr_test1qz","fullName":"Jane Doe","displayName":"jane","emailAddress":"jane@example.com","bio":"Builder"}`, blob)
}

func (s *DecoderTestSuite) TestMember() {
	raw := memberDatum(
		NewText("addr_test1qz"),
		NewText("Jane Doe"),
		NewText("jane"),
		NewText("jane@example.com"),
		NewText("Builder"),
		NewText("1250"),
	)

	for _, category := range []model.Category{model.CategoryMember, model.CategoryAmbassadorProfile} {
		record := Decode(category, raw)
		require.NotNil(s.T(), record)
		require.NotNil(s.T(), record.Member.TotalPoints)
		require.Equal(s.T(), int64(1250), *record.Member.TotalPoints)
	}

	// Membership intents have no points
	require.Nil(s.T(), Decode(model.CategoryMembershipIntent, raw))
}

func (s *DecoderTestSuite) TestProposal() {
	raw := NewConstr(0, NewConstr(0,
		NewText("Community workshop"),
		NewText("5000000"),
		NewText("addr_test1receiver"),
		NewText("member-42"),
	), NewInt(2))

	for _, category := range []model.Category{model.CategoryProposal, model.CategoryProposalIntent, model.CategorySignOfApproval} {
		record := Decode(category, raw)
		require.NotNil(s.T(), record)
		require.Equal(s.T(), int64(2), record.Version)
		require.Equal(s.T(), "Community workshop", record.Proposal.ProjectDetails)
		require.Equal(s.T(), int64(5000000), record.Proposal.FundsRequested)
		require.Equal(s.T(), "addr_test1receiver", record.Proposal.ReceiverWalletAddress)
		require.Equal(s.T(), "member-42", record.Proposal.SubmittedBy)
	}

	require.Nil(s.T(), Decode(model.CategoryMember, raw))
}

func (s *DecoderTestSuite) TestMismatches() {
	valid := []*PlutusData{
		NewText("addr"), NewText("name"), NewText("display"), NewText("mail"), NewText("bio"),
	}

	cases := map[string]*PlutusData{
		"nil":              nil,
		"not a constr":     NewList(valid...),
		"wrong outer tag":  NewConstr(1, NewConstr(0, valid...), NewInt(1)),
		"missing version":  NewConstr(0, NewConstr(0, valid...)),
		"version as bytes": NewConstr(0, NewConstr(0, valid...), NewText("1")),
		"missing metadata": NewConstr(0, NewInt(1)),
		"metadata as list": NewConstr(0, NewList(valid...), NewInt(1)),
		"too few fields":   memberDatum(valid[:4]...),
		"too many fields":  memberDatum(append(valid, NewText("x"), NewText("y"))...),
		"int field":        memberDatum(NewInt(1), valid[1], valid[2], valid[3], valid[4]),
		"invalid utf8":     memberDatum(NewBytes([]byte{0xff, 0xfe}), valid[1], valid[2], valid[3], valid[4]),
		"empty constr":     NewConstr(0),
		"empty tree":       &PlutusData{},
		"nil fields":       &PlutusData{Kind: KindConstr, Fields: []*PlutusData{nil, nil}},
	}

	for name, raw := range cases {
		require.NotPanics(s.T(), func() {
			require.Nil(s.T(), Decode(model.CategoryMembershipIntent, raw), name)
		}, name)
	}
}

func (s *DecoderTestSuite) TestBadNumbers() {
	for _, points := range []string{"", "12a", "-5", "1.5", "99999999999999999999999"} {
		raw := memberDatum(
			NewText("addr"), NewText("name"), NewText("display"), NewText("mail"), NewText("bio"), NewText(points),
		)
		require.Nil(s.T(), Decode(model.CategoryMember, raw), points)
	}
}

func (s *DecoderTestSuite) TestUnknownCategory() {
	raw := memberDatum(NewText("a"), NewText("b"), NewText("c"), NewText("d"), NewText("e"))
	require.Nil(s.T(), Decode(model.Category("other"), raw))
}

func (s *DecoderTestSuite) TestGarbageHex() {
	for _, input := range []string{"", "zz", "d879", "d8799f", "ff", "d87980ff", "a1"} {
		require.NotPanics(s.T(), func() {
			require.Nil(s.T(), DecodeHex(model.CategoryMember, input), input)
		}, input)
	}
}

func (s *DecoderTestSuite) TestDecoderCounts() {
	monitor := monitor_syncer.NewMonitor()
	decoder := NewDecoder().WithMonitor(monitor)

	raw := memberDatum(NewText("a"), NewText("b"), NewText("c"), NewText("d"), NewText("e"))
	require.NotNil(s.T(), decoder.Decode(model.CategoryMembershipIntent, raw))
	require.Nil(s.T(), decoder.Decode(model.CategoryMember, raw))
	require.Nil(s.T(), decoder.DecodeHex(model.CategoryMember, "00"))

	require.Equal(s.T(), uint64(1), monitor.Report.Decoder.State.Decoded.Load())
	require.Equal(s.T(), uint64(2), monitor.Report.Decoder.Errors.ShapeMismatches.Load())
}

func TestPlutusDataTestSuite(t *testing.T) {
	suite.Run(t, new(PlutusDataTestSuite))
}

type PlutusDataTestSuite struct {
	suite.Suite
}

func (s *PlutusDataTestSuite) TestIndefiniteArray() {
	// Constr 0 [h'61'] with an indefinite length field list
	raw, err := ParsePlutusData("d8799f4161ff")
	require.Nil(s.T(), err)
	require.Equal(s.T(), KindConstr, raw.Kind)
	require.Equal(s.T(), uint64(0), raw.Constructor)
	require.Len(s.T(), raw.Fields, 1)

	text, ok := raw.Fields[0].Text()
	require.True(s.T(), ok)
	require.Equal(s.T(), "a", text)
}

func (s *PlutusDataTestSuite) TestConstructorTags() {
	for _, constructor := range []uint64{0, 6, 7, 127, 128, 1000} {
		in := NewConstr(constructor, NewInt(-3), NewBytes([]byte{1, 2}))

		encoded, err := in.Hex()
		require.Nil(s.T(), err)

		out, err := ParsePlutusData(encoded)
		require.Nil(s.T(), err)
		require.Equal(s.T(), KindConstr, out.Kind)
		require.Equal(s.T(), constructor, out.Constructor)
		require.Len(s.T(), out.Fields, 2)

		v, ok := out.Fields[0].Int64()
		require.True(s.T(), ok)
		require.Equal(s.T(), int64(-3), v)
		require.Equal(s.T(), []byte{1, 2}, out.Fields[1].Bytes)
	}
}

func (s *PlutusDataTestSuite) TestMap() {
	in := NewMap(
		MapEntry{Key: NewInt(1), Value: NewText("one")},
		MapEntry{Key: NewList(NewInt(2)), Value: NewConstr(1)},
	)

	encoded, err := in.Hex()
	require.Nil(s.T(), err)

	out, err := ParsePlutusData(encoded)
	require.Nil(s.T(), err)
	require.Equal(s.T(), KindMap, out.Kind)
	require.Len(s.T(), out.Map, 2)

	text, ok := out.Map[0].Value.Text()
	require.True(s.T(), ok)
	require.Equal(s.T(), "one", text)
	require.Equal(s.T(), KindList, out.Map[1].Key.Kind)
	require.Equal(s.T(), uint64(1), out.Map[1].Value.Constructor)
}

func (s *PlutusDataTestSuite) TestIndefiniteMap() {
	// {_ 1: 2}
	out, err := ParsePlutusData("bf0102ff")
	require.Nil(s.T(), err)
	require.Equal(s.T(), KindMap, out.Kind)
	require.Len(s.T(), out.Map, 1)
}

func (s *PlutusDataTestSuite) TestBignum() {
	// 2^64 as a positive bignum
	out, err := ParsePlutusData("c249010000000000000000")
	require.Nil(s.T(), err)
	require.Equal(s.T(), KindInt, out.Kind)

	expected := new(big.Int).Lsh(big.NewInt(1), 64)
	require.Equal(s.T(), 0, expected.Cmp(out.Int))

	_, ok := out.Int64()
	require.False(s.T(), ok)
}

func (s *PlutusDataTestSuite) TestRejects() {
	for _, input := range []string{
		"",
		"not hex",
		hex.EncodeToString([]byte{0x61, 0x61}), // text string
		"f6",                                    // null
		"d8799f4161ff00",                        // trailing bytes
		"d90100a0",                              // unknown tag 256
	} {
		_, err := ParsePlutusData(input)
		require.ErrorIs(s.T(), err, ErrInvalidCbor, input)
	}
}
