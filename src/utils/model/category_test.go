package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestModelTestSuite(t *testing.T) {
	suite.Run(t, new(ModelTestSuite))
}

type ModelTestSuite struct {
	suite.Suite
}

func (s *ModelTestSuite) TestParseCategory() {
	for _, c := range Categories() {
		parsed, err := ParseCategory(string(c))
		require.Nil(s.T(), err)
		require.Equal(s.T(), c, parsed)
	}

	_, err := ParseCategory("treasury")
	require.True(s.T(), errors.Is(err, ErrUnknownCategory))
}

func (s *ModelTestSuite) TestSyncContexts() {
	require.Equal(s.T(), []Category{
		CategoryMember,
		CategoryMembershipIntent,
		CategoryProposal,
		CategoryProposalIntent,
		CategorySignOfApproval,
	}, SyncContexts())

	_, err := ParseSyncContext(string(CategoryAmbassadorProfile))
	require.True(s.T(), errors.Is(err, ErrUnknownCategory))

	c, err := ParseSyncContext("sign_of_approval")
	require.Nil(s.T(), err)
	require.Equal(s.T(), CategorySignOfApproval, c)
}

func (s *ModelTestSuite) TestSyncContextsIsACopy() {
	contexts := SyncContexts()
	contexts[0] = CategoryAmbassadorProfile
	require.Equal(s.T(), CategoryMember, SyncContexts()[0])
}

func (s *ModelTestSuite) TestByteArrayJSON() {
	buf, err := json.Marshal(ByteArray{83, 81, 0, 255})
	require.Nil(s.T(), err)
	require.Equal(s.T(), `[83,81,0,255]`, string(buf))

	var out ByteArray
	require.Nil(s.T(), json.Unmarshal(buf, &out))
	require.Equal(s.T(), ByteArray{83, 81, 0, 255}, out)

	// Base64 form is accepted as well
	require.Nil(s.T(), json.Unmarshal([]byte(`"U1EA/w=="`), &out))
	require.Equal(s.T(), ByteArray{83, 81, 0, 255}, out)

	require.NotNil(s.T(), json.Unmarshal([]byte(`[256]`), &out))

	buf, err = json.Marshal(ByteArray{})
	require.Nil(s.T(), err)
	require.Equal(s.T(), `[]`, string(buf))
}
